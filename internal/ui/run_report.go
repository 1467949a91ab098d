package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/temirov/grpr/internal/dispatch"
	"github.com/temirov/grpr/internal/execshell"
)

const (
	repositoryHeadingTemplateConstant = "REPO-RUN: %s (%s)"
	accessWarningTemplateConstant     = "WARNING: %s"
	summarySuccessTemplateConstant    = "RUN-SUMMARY: %d repositories processed, all commands succeeded"
	summaryFailureTemplateConstant    = "RUN-SUMMARY: %d repositories processed, %d failed"
	failureLineTemplateConstant       = "RUN-FAIL: %s (%s)"
)

// RunReportFormatter renders the console lines a repository run prints:
// per-repository headings, traversal warnings, and the final summary.
type RunReportFormatter struct {
	headingColor *color.Color
	successColor *color.Color
	failureColor *color.Color
	warningColor *color.Color
}

// NewRunReportFormatter constructs a formatter with the default color palette.
// Colors degrade to plain text automatically when output is not a terminal.
func NewRunReportFormatter() RunReportFormatter {
	return RunReportFormatter{
		headingColor: color.New(color.Bold),
		successColor: color.New(color.FgGreen),
		failureColor: color.New(color.FgRed),
		warningColor: color.New(color.FgYellow),
	}
}

// BuildRepositoryHeading formats the line announcing the tool invocation inside one repository.
func (formatter RunReportFormatter) BuildRepositoryHeading(toolName execshell.CommandName, arguments []string, repositoryPath string) string {
	invocationParts := []string{string(toolName)}
	if len(arguments) > 0 {
		invocationParts = append(invocationParts, strings.Join(arguments, commandArgumentsJoinSeparatorConstant))
	}
	invocationLabel := strings.Join(invocationParts, commandArgumentsJoinSeparatorConstant)
	headingText := fmt.Sprintf(repositoryHeadingTemplateConstant, invocationLabel, repositoryPath)
	return formatter.colorize(formatter.headingColor, headingText)
}

// BuildAccessWarningMessage formats the line reporting a directory the traversal skipped.
func (formatter RunReportFormatter) BuildAccessWarningMessage(warning error) string {
	warningMessage := unknownFailureMessageConstant
	if warning != nil {
		warningMessage = warning.Error()
	}
	warningText := fmt.Sprintf(accessWarningTemplateConstant, warningMessage)
	return formatter.colorize(formatter.warningColor, warningText)
}

// BuildSummaryLines formats the final run report: one summary line followed by
// one line per failed repository in run order.
func (formatter RunReportFormatter) BuildSummaryLines(runSummary *dispatch.Summary) []string {
	if runSummary.AllSucceeded() {
		summaryText := fmt.Sprintf(summarySuccessTemplateConstant, runSummary.RepositoryCount())
		return []string{formatter.colorize(formatter.successColor, summaryText)}
	}

	failedOutcomes := runSummary.FailedOutcomes()
	summaryLines := make([]string, 0, len(failedOutcomes)+1)
	summaryText := fmt.Sprintf(summaryFailureTemplateConstant, runSummary.RepositoryCount(), len(failedOutcomes))
	summaryLines = append(summaryLines, formatter.colorize(formatter.failureColor, summaryText))
	for _, failedOutcome := range failedOutcomes {
		failureText := fmt.Sprintf(failureLineTemplateConstant, failedOutcome.RepositoryPath, failedOutcome.FailureReason())
		summaryLines = append(summaryLines, formatter.colorize(formatter.failureColor, failureText))
	}
	return summaryLines
}

func (formatter RunReportFormatter) colorize(colorInstance *color.Color, text string) string {
	if colorInstance == nil {
		return text
	}
	return colorInstance.Sprint(text)
}
