package ui_test

import (
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/temirov/grpr/internal/dispatch"
	"github.com/temirov/grpr/internal/execshell"
	"github.com/temirov/grpr/internal/ui"
)

const (
	reportToolNameConstant           = execshell.CommandName("git")
	reportRepositoryPathConstant     = "/workspace/alpha"
	reportSecondRepositoryConstant   = "/workspace/beta"
	expectedHeadingConstant          = "REPO-RUN: git status --short (/workspace/alpha)"
	expectedBareHeadingConstant      = "REPO-RUN: git (/workspace/alpha)"
	expectedSuccessSummaryConstant   = "RUN-SUMMARY: 2 repositories processed, all commands succeeded"
	expectedFailureSummaryConstant   = "RUN-SUMMARY: 2 repositories processed, 1 failed"
	expectedFailureLineConstant      = "RUN-FAIL: /workspace/beta (exit code 4)"
	accessWarningCauseConstant       = "cannot access directory \"/workspace/locked\": permission denied"
	expectedAccessWarningConstant    = "WARNING: " + accessWarningCauseConstant
	expectedUnknownWarningConstant   = "WARNING: unknown error"
	successfulSummaryReportCaseName  = "all_repositories_succeeded"
	failingSummaryReportCaseName     = "failures_listed_after_summary"
	emptySummaryReportCaseName       = "empty_run_reports_success"
	expectedEmptySummaryLineConstant = "RUN-SUMMARY: 0 repositories processed, all commands succeeded"
)

func disableColorOutput(testInstance *testing.T) {
	originalNoColor := color.NoColor
	color.NoColor = true
	testInstance.Cleanup(func() { color.NoColor = originalNoColor })
}

func TestRunReportFormatterBuildsRepositoryHeadings(testInstance *testing.T) {
	disableColorOutput(testInstance)

	testCases := []struct {
		name            string
		arguments       []string
		expectedHeading string
	}{
		{
			name:            "tool_with_arguments",
			arguments:       []string{"status", "--short"},
			expectedHeading: expectedHeadingConstant,
		},
		{
			name:            "tool_without_arguments",
			arguments:       nil,
			expectedHeading: expectedBareHeadingConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			formatter := ui.NewRunReportFormatter()
			heading := formatter.BuildRepositoryHeading(reportToolNameConstant, testCase.arguments, reportRepositoryPathConstant)
			require.Equal(subtestInstance, testCase.expectedHeading, heading)
		})
	}
}

func TestRunReportFormatterBuildsAccessWarnings(testInstance *testing.T) {
	disableColorOutput(testInstance)

	formatter := ui.NewRunReportFormatter()
	require.Equal(testInstance, expectedAccessWarningConstant, formatter.BuildAccessWarningMessage(errors.New(accessWarningCauseConstant)))
	require.Equal(testInstance, expectedUnknownWarningConstant, formatter.BuildAccessWarningMessage(nil))
}

func TestRunReportFormatterBuildsSummaryLines(testInstance *testing.T) {
	disableColorOutput(testInstance)

	testCases := []struct {
		name          string
		outcomes      []dispatch.InvocationOutcome
		expectedLines []string
	}{
		{
			name: successfulSummaryReportCaseName,
			outcomes: []dispatch.InvocationOutcome{
				{RepositoryPath: reportRepositoryPathConstant},
				{RepositoryPath: reportSecondRepositoryConstant},
			},
			expectedLines: []string{expectedSuccessSummaryConstant},
		},
		{
			name: failingSummaryReportCaseName,
			outcomes: []dispatch.InvocationOutcome{
				{RepositoryPath: reportRepositoryPathConstant},
				{RepositoryPath: reportSecondRepositoryConstant, ExitCode: 4},
			},
			expectedLines: []string{expectedFailureSummaryConstant, expectedFailureLineConstant},
		},
		{
			name:          emptySummaryReportCaseName,
			outcomes:      nil,
			expectedLines: []string{expectedEmptySummaryLineConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			runSummary := &dispatch.Summary{}
			for _, outcome := range testCase.outcomes {
				runSummary.Record(outcome)
			}

			formatter := ui.NewRunReportFormatter()
			require.Equal(subtestInstance, testCase.expectedLines, formatter.BuildSummaryLines(runSummary))
		})
	}
}
