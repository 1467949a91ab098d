package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/grpr/internal/discovery"
	"github.com/temirov/grpr/internal/dispatch"
	"github.com/temirov/grpr/internal/execshell"
	"github.com/temirov/grpr/internal/ui"
	pathutils "github.com/temirov/grpr/internal/utils/path"
)

const (
	reportedLineTemplateConstant       = "%s\n"
	directorySkippedLogMessageConstant = "directory skipped"
	runCompletedLogMessageConstant     = "run completed"
	pathLogFieldNameConstant           = "path"
	repositoriesLogFieldNameConstant   = "repositories"
	failuresLogFieldNameConstant       = "failures"
	repositoryFailuresTemplateConstant = "command failed in %d of %d repositories"
)

// ToolInvoker runs the configured tool inside one repository and reports the outcome.
type ToolInvoker interface {
	Invoke(executionContext context.Context, repositoryPath string, options dispatch.Options) dispatch.InvocationOutcome
}

// RepositoryWalker yields repository roots beneath a traversal root.
type RepositoryWalker interface {
	WalkRepositories(executionContext context.Context, rootPath string, visitor discovery.RepositoryVisitor) error
	ValidateRoot(rootPath string) error
}

// WalkerFactory builds a repository walker for the provided configuration.
type WalkerFactory func(configuration discovery.WalkerConfiguration) RepositoryWalker

// Dependencies bundles the collaborators used by the run service. Nil fields
// resolve to production defaults.
type Dependencies struct {
	Logger        *zap.Logger
	WalkerFactory WalkerFactory
	ToolInvoker   ToolInvoker
	EventObserver execshell.CommandEventObserver
	Output        io.Writer
	Errors        io.Writer
}

// Options selects what a repository run executes and where it looks.
type Options struct {
	Roots      []string
	ToolName   string
	Arguments  []string
	MarkerName string
}

// RepositoryFailuresError reports the repositories whose invocations failed
// after a run visited every repository.
type RepositoryFailuresError struct {
	RepositoryCount int
	FailedOutcomes  []dispatch.InvocationOutcome
}

// Error implements the error interface.
func (failures RepositoryFailuresError) Error() string {
	return fmt.Sprintf(repositoryFailuresTemplateConstant, len(failures.FailedOutcomes), failures.RepositoryCount)
}

// Service walks repository trees and runs the configured tool sequentially in
// every repository it discovers, collecting per-repository outcomes.
type Service struct {
	logger          *zap.Logger
	walkerFactory   WalkerFactory
	toolInvoker     ToolInvoker
	outputReporter  Reporter
	errorReporter   Reporter
	reportFormatter ui.RunReportFormatter
	pathSanitizer   *pathutils.RepositoryPathSanitizer
}

// NewService constructs a Service, resolving absent dependencies to defaults.
func NewService(dependencies Dependencies) (*Service, error) {
	logger := ResolveLogger(dependencies.Logger)
	outputWriter := ResolveOutputWriter(dependencies.Output)
	errorWriter := ResolveErrorWriter(dependencies.Errors)

	toolInvoker, invokerError := ResolveToolInvoker(dependencies.ToolInvoker, logger, dependencies.EventObserver, outputWriter, errorWriter)
	if invokerError != nil {
		return nil, invokerError
	}

	return &Service{
		logger:          logger,
		walkerFactory:   ResolveWalkerFactory(dependencies.WalkerFactory),
		toolInvoker:     toolInvoker,
		outputReporter:  NewWriterReporter(outputWriter),
		errorReporter:   NewWriterReporter(errorWriter),
		reportFormatter: ui.NewRunReportFormatter(),
		pathSanitizer: pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{
			PruneNestedPaths: true,
		}),
	}, nil
}

// Run discovers repositories beneath each configured root and invokes the
// tool in every one of them, in traversal order. Discovery stays interleaved
// with execution: each repository runs as soon as it is found.
//
// Run validates every root before the first invocation. Child failures never
// abort the run; they surface in the final summary and in the returned
// RepositoryFailuresError.
func (service *Service) Run(executionContext context.Context, options Options) error {
	sanitizedRoots := service.pathSanitizer.Sanitize(options.Roots)
	if len(sanitizedRoots) == 0 {
		sanitizedRoots = []string{defaultRootPathConstant}
	}

	toolName := strings.TrimSpace(options.ToolName)
	if len(toolName) == 0 {
		toolName = defaultToolNameConstant
	}

	markerName := strings.TrimSpace(options.MarkerName)
	if len(markerName) == 0 {
		markerName = defaultMarkerNameConstant
	}
	if markerError := validateMarkerName(markerName); markerError != nil {
		return markerError
	}

	repositoryWalker := service.walkerFactory(discovery.WalkerConfiguration{
		MarkerName:      markerName,
		WarningObserver: service.reportAccessWarning,
	})

	for _, rootPath := range sanitizedRoots {
		if validationError := repositoryWalker.ValidateRoot(rootPath); validationError != nil {
			return validationError
		}
	}

	dispatchOptions := dispatch.Options{
		ToolName:  execshell.CommandName(toolName),
		Arguments: options.Arguments,
	}
	runSummary := &dispatch.Summary{}
	visitedRepositories := map[string]struct{}{}

	for _, rootPath := range sanitizedRoots {
		walkError := repositoryWalker.WalkRepositories(executionContext, rootPath, func(repositoryPath string) error {
			if _, alreadyVisited := visitedRepositories[repositoryPath]; alreadyVisited {
				return nil
			}
			visitedRepositories[repositoryPath] = struct{}{}

			service.outputReporter.Printf(reportedLineTemplateConstant, service.reportFormatter.BuildRepositoryHeading(dispatchOptions.ToolName, dispatchOptions.Arguments, repositoryPath))
			runSummary.Record(service.toolInvoker.Invoke(executionContext, repositoryPath, dispatchOptions))
			return executionContext.Err()
		})
		if walkError == nil {
			continue
		}
		// An interrupt kills the in-flight child and ends the walk; outcomes
		// collected so far are still summarized before the error surfaces.
		if errors.Is(walkError, context.Canceled) || errors.Is(walkError, context.DeadlineExceeded) {
			if runSummary.RepositoryCount() > 0 {
				service.printSummary(runSummary)
			}
		}
		return walkError
	}

	service.printSummary(runSummary)

	if !runSummary.AllSucceeded() {
		return RepositoryFailuresError{
			RepositoryCount: runSummary.RepositoryCount(),
			FailedOutcomes:  runSummary.FailedOutcomes(),
		}
	}
	return nil
}

func (service *Service) printSummary(runSummary *dispatch.Summary) {
	for _, summaryLine := range service.reportFormatter.BuildSummaryLines(runSummary) {
		service.outputReporter.Printf(reportedLineTemplateConstant, summaryLine)
	}

	service.logger.Debug(runCompletedLogMessageConstant,
		zap.Int(repositoriesLogFieldNameConstant, runSummary.RepositoryCount()),
		zap.Int(failuresLogFieldNameConstant, runSummary.FailureCount()),
	)
}

func (service *Service) reportAccessWarning(accessError discovery.DirectoryAccessError) {
	service.logger.Warn(directorySkippedLogMessageConstant,
		zap.String(pathLogFieldNameConstant, accessError.Path),
		zap.Error(accessError.Cause),
	)
	service.errorReporter.Printf(reportedLineTemplateConstant, service.reportFormatter.BuildAccessWarningMessage(accessError))
}
