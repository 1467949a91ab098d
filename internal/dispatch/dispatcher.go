package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/temirov/grpr/internal/execshell"
)

const (
	toolExecutorNotConfiguredMessageConstant = "tool executor not configured"
	spawnFailureReasonTemplateConstant       = "spawn failure: %v"
	exitCodeReasonTemplateConstant           = "exit code %d"
	emptyReasonConstant                      = ""
)

// ErrToolExecutorNotConfigured reports a dispatcher constructed without an executor.
var ErrToolExecutorNotConfigured = errors.New(toolExecutorNotConfiguredMessageConstant)

// ToolExecutor runs shell commands on behalf of the dispatcher.
type ToolExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Options configures which tool runs and with which argument vector.
type Options struct {
	ToolName  execshell.CommandName
	Arguments []string
}

// Dependencies supplies collaborators required to dispatch invocations.
type Dependencies struct {
	ToolExecutor ToolExecutor
}

// Dispatcher replays a tool invocation inside repository working directories,
// one repository at a time.
type Dispatcher struct {
	dependencies Dependencies
}

// NewDispatcher constructs a Dispatcher after validating its dependencies.
func NewDispatcher(dependencies Dependencies) (*Dispatcher, error) {
	if dependencies.ToolExecutor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	return &Dispatcher{dependencies: dependencies}, nil
}

// InvocationOutcome records the result of running the tool in one repository.
type InvocationOutcome struct {
	RepositoryPath string
	ExitCode       int
	// SpawnError is set when the tool could not be started at all.
	SpawnError error
}

// Succeeded reports whether the tool started and exited with status zero.
func (outcome InvocationOutcome) Succeeded() bool {
	return outcome.SpawnError == nil && outcome.ExitCode == 0
}

// FailureReason renders why the invocation failed, or an empty string for successes.
func (outcome InvocationOutcome) FailureReason() string {
	switch {
	case outcome.SpawnError != nil:
		return fmt.Sprintf(spawnFailureReasonTemplateConstant, outcome.SpawnError)
	case outcome.ExitCode != 0:
		return fmt.Sprintf(exitCodeReasonTemplateConstant, outcome.ExitCode)
	default:
		return emptyReasonConstant
	}
}

// Invoke runs the configured tool with the repository as working directory and
// the argument vector passed through verbatim.
//
// Child failures and spawn failures are recorded on the outcome rather than
// returned, so callers continue with the remaining repositories. The child is
// waited on synchronously; Invoke never overlaps invocations.
func (dispatcher *Dispatcher) Invoke(executionContext context.Context, repositoryPath string, options Options) InvocationOutcome {
	command := execshell.ShellCommand{
		Name: options.ToolName,
		Details: execshell.CommandDetails{
			Arguments:        append([]string{}, options.Arguments...),
			WorkingDirectory: repositoryPath,
		},
	}

	outcome := InvocationOutcome{RepositoryPath: repositoryPath}

	executionResult, executionError := dispatcher.dependencies.ToolExecutor.Execute(executionContext, command)
	if executionError == nil {
		outcome.ExitCode = executionResult.ExitCode
		return outcome
	}

	var commandFailedError execshell.CommandFailedError
	if errors.As(executionError, &commandFailedError) {
		outcome.ExitCode = commandFailedError.Result.ExitCode
		return outcome
	}

	outcome.SpawnError = executionError
	return outcome
}
