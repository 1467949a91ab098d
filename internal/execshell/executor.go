package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	commandGitNameConstant                        = "git"
	loggerNotConfiguredMessageConstant            = "logger not configured"
	commandRunnerNotConfiguredMessageConstant     = "command runner not configured"
	commandStartedLogMessageConstant              = "executing command"
	commandCompletedLogMessageConstant            = "command completed"
	commandFailedLogMessageConstant               = "command exited with failure"
	commandExecutionFailedLogMessageConstant      = "command execution failed"
	logFieldCommandNameConstant                   = "command"
	logFieldCommandArgumentsConstant              = "arguments"
	logFieldWorkingDirectoryConstant              = "working_directory"
	logFieldExitCodeConstant                      = "exit_code"
	commandFailedErrorTemplateConstant            = "%s exited with code %d"
	commandFailedErrorStandardErrorSuffixConstant = ": %s"
	commandExecutionErrorTemplateConstant         = "unable to execute %s: %v"
	commandLabelSeparatorConstant                 = " "
)

// CommandName identifies the executable launched by the shell executor.
type CommandName string

// CommandGit names the default version-control tool.
const CommandGit CommandName = CommandName(commandGitNameConstant)

// CommandDetails describes a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of a completed command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Initialization validation errors for NewShellExecutor.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failure including trimmed standard error output when present.
func (failedError CommandFailedError) Error() string {
	baseMessage := fmt.Sprintf(commandFailedErrorTemplateConstant, failedError.Command.commandLabel(), failedError.Result.ExitCode)
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) == 0 {
		return baseMessage
	}
	return baseMessage + fmt.Sprintf(commandFailedErrorStandardErrorSuffixConstant, trimmedStandardError)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the execution failure with its underlying cause.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, executionError.Command.commandLabel(), executionError.Cause)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As inspection.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

func (command ShellCommand) commandLabel() string {
	labelParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(labelParts, commandLabelSeparatorConstant)
}

// ShellExecutor coordinates command execution with structured logging and lifecycle events.
type ShellExecutor struct {
	logger        *zap.Logger
	commandRunner CommandRunner
	eventObserver CommandEventObserver
}

// NewShellExecutor constructs a ShellExecutor with a no-op event observer.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner) (*ShellExecutor, error) {
	return NewShellExecutorWithObserver(logger, commandRunner, noopCommandEventObserver{})
}

// NewShellExecutorWithObserver constructs a ShellExecutor that notifies the provided observer.
func NewShellExecutorWithObserver(logger *zap.Logger, commandRunner CommandRunner, eventObserver CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	resolvedObserver := eventObserver
	if resolvedObserver == nil {
		resolvedObserver = noopCommandEventObserver{}
	}

	return &ShellExecutor{
		logger:        logger,
		commandRunner: commandRunner,
		eventObserver: resolvedObserver,
	}, nil
}

// Execute runs the supplied command and classifies its outcome.
//
// A non-zero exit status surfaces as CommandFailedError alongside the
// captured result; failures to launch the command surface as
// CommandExecutionError. Every execution emits exactly two log events.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(
		commandStartedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
	executor.eventObserver.CommandStarted(command)

	executionResult, runError := executor.commandRunner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(
			commandExecutionFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
			zap.Error(runError),
		)
		wrappedError := CommandExecutionError{Command: command, Cause: runError}
		executor.eventObserver.CommandExecutionFailed(command, wrappedError)
		return ExecutionResult{}, wrappedError
	}

	executor.eventObserver.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(
			commandFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
		)
		return executionResult, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(
		commandCompletedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
	)
	return executionResult, nil
}

// ExecuteGit runs the default version-control tool with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}
