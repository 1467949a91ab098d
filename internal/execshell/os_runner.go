package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
)

// StreamConfiguration routes child process streams to the operator's console.
//
// Streams left nil fall back to in-memory capture, matching the buffered
// behavior unit-level consumers rely on.
type StreamConfiguration struct {
	StandardInput  io.Reader
	StandardOutput io.Writer
	StandardError  io.Writer
}

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	streams StreamConfiguration
}

// NewOSCommandRunner constructs a runner backed by os/exec that captures child output.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// NewStreamingOSCommandRunner constructs a runner that connects children to the provided streams.
func NewStreamingOSCommandRunner(streams StreamConfiguration) *OSCommandRunner {
	return &OSCommandRunner{streams: streams}
}

// Run executes the supplied command using os/exec.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, string(command.Name), commandArguments...)

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer

	executable.Stdout = &standardOutputBuffer
	if runner.streams.StandardOutput != nil {
		executable.Stdout = runner.streams.StandardOutput
	}

	executable.Stderr = &standardErrorBuffer
	if runner.streams.StandardError != nil {
		executable.Stderr = runner.streams.StandardError
	}

	switch {
	case len(command.Details.StandardInput) > 0:
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	case runner.streams.StandardInput != nil:
		executable.Stdin = runner.streams.StandardInput
	}

	runError := executable.Run()
	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			return ExecutionResult{
				StandardOutput: standardOutputBuffer.String(),
				StandardError:  standardErrorBuffer.String(),
				ExitCode:       exitError.ExitCode(),
			}, nil
		}
		return ExecutionResult{}, runError
	}

	return ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ExitCode:       0,
	}, nil
}
