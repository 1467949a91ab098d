package run

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/grpr/internal/discovery"
	"github.com/temirov/grpr/internal/dispatch"
	"github.com/temirov/grpr/internal/execshell"
)

// ResolveLogger returns the provided logger or a no-op default.
func ResolveLogger(existing *zap.Logger) *zap.Logger {
	if existing != nil {
		return existing
	}
	return zap.NewNop()
}

// ResolveOutputWriter returns the provided writer or standard output.
func ResolveOutputWriter(existing io.Writer) io.Writer {
	if existing != nil {
		return existing
	}
	return os.Stdout
}

// ResolveErrorWriter returns the provided writer or standard error.
func ResolveErrorWriter(existing io.Writer) io.Writer {
	if existing != nil {
		return existing
	}
	return os.Stderr
}

// ResolveWalkerFactory returns the provided factory or one building filesystem-backed walkers.
func ResolveWalkerFactory(existing WalkerFactory) WalkerFactory {
	if existing != nil {
		return existing
	}
	return func(configuration discovery.WalkerConfiguration) RepositoryWalker {
		return discovery.NewFilesystemRepositoryWalkerWithConfiguration(configuration)
	}
}

// ResolveToolInvoker returns the provided invoker or constructs a dispatcher
// backed by a streaming shell executor so child processes share the run's
// standard streams.
func ResolveToolInvoker(existing ToolInvoker, logger *zap.Logger, eventObserver execshell.CommandEventObserver, standardOutput io.Writer, standardError io.Writer) (ToolInvoker, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewStreamingOSCommandRunner(execshell.StreamConfiguration{
		StandardInput:  os.Stdin,
		StandardOutput: standardOutput,
		StandardError:  standardError,
	})
	shellExecutor, creationError := execshell.NewShellExecutorWithObserver(logger, commandRunner, eventObserver)
	if creationError != nil {
		return nil, creationError
	}
	return dispatch.NewDispatcher(dispatch.Dependencies{ToolExecutor: shellExecutor})
}
