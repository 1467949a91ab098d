// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner
// for captured or console-streamed process execution, and defines the
// abstractions grpr uses to replay a tool invocation inside repositories in
// a testable manner.
package execshell
