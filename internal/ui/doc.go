// Package ui renders human-facing output for repository runs: per-repository
// headings, traversal warnings, the final summary, and console narrations of
// tool lifecycle events.
package ui
