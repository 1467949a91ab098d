// Package cli wires the grpr command-line application: a single root command
// that forwards its argument vector verbatim to the configured tool inside
// every repository discovered beneath the configured roots.
package cli
