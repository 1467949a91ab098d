// Package run orchestrates repository runs: it validates traversal roots,
// discovers repositories beneath them, invokes the configured tool in each
// repository sequentially, and reports a summary identifying every failure.
package run
