// Package dispatch runs the configured tool inside each discovered repository
// and records per-repository outcomes so a run can report exactly which
// repositories failed and why.
package dispatch
