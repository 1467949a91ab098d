// Package discovery walks directory trees to locate repository roots.
//
// A directory qualifies as a repository root when it directly contains the
// configured metadata subdirectory (".git" by default). Discovered roots are
// reported incrementally through a visitor and are never descended into, so
// nested markers below a repository stay unobserved.
package discovery
