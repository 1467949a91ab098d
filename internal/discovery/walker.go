package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	repositoryMarkerDefaultNameConstant = ".git"
	invalidRootErrorTemplateConstant    = "invalid traversal root %q: %v"
	rootNotDirectoryMessageConstant     = "not a directory"
	directoryAccessErrorTemplate        = "cannot access directory %q: %v"
)

// RepositoryVisitor receives repository roots as traversal discovers them.
// Returning a non-nil error stops the walk and propagates to the caller.
type RepositoryVisitor func(repositoryPath string) error

// AccessWarningObserver receives non-fatal access failures for directories
// the walk skipped.
type AccessWarningObserver func(accessError DirectoryAccessError)

// WalkerConfiguration adjusts repository classification and warning delivery.
type WalkerConfiguration struct {
	// MarkerName names the metadata subdirectory that classifies a directory
	// as a repository root. Defaults to ".git".
	MarkerName string
	// WarningObserver receives access failures for skipped directories.
	WarningObserver AccessWarningObserver
}

// InvalidRootError reports a traversal root that is missing or not a directory.
type InvalidRootError struct {
	Root  string
	Cause error
}

// Error describes the rejected root and its cause.
func (invalidRoot InvalidRootError) Error() string {
	return fmt.Sprintf(invalidRootErrorTemplateConstant, invalidRoot.Root, invalidRoot.Cause)
}

// Unwrap exposes the underlying cause for errors.Is inspection.
func (invalidRoot InvalidRootError) Unwrap() error {
	return invalidRoot.Cause
}

// DirectoryAccessError describes a directory skipped because it could not be
// listed or classified.
type DirectoryAccessError struct {
	Path  string
	Cause error
}

// Error describes the skipped directory and its cause.
func (accessError DirectoryAccessError) Error() string {
	return fmt.Sprintf(directoryAccessErrorTemplate, accessError.Path, accessError.Cause)
}

// Unwrap exposes the underlying cause for errors.Is inspection.
func (accessError DirectoryAccessError) Unwrap() error {
	return accessError.Cause
}

// FilesystemRepositoryWalker locates repository roots on disk.
//
// The walk is depth-first pre-order with sibling directories visited in
// lexicographic name order. A directory containing the marker subdirectory is
// reported and never descended into, symbolic links to directories are never
// followed, and unreadable directories are skipped after notifying the
// warning observer.
type FilesystemRepositoryWalker struct {
	markerName      string
	warningObserver AccessWarningObserver
}

// NewFilesystemRepositoryWalker constructs a walker using the default marker name.
func NewFilesystemRepositoryWalker() *FilesystemRepositoryWalker {
	return NewFilesystemRepositoryWalkerWithConfiguration(WalkerConfiguration{})
}

// NewFilesystemRepositoryWalkerWithConfiguration constructs a walker honoring the provided configuration.
func NewFilesystemRepositoryWalkerWithConfiguration(configuration WalkerConfiguration) *FilesystemRepositoryWalker {
	markerName := configuration.MarkerName
	if len(markerName) == 0 {
		markerName = repositoryMarkerDefaultNameConstant
	}

	warningObserver := configuration.WarningObserver
	if warningObserver == nil {
		warningObserver = func(DirectoryAccessError) {}
	}

	return &FilesystemRepositoryWalker{
		markerName:      markerName,
		warningObserver: warningObserver,
	}
}

// WalkRepositories traverses rootPath and invokes the visitor once per
// repository root, in discovery order, before the walk continues.
//
// Traversal maintains an explicit stack of pending directories, so arbitrarily
// deep trees walk without recursive calls. The walk stops when the context is
// cancelled or the visitor returns an error.
func (walker *FilesystemRepositoryWalker) WalkRepositories(executionContext context.Context, rootPath string, visitor RepositoryVisitor) error {
	if validationError := walker.ValidateRoot(rootPath); validationError != nil {
		return validationError
	}

	pendingDirectories := []string{rootPath}
	for len(pendingDirectories) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		lastIndex := len(pendingDirectories) - 1
		currentDirectory := pendingDirectories[lastIndex]
		pendingDirectories = pendingDirectories[:lastIndex]

		repositoryDetected, classificationError := walker.isRepositoryRoot(currentDirectory)
		if classificationError != nil {
			walker.warningObserver(DirectoryAccessError{Path: currentDirectory, Cause: classificationError})
			continue
		}

		if repositoryDetected {
			if visitError := visitor(currentDirectory); visitError != nil {
				return visitError
			}
			continue
		}

		directoryEntries, readError := os.ReadDir(currentDirectory)
		if readError != nil {
			walker.warningObserver(DirectoryAccessError{Path: currentDirectory, Cause: readError})
			continue
		}

		// os.ReadDir returns entries sorted by name; pushing in reverse makes
		// the stack pop siblings lexicographically. Symbolic links to
		// directories report IsDir false and stay untraversed.
		for entryIndex := len(directoryEntries) - 1; entryIndex >= 0; entryIndex-- {
			directoryEntry := directoryEntries[entryIndex]
			if !directoryEntry.IsDir() {
				continue
			}
			pendingDirectories = append(pendingDirectories, filepath.Join(currentDirectory, directoryEntry.Name()))
		}
	}

	return nil
}

// DiscoverRepositories walks the provided roots in order and materializes the
// discovered repository paths, preserving walk order.
func (walker *FilesystemRepositoryWalker) DiscoverRepositories(executionContext context.Context, rootPaths []string) ([]string, error) {
	var repositories []string
	for _, rootPath := range rootPaths {
		walkError := walker.WalkRepositories(executionContext, rootPath, func(repositoryPath string) error {
			repositories = append(repositories, repositoryPath)
			return nil
		})
		if walkError != nil {
			return nil, walkError
		}
	}
	return repositories, nil
}

// ValidateRoot confirms the path exists and is a directory, returning
// InvalidRootError otherwise.
func (walker *FilesystemRepositoryWalker) ValidateRoot(rootPath string) error {
	rootInformation, statError := os.Stat(rootPath)
	if statError != nil {
		return InvalidRootError{Root: rootPath, Cause: statError}
	}
	if !rootInformation.IsDir() {
		return InvalidRootError{Root: rootPath, Cause: errors.New(rootNotDirectoryMessageConstant)}
	}
	return nil
}

func (walker *FilesystemRepositoryWalker) isRepositoryRoot(candidateDirectory string) (bool, error) {
	markerPath := filepath.Join(candidateDirectory, walker.markerName)
	markerInformation, statError := os.Stat(markerPath)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return false, nil
		}
		return false, statError
	}
	return markerInformation.IsDir(), nil
}
