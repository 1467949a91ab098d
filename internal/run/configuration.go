package run

import (
	"fmt"
	"path/filepath"
	"strings"

	pathutils "github.com/temirov/grpr/internal/utils/path"
)

const (
	defaultToolNameConstant                  = "git"
	defaultMarkerNameConstant                = ".git"
	defaultRootPathConstant                  = "."
	defaultArgumentStatusConstant            = "status"
	currentDirectoryNameConstant             = "."
	parentDirectoryNameConstant              = ".."
	invalidMarkerMessageTemplate             = "invalid repository marker %q: marker must be a bare directory name"
	configurationKeySeparatorConstant        = "."
	configurationRootsKeyConstant            = "roots"
	configurationToolKeyConstant             = "tool"
	configurationMarkerKeyConstant           = "marker"
	configurationDefaultArgumentsKeyConstant = "default_arguments"
)

// CommandConfiguration captures run settings sourced from configuration files
// and environment variables.
type CommandConfiguration struct {
	Roots            []string `mapstructure:"roots"`
	Tool             string   `mapstructure:"tool"`
	Marker           string   `mapstructure:"marker"`
	DefaultArguments []string `mapstructure:"default_arguments"`
}

// DefaultConfiguration returns the built-in run settings.
func DefaultConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Roots:            []string{defaultRootPathConstant},
		Tool:             defaultToolNameConstant,
		Marker:           defaultMarkerNameConstant,
		DefaultArguments: []string{defaultArgumentStatusConstant},
	}
}

// DefaultConfigurationValues produces Viper defaults for the run command keyed
// beneath the provided configuration root.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRootsKeyConstant:            defaults.Roots,
		rootKey + configurationKeySeparatorConstant + configurationToolKeyConstant:             defaults.Tool,
		rootKey + configurationKeySeparatorConstant + configurationMarkerKeyConstant:           defaults.Marker,
		rootKey + configurationKeySeparatorConstant + configurationDefaultArgumentsKeyConstant: defaults.DefaultArguments,
	}
}

// Sanitize trims configured values and fills empty fields with defaults.
// Roots are tilde-expanded and nested roots collapse into their parents.
func (configuration CommandConfiguration) Sanitize(pathSanitizer *pathutils.RepositoryPathSanitizer) CommandConfiguration {
	sanitized := configuration

	sanitized.Tool = strings.TrimSpace(configuration.Tool)
	if len(sanitized.Tool) == 0 {
		sanitized.Tool = defaultToolNameConstant
	}

	sanitized.Marker = strings.TrimSpace(configuration.Marker)
	if len(sanitized.Marker) == 0 {
		sanitized.Marker = defaultMarkerNameConstant
	}

	sanitized.Roots = pathSanitizer.Sanitize(configuration.Roots)
	if len(sanitized.Roots) == 0 {
		sanitized.Roots = []string{defaultRootPathConstant}
	}

	if len(sanitized.DefaultArguments) == 0 {
		sanitized.DefaultArguments = []string{defaultArgumentStatusConstant}
	}

	return sanitized
}

// InvalidMarkerError reports a repository marker that cannot name a direct subdirectory.
type InvalidMarkerError struct {
	Marker string
}

// Error implements the error interface.
func (invalidMarker InvalidMarkerError) Error() string {
	return fmt.Sprintf(invalidMarkerMessageTemplate, invalidMarker.Marker)
}

func validateMarkerName(markerName string) error {
	if markerName != filepath.Base(markerName) {
		return InvalidMarkerError{Marker: markerName}
	}
	if markerName == currentDirectoryNameConstant || markerName == parentDirectoryNameConstant {
		return InvalidMarkerError{Marker: markerName}
	}
	return nil
}
