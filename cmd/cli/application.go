package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/grpr/internal/execshell"
	"github.com/temirov/grpr/internal/run"
	"github.com/temirov/grpr/internal/ui"
	"github.com/temirov/grpr/internal/utils"
	pathutils "github.com/temirov/grpr/internal/utils/path"
)

const (
	applicationUsageConstant            = "grpr [tool arguments...]"
	applicationShortDescriptionConstant = "Run a tool in every repository beneath the configured roots"
	applicationLongDescriptionConstant  = "grpr walks directory trees from the configured roots, treats every directory " +
		"that directly contains the repository marker as a repository, and runs the configured tool with the provided " +
		"arguments inside each repository. Arguments are passed through verbatim; flags after the first position belong " +
		"to the tool, never to grpr."
	commonConfigurationKeyConstant                 = "common"
	commonLogLevelConfigKeyConstant                = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant               = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant                      = "GRPR"
	configurationNameConstant                      = "config"
	configurationTypeConstant                      = "yaml"
	configurationFileEnvironmentNameConstant       = "GRPR_CONFIG"
	configurationSearchPathEnvironmentNameConstant = "GRPR_CONFIG_SEARCH_PATH"
	defaultConfigurationSearchPathConstant         = "."
	toolsConfigurationKeyConstant                  = "tools"
	runConfigurationKeyConstant                    = toolsConfigurationKeyConstant + ".run"
	configurationInitializedMessageConstant        = "configuration initialized"
	configurationLogLevelFieldConstant             = "log_level"
	configurationLogFormatFieldConstant            = "log_format"
	configurationFileFieldConstant                 = "config_file"
	configurationLoadErrorTemplateConstant         = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant            = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant                = "unable to flush logger: %w"
	runStartingMessageConstant                     = "repository run starting"
	runDiagnosticsMessageConstant                  = "repository run diagnostics"
	logFieldToolNameConstant                       = "tool"
	logFieldArgumentCountConstant                  = "argument_count"
	logFieldArgumentsConstant                      = "arguments"
	logFieldRootsConstant                          = "roots"
	loggerNotInitializedMessageConstant            = "logger not initialized"
	helpShortFlagConstant                          = "-h"
	helpLongFlagConstant                           = "--help"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds configuration for grpr tools.
type ApplicationToolsConfiguration struct {
	Run run.CommandConfiguration `mapstructure:"run"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
//
// The root command disables Cobra flag parsing: every argument after the
// program name belongs to the tool grpr runs, so nothing may be consumed,
// reordered, or rejected on the way through. grpr itself is configured through
// configuration files and GRPR_-prefixed environment variables instead of
// command-line flags.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	commandContextAccessor utils.CommandContextAccessor
	pathSanitizer          *pathutils.RepositoryPathSanitizer
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		resolveConfigurationSearchPaths(),
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		pathSanitizer: pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{
			PruneNestedPaths: true,
		}),
	}

	cobraCommand := &cobra.Command{
		Use:                applicationUsageConstant,
		Short:              applicationShortDescriptionConstant,
		Long:               applicationLongDescriptionConstant,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command with interrupt-aware context and ensures logger flushing.
func (application *Application) Execute() error {
	executionContext, stopSignalNotifications := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalNotifications()
	application.rootCommand.SetContext(executionContext)

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func resolveConfigurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	additionalSearchPath := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentNameConstant))
	if len(additionalSearchPath) > 0 {
		searchPaths = append([]string{additionalSearchPath}, searchPaths...)
	}
	return searchPaths
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range run.DefaultConfigurationValues(runConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	configurationFilePath := strings.TrimSpace(os.Getenv(configurationFileEnvironmentNameConstant))

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

// runRootCommand executes a repository run with the raw argument vector. Only
// a help request in the first position is interpreted; everything else goes to
// the tool untouched.
func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	if len(arguments) > 0 && (arguments[0] == helpShortFlagConstant || arguments[0] == helpLongFlagConstant) {
		return command.Help()
	}

	runConfiguration := application.configuration.Tools.Run.Sanitize(application.pathSanitizer)

	toolArguments := arguments
	if len(toolArguments) == 0 {
		toolArguments = runConfiguration.DefaultArguments
	}

	application.logger.Info(
		runStartingMessageConstant,
		zap.String(logFieldToolNameConstant, runConfiguration.Tool),
		zap.Int(logFieldArgumentCountConstant, len(toolArguments)),
	)

	configurationFilePath, _ := application.commandContextAccessor.ConfigurationFilePath(command.Context())
	application.logger.Debug(
		runDiagnosticsMessageConstant,
		zap.Strings(logFieldArgumentsConstant, toolArguments),
		zap.Strings(logFieldRootsConstant, runConfiguration.Roots),
		zap.String(configurationFileFieldConstant, configurationFilePath),
	)

	var commandEventObserver execshell.CommandEventObserver
	if application.humanReadableLoggingEnabled() {
		commandEventObserver = ui.NewConsoleCommandEventLogger(application.logger)
	}

	toolInvoker, invokerError := run.ResolveToolInvoker(nil, application.logger, commandEventObserver, command.OutOrStdout(), command.ErrOrStderr())
	if invokerError != nil {
		return invokerError
	}

	runService, serviceError := run.NewService(run.Dependencies{
		Logger:      application.logger,
		ToolInvoker: toolInvoker,
		Output:      utils.NewFlushingWriter(command.OutOrStdout()),
		Errors:      utils.NewFlushingWriter(command.ErrOrStderr()),
	})
	if serviceError != nil {
		return serviceError
	}

	return runService.Run(command.Context(), run.Options{
		Roots:      runConfiguration.Roots,
		ToolName:   runConfiguration.Tool,
		Arguments:  toolArguments,
		MarkerName: runConfiguration.Marker,
	})
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}
