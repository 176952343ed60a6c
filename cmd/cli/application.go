package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/actions"
	"github.com/temirov/tend/internal/bootstrap"
	"github.com/temirov/tend/internal/changelog"
	"github.com/temirov/tend/internal/deps"
	"github.com/temirov/tend/internal/doclinks"
	"github.com/temirov/tend/internal/doctor"
	"github.com/temirov/tend/internal/execshell"
	"github.com/temirov/tend/internal/labels"
	"github.com/temirov/tend/internal/todos"
	"github.com/temirov/tend/internal/ui"
	"github.com/temirov/tend/internal/utils"
	"github.com/temirov/tend/internal/workspace"
)

const (
	applicationNameConstant                 = "tend"
	applicationShortDescriptionConstant     = "Maintenance toolkit for Python project templates"
	applicationLongDescriptionConstant      = "tend keeps a project template healthy: pinned workflow actions, documentation links, dependency comments, changelog drift, and the working tree."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "TEND"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	rootCommandInfoMessageConstant          = "tend CLI executed"
	rootCommandDebugMessageConstant         = "tend CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	defaultConfigurationSearchPathConstant  = "."
	toolsConfigurationKeyConstant           = "tools"
	actionsConfigurationKeyConstant         = toolsConfigurationKeyConstant + ".actions"
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

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool family.
type ApplicationToolsConfiguration struct {
	Actions actions.Configuration `mapstructure:"actions"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	executorProvider := func(logger *zap.Logger) (*execshell.ShellExecutor, error) {
		var eventObserver execshell.CommandEventObserver
		if application.humanReadableLoggingEnabled() {
			eventObserver = ui.NewConsoleCommandEventLogger(logger)
		}
		return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), eventObserver)
	}

	actionsBuilder := actions.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() actions.Configuration {
			return application.configuration.Tools.Actions
		},
	}
	actionsCommand, actionsBuildError := actionsBuilder.Build()
	if actionsBuildError == nil {
		cobraCommand.AddCommand(actionsCommand)
	}

	doclinksBuilder := doclinks.CommandBuilder{LoggerProvider: loggerProvider}
	docsCommand, docsBuildError := doclinksBuilder.Build()
	if docsBuildError == nil {
		cobraCommand.AddCommand(docsCommand)
	}

	doctorBuilder := doctor.CommandBuilder{LoggerProvider: loggerProvider, ExecutorProvider: executorProvider}
	doctorCommand, doctorBuildError := doctorBuilder.Build()
	if doctorBuildError == nil {
		cobraCommand.AddCommand(doctorCommand)
	}

	changelogBuilder := changelog.CommandBuilder{LoggerProvider: loggerProvider, ExecutorProvider: executorProvider}
	changelogCommand, changelogBuildError := changelogBuilder.Build()
	if changelogBuildError == nil {
		cobraCommand.AddCommand(changelogCommand)
	}

	todosBuilder := todos.CommandBuilder{LoggerProvider: loggerProvider}
	todoCommand, todoBuildError := todosBuilder.Build()
	if todoBuildError == nil {
		cobraCommand.AddCommand(todoCommand)
	}

	depsBuilder := deps.CommandBuilder{LoggerProvider: loggerProvider, ExecutorProvider: executorProvider}
	depsCommand, depsBuildError := depsBuilder.Build()
	if depsBuildError == nil {
		cobraCommand.AddCommand(depsCommand)
	}

	labelsBuilder := labels.CommandBuilder{LoggerProvider: loggerProvider, ExecutorProvider: executorProvider}
	labelsCommand, labelsBuildError := labelsBuilder.Build()
	if labelsBuildError == nil {
		cobraCommand.AddCommand(labelsCommand)
	}

	bootstrapBuilder := bootstrap.CommandBuilder{LoggerProvider: loggerProvider, ExecutorProvider: executorProvider}
	bootstrapCommand, bootstrapBuildError := bootstrapBuilder.Build()
	if bootstrapBuildError == nil {
		cobraCommand.AddCommand(bootstrapCommand)
	}

	workspaceBuilder := workspace.CommandBuilder{LoggerProvider: loggerProvider}
	cleanCommand, cleanBuildError := workspaceBuilder.BuildCleanCommand()
	if cleanBuildError == nil {
		cobraCommand.AddCommand(cleanCommand)
	}
	customizeCommand, customizeBuildError := workspaceBuilder.BuildCustomizeCommand()
	if customizeBuildError == nil {
		cobraCommand.AddCommand(customizeCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// RootCommand exposes the assembled Cobra root command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range actions.DefaultConfigurationValues(actionsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	createdLogger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = createdLogger

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

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
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

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
