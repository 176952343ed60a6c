package bootstrap

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	bootstrapCommandUseConstant      = "bootstrap"
	bootstrapCommandShortDescription = "Set up a fresh clone for development"
	bootstrapCommandLongDescription  = "bootstrap verifies the prerequisite tools, creates the virtualenv, installs the package in editable mode, and installs the pre-commit hooks."

	skipHooksFlagNameConstant        = "skip-hooks"
	skipHooksFlagDescriptionConstant = "Skip pre-commit hook installation"
	dryRunFlagNameConstant           = "dry-run"
	dryRunFlagDescriptionConstant    = "Show what would happen without making changes"

	workingDirectoryFallbackConstant = "."
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ExecutorProvider creates a shell executor for command runs.
type ExecutorProvider func(logger *zap.Logger) (*execshell.ShellExecutor, error)

// CommandBuilder assembles the bootstrap command.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ExecutorProvider ExecutorProvider
}

// Build constructs the bootstrap command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	bootstrapCommand := &cobra.Command{
		Use:   bootstrapCommandUseConstant,
		Short: bootstrapCommandShortDescription,
		Long:  bootstrapCommandLongDescription,
		RunE:  builder.runBootstrap,
	}
	bootstrapCommand.Flags().Bool(skipHooksFlagNameConstant, false, skipHooksFlagDescriptionConstant)
	bootstrapCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	return bootstrapCommand, nil
}

func (builder *CommandBuilder) runBootstrap(command *cobra.Command, arguments []string) error {
	skipHooks, skipHooksError := command.Flags().GetBool(skipHooksFlagNameConstant)
	if skipHooksError != nil {
		return skipHooksError
	}
	dryRun, dryRunError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}

	logger := builder.resolveLogger()
	shellExecutor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	workingDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		workingDirectory = workingDirectoryFallbackConstant
	}

	runError := NewService(logger, shellExecutor).Run(command.Context(), Options{
		RootDirectory: workingDirectory,
		SkipHooks:     skipHooks,
		DryRun:        dryRun,
		OutputWriter:  command.OutOrStdout(),
	})
	if runError != nil {
		command.SilenceUsage = true
	}
	return runError
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			return providedLogger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (*execshell.ShellExecutor, error) {
	if builder.ExecutorProvider != nil {
		return builder.ExecutorProvider(logger)
	}
	return execshell.NewShellExecutor(logger, &execshell.OSCommandRunner{}, nil)
}
