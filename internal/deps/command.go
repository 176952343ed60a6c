package deps

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	depsCommandUseConstant                 = "deps"
	depsCommandShortDescriptionConstant    = "Manage declared Python dependency versions"
	depsCommandLongDescriptionConstant     = "deps reports installed and latest versions for pyproject.toml dependencies and keeps inline version comments current."
	showCommandUseConstant                 = "show"
	showCommandShortDescriptionConstant    = "Report declared, installed, and latest versions"
	syncCommandUseConstant                 = "sync-comments"
	syncCommandShortDescriptionConstant    = "Refresh inline version comments on dependency lines"
	upgradeCommandUseConstant              = "upgrade <package> [version]"
	upgradeCommandShortDescriptionConstant = "Upgrade a declared package via pip"

	offlineFlagNameConstant        = "offline"
	offlineFlagDescriptionConstant = "Skip package index queries"
	dryRunFlagNameConstant         = "dry-run"
	dryRunFlagDescriptionConstant  = "Preview the upgrade without running pip"

	upgradeArgumentsErrorMessageConstant = "deps upgrade requires a package name and accepts an optional version"
	syncSummaryTemplateConstant          = "updated %d line(s)\n"
	maximumUpgradeArgumentCountConstant  = 2
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ExecutorProvider creates a shell executor for command runs.
type ExecutorProvider func(logger *zap.Logger) (*execshell.ShellExecutor, error)

// CommandBuilder assembles the deps command hierarchy.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ExecutorProvider ExecutorProvider
}

// Build constructs the deps command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	depsCommand := &cobra.Command{
		Use:   depsCommandUseConstant,
		Short: depsCommandShortDescriptionConstant,
		Long:  depsCommandLongDescriptionConstant,
	}

	showCommand := &cobra.Command{
		Use:   showCommandUseConstant,
		Short: showCommandShortDescriptionConstant,
		RunE:  builder.runShow,
	}
	showCommand.Flags().Bool(offlineFlagNameConstant, false, offlineFlagDescriptionConstant)

	syncCommand := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		RunE:  builder.runSyncComments,
	}

	upgradeCommand := &cobra.Command{
		Use:   upgradeCommandUseConstant,
		Short: upgradeCommandShortDescriptionConstant,
		RunE:  builder.runUpgrade,
	}
	upgradeCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	depsCommand.AddCommand(showCommand, syncCommand, upgradeCommand)
	return depsCommand, nil
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	offlineMode, offlineError := command.Flags().GetBool(offlineFlagNameConstant)
	if offlineError != nil {
		return offlineError
	}
	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}
	return service.Show(command.Context(), ShowOptions{Offline: offlineMode, OutputWriter: command.OutOrStdout()})
}

func (builder *CommandBuilder) runSyncComments(command *cobra.Command, arguments []string) error {
	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}
	updatedCount, syncError := service.SyncComments(command.Context())
	if syncError != nil {
		return syncError
	}
	fmt.Fprintf(command.OutOrStdout(), syncSummaryTemplateConstant, updatedCount)
	return nil
}

func (builder *CommandBuilder) runUpgrade(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 || len(arguments) > maximumUpgradeArgumentCountConstant {
		return errors.New(upgradeArgumentsErrorMessageConstant)
	}
	dryRunMode, dryRunError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}

	upgradeOptions := UpgradeOptions{
		PackageName:  strings.TrimSpace(arguments[0]),
		DryRun:       dryRunMode,
		OutputWriter: command.OutOrStdout(),
	}
	if len(arguments) > 1 {
		upgradeOptions.PinnedVersion = strings.TrimSpace(arguments[1])
	}

	service, serviceError := builder.resolveService()
	if serviceError != nil {
		return serviceError
	}
	return service.Upgrade(command.Context(), upgradeOptions)
}

func (builder *CommandBuilder) resolveService() (*Service, error) {
	logger := zap.NewNop()
	if builder.LoggerProvider != nil && builder.LoggerProvider() != nil {
		logger = builder.LoggerProvider()
	}

	var shellExecutor *execshell.ShellExecutor
	var executorError error
	if builder.ExecutorProvider != nil {
		shellExecutor, executorError = builder.ExecutorProvider(logger)
	} else {
		shellExecutor, executorError = execshell.NewShellExecutor(logger, &execshell.OSCommandRunner{}, nil)
	}
	if executorError != nil {
		return nil, executorError
	}

	projectRoot, directoryError := os.Getwd()
	if directoryError != nil {
		projectRoot = "."
	}
	return NewService(logger, NewPipGateway(shellExecutor, projectRoot), projectRoot), nil
}
