package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/githubapi"
)

const (
	actionsCommandUseConstant              = "actions"
	actionsCommandShortDescriptionConstant = "Manage SHA-pinned GitHub Actions references"
	actionsCommandLongDescriptionConstant  = "actions reconciles SHA-pinned uses lines in workflow files with the tags their commits resolve to."
	showCommandUseConstant                 = "show"
	showCommandShortDescriptionConstant    = "Report pinned actions and their tag status"
	syncCommandUseConstant                 = "sync-comments"
	syncCommandShortDescriptionConstant    = "Rewrite inline version comments to match resolved tags"
	upgradeCommandUseConstant              = "upgrade [action] [version]"
	upgradeCommandShortDescriptionConstant = "Upgrade pinned SHAs to newer tags"

	workflowsFlagNameConstant        = "workflows-dir"
	workflowsFlagDescriptionConstant = "Directory containing workflow YAML files"
	offlineFlagNameConstant          = "offline"
	offlineFlagDescriptionConstant   = "Skip GitHub API calls and report scan results only"
	jsonFlagNameConstant             = "json"
	jsonFlagDescriptionConstant      = "Emit the report as JSON"
	dryRunFlagNameConstant           = "dry-run"
	dryRunFlagDescriptionConstant    = "Preview upgrades without writing files"

	unexpectedArgumentsErrorMessageConstant = "actions upgrade accepts at most an action slug and a version"
	syncSummaryTemplateConstant             = "updated %d line(s)\n"
	upgradeSummaryTemplateConstant          = "upgraded %d line(s)\n"
	upgradeDryRunSummaryTemplateConstant    = "would upgrade %d line(s)\n"
	maximumUpgradeArgumentCountConstant     = 2
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current actions configuration.
type ConfigurationProvider func() Configuration

// ServiceResolver creates the actions service for a command invocation.
type ServiceResolver func(logger *zap.Logger, configuration Configuration) *Service

// CommandBuilder assembles the actions command hierarchy.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ServiceResolver       ServiceResolver
}

// Build constructs the actions command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	actionsCommand := &cobra.Command{
		Use:   actionsCommandUseConstant,
		Short: actionsCommandShortDescriptionConstant,
		Long:  actionsCommandLongDescriptionConstant,
	}
	actionsCommand.PersistentFlags().String(workflowsFlagNameConstant, "", workflowsFlagDescriptionConstant)

	showCommand := &cobra.Command{
		Use:   showCommandUseConstant,
		Short: showCommandShortDescriptionConstant,
		RunE:  builder.runShow,
	}
	showCommand.Flags().Bool(offlineFlagNameConstant, false, offlineFlagDescriptionConstant)
	showCommand.Flags().Bool(jsonFlagNameConstant, false, jsonFlagDescriptionConstant)

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

	actionsCommand.AddCommand(showCommand, syncCommand, upgradeCommand)
	return actionsCommand, nil
}

func (builder *CommandBuilder) runShow(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	workflowsDirectory, directoryError := builder.resolveWorkflowsDirectory(command, configuration)
	if directoryError != nil {
		return directoryError
	}
	offlineValue, offlineError := command.Flags().GetBool(offlineFlagNameConstant)
	if offlineError != nil {
		return offlineError
	}
	jsonValue, jsonError := command.Flags().GetBool(jsonFlagNameConstant)
	if jsonError != nil {
		return jsonError
	}

	logger := builder.resolveLogger()
	service := builder.resolveService(logger, configuration)
	return service.Show(command.Context(), ShowOptions{
		WorkflowsDirectory: workflowsDirectory,
		Offline:            offlineValue,
		JSONOutput:         jsonValue,
		OutputWriter:       command.OutOrStdout(),
	})
}

func (builder *CommandBuilder) runSyncComments(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	workflowsDirectory, directoryError := builder.resolveWorkflowsDirectory(command, configuration)
	if directoryError != nil {
		return directoryError
	}

	logger := builder.resolveLogger()
	service := builder.resolveService(logger, configuration)
	updatedCount, syncError := service.SyncComments(command.Context(), SyncOptions{WorkflowsDirectory: workflowsDirectory})
	if syncError != nil {
		return syncError
	}
	fmt.Fprintf(command.OutOrStdout(), syncSummaryTemplateConstant, updatedCount)
	return nil
}

func (builder *CommandBuilder) runUpgrade(command *cobra.Command, arguments []string) error {
	if len(arguments) > maximumUpgradeArgumentCountConstant {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}
	configuration := builder.resolveConfiguration()
	workflowsDirectory, directoryError := builder.resolveWorkflowsDirectory(command, configuration)
	if directoryError != nil {
		return directoryError
	}
	dryRunValue, dryRunError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}

	upgradeOptions := UpgradeOptions{
		WorkflowsDirectory: workflowsDirectory,
		DryRun:             dryRunValue,
		OutputWriter:       command.OutOrStdout(),
	}
	if len(arguments) > 0 {
		upgradeOptions.ActionSlug = strings.TrimSpace(arguments[0])
	}
	if len(arguments) > 1 {
		upgradeOptions.TargetVersion = strings.TrimSpace(arguments[1])
	}

	logger := builder.resolveLogger()
	service := builder.resolveService(logger, configuration)
	upgradedCount, upgradeError := service.Upgrade(command.Context(), upgradeOptions)
	if upgradeError != nil {
		return upgradeError
	}
	summaryTemplate := upgradeSummaryTemplateConstant
	if dryRunValue {
		summaryTemplate = upgradeDryRunSummaryTemplateConstant
	}
	fmt.Fprintf(command.OutOrStdout(), summaryTemplate, upgradedCount)
	return nil
}

func (builder *CommandBuilder) resolveWorkflowsDirectory(command *cobra.Command, configuration Configuration) (string, error) {
	flagValue, flagError := command.Flags().GetString(workflowsFlagNameConstant)
	if flagError != nil {
		return "", flagError
	}
	trimmedFlagValue := strings.TrimSpace(flagValue)
	if len(trimmedFlagValue) > 0 {
		return trimmedFlagValue, nil
	}
	return configuration.WorkflowsDirectory, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.Sanitize()
}

func (builder *CommandBuilder) resolveService(logger *zap.Logger, configuration Configuration) *Service {
	if builder.ServiceResolver != nil {
		return builder.ServiceResolver(logger, configuration)
	}
	responseCache := githubapi.NewResponseCache(configuration.CacheDirectory, configuration.CacheTimeToLive())
	apiClient := githubapi.NewClient(logger, githubapi.ClientOptions{ResponseCache: responseCache})
	return NewService(logger, apiClient)
}
