package changelog

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	changelogCommandUseConstant          = "changelog"
	changelogCommandShortDescription     = "Changelog maintenance commands"
	changelogCommandLongDescription      = "changelog compares version headings against git tags."
	checkCommandUseConstant              = "check"
	checkCommandShortDescriptionConstant = "Detect drift between changelog headings and git tags"
	changelogFlagNameConstant            = "file"
	changelogFlagDescriptionConstant     = "Changelog file path"
	verboseFlagNameConstant              = "verbose"
	verboseFlagDescriptionConstant       = "Also list versions that are in sync"
	defaultChangelogPathConstant         = "CHANGELOG.md"
	notTaggedLineTemplateConstant        = "in changelog but not tagged: %s\n"
	notListedLineTemplateConstant        = "tagged but not in changelog: %s\n"
	duplicateLineTemplateConstant        = "duplicated in changelog: %s\n"
	inSyncLineTemplateConstant           = "in sync: %s\n"
	noDriftMessageConstant               = "changelog and tags are in sync"
	driftDetectedErrorMessageConstant    = "changelog and tags have drifted"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ExecutorProvider creates a shell executor for command runs.
type ExecutorProvider func(logger *zap.Logger) (*execshell.ShellExecutor, error)

// CommandBuilder assembles the changelog command hierarchy.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ExecutorProvider ExecutorProvider
}

// Build constructs the changelog command with the check subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	changelogCommand := &cobra.Command{
		Use:   changelogCommandUseConstant,
		Short: changelogCommandShortDescription,
		Long:  changelogCommandLongDescription,
	}

	checkCommand := &cobra.Command{
		Use:   checkCommandUseConstant,
		Short: checkCommandShortDescriptionConstant,
		RunE:  builder.runCheck,
	}
	checkCommand.Flags().String(changelogFlagNameConstant, defaultChangelogPathConstant, changelogFlagDescriptionConstant)
	checkCommand.Flags().Bool(verboseFlagNameConstant, false, verboseFlagDescriptionConstant)

	changelogCommand.AddCommand(checkCommand)
	return changelogCommand, nil
}

func (builder *CommandBuilder) runCheck(command *cobra.Command, arguments []string) error {
	changelogPath, fileError := command.Flags().GetString(changelogFlagNameConstant)
	if fileError != nil {
		return fileError
	}
	verboseOutput, verboseError := command.Flags().GetBool(verboseFlagNameConstant)
	if verboseError != nil {
		return verboseError
	}

	shellExecutor, executorError := builder.resolveExecutor()
	if executorError != nil {
		return executorError
	}

	workingDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		workingDirectory = "."
	}

	driftReport, checkError := NewChecker(shellExecutor).Check(command.Context(), changelogPath, workingDirectory)
	if checkError != nil {
		return checkError
	}

	for _, missingVersion := range driftReport.NotTagged {
		fmt.Fprintf(command.OutOrStdout(), notTaggedLineTemplateConstant, missingVersion)
	}
	for _, missingVersion := range driftReport.NotListed {
		fmt.Fprintf(command.OutOrStdout(), notListedLineTemplateConstant, missingVersion)
	}
	for _, duplicateVersion := range driftReport.Duplicates {
		fmt.Fprintf(command.OutOrStdout(), duplicateLineTemplateConstant, duplicateVersion)
	}
	if verboseOutput {
		for _, syncedVersion := range driftReport.InSync {
			fmt.Fprintf(command.OutOrStdout(), inSyncLineTemplateConstant, syncedVersion)
		}
	}

	if driftReport.HasDrift() {
		command.SilenceUsage = true
		return errors.New(driftDetectedErrorMessageConstant)
	}
	fmt.Fprintln(command.OutOrStdout(), noDriftMessageConstant)
	return nil
}

func (builder *CommandBuilder) resolveExecutor() (*execshell.ShellExecutor, error) {
	logger := zap.NewNop()
	if builder.LoggerProvider != nil && builder.LoggerProvider() != nil {
		logger = builder.LoggerProvider()
	}
	if builder.ExecutorProvider != nil {
		return builder.ExecutorProvider(logger)
	}
	return execshell.NewShellExecutor(logger, &execshell.OSCommandRunner{}, nil)
}
