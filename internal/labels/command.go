package labels

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	labelsCommandUseConstant             = "labels"
	labelsCommandShortDescription        = "GitHub label management commands"
	labelsCommandLongDescription         = "labels reconciles a repository's labels with a declarative set."
	applyCommandUseConstant              = "apply"
	applyCommandShortDescriptionConstant = "Create or update repository labels from a label set"
	setFlagNameConstant                  = "set"
	setFlagDescriptionConstant           = "Label set name under the label sets directory"
	setsDirFlagNameConstant              = "sets-dir"
	setsDirFlagDescriptionConstant       = "Directory holding label set definitions"
	repoFlagNameConstant                 = "repo"
	repoFlagDescriptionConstant          = "Target repository as OWNER/REPO; defaults to the current repository"
	dryRunFlagNameConstant               = "dry-run"
	dryRunFlagDescriptionConstant        = "Print the plan without calling the GitHub API"
	defaultSetNameConstant               = "default"
	defaultSetsDirConstant               = "labels"
	applySummaryTemplateConstant         = "labels applied: %d created, %d updated, %d failed\n"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ExecutorProvider creates a shell executor for command runs.
type ExecutorProvider func(logger *zap.Logger) (*execshell.ShellExecutor, error)

// CommandBuilder assembles the labels command hierarchy.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ExecutorProvider ExecutorProvider
}

// Build constructs the labels command with the apply subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	labelsCommand := &cobra.Command{
		Use:   labelsCommandUseConstant,
		Short: labelsCommandShortDescription,
		Long:  labelsCommandLongDescription,
	}

	applyCommand := &cobra.Command{
		Use:   applyCommandUseConstant,
		Short: applyCommandShortDescriptionConstant,
		RunE:  builder.runApply,
	}
	applyCommand.Flags().String(setFlagNameConstant, defaultSetNameConstant, setFlagDescriptionConstant)
	applyCommand.Flags().String(setsDirFlagNameConstant, defaultSetsDirConstant, setsDirFlagDescriptionConstant)
	applyCommand.Flags().String(repoFlagNameConstant, "", repoFlagDescriptionConstant)
	applyCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	labelsCommand.AddCommand(applyCommand)
	return labelsCommand, nil
}

func (builder *CommandBuilder) runApply(command *cobra.Command, arguments []string) error {
	setName, setError := command.Flags().GetString(setFlagNameConstant)
	if setError != nil {
		return setError
	}
	setsDirectory, setsDirError := command.Flags().GetString(setsDirFlagNameConstant)
	if setsDirError != nil {
		return setsDirError
	}
	targetRepository, repoError := command.Flags().GetString(repoFlagNameConstant)
	if repoError != nil {
		return repoError
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

	applySummary, applyError := NewService(logger, shellExecutor).Apply(command.Context(), ApplyOptions{
		SetName:      setName,
		SetsDir:      setsDirectory,
		Repository:   targetRepository,
		DryRun:       dryRun,
		OutputWriter: command.OutOrStdout(),
	})
	if applyError != nil {
		return applyError
	}

	if !dryRun {
		fmt.Fprintf(command.OutOrStdout(), applySummaryTemplateConstant, applySummary.Created, applySummary.Updated, applySummary.Failed)
	}
	return nil
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
