package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	cleanCommandUseConstant                = "clean"
	cleanCommandShortDescriptionConstant   = "Remove build artifacts, caches, and byte-compiled files"
	customizeCommandUseConstant            = "customize"
	customizeCommandShortDescription       = "Personalize a freshly cloned project template"
	cleanDryRunFlagNameConstant            = "dry-run"
	cleanDryRunFlagDescriptionConstant     = "Print what would be removed without deleting anything"
	includeVenvFlagNameConstant            = "include-venv"
	includeVenvFlagDescriptionConstant     = "Also remove .venv virtual environment directories"
	projectNameFlagNameConstant            = "name"
	projectNameFlagDescriptionConstant     = "New project name (lowercase-hyphenated)"
	packageNameFlagNameConstant            = "package"
	packageNameFlagDescriptionConstant     = "New package name; defaults to the project name with underscores"
	authorFlagNameConstant                 = "author"
	authorFlagDescriptionConstant          = "Author name for project metadata"
	githubUserFlagNameConstant             = "github"
	githubUserFlagDescriptionConstant      = "GitHub user or organization owning the repository"
	descriptionFlagNameConstant            = "description"
	descriptionFlagDescriptionConstant     = "One-line project description"
	customizeDryRunFlagDescriptionConstant = "Print the replacement plan without changing any file"
	cleanedItemsLogMessageConstant         = "workspace cleaned"
	logFieldRemovedItemsConstant           = "removed_items"
	venvConfirmationPromptConstant         = "This will delete .venv* directories. Continue? [y/N] "
	venvConfirmationAnswerConstant         = "y"
	cleanAbortedErrorMessageConstant       = "aborted; no files were removed"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the workspace-level commands.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
}

// BuildCleanCommand constructs the clean command.
func (builder *CommandBuilder) BuildCleanCommand() (*cobra.Command, error) {
	cleanCommand := &cobra.Command{
		Use:   cleanCommandUseConstant,
		Short: cleanCommandShortDescriptionConstant,
		RunE:  builder.runClean,
	}
	cleanCommand.Flags().Bool(cleanDryRunFlagNameConstant, false, cleanDryRunFlagDescriptionConstant)
	cleanCommand.Flags().Bool(includeVenvFlagNameConstant, false, includeVenvFlagDescriptionConstant)
	return cleanCommand, nil
}

// BuildCustomizeCommand constructs the customize command.
func (builder *CommandBuilder) BuildCustomizeCommand() (*cobra.Command, error) {
	customizeCommand := &cobra.Command{
		Use:   customizeCommandUseConstant,
		Short: customizeCommandShortDescription,
		RunE:  builder.runCustomize,
	}
	customizeCommand.Flags().String(projectNameFlagNameConstant, "", projectNameFlagDescriptionConstant)
	customizeCommand.Flags().String(packageNameFlagNameConstant, "", packageNameFlagDescriptionConstant)
	customizeCommand.Flags().String(authorFlagNameConstant, "", authorFlagDescriptionConstant)
	customizeCommand.Flags().String(githubUserFlagNameConstant, "", githubUserFlagDescriptionConstant)
	customizeCommand.Flags().String(descriptionFlagNameConstant, "", descriptionFlagDescriptionConstant)
	customizeCommand.Flags().Bool(cleanDryRunFlagNameConstant, false, customizeDryRunFlagDescriptionConstant)
	if markError := customizeCommand.MarkFlagRequired(projectNameFlagNameConstant); markError != nil {
		return nil, markError
	}
	if markError := customizeCommand.MarkFlagRequired(githubUserFlagNameConstant); markError != nil {
		return nil, markError
	}
	return customizeCommand, nil
}

func (builder *CommandBuilder) runClean(command *cobra.Command, arguments []string) error {
	dryRun, dryRunError := command.Flags().GetBool(cleanDryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}
	includeVenv, includeVenvError := command.Flags().GetBool(includeVenvFlagNameConstant)
	if includeVenvError != nil {
		return includeVenvError
	}

	if includeVenv && !dryRun {
		if !confirmVirtualenvRemoval(command.InOrStdin(), command.OutOrStdout()) {
			command.SilenceUsage = true
			return errors.New(cleanAbortedErrorMessageConstant)
		}
	}

	workingDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		workingDirectory = "."
	}

	removedCount, cleanError := NewCleaner().Clean(CleanOptions{
		RootDirectory: workingDirectory,
		DryRun:        dryRun,
		IncludeVenv:   includeVenv,
		OutputWriter:  command.OutOrStdout(),
	})
	if cleanError != nil {
		return cleanError
	}
	builder.resolveLogger().Debug(cleanedItemsLogMessageConstant, zap.Int(logFieldRemovedItemsConstant, removedCount))
	return nil
}

func (builder *CommandBuilder) runCustomize(command *cobra.Command, arguments []string) error {
	projectName, projectNameError := command.Flags().GetString(projectNameFlagNameConstant)
	if projectNameError != nil {
		return projectNameError
	}
	packageName, packageNameError := command.Flags().GetString(packageNameFlagNameConstant)
	if packageNameError != nil {
		return packageNameError
	}
	authorName, authorError := command.Flags().GetString(authorFlagNameConstant)
	if authorError != nil {
		return authorError
	}
	githubUser, githubUserError := command.Flags().GetString(githubUserFlagNameConstant)
	if githubUserError != nil {
		return githubUserError
	}
	projectDescription, descriptionError := command.Flags().GetString(descriptionFlagNameConstant)
	if descriptionError != nil {
		return descriptionError
	}
	dryRun, dryRunError := command.Flags().GetBool(cleanDryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}

	workingDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		workingDirectory = "."
	}

	return NewCustomizer().Customize(CustomizeOptions{
		RootDirectory: workingDirectory,
		ProjectName:   projectName,
		PackageName:   packageName,
		Author:        authorName,
		GitHubUser:    githubUser,
		Description:   projectDescription,
		DryRun:        dryRun,
		OutputWriter:  command.OutOrStdout(),
	})
}

// confirmVirtualenvRemoval prompts before virtualenv directories are deleted
// and accepts only an explicit yes.
func confirmVirtualenvRemoval(inputReader io.Reader, outputWriter io.Writer) bool {
	fmt.Fprint(outputWriter, venvConfirmationPromptConstant)
	responseLine, _ := bufio.NewReader(inputReader).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(responseLine), venvConfirmationAnswerConstant)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if providedLogger := builder.LoggerProvider(); providedLogger != nil {
			return providedLogger
		}
	}
	return zap.NewNop()
}
