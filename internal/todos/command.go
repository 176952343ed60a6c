package todos

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	todoCommandUseConstant                 = "todo"
	todoCommandShortDescriptionConstant    = "Todo list maintenance commands"
	todoCommandLongDescriptionConstant     = "todo manages checklist files, archiving completed items and scanning for leftover template markers."
	archiveCommandUseConstant              = "archive"
	archiveCommandShortDescriptionConstant = "Move checked items into the archive file"
	checkCommandUseConstant                = "check"
	checkCommandShortDescriptionConstant   = "Scan the tree for unaddressed template-customization items"

	todoFileFlagNameConstant           = "todo-file"
	todoFileFlagDescriptionConstant    = "Todo checklist file"
	archiveFileFlagNameConstant        = "archive-file"
	archiveFileFlagDescriptionConstant = "Archive file receiving completed items"
	dryRunFlagNameConstant             = "dry-run"
	dryRunFlagDescriptionConstant      = "Count completed items without moving them"

	patternFlagNameConstant        = "pattern"
	patternFlagDescriptionConstant = "Text pattern to search for"
	countFlagNameConstant          = "count"
	countFlagDescriptionConstant   = "Only print the count of items found"
	jsonFlagNameConstant           = "json"
	jsonFlagDescriptionConstant    = "Emit the scan report as JSON"
	excludeFlagNameConstant        = "exclude"
	excludeFlagDescriptionConstant = "Additional path prefixes to exclude (repeatable)"

	defaultTodoPathConstant          = "TODO.md"
	defaultArchivePathConstant       = "TODO_ARCHIVE.md"
	archivedSummaryTemplate          = "archived %d item(s)\n"
	dryRunSummaryTemplateConstant    = "would archive %d item(s)\n"
	itemsRemainErrorMessageConstant  = "template customization items remain"
	workingDirectoryFallbackConstant = "."
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the todo command hierarchy.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
}

// Build constructs the todo command with the archive subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	todoCommand := &cobra.Command{
		Use:   todoCommandUseConstant,
		Short: todoCommandShortDescriptionConstant,
		Long:  todoCommandLongDescriptionConstant,
	}

	archiveCommand := &cobra.Command{
		Use:   archiveCommandUseConstant,
		Short: archiveCommandShortDescriptionConstant,
		RunE:  builder.runArchive,
	}
	archiveCommand.Flags().String(todoFileFlagNameConstant, defaultTodoPathConstant, todoFileFlagDescriptionConstant)
	archiveCommand.Flags().String(archiveFileFlagNameConstant, defaultArchivePathConstant, archiveFileFlagDescriptionConstant)
	archiveCommand.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	checkCommand := &cobra.Command{
		Use:   checkCommandUseConstant,
		Short: checkCommandShortDescriptionConstant,
		RunE:  builder.runCheck,
	}
	checkCommand.Flags().String(patternFlagNameConstant, DefaultCheckPattern, patternFlagDescriptionConstant)
	checkCommand.Flags().Bool(countFlagNameConstant, false, countFlagDescriptionConstant)
	checkCommand.Flags().Bool(jsonFlagNameConstant, false, jsonFlagDescriptionConstant)
	checkCommand.Flags().StringSlice(excludeFlagNameConstant, nil, excludeFlagDescriptionConstant)

	todoCommand.AddCommand(archiveCommand, checkCommand)
	return todoCommand, nil
}

func (builder *CommandBuilder) runCheck(command *cobra.Command, arguments []string) error {
	searchPattern, patternError := command.Flags().GetString(patternFlagNameConstant)
	if patternError != nil {
		return patternError
	}
	countOnly, countError := command.Flags().GetBool(countFlagNameConstant)
	if countError != nil {
		return countError
	}
	jsonOutput, jsonError := command.Flags().GetBool(jsonFlagNameConstant)
	if jsonError != nil {
		return jsonError
	}
	extraExcludes, excludeError := command.Flags().GetStringSlice(excludeFlagNameConstant)
	if excludeError != nil {
		return excludeError
	}

	workingDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		workingDirectory = workingDirectoryFallbackConstant
	}

	checkReport, checkError := NewChecker().Check(CheckOptions{
		RootDirectory: workingDirectory,
		Pattern:       searchPattern,
		ExtraExcludes: extraExcludes,
	})
	if checkError != nil {
		return checkError
	}

	if jsonOutput {
		encodedReport, encodeError := EncodeCheckReport(checkReport)
		if encodeError != nil {
			return encodeError
		}
		fmt.Fprintln(command.OutOrStdout(), string(encodedReport))
	} else {
		fmt.Fprintln(command.OutOrStdout(), FormatCheckReport(checkReport, countOnly))
	}

	// A non-empty report exits non-zero so CI can gate on it.
	if checkReport.Total() > 0 {
		command.SilenceUsage = true
		return errors.New(itemsRemainErrorMessageConstant)
	}
	return nil
}

func (builder *CommandBuilder) runArchive(command *cobra.Command, arguments []string) error {
	todoPath, todoError := command.Flags().GetString(todoFileFlagNameConstant)
	if todoError != nil {
		return todoError
	}
	archivePath, archiveError := command.Flags().GetString(archiveFileFlagNameConstant)
	if archiveError != nil {
		return archiveError
	}
	dryRunValue, dryRunError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunError != nil {
		return dryRunError
	}

	archivedCount, archiveRunError := NewArchiver().Archive(ArchiveOptions{
		TodoPath:    todoPath,
		ArchivePath: archivePath,
		DryRun:      dryRunValue,
	})
	if archiveRunError != nil {
		return archiveRunError
	}

	summaryTemplate := archivedSummaryTemplate
	if dryRunValue {
		summaryTemplate = dryRunSummaryTemplateConstant
	}
	fmt.Fprintf(command.OutOrStdout(), summaryTemplate, archivedCount)
	return nil
}
