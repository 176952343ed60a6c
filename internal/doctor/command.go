package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
	"github.com/temirov/tend/internal/utils"
)

const (
	doctorCommandUseConstant              = "doctor"
	doctorCommandShortDescription         = "Environment and repository diagnostics"
	doctorCommandLongDescriptionConstant  = "doctor inspects the development environment and repository layout, reporting findings without blocking."
	envCommandUseConstant                 = "env"
	envCommandShortDescriptionConstant    = "Check the development environment"
	repoCommandUseConstant                = "repo"
	repoCommandShortDescriptionConstant   = "Evaluate declarative repository rules"
	reportCommandUseConstant              = "report"
	reportCommandShortDescriptionConstant = "Print a diagnostics bundle"
	nulBytesCommandUseConstant            = "nul-bytes FILE..."
	nulBytesCommandShortDescription       = "Fail when any of the given files contains a NUL byte"

	strictFlagNameConstant          = "strict"
	strictFlagDescriptionConstant   = "Treat warnings as failures"
	jsonFlagNameConstant            = "json"
	jsonFlagDescriptionConstant     = "Emit results as JSON"
	rulesFlagNameConstant           = "rules"
	rulesFlagDescriptionConstant    = "Rule file path"
	categoryFlagNameConstant        = "category"
	categoryFlagDescriptionConstant = "Only evaluate rules in this category"
	minLevelFlagNameConstant        = "min-level"
	minLevelFlagDescriptionConstant = "Minimum finding level (info or warn)"
	profileFlagNameConstant         = "profile"
	profileFlagDescriptionConstant  = "Additional rule profile to load"
	missingFlagNameConstant         = "missing"
	missingFlagDescriptionConstant  = "Report missing files and directories in the working tree"
	stagedFlagNameConstant          = "staged"
	stagedFlagDescriptionConstant   = "Warn about rule paths deleted in the index"
	diffFlagNameConstant            = "diff"
	diffFlagDescriptionConstant     = "Warn about rule paths deleted within a commit range"
	fixFlagNameConstant             = "fix"
	fixFlagDescriptionConstant      = "Run the fix command attached to each finding"
	outputFlagNameConstant          = "output"
	outputFlagDescriptionConstant   = "Write the report to a file instead of stdout"
	markdownFlagNameConstant        = "markdown"
	markdownFlagDescriptionConstant = "Render the report as Markdown"

	defaultRuleFilePathConstant       = ".repo-doctor.toml"
	checkLineTemplateConstant         = "[%s] %s: %s\n"
	warningLineTemplateConstant       = "%s%s: %s\n"
	warningHintTemplateConstant       = "  hint: %s\n"
	warningLinkTemplateConstant       = "  see: %s\n"
	warningFixTemplateConstant        = "  fix: %s\n"
	warningCategoryTemplateConstant   = " [%s]"
	findingsSummaryTemplateConstant   = "%d finding(s)\n"
	environmentFailedErrorMessage     = "environment checks failed"
	reportFilePermissionsConstant     = 0o644
	fixShellToolNameConstant          = "sh"
	fixShellCommandFlagConstant       = "-c"
	jsonIndentConstant                = "  "
	workingDirectoryFallbackConstant  = "."
	nulByteLineTemplateConstant       = "NUL byte detected in %s\n"
	nulBytesFoundErrorMessageConstant = "files contain NUL bytes"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ExecutorProvider creates a shell executor for command runs.
type ExecutorProvider func(logger *zap.Logger) (*execshell.ShellExecutor, error)

// CommandBuilder assembles the doctor command hierarchy.
type CommandBuilder struct {
	LoggerProvider   LoggerProvider
	ExecutorProvider ExecutorProvider
}

// Build constructs the doctor command with the env, repo, and report
// subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	doctorCommand := &cobra.Command{
		Use:   doctorCommandUseConstant,
		Short: doctorCommandShortDescription,
		Long:  doctorCommandLongDescriptionConstant,
	}

	envCommand := &cobra.Command{
		Use:   envCommandUseConstant,
		Short: envCommandShortDescriptionConstant,
		RunE:  builder.runEnv,
	}
	envCommand.Flags().Bool(strictFlagNameConstant, false, strictFlagDescriptionConstant)
	envCommand.Flags().Bool(jsonFlagNameConstant, false, jsonFlagDescriptionConstant)

	repoCommand := &cobra.Command{
		Use:   repoCommandUseConstant,
		Short: repoCommandShortDescriptionConstant,
		RunE:  builder.runRepo,
	}
	repoCommand.Flags().String(rulesFlagNameConstant, defaultRuleFilePathConstant, rulesFlagDescriptionConstant)
	repoCommand.Flags().String(categoryFlagNameConstant, "", categoryFlagDescriptionConstant)
	repoCommand.Flags().String(minLevelFlagNameConstant, RuleLevelInfo, minLevelFlagDescriptionConstant)
	repoCommand.Flags().String(profileFlagNameConstant, "", profileFlagDescriptionConstant)
	repoCommand.Flags().Bool(missingFlagNameConstant, false, missingFlagDescriptionConstant)
	repoCommand.Flags().Bool(stagedFlagNameConstant, false, stagedFlagDescriptionConstant)
	repoCommand.Flags().String(diffFlagNameConstant, "", diffFlagDescriptionConstant)
	repoCommand.Flags().Bool(fixFlagNameConstant, false, fixFlagDescriptionConstant)

	reportCommand := &cobra.Command{
		Use:   reportCommandUseConstant,
		Short: reportCommandShortDescriptionConstant,
		RunE:  builder.runReport,
	}
	reportCommand.Flags().String(outputFlagNameConstant, "", outputFlagDescriptionConstant)
	reportCommand.Flags().Bool(markdownFlagNameConstant, false, markdownFlagDescriptionConstant)

	nulBytesCommand := &cobra.Command{
		Use:   nulBytesCommandUseConstant,
		Short: nulBytesCommandShortDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE:  builder.runNulBytes,
	}

	doctorCommand.AddCommand(envCommand, repoCommand, reportCommand, nulBytesCommand)
	return doctorCommand, nil
}

func (builder *CommandBuilder) runNulBytes(command *cobra.Command, arguments []string) error {
	offendingPaths := ScanForNulBytes(arguments)
	for _, offendingPath := range offendingPaths {
		fmt.Fprintf(command.ErrOrStderr(), nulByteLineTemplateConstant, offendingPath)
	}
	if len(offendingPaths) > 0 {
		command.SilenceUsage = true
		return errors.New(nulBytesFoundErrorMessageConstant)
	}
	return nil
}

func (builder *CommandBuilder) runEnv(command *cobra.Command, arguments []string) error {
	strictMode, strictError := command.Flags().GetBool(strictFlagNameConstant)
	if strictError != nil {
		return strictError
	}
	jsonOutput, jsonError := command.Flags().GetBool(jsonFlagNameConstant)
	if jsonError != nil {
		return jsonError
	}

	shellExecutor, executorError := builder.resolveExecutor()
	if executorError != nil {
		return executorError
	}
	environmentDoctor := NewEnvironmentDoctor(shellExecutor, workingDirectory(), nil)
	checkResults := environmentDoctor.RunChecks(command.Context())

	if jsonOutput {
		encodedResults, marshalError := json.MarshalIndent(checkResults, "", jsonIndentConstant)
		if marshalError != nil {
			return marshalError
		}
		fmt.Fprintln(command.OutOrStdout(), string(encodedResults))
	} else {
		for _, checkResult := range checkResults {
			fmt.Fprintf(command.OutOrStdout(), checkLineTemplateConstant, checkResult.Status, checkResult.Name, checkResult.Message)
		}
	}

	if ExitCode(checkResults, strictMode) != 0 {
		command.SilenceUsage = true
		return errors.New(environmentFailedErrorMessage)
	}
	return nil
}

func (builder *CommandBuilder) runRepo(command *cobra.Command, arguments []string) error {
	ruleFilePath, rulesError := command.Flags().GetString(rulesFlagNameConstant)
	if rulesError != nil {
		return rulesError
	}
	categoryValue, categoryError := command.Flags().GetString(categoryFlagNameConstant)
	if categoryError != nil {
		return categoryError
	}
	minimumLevel, minLevelError := command.Flags().GetString(minLevelFlagNameConstant)
	if minLevelError != nil {
		return minLevelError
	}
	profileName, profileError := command.Flags().GetString(profileFlagNameConstant)
	if profileError != nil {
		return profileError
	}
	missingMode, missingError := command.Flags().GetBool(missingFlagNameConstant)
	if missingError != nil {
		return missingError
	}
	stagedMode, stagedError := command.Flags().GetBool(stagedFlagNameConstant)
	if stagedError != nil {
		return stagedError
	}
	diffRange, diffError := command.Flags().GetString(diffFlagNameConstant)
	if diffError != nil {
		return diffError
	}
	fixMode, fixError := command.Flags().GetBool(fixFlagNameConstant)
	if fixError != nil {
		return fixError
	}

	loadedRuleSet, loadError := LoadRuleSet(ruleFilePath, profileName)
	if loadError != nil {
		return loadError
	}

	shellExecutor, executorError := builder.resolveExecutor()
	if executorError != nil {
		return executorError
	}
	// Presence checks run by default when no scope flag narrows the pass.
	if !missingMode && !stagedMode && len(strings.TrimSpace(diffRange)) == 0 {
		missingMode = true
	}

	evaluator := NewRuleEvaluator(workingDirectory(), shellExecutor)
	findings := evaluator.Evaluate(command.Context(), loadedRuleSet, EvaluationOptions{
		Category:             strings.TrimSpace(categoryValue),
		MinimumLevel:         strings.TrimSpace(minimumLevel),
		CheckMissing:         missingMode,
		CheckStagedDeletions: stagedMode,
		DiffRange:            strings.TrimSpace(diffRange),
	})

	// Findings interleave with fix subprocess output, so flush each line.
	findingsWriter := utils.NewFlushingWriter(command.OutOrStdout())
	for _, finding := range findings {
		categorySuffix := ""
		if len(finding.Category) > 0 {
			categorySuffix = fmt.Sprintf(warningCategoryTemplateConstant, finding.Category)
		}
		fmt.Fprintf(findingsWriter, warningLineTemplateConstant, finding.Level, categorySuffix, finding.Message)
		if len(finding.Hint) > 0 {
			fmt.Fprintf(findingsWriter, warningHintTemplateConstant, finding.Hint)
		}
		if len(finding.Link) > 0 {
			fmt.Fprintf(findingsWriter, warningLinkTemplateConstant, finding.Link)
		}
		if len(finding.Fix) > 0 {
			fmt.Fprintf(findingsWriter, warningFixTemplateConstant, finding.Fix)
			if fixMode {
				_, _ = shellExecutor.Execute(command.Context(), execshell.ShellCommand{
					Name:    execshell.ToolName(fixShellToolNameConstant),
					Details: execshell.CommandDetails{Arguments: []string{fixShellCommandFlagConstant, finding.Fix}},
				})
			}
		}
	}
	fmt.Fprintf(findingsWriter, findingsSummaryTemplateConstant, len(findings))

	// Findings are advisory; the command always exits cleanly.
	return nil
}

func (builder *CommandBuilder) runReport(command *cobra.Command, arguments []string) error {
	outputFilePath, outputError := command.Flags().GetString(outputFlagNameConstant)
	if outputError != nil {
		return outputError
	}
	markdownFormat, markdownError := command.Flags().GetBool(markdownFlagNameConstant)
	if markdownError != nil {
		return markdownError
	}

	shellExecutor, executorError := builder.resolveExecutor()
	if executorError != nil {
		return executorError
	}
	reportSections := NewReportBuilder(shellExecutor, workingDirectory()).Build(command.Context())

	if len(strings.TrimSpace(outputFilePath)) > 0 {
		reportBuffer := &strings.Builder{}
		WriteReport(reportBuffer, reportSections, markdownFormat)
		return os.WriteFile(outputFilePath, []byte(reportBuffer.String()), reportFilePermissionsConstant)
	}
	WriteReport(command.OutOrStdout(), reportSections, markdownFormat)
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

func workingDirectory() string {
	currentDirectory, directoryError := os.Getwd()
	if directoryError != nil {
		return workingDirectoryFallbackConstant
	}
	return currentDirectory
}
