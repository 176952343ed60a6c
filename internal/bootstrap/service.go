package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	totalStepCountConstant          = 6
	minimumPythonMajorVersion       = 3
	minimumPythonMinorVersion       = 11
	virtualenvDirectoryNameConstant = ".venv"
	projectFileNameConstant         = "pyproject.toml"
	gitDirectoryNameConstant        = ".git"

	stepHeaderTemplateConstant      = "[%d/%d] %s\n"
	stepPassedTemplateConstant      = "  ok: %s\n"
	stepPassedMessageConstant       = "  ok\n"
	stepSkippedTemplateConstant     = "  skipped (%s)\n"
	stepPlannedTemplateConstant     = "  would run: %s\n"
	stepFailedTemplateConstant      = "  failed: %s\n"
	setupCompleteMessageConstant    = "setup complete\n"
	pythonStepNameConstant          = "checking python version"
	gitStepNameConstant             = "checking git repository"
	pipStepNameConstant             = "checking pip"
	virtualenvStepNameConstant      = "creating virtualenv"
	installStepNameConstant         = "installing package in editable mode"
	hooksStepNameConstant           = "installing pre-commit hooks"
	virtualenvExistsMessageConstant = ".venv already exists"
	skipHooksReasonConstant         = "--skip-hooks"

	pythonVersionTooOldTemplateConst  = "python %s found; %d.%d or newer is required"
	pythonMissingMessageConstant      = "python3 not found on PATH"
	pythonVersionOutputPrefixConstant = "Python "
	notRepositoryMessageConstant      = "not inside a git repository; run git init first"
	pipMissingMessageConstant         = "pip not found on PATH"
	prerequisitesErrorMessageConstant = "prerequisites not met; fix the issues above and re-run"
	setupIncompleteErrorMessage       = "setup completed with errors; review the output above"
	projectFileReadErrorTemplateConst = "unable to read %s: %w"

	versionProbeArgumentConstant  = "--version"
	venvModuleFlagConstant        = "-m"
	venvModuleNameConstant        = "venv"
	pipInstallSubcommandConstant  = "install"
	pipEditableFlagConstant       = "--editable"
	pipEditableTargetConstant     = "."
	preCommitInstallSubcommand    = "install"
	preCommitHookTypeFlagConstant = "--hook-type"
	pythonInlineFlagConstant      = "-c"
	importProbeTemplateConstant   = "import %s"
	packageNameSeparatorConstant  = "-"
	moduleNameSeparatorConstant   = "_"
)

// preCommitHookStages lists the hook stages installed beyond the default.
var preCommitHookStages = []string{"commit-msg", "pre-push"}

// Options configures one bootstrap run.
type Options struct {
	RootDirectory string
	SkipHooks     bool
	DryRun        bool
	OutputWriter  io.Writer
}

// Service prepares a fresh clone for development: it verifies the
// prerequisite tools, creates the virtualenv, installs the package in
// editable mode, and installs the pre-commit hooks.
type Service struct {
	logger        *zap.Logger
	shellExecutor *execshell.ShellExecutor
}

// NewService creates a bootstrap Service.
func NewService(logger *zap.Logger, shellExecutor *execshell.ShellExecutor) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, shellExecutor: shellExecutor}
}

// Run executes the setup checklist. Prerequisite failures (python, git,
// pip) abort immediately; later step failures are reported and collected
// into a single error at the end.
func (service *Service) Run(executionContext context.Context, options Options) error {
	prerequisitesMet := true
	prerequisitesMet = service.checkPython(executionContext, options) && prerequisitesMet
	prerequisitesMet = service.checkGitRepository(options) && prerequisitesMet
	prerequisitesMet = service.checkPip(executionContext, options) && prerequisitesMet
	if !prerequisitesMet {
		return errors.New(prerequisitesErrorMessageConstant)
	}

	setupSucceeded := true
	setupSucceeded = service.createVirtualenv(executionContext, options) && setupSucceeded
	setupSucceeded = service.installEditablePackage(executionContext, options) && setupSucceeded
	setupSucceeded = service.installHooks(executionContext, options) && setupSucceeded
	if !setupSucceeded {
		return errors.New(setupIncompleteErrorMessage)
	}

	fmt.Fprint(options.OutputWriter, setupCompleteMessageConstant)
	return nil
}

func (service *Service) checkPython(executionContext context.Context, options Options) bool {
	printStepHeader(options.OutputWriter, 1, pythonStepNameConstant)
	executionResult, executionError := service.shellExecutor.ExecutePython(executionContext, execshell.CommandDetails{
		Arguments:        []string{versionProbeArgumentConstant},
		WorkingDirectory: options.RootDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, pythonMissingMessageConstant)
		return false
	}

	versionText := strings.TrimSpace(executionResult.StandardOutput)
	majorVersion, minorVersion, parseOK := parsePythonVersion(versionText)
	if parseOK && !pythonVersionSatisfied(majorVersion, minorVersion) {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, fmt.Sprintf(
			pythonVersionTooOldTemplateConst,
			strings.TrimPrefix(versionText, pythonVersionOutputPrefixConstant),
			minimumPythonMajorVersion,
			minimumPythonMinorVersion,
		))
		return false
	}
	fmt.Fprintf(options.OutputWriter, stepPassedTemplateConstant, versionText)
	return true
}

func (service *Service) checkGitRepository(options Options) bool {
	printStepHeader(options.OutputWriter, 2, gitStepNameConstant)
	gitDirectoryInfo, statError := os.Stat(filepath.Join(options.RootDirectory, gitDirectoryNameConstant))
	if statError != nil || !gitDirectoryInfo.IsDir() {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, notRepositoryMessageConstant)
		return false
	}
	fmt.Fprint(options.OutputWriter, stepPassedMessageConstant)
	return true
}

func (service *Service) checkPip(executionContext context.Context, options Options) bool {
	printStepHeader(options.OutputWriter, 3, pipStepNameConstant)
	executionResult, executionError := service.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{versionProbeArgumentConstant},
		WorkingDirectory: options.RootDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, pipMissingMessageConstant)
		return false
	}
	fmt.Fprintf(options.OutputWriter, stepPassedTemplateConstant, strings.TrimSpace(executionResult.StandardOutput))
	return true
}

func (service *Service) createVirtualenv(executionContext context.Context, options Options) bool {
	printStepHeader(options.OutputWriter, 4, virtualenvStepNameConstant)
	virtualenvPath := filepath.Join(options.RootDirectory, virtualenvDirectoryNameConstant)
	if directoryInfo, statError := os.Stat(virtualenvPath); statError == nil && directoryInfo.IsDir() {
		fmt.Fprintf(options.OutputWriter, stepPassedTemplateConstant, virtualenvExistsMessageConstant)
		return true
	}

	venvArguments := []string{venvModuleFlagConstant, venvModuleNameConstant, virtualenvDirectoryNameConstant}
	if options.DryRun {
		fmt.Fprintf(options.OutputWriter, stepPlannedTemplateConstant, commandLine(execshell.ToolPython, venvArguments))
		return true
	}
	executionResult, executionError := service.shellExecutor.ExecutePython(executionContext, execshell.CommandDetails{
		Arguments:        venvArguments,
		WorkingDirectory: options.RootDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, strings.TrimSpace(executionResult.StandardError))
		return false
	}
	fmt.Fprintf(options.OutputWriter, stepPassedTemplateConstant, virtualenvDirectoryNameConstant)
	return true
}

func (service *Service) installEditablePackage(executionContext context.Context, options Options) bool {
	printStepHeader(options.OutputWriter, 5, installStepNameConstant)
	installArguments := []string{pipInstallSubcommandConstant, pipEditableFlagConstant, pipEditableTargetConstant}
	if options.DryRun {
		fmt.Fprintf(options.OutputWriter, stepPlannedTemplateConstant, commandLine(execshell.ToolPip, installArguments))
		return true
	}

	executionResult, executionError := service.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        installArguments,
		WorkingDirectory: options.RootDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, strings.TrimSpace(executionResult.StandardError))
		return false
	}

	return service.verifyImport(executionContext, options)
}

// verifyImport confirms the freshly installed package is importable. A
// missing or unparseable pyproject.toml fails the step.
func (service *Service) verifyImport(executionContext context.Context, options Options) bool {
	packageModuleName, nameError := readProjectModuleName(filepath.Join(options.RootDirectory, projectFileNameConstant))
	if nameError != nil {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, nameError.Error())
		return false
	}

	executionResult, executionError := service.shellExecutor.ExecutePython(executionContext, execshell.CommandDetails{
		Arguments:        []string{pythonInlineFlagConstant, fmt.Sprintf(importProbeTemplateConstant, packageModuleName)},
		WorkingDirectory: options.RootDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, strings.TrimSpace(executionResult.StandardError))
		return false
	}
	fmt.Fprintf(options.OutputWriter, stepPassedTemplateConstant, packageModuleName)
	return true
}

func (service *Service) installHooks(executionContext context.Context, options Options) bool {
	printStepHeader(options.OutputWriter, 6, hooksStepNameConstant)
	if options.SkipHooks {
		fmt.Fprintf(options.OutputWriter, stepSkippedTemplateConstant, skipHooksReasonConstant)
		return true
	}

	hookInstallArguments := [][]string{{preCommitInstallSubcommand}}
	for _, hookStage := range preCommitHookStages {
		hookInstallArguments = append(hookInstallArguments, []string{preCommitInstallSubcommand, preCommitHookTypeFlagConstant, hookStage})
	}

	for _, installArguments := range hookInstallArguments {
		if options.DryRun {
			fmt.Fprintf(options.OutputWriter, stepPlannedTemplateConstant, commandLine(execshell.ToolPreCommit, installArguments))
			continue
		}
		executionResult, executionError := service.shellExecutor.ExecutePreCommit(executionContext, execshell.CommandDetails{
			Arguments:        installArguments,
			WorkingDirectory: options.RootDirectory,
		})
		if executionError != nil || executionResult.ExitCode != 0 {
			fmt.Fprintf(options.OutputWriter, stepFailedTemplateConstant, strings.TrimSpace(executionResult.StandardError))
			return false
		}
	}
	if !options.DryRun {
		fmt.Fprint(options.OutputWriter, stepPassedMessageConstant)
	}
	return true
}

// projectFilePayload maps the single pyproject field bootstrap needs.
type projectFilePayload struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
}

func readProjectModuleName(projectFilePath string) (string, error) {
	fileContents, readError := os.ReadFile(projectFilePath)
	if readError != nil {
		return "", fmt.Errorf(projectFileReadErrorTemplateConst, projectFilePath, readError)
	}
	var parsedProject projectFilePayload
	if unmarshalError := toml.Unmarshal(fileContents, &parsedProject); unmarshalError != nil {
		return "", fmt.Errorf(projectFileReadErrorTemplateConst, projectFilePath, unmarshalError)
	}
	return strings.ReplaceAll(parsedProject.Project.Name, packageNameSeparatorConstant, moduleNameSeparatorConstant), nil
}

// parsePythonVersion extracts major and minor numbers from interpreter
// output such as "Python 3.12.1".
func parsePythonVersion(versionOutput string) (int, int, bool) {
	versionText := strings.TrimPrefix(versionOutput, pythonVersionOutputPrefixConstant)
	versionSegments := strings.Split(strings.TrimSpace(versionText), ".")
	if len(versionSegments) < 2 {
		return 0, 0, false
	}
	majorVersion, majorError := strconv.Atoi(versionSegments[0])
	minorVersion, minorError := strconv.Atoi(versionSegments[1])
	if majorError != nil || minorError != nil {
		return 0, 0, false
	}
	return majorVersion, minorVersion, true
}

func pythonVersionSatisfied(majorVersion int, minorVersion int) bool {
	if majorVersion != minimumPythonMajorVersion {
		return majorVersion > minimumPythonMajorVersion
	}
	return minorVersion >= minimumPythonMinorVersion
}

func printStepHeader(outputWriter io.Writer, stepNumber int, stepName string) {
	fmt.Fprintf(outputWriter, stepHeaderTemplateConstant, stepNumber, totalStepCountConstant, stepName)
}

func commandLine(toolName execshell.ToolName, commandArguments []string) string {
	return string(toolName) + " " + strings.Join(commandArguments, " ")
}
