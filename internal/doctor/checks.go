package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/tend/internal/execshell"
)

// CheckStatus classifies the outcome of one diagnostic check.
type CheckStatus string

const (
	// CheckStatusPass indicates the check succeeded.
	CheckStatusPass CheckStatus = "pass"
	// CheckStatusWarn indicates an optional expectation was not met.
	CheckStatusWarn CheckStatus = "warn"
	// CheckStatusFail indicates a required expectation was not met.
	CheckStatusFail CheckStatus = "fail"

	gitRepositoryCheckNameConstant    = "git repository"
	gitUserNameCheckNameConstant      = "git user.name"
	gitUserEmailCheckNameConstant     = "git user.email"
	projectFileCheckNameConstant      = "pyproject.toml"
	virtualenvCheckNameConstant       = "virtualenv"
	toolCheckNameTemplateConstant     = "tool: %s"
	checkPassedMessageConstant        = "ok"
	repositoryMissingMessageConstant  = "not inside a git repository"
	gitConfigMissingTemplateConstant  = "git config %s is not set"
	projectFileMissingMessageConstant = "pyproject.toml not found"
	virtualenvMissingMessageConstant  = "no virtualenv active and no .venv directory present"
	toolMissingTemplateConstant       = "%s not found on PATH"
	toolVersionProbeArgumentConstant  = "--version"

	virtualenvEnvironmentVariableName = "VIRTUAL_ENV"
	virtualenvDirectoryNameConstant   = ".venv"
	projectFileNameConstant           = "pyproject.toml"
	gitConfigSubcommandConstant       = "config"
	gitRevParseSubcommandConstant     = "rev-parse"
	gitInsideWorkTreeFlagConstant     = "--is-inside-work-tree"
	gitUserNameConfigKeyConstant      = "user.name"
	gitUserEmailConfigKeyConstant     = "user.email"

	toolProbeConcurrencyLimitConstant = 4
)

// CheckResult is the outcome of one diagnostic predicate.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Optional bool        `json:"optional"`
}

// ToolExpectation names an external tool the environment should provide.
type ToolExpectation struct {
	Name     execshell.ToolName
	Optional bool
}

// DefaultToolExpectations lists the tools probed by the environment doctor.
func DefaultToolExpectations() []ToolExpectation {
	return []ToolExpectation{
		{Name: execshell.ToolGit},
		{Name: execshell.ToolPip},
		{Name: execshell.ToolPreCommit, Optional: true},
		{Name: execshell.ToolGitHubCLI, Optional: true},
	}
}

// EnvironmentDoctor runs the fixed environment checklist.
type EnvironmentDoctor struct {
	shellExecutor    *execshell.ShellExecutor
	workingDirectory string
	toolExpectations []ToolExpectation
}

// NewEnvironmentDoctor creates an EnvironmentDoctor for the working
// directory.
func NewEnvironmentDoctor(shellExecutor *execshell.ShellExecutor, workingDirectory string, toolExpectations []ToolExpectation) *EnvironmentDoctor {
	if len(toolExpectations) == 0 {
		toolExpectations = DefaultToolExpectations()
	}
	return &EnvironmentDoctor{
		shellExecutor:    shellExecutor,
		workingDirectory: workingDirectory,
		toolExpectations: toolExpectations,
	}
}

// RunChecks evaluates every check and returns the results in a stable
// order. Tool probes run concurrently through a bounded worker pool.
func (environmentDoctor *EnvironmentDoctor) RunChecks(executionContext context.Context) []CheckResult {
	checkResults := []CheckResult{
		environmentDoctor.checkGitRepository(executionContext),
		environmentDoctor.checkGitConfig(executionContext, gitUserNameCheckNameConstant, gitUserNameConfigKeyConstant),
		environmentDoctor.checkGitConfig(executionContext, gitUserEmailCheckNameConstant, gitUserEmailConfigKeyConstant),
		environmentDoctor.checkProjectFile(),
		environmentDoctor.checkVirtualenv(),
	}
	return append(checkResults, environmentDoctor.probeTools(executionContext)...)
}

func (environmentDoctor *EnvironmentDoctor) checkGitRepository(executionContext context.Context) CheckResult {
	executionResult, executionError := environmentDoctor.shellExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitInsideWorkTreeFlagConstant},
		WorkingDirectory: environmentDoctor.workingDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		return CheckResult{Name: gitRepositoryCheckNameConstant, Status: CheckStatusFail, Message: repositoryMissingMessageConstant}
	}
	return CheckResult{Name: gitRepositoryCheckNameConstant, Status: CheckStatusPass, Message: checkPassedMessageConstant}
}

func (environmentDoctor *EnvironmentDoctor) checkGitConfig(executionContext context.Context, checkName string, configKey string) CheckResult {
	executionResult, executionError := environmentDoctor.shellExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitConfigSubcommandConstant, configKey},
		WorkingDirectory: environmentDoctor.workingDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 || len(strings.TrimSpace(executionResult.StandardOutput)) == 0 {
		return CheckResult{Name: checkName, Status: CheckStatusWarn, Message: fmt.Sprintf(gitConfigMissingTemplateConstant, configKey), Optional: true}
	}
	return CheckResult{Name: checkName, Status: CheckStatusPass, Message: strings.TrimSpace(executionResult.StandardOutput), Optional: true}
}

func (environmentDoctor *EnvironmentDoctor) checkProjectFile() CheckResult {
	projectFilePath := environmentDoctor.workingDirectory + string(os.PathSeparator) + projectFileNameConstant
	if _, statError := os.Stat(projectFilePath); statError != nil {
		return CheckResult{Name: projectFileCheckNameConstant, Status: CheckStatusFail, Message: projectFileMissingMessageConstant}
	}
	return CheckResult{Name: projectFileCheckNameConstant, Status: CheckStatusPass, Message: checkPassedMessageConstant}
}

func (environmentDoctor *EnvironmentDoctor) checkVirtualenv() CheckResult {
	if len(os.Getenv(virtualenvEnvironmentVariableName)) > 0 {
		return CheckResult{Name: virtualenvCheckNameConstant, Status: CheckStatusPass, Message: checkPassedMessageConstant, Optional: true}
	}
	virtualenvPath := environmentDoctor.workingDirectory + string(os.PathSeparator) + virtualenvDirectoryNameConstant
	if directoryInfo, statError := os.Stat(virtualenvPath); statError == nil && directoryInfo.IsDir() {
		return CheckResult{Name: virtualenvCheckNameConstant, Status: CheckStatusPass, Message: checkPassedMessageConstant, Optional: true}
	}
	return CheckResult{Name: virtualenvCheckNameConstant, Status: CheckStatusWarn, Message: virtualenvMissingMessageConstant, Optional: true}
}

// probeTools runs one version probe per expected tool through a bounded
// errgroup pool and reports each tool's availability.
func (environmentDoctor *EnvironmentDoctor) probeTools(executionContext context.Context) []CheckResult {
	probeResults := make([]CheckResult, len(environmentDoctor.toolExpectations))
	var resultsLock sync.Mutex

	workerGroup, groupContext := errgroup.WithContext(executionContext)
	workerGroup.SetLimit(toolProbeConcurrencyLimitConstant)
	for expectationIndex, toolExpectation := range environmentDoctor.toolExpectations {
		workerGroup.Go(func() error {
			probeResult := environmentDoctor.probeTool(groupContext, toolExpectation)
			resultsLock.Lock()
			probeResults[expectationIndex] = probeResult
			resultsLock.Unlock()
			return nil
		})
	}
	_ = workerGroup.Wait()
	return probeResults
}

func (environmentDoctor *EnvironmentDoctor) probeTool(executionContext context.Context, toolExpectation ToolExpectation) CheckResult {
	checkName := fmt.Sprintf(toolCheckNameTemplateConstant, toolExpectation.Name)
	executionResult, executionError := environmentDoctor.shellExecutor.Execute(executionContext, execshell.ShellCommand{
		Name: toolExpectation.Name,
		Details: execshell.CommandDetails{
			Arguments:        []string{toolVersionProbeArgumentConstant},
			WorkingDirectory: environmentDoctor.workingDirectory,
		},
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		missingStatus := CheckStatusFail
		if toolExpectation.Optional {
			missingStatus = CheckStatusWarn
		}
		return CheckResult{
			Name:     checkName,
			Status:   missingStatus,
			Message:  fmt.Sprintf(toolMissingTemplateConstant, toolExpectation.Name),
			Optional: toolExpectation.Optional,
		}
	}
	versionLine := strings.TrimSpace(strings.SplitN(executionResult.StandardOutput, "\n", 2)[0])
	return CheckResult{Name: checkName, Status: CheckStatusPass, Message: versionLine, Optional: toolExpectation.Optional}
}

// ExitCode derives the process exit code from check results: failures on
// non-optional checks always count, and strict mode promotes warnings.
func ExitCode(checkResults []CheckResult, strictMode bool) int {
	for _, checkResult := range checkResults {
		if checkResult.Status == CheckStatusFail && !checkResult.Optional {
			return 1
		}
		if strictMode && checkResult.Status != CheckStatusPass {
			return 1
		}
	}
	return 0
}
