package doctor_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/doctor"
	"github.com/temirov/tend/internal/execshell"
)

type stubCommandRunner struct {
	resultsByCommand map[string]execshell.ExecutionResult
}

func (runner *stubCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	commandKey := string(command.Name) + " " + strings.Join(command.Details.Arguments, " ")
	commandResult, resultFound := runner.resultsByCommand[commandKey]
	if !resultFound {
		return execshell.ExecutionResult{ExitCode: 127}, nil
	}
	return commandResult, nil
}

func newStubExecutor(testInstance *testing.T, resultsByCommand map[string]execshell.ExecutionResult) *execshell.ShellExecutor {
	testInstance.Helper()
	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), &stubCommandRunner{resultsByCommand: resultsByCommand}, nil)
	require.NoError(testInstance, executorError)
	return shellExecutor
}

func checkByName(checkResults []doctor.CheckResult, checkName string) (doctor.CheckResult, bool) {
	for _, checkResult := range checkResults {
		if checkResult.Name == checkName {
			return checkResult, true
		}
	}
	return doctor.CheckResult{}, false
}

func TestRunChecksReportsHealthyEnvironment(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(workingDirectory, "pyproject.toml"), []byte("[project]\n"), 0o644))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(workingDirectory, ".venv"), 0o755))

	shellExecutor := newStubExecutor(testInstance, map[string]execshell.ExecutionResult{
		"git rev-parse --is-inside-work-tree": {StandardOutput: "true\n"},
		"git config user.name":                {StandardOutput: "Example Author\n"},
		"git config user.email":               {StandardOutput: "author@example.com\n"},
		"git --version":                       {StandardOutput: "git version 2.44.0\n"},
		"pip --version":                       {StandardOutput: "pip 24.0\n"},
		"pre-commit --version":                {StandardOutput: "pre-commit 3.7.0\n"},
		"gh --version":                        {StandardOutput: "gh version 2.49.0\n"},
	})

	environmentDoctor := doctor.NewEnvironmentDoctor(shellExecutor, workingDirectory, nil)
	checkResults := environmentDoctor.RunChecks(context.Background())

	for _, checkResult := range checkResults {
		require.Equal(testInstance, doctor.CheckStatusPass, checkResult.Status, checkResult.Name)
	}
	require.Zero(testInstance, doctor.ExitCode(checkResults, true))

	gitToolResult, gitToolFound := checkByName(checkResults, "tool: git")
	require.True(testInstance, gitToolFound)
	require.Equal(testInstance, "git version 2.44.0", gitToolResult.Message)
}

func TestRunChecksFlagsMissingRequirements(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()

	shellExecutor := newStubExecutor(testInstance, map[string]execshell.ExecutionResult{
		"git rev-parse --is-inside-work-tree": {StandardOutput: "true\n"},
		"git --version":                       {StandardOutput: "git version 2.44.0\n"},
	})

	environmentDoctor := doctor.NewEnvironmentDoctor(shellExecutor, workingDirectory, nil)
	checkResults := environmentDoctor.RunChecks(context.Background())

	projectFileResult, projectFileFound := checkByName(checkResults, "pyproject.toml")
	require.True(testInstance, projectFileFound)
	require.Equal(testInstance, doctor.CheckStatusFail, projectFileResult.Status)

	pipToolResult, pipToolFound := checkByName(checkResults, "tool: pip")
	require.True(testInstance, pipToolFound)
	require.Equal(testInstance, doctor.CheckStatusFail, pipToolResult.Status)

	preCommitResult, preCommitFound := checkByName(checkResults, "tool: pre-commit")
	require.True(testInstance, preCommitFound)
	require.Equal(testInstance, doctor.CheckStatusWarn, preCommitResult.Status)

	require.Equal(testInstance, 1, doctor.ExitCode(checkResults, false))
}

func TestExitCodeStrictPromotesWarnings(testInstance *testing.T) {
	testInstance.Parallel()

	warnOnlyResults := []doctor.CheckResult{
		{Name: "tool: pre-commit", Status: doctor.CheckStatusWarn, Optional: true},
		{Name: "git repository", Status: doctor.CheckStatusPass},
	}
	require.Zero(testInstance, doctor.ExitCode(warnOnlyResults, false))
	require.Equal(testInstance, 1, doctor.ExitCode(warnOnlyResults, true))
}
