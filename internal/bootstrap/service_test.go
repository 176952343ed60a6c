package bootstrap_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/bootstrap"
	"github.com/temirov/tend/internal/execshell"
)

const (
	pythonVersionOutputConstant = "Python 3.12.1\n"
	pipVersionOutputConstant    = "pip 24.0 from /usr/lib/python3/dist-packages/pip\n"
	projectFileContentsConstant = "[project]\nname = \"data-pipeline\"\n"
)

type stubSetupRunner struct {
	executedCommands []string
	outputsByCommand map[string]string
	failingCommands  map[string]bool
}

func (runner *stubSetupRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	commandLine := string(command.Name) + " " + strings.Join(command.Details.Arguments, " ")
	runner.executedCommands = append(runner.executedCommands, commandLine)

	if runner.failingCommands[commandLine] {
		return execshell.ExecutionResult{ExitCode: 1}, nil
	}
	return execshell.ExecutionResult{StandardOutput: runner.outputsByCommand[commandLine], ExitCode: 0}, nil
}

func newRunnerWithHealthyTools() *stubSetupRunner {
	return &stubSetupRunner{
		outputsByCommand: map[string]string{
			"python3 --version": pythonVersionOutputConstant,
			"pip --version":     pipVersionOutputConstant,
		},
		failingCommands: map[string]bool{},
	}
}

func newBootstrapService(testInstance *testing.T, runner *stubSetupRunner) *bootstrap.Service {
	testInstance.Helper()
	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), runner, nil)
	require.NoError(testInstance, executorError)
	return bootstrap.NewService(zap.NewNop(), shellExecutor)
}

func writeCloneFixture(testInstance *testing.T) string {
	testInstance.Helper()
	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(rootDirectory, ".git"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, "pyproject.toml"), []byte(projectFileContentsConstant), 0o644))
	return rootDirectory
}

func TestRunExecutesFullSetup(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := writeCloneFixture(testInstance)
	runner := newRunnerWithHealthyTools()
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		OutputWriter:  outputBuffer,
	})
	require.NoError(testInstance, runError)
	require.Contains(testInstance, outputBuffer.String(), "setup complete")

	require.Contains(testInstance, runner.executedCommands, "python3 -m venv .venv")
	require.Contains(testInstance, runner.executedCommands, "pip install --editable .")
	require.Contains(testInstance, runner.executedCommands, "python3 -c import data_pipeline")
	require.Contains(testInstance, runner.executedCommands, "pre-commit install")
	require.Contains(testInstance, runner.executedCommands, "pre-commit install --hook-type commit-msg")
	require.Contains(testInstance, runner.executedCommands, "pre-commit install --hook-type pre-push")
}

func TestRunRejectsOldPython(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := writeCloneFixture(testInstance)
	runner := newRunnerWithHealthyTools()
	runner.outputsByCommand["python3 --version"] = "Python 3.9.2\n"
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		OutputWriter:  outputBuffer,
	})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "prerequisites not met")
	require.Contains(testInstance, outputBuffer.String(), "3.11 or newer is required")
	require.NotContains(testInstance, runner.executedCommands, "python3 -m venv .venv")
}

func TestRunRequiresGitRepository(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, "pyproject.toml"), []byte(projectFileContentsConstant), 0o644))
	runner := newRunnerWithHealthyTools()
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		OutputWriter:  outputBuffer,
	})
	require.Error(testInstance, runError)
	require.Contains(testInstance, outputBuffer.String(), "not inside a git repository")
}

func TestRunSkipsHooksWhenRequested(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := writeCloneFixture(testInstance)
	runner := newRunnerWithHealthyTools()
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		SkipHooks:     true,
		OutputWriter:  outputBuffer,
	})
	require.NoError(testInstance, runError)
	require.Contains(testInstance, outputBuffer.String(), "skipped (--skip-hooks)")
	for _, executedCommand := range runner.executedCommands {
		require.NotContains(testInstance, executedCommand, "pre-commit")
	}
}

func TestRunDryRunOnlyProbes(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := writeCloneFixture(testInstance)
	runner := newRunnerWithHealthyTools()
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		DryRun:        true,
		OutputWriter:  outputBuffer,
	})
	require.NoError(testInstance, runError)
	require.Contains(testInstance, outputBuffer.String(), "would run: python3 -m venv .venv")
	require.Contains(testInstance, outputBuffer.String(), "would run: pip install --editable .")
	require.Contains(testInstance, outputBuffer.String(), "would run: pre-commit install")

	require.Equal(testInstance, []string{"python3 --version", "pip --version"}, runner.executedCommands)
}

func TestRunReusesExistingVirtualenv(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := writeCloneFixture(testInstance)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(rootDirectory, ".venv"), 0o755))
	runner := newRunnerWithHealthyTools()
	service := newBootstrapService(testInstance, runner)

	outputBuffer := &bytes.Buffer{}
	runError := service.Run(context.Background(), bootstrap.Options{
		RootDirectory: rootDirectory,
		OutputWriter:  outputBuffer,
	})
	require.NoError(testInstance, runError)
	require.Contains(testInstance, outputBuffer.String(), ".venv already exists")
	require.NotContains(testInstance, runner.executedCommands, "python3 -m venv .venv")
}
