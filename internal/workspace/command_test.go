package workspace_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/workspace"
)

func TestCleanPromptsBeforeRemovingVirtualenvs(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	testInstance.Chdir(rootDirectory)
	writeFileAt(testInstance, rootDirectory, ".venv/bin/python", "binary")

	commandBuilder := &workspace.CommandBuilder{}
	cleanCommand, buildError := commandBuilder.BuildCleanCommand()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	cleanCommand.SetIn(strings.NewReader("y\n"))
	cleanCommand.SetOut(outputBuffer)
	cleanCommand.SetArgs([]string{"--include-venv"})

	require.NoError(testInstance, cleanCommand.Execute())
	require.Contains(testInstance, outputBuffer.String(), "This will delete .venv* directories. Continue? [y/N]")

	_, statError := os.Stat(filepath.Join(rootDirectory, ".venv"))
	require.True(testInstance, os.IsNotExist(statError))
}

func TestCleanAbortsWhenConfirmationDeclined(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	testInstance.Chdir(rootDirectory)
	writeFileAt(testInstance, rootDirectory, ".venv/bin/python", "binary")

	commandBuilder := &workspace.CommandBuilder{}
	cleanCommand, buildError := commandBuilder.BuildCleanCommand()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	cleanCommand.SetIn(strings.NewReader("n\n"))
	cleanCommand.SetOut(outputBuffer)
	cleanCommand.SetErr(outputBuffer)
	cleanCommand.SetArgs([]string{"--include-venv"})

	executionError := cleanCommand.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "aborted")

	_, statError := os.Stat(filepath.Join(rootDirectory, ".venv"))
	require.NoError(testInstance, statError)
}

func TestCleanDryRunSkipsConfirmation(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	testInstance.Chdir(rootDirectory)
	writeFileAt(testInstance, rootDirectory, ".venv/bin/python", "binary")

	commandBuilder := &workspace.CommandBuilder{}
	cleanCommand, buildError := commandBuilder.BuildCleanCommand()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	cleanCommand.SetIn(strings.NewReader(""))
	cleanCommand.SetOut(outputBuffer)
	cleanCommand.SetArgs([]string{"--include-venv", "--dry-run"})

	require.NoError(testInstance, cleanCommand.Execute())
	require.NotContains(testInstance, outputBuffer.String(), "Continue?")
	require.Contains(testInstance, outputBuffer.String(), "would remove directory: .venv")

	_, statError := os.Stat(filepath.Join(rootDirectory, ".venv"))
	require.NoError(testInstance, statError)
}
