package labels_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
	"github.com/temirov/tend/internal/labels"
)

const (
	labelSetFileNameConstant = "default.json"
	labelSetContentsConstant = `[
  {"name": "bug", "color": "d73a4a", "description": "Something is broken"},
  {"name": "needs triage", "color": "ededed", "description": "Awaiting review"}
]`
	repositoryNameConstant = "octocat/hello-world"
)

type stubGitHubRunner struct {
	executedCommands []string
	createFailures   map[string]bool
	patchFailures    map[string]bool
}

func (runner *stubGitHubRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	commandLine := string(command.Name) + " " + strings.Join(command.Details.Arguments, " ")
	runner.executedCommands = append(runner.executedCommands, commandLine)

	switch {
	case strings.HasPrefix(commandLine, "gh auth status"):
		return execshell.ExecutionResult{ExitCode: 0}, nil
	case strings.HasPrefix(commandLine, "gh repo view"):
		return execshell.ExecutionResult{StandardOutput: repositoryNameConstant + "\n", ExitCode: 0}, nil
	case strings.Contains(commandLine, "-X PATCH"):
		if runner.patchFailures[commandLine] {
			return execshell.ExecutionResult{ExitCode: 1}, nil
		}
		return execshell.ExecutionResult{ExitCode: 0}, nil
	case strings.HasPrefix(commandLine, "gh api repos/"):
		if runner.createFailures[commandLine] {
			return execshell.ExecutionResult{ExitCode: 1}, nil
		}
		return execshell.ExecutionResult{ExitCode: 0}, nil
	}
	return execshell.ExecutionResult{ExitCode: 127}, nil
}

func newLabelsService(testInstance *testing.T, runner *stubGitHubRunner) *labels.Service {
	testInstance.Helper()
	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), runner, nil)
	require.NoError(testInstance, executorError)
	return labels.NewService(zap.NewNop(), shellExecutor)
}

func writeLabelSet(testInstance *testing.T) string {
	testInstance.Helper()
	setsDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.WriteFile(filepath.Join(setsDirectory, labelSetFileNameConstant), []byte(labelSetContentsConstant), 0o644))
	return setsDirectory
}

func TestApplyCreatesEveryLabel(testInstance *testing.T) {
	runner := &stubGitHubRunner{}
	labelsService := newLabelsService(testInstance, runner)

	applySummary, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName: "default",
		SetsDir: writeLabelSet(testInstance),
	})

	require.NoError(testInstance, applyError)
	require.Equal(testInstance, 2, applySummary.Created)
	require.Equal(testInstance, 0, applySummary.Updated)
	require.Equal(testInstance, 0, applySummary.Failed)
	require.Contains(testInstance, runner.executedCommands, "gh auth status")
	require.Contains(testInstance, runner.executedCommands, "gh repo view --json nameWithOwner -q .nameWithOwner")
	require.Contains(testInstance, runner.executedCommands,
		"gh api repos/octocat/hello-world/labels -f name=bug -f color=d73a4a -f description=Something is broken")
}

func TestApplyFallsBackToUpdateWhenLabelExists(testInstance *testing.T) {
	runner := &stubGitHubRunner{
		createFailures: map[string]bool{
			"gh api repos/octocat/hello-world/labels -f name=needs triage -f color=ededed -f description=Awaiting review": true,
		},
	}
	labelsService := newLabelsService(testInstance, runner)

	applySummary, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName: "default",
		SetsDir: writeLabelSet(testInstance),
	})

	require.NoError(testInstance, applyError)
	require.Equal(testInstance, 1, applySummary.Created)
	require.Equal(testInstance, 1, applySummary.Updated)
	require.Equal(testInstance, 0, applySummary.Failed)
	require.Contains(testInstance, runner.executedCommands,
		"gh api -X PATCH repos/octocat/hello-world/labels/needs%20triage -f new_name=needs triage -f color=ededed -f description=Awaiting review")
}

func TestApplyCountsFailuresWhenUpdateAlsoFails(testInstance *testing.T) {
	createCommand := "gh api repos/octocat/hello-world/labels -f name=bug -f color=d73a4a -f description=Something is broken"
	patchCommand := "gh api -X PATCH repos/octocat/hello-world/labels/bug -f new_name=bug -f color=d73a4a -f description=Something is broken"
	runner := &stubGitHubRunner{
		createFailures: map[string]bool{createCommand: true},
		patchFailures:  map[string]bool{patchCommand: true},
	}
	labelsService := newLabelsService(testInstance, runner)

	applySummary, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName: "default",
		SetsDir: writeLabelSet(testInstance),
	})

	require.NoError(testInstance, applyError)
	require.Equal(testInstance, 1, applySummary.Failed)
}

func TestApplyUsesExplicitRepositoryWithoutResolving(testInstance *testing.T) {
	runner := &stubGitHubRunner{}
	labelsService := newLabelsService(testInstance, runner)

	_, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName:    "default",
		SetsDir:    writeLabelSet(testInstance),
		Repository: "octocat/hello-world",
	})

	require.NoError(testInstance, applyError)
	for _, executedCommand := range runner.executedCommands {
		require.NotContains(testInstance, executedCommand, "repo view")
	}
}

func TestApplyDryRunPrintsPlanWithoutAPICalls(testInstance *testing.T) {
	runner := &stubGitHubRunner{}
	labelsService := newLabelsService(testInstance, runner)
	planOutput := &strings.Builder{}

	applySummary, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName:      "default",
		SetsDir:      writeLabelSet(testInstance),
		Repository:   "octocat/hello-world",
		DryRun:       true,
		OutputWriter: planOutput,
	})

	require.NoError(testInstance, applyError)
	require.Equal(testInstance, labels.ApplySummary{}, applySummary)
	require.Contains(testInstance, planOutput.String(), "would apply label bug to octocat/hello-world")
	for _, executedCommand := range runner.executedCommands {
		require.NotContains(testInstance, executedCommand, "gh api")
	}
}

func TestApplyFailsWhenLabelSetIsMissing(testInstance *testing.T) {
	labelsService := newLabelsService(testInstance, &stubGitHubRunner{})

	_, applyError := labelsService.Apply(context.Background(), labels.ApplyOptions{
		SetName: "nonexistent",
		SetsDir: testInstance.TempDir(),
	})

	require.Error(testInstance, applyError)
}
