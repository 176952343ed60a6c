package changelog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/changelog"
	"github.com/temirov/tend/internal/execshell"
)

type stubTagRunner struct {
	tagOutput string
}

func (runner *stubTagRunner) Run(_ context.Context, _ execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{StandardOutput: runner.tagOutput}, nil
}

func runCheck(testInstance *testing.T, changelogContents string, tagOutput string) changelog.DriftReport {
	testInstance.Helper()
	changelogPath := filepath.Join(testInstance.TempDir(), "CHANGELOG.md")
	require.NoError(testInstance, os.WriteFile(changelogPath, []byte(changelogContents), 0o644))

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), &stubTagRunner{tagOutput: tagOutput}, nil)
	require.NoError(testInstance, executorError)

	driftReport, checkError := changelog.NewChecker(shellExecutor).Check(context.Background(), changelogPath, ".")
	require.NoError(testInstance, checkError)
	return driftReport
}

func TestCheckReportsInSyncVersions(testInstance *testing.T) {
	testInstance.Parallel()

	changelogContents := "# Changelog\n\n## [1.1.0] - 2026-08-01\n\n## [1.0.0] - 2026-07-01\n"
	driftReport := runCheck(testInstance, changelogContents, "v1.0.0\nv1.1.0\n")

	require.False(testInstance, driftReport.HasDrift())
	require.Equal(testInstance, []string{"1.0.0", "1.1.0"}, driftReport.InSync)
}

func TestCheckReportsDriftOnBothSides(testInstance *testing.T) {
	testInstance.Parallel()

	changelogContents := "## [2.0.0]\n\n## [1.0.0]\n"
	driftReport := runCheck(testInstance, changelogContents, "v1.0.0\nv1.5.0\n")

	require.True(testInstance, driftReport.HasDrift())
	require.Equal(testInstance, []string{"2.0.0"}, driftReport.NotTagged)
	require.Equal(testInstance, []string{"1.5.0"}, driftReport.NotListed)
}

func TestCheckReportsDuplicateHeadings(testInstance *testing.T) {
	testInstance.Parallel()

	changelogContents := "## [1.0.0]\n\n## [1.0.0]\n"
	driftReport := runCheck(testInstance, changelogContents, "v1.0.0\n")

	require.True(testInstance, driftReport.HasDrift())
	require.Equal(testInstance, []string{"1.0.0"}, driftReport.Duplicates)
}

func TestCheckSortsNumerically(testInstance *testing.T) {
	testInstance.Parallel()

	changelogContents := "## [0.10.0]\n\n## [0.9.0]\n\n## [0.2.0]\n"
	driftReport := runCheck(testInstance, changelogContents, "")

	require.Equal(testInstance, []string{"0.2.0", "0.9.0", "0.10.0"}, driftReport.NotTagged)
}

func TestCheckMissingChangelogFails(testInstance *testing.T) {
	testInstance.Parallel()

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), &stubTagRunner{}, nil)
	require.NoError(testInstance, executorError)

	_, checkError := changelog.NewChecker(shellExecutor).Check(context.Background(), filepath.Join(testInstance.TempDir(), "absent.md"), ".")
	require.Error(testInstance, checkError)
}
