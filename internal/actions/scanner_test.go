package actions_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/actions"
)

const (
	checkoutCommitSHAConstant = "11bd71901bbe5b1630ceea73d27597364c9af683"
	setupGoCommitSHAConstant  = "41dfa10bad2bb2ae585af6ee5bb4d7d973ad74ed"
	workflowFileNameConstant  = "ci.yml"
)

func writeWorkflowFile(testInstance *testing.T, fileContents string) string {
	testInstance.Helper()
	workflowsDirectory := testInstance.TempDir()
	workflowFilePath := filepath.Join(workflowsDirectory, workflowFileNameConstant)
	require.NoError(testInstance, os.WriteFile(workflowFilePath, []byte(fileContents), 0o644))
	return workflowsDirectory
}

func TestScanDirectoryFindsPinnedReferences(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "jobs:\n" +
		"  build:\n" +
		"    steps:\n" +
		"      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # v4.2.2\n" +
		"      - uses: actions/setup-go@" + setupGoCommitSHAConstant + " # Set up Go toolchain (v5.0.2)\n" +
		"      - uses: actions/cache@v4\n" +
		"      - run: go test ./...\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	scannedReferences, scanError := actions.NewWorkflowScanner().ScanDirectory(workflowsDirectory)
	require.NoError(testInstance, scanError)
	require.Len(testInstance, scannedReferences, 2)

	require.Equal(testInstance, "actions/checkout", scannedReferences[0].Slug)
	require.Equal(testInstance, checkoutCommitSHAConstant, scannedReferences[0].CommitSHA)
	require.Equal(testInstance, 4, scannedReferences[0].LineNumber)
	require.Equal(testInstance, "v4.2.2", scannedReferences[0].CommentTag)
	require.Empty(testInstance, scannedReferences[0].CommentDescription)

	require.Equal(testInstance, "actions/setup-go", scannedReferences[1].Slug)
	require.Equal(testInstance, "v5.0.2", scannedReferences[1].CommentTag)
	require.Equal(testInstance, "Set up Go toolchain", scannedReferences[1].CommentDescription)
}

func TestScanDirectoryMissingDirectoryFails(testInstance *testing.T) {
	testInstance.Parallel()

	_, scanError := actions.NewWorkflowScanner().ScanDirectory(filepath.Join(testInstance.TempDir(), "absent"))
	require.Error(testInstance, scanError)
}

func TestRepositoryAndSubdirectory(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name                 string
		slug                 string
		expectedRepository   string
		expectedSubdirectory string
	}{
		{name: "top_level", slug: "actions/checkout", expectedRepository: "actions/checkout", expectedSubdirectory: ""},
		{name: "subdirectory_action", slug: "github/codeql-action/init", expectedRepository: "github/codeql-action", expectedSubdirectory: "init"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			subtestInstance.Parallel()
			reference := actions.ActionReference{Slug: testCase.slug}
			require.Equal(subtestInstance, testCase.expectedRepository, reference.Repository())
			require.Equal(subtestInstance, testCase.expectedSubdirectory, reference.Subdirectory())
		})
	}
}
