package todos_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/todos"
)

func writeTreeFile(testInstance *testing.T, rootDirectory string, relativePath string, contents string) {
	testInstance.Helper()
	fullPath := filepath.Join(rootDirectory, relativePath)
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(testInstance, os.WriteFile(fullPath, []byte(contents), 0o644))
}

func TestCheckGroupsMatchesByFile(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	writeTreeFile(testInstance, rootDirectory, "pyproject.toml", "name = \"x\"\n# TODO (template users): set the project name\n")
	writeTreeFile(testInstance, rootDirectory, "docs/index.md", "# Title\n\ntodo (Template Users): write the docs\n")
	writeTreeFile(testInstance, rootDirectory, "src/pkg/module.py", "x = 1\n")

	checkReport, checkError := todos.NewChecker().Check(todos.CheckOptions{RootDirectory: rootDirectory})
	require.NoError(testInstance, checkError)
	require.Equal(testInstance, 2, checkReport.Total())
	require.Len(testInstance, checkReport.Files, 2)
	require.Equal(testInstance, "docs/index.md", checkReport.Files[0].Path)
	require.Equal(testInstance, "pyproject.toml", checkReport.Files[1].Path)
	require.Equal(testInstance, 2, checkReport.Files[1].Matches[0].LineNumber)
}

func TestCheckSkipsExcludedDirectories(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	writeTreeFile(testInstance, rootDirectory, ".venv/lib/site.py", "# TODO (template users): inside virtualenv\n")
	writeTreeFile(testInstance, rootDirectory, "src/pkg.egg-info/PKG-INFO.txt", "TODO (template users): metadata\n")
	writeTreeFile(testInstance, rootDirectory, "notes/scratch.md", "TODO (template users): keep\n")

	checkReport, checkError := todos.NewChecker().Check(todos.CheckOptions{RootDirectory: rootDirectory})
	require.NoError(testInstance, checkError)
	require.Equal(testInstance, 1, checkReport.Total())
	require.Equal(testInstance, "notes/scratch.md", checkReport.Files[0].Path)

	excludedReport, excludedError := todos.NewChecker().Check(todos.CheckOptions{
		RootDirectory: rootDirectory,
		ExtraExcludes: []string{"notes"},
	})
	require.NoError(testInstance, excludedError)
	require.Zero(testInstance, excludedReport.Total())
}

func TestCheckIgnoresBinaryExtensions(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	writeTreeFile(testInstance, rootDirectory, "image.png", "TODO (template users): not scanned\n")
	writeTreeFile(testInstance, rootDirectory, "Makefile", "all: ## TODO (template users): fill in\n")

	checkReport, checkError := todos.NewChecker().Check(todos.CheckOptions{RootDirectory: rootDirectory})
	require.NoError(testInstance, checkError)
	require.Equal(testInstance, 1, checkReport.Total())
	require.Equal(testInstance, "Makefile", checkReport.Files[0].Path)
}

func TestFormatCheckReport(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	writeTreeFile(testInstance, rootDirectory, "README.md", "TODO (template users): describe the project\n")

	checkReport, checkError := todos.NewChecker().Check(todos.CheckOptions{RootDirectory: rootDirectory})
	require.NoError(testInstance, checkError)

	fullReport := todos.FormatCheckReport(checkReport, false)
	require.Contains(testInstance, fullReport, "found 1 item(s) across 1 file(s):")
	require.Contains(testInstance, fullReport, "  README.md")
	require.Contains(testInstance, fullReport, "    L1: TODO (template users): describe the project")

	countReport := todos.FormatCheckReport(checkReport, true)
	require.Equal(testInstance, "1 item(s) across 1 file(s)", countReport)

	emptyReport := todos.FormatCheckReport(todos.CheckReport{}, false)
	require.Equal(testInstance, "no template customization items remain", emptyReport)
}

func TestEncodeCheckReport(testInstance *testing.T) {
	testInstance.Parallel()

	rootDirectory := testInstance.TempDir()
	writeTreeFile(testInstance, rootDirectory, "README.md", "TODO (template users): describe the project\n")

	checkReport, checkError := todos.NewChecker().Check(todos.CheckOptions{RootDirectory: rootDirectory})
	require.NoError(testInstance, checkError)

	encodedReport, encodeError := todos.EncodeCheckReport(checkReport)
	require.NoError(testInstance, encodeError)

	var decodedPayload struct {
		Total     int `json:"total"`
		FileCount int `json:"file_count"`
		Files     map[string][]struct {
			LineNumber int    `json:"line"`
			Text       string `json:"text"`
		} `json:"files"`
	}
	require.NoError(testInstance, json.Unmarshal(encodedReport, &decodedPayload))
	require.Equal(testInstance, 1, decodedPayload.Total)
	require.Equal(testInstance, 1, decodedPayload.FileCount)
	require.Len(testInstance, decodedPayload.Files["README.md"], 1)
	require.Equal(testInstance, 1, decodedPayload.Files["README.md"][0].LineNumber)
}
