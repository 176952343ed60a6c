package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/workspace"
)

const templatePyprojectContentsConstant = `[project]
name = "simple-python-boilerplate"
description = "Simple Python boilerplate using src/ layout"
authors = [{ name = "Joseph" }]

[project.urls]
Homepage = "https://github.com/YOURNAME/YOURREPO"
`

func writeTemplateTree(testInstance *testing.T) string {
	testInstance.Helper()
	rootDirectory := testInstance.TempDir()
	writeFileAt(testInstance, rootDirectory, "pyproject.toml", templatePyprojectContentsConstant)
	writeFileAt(testInstance, rootDirectory, "src/simple_python_boilerplate/__init__.py",
		"\"\"\"simple_python_boilerplate package.\"\"\"\n")
	writeFileAt(testInstance, rootDirectory, "README.md",
		"# simple-python-boilerplate\n\nClone from YOURNAME/YOURREPO.\n")
	return rootDirectory
}

func TestCustomizeRewritesPlaceholdersAndRenamesPackage(testInstance *testing.T) {
	rootDirectory := writeTemplateTree(testInstance)

	customizeError := workspace.NewCustomizer().Customize(workspace.CustomizeOptions{
		RootDirectory: rootDirectory,
		ProjectName:   "data-pipeline",
		Author:        "Jane Doe",
		GitHubUser:    "janedoe",
		Description:   "Batch data pipeline",
	})
	require.NoError(testInstance, customizeError)

	pyprojectContents, readError := os.ReadFile(filepath.Join(rootDirectory, "pyproject.toml"))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(pyprojectContents), `name = "data-pipeline"`)
	require.Contains(testInstance, string(pyprojectContents), `description = "Batch data pipeline"`)
	require.Contains(testInstance, string(pyprojectContents), `name = "Jane Doe"`)
	require.Contains(testInstance, string(pyprojectContents), "github.com/janedoe/data-pipeline")

	require.DirExists(testInstance, filepath.Join(rootDirectory, "src", "data_pipeline"))
	require.NoDirExists(testInstance, filepath.Join(rootDirectory, "src", "simple_python_boilerplate"))

	packageInit, initReadError := os.ReadFile(filepath.Join(rootDirectory, "src", "data_pipeline", "__init__.py"))
	require.NoError(testInstance, initReadError)
	require.Contains(testInstance, string(packageInit), "data_pipeline package")
}

func TestCustomizeRefusesAnAlreadyCustomizedTree(testInstance *testing.T) {
	rootDirectory := writeTemplateTree(testInstance)
	customizer := workspace.NewCustomizer()
	options := workspace.CustomizeOptions{
		RootDirectory: rootDirectory,
		ProjectName:   "data-pipeline",
		GitHubUser:    "janedoe",
	}

	require.NoError(testInstance, customizer.Customize(options))
	secondRunError := customizer.Customize(options)
	require.Error(testInstance, secondRunError)
	require.Contains(testInstance, secondRunError.Error(), "customized already")
}

func TestCustomizeRejectsInvalidProjectNames(testInstance *testing.T) {
	invalidNames := []string{"Data-Pipeline", "1pipeline", "data_pipeline", "-pipeline"}
	for _, invalidName := range invalidNames {
		customizeError := workspace.NewCustomizer().Customize(workspace.CustomizeOptions{
			RootDirectory: testInstance.TempDir(),
			ProjectName:   invalidName,
			GitHubUser:    "janedoe",
		})
		require.Error(testInstance, customizeError, invalidName)
	}
}

func TestCustomizeDryRunPrintsPlanWithoutChanges(testInstance *testing.T) {
	rootDirectory := writeTemplateTree(testInstance)
	planOutput := &strings.Builder{}

	customizeError := workspace.NewCustomizer().Customize(workspace.CustomizeOptions{
		RootDirectory: rootDirectory,
		ProjectName:   "data-pipeline",
		GitHubUser:    "janedoe",
		DryRun:        true,
		OutputWriter:  planOutput,
	})
	require.NoError(testInstance, customizeError)
	require.Contains(testInstance, planOutput.String(), `"simple-python-boilerplate" with "data-pipeline"`)
	require.Contains(testInstance, planOutput.String(), filepath.Join("src", "data_pipeline"))

	pyprojectContents, readError := os.ReadFile(filepath.Join(rootDirectory, "pyproject.toml"))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(pyprojectContents), `name = "simple-python-boilerplate"`)
	require.DirExists(testInstance, filepath.Join(rootDirectory, "src", "simple_python_boilerplate"))
}
