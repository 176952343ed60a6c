package doctor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/doctor"
)

const ruleFileContentsConstant = `
[doctor]
ignore_missing = ["optional/dir"]

[[rules]]
type = "exists"
path = "README.md"
level = "warn"
category = "docs"
hint = "add a README"

[[rules]]
type = "exists"
path = "optional/dir"

[[rules]]
type = "regex_present"
path = "pyproject.toml"
pattern = "\\[project\\]"
level = "info"

[[rules]]
type = "toml_has_path"
file = "pyproject.toml"
path = "project.name"

[[rules]]
type = "exists"
path = "docs/index.md"
only_if = "exists:docs"
`

func writeRuleFixture(testInstance *testing.T) (string, string) {
	testInstance.Helper()
	repositoryRoot := testInstance.TempDir()
	ruleFilePath := filepath.Join(repositoryRoot, ".repo-doctor.toml")
	require.NoError(testInstance, os.WriteFile(ruleFilePath, []byte(ruleFileContentsConstant), 0o644))
	return repositoryRoot, ruleFilePath
}

func TestLoadRuleSetParsesRulesAndSettings(testInstance *testing.T) {
	testInstance.Parallel()

	_, ruleFilePath := writeRuleFixture(testInstance)
	loadedRuleSet, loadError := doctor.LoadRuleSet(ruleFilePath, "")
	require.NoError(testInstance, loadError)
	require.Len(testInstance, loadedRuleSet.Rules, 5)
	require.Equal(testInstance, []string{"optional/dir"}, loadedRuleSet.Settings.IgnoreMissing)
	require.Equal(testInstance, doctor.RuleLevelWarn, loadedRuleSet.Rules[1].Level)
}

func TestLoadRuleSetMergesProfiles(testInstance *testing.T) {
	testInstance.Parallel()

	repositoryRoot, ruleFilePath := writeRuleFixture(testInstance)
	profileDirectory := filepath.Join(repositoryRoot, "repo-doctor.d")
	require.NoError(testInstance, os.MkdirAll(profileDirectory, 0o755))
	profileContents := "[[rules]]\ntype = \"exists\"\npath = \"Makefile\"\n"
	require.NoError(testInstance, os.WriteFile(filepath.Join(profileDirectory, "build.toml"), []byte(profileContents), 0o644))

	loadedRuleSet, loadError := doctor.LoadRuleSet(ruleFilePath, "build")
	require.NoError(testInstance, loadError)
	require.Len(testInstance, loadedRuleSet.Rules, 6)
	require.Equal(testInstance, []string{"build"}, doctor.ListProfiles(ruleFilePath))
}

func TestEvaluateReportsExpectedFindings(testInstance *testing.T) {
	testInstance.Parallel()

	repositoryRoot, ruleFilePath := writeRuleFixture(testInstance)
	projectContents := "[project]\nname = \"demo\"\n"
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryRoot, "pyproject.toml"), []byte(projectContents), 0o644))

	loadedRuleSet, loadError := doctor.LoadRuleSet(ruleFilePath, "")
	require.NoError(testInstance, loadError)

	evaluator := doctor.NewRuleEvaluator(repositoryRoot, nil)
	findings := evaluator.Evaluate(context.Background(), loadedRuleSet, doctor.EvaluationOptions{CheckMissing: true})

	// README.md is missing; optional/dir is ignored; the regex and TOML
	// rules pass; the docs rule is gated off by only_if.
	require.Len(testInstance, findings, 1)
	require.Equal(testInstance, "README.md is missing", findings[0].Message)
	require.Equal(testInstance, "docs", findings[0].Category)
	require.Equal(testInstance, "add a README", findings[0].Hint)
}

func TestEvaluateOnlyIfGateActivatesRule(testInstance *testing.T) {
	testInstance.Parallel()

	repositoryRoot, ruleFilePath := writeRuleFixture(testInstance)
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryRoot, "README.md"), []byte("# demo"), 0o644))
	projectContents := "[project]\nname = \"demo\"\n"
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryRoot, "pyproject.toml"), []byte(projectContents), 0o644))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryRoot, "docs"), 0o755))

	loadedRuleSet, loadError := doctor.LoadRuleSet(ruleFilePath, "")
	require.NoError(testInstance, loadError)

	evaluator := doctor.NewRuleEvaluator(repositoryRoot, nil)
	findings := evaluator.Evaluate(context.Background(), loadedRuleSet, doctor.EvaluationOptions{CheckMissing: true})
	require.Len(testInstance, findings, 1)
	require.Equal(testInstance, "docs/index.md is missing", findings[0].Message)
}

func TestEvaluateMinimumLevelFiltersInfoRules(testInstance *testing.T) {
	testInstance.Parallel()

	repositoryRoot, ruleFilePath := writeRuleFixture(testInstance)
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryRoot, "README.md"), []byte("# demo"), 0o644))

	loadedRuleSet, loadError := doctor.LoadRuleSet(ruleFilePath, "")
	require.NoError(testInstance, loadError)

	evaluator := doctor.NewRuleEvaluator(repositoryRoot, nil)
	findings := evaluator.Evaluate(context.Background(), loadedRuleSet, doctor.EvaluationOptions{CheckMissing: true, MinimumLevel: doctor.RuleLevelWarn})
	for _, finding := range findings {
		require.NotEqual(testInstance, doctor.RuleLevelInfo, finding.Level)
	}
}
