package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/temirov/tend/internal/execshell"
)

const (
	onlyIfExistsPrefixConstant  = "exists:"
	onlyIfMissingPrefixConstant = "missing:"

	missingPathMessageTemplateConstant    = "%s is missing"
	patternAbsentMessageTemplateConstant  = "pattern not found in %s"
	tomlPathAbsentMessageTemplateConstant = "%s does not define %s"
	deletedPathMessageTemplateConstant    = "%s was deleted"

	gitDiffSubcommandConstant    = "diff"
	gitNameStatusFlagConstant    = "--name-status"
	gitDeletedFilterFlagConstant = "--diff-filter=D"
	gitCachedFlagConstant        = "--cached"
	deletedStatusPrefixConstant  = "D"
	tomlPathSeparatorConstant    = "."
)

// Warning is one repository finding produced by rule evaluation.
type Warning struct {
	Level    string `json:"level"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
	Link     string `json:"link,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// EvaluationOptions filters and extends rule evaluation.
type EvaluationOptions struct {
	Category     string
	MinimumLevel string
	// CheckMissing evaluates the working-tree presence checks.
	CheckMissing bool
	// CheckStagedDeletions warns about rule paths deleted in the index.
	CheckStagedDeletions bool
	// DiffRange warns about rule paths deleted within a commit range.
	DiffRange string
}

// RuleEvaluator evaluates declarative rules against a repository tree.
type RuleEvaluator struct {
	repositoryRoot string
	shellExecutor  *execshell.ShellExecutor
}

// NewRuleEvaluator creates a RuleEvaluator rooted at the repository
// directory.
func NewRuleEvaluator(repositoryRoot string, shellExecutor *execshell.ShellExecutor) *RuleEvaluator {
	return &RuleEvaluator{repositoryRoot: repositoryRoot, shellExecutor: shellExecutor}
}

// Evaluate runs every applicable rule and returns the findings. Evaluation
// never fails: unreadable files and unknown rule types simply produce no
// finding.
func (evaluator *RuleEvaluator) Evaluate(executionContext context.Context, ruleSet RuleSet, options EvaluationOptions) []Warning {
	deletedPaths := evaluator.collectDeletedPaths(executionContext, options)

	findings := make([]Warning, 0)
	for _, evaluatedRule := range ruleSet.Rules {
		if !evaluator.ruleApplies(evaluatedRule, ruleSet.Settings, options) {
			continue
		}
		if options.CheckMissing {
			if finding, found := evaluator.evaluateRule(evaluatedRule); found {
				findings = append(findings, finding)
			}
		}
		if _, wasDeleted := deletedPaths[evaluatedRule.Path]; wasDeleted {
			findings = append(findings, warningForRule(evaluatedRule, deletedPathMessageTemplateConstant, evaluatedRule.Path))
		}
	}
	return findings
}

func (evaluator *RuleEvaluator) ruleApplies(evaluatedRule Rule, settings DoctorSettings, options EvaluationOptions) bool {
	if len(options.Category) > 0 && evaluatedRule.Category != options.Category {
		return false
	}
	if options.MinimumLevel == RuleLevelWarn && evaluatedRule.Level == RuleLevelInfo {
		return false
	}
	if evaluatedRule.Type == RuleTypeExists {
		for _, ignoredPath := range settings.IgnoreMissing {
			if ignoredPath == evaluatedRule.Path {
				return false
			}
		}
	}
	return evaluator.onlyIfSatisfied(evaluatedRule.OnlyIf)
}

// onlyIfSatisfied evaluates an only_if gate of the form "exists:PATH" or
// "missing:PATH". An empty or unrecognized gate keeps the rule active.
func (evaluator *RuleEvaluator) onlyIfSatisfied(onlyIfGate string) bool {
	trimmedGate := strings.TrimSpace(onlyIfGate)
	switch {
	case strings.HasPrefix(trimmedGate, onlyIfExistsPrefixConstant):
		return evaluator.pathExists(strings.TrimPrefix(trimmedGate, onlyIfExistsPrefixConstant))
	case strings.HasPrefix(trimmedGate, onlyIfMissingPrefixConstant):
		return !evaluator.pathExists(strings.TrimPrefix(trimmedGate, onlyIfMissingPrefixConstant))
	default:
		return true
	}
}

func (evaluator *RuleEvaluator) evaluateRule(evaluatedRule Rule) (Warning, bool) {
	switch evaluatedRule.Type {
	case RuleTypeExists:
		if evaluator.pathExists(evaluatedRule.Path) {
			return Warning{}, false
		}
		return warningForRule(evaluatedRule, missingPathMessageTemplateConstant, evaluatedRule.Path), true
	case RuleTypeRegexPresent:
		targetFile := evaluatedRule.File
		if len(targetFile) == 0 {
			targetFile = evaluatedRule.Path
		}
		if evaluator.patternPresent(targetFile, evaluatedRule.Pattern) {
			return Warning{}, false
		}
		return warningForRule(evaluatedRule, patternAbsentMessageTemplateConstant, targetFile), true
	case RuleTypeTOMLHasPath:
		targetFile := evaluatedRule.File
		if len(targetFile) == 0 {
			targetFile = projectFileNameConstant
		}
		if evaluator.tomlHasPath(targetFile, evaluatedRule.Path) {
			return Warning{}, false
		}
		return warningForRule(evaluatedRule, tomlPathAbsentMessageTemplateConstant, targetFile, evaluatedRule.Path), true
	default:
		return Warning{}, false
	}
}

func (evaluator *RuleEvaluator) pathExists(relativePath string) bool {
	_, statError := os.Stat(filepath.Join(evaluator.repositoryRoot, relativePath))
	return statError == nil
}

func (evaluator *RuleEvaluator) patternPresent(relativePath string, pattern string) bool {
	fileContents, readError := os.ReadFile(filepath.Join(evaluator.repositoryRoot, relativePath))
	if readError != nil {
		return false
	}
	compiledPattern, compileError := regexp.Compile(pattern)
	if compileError != nil {
		return false
	}
	return compiledPattern.Match(fileContents)
}

// tomlHasPath reports whether a TOML file defines the dotted key path.
func (evaluator *RuleEvaluator) tomlHasPath(relativePath string, dottedPath string) bool {
	fileContents, readError := os.ReadFile(filepath.Join(evaluator.repositoryRoot, relativePath))
	if readError != nil {
		return false
	}
	var parsedDocument map[string]any
	if parseError := toml.Unmarshal(fileContents, &parsedDocument); parseError != nil {
		return false
	}

	var currentValue any = parsedDocument
	for _, pathSegment := range strings.Split(dottedPath, tomlPathSeparatorConstant) {
		currentTable, isTable := currentValue.(map[string]any)
		if !isTable {
			return false
		}
		segmentValue, segmentFound := currentTable[pathSegment]
		if !segmentFound {
			return false
		}
		currentValue = segmentValue
	}
	return true
}

// collectDeletedPaths asks git for paths deleted in the index or within a
// commit range, keyed for quick lookup.
func (evaluator *RuleEvaluator) collectDeletedPaths(executionContext context.Context, options EvaluationOptions) map[string]struct{} {
	deletedPaths := map[string]struct{}{}
	if evaluator.shellExecutor == nil {
		return deletedPaths
	}
	if !options.CheckStagedDeletions && len(options.DiffRange) == 0 {
		return deletedPaths
	}

	diffArguments := []string{gitDiffSubcommandConstant, gitNameStatusFlagConstant, gitDeletedFilterFlagConstant}
	if options.CheckStagedDeletions {
		diffArguments = append(diffArguments, gitCachedFlagConstant)
	}
	if len(options.DiffRange) > 0 {
		diffArguments = append(diffArguments, options.DiffRange)
	}

	executionResult, executionError := evaluator.shellExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        diffArguments,
		WorkingDirectory: evaluator.repositoryRoot,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		return deletedPaths
	}

	for _, diffLine := range strings.Split(executionResult.StandardOutput, "\n") {
		lineFields := strings.Fields(diffLine)
		if len(lineFields) < 2 || !strings.HasPrefix(lineFields[0], deletedStatusPrefixConstant) {
			continue
		}
		deletedPaths[lineFields[1]] = struct{}{}
	}
	return deletedPaths
}

func warningForRule(evaluatedRule Rule, messageTemplate string, templateArguments ...any) Warning {
	return Warning{
		Level:    evaluatedRule.Level,
		Category: evaluatedRule.Category,
		Message:  fmt.Sprintf(messageTemplate, templateArguments...),
		Hint:     evaluatedRule.Hint,
		Link:     evaluatedRule.Link,
		Fix:      evaluatedRule.Fix,
	}
}
