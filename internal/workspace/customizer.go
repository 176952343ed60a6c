package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	templateProjectNameConstant       = "simple-python-boilerplate"
	templatePackageNameConstant       = "simple_python_boilerplate"
	templateGitHubSlugConstant        = "YOURNAME/YOURREPO"
	templateAuthorConstant            = "Joseph"
	templateDescriptionConstant       = "Simple Python boilerplate using src/ layout"
	sourceDirectoryNameConstant       = "src"
	pyprojectFileNameConstant         = "pyproject.toml"
	projectNameFieldTemplateConstant  = "name = %q"
	invalidProjectNameMessageConstant = "project name must be lowercase letters, digits, and hyphens, starting with a letter"
	alreadyCustomizedMessageConstant  = "this tree appears to be customized already; nothing to do"
	replacementPlanTemplateConstant   = "replace %q with %q\n"
	renamePlanTemplateConstant        = "rename %s to %s\n"
	renamedTemplateConstant           = "renamed %s to %s\n"
	updatedFileTemplateConstant       = "updated %s (%d substitutions)\n"
	customizeSummaryTemplateConstant  = "customized %d file(s)\n"
	renameTargetExistsMessageConstant = "rename target %s already exists"
	defaultDescriptionSuffixConstant  = " — a Python project"
)

var projectNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]+(-[a-z0-9]+)*$`)

var customizableExtensions = map[string]bool{
	".py": true, ".toml": true, ".yml": true, ".yaml": true, ".md": true,
	".txt": true, ".cfg": true, ".ini": true, ".json": true, ".sh": true,
	".html": true, ".css": true, ".js": true, ".rst": true, ".in": true,
}

var customizeSkipDirectories = map[string]bool{
	".git": true, "__pycache__": true, ".mypy_cache": true,
	".ruff_cache": true, "node_modules": true, "site": true,
}

// CustomizeOptions carries the personalization values for one run.
type CustomizeOptions struct {
	RootDirectory string
	ProjectName   string
	PackageName   string
	Author        string
	GitHubUser    string
	Description   string
	DryRun        bool
	OutputWriter  io.Writer
}

type textReplacement struct {
	oldText string
	newText string
}

// Customizer rewrites template placeholders across a cloned tree.
type Customizer struct{}

// NewCustomizer creates a Customizer.
func NewCustomizer() *Customizer {
	return &Customizer{}
}

// Customize validates the options, refuses an already-customized tree,
// and applies the replacement plan: placeholder substitutions across
// text files followed by the package directory rename.
func (customizer *Customizer) Customize(options CustomizeOptions) error {
	if !projectNamePattern.MatchString(options.ProjectName) {
		return errors.New(invalidProjectNameMessageConstant)
	}
	if len(options.PackageName) == 0 {
		options.PackageName = strings.ReplaceAll(options.ProjectName, "-", "_")
	}
	if len(options.Description) == 0 {
		options.Description = options.ProjectName + defaultDescriptionSuffixConstant
	}

	if customizer.alreadyCustomized(options.RootDirectory) {
		return errors.New(alreadyCustomizedMessageConstant)
	}

	replacementPlan := customizer.planReplacements(options)
	if options.DryRun {
		if options.OutputWriter != nil {
			for _, plannedReplacement := range replacementPlan {
				fmt.Fprintf(options.OutputWriter, replacementPlanTemplateConstant, plannedReplacement.oldText, plannedReplacement.newText)
			}
			fmt.Fprintf(options.OutputWriter, renamePlanTemplateConstant,
				filepath.Join(sourceDirectoryNameConstant, templatePackageNameConstant),
				filepath.Join(sourceDirectoryNameConstant, options.PackageName))
		}
		return nil
	}

	modifiedCount, applyError := customizer.applyReplacements(options, replacementPlan)
	if applyError != nil {
		return applyError
	}
	if renameError := customizer.renamePackageDirectory(options); renameError != nil {
		return renameError
	}
	if options.OutputWriter != nil {
		fmt.Fprintf(options.OutputWriter, customizeSummaryTemplateConstant, modifiedCount)
	}
	return nil
}

// planReplacements orders substitutions most-specific first so a
// pattern is never clobbered by a replacement of its own substring.
func (customizer *Customizer) planReplacements(options CustomizeOptions) []textReplacement {
	replacementPlan := []textReplacement{
		{oldText: templateGitHubSlugConstant, newText: options.GitHubUser + "/" + options.ProjectName},
		{oldText: templateProjectNameConstant, newText: options.ProjectName},
		{oldText: templatePackageNameConstant, newText: options.PackageName},
		{oldText: templateDescriptionConstant, newText: options.Description},
	}
	if len(options.Author) > 0 {
		replacementPlan = append(replacementPlan, textReplacement{
			oldText: fmt.Sprintf(projectNameFieldTemplateConstant, templateAuthorConstant),
			newText: fmt.Sprintf(projectNameFieldTemplateConstant, options.Author),
		})
	}
	return replacementPlan
}

func (customizer *Customizer) alreadyCustomized(rootDirectory string) bool {
	templatePackagePath := filepath.Join(rootDirectory, sourceDirectoryNameConstant, templatePackageNameConstant)
	if packageInfo, statError := os.Stat(templatePackagePath); statError != nil || !packageInfo.IsDir() {
		return true
	}
	pyprojectContents, readError := os.ReadFile(filepath.Join(rootDirectory, pyprojectFileNameConstant))
	if readError != nil {
		return false
	}
	return !strings.Contains(string(pyprojectContents), fmt.Sprintf(projectNameFieldTemplateConstant, templateProjectNameConstant))
}

func (customizer *Customizer) applyReplacements(options CustomizeOptions, replacementPlan []textReplacement) (int, error) {
	eligibleFiles := []string{}
	walkError := filepath.WalkDir(options.RootDirectory, func(visitedPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return nil
		}
		entryName := directoryEntry.Name()
		if directoryEntry.IsDir() {
			if customizeSkipDirectories[entryName] || strings.HasPrefix(entryName, virtualenvPrefixConstant) || strings.HasSuffix(entryName, eggInfoSuffixConstant) {
				return filepath.SkipDir
			}
			return nil
		}
		if customizableExtensions[filepath.Ext(entryName)] {
			eligibleFiles = append(eligibleFiles, visitedPath)
		}
		return nil
	})
	if walkError != nil {
		return 0, walkError
	}
	sort.Strings(eligibleFiles)

	modifiedCount := 0
	for _, eligibleFile := range eligibleFiles {
		fileContents, readError := os.ReadFile(eligibleFile)
		if readError != nil {
			continue
		}
		updatedContents := string(fileContents)
		substitutionCount := 0
		for _, plannedReplacement := range replacementPlan {
			occurrences := strings.Count(updatedContents, plannedReplacement.oldText)
			if occurrences > 0 {
				updatedContents = strings.ReplaceAll(updatedContents, plannedReplacement.oldText, plannedReplacement.newText)
				substitutionCount += occurrences
			}
		}
		if substitutionCount == 0 {
			continue
		}
		if writeError := os.WriteFile(eligibleFile, []byte(updatedContents), 0o644); writeError != nil {
			return modifiedCount, writeError
		}
		modifiedCount++
		if options.OutputWriter != nil {
			displayPath := eligibleFile
			if relativePath, relativeError := filepath.Rel(options.RootDirectory, eligibleFile); relativeError == nil {
				displayPath = relativePath
			}
			fmt.Fprintf(options.OutputWriter, updatedFileTemplateConstant, displayPath, substitutionCount)
		}
	}
	return modifiedCount, nil
}

func (customizer *Customizer) renamePackageDirectory(options CustomizeOptions) error {
	if options.PackageName == templatePackageNameConstant {
		return nil
	}
	oldPackagePath := filepath.Join(options.RootDirectory, sourceDirectoryNameConstant, templatePackageNameConstant)
	newPackagePath := filepath.Join(options.RootDirectory, sourceDirectoryNameConstant, options.PackageName)
	if _, statError := os.Stat(newPackagePath); statError == nil {
		return fmt.Errorf(renameTargetExistsMessageConstant, filepath.Join(sourceDirectoryNameConstant, options.PackageName))
	}
	if renameError := os.Rename(oldPackagePath, newPackagePath); renameError != nil {
		return renameError
	}
	if options.OutputWriter != nil {
		fmt.Fprintf(options.OutputWriter, renamedTemplateConstant,
			filepath.Join(sourceDirectoryNameConstant, templatePackageNameConstant),
			filepath.Join(sourceDirectoryNameConstant, options.PackageName))
	}
	staleEggInfoPath := filepath.Join(options.RootDirectory, sourceDirectoryNameConstant, templatePackageNameConstant+eggInfoSuffixConstant)
	if eggInfo, statError := os.Stat(staleEggInfoPath); statError == nil && eggInfo.IsDir() {
		if removeError := os.RemoveAll(staleEggInfoPath); removeError != nil {
			return removeError
		}
	}
	return nil
}
