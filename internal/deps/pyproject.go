package deps

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	projectFileReadErrorTemplateConstant  = "unable to read %s: %w"
	projectFileParseErrorTemplateConstant = "unable to parse %s: %w"
	coreDependencyGroupNameConstant       = "core"
)

var (
	specifierNamePattern     = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)
	nameSeparatorRunsPattern = regexp.MustCompile(`[-_.]+`)
)

type projectFilePayload struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// DeclaredDependency is one dependency specifier parsed from pyproject.toml.
type DeclaredDependency struct {
	Group     string
	Name      string
	Specifier string
}

// NormalizePackageName canonicalizes a package name: lowercased, with runs
// of dots, hyphens, and underscores collapsed to single hyphens.
func NormalizePackageName(packageName string) string {
	return nameSeparatorRunsPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(packageName)), "-")
}

// packageNameFromSpecifier extracts the distribution name from a dependency
// specifier such as "requests[socks]>=2.31".
func packageNameFromSpecifier(dependencySpecifier string) string {
	nameMatch := specifierNamePattern.FindStringSubmatch(dependencySpecifier)
	if nameMatch == nil {
		return ""
	}
	return nameMatch[1]
}

// LoadDeclaredDependencies parses the project file and returns every
// declared dependency: the core group first, then each optional group in
// declaration order of the file's table.
func LoadDeclaredDependencies(projectFilePath string) ([]DeclaredDependency, error) {
	fileContents, readError := os.ReadFile(projectFilePath)
	if readError != nil {
		return nil, fmt.Errorf(projectFileReadErrorTemplateConstant, projectFilePath, readError)
	}

	var projectPayload projectFilePayload
	if parseError := toml.Unmarshal(fileContents, &projectPayload); parseError != nil {
		return nil, fmt.Errorf(projectFileParseErrorTemplateConstant, projectFilePath, parseError)
	}

	declaredDependencies := make([]DeclaredDependency, 0)
	for _, dependencySpecifier := range projectPayload.Project.Dependencies {
		if declared, parsed := declaredFromSpecifier(coreDependencyGroupNameConstant, dependencySpecifier); parsed {
			declaredDependencies = append(declaredDependencies, declared)
		}
	}

	optionalGroupNames := make([]string, 0, len(projectPayload.Project.OptionalDependencies))
	for groupName := range projectPayload.Project.OptionalDependencies {
		optionalGroupNames = append(optionalGroupNames, groupName)
	}
	sort.Strings(optionalGroupNames)
	for _, groupName := range optionalGroupNames {
		for _, dependencySpecifier := range projectPayload.Project.OptionalDependencies[groupName] {
			if declared, parsed := declaredFromSpecifier(groupName, dependencySpecifier); parsed {
				declaredDependencies = append(declaredDependencies, declared)
			}
		}
	}

	return declaredDependencies, nil
}

func declaredFromSpecifier(groupName string, dependencySpecifier string) (DeclaredDependency, bool) {
	packageName := packageNameFromSpecifier(dependencySpecifier)
	if len(packageName) == 0 {
		return DeclaredDependency{}, false
	}
	return DeclaredDependency{
		Group:     groupName,
		Name:      NormalizePackageName(packageName),
		Specifier: strings.TrimSpace(dependencySpecifier),
	}, true
}
