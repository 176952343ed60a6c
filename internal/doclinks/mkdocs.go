package doclinks

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultBranchNameConstant    = "main"
	branchExtraKeyConstant       = "repo_links_default_branch"
	mkdocsConfigFileNameConstant = "mkdocs.yml"
)

type mkdocsConfigPayload struct {
	RepositoryURL string         `yaml:"repo_url"`
	Extra         map[string]any `yaml:"extra"`
}

// SiteSettings carries the repository hosting settings read from an MkDocs
// configuration file.
type SiteSettings struct {
	RepositoryURL string
	Branch        string
}

// LoadSiteSettings reads repo_url and the default branch from an mkdocs.yml
// file. Missing files or keys yield zero values rather than errors so flag
// values can take over.
func LoadSiteSettings(configFilePath string) SiteSettings {
	siteSettings := SiteSettings{Branch: defaultBranchNameConstant}
	configContents, readError := os.ReadFile(configFilePath)
	if readError != nil {
		return siteSettings
	}

	var configPayload mkdocsConfigPayload
	if unmarshalError := yaml.Unmarshal(configContents, &configPayload); unmarshalError != nil {
		return siteSettings
	}

	siteSettings.RepositoryURL = strings.TrimRight(strings.TrimSpace(configPayload.RepositoryURL), "/")
	if branchValue, branchFound := configPayload.Extra[branchExtraKeyConstant]; branchFound {
		if branchName, isString := branchValue.(string); isString && len(strings.TrimSpace(branchName)) > 0 {
			siteSettings.Branch = strings.TrimSpace(branchName)
		}
	}
	return siteSettings
}
