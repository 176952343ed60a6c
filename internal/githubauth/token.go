// Package githubauth resolves GitHub authentication tokens from the environment.
package githubauth

import (
	"os"
	"strings"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// ResolveToken returns the first non-empty GitHub authentication token found
// in the process environment, honoring the preference order above.
func ResolveToken() (string, bool) {
	for _, environmentKey := range tokenPreference {
		if rawValue, exists := os.LookupEnv(environmentKey); exists {
			trimmedValue := strings.TrimSpace(rawValue)
			if len(trimmedValue) > 0 {
				return trimmedValue, true
			}
		}
	}
	return "", false
}
