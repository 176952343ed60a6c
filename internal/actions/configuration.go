package actions

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/tend/internal/utils"
)

const (
	defaultWorkflowsDirectoryConstant = ".github/workflows"
	defaultCacheDirectoryConstant     = "~/.cache/tend/github"
	defaultCacheTTLHoursConstant      = 24

	workflowsDirectoryConfigurationKeyConstant = "workflows_dir"
	cacheDirectoryConfigurationKeyConstant     = "cache_dir"
	cacheTTLHoursConfigurationKeyConstant      = "cache_ttl_hours"
)

// Configuration aggregates settings for actions commands.
type Configuration struct {
	WorkflowsDirectory string `mapstructure:"workflows_dir"`
	CacheDirectory     string `mapstructure:"cache_dir"`
	CacheTTLHours      int    `mapstructure:"cache_ttl_hours"`
}

// DefaultConfiguration supplies baseline values for actions configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		WorkflowsDirectory: defaultWorkflowsDirectoryConstant,
		CacheDirectory:     defaultCacheDirectoryConstant,
		CacheTTLHours:      defaultCacheTTLHoursConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for actions commands.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + workflowsDirectoryConfigurationKeyConstant: defaults.WorkflowsDirectory,
		rootKey + "." + cacheDirectoryConfigurationKeyConstant:     defaults.CacheDirectory,
		rootKey + "." + cacheTTLHoursConfigurationKeyConstant:      defaults.CacheTTLHours,
	}
}

// Sanitize trims configured values and restores defaults for empty entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.WorkflowsDirectory = filepath.Clean(strings.TrimSpace(configuration.WorkflowsDirectory))
	if len(sanitized.WorkflowsDirectory) == 0 || sanitized.WorkflowsDirectory == "." {
		sanitized.WorkflowsDirectory = defaultWorkflowsDirectoryConstant
	}
	sanitized.CacheDirectory = utils.ExpandHomePath(strings.TrimSpace(configuration.CacheDirectory))
	if len(sanitized.CacheDirectory) == 0 {
		sanitized.CacheDirectory = utils.ExpandHomePath(defaultCacheDirectoryConstant)
	}
	if sanitized.CacheTTLHours <= 0 {
		sanitized.CacheTTLHours = defaultCacheTTLHoursConstant
	}
	return sanitized
}

// CacheTimeToLive converts the configured TTL into a duration.
func (configuration Configuration) CacheTimeToLive() time.Duration {
	return time.Duration(configuration.CacheTTLHours) * time.Hour
}
