package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/tend/internal/execshell"
)

const (
	pipShowSubcommandConstant          = "show"
	pipIndexSubcommandConstant         = "index"
	pipVersionsSubcommandConstant      = "versions"
	pipInstallSubcommandConstant       = "install"
	pipUpgradeFlagConstant             = "--upgrade"
	pipJSONFormatFlagConstant          = "--format=json"
	pipShowVersionFieldPrefixConstant  = "Version:"
	pipShowSummaryFieldPrefixConstant  = "Summary:"
	pipLatestFieldPrefixConstant       = "LATEST:"
	pipAvailableVersionsPrefixConstant = "Available versions:"
	pinnedSpecifierTemplateConstant    = "%s==%s"
)

type pipIndexVersionsPayload struct {
	Latest   string   `json:"latest_version"`
	Versions []string `json:"versions"`
}

// InstalledPackage is the metadata pip reports for a locally installed
// distribution.
type InstalledPackage struct {
	Version string
	Summary string
}

// PipGateway wraps the pip invocations the dependency manager needs. All
// queries degrade to zero values when pip fails; only the install call
// surfaces errors.
type PipGateway struct {
	shellExecutor    *execshell.ShellExecutor
	workingDirectory string
}

// NewPipGateway creates a PipGateway for the working directory.
func NewPipGateway(shellExecutor *execshell.ShellExecutor, workingDirectory string) *PipGateway {
	return &PipGateway{shellExecutor: shellExecutor, workingDirectory: workingDirectory}
}

// InstalledPackage returns the installed version and summary for a package,
// or zero values when the package is not installed.
func (gateway *PipGateway) InstalledPackage(executionContext context.Context, packageName string) InstalledPackage {
	executionResult, executionError := gateway.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{pipShowSubcommandConstant, packageName},
		WorkingDirectory: gateway.workingDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		return InstalledPackage{}
	}

	installedPackage := InstalledPackage{}
	for _, outputLine := range strings.Split(executionResult.StandardOutput, "\n") {
		if strings.HasPrefix(outputLine, pipShowVersionFieldPrefixConstant) {
			installedPackage.Version = strings.TrimSpace(strings.TrimPrefix(outputLine, pipShowVersionFieldPrefixConstant))
		}
		if strings.HasPrefix(outputLine, pipShowSummaryFieldPrefixConstant) {
			installedPackage.Summary = strings.TrimSpace(strings.TrimPrefix(outputLine, pipShowSummaryFieldPrefixConstant))
		}
	}
	return installedPackage
}

// LatestVersion queries the package index for the newest release, parsing
// the JSON format first and falling back to the human-readable output.
func (gateway *PipGateway) LatestVersion(executionContext context.Context, packageName string) string {
	executionResult, executionError := gateway.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{pipIndexSubcommandConstant, pipVersionsSubcommandConstant, packageName, pipJSONFormatFlagConstant},
		WorkingDirectory: gateway.workingDirectory,
	})
	if executionError == nil && executionResult.ExitCode == 0 {
		var indexPayload pipIndexVersionsPayload
		if json.Unmarshal([]byte(executionResult.StandardOutput), &indexPayload) == nil {
			if len(indexPayload.Latest) > 0 {
				return indexPayload.Latest
			}
			if len(indexPayload.Versions) > 0 {
				return indexPayload.Versions[0]
			}
		}
	}

	executionResult, executionError = gateway.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{pipIndexSubcommandConstant, pipVersionsSubcommandConstant, packageName},
		WorkingDirectory: gateway.workingDirectory,
	})
	if executionError != nil || executionResult.ExitCode != 0 {
		return ""
	}
	return parseHumanReadableLatest(executionResult.StandardOutput)
}

// Upgrade installs the newest (or a pinned) version of a package.
func (gateway *PipGateway) Upgrade(executionContext context.Context, packageName string, pinnedVersion string) error {
	installTarget := packageName
	if len(pinnedVersion) > 0 {
		installTarget = sprintfPinned(packageName, pinnedVersion)
	}
	_, executionError := gateway.shellExecutor.ExecutePip(executionContext, execshell.CommandDetails{
		Arguments:        []string{pipInstallSubcommandConstant, pipUpgradeFlagConstant, installTarget},
		WorkingDirectory: gateway.workingDirectory,
	})
	return executionError
}

func parseHumanReadableLatest(pipOutput string) string {
	for _, outputLine := range strings.Split(pipOutput, "\n") {
		trimmedLine := strings.TrimSpace(outputLine)
		if strings.HasPrefix(trimmedLine, pipLatestFieldPrefixConstant) {
			return strings.TrimSpace(strings.TrimPrefix(trimmedLine, pipLatestFieldPrefixConstant))
		}
		if strings.HasPrefix(trimmedLine, pipAvailableVersionsPrefixConstant) {
			availableVersions := strings.TrimSpace(strings.TrimPrefix(trimmedLine, pipAvailableVersionsPrefixConstant))
			if commaIndex := strings.Index(availableVersions, ","); commaIndex >= 0 {
				return strings.TrimSpace(availableVersions[:commaIndex])
			}
			return availableVersions
		}
	}
	return ""
}

func sprintfPinned(packageName string, pinnedVersion string) string {
	return fmt.Sprintf(pinnedSpecifierTemplateConstant, strings.TrimSpace(packageName), strings.TrimSpace(pinnedVersion))
}
