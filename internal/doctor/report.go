package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/temirov/tend/internal/execshell"
)

const (
	reportTitleConstant                 = "tend diagnostics report"
	reportMarkdownTitleConstant         = "# tend diagnostics report"
	reportSectionSystemConstant         = "system"
	reportSectionEnvironmentConstant    = "environment"
	reportSectionToolsConstant          = "tools"
	reportSectionPathsConstant          = "paths"
	reportPlainSectionTemplateConstant  = "\n[%s]\n"
	reportMarkdownSectionTemplate       = "\n## %s\n\n"
	reportPlainEntryTemplateConstant    = "%s: %s\n"
	reportMarkdownEntryTemplateConstant = "- **%s**: %s\n"
	reportTimestampFormatConstant       = time.RFC3339
	reportValueUnavailableConstant      = "unavailable"
)

var reportEnvironmentVariableNames = []string{
	"VIRTUAL_ENV",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"CI",
}

// ReportEntry is one key/value line of the diagnostics report.
type ReportEntry struct {
	Key   string
	Value string
}

// ReportSection groups related report entries.
type ReportSection struct {
	Name    string
	Entries []ReportEntry
}

// ReportBuilder gathers the diagnostics bundle.
type ReportBuilder struct {
	shellExecutor    *execshell.ShellExecutor
	workingDirectory string
	clock            func() time.Time
}

// NewReportBuilder creates a ReportBuilder for the working directory.
func NewReportBuilder(shellExecutor *execshell.ShellExecutor, workingDirectory string) *ReportBuilder {
	return &ReportBuilder{shellExecutor: shellExecutor, workingDirectory: workingDirectory, clock: time.Now}
}

// Build gathers the system, environment, tool, and path sections.
func (reportBuilder *ReportBuilder) Build(executionContext context.Context) []ReportSection {
	return []ReportSection{
		reportBuilder.systemSection(),
		reportBuilder.environmentSection(),
		reportBuilder.toolsSection(executionContext),
		reportBuilder.pathsSection(),
	}
}

func (reportBuilder *ReportBuilder) systemSection() ReportSection {
	return ReportSection{
		Name: reportSectionSystemConstant,
		Entries: []ReportEntry{
			{Key: "os", Value: runtime.GOOS},
			{Key: "arch", Value: runtime.GOARCH},
			{Key: "generated", Value: reportBuilder.clock().Format(reportTimestampFormatConstant)},
		},
	}
}

func (reportBuilder *ReportBuilder) environmentSection() ReportSection {
	environmentEntries := make([]ReportEntry, 0, len(reportEnvironmentVariableNames))
	for _, variableName := range reportEnvironmentVariableNames {
		variableState := "unset"
		if len(os.Getenv(variableName)) > 0 {
			variableState = "set"
		}
		environmentEntries = append(environmentEntries, ReportEntry{Key: variableName, Value: variableState})
	}
	return ReportSection{Name: reportSectionEnvironmentConstant, Entries: environmentEntries}
}

func (reportBuilder *ReportBuilder) toolsSection(executionContext context.Context) ReportSection {
	toolEntries := make([]ReportEntry, 0, len(DefaultToolExpectations()))
	for _, toolExpectation := range DefaultToolExpectations() {
		toolVersion := reportValueUnavailableConstant
		executionResult, executionError := reportBuilder.shellExecutor.Execute(executionContext, execshell.ShellCommand{
			Name: toolExpectation.Name,
			Details: execshell.CommandDetails{
				Arguments:        []string{toolVersionProbeArgumentConstant},
				WorkingDirectory: reportBuilder.workingDirectory,
			},
		})
		if executionError == nil && executionResult.ExitCode == 0 {
			toolVersion = strings.TrimSpace(strings.SplitN(executionResult.StandardOutput, "\n", 2)[0])
		}
		toolEntries = append(toolEntries, ReportEntry{Key: string(toolExpectation.Name), Value: toolVersion})
	}
	return ReportSection{Name: reportSectionToolsConstant, Entries: toolEntries}
}

func (reportBuilder *ReportBuilder) pathsSection() ReportSection {
	pathEntries := []ReportEntry{{Key: "working directory", Value: reportBuilder.workingDirectory}}
	for _, keyPath := range []string{projectFileNameConstant, virtualenvDirectoryNameConstant, ".github/workflows"} {
		pathState := "missing"
		if _, statError := os.Stat(reportBuilder.workingDirectory + string(os.PathSeparator) + keyPath); statError == nil {
			pathState = "present"
		}
		pathEntries = append(pathEntries, ReportEntry{Key: keyPath, Value: pathState})
	}
	return ReportSection{Name: reportSectionPathsConstant, Entries: pathEntries}
}

// WriteReport renders the report sections in plain or Markdown form.
func WriteReport(outputWriter io.Writer, reportSections []ReportSection, markdownFormat bool) {
	if markdownFormat {
		fmt.Fprintln(outputWriter, reportMarkdownTitleConstant)
	} else {
		fmt.Fprintln(outputWriter, reportTitleConstant)
	}
	for _, reportSection := range reportSections {
		if markdownFormat {
			fmt.Fprintf(outputWriter, reportMarkdownSectionTemplate, reportSection.Name)
		} else {
			fmt.Fprintf(outputWriter, reportPlainSectionTemplateConstant, reportSection.Name)
		}
		for _, reportEntry := range reportSection.Entries {
			entryTemplate := reportPlainEntryTemplateConstant
			if markdownFormat {
				entryTemplate = reportMarkdownEntryTemplateConstant
			}
			fmt.Fprintf(outputWriter, entryTemplate, reportEntry.Key, reportEntry.Value)
		}
	}
}
