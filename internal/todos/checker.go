package todos

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultCheckPattern is the marker template users are expected to
	// address after forking.
	DefaultCheckPattern = "TODO (template users)"

	matchedLineDisplayLimitConstant   = 100
	truncatedLineSuffixConstant       = "..."
	checkReportHeaderTemplateConstant = "found %d item(s) across %d file(s):\n"
	checkReportFileTemplateConstant   = "  %s\n"
	checkReportMatchTemplateConstant  = "    L%d: %s\n"
	checkReportCountTemplateConstant  = "%d item(s) across %d file(s)"
	checkReportCleanMessageConstant   = "no template customization items remain"
	checkJSONIndentConstant           = "  "
	eggInfoDirectorySuffixConstant    = ".egg-info"
)

// excludedDirectoryNames lists directory names skipped entirely during the
// scan (exact path-component match).
var excludedDirectoryNames = map[string]bool{
	".git":          true,
	".venv":         true,
	".venv-1":       true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".ruff_cache":   true,
	".pytest_cache": true,
	"node_modules":  true,
	"site":          true,
}

// scannedFileExtensions limits the scan to text files.
var scannedFileExtensions = map[string]bool{
	".py": true, ".pyi": true, ".toml": true, ".yml": true, ".yaml": true,
	".md": true, ".rst": true, ".txt": true, ".cfg": true, ".ini": true,
	".json": true, ".sh": true, ".ps1": true, ".bat": true, ".html": true,
	".css": true, ".js": true, ".ts": true, ".sql": true, ".env": true,
	".containerfile": true, ".dockerfile": true,
}

// scannedFileNames lists extensionless files that are always scanned.
var scannedFileNames = map[string]bool{
	"Containerfile": true,
	"Dockerfile":    true,
	"Makefile":      true,
	"Taskfile":      true,
	"Procfile":      true,
}

// CheckOptions configures one template-item scan.
type CheckOptions struct {
	RootDirectory string
	Pattern       string
	ExtraExcludes []string
}

// CheckMatch is one matching line inside a scanned file.
type CheckMatch struct {
	LineNumber int    `json:"line"`
	Text       string `json:"text"`
}

// FileMatches groups the matches found in a single file, keyed by its
// slash-separated path relative to the scan root.
type FileMatches struct {
	Path    string
	Matches []CheckMatch
}

// CheckReport is the outcome of one scan, ordered by file path.
type CheckReport struct {
	Files []FileMatches
}

// Total returns the number of matching lines across all files.
func (report CheckReport) Total() int {
	totalMatches := 0
	for _, fileMatches := range report.Files {
		totalMatches += len(fileMatches.Matches)
	}
	return totalMatches
}

// Checker scans a tree for leftover template-customization markers.
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check walks the root directory and collects every line containing the
// pattern (case-insensitive), grouped by file and sorted by path. Files
// that cannot be read are skipped.
func (checker *Checker) Check(options CheckOptions) (CheckReport, error) {
	searchPattern := options.Pattern
	if len(searchPattern) == 0 {
		searchPattern = DefaultCheckPattern
	}
	loweredPattern := strings.ToLower(searchPattern)

	extraExcludePaths := make([]string, 0, len(options.ExtraExcludes))
	for _, extraExclude := range options.ExtraExcludes {
		extraExcludePaths = append(extraExcludePaths, filepath.Join(options.RootDirectory, extraExclude))
	}

	matchesByPath := map[string][]CheckMatch{}
	walkError := filepath.WalkDir(options.RootDirectory, func(visitedPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return nil
		}
		entryName := directoryEntry.Name()
		if directoryEntry.IsDir() {
			if visitedPath != options.RootDirectory &&
				(excludedDirectoryNames[entryName] || strings.HasSuffix(entryName, eggInfoDirectorySuffixConstant)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !scannedFileExtensions[strings.ToLower(filepath.Ext(entryName))] && !scannedFileNames[entryName] {
			return nil
		}
		for _, extraExcludePath := range extraExcludePaths {
			if visitedPath == extraExcludePath || strings.HasPrefix(visitedPath, extraExcludePath+string(filepath.Separator)) {
				return nil
			}
		}

		fileContents, readError := os.ReadFile(visitedPath)
		if readError != nil {
			return nil
		}
		fileMatches := []CheckMatch{}
		for lineIndex, lineText := range strings.Split(string(fileContents), "\n") {
			if strings.Contains(strings.ToLower(lineText), loweredPattern) {
				fileMatches = append(fileMatches, CheckMatch{LineNumber: lineIndex + 1, Text: strings.TrimRight(lineText, " \t\r")})
			}
		}
		if len(fileMatches) == 0 {
			return nil
		}

		relativePath, relativeError := filepath.Rel(options.RootDirectory, visitedPath)
		if relativeError != nil {
			relativePath = visitedPath
		}
		matchesByPath[filepath.ToSlash(relativePath)] = fileMatches
		return nil
	})
	if walkError != nil {
		return CheckReport{}, walkError
	}

	sortedPaths := make([]string, 0, len(matchesByPath))
	for matchedPath := range matchesByPath {
		sortedPaths = append(sortedPaths, matchedPath)
	}
	sort.Strings(sortedPaths)

	checkReport := CheckReport{Files: make([]FileMatches, 0, len(sortedPaths))}
	for _, matchedPath := range sortedPaths {
		checkReport.Files = append(checkReport.Files, FileMatches{Path: matchedPath, Matches: matchesByPath[matchedPath]})
	}
	return checkReport, nil
}

// FormatCheckReport renders the human-readable scan report.
func FormatCheckReport(report CheckReport, countOnly bool) string {
	totalMatches := report.Total()
	if countOnly {
		return fmt.Sprintf(checkReportCountTemplateConstant, totalMatches, len(report.Files))
	}
	if totalMatches == 0 {
		return checkReportCleanMessageConstant
	}

	reportBuilder := &strings.Builder{}
	fmt.Fprintf(reportBuilder, checkReportHeaderTemplateConstant, totalMatches, len(report.Files))
	for _, fileMatches := range report.Files {
		fmt.Fprintf(reportBuilder, checkReportFileTemplateConstant, fileMatches.Path)
		for _, lineMatch := range fileMatches.Matches {
			displayText := strings.TrimSpace(lineMatch.Text)
			if len(displayText) > matchedLineDisplayLimitConstant {
				displayText = displayText[:matchedLineDisplayLimitConstant-len(truncatedLineSuffixConstant)] + truncatedLineSuffixConstant
			}
			fmt.Fprintf(reportBuilder, checkReportMatchTemplateConstant, lineMatch.LineNumber, displayText)
		}
	}
	return strings.TrimRight(reportBuilder.String(), "\n")
}

// checkReportJSONPayload shapes the machine-readable scan report.
type checkReportJSONPayload struct {
	Total     int                     `json:"total"`
	FileCount int                     `json:"file_count"`
	Files     map[string][]CheckMatch `json:"files"`
}

// EncodeCheckReport renders the scan report as indented JSON.
func EncodeCheckReport(report CheckReport) ([]byte, error) {
	payloadFiles := make(map[string][]CheckMatch, len(report.Files))
	for _, fileMatches := range report.Files {
		payloadFiles[fileMatches.Path] = fileMatches.Matches
	}
	return json.MarshalIndent(checkReportJSONPayload{
		Total:     report.Total(),
		FileCount: len(report.Files),
		Files:     payloadFiles,
	}, "", checkJSONIndentConstant)
}
