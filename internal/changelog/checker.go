package changelog

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/temirov/tend/internal/execshell"
)

const (
	changelogReadErrorTemplateConstant = "unable to read changelog %s: %w"
	tagListErrorTemplateConstant       = "unable to list git tags: %w"
	gitTagSubcommandConstant           = "tag"
	gitTagListFlagConstant             = "--list"
	gitTagPatternConstant              = "v*"
	tagPrefixConstant                  = "v"
)

var versionHeadingPattern = regexp.MustCompile(`(?m)^##\s+\[?(\d+\.\d+\.\d+(?:[-.][0-9A-Za-z.]+)?)\]?`)

// DriftReport summarizes the comparison between changelog headings and git
// tags.
type DriftReport struct {
	// NotTagged lists versions with a changelog heading but no tag.
	NotTagged []string
	// NotListed lists tagged versions without a changelog heading.
	NotListed []string
	// InSync lists versions present on both sides.
	InSync []string
	// Duplicates lists versions that appear more than once in the changelog.
	Duplicates []string
}

// HasDrift reports whether any version is missing on either side or
// duplicated.
func (report DriftReport) HasDrift() bool {
	return len(report.NotTagged) > 0 || len(report.NotListed) > 0 || len(report.Duplicates) > 0
}

// Checker compares changelog headings against repository tags.
type Checker struct {
	shellExecutor *execshell.ShellExecutor
}

// NewChecker creates a Checker backed by the shell executor.
func NewChecker(shellExecutor *execshell.ShellExecutor) *Checker {
	return &Checker{shellExecutor: shellExecutor}
}

// Check parses the changelog, lists v-prefixed tags, and reports the set
// differences.
func (checker *Checker) Check(executionContext context.Context, changelogPath string, workingDirectory string) (DriftReport, error) {
	changelogContents, readError := os.ReadFile(changelogPath)
	if readError != nil {
		return DriftReport{}, fmt.Errorf(changelogReadErrorTemplateConstant, changelogPath, readError)
	}
	changelogVersions, duplicateVersions := parseHeadingVersions(string(changelogContents))

	taggedVersions, tagsError := checker.listTagVersions(executionContext, workingDirectory)
	if tagsError != nil {
		return DriftReport{}, tagsError
	}

	driftReport := DriftReport{Duplicates: duplicateVersions}
	for _, changelogVersion := range changelogVersions {
		if _, isTagged := taggedVersions[changelogVersion]; isTagged {
			driftReport.InSync = append(driftReport.InSync, changelogVersion)
		} else {
			driftReport.NotTagged = append(driftReport.NotTagged, changelogVersion)
		}
	}

	changelogVersionSet := map[string]struct{}{}
	for _, changelogVersion := range changelogVersions {
		changelogVersionSet[changelogVersion] = struct{}{}
	}
	for taggedVersion := range taggedVersions {
		if _, isListed := changelogVersionSet[taggedVersion]; !isListed {
			driftReport.NotListed = append(driftReport.NotListed, taggedVersion)
		}
	}

	sortVersions(driftReport.NotTagged)
	sortVersions(driftReport.NotListed)
	sortVersions(driftReport.InSync)
	sortVersions(driftReport.Duplicates)
	return driftReport, nil
}

// parseHeadingVersions extracts version headings in document order, also
// reporting versions that occur more than once.
func parseHeadingVersions(changelogContents string) ([]string, []string) {
	headingMatches := versionHeadingPattern.FindAllStringSubmatch(changelogContents, -1)
	seenVersions := map[string]int{}
	orderedVersions := make([]string, 0, len(headingMatches))
	duplicateVersions := make([]string, 0)
	for _, headingMatch := range headingMatches {
		headingVersion := headingMatch[1]
		seenVersions[headingVersion]++
		if seenVersions[headingVersion] == 1 {
			orderedVersions = append(orderedVersions, headingVersion)
		}
		if seenVersions[headingVersion] == 2 {
			duplicateVersions = append(duplicateVersions, headingVersion)
		}
	}
	return orderedVersions, duplicateVersions
}

func (checker *Checker) listTagVersions(executionContext context.Context, workingDirectory string) (map[string]struct{}, error) {
	executionResult, executionError := checker.shellExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitTagSubcommandConstant, gitTagListFlagConstant, gitTagPatternConstant},
		WorkingDirectory: workingDirectory,
	})
	if executionError != nil {
		return nil, fmt.Errorf(tagListErrorTemplateConstant, executionError)
	}

	taggedVersions := map[string]struct{}{}
	for _, tagLine := range strings.Split(executionResult.StandardOutput, "\n") {
		trimmedTag := strings.TrimSpace(tagLine)
		if len(trimmedTag) == 0 {
			continue
		}
		taggedVersions[strings.TrimPrefix(trimmedTag, tagPrefixConstant)] = struct{}{}
	}
	return taggedVersions, nil
}

// sortVersions orders version strings by their numeric segments so 0.10.0
// sorts after 0.9.0.
func sortVersions(versionList []string) {
	sort.Slice(versionList, func(firstIndex int, secondIndex int) bool {
		return compareVersions(versionList[firstIndex], versionList[secondIndex]) < 0
	})
}

func compareVersions(firstVersion string, secondVersion string) int {
	firstCandidate := tagPrefixConstant + firstVersion
	secondCandidate := tagPrefixConstant + secondVersion
	if semver.IsValid(firstCandidate) && semver.IsValid(secondCandidate) {
		return semver.Compare(firstCandidate, secondCandidate)
	}
	return compareNumericVersions(firstVersion, secondVersion)
}

// compareNumericVersions handles headings that are not valid semver, such
// as post-release suffixes.
func compareNumericVersions(firstVersion string, secondVersion string) int {
	firstSegments := strings.Split(strings.SplitN(firstVersion, "-", 2)[0], ".")
	secondSegments := strings.Split(strings.SplitN(secondVersion, "-", 2)[0], ".")
	for segmentIndex := 0; segmentIndex < len(firstSegments) && segmentIndex < len(secondSegments); segmentIndex++ {
		firstValue, _ := strconv.Atoi(firstSegments[segmentIndex])
		secondValue, _ := strconv.Atoi(secondSegments[segmentIndex])
		if firstValue != secondValue {
			return firstValue - secondValue
		}
	}
	return len(firstSegments) - len(secondSegments)
}
