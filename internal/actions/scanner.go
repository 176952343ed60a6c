package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	workflowFileExtensionYMLConstant        = ".yml"
	workflowFileExtensionYAMLConstant       = ".yaml"
	workflowDirectoryReadErrorTemplate      = "unable to read workflows directory %s: %w"
	workflowFileReadErrorTemplateConstant   = "unable to read workflow file %s: %w"
	commentMarkerConstant                   = "#"
	descriptionTagOpenParenthesisConstant   = "("
	descriptionTagClosedParenthesisConstant = ")"
)

var (
	pinnedUsesLinePattern = regexp.MustCompile(`^(\s*(?:-\s+)?uses:\s*)([A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+(?:/[A-Za-z0-9_./-]+)?)@([0-9a-fA-F]{40})\s*(#.*)?$`)
	commentTagPattern     = regexp.MustCompile(`^v?\d+(?:\.\d+)*$`)
)

// WorkflowScanner discovers SHA-pinned action references in workflow files.
type WorkflowScanner struct{}

// NewWorkflowScanner creates a WorkflowScanner.
func NewWorkflowScanner() *WorkflowScanner {
	return &WorkflowScanner{}
}

// ScanDirectory reads every workflow file in the directory and returns the
// pinned action references found, ordered by file then line number.
func (scanner *WorkflowScanner) ScanDirectory(workflowsDirectory string) ([]ActionReference, error) {
	directoryEntries, readDirectoryError := os.ReadDir(workflowsDirectory)
	if readDirectoryError != nil {
		return nil, fmt.Errorf(workflowDirectoryReadErrorTemplate, workflowsDirectory, readDirectoryError)
	}

	workflowFilePaths := make([]string, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		entryExtension := filepath.Ext(directoryEntry.Name())
		if entryExtension != workflowFileExtensionYMLConstant && entryExtension != workflowFileExtensionYAMLConstant {
			continue
		}
		workflowFilePaths = append(workflowFilePaths, filepath.Join(workflowsDirectory, directoryEntry.Name()))
	}
	sort.Strings(workflowFilePaths)

	discoveredReferences := make([]ActionReference, 0)
	for _, workflowFilePath := range workflowFilePaths {
		fileReferences, scanFileError := scanner.ScanFile(workflowFilePath)
		if scanFileError != nil {
			return nil, scanFileError
		}
		discoveredReferences = append(discoveredReferences, fileReferences...)
	}

	return discoveredReferences, nil
}

// ScanFile returns the pinned action references found in a single workflow
// file.
func (scanner *WorkflowScanner) ScanFile(workflowFilePath string) ([]ActionReference, error) {
	fileContents, readFileError := os.ReadFile(workflowFilePath)
	if readFileError != nil {
		return nil, fmt.Errorf(workflowFileReadErrorTemplateConstant, workflowFilePath, readFileError)
	}

	fileLines := strings.Split(string(fileContents), "\n")
	fileReferences := make([]ActionReference, 0)
	for lineIndex, lineText := range fileLines {
		patternMatch := pinnedUsesLinePattern.FindStringSubmatch(lineText)
		if patternMatch == nil {
			continue
		}
		commentDescription, commentTag := parseInlineComment(patternMatch[4])
		fileReferences = append(fileReferences, ActionReference{
			FilePath:           workflowFilePath,
			LineNumber:         lineIndex + 1,
			LinePrefix:         patternMatch[1],
			Slug:               patternMatch[2],
			CommitSHA:          strings.ToLower(patternMatch[3]),
			CommentDescription: commentDescription,
			CommentTag:         commentTag,
		})
	}

	return fileReferences, nil
}

// parseInlineComment splits a trailing comment into its description and tag
// parts. Recognized shapes are "# v1.2.3" and "# Description (v1.2.3)"; any
// other comment text is treated as a description without a tag.
func parseInlineComment(rawComment string) (string, string) {
	commentText := strings.TrimSpace(rawComment)
	commentText = strings.TrimSpace(strings.TrimPrefix(commentText, commentMarkerConstant))
	if len(commentText) == 0 {
		return "", ""
	}

	if commentTagPattern.MatchString(commentText) {
		return "", commentText
	}

	if strings.HasSuffix(commentText, descriptionTagClosedParenthesisConstant) {
		openIndex := strings.LastIndex(commentText, descriptionTagOpenParenthesisConstant)
		if openIndex > 0 {
			tagCandidate := strings.TrimSuffix(commentText[openIndex+1:], descriptionTagClosedParenthesisConstant)
			if commentTagPattern.MatchString(tagCandidate) {
				return strings.TrimSpace(commentText[:openIndex]), tagCandidate
			}
		}
	}

	return commentText, ""
}
