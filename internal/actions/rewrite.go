package actions

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	bareTagCommentTemplateConstant        = "# %s"
	describedTagCommentTemplateConstant   = "# %s (%s)"
	pinnedLineTemplateConstant            = "%s%s@%s %s"
	rewrittenFilePermissionsConstant      = 0o644
	vanishedFileLogMessageConstant        = "workflow file vanished before rewrite; skipping"
	changedLineLogMessageConstant         = "workflow line changed since scan; skipping"
	fileWriteErrorTemplateConstant        = "unable to write workflow file %s: %w"
	rewriteFilePathLogFieldNameConstant   = "file"
	rewriteLineNumberLogFieldNameConstant = "line"
)

// LineUpdate describes one pending replacement of a pinned uses line.
type LineUpdate struct {
	Reference  ActionReference
	NewSHA     string
	NewComment string
}

// FormatComment renders the canonical inline comment for a tag and optional
// description.
func FormatComment(description string, tagName string) string {
	if len(description) > 0 {
		return fmt.Sprintf(describedTagCommentTemplateConstant, description, tagName)
	}
	return fmt.Sprintf(bareTagCommentTemplateConstant, tagName)
}

// renderUpdatedLine rebuilds a pinned uses line with the replacement SHA and
// comment, preserving the original indentation and list marker.
func renderUpdatedLine(update LineUpdate) string {
	replacementSHA := update.Reference.CommitSHA
	if len(update.NewSHA) > 0 {
		replacementSHA = update.NewSHA
	}
	return fmt.Sprintf(pinnedLineTemplateConstant, update.Reference.LinePrefix, update.Reference.Slug, replacementSHA, update.NewComment)
}

// FileRewriter applies pending line updates as whole-file rewrites.
type FileRewriter struct {
	logger *zap.Logger
}

// NewFileRewriter creates a FileRewriter.
func NewFileRewriter(logger *zap.Logger) *FileRewriter {
	return &FileRewriter{logger: logger}
}

// Apply groups updates by file and rewrites each file once. Files that
// vanished between scan and write are skipped with a diagnostic; lines whose
// content changed since the scan are left untouched. The returned count is
// the number of lines actually rewritten.
func (rewriter *FileRewriter) Apply(pendingUpdates []LineUpdate) (int, error) {
	updatesByFile := map[string][]LineUpdate{}
	for _, pendingUpdate := range pendingUpdates {
		updatesByFile[pendingUpdate.Reference.FilePath] = append(updatesByFile[pendingUpdate.Reference.FilePath], pendingUpdate)
	}

	updatedFilePaths := make([]string, 0, len(updatesByFile))
	for updatedFilePath := range updatesByFile {
		updatedFilePaths = append(updatedFilePaths, updatedFilePath)
	}
	sort.Strings(updatedFilePaths)

	appliedCount := 0
	for _, updatedFilePath := range updatedFilePaths {
		fileContents, readFileError := os.ReadFile(updatedFilePath)
		if readFileError != nil {
			rewriter.logger.Warn(vanishedFileLogMessageConstant, zap.String(rewriteFilePathLogFieldNameConstant, updatedFilePath), zap.Error(readFileError))
			continue
		}

		fileLines := strings.Split(string(fileContents), "\n")
		fileChanged := false
		for _, pendingUpdate := range updatesByFile[updatedFilePath] {
			lineIndex := pendingUpdate.Reference.LineNumber - 1
			if lineIndex < 0 || lineIndex >= len(fileLines) {
				rewriter.logger.Warn(changedLineLogMessageConstant, zap.String(rewriteFilePathLogFieldNameConstant, updatedFilePath), zap.Int(rewriteLineNumberLogFieldNameConstant, pendingUpdate.Reference.LineNumber))
				continue
			}
			if !strings.Contains(fileLines[lineIndex], pendingUpdate.Reference.Slug+"@"+pendingUpdate.Reference.CommitSHA) {
				rewriter.logger.Warn(changedLineLogMessageConstant, zap.String(rewriteFilePathLogFieldNameConstant, updatedFilePath), zap.Int(rewriteLineNumberLogFieldNameConstant, pendingUpdate.Reference.LineNumber))
				continue
			}
			fileLines[lineIndex] = renderUpdatedLine(pendingUpdate)
			fileChanged = true
			appliedCount++
		}

		if !fileChanged {
			continue
		}
		if writeFileError := os.WriteFile(updatedFilePath, []byte(strings.Join(fileLines, "\n")), rewrittenFilePermissionsConstant); writeFileError != nil {
			return appliedCount, fmt.Errorf(fileWriteErrorTemplateConstant, updatedFilePath, writeFileError)
		}
	}

	return appliedCount, nil
}
