package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	requirementsFileGlobConstant        = "requirements*.txt"
	projectFileNameConstant             = "pyproject.toml"
	inlineCommentTemplateConstant       = "# %s (v%s)"
	bareVersionCommentTemplateConstant  = "# v%s"
	commentedLineTemplateConstant       = "%s  %s"
	annotatedFileWriteErrorTemplate     = "unable to write %s: %w"
	existingCommentVersionPatternSource = `v?\d+(\.\d+)+`
)

var existingCommentVersionPattern = regexp.MustCompile(existingCommentVersionPatternSource)

// CommentAnnotation is the version comment to apply to one package's
// dependency lines.
type CommentAnnotation struct {
	PackageName string
	Version     string
	Summary     string
}

// renderComment builds the inline annotation for a dependency line.
func renderComment(annotation CommentAnnotation) string {
	if len(annotation.Summary) > 0 {
		return fmt.Sprintf(inlineCommentTemplateConstant, annotation.Summary, annotation.Version)
	}
	return fmt.Sprintf(bareVersionCommentTemplateConstant, annotation.Version)
}

// CommentSyncer rewrites inline version comments on dependency lines in
// pyproject.toml and requirements files.
type CommentSyncer struct {
	projectRoot string
}

// NewCommentSyncer creates a CommentSyncer rooted at the project directory.
func NewCommentSyncer(projectRoot string) *CommentSyncer {
	return &CommentSyncer{projectRoot: projectRoot}
}

// Sync applies the annotations to every dependency file and returns the
// number of changed lines. Files are rewritten wholesale only when a line
// actually changes.
func (syncer *CommentSyncer) Sync(annotations []CommentAnnotation) (int, error) {
	annotationsByPackage := map[string]CommentAnnotation{}
	for _, annotation := range annotations {
		if len(annotation.Version) == 0 {
			continue
		}
		annotationsByPackage[NormalizePackageName(annotation.PackageName)] = annotation
	}
	if len(annotationsByPackage) == 0 {
		return 0, nil
	}

	dependencyFilePaths := []string{filepath.Join(syncer.projectRoot, projectFileNameConstant)}
	requirementsMatches, _ := filepath.Glob(filepath.Join(syncer.projectRoot, requirementsFileGlobConstant))
	sort.Strings(requirementsMatches)
	dependencyFilePaths = append(dependencyFilePaths, requirementsMatches...)

	changedLineCount := 0
	for _, dependencyFilePath := range dependencyFilePaths {
		fileChangedLines, syncError := syncer.syncFile(dependencyFilePath, annotationsByPackage)
		if syncError != nil {
			return changedLineCount, syncError
		}
		changedLineCount += fileChangedLines
	}
	return changedLineCount, nil
}

func (syncer *CommentSyncer) syncFile(dependencyFilePath string, annotationsByPackage map[string]CommentAnnotation) (int, error) {
	fileContents, readError := os.ReadFile(dependencyFilePath)
	if readError != nil {
		return 0, nil
	}

	fileLines := strings.Split(string(fileContents), "\n")
	changedLineCount := 0
	for lineIndex, fileLine := range fileLines {
		annotation, annotationFound := annotationForLine(fileLine, annotationsByPackage)
		if !annotationFound {
			continue
		}
		updatedLine := applyCommentToLine(fileLine, renderComment(annotation))
		if updatedLine != fileLine {
			fileLines[lineIndex] = updatedLine
			changedLineCount++
		}
	}

	if changedLineCount == 0 {
		return 0, nil
	}
	if writeError := os.WriteFile(dependencyFilePath, []byte(strings.Join(fileLines, "\n")), 0o644); writeError != nil {
		return 0, fmt.Errorf(annotatedFileWriteErrorTemplate, dependencyFilePath, writeError)
	}
	return changedLineCount, nil
}

// annotationForLine matches a dependency line to its package annotation by
// extracting the leading distribution name from the line's specifier.
func annotationForLine(fileLine string, annotationsByPackage map[string]CommentAnnotation) (CommentAnnotation, bool) {
	lineContent := strings.TrimSpace(fileLine)
	lineContent = strings.TrimPrefix(lineContent, `"`)
	lineContent = strings.TrimPrefix(lineContent, `'`)
	packageName := packageNameFromSpecifier(lineContent)
	if len(packageName) == 0 {
		return CommentAnnotation{}, false
	}
	annotation, annotationFound := annotationsByPackage[NormalizePackageName(packageName)]
	return annotation, annotationFound
}

// applyCommentToLine refreshes an existing version comment in place or
// appends a new one after the line's content. A comment without a version
// token is left alone.
func applyCommentToLine(fileLine string, renderedComment string) string {
	commentIndex := strings.Index(fileLine, "#")
	if commentIndex < 0 {
		return fmt.Sprintf(commentedLineTemplateConstant, strings.TrimRight(fileLine, " "), renderedComment)
	}
	if existingCommentVersionPattern.MatchString(fileLine[commentIndex:]) {
		return fmt.Sprintf(commentedLineTemplateConstant, strings.TrimRight(fileLine[:commentIndex], " "), renderedComment)
	}
	return fileLine
}
