package todos

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const (
	todoFileReadErrorTemplateConstant    = "unable to read todo file %s: %w"
	archiveFileReadErrorTemplateConstant = "unable to read archive file %s: %w"
	fileWriteErrorTemplateConstant       = "unable to write %s: %w"
	monthHeadingTemplateConstant         = "## %s"
	completedHeadingConstant             = "### Completed"
	monthHeadingPrefixConstant           = "## "
	headingPrefixConstant                = "#"
	monthYearLayoutConstant              = "January 2006"
	archivedFilePermissionsConstant      = 0o644
)

var (
	checkedItemPattern       = regexp.MustCompile(`^- \[[xX]\] `)
	continuationLinePattern  = regexp.MustCompile(`^\s+\S`)
	excessiveNewlinesPattern = regexp.MustCompile(`\n{3,}`)
)

// Archiver moves completed checklist blocks between a todo file and an
// archive file.
type Archiver struct {
	clock func() time.Time
}

// NewArchiver creates an Archiver using the system clock.
func NewArchiver() *Archiver {
	return &Archiver{clock: time.Now}
}

// ArchiveOptions configures one archiving pass.
type ArchiveOptions struct {
	TodoPath    string
	ArchivePath string
	DryRun      bool
}

// Archive moves every checked item block from the todo file into the
// archive's current-month Completed section and returns the number of
// archived blocks. Both files must exist.
func (archiver *Archiver) Archive(options ArchiveOptions) (int, error) {
	todoContents, todoReadError := os.ReadFile(options.TodoPath)
	if todoReadError != nil {
		return 0, fmt.Errorf(todoFileReadErrorTemplateConstant, options.TodoPath, todoReadError)
	}
	archiveContents, archiveReadError := os.ReadFile(options.ArchivePath)
	if archiveReadError != nil {
		return 0, fmt.Errorf(archiveFileReadErrorTemplateConstant, options.ArchivePath, archiveReadError)
	}

	completedBlocks, remainingTodo := CollectCompletedBlocks(string(todoContents))
	if len(completedBlocks) == 0 {
		return 0, nil
	}
	if options.DryRun {
		return len(completedBlocks), nil
	}

	monthHeading := fmt.Sprintf(monthHeadingTemplateConstant, archiver.clock().Format(monthYearLayoutConstant))
	updatedArchive := insertIntoArchive(string(archiveContents), completedBlocks, monthHeading)

	if writeError := os.WriteFile(options.TodoPath, []byte(remainingTodo), archivedFilePermissionsConstant); writeError != nil {
		return 0, fmt.Errorf(fileWriteErrorTemplateConstant, options.TodoPath, writeError)
	}
	if writeError := os.WriteFile(options.ArchivePath, []byte(updatedArchive), archivedFilePermissionsConstant); writeError != nil {
		return 0, fmt.Errorf(fileWriteErrorTemplateConstant, options.ArchivePath, writeError)
	}
	return len(completedBlocks), nil
}

// CollectCompletedBlocks extracts every checked item block from the todo
// contents. A block is a checked list item plus its indented continuation
// lines. The returned remainder has the blocks removed and runs of three or
// more newlines collapsed to a single blank line.
func CollectCompletedBlocks(todoContents string) ([]string, string) {
	todoLines := strings.Split(todoContents, "\n")
	completedBlocks := make([]string, 0)
	remainingLines := make([]string, 0, len(todoLines))

	lineIndex := 0
	for lineIndex < len(todoLines) {
		if !checkedItemPattern.MatchString(todoLines[lineIndex]) {
			remainingLines = append(remainingLines, todoLines[lineIndex])
			lineIndex++
			continue
		}

		blockLines := []string{todoLines[lineIndex]}
		lineIndex++
		for lineIndex < len(todoLines) && continuationLinePattern.MatchString(todoLines[lineIndex]) {
			blockLines = append(blockLines, todoLines[lineIndex])
			lineIndex++
		}
		completedBlocks = append(completedBlocks, strings.Join(blockLines, "\n"))
	}

	remainingTodo := strings.Join(remainingLines, "\n")
	remainingTodo = excessiveNewlinesPattern.ReplaceAllString(remainingTodo, "\n\n")
	return completedBlocks, remainingTodo
}

// insertIntoArchive appends the blocks under the month's Completed section,
// creating the month and Completed headings when absent.
func insertIntoArchive(archiveContents string, completedBlocks []string, monthHeading string) string {
	blockText := strings.Join(completedBlocks, "\n")
	trimmedArchive := strings.TrimRight(archiveContents, "\n")

	monthStart := findHeadingLine(trimmedArchive, monthHeading)
	if monthStart < 0 {
		return trimmedArchive + "\n\n" + monthHeading + "\n\n" + completedHeadingConstant + "\n\n" + blockText + "\n"
	}

	archiveLines := strings.Split(trimmedArchive, "\n")
	monthEnd := len(archiveLines)
	for candidateIndex := monthStart + 1; candidateIndex < len(archiveLines); candidateIndex++ {
		if strings.HasPrefix(archiveLines[candidateIndex], monthHeadingPrefixConstant) {
			monthEnd = candidateIndex
			break
		}
	}

	completedStart := -1
	for candidateIndex := monthStart + 1; candidateIndex < monthEnd; candidateIndex++ {
		if strings.TrimSpace(archiveLines[candidateIndex]) == completedHeadingConstant {
			completedStart = candidateIndex
			break
		}
	}

	insertedLines := strings.Split(blockText, "\n")
	if completedStart < 0 {
		sectionLines := append([]string{"", completedHeadingConstant, ""}, insertedLines...)
		archiveLines = insertLines(archiveLines, monthEnd, sectionLines)
	} else {
		completedEnd := monthEnd
		for candidateIndex := completedStart + 1; candidateIndex < monthEnd; candidateIndex++ {
			if strings.HasPrefix(archiveLines[candidateIndex], headingPrefixConstant) {
				completedEnd = candidateIndex
				break
			}
		}
		for completedEnd > completedStart+1 && len(strings.TrimSpace(archiveLines[completedEnd-1])) == 0 {
			completedEnd--
		}
		archiveLines = insertLines(archiveLines, completedEnd, insertedLines)
	}

	return strings.Join(archiveLines, "\n") + "\n"
}

func findHeadingLine(documentContents string, headingText string) int {
	for lineIndex, documentLine := range strings.Split(documentContents, "\n") {
		if strings.TrimSpace(documentLine) == headingText {
			return lineIndex
		}
	}
	return -1
}

func insertLines(existingLines []string, insertionIndex int, insertedLines []string) []string {
	combinedLines := make([]string, 0, len(existingLines)+len(insertedLines))
	combinedLines = append(combinedLines, existingLines[:insertionIndex]...)
	combinedLines = append(combinedLines, insertedLines...)
	combinedLines = append(combinedLines, existingLines[insertionIndex:]...)
	return combinedLines
}
