package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	pycacheDirectoryNameConstant      = "__pycache__"
	eggInfoSuffixConstant             = ".egg-info"
	virtualenvPrefixConstant          = ".venv"
	coverageFileNameConstant          = ".coverage"
	coverageFilePrefixConstant        = ".coverage."
	compiledPythonSuffixConstant      = ".pyc"
	optimizedPythonSuffixConstant     = ".pyo"
	wouldRemoveDirectoryTemplateConst = "would remove directory: %s\n"
	wouldRemoveFileTemplateConstant   = "would remove file: %s\n"
	removedDirectoryTemplateConstant  = "removed directory: %s\n"
	removedFileTemplateConstant       = "removed file: %s\n"
	cleanSummaryTemplateConstant      = "%s %d item(s)\n"
	cleanSummaryRemovedVerbConstant   = "removed"
	cleanSummaryWouldRemoveVerbConst  = "would remove"
)

var cacheDirectoryNames = []string{".pytest_cache", ".mypy_cache", ".ruff_cache", "htmlcov", "site"}

var buildDirectoryNames = []string{"dist", "build"}

// CleanOptions configures one artifact sweep.
type CleanOptions struct {
	RootDirectory string
	DryRun        bool
	IncludeVenv   bool
	OutputWriter  io.Writer
}

// Cleaner removes build artifacts, caches, and byte-compiled files.
type Cleaner struct{}

// NewCleaner creates a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean removes cache directories, build directories, recursive
// __pycache__ and *.egg-info directories, and byte-compiled files under
// the root. Virtual environments are only touched when IncludeVenv is
// set. Returns the number of removed items.
func (cleaner *Cleaner) Clean(options CleanOptions) (int, error) {
	removalCandidates := []string{}

	for _, directoryName := range append(append([]string{}, cacheDirectoryNames...), buildDirectoryNames...) {
		removalCandidates = append(removalCandidates, filepath.Join(options.RootDirectory, directoryName))
	}
	removalCandidates = append(removalCandidates, filepath.Join(options.RootDirectory, coverageFileNameConstant))

	recursiveCandidates, walkError := cleaner.collectRecursiveCandidates(options)
	if walkError != nil {
		return 0, walkError
	}
	removalCandidates = append(removalCandidates, recursiveCandidates...)

	if options.IncludeVenv {
		rootEntries, readError := os.ReadDir(options.RootDirectory)
		if readError != nil {
			return 0, readError
		}
		for _, rootEntry := range rootEntries {
			if rootEntry.IsDir() && strings.HasPrefix(rootEntry.Name(), virtualenvPrefixConstant) {
				removalCandidates = append(removalCandidates, filepath.Join(options.RootDirectory, rootEntry.Name()))
			}
		}
	}

	sort.Strings(removalCandidates)

	removedCount := 0
	for _, candidatePath := range removalCandidates {
		removed, removeError := cleaner.removePath(candidatePath, options)
		if removeError != nil {
			return removedCount, removeError
		}
		if removed {
			removedCount++
		}
	}

	if options.OutputWriter != nil {
		summaryVerb := cleanSummaryRemovedVerbConstant
		if options.DryRun {
			summaryVerb = cleanSummaryWouldRemoveVerbConst
		}
		fmt.Fprintf(options.OutputWriter, cleanSummaryTemplateConstant, summaryVerb, removedCount)
	}
	return removedCount, nil
}

func (cleaner *Cleaner) collectRecursiveCandidates(options CleanOptions) ([]string, error) {
	recursiveCandidates := []string{}
	walkError := filepath.WalkDir(options.RootDirectory, func(visitedPath string, directoryEntry fs.DirEntry, visitError error) error {
		if visitError != nil {
			return nil
		}
		entryName := directoryEntry.Name()
		if directoryEntry.IsDir() {
			if strings.HasPrefix(entryName, virtualenvPrefixConstant) && !options.IncludeVenv {
				return filepath.SkipDir
			}
			if entryName == pycacheDirectoryNameConstant || strings.HasSuffix(entryName, eggInfoSuffixConstant) {
				recursiveCandidates = append(recursiveCandidates, visitedPath)
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(entryName, compiledPythonSuffixConstant) ||
			strings.HasSuffix(entryName, optimizedPythonSuffixConstant) ||
			strings.HasPrefix(entryName, coverageFilePrefixConstant) {
			recursiveCandidates = append(recursiveCandidates, visitedPath)
		}
		return nil
	})
	return recursiveCandidates, walkError
}

func (cleaner *Cleaner) removePath(candidatePath string, options CleanOptions) (bool, error) {
	pathInfo, statError := os.Stat(candidatePath)
	if statError != nil {
		return false, nil
	}

	displayPath := candidatePath
	if relativePath, relativeError := filepath.Rel(options.RootDirectory, candidatePath); relativeError == nil {
		displayPath = relativePath
	}

	if options.DryRun {
		if options.OutputWriter != nil {
			if pathInfo.IsDir() {
				fmt.Fprintf(options.OutputWriter, wouldRemoveDirectoryTemplateConst, displayPath)
			} else {
				fmt.Fprintf(options.OutputWriter, wouldRemoveFileTemplateConstant, displayPath)
			}
		}
		return true, nil
	}

	if removeError := os.RemoveAll(candidatePath); removeError != nil {
		return false, removeError
	}
	if options.OutputWriter != nil {
		if pathInfo.IsDir() {
			fmt.Fprintf(options.OutputWriter, removedDirectoryTemplateConstant, displayPath)
		} else {
			fmt.Fprintf(options.OutputWriter, removedFileTemplateConstant, displayPath)
		}
	}
	return true, nil
}
