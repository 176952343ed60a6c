package doclinks

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	markdownFileExtensionConstant   = ".md"
	docsWalkErrorTemplateConstant   = "unable to walk docs directory %s: %w"
	pageReadErrorTemplateConstant   = "unable to read page %s: %w"
	pageWriteErrorTemplateConstant  = "unable to write page %s: %w"
	pageRewrittenTemplateConstant   = "rewrote %s\n"
	pageWouldChangeTemplateConstant = "would rewrite %s\n"
	rewrittenPagePermissions        = 0o644
)

// PassOptions configures one rewrite pass over a documentation tree.
type PassOptions struct {
	DocsDirectory string
	Config        RewriteConfig
	Write         bool
	OutputWriter  io.Writer
}

// Service applies link rewrites across a documentation tree.
type Service struct {
	logger *zap.Logger
}

// NewService creates a doclinks Service.
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Run rewrites every Markdown page under the docs directory, reporting each
// page whose links change. When Write is false the pass only reports. The
// returned count is the number of pages with changed links.
func (service *Service) Run(options PassOptions) (int, error) {
	changedPageCount := 0
	walkError := filepath.WalkDir(options.DocsDirectory, func(pagePath string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if directoryEntry.IsDir() || !strings.HasSuffix(directoryEntry.Name(), markdownFileExtensionConstant) {
			return nil
		}

		pageContents, readError := os.ReadFile(pagePath)
		if readError != nil {
			return fmt.Errorf(pageReadErrorTemplateConstant, pagePath, readError)
		}

		relativePagePath, relativeError := filepath.Rel(options.DocsDirectory, pagePath)
		if relativeError != nil {
			return relativeError
		}

		rewrittenContents := RewritePage(string(pageContents), filepath.ToSlash(relativePagePath), options.Config)
		if rewrittenContents == string(pageContents) {
			return nil
		}
		changedPageCount++

		if !options.Write {
			fmt.Fprintf(options.OutputWriter, pageWouldChangeTemplateConstant, pagePath)
			return nil
		}
		if writeError := os.WriteFile(pagePath, []byte(rewrittenContents), rewrittenPagePermissions); writeError != nil {
			return fmt.Errorf(pageWriteErrorTemplateConstant, pagePath, writeError)
		}
		fmt.Fprintf(options.OutputWriter, pageRewrittenTemplateConstant, pagePath)
		return nil
	})
	if walkError != nil {
		return changedPageCount, fmt.Errorf(docsWalkErrorTemplateConstant, options.DocsDirectory, walkError)
	}
	return changedPageCount, nil
}
