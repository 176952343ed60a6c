package doclinks

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	docsCommandUseConstant                 = "docs"
	docsCommandShortDescriptionConstant    = "Documentation maintenance commands"
	docsCommandLongDescriptionConstant     = "docs provides commands that keep documentation pages consistent."
	rewriteCommandUseConstant              = "rewrite-links"
	rewriteCommandShortDescriptionConstant = "Rewrite out-of-docs relative links to absolute repository URLs"

	docsDirFlagNameConstant        = "docs-dir"
	docsDirFlagDescriptionConstant = "Documentation root directory"
	repoURLFlagNameConstant        = "repo-url"
	repoURLFlagDescriptionConstant = "Repository hosting URL used for rewritten links"
	branchFlagNameConstant         = "branch"
	branchFlagDescriptionConstant  = "Branch referenced by rewritten links"
	checkFlagNameConstant          = "check"
	checkFlagDescriptionConstant   = "Report pages that would change without writing"
	writeFlagNameConstant          = "write"
	writeFlagDescriptionConstant   = "Rewrite pages in place"
	missingRepoURLErrorMessage     = "repository URL not configured; pass --repo-url or set repo_url in mkdocs.yml"
	modeSelectionErrorMessage      = "exactly one of --check or --write must be set"
	rewriteSummaryTemplateConstant = "%d page(s) with rewritten links\n"
	defaultDocsDirectoryConstant   = "docs"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the docs command hierarchy.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
}

// Build constructs the docs command with the rewrite-links subcommand.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	docsCommand := &cobra.Command{
		Use:   docsCommandUseConstant,
		Short: docsCommandShortDescriptionConstant,
		Long:  docsCommandLongDescriptionConstant,
	}

	rewriteCommand := &cobra.Command{
		Use:   rewriteCommandUseConstant,
		Short: rewriteCommandShortDescriptionConstant,
		RunE:  builder.runRewriteLinks,
	}
	rewriteCommand.Flags().String(docsDirFlagNameConstant, defaultDocsDirectoryConstant, docsDirFlagDescriptionConstant)
	rewriteCommand.Flags().String(repoURLFlagNameConstant, "", repoURLFlagDescriptionConstant)
	rewriteCommand.Flags().String(branchFlagNameConstant, "", branchFlagDescriptionConstant)
	rewriteCommand.Flags().Bool(checkFlagNameConstant, false, checkFlagDescriptionConstant)
	rewriteCommand.Flags().Bool(writeFlagNameConstant, false, writeFlagDescriptionConstant)

	docsCommand.AddCommand(rewriteCommand)
	return docsCommand, nil
}

func (builder *CommandBuilder) runRewriteLinks(command *cobra.Command, arguments []string) error {
	docsDirectory, docsDirError := command.Flags().GetString(docsDirFlagNameConstant)
	if docsDirError != nil {
		return docsDirError
	}
	repositoryURL, repoURLError := command.Flags().GetString(repoURLFlagNameConstant)
	if repoURLError != nil {
		return repoURLError
	}
	branchName, branchError := command.Flags().GetString(branchFlagNameConstant)
	if branchError != nil {
		return branchError
	}
	checkMode, checkError := command.Flags().GetBool(checkFlagNameConstant)
	if checkError != nil {
		return checkError
	}
	writeMode, writeError := command.Flags().GetBool(writeFlagNameConstant)
	if writeError != nil {
		return writeError
	}
	if checkMode == writeMode {
		return errors.New(modeSelectionErrorMessage)
	}

	siteSettings := LoadSiteSettings(filepath.Join(filepath.Dir(docsDirectory), mkdocsConfigFileNameConstant))
	if len(strings.TrimSpace(repositoryURL)) == 0 {
		repositoryURL = siteSettings.RepositoryURL
	}
	if len(strings.TrimSpace(branchName)) == 0 {
		branchName = siteSettings.Branch
	}
	if len(strings.TrimSpace(repositoryURL)) == 0 {
		return errors.New(missingRepoURLErrorMessage)
	}

	service := NewService(builder.resolveLogger())
	changedPageCount, runError := service.Run(PassOptions{
		DocsDirectory: docsDirectory,
		Config: RewriteConfig{
			RepositoryURL: repositoryURL,
			Branch:        branchName,
			DocsDir:       filepath.Base(docsDirectory),
		},
		Write:        writeMode,
		OutputWriter: command.OutOrStdout(),
	})
	if runError != nil {
		return runError
	}
	fmt.Fprintf(command.OutOrStdout(), rewriteSummaryTemplateConstant, changedPageCount)
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
