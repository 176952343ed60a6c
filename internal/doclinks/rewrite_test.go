package doclinks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tend/internal/doclinks"
)

var rewriteConfig = doclinks.RewriteConfig{
	RepositoryURL: "https://github.com/example/project",
	Branch:        "main",
	DocsDir:       "docs",
}

func TestRewritePageRewritesEscapingLinks(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name           string
		pageMarkdown   string
		pagePath       string
		expectedResult string
	}{
		{
			name:           "markdown_link_to_repository_file",
			pageMarkdown:   "See [the config](../pyproject.toml) for details.",
			pagePath:       "guide.md",
			expectedResult: "See [the config](https://github.com/example/project/blob/main/pyproject.toml) for details.",
		},
		{
			name:           "markdown_link_to_repository_directory",
			pageMarkdown:   "Browse [sources](../src).",
			pagePath:       "guide.md",
			expectedResult: "Browse [sources](https://github.com/example/project/tree/main/src).",
		},
		{
			name:           "nested_page_resolves_against_its_directory",
			pageMarkdown:   "See [the config](../../pyproject.toml).",
			pagePath:       "reference/api.md",
			expectedResult: "See [the config](https://github.com/example/project/blob/main/pyproject.toml).",
		},
		{
			name:           "known_extensionless_file_uses_blob_view",
			pageMarkdown:   "Licensed under [MIT](../LICENSE).",
			pagePath:       "guide.md",
			expectedResult: "Licensed under [MIT](https://github.com/example/project/blob/main/LICENSE).",
		},
		{
			name:           "fragment_preserved",
			pageMarkdown:   "See [usage](../README.md#usage).",
			pagePath:       "guide.md",
			expectedResult: "See [usage](https://github.com/example/project/blob/main/README.md#usage).",
		},
		{
			name:           "html_anchor_rewritten",
			pageMarkdown:   `Open <a href="../Makefile">the Makefile</a>.`,
			pagePath:       "guide.md",
			expectedResult: `Open <a href="https://github.com/example/project/blob/main/Makefile">the Makefile</a>.`,
		},
		{
			name:           "reference_definition_rewritten",
			pageMarkdown:   "[config]: ../pyproject.toml",
			pagePath:       "guide.md",
			expectedResult: "[config]: https://github.com/example/project/blob/main/pyproject.toml",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			subtestInstance.Parallel()
			rewrittenMarkdown := doclinks.RewritePage(testCase.pageMarkdown, testCase.pagePath, rewriteConfig)
			require.Equal(subtestInstance, testCase.expectedResult, rewrittenMarkdown)
		})
	}
}

func TestRewritePageLeavesLinksUntouched(testInstance *testing.T) {
	testInstance.Parallel()

	testCases := []struct {
		name         string
		pageMarkdown string
		pagePath     string
	}{
		{name: "in_docs_relative_link", pageMarkdown: "See [setup](setup.md).", pagePath: "guide.md"},
		{name: "in_docs_sibling_directory", pageMarkdown: "See [api](../reference/api.md).", pagePath: "guides/intro.md"},
		{name: "absolute_url", pageMarkdown: "See [upstream](https://example.com/page).", pagePath: "guide.md"},
		{name: "fragment_only", pageMarkdown: "See [below](#details).", pagePath: "guide.md"},
		{name: "image_link", pageMarkdown: "![diagram](../assets/diagram.png)", pagePath: "guide.md"},
		{name: "mailto_link", pageMarkdown: "Contact [us](mailto:team@example.com).", pagePath: "guide.md"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			subtestInstance.Parallel()
			rewrittenMarkdown := doclinks.RewritePage(testCase.pageMarkdown, testCase.pagePath, rewriteConfig)
			require.Equal(subtestInstance, testCase.pageMarkdown, rewrittenMarkdown)
		})
	}
}

func TestRewritePageNeverTouchesProtectedRegions(testInstance *testing.T) {
	testInstance.Parallel()

	pageMarkdown := "Intro [real](../pyproject.toml)\n\n" +
		"```markdown\n[example](../pyproject.toml)\n```\n\n" +
		"Inline `[span](../pyproject.toml)` stays.\n\n" +
		"<!-- [comment](../pyproject.toml) -->\n"
	rewrittenMarkdown := doclinks.RewritePage(pageMarkdown, "guide.md", rewriteConfig)

	require.Contains(testInstance, rewrittenMarkdown, "[real](https://github.com/example/project/blob/main/pyproject.toml)")
	require.Contains(testInstance, rewrittenMarkdown, "```markdown\n[example](../pyproject.toml)\n```")
	require.Contains(testInstance, rewrittenMarkdown, "Inline `[span](../pyproject.toml)` stays.")
	require.Contains(testInstance, rewrittenMarkdown, "<!-- [comment](../pyproject.toml) -->")
}

func TestLoadSiteSettingsMissingFileDefaults(testInstance *testing.T) {
	testInstance.Parallel()

	siteSettings := doclinks.LoadSiteSettings(testInstance.TempDir() + "/mkdocs.yml")
	require.Empty(testInstance, siteSettings.RepositoryURL)
	require.Equal(testInstance, "main", siteSettings.Branch)
}
