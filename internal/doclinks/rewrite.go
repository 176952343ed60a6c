package doclinks

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	maskPlaceholderTemplateConstant = "\x00tendmask%d\x00"
	parentTraversalPrefixConstant   = "../"
	blobViewSegmentConstant         = "blob"
	treeViewSegmentConstant         = "tree"
	rewrittenURLTemplateConstant    = "%s/%s/%s/%s"
	imageLinkMarkerConstant         = "!"
	fragmentSeparatorConstant       = "#"
	querySeparatorConstant          = "?"
	schemeSeparatorConstant         = "://"
	mailtoSchemeConstant            = "mailto:"
)

var (
	fencedCodeBlockPattern     = regexp.MustCompile("(?s)```.*?```")
	htmlCommentPattern         = regexp.MustCompile(`(?s)<!--.*?-->`)
	inlineCodeSpanPattern      = regexp.MustCompile("`[^`\n]*`")
	markdownLinkPattern        = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)\)`)
	htmlAnchorHrefPattern      = regexp.MustCompile(`(?i)(<a\s[^>]*href=")([^"]+)(")`)
	referenceDefinitionPattern = regexp.MustCompile(`(?m)^(\s*\[[^\]]+\]:\s*)(\S+)`)
)

// extensionlessRepositoryFiles lists well-known files without extensions
// that should link to the file view rather than the directory view.
var extensionlessRepositoryFiles = map[string]struct{}{
	"LICENSE":      {},
	"Makefile":     {},
	"Dockerfile":   {},
	"Justfile":     {},
	"CODEOWNERS":   {},
	"AUTHORS":      {},
	"NOTICE":       {},
	"CONTRIBUTING": {},
}

// RewriteConfig describes the repository hosting layout used for rewrites.
type RewriteConfig struct {
	// RepositoryURL is the hosting UI base, for example
	// https://github.com/owner/repo.
	RepositoryURL string
	// Branch is the default branch used in rewritten URLs.
	Branch string
	// DocsDir is the documentation root relative to the repository root.
	DocsDir string
}

// RewritePage rewrites the links of one documentation page. pagePath is the
// page location relative to the documentation root. Links whose resolved
// target stays inside the documentation root, absolute URLs, fragments, and
// anything inside masked regions are returned unchanged.
func RewritePage(pageMarkdown string, pagePath string, config RewriteConfig) string {
	maskedMarkdown, maskedRegions := maskProtectedRegions(pageMarkdown)
	pageDirectory := path.Dir(pagePath)

	rewrittenMarkdown := markdownLinkPattern.ReplaceAllStringFunc(maskedMarkdown, func(matchedLink string) string {
		linkParts := markdownLinkPattern.FindStringSubmatch(matchedLink)
		if linkParts[1] == imageLinkMarkerConstant {
			return matchedLink
		}
		rewrittenTarget, rewritten := rewriteTarget(linkParts[3], pageDirectory, config)
		if !rewritten {
			return matchedLink
		}
		return fmt.Sprintf("%s[%s](%s)", linkParts[1], linkParts[2], rewrittenTarget)
	})

	rewrittenMarkdown = htmlAnchorHrefPattern.ReplaceAllStringFunc(rewrittenMarkdown, func(matchedAnchor string) string {
		anchorParts := htmlAnchorHrefPattern.FindStringSubmatch(matchedAnchor)
		rewrittenTarget, rewritten := rewriteTarget(anchorParts[2], pageDirectory, config)
		if !rewritten {
			return matchedAnchor
		}
		return anchorParts[1] + rewrittenTarget + anchorParts[3]
	})

	rewrittenMarkdown = referenceDefinitionPattern.ReplaceAllStringFunc(rewrittenMarkdown, func(matchedDefinition string) string {
		definitionParts := referenceDefinitionPattern.FindStringSubmatch(matchedDefinition)
		rewrittenTarget, rewritten := rewriteTarget(definitionParts[2], pageDirectory, config)
		if !rewritten {
			return matchedDefinition
		}
		return definitionParts[1] + rewrittenTarget
	})

	return restoreProtectedRegions(rewrittenMarkdown, maskedRegions)
}

// maskProtectedRegions substitutes fenced code blocks, HTML comments, and
// inline code spans with unique placeholders, returning the masked text and
// the original regions in placeholder order.
func maskProtectedRegions(pageMarkdown string) (string, []string) {
	maskedRegions := make([]string, 0)
	maskRegion := func(matchedRegion string) string {
		placeholder := fmt.Sprintf(maskPlaceholderTemplateConstant, len(maskedRegions))
		maskedRegions = append(maskedRegions, matchedRegion)
		return placeholder
	}

	maskedMarkdown := fencedCodeBlockPattern.ReplaceAllStringFunc(pageMarkdown, maskRegion)
	maskedMarkdown = htmlCommentPattern.ReplaceAllStringFunc(maskedMarkdown, maskRegion)
	maskedMarkdown = inlineCodeSpanPattern.ReplaceAllStringFunc(maskedMarkdown, maskRegion)
	return maskedMarkdown, maskedRegions
}

func restoreProtectedRegions(maskedMarkdown string, maskedRegions []string) string {
	restoredMarkdown := maskedMarkdown
	for regionIndex := len(maskedRegions) - 1; regionIndex >= 0; regionIndex-- {
		placeholder := fmt.Sprintf(maskPlaceholderTemplateConstant, regionIndex)
		restoredMarkdown = strings.Replace(restoredMarkdown, placeholder, maskedRegions[regionIndex], 1)
	}
	return restoredMarkdown
}

// rewriteTarget resolves a link target against the page directory and
// rewrites it into an absolute repository URL when the normalized path
// escapes the documentation root.
func rewriteTarget(linkTarget string, pageDirectory string, config RewriteConfig) (string, bool) {
	if isExternalTarget(linkTarget) {
		return "", false
	}

	pathPortion, targetSuffix := splitTargetSuffix(linkTarget)
	if len(pathPortion) == 0 {
		return "", false
	}

	normalizedFromDocsRoot := path.Join(pageDirectory, pathPortion)
	if !strings.HasPrefix(normalizedFromDocsRoot, parentTraversalPrefixConstant) && normalizedFromDocsRoot != ".." {
		return "", false
	}

	repositoryRelativePath := path.Join(config.DocsDir, normalizedFromDocsRoot)
	if strings.HasPrefix(repositoryRelativePath, parentTraversalPrefixConstant) || repositoryRelativePath == ".." {
		return "", false
	}

	rewrittenURL := fmt.Sprintf(
		rewrittenURLTemplateConstant,
		strings.TrimRight(config.RepositoryURL, "/"),
		viewSegmentForPath(repositoryRelativePath),
		config.Branch,
		repositoryRelativePath,
	)
	return rewrittenURL + targetSuffix, true
}

func isExternalTarget(linkTarget string) bool {
	if len(linkTarget) == 0 {
		return true
	}
	if strings.HasPrefix(linkTarget, fragmentSeparatorConstant) {
		return true
	}
	if strings.HasPrefix(linkTarget, "/") {
		return true
	}
	if strings.Contains(linkTarget, schemeSeparatorConstant) {
		return true
	}
	if strings.HasPrefix(strings.ToLower(linkTarget), mailtoSchemeConstant) {
		return true
	}
	return false
}

// splitTargetSuffix separates the path portion of a target from its query
// string and fragment so they are preserved verbatim on the rewritten URL.
func splitTargetSuffix(linkTarget string) (string, string) {
	pathPortion := linkTarget
	targetSuffix := ""
	if fragmentIndex := strings.Index(pathPortion, fragmentSeparatorConstant); fragmentIndex >= 0 {
		targetSuffix = pathPortion[fragmentIndex:]
		pathPortion = pathPortion[:fragmentIndex]
	}
	if queryIndex := strings.Index(pathPortion, querySeparatorConstant); queryIndex >= 0 {
		targetSuffix = pathPortion[queryIndex:] + targetSuffix
		pathPortion = pathPortion[:queryIndex]
	}
	return pathPortion, targetSuffix
}

// viewSegmentForPath chooses between the file view and the directory view
// based on the basename: a dotted name or a known extensionless file links
// to the file view, anything else to the directory view.
func viewSegmentForPath(repositoryRelativePath string) string {
	baseName := path.Base(repositoryRelativePath)
	if strings.Contains(baseName, ".") {
		return blobViewSegmentConstant
	}
	if _, knownFile := extensionlessRepositoryFiles[baseName]; knownFile {
		return blobViewSegmentConstant
	}
	return treeViewSegmentConstant
}
