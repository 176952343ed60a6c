package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/temirov/tend/internal/githubapi"
)

const (
	matchingRefsPathTemplateConstant  = "/repos/%s/git/matching-refs/tags/%s"
	annotatedTagPathTemplateConstant  = "/repos/%s/git/tags/%s"
	tagsPagePathTemplateConstant      = "/repos/%s/tags?per_page=%d&page=%d"
	latestReleasePathTemplateConstant = "/repos/%s/releases/latest"

	tagsPageSizeConstant        = 100
	maximumTagPagesConstant     = 5
	annotatedTagObjectTypeValue = "tag"

	resolutionMemoKeyTemplateConstant = "%s@%s"
)

var releaseTagVersionPattern = regexp.MustCompile(`^v?\d+\.\d+`)

// PayloadFetcher retrieves a JSON payload for a GitHub API path, returning
// nil when the resource cannot be resolved.
type PayloadFetcher interface {
	FetchJSON(executionContext context.Context, requestPath string) json.RawMessage
}

type referenceObjectPayload struct {
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

type matchingReferencePayload struct {
	Ref    string                 `json:"ref"`
	Object referenceObjectPayload `json:"object"`
}

type annotatedTagPayload struct {
	Object referenceObjectPayload `json:"object"`
}

type repositoryTagPayload struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type latestReleasePayload struct {
	TagName string `json:"tag_name"`
}

// TagResolver maps pinned commits to tags and repositories to their latest
// release tags, memoizing results for the lifetime of one run.
type TagResolver struct {
	payloadFetcher PayloadFetcher
	resolvedTags   map[string]string
	latestTags     map[string]string
	tagCommits     map[string]string
}

// NewTagResolver creates a TagResolver backed by the provided fetcher.
func NewTagResolver(payloadFetcher PayloadFetcher) *TagResolver {
	return &TagResolver{
		payloadFetcher: payloadFetcher,
		resolvedTags:   map[string]string{},
		latestTags:     map[string]string{},
		tagCommits:     map[string]string{},
	}
}

// ResolveTag returns the tag whose commit equals the pinned SHA, or an empty
// string when no tag matches. When the inline comment hints a tag, a cheap
// ref verification short-circuits the paged tag scan.
func (resolver *TagResolver) ResolveTag(executionContext context.Context, repositorySlug string, commitSHA string, hintedTag string) string {
	memoKey := fmt.Sprintf(resolutionMemoKeyTemplateConstant, repositorySlug, commitSHA)
	if memoizedTag, memoized := resolver.resolvedTags[memoKey]; memoized {
		return memoizedTag
	}

	if len(hintedTag) > 0 && resolver.tagPointsAtCommit(executionContext, repositorySlug, hintedTag, commitSHA) {
		resolver.resolvedTags[memoKey] = hintedTag
		return hintedTag
	}

	resolvedTag := resolver.scanTagPages(executionContext, repositorySlug, commitSHA)
	resolver.resolvedTags[memoKey] = resolvedTag
	return resolvedTag
}

// LatestTag returns the repository's latest release tag when it looks like a
// version, falling back to the first version-shaped tag on the first tags
// page. An empty string means no candidate was found.
func (resolver *TagResolver) LatestTag(executionContext context.Context, repositorySlug string) string {
	if memoizedTag, memoized := resolver.latestTags[repositorySlug]; memoized {
		return memoizedTag
	}

	latestTag := ""
	releasePayload := resolver.payloadFetcher.FetchJSON(executionContext, fmt.Sprintf(latestReleasePathTemplateConstant, repositorySlug))
	var latestRelease latestReleasePayload
	if githubapi.DecodeInto(releasePayload, &latestRelease) && releaseTagVersionPattern.MatchString(latestRelease.TagName) {
		latestTag = latestRelease.TagName
	}

	if len(latestTag) == 0 {
		for _, repositoryTag := range resolver.fetchTagsPage(executionContext, repositorySlug, 1) {
			if releaseTagVersionPattern.MatchString(repositoryTag.Name) {
				latestTag = repositoryTag.Name
				break
			}
		}
	}

	resolver.latestTags[repositorySlug] = latestTag
	return latestTag
}

// CommitForTag returns the commit a tag points at, peeling annotated tag
// objects to their targets. An empty string means the tag could not be
// resolved.
func (resolver *TagResolver) CommitForTag(executionContext context.Context, repositorySlug string, tagName string) string {
	memoKey := fmt.Sprintf(resolutionMemoKeyTemplateConstant, repositorySlug, tagName)
	if memoizedCommit, memoized := resolver.tagCommits[memoKey]; memoized {
		return memoizedCommit
	}

	resolvedCommit := ""
	for _, matchingReference := range resolver.fetchMatchingReferences(executionContext, repositorySlug, tagName) {
		if !strings.HasSuffix(matchingReference.Ref, "/"+tagName) {
			continue
		}
		resolvedCommit = resolver.peelReferenceObject(executionContext, repositorySlug, matchingReference.Object)
		break
	}

	resolver.tagCommits[memoKey] = resolvedCommit
	return resolvedCommit
}

func (resolver *TagResolver) tagPointsAtCommit(executionContext context.Context, repositorySlug string, tagName string, commitSHA string) bool {
	for _, matchingReference := range resolver.fetchMatchingReferences(executionContext, repositorySlug, tagName) {
		if !strings.HasSuffix(matchingReference.Ref, "/"+tagName) {
			continue
		}
		if strings.EqualFold(matchingReference.Object.SHA, commitSHA) {
			return true
		}
		peeledCommit := resolver.peelReferenceObject(executionContext, repositorySlug, matchingReference.Object)
		if strings.EqualFold(peeledCommit, commitSHA) {
			return true
		}
	}
	return false
}

func (resolver *TagResolver) peelReferenceObject(executionContext context.Context, repositorySlug string, referenceObject referenceObjectPayload) string {
	if referenceObject.Type != annotatedTagObjectTypeValue {
		return referenceObject.SHA
	}
	tagPayload := resolver.payloadFetcher.FetchJSON(executionContext, fmt.Sprintf(annotatedTagPathTemplateConstant, repositorySlug, referenceObject.SHA))
	var annotatedTag annotatedTagPayload
	if !githubapi.DecodeInto(tagPayload, &annotatedTag) {
		return referenceObject.SHA
	}
	return annotatedTag.Object.SHA
}

func (resolver *TagResolver) fetchMatchingReferences(executionContext context.Context, repositorySlug string, tagName string) []matchingReferencePayload {
	referencesPayload := resolver.payloadFetcher.FetchJSON(executionContext, fmt.Sprintf(matchingRefsPathTemplateConstant, repositorySlug, tagName))
	var matchingReferences []matchingReferencePayload
	if !githubapi.DecodeInto(referencesPayload, &matchingReferences) {
		return nil
	}
	return matchingReferences
}

func (resolver *TagResolver) fetchTagsPage(executionContext context.Context, repositorySlug string, pageNumber int) []repositoryTagPayload {
	tagsPayload := resolver.payloadFetcher.FetchJSON(executionContext, fmt.Sprintf(tagsPagePathTemplateConstant, repositorySlug, tagsPageSizeConstant, pageNumber))
	var repositoryTags []repositoryTagPayload
	if !githubapi.DecodeInto(tagsPayload, &repositoryTags) {
		return nil
	}
	return repositoryTags
}

// scanTagPages walks bounded pages of the repository's tags and returns the
// matching tag with the most dot-separated segments.
func (resolver *TagResolver) scanTagPages(executionContext context.Context, repositorySlug string, commitSHA string) string {
	bestCandidate := ""
	bestSegmentCount := -1
	for pageNumber := 1; pageNumber <= maximumTagPagesConstant; pageNumber++ {
		pageTags := resolver.fetchTagsPage(executionContext, repositorySlug, pageNumber)
		for _, repositoryTag := range pageTags {
			if !strings.EqualFold(repositoryTag.Commit.SHA, commitSHA) {
				continue
			}
			candidateSegmentCount := strings.Count(repositoryTag.Name, versionSegmentSeparatorConstant)
			if candidateSegmentCount > bestSegmentCount {
				bestCandidate = repositoryTag.Name
				bestSegmentCount = candidateSegmentCount
			}
		}
		if len(pageTags) < tagsPageSizeConstant {
			break
		}
	}
	return bestCandidate
}
