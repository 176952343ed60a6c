package actions

import "strings"

// Staleness classifies how an inline version comment relates to the tag the
// pinned commit actually resolves to.
type Staleness string

const (
	// StalenessCurrent indicates the comment already names the resolved tag.
	StalenessCurrent Staleness = "no"
	// StalenessOutdated indicates the comment names a different tag.
	StalenessOutdated Staleness = "yes"
	// StalenessMissing indicates a tag was resolved but no comment names one.
	StalenessMissing Staleness = "missing"
	// StalenessNoDescription indicates the tag is known but the comment
	// carries no human description.
	StalenessNoDescription Staleness = "no-desc"

	unknownTagDisplayValueConstant  = "unknown"
	repositorySlugSeparatorConstant = "/"
	repositorySlugSegmentCount      = 2
)

// ActionReference describes one SHA-pinned uses line found in a workflow file.
type ActionReference struct {
	FilePath           string    `json:"file"`
	LineNumber         int       `json:"line"`
	LinePrefix         string    `json:"-"`
	Slug               string    `json:"action"`
	CommitSHA          string    `json:"sha"`
	CommentDescription string    `json:"comment_description,omitempty"`
	CommentTag         string    `json:"comment_tag,omitempty"`
	ResolvedTag        string    `json:"resolved_tag,omitempty"`
	LatestTag          string    `json:"latest_tag,omitempty"`
	Staleness          Staleness `json:"stale"`
	Upgradable         bool      `json:"upgradable"`
}

// Repository returns the owner/repo portion of the action slug, dropping any
// subdirectory segments.
func (reference ActionReference) Repository() string {
	slugSegments := strings.Split(reference.Slug, repositorySlugSeparatorConstant)
	if len(slugSegments) < repositorySlugSegmentCount {
		return reference.Slug
	}
	return strings.Join(slugSegments[:repositorySlugSegmentCount], repositorySlugSeparatorConstant)
}

// Subdirectory returns the path inside the repository for subdirectory
// actions, or an empty string for top-level actions.
func (reference ActionReference) Subdirectory() string {
	slugSegments := strings.Split(reference.Slug, repositorySlugSeparatorConstant)
	if len(slugSegments) <= repositorySlugSegmentCount {
		return ""
	}
	return strings.Join(slugSegments[repositorySlugSegmentCount:], repositorySlugSeparatorConstant)
}

// ResolvedTagDisplay returns the resolved tag or the unknown placeholder.
func (reference ActionReference) ResolvedTagDisplay() string {
	if len(reference.ResolvedTag) == 0 {
		return unknownTagDisplayValueConstant
	}
	return reference.ResolvedTag
}
