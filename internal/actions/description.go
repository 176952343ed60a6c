package actions

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/temirov/tend/internal/githubapi"
)

const (
	contentsPathTemplateConstant      = "/repos/%s/contents/%s"
	actionMetadataFileNameConstant    = "action.yml"
	actionMetadataAltFileNameConstant = "action.yaml"

	descriptionMaximumLengthConstant      = 50
	descriptionMinimumBreakLengthConstant = 30
	descriptionTrailingPunctuation        = ".!,;:"
	sentenceTerminatorConstant            = ". "
)

var descriptionBoilerplatePrefixes = []string{
	"a github action to ",
	"a github action that ",
	"a github action for ",
	"github action to ",
	"github action that ",
	"github action for ",
	"this action ",
	"action to ",
	"action that ",
	"action for ",
}

type contentsPayload struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type actionMetadataPayload struct {
	Description string `yaml:"description"`
}

// DescriptionFetcher retrieves short human descriptions for actions from
// their metadata files.
type DescriptionFetcher struct {
	payloadFetcher PayloadFetcher
	descriptions   map[string]string
}

// NewDescriptionFetcher creates a DescriptionFetcher backed by the provided
// fetcher.
func NewDescriptionFetcher(payloadFetcher PayloadFetcher) *DescriptionFetcher {
	return &DescriptionFetcher{payloadFetcher: payloadFetcher, descriptions: map[string]string{}}
}

// FetchDescription returns a shortened description for the action slug, or
// an empty string when none is available.
func (fetcher *DescriptionFetcher) FetchDescription(executionContext context.Context, actionSlug string) string {
	if memoizedDescription, memoized := fetcher.descriptions[actionSlug]; memoized {
		return memoizedDescription
	}

	reference := ActionReference{Slug: actionSlug}
	metadataDirectory := reference.Subdirectory()

	fetchedDescription := ""
	for _, metadataFileName := range []string{actionMetadataFileNameConstant, actionMetadataAltFileNameConstant} {
		metadataPath := metadataFileName
		if len(metadataDirectory) > 0 {
			metadataPath = metadataDirectory + "/" + metadataFileName
		}
		rawDescription := fetcher.fetchMetadataDescription(executionContext, reference.Repository(), metadataPath)
		if len(rawDescription) > 0 {
			fetchedDescription = ShortenDescription(rawDescription)
			break
		}
	}

	fetcher.descriptions[actionSlug] = fetchedDescription
	return fetchedDescription
}

func (fetcher *DescriptionFetcher) fetchMetadataDescription(executionContext context.Context, repositorySlug string, metadataPath string) string {
	metadataPayload := fetcher.payloadFetcher.FetchJSON(executionContext, fmt.Sprintf(contentsPathTemplateConstant, repositorySlug, metadataPath))
	var fileContents contentsPayload
	if !githubapi.DecodeInto(metadataPayload, &fileContents) {
		return ""
	}
	decodedContents, decodeError := base64.StdEncoding.DecodeString(strings.ReplaceAll(fileContents.Content, "\n", ""))
	if decodeError != nil {
		return ""
	}
	var actionMetadata actionMetadataPayload
	if unmarshalError := yaml.Unmarshal(decodedContents, &actionMetadata); unmarshalError != nil {
		return ""
	}
	return strings.TrimSpace(actionMetadata.Description)
}

// ShortenDescription reduces a raw metadata description to a short inline
// comment: boilerplate prefixes stripped, first sentence kept, truncated to
// roughly fifty characters at a word boundary, trailing punctuation removed,
// first letter capitalized.
func ShortenDescription(rawDescription string) string {
	shortened := strings.Join(strings.Fields(rawDescription), " ")
	lowercased := strings.ToLower(shortened)
	for _, boilerplatePrefix := range descriptionBoilerplatePrefixes {
		if strings.HasPrefix(lowercased, boilerplatePrefix) {
			shortened = shortened[len(boilerplatePrefix):]
			break
		}
	}

	if sentenceEnd := strings.Index(shortened, sentenceTerminatorConstant); sentenceEnd > 0 {
		shortened = shortened[:sentenceEnd]
	}

	if len(shortened) > descriptionMaximumLengthConstant {
		truncated := shortened[:descriptionMaximumLengthConstant]
		if breakIndex := strings.LastIndex(truncated, " "); breakIndex >= descriptionMinimumBreakLengthConstant {
			truncated = truncated[:breakIndex]
		}
		shortened = truncated
	}

	shortened = strings.TrimRight(strings.TrimSpace(shortened), descriptionTrailingPunctuation)
	if len(shortened) == 0 {
		return ""
	}

	descriptionRunes := []rune(shortened)
	descriptionRunes[0] = unicode.ToUpper(descriptionRunes[0])
	return string(descriptionRunes)
}
