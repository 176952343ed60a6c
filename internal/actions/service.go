package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"
)

const (
	reportHeaderConstant              = "FILE\tACTION\tSHA\tCOMMENT\tRESOLVED\tLATEST\tSTALE\tUPGRADABLE\n"
	reportRowTemplateConstant         = "%s:%d\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n"
	shortSHALengthConstant            = 8
	emptyColumnPlaceholderConstant    = "-"
	upgradePlanTemplateConstant       = "%s:%d %s %s -> %s (%s -> %s)\n"
	upgradeSkippedLogMessageConstant  = "no commit found for target tag; skipping upgrade"
	upgradeActionLogFieldNameConstant = "action"
	upgradeTagLogFieldNameConstant    = "tag"
	jsonIndentConstant                = "  "
)

// ShowOptions configures the action version report.
type ShowOptions struct {
	WorkflowsDirectory string
	Offline            bool
	JSONOutput         bool
	OutputWriter       io.Writer
}

// SyncOptions configures the comment synchronization pass.
type SyncOptions struct {
	WorkflowsDirectory string
}

// UpgradeOptions configures the pin upgrade pass.
type UpgradeOptions struct {
	WorkflowsDirectory string
	ActionSlug         string
	TargetVersion      string
	DryRun             bool
	OutputWriter       io.Writer
}

// Service orchestrates scanning, resolution, and rewriting of pinned action
// references.
type Service struct {
	logger       *zap.Logger
	scanner      *WorkflowScanner
	resolver     *TagResolver
	descriptions *DescriptionFetcher
	rewriter     *FileRewriter
}

// NewService creates a Service backed by the provided payload fetcher.
func NewService(logger *zap.Logger, payloadFetcher PayloadFetcher) *Service {
	return &Service{
		logger:       logger,
		scanner:      NewWorkflowScanner(),
		resolver:     NewTagResolver(payloadFetcher),
		descriptions: NewDescriptionFetcher(payloadFetcher),
		rewriter:     NewFileRewriter(logger),
	}
}

// Show scans the workflows directory and prints the version report.
func (service *Service) Show(executionContext context.Context, options ShowOptions) error {
	scannedReferences, scanError := service.scanner.ScanDirectory(options.WorkflowsDirectory)
	if scanError != nil {
		return scanError
	}
	if !options.Offline {
		scannedReferences = service.annotateReferences(executionContext, scannedReferences)
	}

	if options.JSONOutput {
		encodedReport, marshalError := json.MarshalIndent(scannedReferences, "", jsonIndentConstant)
		if marshalError != nil {
			return marshalError
		}
		_, writeError := fmt.Fprintln(options.OutputWriter, string(encodedReport))
		return writeError
	}

	reportWriter := tabwriter.NewWriter(options.OutputWriter, 0, 0, 2, ' ', 0)
	fmt.Fprint(reportWriter, reportHeaderConstant)
	for _, scannedReference := range scannedReferences {
		fmt.Fprintf(
			reportWriter,
			reportRowTemplateConstant,
			scannedReference.FilePath,
			scannedReference.LineNumber,
			scannedReference.Slug,
			shortenSHA(scannedReference.CommitSHA),
			columnValue(scannedReference.CommentTag),
			columnValue(scannedReference.ResolvedTag),
			columnValue(scannedReference.LatestTag),
			string(scannedReference.Staleness),
			scannedReference.Upgradable,
		)
	}
	return reportWriter.Flush()
}

// SyncComments rewrites inline comments for stale, missing, and
// description-less pinned references and returns the number of rewritten
// lines.
func (service *Service) SyncComments(executionContext context.Context, options SyncOptions) (int, error) {
	scannedReferences, scanError := service.scanner.ScanDirectory(options.WorkflowsDirectory)
	if scanError != nil {
		return 0, scanError
	}
	annotatedReferences := service.annotateReferences(executionContext, scannedReferences)

	pendingUpdates := make([]LineUpdate, 0)
	for _, annotatedReference := range annotatedReferences {
		if annotatedReference.Staleness == StalenessCurrent {
			continue
		}
		targetTag := annotatedReference.ResolvedTag
		if len(targetTag) == 0 {
			targetTag = annotatedReference.CommentTag
		}
		if len(targetTag) == 0 {
			continue
		}
		actionDescription := annotatedReference.CommentDescription
		if len(actionDescription) == 0 {
			actionDescription = service.descriptions.FetchDescription(executionContext, annotatedReference.Slug)
		}
		pendingUpdates = append(pendingUpdates, LineUpdate{
			Reference:  annotatedReference,
			NewComment: FormatComment(actionDescription, targetTag),
		})
	}

	return service.rewriter.Apply(pendingUpdates)
}

// Upgrade replaces pinned SHAs with the commits of newer tags and returns
// the number of rewritten lines.
func (service *Service) Upgrade(executionContext context.Context, options UpgradeOptions) (int, error) {
	scannedReferences, scanError := service.scanner.ScanDirectory(options.WorkflowsDirectory)
	if scanError != nil {
		return 0, scanError
	}

	pendingUpdates := make([]LineUpdate, 0)
	for _, scannedReference := range scannedReferences {
		if len(options.ActionSlug) > 0 && scannedReference.Slug != options.ActionSlug {
			continue
		}

		targetTag := options.TargetVersion
		if len(targetTag) == 0 {
			targetTag = service.resolver.LatestTag(executionContext, scannedReference.Repository())
		}
		if len(targetTag) == 0 {
			continue
		}

		currentTag := service.resolver.ResolveTag(executionContext, scannedReference.Repository(), scannedReference.CommitSHA, scannedReference.CommentTag)
		if len(currentTag) == 0 {
			currentTag = scannedReference.CommentTag
		}
		if len(currentTag) > 0 && VersionsEqual(currentTag, targetTag) {
			continue
		}

		targetCommit := service.resolver.CommitForTag(executionContext, scannedReference.Repository(), targetTag)
		if len(targetCommit) == 0 {
			service.logger.Warn(
				upgradeSkippedLogMessageConstant,
				zap.String(upgradeActionLogFieldNameConstant, scannedReference.Slug),
				zap.String(upgradeTagLogFieldNameConstant, targetTag),
			)
			continue
		}

		actionDescription := service.descriptions.FetchDescription(executionContext, scannedReference.Slug)
		pendingUpdates = append(pendingUpdates, LineUpdate{
			Reference:  scannedReference,
			NewSHA:     targetCommit,
			NewComment: FormatComment(actionDescription, targetTag),
		})

		if options.DryRun {
			fmt.Fprintf(
				options.OutputWriter,
				upgradePlanTemplateConstant,
				scannedReference.FilePath,
				scannedReference.LineNumber,
				scannedReference.Slug,
				columnValue(currentTag),
				targetTag,
				shortenSHA(scannedReference.CommitSHA),
				shortenSHA(targetCommit),
			)
		}
	}

	if options.DryRun {
		return len(pendingUpdates), nil
	}
	return service.rewriter.Apply(pendingUpdates)
}

// annotateReferences fills in resolved tags, latest tags, staleness, and
// upgradability for every scanned reference.
func (service *Service) annotateReferences(executionContext context.Context, scannedReferences []ActionReference) []ActionReference {
	annotatedReferences := make([]ActionReference, 0, len(scannedReferences))
	for _, scannedReference := range scannedReferences {
		annotatedReference := scannedReference
		annotatedReference.ResolvedTag = service.resolver.ResolveTag(executionContext, scannedReference.Repository(), scannedReference.CommitSHA, scannedReference.CommentTag)
		annotatedReference.LatestTag = service.resolver.LatestTag(executionContext, scannedReference.Repository())
		annotatedReference.Staleness = classifyStaleness(annotatedReference)
		annotatedReference.Upgradable = classifyUpgradable(annotatedReference)
		annotatedReferences = append(annotatedReferences, annotatedReference)
	}
	return annotatedReferences
}

func classifyStaleness(reference ActionReference) Staleness {
	if len(reference.CommentTag) > 0 && len(reference.ResolvedTag) > 0 && reference.CommentTag != reference.ResolvedTag {
		return StalenessOutdated
	}
	if len(reference.CommentTag) == 0 && len(reference.ResolvedTag) > 0 {
		return StalenessMissing
	}
	if len(reference.CommentDescription) == 0 && (len(reference.CommentTag) > 0 || len(reference.ResolvedTag) > 0) {
		return StalenessNoDescription
	}
	return StalenessCurrent
}

func classifyUpgradable(reference ActionReference) bool {
	currentTag := reference.ResolvedTag
	if len(currentTag) == 0 {
		currentTag = reference.CommentTag
	}
	if len(currentTag) == 0 || len(reference.LatestTag) == 0 {
		return false
	}
	return !VersionsEqual(currentTag, reference.LatestTag)
}

func shortenSHA(commitSHA string) string {
	if len(commitSHA) <= shortSHALengthConstant {
		return commitSHA
	}
	return commitSHA[:shortSHALengthConstant]
}

func columnValue(rawValue string) string {
	if len(rawValue) == 0 {
		return emptyColumnPlaceholderConstant
	}
	return rawValue
}
