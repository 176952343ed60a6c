package deps

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"go.uber.org/zap"
)

const (
	dependencyReportHeaderConstant = "GROUP\tPACKAGE\tSPECIFIER\tINSTALLED\tLATEST\tUPGRADABLE\n"
	dependencyReportRowTemplate    = "%s\t%s\t%s\t%s\t%s\t%t\n"
	emptyValuePlaceholderConstant  = "-"
	undeclaredPackageErrorTemplate = "package %s is not declared in pyproject.toml"
	upgradeFailedErrorTemplate     = "pip upgrade of %s failed: %w"
)

// DependencyRecord combines a declared dependency with its observed
// versions.
type DependencyRecord struct {
	Group            string `json:"group"`
	Name             string `json:"name"`
	Specifier        string `json:"specifier"`
	InstalledVersion string `json:"installed_version,omitempty"`
	LatestVersion    string `json:"latest_version,omitempty"`
	Upgradable       bool   `json:"upgradable"`
}

// ShowOptions configures the dependency report.
type ShowOptions struct {
	Offline      bool
	OutputWriter io.Writer
}

// UpgradeOptions configures a dependency upgrade.
type UpgradeOptions struct {
	PackageName   string
	PinnedVersion string
	DryRun        bool
	OutputWriter  io.Writer
}

// Service orchestrates dependency reporting, comment syncing, and upgrades.
type Service struct {
	logger      *zap.Logger
	pipGateway  *PipGateway
	projectRoot string
}

// NewService creates a deps Service rooted at the project directory.
func NewService(logger *zap.Logger, pipGateway *PipGateway, projectRoot string) *Service {
	return &Service{logger: logger, pipGateway: pipGateway, projectRoot: projectRoot}
}

// Show prints the dependency version report.
func (service *Service) Show(executionContext context.Context, options ShowOptions) error {
	dependencyRecords, collectError := service.collectRecords(executionContext, options.Offline)
	if collectError != nil {
		return collectError
	}

	reportWriter := tabwriter.NewWriter(options.OutputWriter, 0, 0, 2, ' ', 0)
	fmt.Fprint(reportWriter, dependencyReportHeaderConstant)
	for _, dependencyRecord := range dependencyRecords {
		fmt.Fprintf(
			reportWriter,
			dependencyReportRowTemplate,
			dependencyRecord.Group,
			dependencyRecord.Name,
			dependencyRecord.Specifier,
			placeholderValue(dependencyRecord.InstalledVersion),
			placeholderValue(dependencyRecord.LatestVersion),
			dependencyRecord.Upgradable,
		)
	}
	return reportWriter.Flush()
}

// SyncComments refreshes inline version comments on dependency lines and
// returns the number of changed lines.
func (service *Service) SyncComments(executionContext context.Context) (int, error) {
	declaredDependencies, loadError := LoadDeclaredDependencies(service.projectFilePath())
	if loadError != nil {
		return 0, loadError
	}

	annotations := make([]CommentAnnotation, 0, len(declaredDependencies))
	for _, declaredDependency := range declaredDependencies {
		installedPackage := service.pipGateway.InstalledPackage(executionContext, declaredDependency.Name)
		if len(installedPackage.Version) == 0 {
			continue
		}
		annotations = append(annotations, CommentAnnotation{
			PackageName: declaredDependency.Name,
			Version:     installedPackage.Version,
			Summary:     installedPackage.Summary,
		})
	}

	return NewCommentSyncer(service.projectRoot).Sync(annotations)
}

// Upgrade installs a newer version of a declared package and refreshes its
// comments. Upgrading an undeclared package is refused.
func (service *Service) Upgrade(executionContext context.Context, options UpgradeOptions) error {
	declaredDependencies, loadError := LoadDeclaredDependencies(service.projectFilePath())
	if loadError != nil {
		return loadError
	}

	normalizedTarget := NormalizePackageName(options.PackageName)
	targetDeclared := false
	for _, declaredDependency := range declaredDependencies {
		if declaredDependency.Name == normalizedTarget {
			targetDeclared = true
			break
		}
	}
	if !targetDeclared {
		return fmt.Errorf(undeclaredPackageErrorTemplate, options.PackageName)
	}

	if options.DryRun {
		fmt.Fprintf(options.OutputWriter, "would upgrade %s\n", normalizedTarget)
		return nil
	}

	if upgradeError := service.pipGateway.Upgrade(executionContext, normalizedTarget, options.PinnedVersion); upgradeError != nil {
		return fmt.Errorf(upgradeFailedErrorTemplate, normalizedTarget, upgradeError)
	}

	_, syncError := service.SyncComments(executionContext)
	return syncError
}

func (service *Service) collectRecords(executionContext context.Context, offlineMode bool) ([]DependencyRecord, error) {
	declaredDependencies, loadError := LoadDeclaredDependencies(service.projectFilePath())
	if loadError != nil {
		return nil, loadError
	}

	dependencyRecords := make([]DependencyRecord, 0, len(declaredDependencies))
	for _, declaredDependency := range declaredDependencies {
		dependencyRecord := DependencyRecord{
			Group:     declaredDependency.Group,
			Name:      declaredDependency.Name,
			Specifier: declaredDependency.Specifier,
		}
		dependencyRecord.InstalledVersion = service.pipGateway.InstalledPackage(executionContext, declaredDependency.Name).Version
		if !offlineMode {
			dependencyRecord.LatestVersion = service.pipGateway.LatestVersion(executionContext, declaredDependency.Name)
		}
		dependencyRecord.Upgradable = len(dependencyRecord.InstalledVersion) > 0 &&
			len(dependencyRecord.LatestVersion) > 0 &&
			dependencyRecord.InstalledVersion != dependencyRecord.LatestVersion
		dependencyRecords = append(dependencyRecords, dependencyRecord)
	}
	return dependencyRecords, nil
}

func (service *Service) projectFilePath() string {
	return filepath.Join(service.projectRoot, projectFileNameConstant)
}

func placeholderValue(rawValue string) string {
	if len(rawValue) == 0 {
		return emptyValuePlaceholderConstant
	}
	return rawValue
}
