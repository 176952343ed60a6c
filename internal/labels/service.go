package labels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/tend/internal/execshell"
)

const (
	labelSetReadErrorTemplateConstant  = "unable to read label set %s: %w"
	labelSetParseErrorTemplateConstant = "unable to parse label set %s: %w"
	authNotReadyErrorMessageConstant   = "gh is not authenticated; run gh auth login"
	repositoryResolveErrorMessage      = "unable to resolve the current repository; pass --repo"
	labelSetFileTemplateConstant       = "%s.json"

	ghAPISubcommandConstant          = "api"
	ghAuthSubcommandConstant         = "auth"
	ghStatusSubcommandConstant       = "status"
	ghRepoSubcommandConstant         = "repo"
	ghViewSubcommandConstant         = "view"
	ghJSONFlagConstant               = "--json"
	ghNameWithOwnerFieldConstant     = "nameWithOwner"
	ghJQFlagConstant                 = "-q"
	ghNameWithOwnerQueryConstant     = ".nameWithOwner"
	ghMethodFlagConstant             = "-X"
	ghPatchMethodConstant            = "PATCH"
	ghFieldFlagConstant              = "-f"
	labelsEndpointTemplateConstant   = "repos/%s/labels"
	labelEndpointTemplateConstant    = "repos/%s/labels/%s"
	nameFieldTemplateConstant        = "name=%s"
	colorFieldTemplateConstant       = "color=%s"
	descriptionFieldTemplateConstant = "description=%s"
	newNameFieldTemplateConstant     = "new_name=%s"
	dryRunPlanTemplateConstant       = "would apply label %s to %s\n"
)

// Label is one declarative label definition.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// ApplyOptions configures one label reconciliation run.
type ApplyOptions struct {
	SetName      string
	SetsDir      string
	Repository   string
	DryRun       bool
	OutputWriter io.Writer
}

// ApplySummary counts the outcomes of one reconciliation run.
type ApplySummary struct {
	Created int
	Updated int
	Failed  int
}

// Service reconciles labels through the gh CLI.
type Service struct {
	logger        *zap.Logger
	shellExecutor *execshell.ShellExecutor
}

// NewService creates a labels Service.
func NewService(logger *zap.Logger, shellExecutor *execshell.ShellExecutor) *Service {
	return &Service{logger: logger, shellExecutor: shellExecutor}
}

// Apply loads the label set and upserts each label: create first, then
// update when the label already exists.
func (service *Service) Apply(executionContext context.Context, options ApplyOptions) (ApplySummary, error) {
	labelSet, loadError := loadLabelSet(filepath.Join(options.SetsDir, fmt.Sprintf(labelSetFileTemplateConstant, options.SetName)))
	if loadError != nil {
		return ApplySummary{}, loadError
	}

	if authError := service.verifyAuthentication(executionContext); authError != nil {
		return ApplySummary{}, authError
	}

	targetRepository := strings.TrimSpace(options.Repository)
	if len(targetRepository) == 0 {
		resolvedRepository, resolveError := service.resolveRepository(executionContext)
		if resolveError != nil {
			return ApplySummary{}, resolveError
		}
		targetRepository = resolvedRepository
	}

	applySummary := ApplySummary{}
	for _, labelDefinition := range labelSet {
		if options.DryRun {
			if options.OutputWriter != nil {
				fmt.Fprintf(options.OutputWriter, dryRunPlanTemplateConstant, labelDefinition.Name, targetRepository)
			}
			continue
		}
		switch service.upsertLabel(executionContext, targetRepository, labelDefinition) {
		case upsertOutcomeCreated:
			applySummary.Created++
		case upsertOutcomeUpdated:
			applySummary.Updated++
		default:
			applySummary.Failed++
		}
	}
	return applySummary, nil
}

type upsertOutcome int

const (
	upsertOutcomeCreated upsertOutcome = iota
	upsertOutcomeUpdated
	upsertOutcomeFailed
)

func (service *Service) upsertLabel(executionContext context.Context, targetRepository string, labelDefinition Label) upsertOutcome {
	createArguments := []string{
		ghAPISubcommandConstant,
		fmt.Sprintf(labelsEndpointTemplateConstant, targetRepository),
		ghFieldFlagConstant, fmt.Sprintf(nameFieldTemplateConstant, labelDefinition.Name),
		ghFieldFlagConstant, fmt.Sprintf(colorFieldTemplateConstant, labelDefinition.Color),
		ghFieldFlagConstant, fmt.Sprintf(descriptionFieldTemplateConstant, labelDefinition.Description),
	}
	createResult, createError := service.shellExecutor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: createArguments})
	if createError == nil && createResult.ExitCode == 0 {
		return upsertOutcomeCreated
	}

	updateArguments := []string{
		ghAPISubcommandConstant,
		ghMethodFlagConstant, ghPatchMethodConstant,
		fmt.Sprintf(labelEndpointTemplateConstant, targetRepository, url.PathEscape(labelDefinition.Name)),
		ghFieldFlagConstant, fmt.Sprintf(newNameFieldTemplateConstant, labelDefinition.Name),
		ghFieldFlagConstant, fmt.Sprintf(colorFieldTemplateConstant, labelDefinition.Color),
		ghFieldFlagConstant, fmt.Sprintf(descriptionFieldTemplateConstant, labelDefinition.Description),
	}
	updateResult, updateError := service.shellExecutor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: updateArguments})
	if updateError == nil && updateResult.ExitCode == 0 {
		return upsertOutcomeUpdated
	}
	return upsertOutcomeFailed
}

func (service *Service) verifyAuthentication(executionContext context.Context) error {
	authResult, authError := service.shellExecutor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{ghAuthSubcommandConstant, ghStatusSubcommandConstant},
	})
	if authError != nil || authResult.ExitCode != 0 {
		return errors.New(authNotReadyErrorMessageConstant)
	}
	return nil
}

func (service *Service) resolveRepository(executionContext context.Context) (string, error) {
	viewResult, viewError := service.shellExecutor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{ghRepoSubcommandConstant, ghViewSubcommandConstant, ghJSONFlagConstant, ghNameWithOwnerFieldConstant, ghJQFlagConstant, ghNameWithOwnerQueryConstant},
	})
	if viewError != nil || viewResult.ExitCode != 0 {
		return "", errors.New(repositoryResolveErrorMessage)
	}
	resolvedRepository := strings.TrimSpace(viewResult.StandardOutput)
	if len(resolvedRepository) == 0 {
		return "", errors.New(repositoryResolveErrorMessage)
	}
	return resolvedRepository, nil
}

func loadLabelSet(labelSetPath string) ([]Label, error) {
	fileContents, readError := os.ReadFile(labelSetPath)
	if readError != nil {
		return nil, fmt.Errorf(labelSetReadErrorTemplateConstant, labelSetPath, readError)
	}
	var labelSet []Label
	if parseError := json.Unmarshal(fileContents, &labelSet); parseError != nil {
		return nil, fmt.Errorf(labelSetParseErrorTemplateConstant, labelSetPath, parseError)
	}
	return labelSet, nil
}
