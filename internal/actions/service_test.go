package actions_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/actions"
)

func TestSyncCommentsWritesResolvedTag(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "jobs:\n" +
		"  build:\n" +
		"    steps:\n" +
		"      - uses: actions/checkout@" + checkoutCommitSHAConstant + "\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/tags?per_page=100&page=1": fmt.Sprintf(
			`[{"name":"v4.2.0","commit":{"sha":"%s"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v4.2.0"}`,
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	updatedCount, syncError := service.SyncComments(context.Background(), actions.SyncOptions{WorkflowsDirectory: workflowsDirectory})
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, 1, updatedCount)

	rewrittenContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rewrittenContents), "# v4.2.0")
	require.Contains(testInstance, string(rewrittenContents), "actions/checkout@"+checkoutCommitSHAConstant)
}

func TestSyncCommentsIncludesFetchedDescription(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + "\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	encodedMetadata := "bmFtZTogQ2hlY2tvdXQKZGVzY3JpcHRpb246IENoZWNrb3V0IGEgR2l0IHJlcG9zaXRvcnkK"
	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/tags?per_page=100&page=1": fmt.Sprintf(
			`[{"name":"v4.2.0","commit":{"sha":"%s"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v4.2.0"}`,
		"/repos/actions/checkout/contents/action.yml": fmt.Sprintf(
			`{"content":"%s","encoding":"base64"}`, encodedMetadata),
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	updatedCount, syncError := service.SyncComments(context.Background(), actions.SyncOptions{WorkflowsDirectory: workflowsDirectory})
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, 1, updatedCount)

	rewrittenContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rewrittenContents), "# Checkout a Git repository (v4.2.0)")
}

func TestSyncCommentsKeepsExistingDescription(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # Checkout code (v4.1.0)\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/tags?per_page=100&page=1": fmt.Sprintf(
			`[{"name":"v4.2.0","commit":{"sha":"%s"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v4.2.0"}`,
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	updatedCount, syncError := service.SyncComments(context.Background(), actions.SyncOptions{WorkflowsDirectory: workflowsDirectory})
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, 1, updatedCount)

	rewrittenContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rewrittenContents), "# Checkout code (v4.2.0)")
	require.NotContains(testInstance, payloadFetcher.requestedPaths, "/repos/actions/checkout/contents/action.yml")
}

func TestSyncCommentsAnnotatesUnresolvedCommentTag(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # v4.1.0\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	encodedMetadata := "bmFtZTogQ2hlY2tvdXQKZGVzY3JpcHRpb246IENoZWNrb3V0IGEgR2l0IHJlcG9zaXRvcnkK"
	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/contents/action.yml": fmt.Sprintf(
			`{"content":"%s","encoding":"base64"}`, encodedMetadata),
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	updatedCount, syncError := service.SyncComments(context.Background(), actions.SyncOptions{WorkflowsDirectory: workflowsDirectory})
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, 1, updatedCount)

	rewrittenContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rewrittenContents), "# Checkout a Git repository (v4.1.0)")
}

func TestSyncCommentsIdempotentWhenCurrent(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # Checkout code (v4.2.0)\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/git/matching-refs/tags/v4.2.0": fmt.Sprintf(
			`[{"ref":"refs/tags/v4.2.0","object":{"sha":"%s","type":"commit"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v4.2.0"}`,
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	updatedCount, syncError := service.SyncComments(context.Background(), actions.SyncOptions{WorkflowsDirectory: workflowsDirectory})
	require.NoError(testInstance, syncError)
	require.Zero(testInstance, updatedCount)
}

func TestUpgradeReplacesPinnedSHA(testInstance *testing.T) {
	testInstance.Parallel()

	upgradedCommitSHA := "08c6903cd8c0fde910a37f88322edcfb5dd907a8"
	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # v4.2.0\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v5.0.0"}`,
		"/repos/actions/checkout/git/matching-refs/tags/v4.2.0": fmt.Sprintf(
			`[{"ref":"refs/tags/v4.2.0","object":{"sha":"%s","type":"commit"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/git/matching-refs/tags/v5.0.0": fmt.Sprintf(
			`[{"ref":"refs/tags/v5.0.0","object":{"sha":"%s","type":"commit"}}]`, upgradedCommitSHA),
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	outputBuffer := &bytes.Buffer{}
	upgradedCount, upgradeError := service.Upgrade(context.Background(), actions.UpgradeOptions{
		WorkflowsDirectory: workflowsDirectory,
		OutputWriter:       outputBuffer,
	})
	require.NoError(testInstance, upgradeError)
	require.Equal(testInstance, 1, upgradedCount)

	rewrittenContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(rewrittenContents), "actions/checkout@"+upgradedCommitSHA)
	require.Contains(testInstance, string(rewrittenContents), "# v5.0.0")
	require.NotContains(testInstance, string(rewrittenContents), checkoutCommitSHAConstant)
}

func TestUpgradeDryRunLeavesFilesUntouched(testInstance *testing.T) {
	testInstance.Parallel()

	upgradedCommitSHA := "08c6903cd8c0fde910a37f88322edcfb5dd907a8"
	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # v4.2.0\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{
		"/repos/actions/checkout/releases/latest": `{"tag_name":"v5.0.0"}`,
		"/repos/actions/checkout/git/matching-refs/tags/v4.2.0": fmt.Sprintf(
			`[{"ref":"refs/tags/v4.2.0","object":{"sha":"%s","type":"commit"}}]`, checkoutCommitSHAConstant),
		"/repos/actions/checkout/git/matching-refs/tags/v5.0.0": fmt.Sprintf(
			`[{"ref":"refs/tags/v5.0.0","object":{"sha":"%s","type":"commit"}}]`, upgradedCommitSHA),
	}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	outputBuffer := &bytes.Buffer{}
	upgradedCount, upgradeError := service.Upgrade(context.Background(), actions.UpgradeOptions{
		WorkflowsDirectory: workflowsDirectory,
		DryRun:             true,
		OutputWriter:       outputBuffer,
	})
	require.NoError(testInstance, upgradeError)
	require.Equal(testInstance, 1, upgradedCount)
	require.Contains(testInstance, outputBuffer.String(), "actions/checkout")

	untouchedContents, readError := os.ReadFile(filepath.Join(workflowsDirectory, workflowFileNameConstant))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, workflowContents, string(untouchedContents))
}

func TestShowOfflineSkipsResolution(testInstance *testing.T) {
	testInstance.Parallel()

	workflowContents := "      - uses: actions/checkout@" + checkoutCommitSHAConstant + " # v4.2.0\n"
	workflowsDirectory := writeWorkflowFile(testInstance, workflowContents)

	payloadFetcher := &stubPayloadFetcher{payloadsByPath: map[string]string{}}
	service := actions.NewService(zap.NewNop(), payloadFetcher)

	outputBuffer := &bytes.Buffer{}
	showError := service.Show(context.Background(), actions.ShowOptions{
		WorkflowsDirectory: workflowsDirectory,
		Offline:            true,
		OutputWriter:       outputBuffer,
	})
	require.NoError(testInstance, showError)
	require.Empty(testInstance, payloadFetcher.requestedPaths)
	require.Contains(testInstance, outputBuffer.String(), "actions/checkout")
}
