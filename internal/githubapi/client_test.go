package githubapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/githubapi"
)

const tagsRequestPathConstant = "/repos/actions/checkout/tags"

func TestFetchJSONReturnsPayloadOnSuccess(testInstance *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		require.Equal(testInstance, "application/vnd.github+json", request.Header.Get("Accept"))
		require.Equal(testInstance, "2022-11-28", request.Header.Get("X-GitHub-Api-Version"))
		responseWriter.WriteHeader(http.StatusOK)
		_, _ = responseWriter.Write([]byte(`[{"name":"v4.2.0"}]`))
	}))
	defer apiServer.Close()

	apiClient := githubapi.NewClient(zap.NewNop(), githubapi.ClientOptions{BaseURL: apiServer.URL})
	payload := apiClient.FetchJSON(context.Background(), tagsRequestPathConstant)

	require.NotNil(testInstance, payload)
	var decodedTags []struct {
		Name string `json:"name"`
	}
	require.True(testInstance, githubapi.DecodeInto(payload, &decodedTags))
	require.Len(testInstance, decodedTags, 1)
	require.Equal(testInstance, "v4.2.0", decodedTags[0].Name)
}

func TestFetchJSONReturnsNilForMissingResources(testInstance *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer apiServer.Close()

	apiClient := githubapi.NewClient(zap.NewNop(), githubapi.ClientOptions{BaseURL: apiServer.URL})
	require.Nil(testInstance, apiClient.FetchJSON(context.Background(), tagsRequestPathConstant))
}

func TestFetchJSONReturnsNilWhenRateLimited(testInstance *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		responseWriter.WriteHeader(http.StatusForbidden)
	}))
	defer apiServer.Close()

	apiClient := githubapi.NewClient(zap.NewNop(), githubapi.ClientOptions{BaseURL: apiServer.URL})
	require.Nil(testInstance, apiClient.FetchJSON(context.Background(), tagsRequestPathConstant))
}

func TestFetchJSONServesRepeatRequestsFromCache(testInstance *testing.T) {
	var requestCount atomic.Int64
	apiServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		responseWriter.WriteHeader(http.StatusOK)
		_, _ = responseWriter.Write([]byte(`{"tag_name":"v4.2.0"}`))
	}))
	defer apiServer.Close()

	responseCache := githubapi.NewResponseCache(testInstance.TempDir(), time.Hour)
	apiClient := githubapi.NewClient(zap.NewNop(), githubapi.ClientOptions{
		BaseURL:       apiServer.URL,
		ResponseCache: responseCache,
	})

	firstPayload := apiClient.FetchJSON(context.Background(), tagsRequestPathConstant)
	secondPayload := apiClient.FetchJSON(context.Background(), tagsRequestPathConstant)

	require.NotNil(testInstance, firstPayload)
	require.JSONEq(testInstance, string(firstPayload), string(secondPayload))
	require.Equal(testInstance, int64(1), requestCount.Load())
}

func TestFetchJSONDoesNotCacheFailures(testInstance *testing.T) {
	var requestCount atomic.Int64
	apiServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestCount.Add(1)
		responseWriter.WriteHeader(http.StatusNotFound)
	}))
	defer apiServer.Close()

	responseCache := githubapi.NewResponseCache(testInstance.TempDir(), time.Hour)
	apiClient := githubapi.NewClient(zap.NewNop(), githubapi.ClientOptions{
		BaseURL:       apiServer.URL,
		ResponseCache: responseCache,
	})

	require.Nil(testInstance, apiClient.FetchJSON(context.Background(), tagsRequestPathConstant))
	require.Nil(testInstance, apiClient.FetchJSON(context.Background(), tagsRequestPathConstant))
	require.Equal(testInstance, int64(2), requestCount.Load())
}
