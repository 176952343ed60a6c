package githubapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/temirov/tend/internal/githubauth"
)

const (
	// DefaultBaseURL is the GitHub REST API origin.
	DefaultBaseURL = "https://api.github.com"
	// DefaultCacheTimeToLive bounds how long cached responses stay fresh.
	DefaultCacheTimeToLive = 24 * time.Hour

	acceptHeaderNameConstant        = "Accept"
	acceptHeaderValueConstant       = "application/vnd.github+json"
	apiVersionHeaderNameConstant    = "X-GitHub-Api-Version"
	apiVersionHeaderValueConstant   = "2022-11-28"
	authorizationHeaderNameConstant = "Authorization"
	bearerTokenPrefixConstant       = "Bearer "
	userAgentHeaderNameConstant     = "User-Agent"
	userAgentHeaderValueConstant    = "tend"

	requestTimeoutConstant    = 15 * time.Second
	maximumRetryCountConstant = 2

	rateLimitGuidanceMessageConstant   = "github api rate limit reached; set GH_TOKEN or GITHUB_TOKEN to raise the limit"
	requestFailedLogMessageConstant    = "github api request failed"
	unexpectedStatusLogMessageConstant = "github api returned unexpected status"
	requestURLLogFieldNameConstant     = "url"
	statusCodeLogFieldNameConstant     = "status"
)

// Client issues GitHub REST requests with retrying transport, optional bearer
// authentication, and an optional response cache. Failures never surface as
// errors; callers receive a nil payload and decide how to proceed.
type Client struct {
	httpClient    *retryablehttp.Client
	baseURL       string
	bearerToken   string
	responseCache *ResponseCache
	logger        *zap.Logger
}

// ClientOptions configures optional Client behavior.
type ClientOptions struct {
	BaseURL       string
	ResponseCache *ResponseCache
}

// NewClient creates a Client that resolves its token from the environment.
func NewClient(logger *zap.Logger, options ClientOptions) *Client {
	retryingClient := retryablehttp.NewClient()
	retryingClient.RetryMax = maximumRetryCountConstant
	retryingClient.Logger = nil
	retryingClient.HTTPClient.Timeout = requestTimeoutConstant
	resolvedBaseURL := options.BaseURL
	if len(resolvedBaseURL) == 0 {
		resolvedBaseURL = DefaultBaseURL
	}
	resolvedToken, _ := githubauth.ResolveToken()
	return &Client{
		httpClient:    retryingClient,
		baseURL:       resolvedBaseURL,
		bearerToken:   resolvedToken,
		responseCache: options.ResponseCache,
		logger:        logger,
	}
}

// FetchJSON retrieves the JSON payload at the API path, consulting the cache
// first. The path must begin with a slash, for example
// "/repos/actions/checkout/tags". A nil result means the resource could not be
// resolved.
func (client *Client) FetchJSON(executionContext context.Context, requestPath string) json.RawMessage {
	requestURL := client.baseURL + requestPath
	if client.responseCache != nil {
		if cachedPayload, cacheHit := client.responseCache.Lookup(requestURL); cacheHit {
			return cachedPayload
		}
	}
	fetchedPayload := client.fetch(executionContext, requestURL)
	if client.responseCache != nil && len(fetchedPayload) > 0 {
		client.responseCache.Store(requestURL, fetchedPayload)
	}
	return fetchedPayload
}

func (client *Client) fetch(executionContext context.Context, requestURL string) json.RawMessage {
	apiRequest, requestError := retryablehttp.NewRequestWithContext(executionContext, http.MethodGet, requestURL, nil)
	if requestError != nil {
		client.logger.Debug(requestFailedLogMessageConstant, zap.String(requestURLLogFieldNameConstant, requestURL), zap.Error(requestError))
		return nil
	}
	apiRequest.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	apiRequest.Header.Set(apiVersionHeaderNameConstant, apiVersionHeaderValueConstant)
	apiRequest.Header.Set(userAgentHeaderNameConstant, userAgentHeaderValueConstant)
	if len(client.bearerToken) > 0 {
		apiRequest.Header.Set(authorizationHeaderNameConstant, bearerTokenPrefixConstant+client.bearerToken)
	}
	apiResponse, responseError := client.httpClient.Do(apiRequest)
	if responseError != nil {
		client.logger.Debug(requestFailedLogMessageConstant, zap.String(requestURLLogFieldNameConstant, requestURL), zap.Error(responseError))
		return nil
	}
	defer func() {
		_ = apiResponse.Body.Close()
	}()
	switch {
	case apiResponse.StatusCode == http.StatusOK:
		responseBody, readError := io.ReadAll(apiResponse.Body)
		if readError != nil {
			client.logger.Debug(requestFailedLogMessageConstant, zap.String(requestURLLogFieldNameConstant, requestURL), zap.Error(readError))
			return nil
		}
		return responseBody
	case apiResponse.StatusCode == http.StatusForbidden:
		client.logger.Warn(rateLimitGuidanceMessageConstant, zap.String(requestURLLogFieldNameConstant, requestURL))
		return nil
	case apiResponse.StatusCode == http.StatusNotFound:
		return nil
	default:
		client.logger.Debug(unexpectedStatusLogMessageConstant, zap.String(requestURLLogFieldNameConstant, requestURL), zap.Int(statusCodeLogFieldNameConstant, apiResponse.StatusCode))
		return nil
	}
}

// DecodeInto unmarshals the payload into the destination and reports whether
// decoding succeeded.
func DecodeInto(payload json.RawMessage, destination any) bool {
	if len(payload) == 0 {
		return false
	}
	return json.Unmarshal(payload, destination) == nil
}
