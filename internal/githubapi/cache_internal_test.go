package githubapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const cachedRequestURLConstant = "https://api.github.com/repos/actions/checkout/tags"

func TestResponseCacheRoundTrip(testInstance *testing.T) {
	responseCache := NewResponseCache(testInstance.TempDir(), time.Hour)
	storedPayload := json.RawMessage(`[{"name":"v4.2.0"}]`)

	responseCache.Store(cachedRequestURLConstant, storedPayload)
	cachedPayload, cacheHit := responseCache.Lookup(cachedRequestURLConstant)

	require.True(testInstance, cacheHit)
	require.JSONEq(testInstance, string(storedPayload), string(cachedPayload))
}

func TestResponseCacheMissesForUnknownURL(testInstance *testing.T) {
	responseCache := NewResponseCache(testInstance.TempDir(), time.Hour)

	_, cacheHit := responseCache.Lookup(cachedRequestURLConstant)
	require.False(testInstance, cacheHit)
}

func TestResponseCacheExpiresStaleEntries(testInstance *testing.T) {
	responseCache := NewResponseCache(testInstance.TempDir(), time.Hour)
	currentTime := time.Now()
	responseCache.clock = func() time.Time { return currentTime }

	responseCache.Store(cachedRequestURLConstant, json.RawMessage(`{"sha":"abc"}`))

	responseCache.clock = func() time.Time { return currentTime.Add(2 * time.Hour) }
	_, cacheHit := responseCache.Lookup(cachedRequestURLConstant)
	require.False(testInstance, cacheHit)
}

func TestResponseCacheNeverStoresEmptyPayloads(testInstance *testing.T) {
	responseCache := NewResponseCache(testInstance.TempDir(), time.Hour)

	responseCache.Store(cachedRequestURLConstant, nil)
	_, cacheHit := responseCache.Lookup(cachedRequestURLConstant)
	require.False(testInstance, cacheHit)
}
