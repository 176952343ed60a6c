package githubapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheEntryFileExtensionConstant   = ".json"
	cacheDirectoryPermissionsConstant = 0o755
	cacheEntryPermissionsConstant     = 0o644
)

// cacheEntry is the on-disk representation of a cached API response.
type cacheEntry struct {
	RequestURL string          `json:"url"`
	FetchedAt  int64           `json:"fetched_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ResponseCache stores successful API payloads keyed by request URL. Entries
// older than the configured time to live are treated as absent.
type ResponseCache struct {
	directory  string
	timeToLive time.Duration
	clock      func() time.Time
}

// NewResponseCache creates a ResponseCache rooted at the provided directory.
func NewResponseCache(cacheDirectory string, timeToLive time.Duration) *ResponseCache {
	return &ResponseCache{directory: cacheDirectory, timeToLive: timeToLive, clock: time.Now}
}

// entryPath derives a stable file name for the request URL.
func (responseCache *ResponseCache) entryPath(requestURL string) string {
	urlDigest := sha256.Sum256([]byte(requestURL))
	entryFileName := hex.EncodeToString(urlDigest[:]) + cacheEntryFileExtensionConstant
	return filepath.Join(responseCache.directory, entryFileName)
}

// Lookup returns the cached payload for the request URL when a fresh entry
// exists.
func (responseCache *ResponseCache) Lookup(requestURL string) (json.RawMessage, bool) {
	entryContents, readError := os.ReadFile(responseCache.entryPath(requestURL))
	if readError != nil {
		return nil, false
	}
	var storedEntry cacheEntry
	if unmarshalError := json.Unmarshal(entryContents, &storedEntry); unmarshalError != nil {
		return nil, false
	}
	if len(storedEntry.Payload) == 0 {
		return nil, false
	}
	entryAge := responseCache.clock().Sub(time.Unix(storedEntry.FetchedAt, 0))
	if entryAge > responseCache.timeToLive {
		return nil, false
	}
	return storedEntry.Payload, true
}

// Store persists the payload for the request URL. Empty payloads are never
// cached so transient failures do not mask later successes.
func (responseCache *ResponseCache) Store(requestURL string, payload json.RawMessage) {
	if len(payload) == 0 {
		return
	}
	if directoryError := os.MkdirAll(responseCache.directory, cacheDirectoryPermissionsConstant); directoryError != nil {
		return
	}
	entryToStore := cacheEntry{RequestURL: requestURL, FetchedAt: responseCache.clock().Unix(), Payload: payload}
	encodedEntry, marshalError := json.Marshal(entryToStore)
	if marshalError != nil {
		return
	}
	_ = os.WriteFile(responseCache.entryPath(requestURL), encodedEntry, cacheEntryPermissionsConstant)
}
