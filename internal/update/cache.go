package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// cacheFileName is the name of the update check cache file
const cacheFileName = "update-check.json"

// CacheEntry stores the cached update check result
type CacheEntry struct {
	LatestVersion string    `json:"latest_version"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Cache handles caching of update check results
type Cache struct {
	path string
	ttl  time.Duration
}

// NewCache creates a cache at the default location (~/.jxscout/update-check.json)
func NewCache(ttl time.Duration) *Cache {
	return NewCacheAt(defaultCachePath(), ttl)
}

// NewCacheAt creates a cache backed by path. An empty path disables caching.
func NewCacheAt(path string, ttl time.Duration) *Cache {
	return &Cache{path: path, ttl: ttl}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jxscout", cacheFileName)
}

// Get returns the cached entry and whether it needs refresh.
// Returns (nil, true) if cache doesn't exist or is corrupted.
// Returns (entry, true) if cache exists but is stale.
// Returns (entry, false) if cache is fresh.
func (c *Cache) Get() (*CacheEntry, bool) {
	if c.path == "" {
		return nil, true
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, true
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, true
	}

	return &entry, time.Since(entry.CheckedAt) > c.ttl
}

// Set updates the cache with the latest version
func (c *Cache) Set(latestVersion string) {
	if c.path == "" {
		return
	}

	entry := CacheEntry{
		LatestVersion: latestVersion,
		CheckedAt:     time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return
	}

	// Write atomically by writing to temp file first
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return
	}
	_ = os.Rename(tmpPath, c.path)
}
