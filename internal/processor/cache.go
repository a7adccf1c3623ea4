package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/obentoo/nattka/internal/keywording"
)

// ErrCacheCorrupted is returned when the cache file cannot be parsed
var ErrCacheCorrupted = errors.New("cache file is corrupted")

// DefaultCacheTTL is the default time-to-live for cache entries (1 hour)
const DefaultCacheTTL = time.Hour

// CacheEntry is the remembered check result of one bug
type CacheEntry struct {
	// Outcome is "passed" or "failed"
	Outcome string `json:"outcome"`
	// Reasons are the failure reasons, empty when passed
	Reasons []string `json:"reasons,omitempty"`
	// Digest identifies the package list the outcome was computed for
	Digest string `json:"digest"`
	// Timestamp is when this entry was cached
	Timestamp time.Time `json:"timestamp"`
}

// cacheFile represents the JSON structure stored on disk
type cacheFile struct {
	Entries map[string]CacheEntry `json:"entries"`
}

// Cache remembers check outcomes per bug so that unchanged bugs are not
// re-checked inside the TTL. It is safe for concurrent use.
type Cache struct {
	entries map[string]CacheEntry
	ttl     time.Duration
	path    string
	mu      sync.RWMutex
	nowFunc func() time.Time
}

// CacheOption is a functional option for configuring Cache
type CacheOption func(*Cache)

// WithTTL sets a custom TTL for the cache
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNowFunc sets a custom time function for testing
func WithNowFunc(fn func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowFunc = fn
	}
}

// NewCache loads the cache stored at path. A missing or corrupted file
// yields an empty cache that overwrites it on the next Put.
func NewCache(path string, opts ...CacheOption) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		entries: make(map[string]CacheEntry),
		ttl:     DefaultCacheTTL,
		path:    path,
		nowFunc: time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	if err := cache.load(); err != nil && !os.IsNotExist(err) {
		cache.entries = make(map[string]CacheEntry)
	}

	return cache, nil
}

// Digest returns the cache digest of a raw package list
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}

	if cf.Entries != nil {
		c.entries = cf.Entries
	}

	return nil
}

// Lookup returns the cached outcome of a bug if the entry was computed for
// the same package list and has not expired.
func (c *Cache) Lookup(id int, digest string) (keywording.Outcome, []string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[strconv.Itoa(id)]
	if !exists || entry.Digest != digest || c.isExpired(entry) {
		return keywording.OutcomeUnknown, nil, false
	}

	outcome, ok := parseOutcome(entry.Outcome)
	if !ok {
		return keywording.OutcomeUnknown, nil, false
	}
	return outcome, append([]string(nil), entry.Reasons...), true
}

// Put records the outcome of a bug and saves the cache to disk.
// Unknown outcomes are not cached.
func (c *Cache) Put(id int, digest string, outcome keywording.Outcome, reasons []string) error {
	if outcome == keywording.OutcomeUnknown {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[strconv.Itoa(id)] = CacheEntry{
		Outcome:   outcome.String(),
		Reasons:   append([]string(nil), reasons...),
		Digest:    digest,
		Timestamp: c.nowFunc(),
	}

	return c.saveUnsafe()
}

// Entry returns the raw entry for a bug without TTL or digest checks
func (c *Cache) Entry(id int) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[strconv.Itoa(id)]
	return entry, exists
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes all expired entries and saves the cache.
func (c *Cache) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.entries {
		if c.isExpired(entry) {
			delete(c.entries, id)
		}
	}

	return c.saveUnsafe()
}

func (c *Cache) isExpired(entry CacheEntry) bool {
	return c.nowFunc().Sub(entry.Timestamp) >= c.ttl
}

// saveUnsafe persists the cache to disk. Caller must hold the write lock.
func (c *Cache) saveUnsafe() error {
	data, err := json.MarshalIndent(cacheFile{Entries: c.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	return nil
}

func parseOutcome(s string) (keywording.Outcome, bool) {
	switch s {
	case keywording.OutcomePassed.String():
		return keywording.OutcomePassed, true
	case keywording.OutcomeFailed.String():
		return keywording.OutcomeFailed, true
	default:
		return keywording.OutcomeUnknown, false
	}
}
