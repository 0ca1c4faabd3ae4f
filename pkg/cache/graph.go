// Package cache provides caching utilities for the application.
// This file contains the graph-specific cache implementation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-control-deps/pkg/cdg"
)

// GraphKey builds the cache key for one function's graph. The content hash
// is truncated so keys stay readable in logs and status output.
func GraphKey(file, functionName, contentHash string) string {
	if len(contentHash) > 12 {
		contentHash = contentHash[:12]
	}
	return file + ":" + functionName + ":" + contentHash
}

// GraphCacheOptions configures the graph cache.
type GraphCacheOptions struct {
	MaxEntries int
	MaxBytes   int64
	// Path is the persistence file; empty disables Save and Load.
	Path    string
	OnEvict func(key string)
}

// GraphCache is a specialized cache for control dependence graph snapshots.
// Snapshots are held msgpack-encoded, so the memory bound tracks the real
// payload size rather than a struct estimate.
type GraphCache struct {
	cache *StatsCache
	mu    sync.RWMutex
	path  string
}

// NewGraphCache creates a new graph cache.
func NewGraphCache(opts GraphCacheOptions) *GraphCache {
	if opts.MaxEntries == 0 {
		opts.MaxEntries = 1024
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = 64 * 1024 * 1024
	}

	gc := &GraphCache{
		path: opts.Path,
		cache: NewStatsCache(Options{
			MaxSize:  opts.MaxEntries,
			MaxBytes: opts.MaxBytes,
			OnEvict: func(key string, _ interface{}) {
				if opts.OnEvict != nil {
					opts.OnEvict(key)
				}
			},
		}),
	}
	return gc
}

// Put stores a graph snapshot under the given key.
func (gc *GraphCache) Put(key string, info *cdg.CDGInfo) error {
	data, err := msgpack.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode graph %s: %w", key, err)
	}
	gc.cache.Set(key, data)
	return nil
}

// Get retrieves a graph snapshot by key.
func (gc *GraphCache) Get(key string) (*cdg.CDGInfo, bool) {
	value, found := gc.cache.Get(key)
	if !found {
		return nil, false
	}
	data, ok := toBytes(value)
	if !ok {
		return nil, false
	}
	var info cdg.CDGInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		gc.cache.Delete(key)
		return nil, false
	}
	return &info, true
}

// Delete removes a snapshot from the cache.
func (gc *GraphCache) Delete(key string) {
	gc.cache.Delete(key)
}

// InvalidateFile drops every snapshot cached for the given file and returns
// the number of entries removed.
func (gc *GraphCache) InvalidateFile(path string) int {
	prefix := path + ":"
	removed := 0
	for _, key := range gc.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			gc.cache.Delete(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached snapshots.
func (gc *GraphCache) Len() int {
	return gc.cache.Len()
}

// Stats returns cache statistics including hit and miss counts.
func (gc *GraphCache) Stats() Stats {
	return gc.cache.Stats()
}

// Save persists the cache to its configured path.
func (gc *GraphCache) Save() error {
	if gc.path == "" {
		return nil
	}
	gc.mu.Lock()
	defer gc.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(gc.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.Create(gc.path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	return gc.cache.Save(f)
}

// Load restores the cache from its configured path. A missing file is not
// an error.
func (gc *GraphCache) Load() error {
	if gc.path == "" {
		return nil
	}
	gc.mu.Lock()
	defer gc.mu.Unlock()

	f, err := os.Open(gc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return gc.cache.Load(f)
}

// toBytes normalizes a cached payload. msgpack decodes []byte values from a
// persisted cache as strings, so both shapes appear in practice.
func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// HashString generates a SHA256 hash of a string.
func HashString(content string) string {
	h := sha256.New()
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes generates a SHA256 hash of bytes.
func HashBytes(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile generates a SHA256 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return HashBytes(data), nil
}
