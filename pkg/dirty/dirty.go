// Package dirty tracks which source files changed since graphs were last
// built for them. Files are compared by content hash, so touching a file
// without editing it does not force a rebuild.
package dirty

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCacheDir is the default directory for the tracker snapshot.
const DefaultCacheDir = ".gcd/cache"

// DefaultCacheFile is the default snapshot filename.
const DefaultCacheFile = "dirty.json"

// fileRecord is the tracked state of one file.
type fileRecord struct {
	Path   string `json:"path"`
	Hash   string `json:"hash"`
	Dirty  bool   `json:"dirty"`
	SeenAt int64  `json:"seen_at"`
}

// snapshot is the on-disk JSON structure.
type snapshot struct {
	Version int          `json:"version"`
	Files   []fileRecord `json:"files"`
}

// Tracker records per-file content hashes and dirty flags. Safe for
// concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	files     map[string]fileRecord
	cacheDir  string
	cacheFile string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCacheDir sets the snapshot directory.
func WithCacheDir(dir string) Option {
	return func(t *Tracker) {
		t.cacheDir = dir
	}
}

// WithCacheFile sets the snapshot filename.
func WithCacheFile(file string) Option {
	return func(t *Tracker) {
		t.cacheFile = file
	}
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		files:     make(map[string]fileRecord),
		cacheDir:  DefaultCacheDir,
		cacheFile: DefaultCacheFile,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromCache creates a Tracker and loads its snapshot from the default
// location.
func NewFromCache() (*Tracker, error) {
	t := New()
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// hashFile computes the SHA256 hash of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CheckAndMark rehashes the file and reports whether its content changed
// since it was last seen. A changed or unseen file is marked dirty; an
// unchanged file gets its dirty flag cleared.
func (t *Tracker) CheckAndMark(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", path, err)
	}

	hash, err := hashFile(absPath)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.files[absPath]
	if ok && existing.Hash == hash {
		existing.Dirty = false
		t.files[absPath] = existing
		return false, nil
	}

	t.files[absPath] = fileRecord{
		Path:   absPath,
		Hash:   hash,
		Dirty:  true,
		SeenAt: time.Now().Unix(),
	}
	return true, nil
}

// MarkDirty rehashes the file and marks it dirty unless the hash matches a
// clean record.
func (t *Tracker) MarkDirty(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	hash, err := hashFile(absPath)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.files[absPath]
	if ok && existing.Hash == hash && !existing.Dirty {
		return nil
	}

	t.files[absPath] = fileRecord{
		Path:   absPath,
		Hash:   hash,
		Dirty:  true,
		SeenAt: time.Now().Unix(),
	}
	return nil
}

// IsDirty reports whether a file is currently marked dirty.
func (t *Tracker) IsDirty(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.files[absPath]
	return ok && record.Dirty
}

// DirtyFiles returns all files currently marked dirty.
func (t *Tracker) DirtyFiles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []string
	for _, record := range t.files {
		if record.Dirty {
			result = append(result, record.Path)
		}
	}
	return result
}

// ClearDirty clears the dirty flag for the given files; with no arguments it
// clears every flag. Hashes stay recorded.
func (t *Tracker) ClearDirty(files []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(files) == 0 {
		for path, record := range t.files {
			record.Dirty = false
			t.files[path] = record
		}
		return
	}

	for _, path := range files {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if record, ok := t.files[absPath]; ok {
			record.Dirty = false
			t.files[absPath] = record
		}
	}
}

// Count returns the number of dirty files.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, record := range t.files {
		if record.Dirty {
			count++
		}
	}
	return count
}

// Remove drops a file from tracking entirely.
func (t *Tracker) Remove(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, absPath)
}

// Clear drops all tracked files.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]fileRecord)
}

func (t *Tracker) cachePath() string {
	return filepath.Join(t.cacheDir, t.cacheFile)
}

// Save writes the tracker snapshot to its cache file.
func (t *Tracker) Save() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := os.MkdirAll(t.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	files := make([]fileRecord, 0, len(t.files))
	for _, record := range t.files {
		files = append(files, record)
	}

	f, err := os.Create(t.cachePath())
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot{Version: 1, Files: files}); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Load restores the tracker snapshot from its cache file. A missing file
// leaves the tracker empty.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.cachePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	var data snapshot
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	t.files = make(map[string]fileRecord, len(data.Files))
	for _, record := range data.Files {
		t.files[record.Path] = record
	}
	return nil
}
