package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists Snapshots as a single JSON document. Writes go through
// a temp-file-then-rename replace so a reader never observes a partial file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot from disk. A missing or corrupt file yields empty
// defaults, never an error; the previous good state is simply gone in that
// case and dedupe windows rebuild over the TTL.
func (s *FileStore) Load() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return NewSnapshot()
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return NewSnapshot()
	}
	snap.applyDefaults()
	return snap
}

// Save atomically replaces the snapshot file.
func (s *FileStore) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return WriteFileAtomic(s.path, data)
}

// Reset replaces the snapshot with empty defaults.
func (s *FileStore) Reset() error {
	return s.Save(NewSnapshot())
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename. Used for the snapshot and every standalone cached
// file so a crash mid-write cannot corrupt prior state.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// LoadJSONFile reads a JSON file into dst. Missing or corrupt files leave
// dst untouched and report ok=false.
func LoadJSONFile(path string, dst any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SaveJSONFile marshals v and writes it atomically to path.
func SaveJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}
