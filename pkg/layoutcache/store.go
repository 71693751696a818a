package layoutcache

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/knotwork/pkg/metrics"
)

// Store is the durable home of the single cache entry: get/put against one
// well-known key. Any key-value medium works; knotwork ships a JSON file
// store and a SQLite store.
type Store interface {
	// Load returns the stored entry, or (nil, nil) when none exists yet.
	Load() (*Entry, error)
	// Save replaces the stored entry.
	Save(*Entry) error
}

// FileStore keeps the entry as one JSON document on disk, typically under
// the XDG state dir.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path. Parent directories are
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the entry. A missing file is a cache miss, not an error.
func (s *FileStore) Load() (*Entry, error) {
	defer metrics.Timer(metrics.CacheLoad)()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read layout cache: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode layout cache: %w", err)
	}
	return &entry, nil
}

// Save writes the entry, creating parent directories as needed.
// The write is atomic (temp file + rename) so a concurrent reader never
// sees a half-written entry.
func (s *FileStore) Save(entry *Entry) error {
	defer metrics.Timer(metrics.CacheSave)()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode layout cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write layout cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace layout cache: %w", err)
	}
	return nil
}
