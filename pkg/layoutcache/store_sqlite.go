package layoutcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/knotwork/pkg/metrics"
)

// cacheKey is the single well-known key the layout entry lives under.
const cacheKey = "layout"

// SQLiteStore keeps the entry in a one-row table inside a SQLite file.
// Useful when the host already carries a knowledge-base database and wants
// the cache co-located.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore creates a store backed by the database at path. The file
// and schema are created on first save.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Path returns the backing database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load reads the entry. A missing database or row is a cache miss.
func (s *SQLiteStore) Load() (*Entry, error) {
	defer metrics.Timer(metrics.CacheLoad)()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	defer db.Close()

	var payload []byte
	err = db.QueryRow(`SELECT payload FROM layout_cache WHERE key = ?`, cacheKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		// An older database without the table is a miss, not a failure.
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cache db: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode cache payload: %w", err)
	}
	return &entry, nil
}

// Save upserts the entry under the well-known key.
func (s *SQLiteStore) Save(entry *Entry) error {
	defer metrics.Timer(metrics.CacheSave)()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open cache db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS layout_cache (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create cache schema: %w", err)
	}

	_, err = db.Exec(`INSERT INTO layout_cache (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		cacheKey, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write cache row: %w", err)
	}
	return nil
}

func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces this as a plain error string.
	return strings.Contains(err.Error(), "no such table")
}
