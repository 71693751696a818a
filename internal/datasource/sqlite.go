package datasource

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

// SQLiteReader provides read access to a link store SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source Source) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode with various pragmas for read performance
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set pragmas for read performance
	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Non-fatal, just log
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadEdges reads all edges from the database
func (r *SQLiteReader) LoadEdges() ([]model.Edge, error) {
	return r.LoadEdgesFiltered(nil)
}

// LoadEdgesFiltered reads edges matching the filter function
func (r *SQLiteReader) LoadEdgesFiltered(filter func(model.Edge) bool) ([]model.Edge, error) {
	query := `
		SELECT source, target, relationship, bidirectional
		FROM links
		ORDER BY source, target, relationship
	`

	rows, err := r.db.Query(query)
	if err != nil {
		// Older link stores lack the bidirectional column
		return r.loadEdgesSimple(filter)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var edge model.Edge
		var relationship string
		var bidirectional sql.NullBool

		if err := rows.Scan(&edge.Source, &edge.Target, &relationship, &bidirectional); err != nil {
			continue
		}

		edge.Relationship = model.Relationship(strings.ToLower(strings.TrimSpace(relationship)))
		if bidirectional.Valid {
			edge.Bidirectional = bidirectional.Bool
		}

		if edge.Validate() != nil {
			continue
		}
		if filter != nil && !filter(edge) {
			continue
		}

		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return edges, nil
}

// loadEdgesSimple is a fallback for databases without the bidirectional column
func (r *SQLiteReader) loadEdgesSimple(filter func(model.Edge) bool) ([]model.Edge, error) {
	query := `
		SELECT source, target, relationship
		FROM links
		ORDER BY source, target, relationship
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var edge model.Edge
		var relationship string

		if err := rows.Scan(&edge.Source, &edge.Target, &relationship); err != nil {
			continue
		}

		edge.Relationship = model.Relationship(strings.ToLower(strings.TrimSpace(relationship)))

		if edge.Validate() != nil {
			continue
		}
		if filter != nil && !filter(edge) {
			continue
		}

		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return edges, nil
}

// CountEdges returns the number of links in the database
func (r *SQLiteReader) CountEdges() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
