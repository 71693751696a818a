// Package datasource provides multi-source detection and selection for
// knotwork. It discovers, validates, and selects the freshest valid edge
// source from SQLite link databases and JSONL exports.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/knotwork/pkg/loader"
)

// SourceType identifies the type of edge source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite link database (links.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is a JSONL edge export
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// Source represents a potential source of edge data
type Source struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// EdgeCount is the number of edges in the source (set during validation)
	EdgeCount int `json:"edge_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s Source) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, edges=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.EdgeCount, status)
}

// sqliteExtensions are the file extensions treated as SQLite databases.
var sqliteExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

// Detect classifies an explicit path into a Source. Directories resolve to
// their preferred JSONL file; .db/.sqlite files become SQLite sources;
// everything else is treated as JSONL.
func Detect(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("cannot stat source %s: %w", path, err)
	}

	if info.IsDir() {
		jsonlPath, err := loader.FindJSONLPath(path)
		if err != nil {
			return Source{}, err
		}
		jsonlInfo, err := os.Stat(jsonlPath)
		if err != nil {
			return Source{}, fmt.Errorf("cannot stat source %s: %w", jsonlPath, err)
		}
		return Source{
			Type:     SourceTypeJSONL,
			Path:     jsonlPath,
			Priority: PriorityJSONL,
			ModTime:  jsonlInfo.ModTime(),
			Size:     jsonlInfo.Size(),
		}, nil
	}

	typ := SourceTypeJSONL
	priority := PriorityJSONL
	if sqliteExtensions[strings.ToLower(filepath.Ext(path))] {
		typ = SourceTypeSQLite
		priority = PrioritySQLite
	}

	return Source{
		Type:     typ,
		Path:     path,
		Priority: priority,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the link store directory (optional, resolved via loader if empty)
	Dir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// DiscoverSources finds all potential edge sources in the link store directory
func DiscoverSources(opts DiscoveryOptions) ([]Source, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = loader.ResolveDir("")
		if err != nil {
			return nil, err
		}
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	var sources []Source

	sqliteSources, err := discoverSQLiteSources(dir, opts)
	if err != nil && opts.Verbose {
		opts.Logger(fmt.Sprintf("SQLite discovery warning: %v", err))
	}
	sources = append(sources, sqliteSources...)

	jsonlSources, err := discoverJSONLSources(dir, opts)
	if err != nil && opts.Verbose {
		opts.Logger(fmt.Sprintf("JSONL discovery warning: %v", err))
	}
	sources = append(sources, jsonlSources...)

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var validSources []Source
		for _, s := range sources {
			if s.Valid {
				validSources = append(validSources, s)
			}
		}
		sources = validSources
	}

	// Sort by mod time, then priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}

	return sources, nil
}

// discoverSQLiteSources finds SQLite link databases in the store directory
func discoverSQLiteSources(dir string, opts DiscoveryOptions) ([]Source, error) {
	var sources []Source

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read link store directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !sqliteExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		path := filepath.Join(dir, name)
		info, err := e.Info()
		if err != nil {
			continue
		}

		sources = append(sources, Source{
			Type:     SourceTypeSQLite,
			Path:     path,
			Priority: PrioritySQLite,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found SQLite: %s (mod=%s)", path, info.ModTime().Format(time.RFC3339)))
		}
	}

	return sources, nil
}

// discoverJSONLSources finds JSONL edge exports in the store directory
func discoverJSONLSources(dir string, opts DiscoveryOptions) ([]Source, error) {
	var sources []Source

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read link store directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		// Skip backups and merge artifacts
		if strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") ||
			strings.Contains(name, ".merge") {
			continue
		}

		path := filepath.Join(dir, name)
		info, err := e.Info()
		if err != nil {
			continue
		}

		sources = append(sources, Source{
			Type:     SourceTypeJSONL,
			Path:     path,
			Priority: PriorityJSONL,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found JSONL: %s (mod=%s)", path, info.ModTime().Format(time.RFC3339)))
		}
	}

	return sources, nil
}

// ValidateSource checks that a source can actually be read and records its
// edge count. Validation failures are recorded on the source, not fatal.
func ValidateSource(s *Source) error {
	switch s.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(*s)
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return err
		}
		defer reader.Close()
		count, err := reader.CountEdges()
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return err
		}
		s.EdgeCount = count
		s.Valid = true
		return nil

	case SourceTypeJSONL:
		edges, err := loader.LoadFileWithOptions(s.Path, loader.ParseOptions{
			WarningHandler: func(string) {},
		})
		if err != nil {
			s.Valid = false
			s.ValidationError = err.Error()
			return err
		}
		s.EdgeCount = len(edges)
		s.Valid = true
		return nil

	default:
		s.Valid = false
		s.ValidationError = fmt.Sprintf("unknown source type: %s", s.Type)
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

// SelectBestSource picks the freshest valid source. Sources must already be
// sorted by DiscoverSources; the first valid entry wins.
func SelectBestSource(sources []Source) (Source, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("no valid edge source available")
}
