package datasource

import (
	"fmt"

	"github.com/vanderheijden86/knotwork/pkg/debug"
	"github.com/vanderheijden86/knotwork/pkg/loader"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// LoadEdges performs smart multi-source detection and loading.
// It discovers all available sources (SQLite, JSONL), validates them,
// selects the freshest valid source, and loads edges from it. SQLite is
// preferred over JSONL when both exist at comparable freshness, since the
// database reflects the most recent link-store state.
//
// Falls back to plain JSONL loading via loader.Load if smart detection
// finds no valid sources.
func LoadEdges(root string) ([]model.Edge, error) {
	dir, err := loader.ResolveDir(root)
	if err != nil {
		return nil, err
	}

	edges, smartErr := loadSmart(dir)
	if smartErr == nil {
		return edges, nil
	}
	debug.Log("smart source detection failed (%v), falling back to JSONL", smartErr)

	return loader.Load(root)
}

// LoadEdgesFromPath loads edges from an explicit path: a JSONL file, a
// SQLite database, or a directory containing either.
func LoadEdgesFromPath(path string) ([]model.Edge, error) {
	source, err := Detect(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(source)
}

// loadSmart discovers sources, validates, selects the best, and loads from it.
func loadSmart(dir string) ([]model.Edge, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		Dir:                    dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid sources discovered")
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}
	debug.Log("selected edge source %s", best.String())

	return LoadFromSource(best)
}

// LoadFromSource loads edges from a specific Source, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(source Source) ([]model.Edge, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		return reader.LoadEdges()

	case SourceTypeJSONL:
		return loadEdgesFromJSONL(source.Path)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
