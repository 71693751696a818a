// Package workspace aggregates link edges from multiple vault roots into a
// single merged edge list. Roots load in parallel; duplicate edges across
// roots collapse first-seen-wins so root order stays meaningful.
package workspace

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/knotwork/internal/datasource"
	"github.com/vanderheijden86/knotwork/pkg/config"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// maxConcurrentRoots bounds fan-out so a workspace with many roots does not
// exhaust file descriptors.
const maxConcurrentRoots = 16

// Root is a single directory that contributes edges to the merged graph.
type Root struct {
	// Name identifies the root in logs and summaries. Empty names fall
	// back to the path base name.
	Name string

	// Path is the directory handed to source detection.
	Path string

	// Prefix, when set, namespaces every node ID from this root so that
	// identically named notes in different vaults stay distinct.
	Prefix string
}

// DisplayName returns the configured name, or the path base name when unset.
func (r Root) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return filepath.Base(r.Path)
}

// RootsFromConfig converts configured workspace entries into loader roots.
// Single-entry workspaces skip namespacing; multi-entry workspaces prefix
// node IDs with the entry name to keep vaults distinct.
func RootsFromConfig(entries []config.Workspace) []Root {
	roots := make([]Root, 0, len(entries))
	for _, e := range entries {
		root := Root{Name: e.Name, Path: e.Path}
		if len(entries) > 1 {
			root.Prefix = root.DisplayName()
		}
		roots = append(roots, root)
	}
	return roots
}

// LoadResult contains the result of loading a single root.
type LoadResult struct {
	// Root is the root this result belongs to.
	Root Root

	// Edges are the loaded edges, namespaced when the root carries a prefix.
	Edges []model.Edge

	// Err is set if loading failed.
	Err error
}

// Loader loads edges from every root of a workspace.
type Loader struct {
	roots  []Root
	logger *log.Logger
}

// NewLoader creates a loader over the given roots.
func NewLoader(roots []Root) *Loader {
	return &Loader{
		roots: roots,
		// Silence by default. Callers opt in via SetLogger. This keeps
		// stderr clean for robot consumers that capture combined output.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets a custom logger for warning output.
func (l *Loader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// LoadAll loads edges from every root and merges them. Failed roots are
// logged but do not break the overall load; the caller inspects the
// per-root results for partial failures.
func (l *Loader) LoadAll(ctx context.Context) ([]model.Edge, []LoadResult, error) {
	if len(l.roots) == 0 {
		return nil, nil, fmt.Errorf("workspace has no roots")
	}

	results, err := l.loadRootsParallel(ctx)
	if err != nil {
		return nil, results, fmt.Errorf("fatal error during parallel loading: %w", err)
	}

	merged := Merge(results)
	for _, result := range results {
		if result.Err != nil {
			l.logger.Printf("WARNING: failed to load root %q: %v", result.Root.DisplayName(), result.Err)
		}
	}

	return merged, results, nil
}

// loadRootsParallel loads every root concurrently. Results land in root
// order regardless of completion order, so the merge stays deterministic.
func (l *Loader) loadRootsParallel(ctx context.Context) ([]LoadResult, error) {
	results := make([]LoadResult, len(l.roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRoots)

	for i, root := range l.roots {
		i, root := i, root

		g.Go(func() error {
			select {
			case <-ctx.Done():
				results[i] = LoadResult{Root: root, Err: ctx.Err()}
				return nil // context errors stay per-root, not fatal
			default:
			}

			edges, err := loadSingleRoot(root)
			results[i] = LoadResult{Root: root, Edges: edges, Err: err}
			return nil // individual root errors live in results
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	l.logger.Printf("finished parallel loading of %d roots", len(l.roots))
	return results, nil
}

// loadSingleRoot loads edges from one root and applies its namespace
// prefix. Discovery runs against the explicit root path so the KW_DIR
// override never collapses distinct roots into one directory.
func loadSingleRoot(root Root) ([]model.Edge, error) {
	sources, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		Dir:                    root.Path,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources in %s: %w", root.DisplayName(), err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no edge sources in %s", root.DisplayName())
	}

	best, err := datasource.SelectBestSource(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to select source for %s: %w", root.DisplayName(), err)
	}

	edges, err := datasource.LoadFromSource(best)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges from %s: %w", root.DisplayName(), err)
	}
	return qualifyEdges(edges, root.Prefix), nil
}

// qualifyEdges prefixes both endpoints of every edge. Mutates in place to
// reduce allocations. IDs already carrying the prefix are left alone so
// re-loading a namespaced export stays idempotent.
func qualifyEdges(edges []model.Edge, prefix string) []model.Edge {
	if prefix == "" {
		return edges
	}
	for i := range edges {
		edges[i].Source = QualifyID(edges[i].Source, prefix)
		edges[i].Target = QualifyID(edges[i].Target, prefix)
	}
	return edges
}

// QualifyID namespaces a node ID under a root prefix.
func QualifyID(id, prefix string) string {
	if prefix == "" || id == "" {
		return id
	}
	if strings.HasPrefix(id, prefix+"/") {
		return id
	}
	return prefix + "/" + id
}

// Merge flattens load results into one edge list, keeping the first
// occurrence of each edge key. Root order decides which copy of a
// duplicated edge survives.
func Merge(results []LoadResult) []model.Edge {
	var merged []model.Edge
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		for _, edge := range result.Edges {
			key := edge.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, edge)
		}
	}
	return merged
}

// LoadSummary describes the outcome of a workspace load.
type LoadSummary struct {
	TotalRoots      int
	SuccessfulRoots int
	FailedRoots     int
	TotalEdges      int
	DuplicateEdges  int
	FailedRootNames []string
}

// Summarize aggregates load results. DuplicateEdges counts edges dropped
// by the first-seen-wins merge, so TotalEdges minus DuplicateEdges equals
// the merged edge count.
func Summarize(results []LoadResult) LoadSummary {
	summary := LoadSummary{
		TotalRoots: len(results),
	}

	seen := make(map[string]bool)
	for _, result := range results {
		if result.Err != nil {
			summary.FailedRoots++
			summary.FailedRootNames = append(summary.FailedRootNames, result.Root.DisplayName())
			continue
		}
		summary.SuccessfulRoots++
		summary.TotalEdges += len(result.Edges)
		for _, edge := range result.Edges {
			key := edge.Key()
			if seen[key] {
				summary.DuplicateEdges++
			}
			seen[key] = true
		}
	}

	return summary
}
