package datasource

import (
	"fmt"

	"github.com/vanderheijden86/knotwork/pkg/loader"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// EdgeDiff represents differences between two edge sets
type EdgeDiff struct {
	// SourceA is the path or label of the first set
	SourceA string
	// SourceB is the path or label of the second set
	SourceB string
	// MissingInA contains edge keys present in B but not in A
	MissingInA []string
	// MissingInB contains edge keys present in A but not in B
	MissingInB []string
	// DirectionMismatch contains edges whose bidirectional flag differs.
	// The flag is not part of the edge key, so these count as the same
	// link with conflicting attributes.
	DirectionMismatch []DirectionDifference
	// CountA is the number of edges in set A
	CountA int
	// CountB is the number of edges in set B
	CountB int
}

// DirectionDifference records a bidirectional-flag mismatch for one edge
type DirectionDifference struct {
	Key            string `json:"key"`
	BidirectionalA bool   `json:"bidirectional_a"`
	BidirectionalB bool   `json:"bidirectional_b"`
}

// HasInconsistencies returns true if there are any differences between the sets
func (d EdgeDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.DirectionMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d EdgeDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d edges each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}

	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d edges in %s but not %s\n", len(d.MissingInA), d.SourceB, d.SourceA)
		if len(d.MissingInA) <= 5 {
			for _, key := range d.MissingInA {
				summary += fmt.Sprintf("    - %s\n", key)
			}
		}
	}

	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d edges in %s but not %s\n", len(d.MissingInB), d.SourceA, d.SourceB)
		if len(d.MissingInB) <= 5 {
			for _, key := range d.MissingInB {
				summary += fmt.Sprintf("    - %s\n", key)
			}
		}
	}

	if len(d.DirectionMismatch) > 0 {
		summary += fmt.Sprintf("  - %d edges with different direction flags\n", len(d.DirectionMismatch))
		if len(d.DirectionMismatch) <= 5 {
			for _, m := range d.DirectionMismatch {
				summary += fmt.Sprintf("    - %s: bidirectional %v vs %v\n", m.Key, m.BidirectionalA, m.BidirectionalB)
			}
		}
	}

	return summary
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		MaxDifferences: 100,
	}
}

// DiffEdges compares two edge sets keyed by Edge.Key and returns differences
func DiffEdges(edgesA, edgesB []model.Edge, sourceA, sourceB string, opts DiffOptions) EdgeDiff {
	diff := EdgeDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}

	mapA := make(map[string]model.Edge, len(edgesA))
	for _, edge := range edgesA {
		mapA[edge.Key()] = edge
	}

	mapB := make(map[string]model.Edge, len(edgesB))
	for _, edge := range edgesB {
		mapB[edge.Key()] = edge
	}

	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	for key := range mapA {
		if _, exists := mapB[key]; !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInB) < opts.MaxDifferences {
				diff.MissingInB = append(diff.MissingInB, key)
			}
		}
	}

	for key, edgeB := range mapB {
		edgeA, exists := mapA[key]
		if !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInA) < opts.MaxDifferences {
				diff.MissingInA = append(diff.MissingInA, key)
			}
		} else if edgeA.Bidirectional != edgeB.Bidirectional {
			if opts.MaxDifferences == 0 || len(diff.DirectionMismatch) < opts.MaxDifferences {
				diff.DirectionMismatch = append(diff.DirectionMismatch, DirectionDifference{
					Key:            key,
					BidirectionalA: edgeA.Bidirectional,
					BidirectionalB: edgeB.Bidirectional,
				})
			}
		}
	}

	return diff
}

// Changed reports whether a reload produced a structurally different edge
// set. It is the cheap check run on watcher events before rebuilding the
// graph model.
func Changed(prev, next []model.Edge) bool {
	diff := DiffEdges(prev, next, "old", "new", DiffOptions{MaxDifferences: 1})
	return diff.HasInconsistencies() || diff.CountA != diff.CountB
}

// CompareSources loads and compares two edge sources
func CompareSources(sourceA, sourceB Source, opts DiffOptions) (*EdgeDiff, error) {
	edgesA, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}

	edgesB, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}

	diff := DiffEdges(edgesA, edgesB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// CheckAllSourcesConsistent compares all valid sources pairwise and reports
// any inconsistencies
func CheckAllSourcesConsistent(sources []Source, opts DiffOptions) ([]EdgeDiff, error) {
	var diffs []EdgeDiff

	for i := 0; i < len(sources); i++ {
		if !sources[i].Valid {
			continue
		}
		for j := i + 1; j < len(sources); j++ {
			if !sources[j].Valid {
				continue
			}

			diff, err := CompareSources(sources[i], sources[j], opts)
			if err != nil {
				continue
			}

			if diff.HasInconsistencies() {
				diffs = append(diffs, *diff)
			}
		}
	}

	return diffs, nil
}

// loadEdgesFromJSONL loads edges from a JSONL file using the existing loader
func loadEdgesFromJSONL(path string) ([]model.Edge, error) {
	return loader.LoadFile(path)
}
