package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

// AssertEdgeCount verifies the expected number of edges.
func AssertEdgeCount(t *testing.T, edges []model.Edge, expected int) {
	t.Helper()
	if len(edges) != expected {
		t.Errorf("expected %d edges, got %d", expected, len(edges))
	}
}

// AssertNoDuplicateKeys verifies all edge keys are unique.
func AssertNoDuplicateKeys(t *testing.T, edges []model.Edge) {
	t.Helper()
	seen := make(map[string]bool)
	for _, edge := range edges {
		key := edge.Key()
		if seen[key] {
			t.Errorf("duplicate edge key: %s", key)
		}
		seen[key] = true
	}
}

// AssertAllValid verifies all edges pass validation.
func AssertAllValid(t *testing.T, edges []model.Edge) {
	t.Helper()
	for i, edge := range edges {
		if err := edge.Validate(); err != nil {
			t.Errorf("edge %d (%s) invalid: %v", i, edge.Key(), err)
		}
	}
}

// AssertEdgeExists verifies that an edge between the two endpoints exists,
// regardless of relationship type.
func AssertEdgeExists(t *testing.T, edges []model.Edge, source, target string) {
	t.Helper()
	for _, edge := range edges {
		if edge.Source == source && edge.Target == target {
			return
		}
	}
	t.Errorf("expected edge from %s to %s not found", source, target)
}

// CountByRelationship returns a map of relationship -> count.
func CountByRelationship(edges []model.Edge) map[model.Relationship]int {
	counts := make(map[model.Relationship]int)
	for _, edge := range edges {
		counts[edge.Relationship]++
	}
	return counts
}

// NodeIDs returns the sorted set of distinct node IDs appearing as an
// endpoint of any edge.
func NodeIDs(edges []model.Edge) []string {
	seen := make(map[string]bool)
	for _, edge := range edges {
		seen[edge.Source] = true
		seen[edge.Target] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteEdgesFile writes edges as JSONL to the given path, creating parent
// directories as needed.
func WriteEdgesFile(t *testing.T, path string, edges []model.Edge) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	content := ToJSONL(edges)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write edges file: %v", err)
	}
}

// WriteLinkStore writes edges to a links.jsonl file in a fresh temp
// directory and returns the directory path.
func WriteLinkStore(t *testing.T, edges []model.Edge) string {
	t.Helper()

	dir := t.TempDir()
	WriteEdgesFile(t, filepath.Join(dir, "links.jsonl"), edges)
	return dir
}
