package loader_test

import (
	"testing"

	"github.com/vanderheijden86/knotwork/pkg/loader"
	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/testutil"
)

func TestLoadRichStore(t *testing.T) {
	f := "testdata/links_rich.jsonl"
	edges, err := loader.LoadFile(f)
	if err != nil {
		t.Fatalf("Failed to load rich store: %v", err)
	}

	if len(edges) != 10 {
		t.Errorf("Expected 10 edges, got %d", len(edges))
	}

	testutil.AssertAllValid(t, edges)
	testutil.AssertNoDuplicateKeys(t, edges)

	// Mixed-case relationship in the fixture must come back normalized
	testutil.AssertEdgeExists(t, edges, "distributed/raft.md", "distributed/consensus.md")
	for _, e := range edges {
		if e.Source == "distributed/raft.md" && e.Relationship != model.RelExtends {
			t.Errorf("Expected normalized extends relationship, got %s", e.Relationship)
		}
	}

	// Unicode paths survive loading intact
	testutil.AssertEdgeExists(t, edges, "日本語/ノート.md", "go/channels.md")

	// Bidirectional flag is preserved
	foundBidi := false
	for _, e := range edges {
		if e.Source == "db/mvcc.md" {
			foundBidi = e.Bidirectional
		}
	}
	if !foundBidi {
		t.Error("Expected db/mvcc.md edge to be bidirectional")
	}

	counts := testutil.CountByRelationship(edges)
	if counts[model.RelReferences] != 3 {
		t.Errorf("Expected 3 references edges, got %d", counts[model.RelReferences])
	}
	if counts[model.RelRequires] != 2 {
		t.Errorf("Expected 2 requires edges, got %d", counts[model.RelRequires])
	}
}
