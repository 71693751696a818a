package graph

import (
	"math"
	"testing"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

func edge(src, tgt string) model.Edge {
	return model.Edge{Source: src, Target: tgt, Relationship: model.RelReferences}
}

func TestBuildNodeSet(t *testing.T) {
	edges := []model.Edge{
		edge("go/channels.md", "go/goroutines.md"),
		edge("go/channels.md", "patterns/fanout.md"),
		edge("patterns/fanout.md", "go/goroutines.md"),
	}
	m := Build(edges)

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	for _, id := range []string{"go/channels.md", "go/goroutines.md", "patterns/fanout.md"} {
		if _, ok := m.Nodes[id]; !ok {
			t.Errorf("node %q missing from built set", id)
		}
	}

	// Every endpoint resolves; each of the three nodes touches exactly two
	// of the three edges.
	for id, n := range m.Nodes {
		if n.Connections != 2 {
			t.Errorf("%s: Connections = %d, want 2", id, n.Connections)
		}
	}
}

func TestBuildDiscoveryOrder(t *testing.T) {
	edges := []model.Edge{
		edge("b", "a"),
		edge("c", "a"),
		edge("a", "d"),
	}
	m := Build(edges)

	want := []string{"b", "a", "c", "d"}
	got := m.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() has %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildConnectionsMinimumOne(t *testing.T) {
	m := Build([]model.Edge{edge("solo-src", "solo-tgt")})
	for id, n := range m.Nodes {
		if n.Connections < 1 {
			t.Errorf("%s: Connections = %d, want >= 1", id, n.Connections)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	m := Build(nil)
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if got := m.Positions(); len(got) != 0 {
		t.Errorf("Positions() = %v, want empty", got)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"a/b/c", "a"},
		{"standalone", RootCategory},
		{"go/channels.md", "go"},
		{"patterns/concurrency/fanout.md", "patterns"},
		{"", RootCategory},
	}
	for _, tt := range tests {
		if got := Category(tt.id); got != tt.want {
			t.Errorf("Category(%q) = %q, want %q", tt.id, got, tt.want)
		}
		// Pure: a second call agrees with the first.
		if again := Category(tt.id); again != Category(tt.id) {
			t.Errorf("Category(%q) is not stable: %q vs %q", tt.id, again, Category(tt.id))
		}
	}
}

func TestPlacementOnUnitCircle(t *testing.T) {
	edges := []model.Edge{
		edge("a", "b"),
		edge("b", "c"),
		edge("c", "d"),
		edge("d", "a"),
	}
	m := Build(edges)

	// The jitter perturbs but never strays far from the unit circle. Exact
	// coordinates are intentionally non-deterministic.
	for id, n := range m.Nodes {
		r := math.Hypot(n.X, n.Y)
		if r < 0.9 || r > 1.1 {
			t.Errorf("%s: distance from origin = %.3f, want within [0.9, 1.1]", id, r)
		}
		if n.VX != 0 || n.VY != 0 {
			t.Errorf("%s: initial velocity = (%v, %v), want (0, 0)", id, n.VX, n.VY)
		}
	}
}

func TestPositionsMatchNodes(t *testing.T) {
	m := Build([]model.Edge{edge("x", "y"), edge("y", "z")})
	ps := m.Positions()
	if len(ps) != m.Len() {
		t.Fatalf("Positions() has %d entries, want %d", len(ps), m.Len())
	}
	for _, p := range ps {
		n, ok := m.Nodes[p.ID]
		if !ok {
			t.Fatalf("position for unknown node %q", p.ID)
		}
		if p.X != n.X || p.Y != n.Y {
			t.Errorf("%s: position (%v, %v) != node (%v, %v)", p.ID, p.X, p.Y, n.X, n.Y)
		}
	}
}
