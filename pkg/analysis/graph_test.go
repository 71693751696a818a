package analysis

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/testutil"
)

func edge(src, tgt string, rel model.Relationship) model.Edge {
	return model.Edge{Source: src, Target: tgt, Relationship: rel}
}

func TestDegreeCounts(t *testing.T) {
	edges := []model.Edge{
		edge("a", "b", model.RelReferences),
		edge("a", "c", model.RelExtends),
		edge("b", "c", model.RelRequires),
	}

	stats := NewAnalyzer(edges).Analyze()

	if stats.NodeCount != 3 {
		t.Fatalf("NodeCount = %d, want 3", stats.NodeCount)
	}
	if stats.EdgeCount != 3 {
		t.Fatalf("EdgeCount = %d, want 3", stats.EdgeCount)
	}

	tests := []struct {
		id           string
		in, out, deg int
	}{
		{"a", 0, 2, 2},
		{"b", 1, 1, 2},
		{"c", 2, 0, 2},
	}
	for _, tt := range tests {
		if got := stats.InDegree[tt.id]; got != tt.in {
			t.Errorf("InDegree[%s] = %d, want %d", tt.id, got, tt.in)
		}
		if got := stats.OutDegree[tt.id]; got != tt.out {
			t.Errorf("OutDegree[%s] = %d, want %d", tt.id, got, tt.out)
		}
		if got := stats.Degree[tt.id]; got != tt.deg {
			t.Errorf("Degree[%s] = %d, want %d", tt.id, got, tt.deg)
		}
	}
}

func TestBidirectionalCountsBothWays(t *testing.T) {
	edges := []model.Edge{
		{Source: "a", Target: "b", Relationship: model.RelRelatesTo, Bidirectional: true},
	}

	stats := NewAnalyzer(edges).Analyze()

	if stats.OutDegree["a"] != 1 || stats.InDegree["a"] != 1 {
		t.Errorf("a degrees = out %d in %d, want 1/1", stats.OutDegree["a"], stats.InDegree["a"])
	}
	if stats.OutDegree["b"] != 1 || stats.InDegree["b"] != 1 {
		t.Errorf("b degrees = out %d in %d, want 1/1", stats.OutDegree["b"], stats.InDegree["b"])
	}
}

func TestSelfLoopSkipped(t *testing.T) {
	edges := []model.Edge{
		edge("a", "a", model.RelReferences),
		edge("a", "b", model.RelReferences),
	}

	stats := NewAnalyzer(edges).Analyze()

	if stats.NodeCount != 2 {
		t.Fatalf("NodeCount = %d, want 2", stats.NodeCount)
	}
	// The self-loop still counts in the raw edge total but adds no degree.
	if stats.EdgeCount != 2 {
		t.Errorf("EdgeCount = %d, want 2", stats.EdgeCount)
	}
	if stats.Degree["a"] != 1 {
		t.Errorf("Degree[a] = %d, want 1", stats.Degree["a"])
	}
}

func TestComponents(t *testing.T) {
	stats := NewAnalyzer(testutil.QuickDisconnected(3, 4)).Analyze()

	if got := stats.ComponentCount(); got != 3 {
		t.Fatalf("ComponentCount = %d, want 3", got)
	}
	for i, comp := range stats.Components {
		if len(comp) != 4 {
			t.Errorf("component %d has %d nodes, want 4", i, len(comp))
		}
	}
}

func TestComponentsIgnoreDirection(t *testing.T) {
	// a -> b <- c is one weak component despite no directed a..c path.
	edges := []model.Edge{
		edge("a", "b", model.RelReferences),
		edge("c", "b", model.RelReferences),
	}

	stats := NewAnalyzer(edges).Analyze()

	if got := stats.ComponentCount(); got != 1 {
		t.Fatalf("ComponentCount = %d, want 1", got)
	}
}

func TestDensity(t *testing.T) {
	// Two nodes, one directed edge: density 1/(2*1) = 0.5.
	stats := NewAnalyzer(testutil.Single()).Analyze()

	if stats.Density != 0.5 {
		t.Errorf("Density = %f, want 0.5", stats.Density)
	}
}

func TestPageRankHubDominates(t *testing.T) {
	stats := NewAnalyzer(testutil.QuickStar(8)).Analyze()

	gen := testutil.NewDefault()
	hub := gen.NodeID("hub")

	hubScore := stats.PageRankScore(hub)
	if hubScore <= 0 {
		t.Fatalf("hub PageRank = %f, want > 0", hubScore)
	}
	for _, comp := range stats.Components {
		for _, id := range comp {
			if id == hub {
				continue
			}
			if score := stats.PageRankScore(id); score >= hubScore {
				t.Errorf("spoke %s PageRank %f >= hub %f", id, score, hubScore)
			}
		}
	}

	if top := stats.TopByPageRank(1); len(top) != 1 || top[0] != hub {
		t.Errorf("TopByPageRank(1) = %v, want [%s]", top, hub)
	}
}

func TestRadiusScaleBounds(t *testing.T) {
	stats := NewAnalyzer(testutil.QuickRandom(30, 0.15)).Analyze()

	sawMax := false
	for id := range stats.Degree {
		r := stats.RadiusScale(id)
		if r < 1 || r > 2 {
			t.Errorf("RadiusScale(%s) = %f, outside [1, 2]", id, r)
		}
		if r == 2 {
			sawMax = true
		}
	}
	if !sawMax {
		t.Error("no node reached RadiusScale 2; normalization should peg the max")
	}
}

func TestRadiusScaleBeforeReady(t *testing.T) {
	stats := NewAnalyzer(testutil.QuickChain(5)).AnalyzeAsync()

	// Whether or not the background pass has landed, the scale must stay
	// in range. After Wait it must be fully populated.
	if r := stats.RadiusScale("notes/n0.md"); r < 1 || r > 2 {
		t.Errorf("RadiusScale before ready = %f, outside [1, 2]", r)
	}
	stats.Wait()
	if !stats.Ready() {
		t.Error("Ready() = false after Wait")
	}
}

func TestEmptyGraph(t *testing.T) {
	stats := NewAnalyzer(nil).Analyze()

	if stats.NodeCount != 0 || stats.EdgeCount != 0 {
		t.Errorf("empty graph counts = %d/%d, want 0/0", stats.NodeCount, stats.EdgeCount)
	}
	if !stats.Ready() {
		t.Error("empty graph should be immediately ready")
	}
	if stats.ComponentCount() != 0 {
		t.Errorf("ComponentCount = %d, want 0", stats.ComponentCount())
	}
	if r := stats.RadiusScale("missing"); r != 1 {
		t.Errorf("RadiusScale on empty graph = %f, want 1", r)
	}
}

func TestRelationshipCounts(t *testing.T) {
	edges := []model.Edge{
		edge("a", "b", model.RelReferences),
		edge("b", "c", model.RelReferences),
		edge("c", "d", model.RelBlocks),
	}

	stats := NewAnalyzer(edges).Analyze()

	if got := stats.RelationshipCounts[model.RelReferences]; got != 2 {
		t.Errorf("references count = %d, want 2", got)
	}
	if got := stats.RelationshipCounts[model.RelBlocks]; got != 1 {
		t.Errorf("blocks count = %d, want 1", got)
	}
}

func TestSummaryContent(t *testing.T) {
	stats := NewAnalyzer(testutil.QuickStar(4)).Analyze()
	out := stats.Summary()

	for _, want := range []string{"nodes: 5", "links: 4", "components: 1", "top hubs:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}

func TestUnknownEndpointIgnored(t *testing.T) {
	// Empty source still registers the target node but adds no edge.
	edges := []model.Edge{
		{Source: "", Target: "b", Relationship: model.RelReferences},
		edge("a", "b", model.RelReferences),
	}

	stats := NewAnalyzer(edges).Analyze()

	if stats.NodeCount != 2 {
		t.Fatalf("NodeCount = %d, want 2", stats.NodeCount)
	}
	if stats.InDegree["b"] != 1 {
		t.Errorf("InDegree[b] = %d, want 1", stats.InDegree["b"])
	}
}
