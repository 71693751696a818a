// Package testutil provides test fixture generators for various graph topologies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

// GraphFixture represents an abstract graph for testing layout and analysis
// code. Nodes are bare names; Edges index into Nodes as [from_idx, to_idx].
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"`
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds ground-truth metadata about the fixture, for asserting
// against computed analysis results.
type Properties struct {
	HasCycles   bool `json:"has_cycles,omitempty"`
	IsConnected bool `json:"is_connected,omitempty"`
	Components  int  `json:"components,omitempty"`
}

// GeneratorConfig controls edge generation.
type GeneratorConfig struct {
	Seed              int64                // Random seed for determinism (0 = seed 42)
	Category          string               // First path segment of node IDs (default: "notes")
	RelationshipMix   []model.Relationship // Relationship distribution (nil = all references)
	BidirectionalRate float64              // Probability an edge is bidirectional (0 = never)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:            42, // Deterministic
		Category:        "notes",
		RelationshipMix: []model.Relationship{model.RelReferences},
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.Category == "" {
		cfg.Category = "notes"
	}
	if len(cfg.RelationshipMix) == 0 {
		cfg.RelationshipMix = []model.Relationship{model.RelReferences}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates a linear chain: n0 -> n1 -> n2 -> ... -> n{size-1}
// Properties: no cycles, connected, single path.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size-1)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes: n0 -> n1 -> ... -> n%d", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: true,
			Components:  1,
		},
	}
}

// Star creates a star topology with a central hub.
// Direction: spokes point TO hub, making the hub a reference authority.
func (g *Generator) Star(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{i, 0}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes; spokes link to hub", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: true,
			Components:  1,
		},
	}
}

// ReverseStar creates a star where the hub points to all spokes.
// The hub becomes a fan-out source rather than an authority.
func (g *Generator) ReverseStar(spokes int) GraphFixture {
	size := spokes + 1
	nodes := make([]string, size)
	edges := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Reverse star with hub linking to %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: true,
			Components:  1,
		},
	}
}

// Ring creates a circular topology.
// Shape: n0 -> n1 -> n2 -> ... -> n{size-1} -> n0
func (g *Generator) Ring(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Ring of %d nodes: n0 -> n1 -> ... -> n%d -> n0", size, size-1),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
			Components:  1,
		},
	}
}

// SelfLoop creates a single node with a self-referential edge.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "Single node with self-loop",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Properties: Properties{
			HasCycles:   true,
			IsConnected: true,
			Components:  1,
		},
	}
}

// Tree creates a tree with given depth and branching factor.
// Each non-leaf node has `breadth` children.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}

	var nodes []string
	var edges [][2]int

	// BFS-style generation
	nodeID := 0
	nodes = append(nodes, fmt.Sprintf("n%d", nodeID))
	nodeID++

	currentLevel := []int{0}

	for d := 0; d < depth; d++ {
		var nextLevel []int
		for _, parent := range currentLevel {
			for b := 0; b < breadth; b++ {
				child := nodeID
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{parent, child})
				nextLevel = append(nextLevel, child)
				nodeID++
			}
		}
		currentLevel = nextLevel
	}

	return GraphFixture{
		Description: fmt.Sprintf("Tree with depth=%d, breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: true,
			Components:  1,
		},
	}
}

// Disconnected creates multiple isolated components.
// Each component is a small chain of `componentSize` nodes.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int

	nodeID := 0
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{nodeID - 1, nodeID})
			}
			nodeID++
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected components, each a chain of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: components <= 1,
			Components:  components,
		},
	}
}

// Complete creates a dense graph where every earlier node points to every
// later node, giving n*(n-1)/2 edges.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, size*(size-1)/2)

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Complete graph with %d nodes (%d edges)", size, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: true,
			Components:  1,
		},
	}
}

// Random creates a random graph. density is the probability of an edge
// existing between any ordered pair i < j (0.0 to 1.0).
func (g *Generator) Random(size int, density float64) GraphFixture {
	if density < 0 {
		density = 0
	}
	if density > 1 {
		density = 1
	}

	nodes := make([]string, size)
	var edges [][2]int

	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}

	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}

	return GraphFixture{
		Description: fmt.Sprintf("Random graph with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
		Properties: Properties{
			HasCycles:   false,
			IsConnected: false, // May or may not be connected
		},
	}
}

// ============================================================================
// Edge Generators (convert graph fixtures to model.Edge slices)
// ============================================================================

// NodeID returns the full node path for a fixture node name.
func (g *Generator) NodeID(name string) string {
	return g.cfg.Category + "/" + name + ".md"
}

// ToEdges converts a GraphFixture to a slice of model.Edge. Relationships
// are drawn from the configured mix; node names become category-prefixed
// paths.
func (g *Generator) ToEdges(gf GraphFixture) []model.Edge {
	edges := make([]model.Edge, 0, len(gf.Edges))
	for _, e := range gf.Edges {
		edges = append(edges, model.Edge{
			Source:        g.NodeID(gf.Nodes[e[0]]),
			Target:        g.NodeID(gf.Nodes[e[1]]),
			Relationship:  g.pickRelationship(),
			Bidirectional: g.cfg.BidirectionalRate > 0 && g.rng.Float64() < g.cfg.BidirectionalRate,
		})
	}
	return edges
}

// ToJSONL converts edges to JSONL format (one JSON object per line).
func ToJSONL(edges []model.Edge) string {
	var sb strings.Builder
	for _, edge := range edges {
		data, err := json.Marshal(edge)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (g *Generator) pickRelationship() model.Relationship {
	return g.cfg.RelationshipMix[g.rng.Intn(len(g.cfg.RelationshipMix))]
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates chain edges with default settings.
func QuickChain(size int) []model.Edge {
	gen := NewDefault()
	return gen.ToEdges(gen.Chain(size))
}

// QuickStar creates star edges with default settings.
func QuickStar(spokes int) []model.Edge {
	gen := NewDefault()
	return gen.ToEdges(gen.Star(spokes))
}

// QuickRing creates ring edges with default settings.
func QuickRing(size int) []model.Edge {
	gen := NewDefault()
	return gen.ToEdges(gen.Ring(size))
}

// QuickTree creates tree edges with default settings.
func QuickTree(depth, breadth int) []model.Edge {
	gen := NewDefault()
	return gen.ToEdges(gen.Tree(depth, breadth))
}

// QuickDisconnected creates disconnected component edges with default settings.
func QuickDisconnected(components, size int) []model.Edge {
	gen := NewDefault()
	return gen.ToEdges(gen.Disconnected(components, size))
}

// QuickRandom creates random graph edges with default settings. A mixed
// relationship distribution exercises per-type render paths.
func QuickRandom(size int, density float64) []model.Edge {
	gen := New(GeneratorConfig{
		RelationshipMix:   model.Relationships(),
		BidirectionalRate: 0.2,
	})
	return gen.ToEdges(gen.Random(size, density))
}

// Empty returns an empty edge slice for edge case testing.
func Empty() []model.Edge {
	return []model.Edge{}
}

// Single returns a single edge between two notes.
func Single() []model.Edge {
	gen := NewDefault()
	return []model.Edge{{
		Source:       gen.NodeID("a"),
		Target:       gen.NodeID("b"),
		Relationship: model.RelReferences,
	}}
}
