// Package graph builds the layout engine's node model from a flat edge
// list: node discovery, category derivation, connection counting, and the
// initial circular placement the force simulation starts from.
package graph

import (
	"math"
	"math/rand"
	"strings"

	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// RootCategory is assigned to notes living at the top of the tree, with no
// directory segment in their identifier.
const RootCategory = "root"

// Jitter applied to the initial circle so perfectly symmetric starting
// configurations cannot lock the simulation into a degenerate equilibrium.
// Deliberately unseeded: two runs over the same uncached graph may settle
// into different but equally valid layouts.
const (
	angleJitter  = 0.15
	radiusJitter = 0.1
)

// Node is one laid-out note. Positions and velocities are in world units
// (the initial placement circle has radius 1); Connections counts edges
// touching the node and is never below 1.
type Node struct {
	ID          string
	X, Y        float64
	VX, VY      float64
	Category    string
	Connections int
}

// Position is the cache/export projection of a node.
type Position struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Model owns the node map for one simulation instance together with the
// edge list it was built from. There is no shared package-level state; every
// Build call returns an independent Model.
type Model struct {
	Nodes map[string]*Node
	Edges []model.Edge

	// order preserves discovery order for deterministic iteration.
	order []string
}

// Build derives the node set from edges: one node per distinct endpoint,
// discovered in edge order (source before target), seeded onto a unit
// circle. The edge slice is retained as-is for the simulation and renderer.
func Build(edges []model.Edge) *Model {
	defer metrics.Timer(metrics.GraphBuild)()

	m := &Model{
		Nodes: make(map[string]*Node, len(edges)*2),
		Edges: edges,
	}

	for _, e := range edges {
		m.discover(e.Source)
		m.discover(e.Target)
		if n, ok := m.Nodes[e.Source]; ok {
			n.Connections++
		}
		if n, ok := m.Nodes[e.Target]; ok {
			n.Connections++
		}
	}

	m.place()
	return m
}

func (m *Model) discover(id string) {
	if id == "" {
		return
	}
	if _, ok := m.Nodes[id]; ok {
		return
	}
	m.Nodes[id] = &Node{
		ID:       id,
		Category: Category(id),
	}
	m.order = append(m.order, id)
}

// place arranges nodes on the unit circle in discovery order with a small
// random perturbation of both angle and radius.
func (m *Model) place() {
	n := len(m.order)
	if n == 0 {
		return
	}
	step := 2 * math.Pi / float64(n)
	for i, id := range m.order {
		node := m.Nodes[id]
		angle := float64(i)*step + (rand.Float64()-0.5)*angleJitter
		radius := 1 + (rand.Float64()-0.5)*radiusJitter
		node.X = math.Cos(angle) * radius
		node.Y = math.Sin(angle) * radius
	}
}

// Category derives a node's grouping from its identifier: the first path
// segment when the id has more than one, RootCategory otherwise. Pure
// function of the id.
func Category(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return RootCategory
}

// Len returns the number of nodes in the model.
func (m *Model) Len() int {
	return len(m.Nodes)
}

// IDs returns node ids in discovery order. The returned slice is shared;
// callers must not mutate it.
func (m *Model) IDs() []string {
	return m.order
}

// Positions exports the current coordinates of every node in discovery
// order.
func (m *Model) Positions() []Position {
	out := make([]Position, 0, len(m.order))
	for _, id := range m.order {
		n := m.Nodes[id]
		out = append(out, Position{ID: n.ID, X: n.X, Y: n.Y})
	}
	return out
}
