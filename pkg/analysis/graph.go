// Package analysis computes structural statistics over a link graph:
// degree counts, weakly connected components, density, and PageRank. The
// layout engine itself never depends on these; they feed node sizing in
// renderers and the stats surfaces.
package analysis

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/knotwork/pkg/debug"
	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// PageRank parameters. Damping follows the conventional 0.85; the
// tolerance is tight enough that a few hundred nodes converge in
// microseconds.
const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
)

// Stats holds the results of graph analysis.
//
// Degree, component and density fields are populated before AnalyzeAsync
// returns and are read-only afterwards. PageRank is computed in the
// background; read it through the accessor methods, which block nothing
// and return zeros until it lands.
type Stats struct {
	// Immediate - read-only after AnalyzeAsync returns.
	Degree             map[string]int // incident edges, either direction
	InDegree           map[string]int
	OutDegree          map[string]int
	Components         [][]string // weakly connected, largest first
	Density            float64
	NodeCount          int
	EdgeCount          int // raw list length, matching the cache's link count
	RelationshipCounts map[model.Relationship]int

	// Background - access via accessors only.
	mu       sync.RWMutex
	ready    bool
	done     chan struct{}
	pageRank map[string]float64
	rankNorm map[string]float64 // pageRank scaled so the max is 1
}

// Ready reports whether PageRank has been computed.
func (s *Stats) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Wait blocks until the background computation completes.
func (s *Stats) Wait() {
	if s.done != nil {
		<-s.done
	}
}

// PageRankScore returns the PageRank of one node, or 0 while the
// background pass is still running or for unknown ids.
func (s *Stats) PageRankScore(id string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageRank[id]
}

// PageRank returns a copy of the PageRank map, or nil while the background
// pass is still running.
func (s *Stats) PageRank() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pageRank == nil {
		return nil
	}
	cp := make(map[string]float64, len(s.pageRank))
	for k, v := range s.pageRank {
		cp[k] = v
	}
	return cp
}

// RadiusScale returns a visual size multiplier in [1, 2] for the node:
// 1 + PageRank normalized against the graph's maximum. Before the
// background pass lands every node reads 1, so renderers need no special
// case.
func (s *Stats) RadiusScale(id string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return 1 + s.rankNorm[id]
}

// ComponentCount returns the number of weakly connected components.
func (s *Stats) ComponentCount() int {
	return len(s.Components)
}

// TopByPageRank returns up to n node ids in descending PageRank order,
// ties broken by id. Empty while the background pass is still running.
func (s *Stats) TopByPageRank(n int) []string {
	ranks := s.PageRank()
	if len(ranks) == 0 || n <= 0 {
		return nil
	}
	ids := make([]string, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ranks[ids[i]] != ranks[ids[j]] {
			return ranks[ids[i]] > ranks[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Summary renders a plain-text stats block for the CLI and the non-TTY
// fallback. Waits for the background pass so the hub list is populated.
func (s *Stats) Summary() string {
	s.Wait()

	var sb strings.Builder
	fmt.Fprintf(&sb, "nodes: %d  links: %d  density: %.4f\n", s.NodeCount, s.EdgeCount, s.Density)
	fmt.Fprintf(&sb, "components: %d", s.ComponentCount())
	if len(s.Components) > 0 {
		fmt.Fprintf(&sb, " (largest %d)", len(s.Components[0]))
	}
	sb.WriteByte('\n')

	for _, rel := range model.Relationships() {
		if count := s.RelationshipCounts[rel]; count > 0 {
			fmt.Fprintf(&sb, "  %-12s %d\n", rel.Label(), count)
		}
	}

	if hubs := s.TopByPageRank(5); len(hubs) > 0 {
		sb.WriteString("top hubs:\n")
		for _, id := range hubs {
			fmt.Fprintf(&sb, "  %-40s pr %.4f  deg %d\n", id, s.PageRankScore(id), s.Degree[id])
		}
	}
	return sb.String()
}

// Analyzer wraps the gonum graph built from an edge list.
type Analyzer struct {
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	edges    []model.Edge
}

// NewAnalyzer builds the directed analysis graph. Bidirectional links are
// inserted in both directions; self-links and duplicates collapse, since
// they carry no structural information.
func NewAnalyzer(edges []model.Edge) *Analyzer {
	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(edges))
	nodeToID := make(map[int64]string, len(edges))

	ensure := func(id string) (int64, bool) {
		if id == "" {
			return 0, false
		}
		if nid, ok := idToNode[id]; ok {
			return nid, true
		}
		n := g.NewNode()
		g.AddNode(n)
		idToNode[id] = n.ID()
		nodeToID[n.ID()] = id
		return n.ID(), true
	}

	for _, e := range edges {
		u, okU := ensure(e.Source)
		v, okV := ensure(e.Target)
		if !okU || !okV || u == v {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		if e.Bidirectional {
			g.SetEdge(g.NewEdge(g.Node(v), g.Node(u)))
		}
	}

	return &Analyzer{
		g:        g,
		idToNode: idToNode,
		nodeToID: nodeToID,
		edges:    edges,
	}
}

// AnalyzeAsync computes degree, components and density synchronously and
// kicks PageRank into a background goroutine. The returned Stats is usable
// immediately; PageRank accessors return zeros until Ready.
func (a *Analyzer) AnalyzeAsync() *Stats {
	stats := &Stats{
		Degree:             make(map[string]int, len(a.idToNode)),
		InDegree:           make(map[string]int, len(a.idToNode)),
		OutDegree:          make(map[string]int, len(a.idToNode)),
		RelationshipCounts: make(map[model.Relationship]int),
		NodeCount:          len(a.idToNode),
		EdgeCount:          len(a.edges),
		done:               make(chan struct{}),
	}

	for _, e := range a.edges {
		stats.RelationshipCounts[e.Relationship]++
	}

	if stats.NodeCount == 0 {
		stats.ready = true
		close(stats.done)
		return stats
	}

	a.computeImmediate(stats)
	go a.computePageRank(stats)

	return stats
}

// Analyze runs the full analysis synchronously.
func (a *Analyzer) Analyze() *Stats {
	stats := a.AnalyzeAsync()
	stats.Wait()
	return stats
}

func (a *Analyzer) computeImmediate(stats *Stats) {
	nodes := a.g.Nodes()
	for nodes.Next() {
		n := nodes.Node()
		id := a.nodeToID[n.ID()]
		in := a.g.To(n.ID()).Len()
		out := a.g.From(n.ID()).Len()
		stats.InDegree[id] = in
		stats.OutDegree[id] = out
		stats.Degree[id] = in + out
	}

	// Weak connectivity ignores direction.
	for _, comp := range topo.ConnectedComponents(graph.Undirect{G: a.g}) {
		ids := make([]string, 0, len(comp))
		for _, n := range comp {
			ids = append(ids, a.nodeToID[n.ID()])
		}
		sort.Strings(ids)
		stats.Components = append(stats.Components, ids)
	}
	sort.Slice(stats.Components, func(i, j int) bool {
		if len(stats.Components[i]) != len(stats.Components[j]) {
			return len(stats.Components[i]) > len(stats.Components[j])
		}
		return stats.Components[i][0] < stats.Components[j][0]
	})

	// Directed density over distinct inserted edges, not the raw list.
	n := float64(stats.NodeCount)
	if n > 1 {
		stats.Density = float64(a.g.Edges().Len()) / (n * (n - 1))
	}
}

func (a *Analyzer) computePageRank(stats *Stats) {
	defer metrics.Timer(metrics.PageRankCompute)()
	defer func() {
		if r := recover(); r != nil {
			debug.Log("pagerank panicked: %v", r)
			stats.mu.Lock()
			stats.pageRank = map[string]float64{}
			stats.rankNorm = map[string]float64{}
			stats.ready = true
			stats.mu.Unlock()
			close(stats.done)
		}
	}()

	ranks := network.PageRank(a.g, pageRankDamping, pageRankTolerance)

	byID := make(map[string]float64, len(ranks))
	max := 0.0
	for nid, score := range ranks {
		byID[a.nodeToID[nid]] = score
		if score > max {
			max = score
		}
	}
	norm := make(map[string]float64, len(byID))
	if max > 0 {
		for id, score := range byID {
			norm[id] = score / max
		}
	}

	stats.mu.Lock()
	stats.pageRank = byID
	stats.rankNorm = norm
	stats.ready = true
	stats.mu.Unlock()
	close(stats.done)
}
