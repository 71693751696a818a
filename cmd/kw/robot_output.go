package main

import (
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/knotwork/pkg/analysis"
	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/layoutcache"
)

// robotNode is one settled node in the -positions output. Coordinates are
// world-space and unitless; consumers scale them to their own canvas.
type robotNode struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Category    string  `json:"category"`
	Connections int     `json:"connections"`
	PageRank    float64 `json:"pagerank,omitempty"`
}

type robotEdge struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	Relationship  string `json:"relationship"`
	Bidirectional bool   `json:"bidirectional,omitempty"`
}

type robotPositionsOutput struct {
	GeneratedAt string               `json:"generated_at"`
	DataHash    string               `json:"data_hash"`
	Vault       string               `json:"vault,omitempty"`
	NodeCount   int                  `json:"node_count"`
	LinkCount   int                  `json:"link_count"`
	Components  int                  `json:"components"`
	FromCache   bool                 `json:"from_cache"`
	Nodes       map[string]robotNode `json:"nodes"`
	Edges       []robotEdge          `json:"edges"`
	TopHubs     []string             `json:"top_hubs,omitempty"`
	UsageHints  []string             `json:"usage_hints,omitempty"`
}

func buildPositionsOutput(mdl *graph.Model, stats *analysis.Stats, vault string, fromCache bool) robotPositionsOutput {
	// Ranks land in the background; robot output must be complete.
	stats.Wait()

	nodes := make(map[string]robotNode, mdl.Len())
	for _, id := range mdl.IDs() {
		n := mdl.Nodes[id]
		nodes[id] = robotNode{
			X:           n.X,
			Y:           n.Y,
			Category:    n.Category,
			Connections: n.Connections,
			PageRank:    stats.PageRankScore(id),
		}
	}

	edges := make([]robotEdge, 0, len(mdl.Edges))
	for _, e := range mdl.Edges {
		edges = append(edges, robotEdge{
			Source:        e.Source,
			Target:        e.Target,
			Relationship:  string(e.Relationship),
			Bidirectional: e.Bidirectional,
		})
	}

	return robotPositionsOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		DataHash:    layoutcache.Fingerprint(mdl.Edges),
		Vault:       vault,
		NodeCount:   mdl.Len(),
		LinkCount:   len(mdl.Edges),
		Components:  stats.ComponentCount(),
		FromCache:   fromCache,
		Nodes:       nodes,
		Edges:       edges,
		TopHubs:     stats.TopByPageRank(5),
		UsageHints: []string{
			"coordinates are unitless world space; scale them to your canvas before plotting",
			"nodes maps note id to position, edges carry the relationship types",
			"identical data_hash values mean the underlying link set has not changed",
		},
	}
}

func writePositionsOutput(w io.Writer, out robotPositionsOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
