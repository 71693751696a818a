package layoutcache

import (
	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// Entry is one persisted layout: settled positions plus the edge-set
// provenance they were computed from. An entry is trusted only when both
// the link count and the recomputed fingerprint of the current edges
// match; anything else discards it whole.
type Entry struct {
	Nodes     []graph.Position `json:"nodes"`
	LinkCount int              `json:"linkCount"`
	LinkHash  string           `json:"linkHash"`
}

// NewEntry builds an entry for positions settled over edges, stamping the
// count and fingerprint provenance.
func NewEntry(positions []graph.Position, edges []model.Edge) *Entry {
	return &Entry{
		Nodes:     positions,
		LinkCount: len(edges),
		LinkHash:  Fingerprint(edges),
	}
}

// Matches reports whether the entry was computed from exactly this edge
// set: count equality first (cheap), then fingerprint equality. No partial
// trust.
func (e *Entry) Matches(edges []model.Edge) bool {
	if e == nil {
		return false
	}
	if e.LinkCount != len(edges) {
		return false
	}
	return e.LinkHash == Fingerprint(edges)
}
