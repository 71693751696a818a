// Package model defines the core link types shared across knotwork:
// typed relationship edges between knowledge-base notes, as produced by a
// link store and consumed by the layout engine.
package model

import (
	"fmt"
	"image/color"
)

// Relationship classifies a link between two notes. The set is closed:
// anything outside it fails Valid and is dropped at load time.
type Relationship string

const (
	RelExtends     Relationship = "extends"
	RelReferences  Relationship = "references"
	RelContradicts Relationship = "contradicts"
	RelRequires    Relationship = "requires"
	RelBlocks      Relationship = "blocks"
	RelRelatesTo   Relationship = "relates-to"
)

// relationshipInfo carries the per-type display attributes. Renderers
// (terminal, SVG, PNG) all derive their palettes from this one table.
type relationshipInfo struct {
	label string
	color color.RGBA
}

var relationshipTable = map[Relationship]relationshipInfo{
	RelExtends:     {"Extends", color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}},
	RelReferences:  {"References", color.RGBA{R: 0x42, G: 0xa5, B: 0xf5, A: 0xff}},
	RelContradicts: {"Contradicts", color.RGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xff}},
	RelRequires:    {"Requires", color.RGBA{R: 0xff, G: 0xa7, B: 0x26, A: 0xff}},
	RelBlocks:      {"Blocks", color.RGBA{R: 0xab, G: 0x47, B: 0xbc, A: 0xff}},
	RelRelatesTo:   {"Relates to", color.RGBA{R: 0x90, G: 0xa4, B: 0xae, A: 0xff}},
}

// relationshipOrder fixes iteration order for legends and filter cycling.
var relationshipOrder = []Relationship{
	RelExtends,
	RelReferences,
	RelContradicts,
	RelRequires,
	RelBlocks,
	RelRelatesTo,
}

// Relationships returns all known relationship types in stable order.
// The returned slice is shared; callers must not mutate it.
func Relationships() []Relationship {
	return relationshipOrder
}

// Valid reports whether r is one of the known relationship types.
func (r Relationship) Valid() bool {
	_, ok := relationshipTable[r]
	return ok
}

// Label returns the human-readable display label, or the raw value for
// unknown types.
func (r Relationship) Label() string {
	if info, ok := relationshipTable[r]; ok {
		return info.label
	}
	return string(r)
}

// RGBA returns the render color for the relationship. Unknown types get a
// neutral gray so a stale filter value never breaks drawing.
func (r Relationship) RGBA() color.RGBA {
	if info, ok := relationshipTable[r]; ok {
		return info.color
	}
	return color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
}

// ParseRelationship converts a raw string into a Relationship.
func ParseRelationship(s string) (Relationship, error) {
	r := Relationship(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown relationship %q", s)
	}
	return r, nil
}

// Edge is one typed link between two notes, identified by their paths.
// Edges are immutable once loaded; the full list is replaced on reload.
type Edge struct {
	Source        string       `json:"source"`
	Target        string       `json:"target"`
	Relationship  Relationship `json:"relationship"`
	Bidirectional bool         `json:"bidirectional"`
}

// Key returns the edge's stable identifier, used for structural
// fingerprinting and dedup. Bidirectionality is a render attribute and
// deliberately not part of the key.
func (e Edge) Key() string {
	return e.Source + "#" + e.Target + "#" + string(e.Relationship)
}

// Validate checks that both endpoints are present and the relationship is
// a known type.
func (e Edge) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("edge missing source")
	}
	if e.Target == "" {
		return fmt.Errorf("edge missing target")
	}
	if !e.Relationship.Valid() {
		return fmt.Errorf("edge %s -> %s: unknown relationship %q", e.Source, e.Target, e.Relationship)
	}
	return nil
}
