package model

import "testing"

func TestRelationshipValid(t *testing.T) {
	for _, r := range Relationships() {
		if !r.Valid() {
			t.Errorf("Relationship %q should be valid", r)
		}
	}

	invalid := []Relationship{"", "extendz", "EXTENDS", "relates_to", "depends-on"}
	for _, r := range invalid {
		if r.Valid() {
			t.Errorf("Relationship %q should be invalid", r)
		}
	}
}

func TestParseRelationship(t *testing.T) {
	r, err := ParseRelationship("relates-to")
	if err != nil {
		t.Fatalf("ParseRelationship: %v", err)
	}
	if r != RelRelatesTo {
		t.Errorf("got %q, want %q", r, RelRelatesTo)
	}

	if _, err := ParseRelationship("friendship"); err == nil {
		t.Error("expected error for unknown relationship")
	}
}

func TestRelationshipLookupTable(t *testing.T) {
	// Every known type must have a distinct label and a fully opaque color.
	seen := make(map[string]Relationship)
	for _, r := range Relationships() {
		label := r.Label()
		if label == "" || label == string(r) {
			t.Errorf("%q: want a display label, got %q", r, label)
		}
		if prev, dup := seen[label]; dup {
			t.Errorf("label %q shared by %q and %q", label, prev, r)
		}
		seen[label] = r

		if c := r.RGBA(); c.A != 0xff {
			t.Errorf("%q: color not opaque: %v", r, c)
		}
	}

	// Unknown types still render (neutral gray), never panic.
	if c := Relationship("bogus").RGBA(); c.A != 0xff {
		t.Errorf("unknown relationship color not opaque: %v", c)
	}
}

func TestEdgeKey(t *testing.T) {
	e := Edge{Source: "notes/go.md", Target: "notes/channels.md", Relationship: RelReferences}
	want := "notes/go.md#notes/channels.md#references"
	if got := e.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	// Bidirectionality must not affect identity.
	bi := e
	bi.Bidirectional = true
	if bi.Key() != e.Key() {
		t.Error("Bidirectional changed the edge key")
	}
}

func TestEdgeValidate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr bool
	}{
		{"valid", Edge{Source: "a", Target: "b", Relationship: RelExtends}, false},
		{"missing source", Edge{Target: "b", Relationship: RelExtends}, true},
		{"missing target", Edge{Source: "a", Relationship: RelExtends}, true},
		{"bad relationship", Edge{Source: "a", Target: "b", Relationship: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
