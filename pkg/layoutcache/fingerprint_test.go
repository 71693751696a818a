package layoutcache

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

func ref(src, tgt string) model.Edge {
	return model.Edge{Source: src, Target: tgt, Relationship: model.RelReferences}
}

func TestFingerprintKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		edges []model.Edge
		want  string
	}{
		{"empty", nil, "0"},
		{"single", []model.Edge{ref("a", "b")}, "1lxd8ob"},
		{
			"pair",
			[]model.Edge{
				ref("a", "b"),
				{Source: "b", Target: "c", Relationship: model.RelExtends},
			},
			"1r8vnv1",
		},
		{
			"pair reversed input",
			[]model.Edge{
				{Source: "b", Target: "c", Relationship: model.RelExtends},
				ref("a", "b"),
			},
			"1r8vnv1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.edges); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	edges := []model.Edge{
		ref("go/a.md", "go/b.md"),
		{Source: "go/b.md", Target: "misc", Relationship: model.RelBlocks},
	}
	first := Fingerprint(edges)
	for i := 0; i < 10; i++ {
		if got := Fingerprint(edges); got != first {
			t.Fatalf("Fingerprint() unstable: %q then %q", first, got)
		}
	}
}

func TestFingerprintIgnoresBidirectionalFlag(t *testing.T) {
	plain := []model.Edge{ref("a", "b")}
	flagged := []model.Edge{{Source: "a", Target: "b", Relationship: model.RelReferences, Bidirectional: true}}
	if Fingerprint(plain) != Fingerprint(flagged) {
		t.Error("bidirectional flag changed the fingerprint")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := []model.Edge{
		ref("a", "b"),
		ref("b", "c"),
	}
	baseHash := Fingerprint(base)

	variants := map[string][]model.Edge{
		"added edge":           append(append([]model.Edge{}, base...), ref("c", "d")),
		"removed edge":         {ref("a", "b")},
		"changed relationship": {ref("a", "b"), {Source: "b", Target: "c", Relationship: model.RelBlocks}},
		"changed endpoint":     {ref("a", "b"), ref("b", "d")},
	}
	for name, edges := range variants {
		if Fingerprint(edges) == baseHash {
			t.Errorf("%s: fingerprint unchanged", name)
		}
	}
}

func TestFingerprintShuffleInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 25).Draw(t, "count")
		rels := model.Relationships()
		edges := make([]model.Edge, count)
		for i := range edges {
			edges[i] = model.Edge{
				Source:       rapid.StringMatching(`[a-z]{1,5}(/[a-z]{1,5})?`).Draw(t, "src"),
				Target:       rapid.StringMatching(`[a-z]{1,5}(/[a-z]{1,5})?`).Draw(t, "tgt"),
				Relationship: rapid.SampledFrom(rels).Draw(t, "rel"),
			}
		}
		want := Fingerprint(edges)

		shuffled := rapid.Permutation(edges).Draw(t, "shuffled")
		if got := Fingerprint(shuffled); got != want {
			t.Fatalf("shuffled fingerprint %q, want %q", got, want)
		}
	})
}
