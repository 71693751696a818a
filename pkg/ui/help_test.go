package ui

import (
	"strings"
	"testing"
)

func TestRenderHelpMarkdownMentionsBindings(t *testing.T) {
	out := renderHelpMarkdown(100)
	for _, want := range []string{"Keyboard", "reheat", "zoom", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRenderHelpMarkdownNarrowWidth(t *testing.T) {
	// Pathological widths must not panic; the wrap clamps to a floor.
	if out := renderHelpMarkdown(0); out == "" {
		t.Error("narrow help output is empty")
	}
	if out := renderHelpMarkdown(-10); out == "" {
		t.Error("negative-width help output is empty")
	}
}

func TestCompressBlankLines(t *testing.T) {
	in := "a\n\n\n\n\nb"
	got := compressBlankLines(in)
	if got != "a\n\n\nb" {
		t.Errorf("compressBlankLines(%q) = %q, want two blank lines kept", in, got)
	}
	if out := compressBlankLines("a\nb"); out != "a\nb" {
		t.Errorf("compressBlankLines altered dense text: %q", out)
	}
}

func TestRenderHelpClipsToCanvas(t *testing.T) {
	m := sized(t, NewModel(Options{Edges: testEdges(), Config: fastConfig()}))
	m.showHelp = true
	m.helpCache = renderHelpMarkdown(m.width)

	out := m.renderHelp()
	lines := strings.Split(out, "\n")
	if len(lines) > m.canvasHeight() {
		t.Errorf("help spills past the canvas: %d lines for height %d", len(lines), m.canvasHeight())
	}
}
