package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpMarkdown = `# Keyboard & Mouse

## Navigation

| Key | Action |
|-----|--------|
| drag background | pan the view |
| drag node | move the node (its spot is kept) |
| click node | select it |
| scroll / + - | zoom in and out |
| 0 | reset pan and zoom |

## Layout

| Key | Action |
|-----|--------|
| r | reheat: nudge the current layout |
| R | restart: relayout from scratch |

## Links

| Key | Action |
|-----|--------|
| f | cycle link-type filter |
| F / esc | clear the filter |

## Other

| Key | Action |
|-----|--------|
| c / y | copy selected note id |
| s | export an SVG snapshot |
| ? | toggle this help |
| q | quit |
`

const helpWrapMax = 72

// renderHelpMarkdown renders the key reference through glamour. Falls back
// to the raw markdown when the renderer cannot be built, which keeps help
// usable on terminals glamour does not understand.
func renderHelpMarkdown(width int) string {
	wrap := width - 4
	if wrap > helpWrapMax {
		wrap = helpWrapMax
	}
	if wrap < 20 {
		wrap = 20
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return compressBlankLines(out)
}

// compressBlankLines collapses runs of three or more blank lines down to
// two; glamour is generous with vertical whitespace in table-heavy docs.
func compressBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// renderHelp shows the cached help screen clipped to the canvas height so
// the header and status bar stay put.
func (m Model) renderHelp() string {
	content := m.helpCache
	if content == "" {
		content = renderHelpMarkdown(m.width)
	}

	height := m.canvasHeight()
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	content = strings.Join(lines, "\n")

	return m.theme.Renderer.NewStyle().
		Width(m.width).
		Height(height).
		Align(lipgloss.Left, lipgloss.Top).
		Render(content)
}
