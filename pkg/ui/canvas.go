package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/knotwork/pkg/analysis"
	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/viewport"
)

// Node glyphs by importance band; RadiusScale maps PageRank into [1, 2].
const (
	glyphSmall  = '·'
	glyphMedium = '•'
	glyphLarge  = '●'

	glyphEdge     = '·'
	glyphSelected = '◉'
)

// maxLabelWidth bounds node labels drawn next to the selected and hovered
// nodes so a deep path cannot smear across the whole canvas.
const maxLabelWidth = 28

type canvasParams struct {
	sim        *layout.Simulator
	controller *viewport.Controller
	stats      *analysis.Stats
	theme      Theme
	width      int
	height     int
	legend     bool
	settleGlow bool
}

// cell is one canvas character with an optional style. A nil style renders
// as plain text, which keeps empty regions cheap.
type cell struct {
	ch    rune
	style *lipgloss.Style
}

// renderCanvas projects the current node positions into a character grid.
// Edges draw first, nodes over them, labels last, so labels always win.
func renderCanvas(p canvasParams) string {
	if p.width < 1 || p.height < 1 {
		return ""
	}

	mdl := p.sim.Model()
	if mdl.Len() == 0 {
		return p.theme.Renderer.NewStyle().
			Width(p.width).
			Height(p.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(p.theme.Secondary).
			Render("No links to display")
	}

	grid := make([][]cell, p.height)
	for y := range grid {
		grid[y] = make([]cell, p.width)
		for x := range grid[y] {
			grid[y][x] = cell{ch: ' '}
		}
	}

	t := p.theme
	categories := categoryIndex(mdl)

	edgeStyles := make(map[model.Relationship]*lipgloss.Style)
	dimStyle := stylePtr(t.Renderer.NewStyle().Foreground(t.Muted))

	for _, e := range p.sim.Edges() {
		from, okF := mdl.Nodes[e.Source]
		to, okT := mdl.Nodes[e.Target]
		if !okF || !okT {
			continue
		}
		x1, y1 := p.controller.Project(from.X, from.Y)
		x2, y2 := p.controller.Project(to.X, to.Y)

		style := dimStyle
		if !p.controller.EdgeDimmed(e) {
			s, ok := edgeStyles[e.Relationship]
			if !ok {
				s = stylePtr(t.Renderer.NewStyle().Foreground(RelationshipColor(e.Relationship)))
				edgeStyles[e.Relationship] = s
			}
			style = s
		}
		plotLine(grid, int(x1), int(y1), int(x2), int(y2), glyphEdge, style)
	}

	selected := p.controller.Selected()
	dragging := p.controller.Dragging()

	for _, id := range mdl.IDs() {
		n := mdl.Nodes[id]
		sx, sy := p.controller.Project(n.X, n.Y)
		x, y := int(sx), int(sy)
		if x < 0 || x >= p.width || y < 0 || y >= p.height {
			continue
		}

		glyph := nodeGlyph(p.stats.RadiusScale(id))
		var style *lipgloss.Style
		switch {
		case id == selected || id == dragging:
			glyph = glyphSelected
			style = stylePtr(t.SelectedNode)
		case p.controller.NodeDimmed(id):
			style = stylePtr(t.DimmedNode)
		default:
			s := t.Renderer.NewStyle().Foreground(t.CategoryColor(categories[n.Category]))
			if p.settleGlow {
				// brief bold flash when the layout settles
				s = s.Bold(true)
			}
			style = &s
		}
		grid[y][x] = cell{ch: glyph, style: style}
	}

	if selected != "" {
		if n, ok := mdl.Nodes[selected]; ok {
			sx, sy := p.controller.Project(n.X, n.Y)
			drawLabel(grid, int(sx)+2, int(sy), nodeLabel(selected), stylePtr(t.PrimaryBold))
		}
	}

	if p.legend {
		drawLegend(grid, p.sim.Edges(), t)
	}

	var sb strings.Builder
	sb.Grow(p.width * p.height * 2)
	for y, row := range grid {
		if y > 0 {
			sb.WriteByte('\n')
		}
		flushRow(&sb, row)
	}
	return sb.String()
}

// flushRow writes one grid row, batching runs of identically styled cells
// into a single Render call.
func flushRow(sb *strings.Builder, row []cell) {
	var run strings.Builder
	var runStyle *lipgloss.Style
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if runStyle == nil {
			sb.WriteString(run.String())
		} else {
			sb.WriteString(runStyle.Render(run.String()))
		}
		run.Reset()
	}
	for _, c := range row {
		if c.style != runStyle {
			flush()
			runStyle = c.style
		}
		run.WriteRune(c.ch)
	}
	flush()
}

// nodeGlyph picks a dot weight from the PageRank radius scale.
func nodeGlyph(radiusScale float64) rune {
	switch {
	case radiusScale >= 1.66:
		return glyphLarge
	case radiusScale >= 1.33:
		return glyphMedium
	default:
		return glyphSmall
	}
}

// categoryIndex assigns palette indices to the model's categories in
// sorted order so node colors are stable across frames and reloads.
func categoryIndex(mdl *graph.Model) map[string]int {
	seen := make(map[string]bool)
	for _, id := range mdl.IDs() {
		seen[mdl.Nodes[id].Category] = true
	}
	idx := make(map[string]int, len(seen))
	for i, c := range sortedCategories(seen) {
		idx[c] = i
	}
	return idx
}

// nodeLabel is the display form of a node id: the basename, bounded.
func nodeLabel(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	return runewidth.Truncate(id, maxLabelWidth, "…")
}

// plotLine draws a straight run of edge glyphs between two cells,
// skipping the endpoints so node glyphs stay visible. Standard integer
// line stepping; canvas cells are coarse enough that accumulated error
// is invisible.
func plotLine(grid [][]cell, x1, y1, x2, y2 int, ch rune, style *lipgloss.Style) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	x, y := x1, y1
	for {
		if x == x2 && y == y2 {
			break
		}
		// skip the starting endpoint
		if x != x1 || y != y1 {
			if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) && grid[y][x].ch == ' ' {
				grid[y][x] = cell{ch: ch, style: style}
			}
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

// drawLabel writes text into the grid starting at (x, y), clipped to the
// row. Wide runes occupy two cells.
func drawLabel(grid [][]cell, x, y int, text string, style *lipgloss.Style) {
	if y < 0 || y >= len(grid) {
		return
	}
	row := grid[y]
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if x < 0 || x+w > len(row) {
			break
		}
		row[x] = cell{ch: r, style: style}
		for i := 1; i < w; i++ {
			row[x+i] = cell{ch: ' ', style: style}
		}
		x += w
	}
}

// drawLegend paints the relationship key into the top-right corner, one
// row per relationship present in the data.
func drawLegend(grid [][]cell, edges []model.Edge, t Theme) {
	present := make(map[model.Relationship]bool, len(edges))
	for _, e := range edges {
		present[e.Relationship] = true
	}
	var rows []model.Relationship
	for _, r := range model.Relationships() {
		if present[r] {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 || len(grid) < len(rows) {
		return
	}

	widest := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.Label()); w > widest {
			widest = w
		}
	}

	width := len(grid[0])
	x := width - widest - 4
	if x < 0 {
		return
	}
	for i, r := range rows {
		style := stylePtr(t.Renderer.NewStyle().Foreground(RelationshipColor(r)))
		drawLabel(grid, x, i, "─ ", style)
		drawLabel(grid, x+2, i, r.Label(), stylePtr(t.MutedText))
	}
}

func stylePtr(s lipgloss.Style) *lipgloss.Style {
	return &s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sortedCategories returns the distinct categories of the model in sorted
// order; the index of each category picks its palette color.
func sortedCategories(categories map[string]bool) []string {
	out := make([]string, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
