// Package export renders static snapshots of a settled layout. SVG output
// goes through svgo, PNG through gg; both share one scene built from the
// graph model so the two formats never drift apart.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanderheijden86/knotwork/pkg/analysis"
	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/metrics"
	"github.com/vanderheijden86/knotwork/pkg/model"
	"github.com/vanderheijden86/knotwork/pkg/viewport"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path     string          // Output path; format inferred from extension when Format empty
	Format   string          // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title    string          // Optional title rendered in the summary block
	Width    int             // Canvas width in pixels; defaults to 1200
	Height   int             // Canvas height in pixels; defaults to 800
	Model    *graph.Model    // Settled layout to render
	Stats    *analysis.Stats // Analysis used for node radii and summary
	DataHash string          // Structural fingerprint of the rendered edges, for provenance
}

// WriteSnapshot renders a static snapshot (SVG or PNG) of the settled
// layout with a minimal summary block. The visual language stays concise so
// AI agents can parse it without reading auxiliary docs.
func WriteSnapshot(opts SnapshotOptions) error {
	if opts.Model == nil || opts.Model.Len() == 0 {
		return fmt.Errorf("no nodes to export")
	}
	if opts.Stats == nil {
		return fmt.Errorf("graph stats are required for snapshot export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	// Radii come from normalized PageRank, so the background pass must
	// finish before the scene is built.
	opts.Stats.Wait()

	done := metrics.Timer(metrics.SnapshotRender)
	defer done()

	scene := buildScene(opts)

	switch format {
	case "svg":
		return renderSVG(opts.Path, scene)
	case "png":
		return renderPNG(opts.Path, scene)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- scene computation -----------------------------------------------------

type sceneNode struct {
	ID    string
	Label string
	X, Y  float64
	R     float64
	Fill  color.RGBA
}

type sceneEdge struct {
	X1, Y1 float64
	X2, Y2 float64
	Color  color.RGBA
}

type scene struct {
	Nodes     []sceneNode
	Edges     []sceneEdge
	Labeled   map[string]bool
	Relations []model.Relationship
	Width     int
	Height    int
	Header    float64
	Summary   summaryInfo
}

type summaryInfo struct {
	Title          string
	DataHash       string
	NodeCount      int
	LinkCount      int
	ComponentCount int
	TopHub         string
}

const (
	defaultWidth  = 1200
	defaultHeight = 800
	minWidth      = 640
	minHeight     = 480
	headerHeight  = 110.0
	canvasPadding = 48.0
	baseRadius    = 7.0

	// Past this node count only the top hubs get labels, otherwise the
	// picture drowns in text.
	labelAllLimit = 80
	labelTopHubs  = 12
)

func buildScene(opts SnapshotOptions) scene {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultHeight
	}
	if height < minHeight {
		height = minHeight
	}

	view := fitView(opts.Model, float64(width), float64(height))
	fills := categoryFills(opts.Model)

	ids := opts.Model.IDs()
	nodes := make([]sceneNode, 0, len(ids))
	for _, id := range ids {
		n := opts.Model.Nodes[id]
		x, y := view.ToScreen(n.X, n.Y, float64(width), float64(height))
		nodes = append(nodes, sceneNode{
			ID:    id,
			Label: truncate(baseName(id), 24),
			X:     x,
			Y:     y,
			R:     baseRadius * opts.Stats.RadiusScale(id),
			Fill:  fills[n.Category],
		})
	}

	edges := make([]sceneEdge, 0, len(opts.Model.Edges))
	for _, e := range opts.Model.Edges {
		from, okF := opts.Model.Nodes[e.Source]
		to, okT := opts.Model.Nodes[e.Target]
		if !okF || !okT {
			continue
		}
		x1, y1 := view.ToScreen(from.X, from.Y, float64(width), float64(height))
		x2, y2 := view.ToScreen(to.X, to.Y, float64(width), float64(height))
		edges = append(edges, sceneEdge{X1: x1, Y1: y1, X2: x2, Y2: y2, Color: e.Relationship.RGBA()})
	}

	labeled := make(map[string]bool, len(ids))
	if len(ids) <= labelAllLimit {
		for _, id := range ids {
			labeled[id] = true
		}
	} else {
		for _, id := range opts.Stats.TopByPageRank(labelTopHubs) {
			labeled[id] = true
		}
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Layout Snapshot"
	}

	return scene{
		Nodes:     nodes,
		Edges:     edges,
		Labeled:   labeled,
		Relations: usedRelationships(opts.Model.Edges),
		Width:     width,
		Height:    height,
		Header:    headerHeight,
		Summary: summaryInfo{
			Title:          title,
			DataHash:       opts.DataHash,
			NodeCount:      opts.Model.Len(),
			LinkCount:      len(opts.Model.Edges),
			ComponentCount: opts.Stats.ComponentCount(),
			TopHub:         topHub(opts.Stats),
		},
	}
}

// fitView builds a viewport that maps the model's bounding box into the
// drawable area below the header, centered with padding. Scale is expressed
// relative to BaseScale so the same projection the explorer uses applies
// here unchanged.
func fitView(m *graph.Model, width, height float64) viewport.View {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range m.Nodes {
		minX = math.Min(minX, n.X)
		maxX = math.Max(maxX, n.X)
		minY = math.Min(minY, n.Y)
		maxY = math.Max(maxY, n.Y)
	}

	spanX := maxX - minX
	spanY := maxY - minY
	// Single nodes and collinear layouts still need a finite scale.
	if spanX < 1e-9 {
		spanX = 1
	}
	if spanY < 1e-9 {
		spanY = 1
	}

	availW := width - 2*canvasPadding
	availH := height - headerHeight - 2*canvasPadding
	pixelsPerUnit := math.Min(availW/spanX, availH/spanY)

	centerX := (minX + maxX) / 2
	centerY := (minY + maxY) / 2
	contentCenterY := headerHeight + (height-headerHeight)/2

	return viewport.View{
		Scale:   pixelsPerUnit / viewport.BaseScale(width, height),
		OffsetX: -centerX * pixelsPerUnit,
		OffsetY: contentCenterY - height/2 - centerY*pixelsPerUnit,
	}
}

// categoryFills assigns palette colors to categories in sorted order so the
// same graph always colors the same way.
func categoryFills(m *graph.Model) map[string]color.RGBA {
	set := make(map[string]bool)
	for _, n := range m.Nodes {
		set[n.Category] = true
	}
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fills := make(map[string]color.RGBA, len(categories))
	for i, c := range categories {
		fills[c] = categoryPalette[i%len(categoryPalette)]
	}
	return fills
}

// usedRelationships returns the relationships present in the edge list, in
// canonical declaration order, for the legend.
func usedRelationships(edges []model.Edge) []model.Relationship {
	present := make(map[model.Relationship]bool, len(edges))
	for _, e := range edges {
		present[e.Relationship] = true
	}
	var out []model.Relationship
	for _, r := range model.Relationships() {
		if present[r] {
			out = append(out, r)
		}
	}
	return out
}

func topHub(stats *analysis.Stats) string {
	top := stats.TopByPageRank(1)
	if len(top) == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%s (%.3f)", top[0], stats.PageRankScore(top[0]))
}

func baseName(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// --- rendering -------------------------------------------------------------

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// categoryPalette colors nodes by their top-level directory. Eight entries
// cycle for vaults with more categories than that.
var categoryPalette = []color.RGBA{
	{0x64, 0xb5, 0xf6, 0xff}, // blue
	{0x81, 0xc7, 0x84, 0xff}, // green
	{0xff, 0xb7, 0x4d, 0xff}, // orange
	{0xba, 0x68, 0xc8, 0xff}, // purple
	{0x4d, 0xd0, 0xe1, 0xff}, // cyan
	{0xf0, 0x62, 0x92, 0xff}, // pink
	{0xa1, 0x88, 0x7f, 0xff}, // brown
	{0x90, 0xa4, 0xae, 0xff}, // blue gray
}

func renderPNG(path string, sc scene) error {
	dc := gg.NewContext(sc.Width, sc.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(sc.Width)-32, sc.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, sc)
	drawLegend(dc, sc)

	dc.SetLineWidth(1.4)
	for _, e := range sc.Edges {
		c := e.Color
		c.A = 0xa0
		dc.SetColor(c)
		dc.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range sc.Nodes {
		dc.SetColor(n.Fill)
		dc.DrawCircle(n.X, n.Y, n.R)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
		dc.DrawCircle(n.X, n.Y, n.R)
		dc.Stroke()
	}

	// Labels go on top of everything so edges never cut through them.
	dc.SetColor(colorText)
	for _, n := range sc.Nodes {
		if !sc.Labeled[n.ID] {
			continue
		}
		dc.DrawStringAnchored(n.Label, n.X, n.Y-n.R-6, 0.5, 0.5)
	}

	return dc.SavePNG(path)
}

func renderSVG(path string, sc scene) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, sc)
}

func renderSVGToWriter(w io.Writer, sc scene) error {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, sc.Width-32, int(sc.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, sc)
	drawLegendSVG(canvas, sc)

	for _, e := range sc.Edges {
		canvas.Line(int(e.X1), int(e.Y1), int(e.X2), int(e.Y2),
			fmt.Sprintf("stroke:%s;stroke-width:1.4;stroke-opacity:0.63", css(e.Color)))
	}

	for _, n := range sc.Nodes {
		canvas.Circle(int(n.X), int(n.Y), int(math.Round(n.R)),
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(n.Fill), css(colorStroke)))
	}

	for _, n := range sc.Nodes {
		if !sc.Labeled[n.ID] {
			continue
		}
		canvas.Text(int(n.X), int(n.Y-n.R-6), n.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorText)))
	}

	canvas.End()
	return nil
}

func drawSummaryBlock(dc *gg.Context, sc scene) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(sc.Summary.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("data_hash: %s", sc.Summary.DataHash), 32, 58, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("notes: %d  links: %d  components: %d",
		sc.Summary.NodeCount, sc.Summary.LinkCount, sc.Summary.ComponentCount), 32, 76, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("top hub: %s", sc.Summary.TopHub), 32, 94, 0, 0.5)
}

func drawLegend(dc *gg.Context, sc scene) {
	rows := sc.Relations
	if len(rows) == 0 {
		return
	}
	boxW := 180.0
	boxH := float64(24 + 16*len(rows))
	x := float64(sc.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Links", x+12, y+14, 0, 0.5)
	for i, r := range rows {
		drawLegendRow(dc, x+12, y+32+float64(i)*16, r.RGBA(), r.Label())
	}
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-7, 12, 12, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-7, 12, 12, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+18, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, sc scene) {
	canvas.Text(32, 40, sc.Summary.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 58, fmt.Sprintf("data_hash: %s", sc.Summary.DataHash),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 76, fmt.Sprintf("notes: %d  links: %d  components: %d",
		sc.Summary.NodeCount, sc.Summary.LinkCount, sc.Summary.ComponentCount),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 94, fmt.Sprintf("top hub: %s", sc.Summary.TopHub),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

func drawLegendSVG(canvas *svg.SVG, sc scene) {
	rows := sc.Relations
	if len(rows) == 0 {
		return
	}
	boxW := 180
	boxH := 24 + 16*len(rows)
	x := sc.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+14, "Links",
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, r := range rows {
		drawLegendRowSVG(canvas, x+12, y+32+i*16, r.RGBA(), r.Label())
	}
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-7, 12, 12, 3, 3,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+18, y, label,
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
