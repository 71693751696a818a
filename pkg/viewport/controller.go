package viewport

import (
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

type gestureMode int

const (
	gestureNone gestureMode = iota
	gesturePan
	gestureDrag
)

// Controller owns the view state and disambiguates pointer gestures over
// the simulated graph: dragging a hit node, panning on a miss, and
// selection on a motionless press/release pair. It is driven from the
// host's event loop and is not safe for concurrent use.
type Controller struct {
	sim  *layout.Simulator
	cfg  Config
	view View

	width  int
	height int

	mode   gestureMode
	dragID string
	pressX int
	pressY int
	lastX  int
	lastY  int
	moved  bool

	selected  string
	fromCache bool

	filter model.Relationship
	lit    map[string]bool

	label     func(id string) string
	onPersist func()
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithOnPersist sets the callback invoked when a drag over cache-restored
// positions ends, so the host can schedule a cache re-save.
func WithOnPersist(fn func()) ControllerOption {
	return func(c *Controller) {
		c.onPersist = fn
	}
}

// WithLabelFunc sets the label the host renders for a node, which sizes
// its hit box. Defaults to the node id.
func WithLabelFunc(fn func(id string) string) ControllerOption {
	return func(c *Controller) {
		c.label = fn
	}
}

// NewController wires a controller over sim.
func NewController(sim *layout.Simulator, cfg Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		sim:   sim,
		cfg:   cfg.withDefaults(),
		view:  NewView(),
		label: func(id string) string { return id },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resize records the surface dimensions used by the transform.
func (c *Controller) Resize(width, height int) {
	c.width = width
	c.height = height
}

// View returns the current pan/zoom state.
func (c *Controller) View() View {
	return c.view
}

// ResetView restores the identity view.
func (c *Controller) ResetView() {
	c.view.Reset()
}

// Project maps a world coordinate to surface coordinates.
func (c *Controller) Project(worldX, worldY float64) (float64, float64) {
	return c.view.ToScreen(worldX, worldY, float64(c.width), float64(c.height))
}

// Unproject maps a surface coordinate to world coordinates.
func (c *Controller) Unproject(screenX, screenY float64) (float64, float64) {
	return c.view.ToWorld(screenX, screenY, float64(c.width), float64(c.height))
}

// HitTest returns the first node in discovery order whose label rectangle
// contains the surface point, or "" when the point hits empty space.
func (c *Controller) HitTest(x, y int) string {
	m := c.sim.Model()
	px, py := float64(x), float64(y)
	for _, id := range m.IDs() {
		node, ok := m.Nodes[id]
		if !ok {
			continue
		}
		sx, sy := c.Project(node.X, node.Y)
		w := float64(runewidth.StringWidth(c.label(id)))*c.cfg.CharWidth + c.cfg.Padding
		h := c.cfg.FontSize + c.cfg.Padding
		if px >= sx-w/2 && px <= sx+w/2 && py >= sy-h/2 && py <= sy+h/2 {
			return id
		}
	}
	return ""
}

// PointerDown begins a gesture: a node hit arms a drag, a miss arms a pan.
// The simulation keeps stepping until actual motion occurs, so a plain
// click never perturbs it.
func (c *Controller) PointerDown(x, y int) {
	c.pressX, c.pressY = x, y
	c.lastX, c.lastY = x, y
	c.moved = false
	if id := c.HitTest(x, y); id != "" {
		c.mode = gestureDrag
		c.dragID = id
	} else {
		c.mode = gesturePan
	}
}

// PointerMove continues the active gesture. The first motion of a drag
// stops the simulation so exactly one writer moves the node; every motion
// after that pins the node under the pointer.
func (c *Controller) PointerMove(x, y int) {
	switch c.mode {
	case gestureDrag:
		if !c.moved && (x != c.pressX || y != c.pressY) {
			c.moved = true
			c.sim.Stop()
		}
		if c.moved {
			wx, wy := c.Unproject(float64(x), float64(y))
			c.sim.MoveNode(c.dragID, wx, wy)
		}
	case gesturePan:
		dx, dy := x-c.lastX, y-c.lastY
		if dx != 0 || dy != 0 {
			c.moved = true
			c.view.OffsetX += float64(dx)
			c.view.OffsetY += float64(dy)
		}
	}
	c.lastX, c.lastY = x, y
}

// PointerUp ends the gesture. A completed node drag either restarts the
// simulation for a fresh layout or, when positions were restored from
// cache, reports the manual repositioning for persistence. A press/release
// with no motion is a selection click: it toggles the pressed node, or
// clears the selection on empty space.
func (c *Controller) PointerUp(x, y int) {
	mode, moved, dragID := c.mode, c.moved, c.dragID
	c.mode = gestureNone
	c.dragID = ""
	c.moved = false

	switch {
	case mode == gestureDrag && moved:
		if c.fromCache {
			if c.onPersist != nil {
				c.onPersist()
			}
		} else {
			c.sim.Start()
		}
	case !moved && mode == gestureDrag:
		if c.selected == dragID {
			c.selected = ""
		} else {
			c.selected = dragID
		}
	case !moved:
		c.selected = ""
	}
}

// Wheel applies one zoom notch.
func (c *Controller) Wheel(in bool) {
	c.cfg.Zoom(&c.view, in)
}

// Dragging reports the node currently being dragged, or "".
func (c *Controller) Dragging() string {
	if c.mode == gestureDrag && c.moved {
		return c.dragID
	}
	return ""
}

// Selected returns the selected node id, or "".
func (c *Controller) Selected() string {
	return c.selected
}

// Select sets the selection directly, bypassing gesture handling.
func (c *Controller) Select(id string) {
	c.selected = id
}

// SetFromCache records whether current positions were restored from the
// layout cache, which routes drag-end to persistence instead of restart.
func (c *Controller) SetFromCache(fromCache bool) {
	c.fromCache = fromCache
}

// FromCache reports whether positions currently come from the cache.
func (c *Controller) FromCache() bool {
	return c.fromCache
}

// SetFilter dims everything not related to rel. Dimming is a render hint;
// nodes and edges stay in place and stay interactive. Reapply after the
// edge set changes.
func (c *Controller) SetFilter(rel model.Relationship) {
	c.filter = rel
	if rel == "" {
		c.lit = nil
		return
	}
	c.lit = make(map[string]bool)
	for _, e := range c.sim.Edges() {
		if e.Relationship != rel {
			continue
		}
		c.lit[e.Source] = true
		c.lit[e.Target] = true
	}
}

// ClearFilter removes the relationship filter.
func (c *Controller) ClearFilter() {
	c.SetFilter("")
}

// Filter returns the active relationship filter, or "".
func (c *Controller) Filter() model.Relationship {
	return c.filter
}

// EdgeDimmed reports whether the filter dims e.
func (c *Controller) EdgeDimmed(e model.Edge) bool {
	return c.filter != "" && e.Relationship != c.filter
}

// NodeDimmed reports whether the filter dims the node: it has no incident
// edge matching the filter.
func (c *Controller) NodeDimmed(id string) bool {
	return c.filter != "" && !c.lit[id]
}
