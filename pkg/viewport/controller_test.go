package viewport

import (
	"math"
	"testing"

	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

func ref(src, tgt string) model.Edge {
	return model.Edge{Source: src, Target: tgt, Relationship: model.RelReferences}
}

func newTestController(edges []model.Edge, opts ...ControllerOption) (*Controller, *layout.Simulator) {
	sim := layout.New(layout.Config{})
	sim.SetData(edges)
	c := NewController(sim, Config{}, opts...)
	c.Resize(100, 50)
	return c, sim
}

// nodePoint returns the surface cell under a node's center.
func nodePoint(c *Controller, sim *layout.Simulator, id string) (int, int) {
	n := sim.Model().Nodes[id]
	sx, sy := c.Project(n.X, n.Y)
	return int(math.Round(sx)), int(math.Round(sy))
}

func TestHitTestFindsNode(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})

	x, y := nodePoint(c, sim, "a")
	if got := c.HitTest(x, y); got != "a" {
		t.Errorf("HitTest(%d, %d) = %q, want %q", x, y, got, "a")
	}
	if got := c.HitTest(0, 0); got != "" {
		t.Errorf("HitTest(0, 0) = %q, want empty space", got)
	}
}

func TestHitTestFirstMatchOnOverlap(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})

	sim.MoveNode("a", 0.3, -0.2)
	sim.MoveNode("b", 0.3, -0.2)

	x, y := nodePoint(c, sim, "b")
	if got := c.HitTest(x, y); got != "a" {
		t.Errorf("HitTest on overlap = %q, want first node in discovery order", got)
	}
}

func TestHitTestUsesRenderedLabel(t *testing.T) {
	sim := layout.New(layout.Config{})
	sim.SetData([]model.Edge{ref("a", "b")})

	wide := NewController(sim, Config{}, WithLabelFunc(func(string) string { return "wide-label" }))
	wide.Resize(100, 50)
	narrow := NewController(sim, Config{})
	narrow.Resize(100, 50)

	x, y := nodePoint(wide, sim, "a")
	// Four cells right of center: inside a ten-rune label box, outside a
	// one-rune box.
	if got := wide.HitTest(x+4, y); got != "a" {
		t.Errorf("wide label HitTest = %q, want %q", got, "a")
	}
	if got := narrow.HitTest(x+4, y); got == "a" {
		t.Error("narrow label box matched far from the node center")
	}
}

func TestDragMovesAndPinsNode(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})
	sim.Start()

	x, y := nodePoint(c, sim, "a")
	c.PointerDown(x, y)
	c.PointerMove(x+3, y+2)

	if sim.State() == layout.StateRunning {
		t.Error("simulation still running during drag")
	}
	if c.Dragging() != "a" {
		t.Errorf("Dragging() = %q, want %q", c.Dragging(), "a")
	}

	wx, wy := c.Unproject(float64(x+3), float64(y+2))
	n := sim.Model().Nodes["a"]
	if n.X != wx || n.Y != wy {
		t.Errorf("node at (%v, %v), want pointer position (%v, %v)", n.X, n.Y, wx, wy)
	}
	if n.VX != 0 || n.VY != 0 {
		t.Errorf("dragged node velocity = (%v, %v), want (0, 0)", n.VX, n.VY)
	}
	if !sim.Pinned("a") {
		t.Error("dragged node not pinned")
	}
}

func TestDragEndRestartsSimulation(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})

	x, y := nodePoint(c, sim, "a")
	c.PointerDown(x, y)
	c.PointerMove(x+5, y)
	c.PointerUp(x+5, y)

	if sim.State() != layout.StateRunning {
		t.Errorf("state = %v after drag end, want Running", sim.State())
	}
	if sim.Pinned("a") {
		t.Error("pin survived the restart")
	}
	if c.Dragging() != "" {
		t.Errorf("Dragging() = %q after release, want empty", c.Dragging())
	}
}

func TestDragEndOverCachedLayoutPersists(t *testing.T) {
	persisted := 0
	c, sim := newTestController([]model.Edge{ref("a", "b")},
		WithOnPersist(func() { persisted++ }))
	c.SetFromCache(true)

	x, y := nodePoint(c, sim, "a")
	c.PointerDown(x, y)
	c.PointerMove(x+4, y+4)
	c.PointerUp(x+4, y+4)

	if persisted != 1 {
		t.Errorf("persist callbacks = %d, want 1", persisted)
	}
	if sim.State() == layout.StateRunning {
		t.Error("simulation restarted despite cache-restored positions")
	}
	if !c.FromCache() {
		t.Error("cache provenance flag dropped by drag")
	}
}

func TestPanAccumulatesOffsets(t *testing.T) {
	c, _ := newTestController([]model.Edge{ref("a", "b")})

	c.PointerDown(2, 2)
	c.PointerMove(7, 5)
	c.PointerMove(9, 9)
	c.PointerUp(9, 9)

	v := c.View()
	if v.OffsetX != 7 || v.OffsetY != 7 {
		t.Errorf("offsets = (%v, %v), want (7, 7)", v.OffsetX, v.OffsetY)
	}
}

func TestPanDoesNotChangeSelection(t *testing.T) {
	c, _ := newTestController([]model.Edge{ref("a", "b")})
	c.Select("a")

	c.PointerDown(2, 2)
	c.PointerMove(12, 2)
	c.PointerUp(12, 2)

	if c.Selected() != "a" {
		t.Errorf("Selected() = %q after pan, want %q", c.Selected(), "a")
	}
}

func TestClickTogglesSelection(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})

	x, y := nodePoint(c, sim, "a")
	c.PointerDown(x, y)
	c.PointerUp(x, y)
	if c.Selected() != "a" {
		t.Fatalf("Selected() = %q after click, want %q", c.Selected(), "a")
	}

	c.PointerDown(x, y)
	c.PointerUp(x, y)
	if c.Selected() != "" {
		t.Errorf("Selected() = %q after second click, want deselected", c.Selected())
	}
}

func TestEmptySpaceClickClearsSelection(t *testing.T) {
	c, _ := newTestController([]model.Edge{ref("a", "b")})
	c.Select("b")

	c.PointerDown(2, 2)
	c.PointerUp(2, 2)

	if c.Selected() != "" {
		t.Errorf("Selected() = %q after empty-space click, want cleared", c.Selected())
	}
}

func TestClickLeavesSimulationRunning(t *testing.T) {
	c, sim := newTestController([]model.Edge{ref("a", "b")})
	sim.Start()

	x, y := nodePoint(c, sim, "a")
	c.PointerDown(x, y)
	c.PointerUp(x, y)

	if sim.State() != layout.StateRunning {
		t.Errorf("state = %v after click, want Running", sim.State())
	}
}

func TestWheelClampsAtBounds(t *testing.T) {
	c, _ := newTestController(nil)

	for i := 0; i < 40; i++ {
		c.Wheel(true)
	}
	if got := c.View().Scale; got != 5.0 {
		t.Errorf("scale = %v after repeated zoom in, want 5.0", got)
	}

	for i := 0; i < 80; i++ {
		c.Wheel(false)
	}
	if got := c.View().Scale; got != 0.2 {
		t.Errorf("scale = %v after repeated zoom out, want 0.2", got)
	}
}

func TestResetView(t *testing.T) {
	c, _ := newTestController([]model.Edge{ref("a", "b")})

	c.PointerDown(2, 2)
	c.PointerMove(30, 20)
	c.PointerUp(30, 20)
	c.Wheel(true)

	c.ResetView()
	if c.View() != NewView() {
		t.Errorf("View() = %+v after reset, want identity", c.View())
	}
}

func TestFilterDimsNonMatching(t *testing.T) {
	extends := model.Edge{Source: "b", Target: "c", Relationship: model.RelExtends}
	edges := []model.Edge{ref("a", "b"), extends}
	c, _ := newTestController(edges)

	c.SetFilter(model.RelExtends)

	if !c.EdgeDimmed(edges[0]) {
		t.Error("references edge not dimmed under extends filter")
	}
	if c.EdgeDimmed(extends) {
		t.Error("extends edge dimmed under extends filter")
	}
	if !c.NodeDimmed("a") {
		t.Error("node with no matching incident edge not dimmed")
	}
	if c.NodeDimmed("b") || c.NodeDimmed("c") {
		t.Error("endpoint of a matching edge dimmed")
	}

	c.ClearFilter()
	if c.EdgeDimmed(edges[0]) || c.NodeDimmed("a") {
		t.Error("dimming persisted after filter cleared")
	}
}
