// Package viewport maps simulation coordinates onto a host rendering
// surface and turns raw pointer events into pan, zoom, drag and selection
// gestures. It knows nothing about the rendering toolkit; hosts feed it
// pointer positions in surface units (terminal cells, pixels) and read
// back transformed positions.
package viewport

import "math"

// View is the pan/zoom state of the surface. The zero value is unusable;
// start from NewView.
type View struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewView returns the identity view: no pan, scale 1.
func NewView() View {
	return View{Scale: 1}
}

// Reset restores the identity view.
func (v *View) Reset() {
	*v = NewView()
}

// Zoom factors per wheel notch.
const (
	zoomInFactor  = 1.1
	zoomOutFactor = 0.9
)

// Config holds surface metrics and zoom bounds. CharWidth, FontSize and
// Padding are in surface units and describe how the host renders labels;
// a terminal host uses cell metrics, a raster host uses its font metrics.
type Config struct {
	MinScale  float64
	MaxScale  float64
	CharWidth float64
	FontSize  float64
	Padding   float64
}

// DefaultConfig returns metrics for a terminal-cell surface.
func DefaultConfig() Config {
	return Config{
		MinScale:  0.2,
		MaxScale:  5.0,
		CharWidth: 1,
		FontSize:  1,
		Padding:   1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinScale == 0 {
		c.MinScale = d.MinScale
	}
	if c.MaxScale == 0 {
		c.MaxScale = d.MaxScale
	}
	if c.CharWidth == 0 {
		c.CharWidth = d.CharWidth
	}
	if c.FontSize == 0 {
		c.FontSize = d.FontSize
	}
	if c.Padding == 0 {
		c.Padding = d.Padding
	}
	return c
}

// Zoom multiplies the view scale by one wheel notch, clamped to the
// configured bounds.
func (c Config) Zoom(v *View, in bool) {
	factor := zoomOutFactor
	if in {
		factor = zoomInFactor
	}
	v.Scale *= factor
	if v.Scale < c.MinScale {
		v.Scale = c.MinScale
	}
	if v.Scale > c.MaxScale {
		v.Scale = c.MaxScale
	}
}

// BaseScale converts world units to surface units so the unit circle of
// initial placement fills most of the surface at scale 1.
func BaseScale(width, height float64) float64 {
	return math.Min(width, height) * 0.4
}

// ToScreen projects a world coordinate onto a width×height surface.
func (v View) ToScreen(worldX, worldY, width, height float64) (float64, float64) {
	base := BaseScale(width, height)
	sx := width/2 + worldX*base*v.Scale + v.OffsetX
	sy := height/2 + worldY*base*v.Scale + v.OffsetY
	return sx, sy
}

// ToWorld inverts ToScreen. A degenerate surface (zero area) maps
// everything to the origin.
func (v View) ToWorld(screenX, screenY, width, height float64) (float64, float64) {
	factor := BaseScale(width, height) * v.Scale
	if factor == 0 {
		return 0, 0
	}
	wx := (screenX - width/2 - v.OffsetX) / factor
	wy := (screenY - height/2 - v.OffsetY) / factor
	return wx, wy
}
