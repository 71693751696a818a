package ui

import (
	"fmt"
	"image/color"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/knotwork/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation
// that may clash with palettes like Solarized.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme carries the explorer's color vocabulary. Node colors key off the
// category palette; edge colors come from the relationship table so the
// terminal and the snapshot renderers never disagree about what a link
// type looks like.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Simulation states
	Running lipgloss.AdaptiveColor
	Settled lipgloss.AdaptiveColor
	Idle    lipgloss.AdaptiveColor

	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles built once at startup instead of per-frame
	Base          lipgloss.Style
	Header        lipgloss.Style
	StatusBar     lipgloss.Style
	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
	ErrorText     lipgloss.Style
	SelectedNode  lipgloss.Style
	DimmedNode    lipgloss.Style

	// categories cycles for vaults with more top-level directories than
	// palette entries.
	categories []lipgloss.AdaptiveColor
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Running: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Settled: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		Idle:    lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},

		categories: []lipgloss.AdaptiveColor{
			{Light: "#1565C0", Dark: "#64B5F6"}, // blue
			{Light: "#2E7D32", Dark: "#81C784"}, // green
			{Light: "#B06800", Dark: "#FFB74D"}, // orange
			{Light: "#6B47D9", Dark: "#BA68C8"}, // purple
			{Light: "#006080", Dark: "#4DD0E1"}, // cyan
			{Light: "#C2185B", Dark: "#F06292"}, // pink
			{Light: "#5D4037", Dark: "#A1887F"}, // brown
			{Light: "#455A64", Dark: "#90A4AE"}, // blue gray
		},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = r.NewStyle().Background(t.Highlight)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.ErrorText = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}).Bold(true)
	t.SelectedNode = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.DimmedNode = r.NewStyle().Foreground(t.Muted)

	return t
}

// CategoryColor returns a stable color for a category index.
func (t Theme) CategoryColor(idx int) lipgloss.AdaptiveColor {
	if len(t.categories) == 0 {
		return t.Subtext
	}
	if idx < 0 {
		idx = -idx
	}
	return t.categories[idx%len(t.categories)]
}

// StateColor maps a simulation state name to its display color.
func (t Theme) StateColor(state string) lipgloss.AdaptiveColor {
	switch state {
	case "running":
		return t.Running
	case "settled":
		return t.Settled
	default:
		return t.Idle
	}
}

// RelationshipColor converts a relationship's table color into a terminal
// color, honoring the detected profile.
func RelationshipColor(r model.Relationship) lipgloss.TerminalColor {
	return ThemeFg(hexColor(r.RGBA()))
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
