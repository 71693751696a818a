// Package config handles loading and saving kw configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/kw/config.yaml
//   - Data:    ~/.local/share/kw/ (exported snapshots)
//   - State:   ~/.local/state/kw/ (layout cache records)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/knotwork/pkg/layout"
	"github.com/vanderheijden86/knotwork/pkg/viewport"
)

// Workspace represents a registered edge source in the config.
type Workspace struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// PhysicsConfig overrides simulation parameters. Zero-valued fields defer
// to the engine defaults.
type PhysicsConfig struct {
	Repulsion         float64 `yaml:"repulsion,omitempty"`
	CenterForce       float64 `yaml:"center_force,omitempty"`
	Attraction        float64 `yaml:"attraction,omitempty"`
	BaseIdealDistance float64 `yaml:"base_ideal_distance,omitempty"`
	Damping           float64 `yaml:"damping,omitempty"`
	Cooling           float64 `yaml:"cooling,omitempty"`
	VelocityThreshold float64 `yaml:"velocity_threshold,omitempty"`
	AlphaThreshold    float64 `yaml:"alpha_threshold,omitempty"`
	SettledThreshold  float64 `yaml:"settled_threshold,omitempty"`
}

// ViewportConfig overrides zoom bounds. Zero-valued fields defer to the
// viewport defaults.
type ViewportConfig struct {
	MinScale float64 `yaml:"min_scale,omitempty"`
	MaxScale float64 `yaml:"max_scale,omitempty"`
}

// CacheConfig controls the persistent layout cache.
type CacheConfig struct {
	Disabled    bool   `yaml:"disabled,omitempty"`
	Backend     string `yaml:"backend,omitempty"` // file, sqlite
	Dir         string `yaml:"dir,omitempty"`     // default: StateDir()
	SaveDelayMS int    `yaml:"save_delay_ms,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	FrameIntervalMS int  `yaml:"frame_interval_ms,omitempty"`
	HideLegend      bool `yaml:"hide_legend,omitempty"`
	HideStatusBar   bool `yaml:"hide_status_bar,omitempty"`
}

// Config is the top-level configuration for kw.
type Config struct {
	Workspaces []Workspace    `yaml:"workspaces,omitempty"`
	Physics    PhysicsConfig  `yaml:"physics,omitempty"`
	Viewport   ViewportConfig `yaml:"viewport,omitempty"`
	Cache      CacheConfig    `yaml:"cache,omitempty"`
	UI         UIConfig       `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. Physics and
// viewport sections stay zero so the engine defaults apply.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Backend:     "file",
			SaveDelayMS: 500,
		},
		UI: UIConfig{
			FrameIntervalMS: 16,
		},
	}
}

// SimulatorConfig maps the physics section onto the simulation engine's
// config; zero fields are filled by the engine.
func (c Config) SimulatorConfig() layout.Config {
	p := c.Physics
	return layout.Config{
		Repulsion:         p.Repulsion,
		CenterForce:       p.CenterForce,
		Attraction:        p.Attraction,
		BaseIdealDistance: p.BaseIdealDistance,
		Damping:           p.Damping,
		Cooling:           p.Cooling,
		VelocityThreshold: p.VelocityThreshold,
		AlphaThreshold:    p.AlphaThreshold,
		SettledThreshold:  p.SettledThreshold,
	}
}

// ControllerConfig maps the viewport section onto the interaction
// controller's config; zero fields are filled by the controller.
func (c Config) ControllerConfig() viewport.Config {
	return viewport.Config{
		MinScale: c.Viewport.MinScale,
		MaxScale: c.Viewport.MaxScale,
	}
}

// SaveDelay returns the cache debounce window.
func (c CacheConfig) SaveDelay() time.Duration {
	if c.SaveDelayMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.SaveDelayMS) * time.Millisecond
}

// ResolveDir returns the directory holding layout cache records.
func (c CacheConfig) ResolveDir() string {
	if c.Dir != "" {
		return expandHome(c.Dir)
	}
	return StateDir()
}

// FrameInterval returns the UI frame tick interval.
func (c UIConfig) FrameInterval() time.Duration {
	if c.FrameIntervalMS <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// ConfigDir returns the XDG config directory for kw.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kw")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "kw")
}

// DataDir returns the XDG data directory for kw.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "kw")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "kw")
}

// StateDir returns the XDG state directory for kw.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "kw")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "kw")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Expand ~ in workspace and cache paths
	for i := range cfg.Workspaces {
		cfg.Workspaces[i].Path = expandHome(cfg.Workspaces[i].Path)
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindWorkspace returns the workspace with the given name, or nil.
func (c Config) FindWorkspace(name string) *Workspace {
	for i := range c.Workspaces {
		if strings.EqualFold(c.Workspaces[i].Name, name) {
			return &c.Workspaces[i]
		}
	}
	return nil
}

// ResolvedPath returns the workspace path with ~ expanded.
func (w Workspace) ResolvedPath() string {
	return expandHome(w.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
