// Package layout implements the force-directed placement engine: an
// iterative spring/repulsion integrator over the node model built by
// pkg/graph, with alpha cooling, settle detection, node pinning for drags,
// and cache restore.
package layout

import (
	"math"
	"sync"

	"github.com/vanderheijden86/knotwork/pkg/graph"
	"github.com/vanderheijden86/knotwork/pkg/model"
)

// State is the simulation lifecycle: Idle (nothing scheduled), Running
// (stepping), Settled (converged, no further steps scheduled).
type State int

const (
	StateIdle State = iota
	StateRunning
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// cacheCoverage is the minimum fraction of current nodes a cached layout
// must cover before it is applied instead of re-simulating.
const cacheCoverage = 0.8

// reheatAlpha is the temperature a settled layout is nudged back to.
const reheatAlpha = 0.5

// Simulator owns one graph model and steps it toward equilibrium. All
// operations take an internal lock, so a ticker-driven scheduler and host
// calls (drag, reheat) can interleave safely; individual steps are never
// concurrent with each other or with mutations.
type Simulator struct {
	mu        sync.Mutex
	cfg       Config
	model     *graph.Model
	pinned    map[string]bool
	alpha     float64
	totalVel  float64
	state     State
	steps     int
	sched     Scheduler
	listeners []func()
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

// WithScheduler installs a step driver started by Start and halted by
// Stop/SetData. Without one, the host pumps Step itself.
func WithScheduler(sched Scheduler) Option {
	return func(s *Simulator) {
		s.sched = sched
	}
}

// New creates a Simulator with an empty graph. Zero cfg fields take
// defaults.
func New(cfg Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:    cfg.withDefaults(),
		model:  graph.Build(nil),
		pinned: make(map[string]bool),
		alpha:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetData replaces the graph wholesale: nodes are rebuilt from the edge
// list, alpha resets to 1, pins clear, and any scheduled stepping is
// cancelled. The simulation does not auto-start; callers follow up with
// Start, or with LoadFromCache when a valid cached layout exists.
func (s *Simulator) SetData(edges []model.Edge) {
	s.mu.Lock()
	s.model = graph.Build(edges)
	s.pinned = make(map[string]bool)
	s.alpha = 1
	s.totalVel = 0
	s.steps = 0
	s.state = StateIdle
	sched := s.sched
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

// Start begins stepping with alpha = 1, releasing any drag pins. No-op
// while already Running.
func (s *Simulator) Start() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	s.alpha = 1
	s.pinned = make(map[string]bool)
	s.beginLocked()
}

// Reheat nudges the layout with alpha = 0.5 and ensures stepping, without
// the full temperature reset Start performs. Pins release even when the
// simulation is already Running.
func (s *Simulator) Reheat() {
	s.mu.Lock()
	s.alpha = reheatAlpha
	s.pinned = make(map[string]bool)
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	s.beginLocked()
}

// beginLocked transitions to Running and launches the scheduler. The lock
// is held on entry and released here.
func (s *Simulator) beginLocked() {
	s.state = StateRunning
	sched := s.sched
	s.mu.Unlock()

	if sched != nil {
		sched.Start(s.Step)
	}
}

// Stop halts stepping without touching positions. Used for the duration of
// a node drag so exactly one writer can move nodes at a time.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.state = StateIdle
	}
	sched := s.sched
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
}

// Step advances the simulation by one iteration and reports whether it
// wants another. Safe to call from a host loop regardless of state: a
// non-Running simulator declines without touching anything.
func (s *Simulator) Step() bool {
	cont := s.step()
	s.notify()
	return cont
}

func (s *Simulator) step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return false
	}

	nodes := s.model.Nodes
	ids := s.model.IDs()
	alpha := s.alpha

	// Pairwise repulsion. Hubs (high connection counts) push harder so
	// dense clusters spread.
	for i := 0; i < len(ids); i++ {
		a := nodes[ids[i]]
		for j := i + 1; j < len(ids); j++ {
			b := nodes[ids[j]]
			dx := a.X - b.X
			dy := a.Y - b.Y
			dist := math.Hypot(dx, dy)
			if dist < s.cfg.MinDistance {
				dist = s.cfg.MinDistance
			}
			cf := 0.5 * math.Sqrt(float64(a.Connections)*float64(b.Connections))
			f := s.cfg.Repulsion * alpha * (1 + cf) / (dist * dist)
			ux := dx / dist
			uy := dy / dist
			if !s.pinned[a.ID] {
				a.VX += ux * f
				a.VY += uy * f
			}
			if !s.pinned[b.ID] {
				b.VX -= ux * f
				b.VY -= uy * f
			}
		}
	}

	// Center gravity, doubled for isolated nodes.
	for _, id := range ids {
		n := nodes[id]
		if s.pinned[id] {
			continue
		}
		iso := 1.0
		if n.Connections < 2 {
			iso = 2
		}
		n.VX -= s.cfg.CenterForce * alpha * iso * n.X
		n.VY -= s.cfg.CenterForce * alpha * iso * n.Y
	}

	// Spring attraction per edge. Edges whose endpoints did not resolve
	// into the node set contribute nothing.
	for _, e := range s.model.Edges {
		src, ok := nodes[e.Source]
		if !ok {
			continue
		}
		tgt, ok := nodes[e.Target]
		if !ok {
			continue
		}
		dx := tgt.X - src.X
		dy := tgt.Y - src.Y
		dist := math.Hypot(dx, dy)
		if dist < s.cfg.MinDistance {
			dist = s.cfg.MinDistance
		}
		ideal := s.cfg.BaseIdealDistance + 0.02*float64(src.Connections+tgt.Connections)
		f := (dist - ideal) * s.cfg.Attraction * alpha
		ux := dx / dist
		uy := dy / dist
		half := f / 2
		if !s.pinned[src.ID] {
			src.VX += ux * half
			src.VY += uy * half
		}
		if !s.pinned[tgt.ID] {
			tgt.VX -= ux * half
			tgt.VY -= uy * half
		}
	}

	// Damped integration.
	total := 0.0
	for _, id := range ids {
		n := nodes[id]
		if s.pinned[id] {
			continue
		}
		n.VX *= s.cfg.Damping
		n.VY *= s.cfg.Damping
		n.X += n.VX
		n.Y += n.VY
		total += math.Abs(n.VX) + math.Abs(n.VY)
	}
	s.totalVel = total

	// Cooling.
	s.alpha *= s.cfg.Cooling
	s.steps++

	if s.totalVel > s.cfg.VelocityThreshold && s.alpha > s.cfg.AlphaThreshold {
		return true
	}
	s.state = StateSettled
	return false
}

func (s *Simulator) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// AddStepListener registers fn to run after every Step, outside the
// simulator lock. Renderers hook redraws here.
func (s *Simulator) AddStepListener(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// MoveNode pins id at (x, y) with zero velocity. The node stays pinned
// against simulation movement until Start or Reheat. Unknown ids are
// ignored.
func (s *Simulator) MoveNode(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.model.Nodes[id]
	if !ok {
		return
	}
	n.X = x
	n.Y = y
	n.VX = 0
	n.VY = 0
	s.pinned[id] = true
}

// IsSettled reports whether total kinetic energy is below the settled
// threshold. A freshly loaded or restored layout reads as settled.
func (s *Simulator) IsSettled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalVel < s.cfg.SettledThreshold
}

// ExportPositions snapshots current node coordinates for caching.
func (s *Simulator) ExportPositions() []graph.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Positions()
}

// LoadFromCache applies cached positions onto the current node set by id.
// When fewer than 80% of current nodes are covered the restore is rejected
// and nothing changes; on success velocities zero out and the simulation
// reads as Settled with no re-run needed.
func (s *Simulator) LoadFromCache(positions []graph.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	covered := 0
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if _, ok := s.model.Nodes[p.ID]; ok {
			covered++
		}
	}
	if float64(covered) < cacheCoverage*float64(s.model.Len()) {
		return false
	}

	for _, p := range positions {
		n, ok := s.model.Nodes[p.ID]
		if !ok {
			continue
		}
		n.X = p.X
		n.Y = p.Y
		n.VX = 0
		n.VY = 0
	}
	s.totalVel = 0
	s.state = StateSettled
	return true
}

// Model exposes the live node model for rendering and hit-testing. Hosts
// driving Step from their own loop may read it freely between steps; with
// an IntervalScheduler installed, use ExportPositions for a consistent
// snapshot instead.
func (s *Simulator) Model() *graph.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Edges returns the retained edge list.
func (s *Simulator) Edges() []model.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Edges
}

// State returns the lifecycle state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Alpha returns the current temperature.
func (s *Simulator) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// TotalVelocity returns the last step's summed |vx|+|vy|.
func (s *Simulator) TotalVelocity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalVel
}

// StepCount returns steps taken since the last SetData.
func (s *Simulator) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// Pinned reports whether id is currently pinned by a drag.
func (s *Simulator) Pinned(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned[id]
}
