package layout

// Config holds the physics constants for the force simulation. Zero fields
// are filled from DefaultConfig, so callers can override selectively.
//
// All force magnitudes are additionally scaled by the simulation's alpha,
// the decaying temperature that guarantees convergence.
type Config struct {
	// Repulsion scales the pairwise inverse-square push between nodes.
	Repulsion float64 `yaml:"repulsion"`

	// CenterForce scales the pull toward the origin. Nodes with fewer than
	// two connections feel it doubled so they cannot drift off-surface.
	CenterForce float64 `yaml:"center_force"`

	// Attraction is the spring stiffness applied per edge.
	Attraction float64 `yaml:"attraction"`

	// BaseIdealDistance is the spring rest length before the per-endpoint
	// connection bonus (0.02 per connection) is added.
	BaseIdealDistance float64 `yaml:"ideal_distance"`

	// Damping multiplies velocities every step before integration.
	Damping float64 `yaml:"damping"`

	// Cooling multiplies alpha every step.
	Cooling float64 `yaml:"cooling"`

	// MinDistance floors pair distances to keep the inverse-square term
	// finite when two nodes coincide.
	MinDistance float64 `yaml:"-"`

	// VelocityThreshold and AlphaThreshold bound the step loop: stepping
	// continues only while total velocity and alpha both exceed them.
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	AlphaThreshold    float64 `yaml:"alpha_threshold"`

	// SettledThreshold is the total-velocity level below which the layout
	// counts as settled and is worth persisting.
	SettledThreshold float64 `yaml:"settled_threshold"`
}

// DefaultConfig returns the tuned constants for interactive graphs of a few
// hundred nodes, in world units where the initial placement circle has
// radius 1.
func DefaultConfig() Config {
	return Config{
		Repulsion:         0.00015,
		CenterForce:       0.01,
		Attraction:        0.05,
		BaseIdealDistance: 0.3,
		Damping:           0.88,
		Cooling:           0.995,
		MinDistance:       1e-4,
		VelocityThreshold: 0.001,
		AlphaThreshold:    0.001,
		SettledThreshold:  0.005,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Repulsion == 0 {
		c.Repulsion = def.Repulsion
	}
	if c.CenterForce == 0 {
		c.CenterForce = def.CenterForce
	}
	if c.Attraction == 0 {
		c.Attraction = def.Attraction
	}
	if c.BaseIdealDistance == 0 {
		c.BaseIdealDistance = def.BaseIdealDistance
	}
	if c.Damping == 0 {
		c.Damping = def.Damping
	}
	if c.Cooling == 0 {
		c.Cooling = def.Cooling
	}
	if c.MinDistance == 0 {
		c.MinDistance = def.MinDistance
	}
	if c.VelocityThreshold == 0 {
		c.VelocityThreshold = def.VelocityThreshold
	}
	if c.AlphaThreshold == 0 {
		c.AlphaThreshold = def.AlphaThreshold
	}
	if c.SettledThreshold == 0 {
		c.SettledThreshold = def.SettledThreshold
	}
	return c
}
