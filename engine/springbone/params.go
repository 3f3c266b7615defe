package springbone

// Defaults for the global simulation parameters. The inner rate and iteration
// count follow the usual XPBD tuning for chain simulation; the step clamp is
// a stability bound, not a physical quantity.
const (
	// DefaultSubstepRate is the fixed inner simulation rate in Hz.
	DefaultSubstepRate = 120.0

	// DefaultConstraintIterations is the number of distance/collision solve
	// passes per substep.
	DefaultConstraintIterations = 4

	// DefaultMaxStep is the maximum displacement one bone may receive in a
	// single substep, in world units. Oversized displacements are rescaled to
	// this bound, never discarded.
	DefaultMaxStep = 2.0

	// DefaultSettleFrames is how many frames after load or reset the solver
	// damps implicit velocities to suppress the initial pop.
	DefaultSettleFrames = 15

	// DefaultMaxSubstepsPerFrame caps the substep count for one frame so a
	// long stall does not spiral the simulation cost.
	DefaultMaxSubstepsPerFrame = 8

	// DefaultInertiaSpeedLow and DefaultInertiaSpeedHigh bound the
	// constraint-correction speed band (world units per second) over which
	// the inertia compensation factor ramps from 0 to 1.
	DefaultInertiaSpeedLow  = 0.5
	DefaultInertiaSpeedHigh = 2.0
)

// Params holds the global simulation parameters shared by every chain of one
// solver. Zero values are not meaningful; start from DefaultParams.
type Params struct {
	// Gravity is the world-space gravity vector. Per-bone gravity direction
	// and power reshape it; only its magnitude feeds the integrator.
	Gravity [3]float32

	// WindDirection is the unit direction of the sinusoidal wind force.
	WindDirection [3]float32

	// WindAmplitude scales the wind force magnitude.
	WindAmplitude float32

	// WindFrequency is the angular frequency of the wind oscillation in
	// radians per second.
	WindFrequency float32

	// WindPhase offsets the wind oscillation in radians.
	WindPhase float32

	// SubstepRate is the fixed inner simulation rate in Hz.
	SubstepRate float32

	// ConstraintIterations is the number of distance/collision passes per
	// substep.
	ConstraintIterations int

	// MaxStep is the per-substep displacement clamp in world units.
	MaxStep float32

	// SettleFrames is the length of the settling countdown started by load
	// and Reset.
	SettleFrames int

	// MaxSubstepsPerFrame caps substeps for one Step call.
	MaxSubstepsPerFrame int

	// InertiaSpeedLow and InertiaSpeedHigh are the constraint-correction
	// speed band for the inertia compensation, in world units per second.
	// Corrections slower than the low bound are treated as normal settling
	// dynamics and pass through to the implicit velocity untouched.
	InertiaSpeedLow  float32
	InertiaSpeedHigh float32
}

// DefaultParams returns the standard simulation parameters: earth gravity,
// no wind, 120 Hz substeps with 4 constraint iterations.
func DefaultParams() Params {
	return Params{
		Gravity:              [3]float32{0, -9.8, 0},
		WindDirection:        [3]float32{1, 0, 0},
		SubstepRate:          DefaultSubstepRate,
		ConstraintIterations: DefaultConstraintIterations,
		MaxStep:              DefaultMaxStep,
		SettleFrames:         DefaultSettleFrames,
		MaxSubstepsPerFrame:  DefaultMaxSubstepsPerFrame,
		InertiaSpeedLow:      DefaultInertiaSpeedLow,
		InertiaSpeedHigh:     DefaultInertiaSpeedHigh,
	}
}

// sanitize clamps Params fields to usable ranges so a partially filled
// struct cannot stall or divide by zero inside the substep loop.
func (p *Params) sanitize() {
	if p.SubstepRate <= 0 {
		p.SubstepRate = DefaultSubstepRate
	}
	if p.ConstraintIterations < 1 {
		p.ConstraintIterations = 1
	}
	if p.MaxStep <= 0 {
		p.MaxStep = DefaultMaxStep
	}
	if p.SettleFrames < 0 {
		p.SettleFrames = 0
	}
	if p.MaxSubstepsPerFrame < 1 {
		p.MaxSubstepsPerFrame = 1
	}
	if p.InertiaSpeedHigh < p.InertiaSpeedLow {
		p.InertiaSpeedHigh = p.InertiaSpeedLow
	}
}
