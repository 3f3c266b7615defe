// Package config handles runtime configuration loading and management.
package config

// Config holds all runtime settings.
type Config struct {
	Physics PhysicsConfig `yaml:"physics"`
	Solver  SolverConfig  `yaml:"solver"`
	Logging LoggingConfig `yaml:"logging"`
}

// PhysicsConfig holds the spring-bone simulation tuning values.
type PhysicsConfig struct {
	// SubstepRate is the inner simulation rate in Hz.
	SubstepRate float64 `yaml:"substep_rate"`

	// ConstraintIterations is the constraint passes per substep.
	ConstraintIterations int `yaml:"constraint_iterations"`

	// MaxStep is the per-substep displacement clamp in world units.
	MaxStep float32 `yaml:"max_step"`

	// SettleFrames is the number of frames bones are pinned after a reset.
	SettleFrames int `yaml:"settle_frames"`

	// MaxSubstepsPerFrame bounds the substep count for long frames.
	MaxSubstepsPerFrame int `yaml:"max_substeps_per_frame"`

	// Gravity is the world gravity magnitude in units per second squared.
	Gravity float32 `yaml:"gravity"`
}

// SolverConfig holds the parallel solve settings.
type SolverConfig struct {
	// ChainWorkers is the worker pool size for the per-chain solve phase.
	// Zero selects a size based on the CPU count.
	ChainWorkers int `yaml:"chain_workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{
			SubstepRate:          120,
			ConstraintIterations: 4,
			MaxStep:              2.0,
			SettleFrames:         15,
			MaxSubstepsPerFrame:  8,
			Gravity:              9.8,
		},
		Solver: SolverConfig{
			ChainWorkers: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
