package avatar

import (
	"github.com/Carmen-Shannon/oxy-avatar/engine/config"
	"github.com/Carmen-Shannon/oxy-avatar/engine/springbone"

	"go.uber.org/zap"
)

// AvatarBuilderOption is a functional option for configuring an Avatar via
// New or Load.
type AvatarBuilderOption func(*avatar)

// WithLogger is an option builder that sets the structured logger shared by
// the avatar's components. A nil logger is ignored.
//
// Parameters:
//   - log: the zap logger instance
//
// Returns:
//   - AvatarBuilderOption: a function that applies the logger option to an avatar
func WithLogger(log *zap.Logger) AvatarBuilderOption {
	return func(a *avatar) {
		if log != nil {
			a.log = log
		}
	}
}

// WithParams is an option builder that sets the solver simulation
// parameters directly.
//
// Parameters:
//   - params: the solver parameters
//
// Returns:
//   - AvatarBuilderOption: a function that applies the params option to an avatar
func WithParams(params springbone.Params) AvatarBuilderOption {
	return func(a *avatar) {
		p := params
		a.params = &p
	}
}

// WithConfig is an option builder that derives the solver parameters and
// worker count from a runtime config. A nil config is ignored.
//
// Parameters:
//   - cfg: the runtime configuration
//
// Returns:
//   - AvatarBuilderOption: a function that applies the config option to an avatar
func WithConfig(cfg *config.Config) AvatarBuilderOption {
	return func(a *avatar) {
		if cfg == nil {
			return
		}
		p := paramsFromConfig(cfg)
		a.params = &p
		a.chainWorkers = cfg.Solver.ChainWorkers
	}
}

// WithChainWorkers is an option builder that sets the worker pool size used
// for the parallel per-chain solve phase.
//
// Parameters:
//   - workers: the worker count (values below 1 are ignored)
//
// Returns:
//   - AvatarBuilderOption: a function that applies the worker option to an avatar
func WithChainWorkers(workers int) AvatarBuilderOption {
	return func(a *avatar) {
		if workers > 0 {
			a.chainWorkers = workers
		}
	}
}
