package springbone

import "go.uber.org/zap"

// SolverBuilderOption is a functional option for configuring a Solver via NewSolver.
type SolverBuilderOption func(*solver)

// WithParams is an option builder that replaces the default simulation
// parameters. Out-of-range fields are clamped to usable values.
//
// Parameters:
//   - p: the simulation parameters
//
// Returns:
//   - SolverBuilderOption: a function that applies the parameters to a solver
func WithParams(p Params) SolverBuilderOption {
	return func(s *solver) {
		s.params = p
	}
}

// WithLogger is an option builder that sets the structured logger used for
// build diagnostics and runtime warnings. Defaults to a no-op logger.
//
// Parameters:
//   - log: the zap logger
//
// Returns:
//   - SolverBuilderOption: a function that applies the logger to a solver
func WithLogger(log *zap.Logger) SolverBuilderOption {
	return func(s *solver) {
		if log != nil {
			s.log = log
		}
	}
}

// WithChainWorkers is an option builder that sets the worker count of the
// chain-solve pool. Defaults to NumCPU-1.
//
// Parameters:
//   - workers: the number of pool workers (minimum 1)
//
// Returns:
//   - SolverBuilderOption: a function that applies the worker count to a solver
func WithChainWorkers(workers int) SolverBuilderOption {
	return func(s *solver) {
		s.chainWorkers = max(workers, 1)
	}
}
