package springbone

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
	"go.uber.org/zap"
)

// solver is the implementation of the Solver interface.
type solver struct {
	mu sync.Mutex

	graph     scene.Graph
	chains    *ChainSet
	colliders *ColliderRegistry
	params    Params
	log       *zap.Logger

	chainWorkers int
	pool         worker.DynamicWorkerPool

	writer *poseWriter

	// simTime accumulates simulated seconds for the wind phase.
	simTime float64

	// settleRemaining is the settling countdown; while positive, implicit
	// velocities are zeroed each frame so a freshly loaded or reset model
	// eases in without a pop.
	settleRemaining int

	// Active external impulse, fed into the wind term while it lasts.
	impulseDir       [3]float32
	impulseStrength  float32
	impulseRemaining float32

	colliderScratch []Collider
}

// Solver drives the spring-bone simulation for one avatar: fixed-substep
// XPBD over the avatar's chains, collision against the registry, and a
// write-back of the solved pose into the scene graph. One frame is
// Step(dt) followed by WritePose, in that order.
type Solver interface {
	// Step advances the simulation by dt seconds: refreshes kinematic roots
	// from the graph, then runs the fixed-rate substep loop (predict,
	// iterated distance constraint and collision) over every chain. Chains
	// solve in parallel on the worker pool; substeps are strictly sequential.
	//
	// Parameters:
	//   - dt: elapsed frame time in seconds (non-positive frames are skipped)
	Step(dt float32)

	// WritePose converts the solved bone positions into node rotations (and
	// root positions), writes them into the scene graph, and propagates
	// world transforms. Call once per frame after Step.
	WritePose()

	// Reset reinitializes every chain to bind pose, clears any impulse, and
	// restarts the settling countdown.
	Reset()

	// ApplyImpulse injects a temporary directional force, added to the wind
	// term for the given duration. A second call replaces the active impulse.
	//
	// Parameters:
	//   - direction: force direction (normalized internally)
	//   - strength: force magnitude in world units per second squared
	//   - duration: seconds the impulse stays active
	ApplyImpulse(direction [3]float32, strength, duration float32)

	// SetWind replaces the sinusoidal wind parameters.
	//
	// Parameters:
	//   - direction: wind direction (normalized internally)
	//   - amplitude: force magnitude scale
	//   - frequency: oscillation angular frequency in radians per second
	SetWind(direction [3]float32, amplitude, frequency float32)

	// SetGravity replaces the global gravity vector.
	//
	// Parameters:
	//   - gravity: world-space gravity vector
	SetGravity(gravity [3]float32)

	// Settling reports whether the post-load/reset settling countdown is
	// still active.
	//
	// Returns:
	//   - bool: true while settling frames remain
	Settling() bool

	// Chains returns the solver's chain set. The position buffers are owned
	// by the solver during Step; read them between frames only.
	//
	// Returns:
	//   - *ChainSet: the flat bone arena
	Chains() *ChainSet

	// Colliders returns the collider registry the solver resolves against.
	//
	// Returns:
	//   - *ColliderRegistry: the registry
	Colliders() *ColliderRegistry
}

var _ Solver = &solver{}

// NewSolver builds the chains and collider registry of an imported avatar
// and returns a ready Solver. Malformed springs are omitted with logged
// errors; an error is returned only when no chain at all could be built.
//
// Parameters:
//   - graph: the avatar's scene graph, at bind pose
//   - avatar: the imported avatar carrying spring and collider specs
//   - options: optional functional configuration
//
// Returns:
//   - Solver: the constructed solver
//   - error: error when the graph is nil or every spring is malformed
func NewSolver(graph scene.Graph, avatar *model.ImportedAvatar, options ...SolverBuilderOption) (Solver, error) {
	if graph == nil {
		return nil, fmt.Errorf("springbone: nil scene graph")
	}

	s := &solver{
		graph:        graph,
		params:       DefaultParams(),
		log:          zap.NewNop(),
		chainWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	s.params.sanitize()

	chains, err := BuildChains(avatar, graph, s.log)
	if err != nil {
		return nil, fmt.Errorf("springbone: %w", err)
	}
	s.chains = chains
	s.colliders = NewColliderRegistry(avatar.ColliderGroups)
	s.colliders.RefreshWorld(graph)
	s.writer = newPoseWriter(chains.BoneCount())
	s.settleRemaining = s.params.SettleFrames

	// Queue size of 256 covers typical chain counts with headroom; workers
	// are reused across frames.
	s.pool = worker.NewDynamicWorkerPool(s.chainWorkers, 256, 1*time.Second)

	s.log.Info("spring-bone solver ready",
		zap.Int("chains", chains.ChainCount()),
		zap.Int("bones", chains.BoneCount()),
		zap.Int("colliders", s.colliders.Count()))
	return s, nil
}

func (s *solver) Step(dt float32) {
	if dt <= 0 || !float32Finite(dt) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshRoots()
	s.refreshBindTargets()
	s.colliderScratch = s.colliders.Snapshot(s.colliderScratch)

	if s.settleRemaining > 0 {
		// Kill implicit velocities while settling so bind-pose spawn and
		// teleports ease in instead of popping. Recorded corrections are
		// stale for the same reason.
		copy(s.chains.Prev, s.chains.Curr)
		for i := range s.chains.corr {
			s.chains.corr[i] = [3]float32{}
		}
		s.settleRemaining--
	}

	dtSub := 1 / s.params.SubstepRate
	steps := int(math.Ceil(float64(dt / dtSub)))
	if steps < 1 {
		steps = 1
	}
	if steps > s.params.MaxSubstepsPerFrame {
		steps = s.params.MaxSubstepsPerFrame
	}

	env := substepEnv{
		dtSub:       dtSub,
		dtSubSq:     dtSub * dtSub,
		gravityMag:  common.Vec3Length(s.params.Gravity),
		maxStep:     s.params.MaxStep,
		inertiaLow:  s.params.InertiaSpeedLow * dtSub,
		inertiaHigh: s.params.InertiaSpeedHigh * dtSub,
	}

	for i := 0; i < steps; i++ {
		env.windForce = s.externalForce()
		s.substep(&env)
		s.simTime += float64(dtSub)
		if s.impulseRemaining > 0 {
			s.impulseRemaining -= dtSub
		}
	}
}

// substep runs one predict + iterate(distance, collide) pass over every
// chain. Chains share no bone slots, so each runs as one task on the pool
// with a WaitGroup as the per-frame barrier (pool.Wait blocks until workers
// idle-exit, which is unsuitable for frame-rate workloads).
func (s *solver) substep(env *substepEnv) {
	iterations := s.params.ConstraintIterations
	colliders := s.colliderScratch

	var wg sync.WaitGroup
	for ci, span := range s.chains.chains {
		wg.Add(1)
		spanCap := span
		s.pool.SubmitTask(worker.Task{
			ID: ci,
			Do: func() (any, error) {
				defer wg.Done()
				integrateChain(s.chains, spanCap, env)
				// Snapshot the predicted positions so the constraint
				// correction can be recorded for the next substep's
				// inertia compensation.
				copy(s.chains.corr[spanCap.start:spanCap.end], s.chains.Curr[spanCap.start:spanCap.end])
				for it := 0; it < iterations; it++ {
					solveDistanceChain(s.chains, spanCap)
					collideChain(s.chains, spanCap, colliders)
				}
				for i := spanCap.start; i < spanCap.end; i++ {
					s.chains.corr[i] = common.Vec3Sub(s.chains.Curr[i], s.chains.corr[i])
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// refreshRoots copies each chain root's animated world position into the
// bone buffer, keeping the pre-update position as the previous slot so the
// root's own motion reads as implicit velocity. Missing or invalid nodes
// hold the last known position rather than fault.
func (s *solver) refreshRoots() {
	cs := s.chains
	for ci, slot := range cs.roots {
		if node := cs.Bones[slot].NodeIndex; node >= 0 && int(node) < s.graph.Count() {
			cs.lastRootPos[ci] = s.graph.WorldPosition(node)
		}
		cs.Prev[slot] = cs.Curr[slot]
		cs.Curr[slot] = cs.lastRootPos[ci]
	}
}

// refreshBindTargets recomputes each bone's world-space bind direction from
// its parent node's current world rotation. The stiffness term and the
// collapse fallback both read these for the rest of the frame.
func (s *solver) refreshBindTargets() {
	cs := s.chains
	for i := range cs.Bones {
		p := cs.Bones[i].ParentIndex
		if p < 0 {
			continue
		}
		np := cs.Bones[p].NodeIndex
		if np < 0 || int(np) >= s.graph.Count() {
			continue
		}
		dir := common.TransformDirection(s.graph.WorldMatrix(np), cs.Bones[i].BindDir)
		cs.stiffTarget[i] = common.Vec3Normalize(dir, downDir)
	}
}

// externalForce evaluates the sinusoidal wind plus any active impulse for
// the current simulation time.
func (s *solver) externalForce() [3]float32 {
	p := &s.params
	force := [3]float32{}
	if p.WindAmplitude != 0 {
		osc := p.WindAmplitude * float32(math.Sin(float64(p.WindFrequency)*s.simTime+float64(p.WindPhase)))
		force = common.Vec3Scale(p.WindDirection, osc)
	}
	if s.impulseRemaining > 0 {
		force = common.Vec3Add(force, common.Vec3Scale(s.impulseDir, s.impulseStrength))
	}
	return force
}

func (s *solver) WritePose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.write(s.chains, s.graph)
}

func (s *solver) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chains.Reset(s.graph)
	s.settleRemaining = s.params.SettleFrames
	s.impulseRemaining = 0
	s.simTime = 0
	s.log.Debug("spring-bone solver reset to bind pose")
}

func (s *solver) ApplyImpulse(direction [3]float32, strength, duration float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.impulseDir = common.Vec3Normalize(direction, downDir)
	s.impulseStrength = maxf(strength, 0)
	s.impulseRemaining = maxf(duration, 0)
}

func (s *solver) SetWind(direction [3]float32, amplitude, frequency float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params.WindDirection = common.Vec3Normalize(direction, [3]float32{1, 0, 0})
	s.params.WindAmplitude = amplitude
	s.params.WindFrequency = frequency
}

func (s *solver) SetGravity(gravity [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Gravity = gravity
}

func (s *solver) Settling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleRemaining > 0
}

func (s *solver) Chains() *ChainSet {
	return s.chains
}

func (s *solver) Colliders() *ColliderRegistry {
	return s.colliders
}

func float32Finite(f float32) bool {
	f64 := float64(f)
	return !math.IsNaN(f64) && !math.IsInf(f64, 0)
}
