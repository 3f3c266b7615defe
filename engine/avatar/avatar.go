// package avatar ties one loaded VRM/glTF humanoid together: its scene
// graph, skeleton, spring-bone solver, and skinning palette, with a single
// Update entry point running the strict per-frame order.
package avatar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-avatar/engine/config"
	"github.com/Carmen-Shannon/oxy-avatar/engine/loader"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
	"github.com/Carmen-Shannon/oxy-avatar/engine/skinning"
	"github.com/Carmen-Shannon/oxy-avatar/engine/springbone"

	"go.uber.org/zap"
)

// errNilImport is returned when New receives a nil import.
var errNilImport = errors.New("avatar: imported avatar is nil")

// avatar is the implementation of the Avatar interface.
type avatar struct {
	mu sync.Mutex

	name string

	graph    scene.Graph
	skeleton *model.Skeleton
	solver   springbone.Solver
	palette  skinning.Palette

	log *zap.Logger

	// Builder state consumed during New.
	params       *springbone.Params
	chainWorkers int
}

// Avatar defines the public-facing interface for one simulated humanoid.
//
// The per-frame contract: the caller drives animation by writing node local
// transforms through Graph(), then calls Update(dt) exactly once. Update
// propagates world transforms, refreshes collider and root-bone world
// geometry, steps the physics, writes the solved pose back into the graph,
// and recomputes the skinning palette.
type Avatar interface {
	// Name returns the avatar identifier.
	//
	// Returns:
	//   - string: the avatar name
	Name() string

	// Graph returns the avatar's scene graph. Animation systems write node
	// locals here before Update.
	//
	// Returns:
	//   - scene.Graph: the scene graph
	Graph() scene.Graph

	// Skeleton returns the avatar's bone hierarchy, or nil for unskinned
	// assets.
	//
	// Returns:
	//   - *model.Skeleton: the skeleton or nil
	Skeleton() *model.Skeleton

	// Solver returns the spring-bone solver.
	//
	// Returns:
	//   - springbone.Solver: the solver
	Solver() springbone.Solver

	// Palette returns the skinning palette, or nil for unskinned assets.
	//
	// Returns:
	//   - skinning.Palette: the palette or nil
	Palette() skinning.Palette

	// Update advances the avatar one frame in the strict order:
	// world-transform propagation, collider refresh, physics step, pose
	// write-back, palette update and staging.
	//
	// Parameters:
	//   - dt: the frame delta time in seconds
	Update(dt float32)

	// Reset snaps every spring bone back to bind pose and restarts the
	// settling countdown. Use after teleports or animation hard cuts.
	Reset()

	// ApplyImpulse adds a decaying directional force to the simulation,
	// shared by all bones, for the given duration.
	//
	// Parameters:
	//   - direction: the unit force direction
	//   - strength: the force magnitude
	//   - duration: how long the impulse lasts in seconds
	ApplyImpulse(direction [3]float32, strength, duration float32)
}

var _ Avatar = &avatar{}

// New creates an Avatar from loader output with the provided options applied.
//
// Parameters:
//   - imported: the loaded avatar data
//   - options: a variadic list of AvatarBuilderOption functions to configure the Avatar
//
// Returns:
//   - Avatar: the new avatar
//   - error: error if the graph, solver, or palette cannot be built
func New(imported *model.ImportedAvatar, options ...AvatarBuilderOption) (Avatar, error) {
	if imported == nil {
		return nil, errNilImport
	}

	a := &avatar{
		name:     imported.Name,
		skeleton: imported.Skeleton,
		log:      zap.NewNop(),
	}
	for _, option := range options {
		option(a)
	}

	graph, err := scene.NewGraph(imported.Nodes)
	if err != nil {
		return nil, fmt.Errorf("avatar %q: %w", imported.Name, err)
	}
	graph.UpdateWorldTransforms()
	a.graph = graph

	solverOpts := []springbone.SolverBuilderOption{
		springbone.WithLogger(a.log),
	}
	if a.params != nil {
		solverOpts = append(solverOpts, springbone.WithParams(*a.params))
	}
	if a.chainWorkers > 0 {
		solverOpts = append(solverOpts, springbone.WithChainWorkers(a.chainWorkers))
	}

	solver, err := springbone.NewSolver(graph, imported, solverOpts...)
	if err != nil {
		return nil, fmt.Errorf("avatar %q: %w", imported.Name, err)
	}
	a.solver = solver

	if imported.Skeleton != nil {
		palette, err := skinning.NewPalette(imported.Skeleton, imported.MorphWeights)
		if err != nil {
			return nil, fmt.Errorf("avatar %q: %w", imported.Name, err)
		}
		palette.UpdateFromGraph(graph)
		a.palette = palette
	}

	return a, nil
}

// Load imports an avatar file and builds an Avatar from it.
//
// Parameters:
//   - path: the file path to the .gltf, .glb or .vrm file
//   - options: a variadic list of AvatarBuilderOption functions to configure the Avatar
//
// Returns:
//   - Avatar: the new avatar
//   - error: error if loading or construction fails
func Load(path string, options ...AvatarBuilderOption) (Avatar, error) {
	staged := &avatar{log: zap.NewNop()}
	for _, option := range options {
		option(staged)
	}

	imported, err := loader.NewLoader(loader.WithLoaderLogger(staged.log)).LoadAvatar(path)
	if err != nil {
		return nil, err
	}
	return New(imported, options...)
}

func (a *avatar) Name() string {
	return a.name
}

func (a *avatar) Graph() scene.Graph {
	return a.graph
}

func (a *avatar) Skeleton() *model.Skeleton {
	return a.skeleton
}

func (a *avatar) Solver() springbone.Solver {
	return a.solver
}

func (a *avatar) Palette() skinning.Palette {
	return a.palette
}

func (a *avatar) Update(dt float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Animation already wrote node locals; make world matrices current so
	// the physics reads fresh root and collider transforms.
	a.graph.UpdateWorldTransforms()
	a.solver.Colliders().RefreshWorld(a.graph)

	a.solver.Step(dt)
	a.solver.WritePose()

	if a.palette != nil {
		a.palette.UpdateFromGraph(a.graph)
		a.palette.Flush()
	}
}

func (a *avatar) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.solver.Reset()
	if a.palette != nil {
		a.palette.UpdateFromGraph(a.graph)
	}
}

func (a *avatar) ApplyImpulse(direction [3]float32, strength, duration float32) {
	a.solver.ApplyImpulse(direction, strength, duration)
}

// paramsFromConfig maps the physics section of a Config onto solver Params.
func paramsFromConfig(cfg *config.Config) springbone.Params {
	p := springbone.DefaultParams()
	p.SubstepRate = float32(cfg.Physics.SubstepRate)
	p.ConstraintIterations = cfg.Physics.ConstraintIterations
	p.MaxStep = cfg.Physics.MaxStep
	p.SettleFrames = cfg.Physics.SettleFrames
	p.MaxSubstepsPerFrame = cfg.Physics.MaxSubstepsPerFrame
	p.Gravity = [3]float32{0, -cfg.Physics.Gravity, 0}
	return p
}
