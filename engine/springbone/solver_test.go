package springbone

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"

	"go.uber.org/zap"
)

const frameDt = float32(1.0 / 60.0)

// chainNodes builds a node hierarchy of length n: node 0 parentless at the
// origin, each following node offset from its parent by step.
func chainNodes(n int, step [3]float32) []model.Node {
	nodes := make([]model.Node, n)
	for i := range nodes {
		local := model.IdentityTransform()
		parent := int32(i - 1)
		if i > 0 {
			local.Translation = step
		}
		nodes[i] = model.Node{Name: "joint_" + string(rune('a'+i)), ParentIndex: parent, Local: local}
	}
	return nodes
}

// chainJoints builds an explicit joint list over nodes [0, n).
func chainJoints(n int, stiffness, drag float32) []model.SpringJointSpec {
	joints := make([]model.SpringJointSpec, n)
	for i := range joints {
		joints[i] = model.SpringJointSpec{
			NodeIndex:  int32(i),
			Stiffness:  stiffness,
			Drag:       drag,
			GravityDir: [3]float32{0, -1, 0},
			HitRadius:  0.05,
		}
	}
	return joints
}

func mustGraph(t *testing.T, nodes []model.Node) scene.Graph {
	t.Helper()
	g, err := scene.NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func mustSolver(t *testing.T, graph scene.Graph, avatar *model.ImportedAvatar, options ...SolverBuilderOption) Solver {
	t.Helper()
	s, err := NewSolver(graph, avatar, options...)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return s
}

// noSettle returns params with the settling countdown disabled so tests
// observe dynamics from the first frame.
func noSettle() Params {
	p := DefaultParams()
	p.SettleFrames = 0
	return p
}

func TestStepMaintainsRestLength(t *testing.T) {
	nodes := chainNodes(4, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(4, 0, 0.2)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	for frame := 0; frame < 120; frame++ {
		s.Step(frameDt)

		cs := s.Chains()
		for i, b := range cs.Bones {
			if b.ParentIndex < 0 {
				continue
			}
			got := common.Vec3Distance(cs.Curr[i], cs.Curr[b.ParentIndex])
			if diff := got - b.RestLength; diff > 1e-3 || diff < -1e-3 {
				t.Fatalf("frame %d bone %d: distance %v, want rest length %v", frame, i, got, b.RestLength)
			}
		}
	}
}

func TestStepNeverProducesNaN(t *testing.T) {
	nodes := chainNodes(5, [3]float32{0.3, -0.2, 0.1})
	joints := chainJoints(5, 0.8, 0.05)
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: joints}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	s.SetWind([3]float32{1, 0.5, -0.25}, 500, 40)
	s.ApplyImpulse([3]float32{0, 1, 0}, 1e4, 2)
	s.SetGravity([3]float32{0, -1e3, 0})

	for frame := 0; frame < 240; frame++ {
		s.Step(frameDt)
		cs := s.Chains()
		for i := range cs.Curr {
			if !common.Vec3IsFinite(cs.Curr[i]) || !common.Vec3IsFinite(cs.Prev[i]) {
				t.Fatalf("frame %d bone %d: non-finite position %v", frame, i, cs.Curr[i])
			}
		}
	}
}

func TestStepSkipsInvalidDt(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	before := s.Chains().Curr[1]
	s.Step(0)
	s.Step(-1)
	s.Step(float32(math.NaN()))
	s.Step(float32(math.Inf(1)))
	if got := s.Chains().Curr[1]; got != before {
		t.Fatalf("invalid dt moved bone: %v -> %v", before, got)
	}
}

func TestKinematicRootFollowsGraph(t *testing.T) {
	nodes := chainNodes(3, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(3, 0, 0.1)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	target := [3]float32{0.5, 2, -1}
	graph.SetLocalTranslation(0, target)
	graph.UpdateWorldTransforms()
	s.Step(frameDt)

	root := s.Chains().RootSlots()[0]
	if got := s.Chains().Curr[root]; got != target {
		t.Fatalf("root position %v, want animated position %v", got, target)
	}
}

func TestKinematicRootHoldsLastKnownPosition(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0.1)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	target := [3]float32{0, 3, 0}
	graph.SetLocalTranslation(0, target)
	graph.UpdateWorldTransforms()
	s.Step(frameDt)

	// Sabotage the node reference so the root reads as invalid input.
	s.Chains().Bones[0].NodeIndex = 999
	graph.SetLocalTranslation(0, [3]float32{9, 9, 9})
	graph.UpdateWorldTransforms()
	s.Step(frameDt)

	root := s.Chains().RootSlots()[0]
	if got := s.Chains().Curr[root]; got != target {
		t.Fatalf("root position %v, want held position %v", got, target)
	}
}

func TestFreeFallSag(t *testing.T) {
	// A horizontal chain with no stiffness must sag below its bind height
	// under gravity while the root stays pinned.
	nodes := chainNodes(3, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(3, 0, 0.3)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	prevY := s.Chains().Curr[1][1]
	for frame := 0; frame < 60; frame++ {
		s.Step(frameDt)
		y := s.Chains().Curr[1][1]
		if y > prevY+1e-5 {
			t.Fatalf("frame %d: tip rose from %v to %v during free sag", frame, prevY, y)
		}
		prevY = y
	}
	if prevY > -0.15 {
		t.Fatalf("tip barely sagged: y = %v", prevY)
	}
	if rootY := s.Chains().Curr[0][1]; rootY != 0 {
		t.Fatalf("kinematic root moved: y = %v", rootY)
	}
}

func TestFreeFallSagDeepensAlongChain(t *testing.T) {
	// While a horizontal chain droops, each bone sags further than its
	// parent: the tip hangs lowest, the bone next to the root highest.
	nodes := chainNodes(4, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(4, 0, 0.3)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	for frame := 0; frame < 120; frame++ {
		s.Step(frameDt)
	}

	curr := s.Chains().Curr
	if curr[1][1] <= curr[2][1] || curr[2][1] <= curr[3][1] {
		t.Fatalf("sag should deepen along the chain: y = %v, %v, %v",
			curr[1][1], curr[2][1], curr[3][1])
	}
	if curr[3][1] > -0.6 {
		t.Fatalf("tip barely sagged after two seconds: y = %v", curr[3][1])
	}
}

func TestRestStateIsStable(t *testing.T) {
	// A chain hanging straight along gravity is already at equilibrium; the
	// solver must not drift it.
	nodes := chainNodes(4, [3]float32{0, -0.5, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(4, 0, 0)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	bind := make([][3]float32, len(s.Chains().Curr))
	copy(bind, s.Chains().Curr)

	for frame := 0; frame < 180; frame++ {
		s.Step(frameDt)
	}
	for i := range bind {
		if d := common.Vec3Distance(s.Chains().Curr[i], bind[i]); d > 1e-3 {
			t.Fatalf("bone %d drifted %v from equilibrium", i, d)
		}
	}
}

func TestSphereCollisionKeepsClearance(t *testing.T) {
	// Root at origin, bone swinging on a unit arm, sphere of radius 0.5
	// below the bind position. The bone must come to rest on the sphere
	// surface plus its own hit radius.
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	anchor := model.Node{Name: "sphere_anchor", ParentIndex: -1, Local: model.IdentityTransform()}
	anchor.Local.Translation = [3]float32{1, -1, 0}
	nodes = append(nodes, anchor)

	avatar := &model.ImportedAvatar{
		Nodes: nodes,
		Springs: []model.SpringSpec{{
			Name:                 "test",
			CenterNodeIndex:      -1,
			Joints:               chainJoints(2, 0, 0.1),
			ColliderGroupIndices: []int32{0},
		}},
		ColliderGroups: []model.ColliderGroupSpec{{
			Name: "body",
			Colliders: []model.ColliderSpec{{
				NodeIndex: 2,
				Kind:      model.ColliderShapeSphere,
				Radius:    0.5,
			}},
		}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	center := [3]float32{1, -1, 0}
	clearance := float32(0.5 + 0.05)
	for frame := 0; frame < 240; frame++ {
		s.Step(frameDt)
		if d := common.Vec3Distance(s.Chains().Curr[1], center); d < clearance-1e-3 {
			t.Fatalf("frame %d: bone penetrated sphere, distance %v < %v", frame, d, clearance)
		}
	}
	if d := common.Vec3Distance(s.Chains().Curr[1], center); d > clearance+0.02 {
		t.Fatalf("bone did not come to rest on the sphere: distance %v, want about %v", d, clearance)
	}
}

func TestGroupMaskFiltersColliders(t *testing.T) {
	// A ground plane in group 0. The spring that opts into the group stays
	// above it; an identical spring with no groups falls through.
	build := func(t *testing.T, groups []int32) Solver {
		nodes := chainNodes(2, [3]float32{1, 0, 0})
		anchor := model.Node{Name: "plane_anchor", ParentIndex: -1, Local: model.IdentityTransform()}
		nodes = append(nodes, anchor)

		avatar := &model.ImportedAvatar{
			Nodes: nodes,
			Springs: []model.SpringSpec{{
				Name:                 "test",
				CenterNodeIndex:      -1,
				Joints:               chainJoints(2, 0, 0.3),
				ColliderGroupIndices: groups,
			}},
			ColliderGroups: []model.ColliderGroupSpec{{
				Name: "floor",
				Colliders: []model.ColliderSpec{{
					NodeIndex: 2,
					Kind:      model.ColliderShapePlane,
					Offset:    [3]float32{0, -0.5, 0},
					Normal:    [3]float32{0, 1, 0},
				}},
			}},
		}
		graph := mustGraph(t, nodes)
		return mustSolver(t, graph, avatar, WithParams(noSettle()))
	}

	filtered := build(t, []int32{0})
	for frame := 0; frame < 180; frame++ {
		filtered.Step(frameDt)
		if y := filtered.Chains().Curr[1][1]; y < -0.5+0.05-1e-3 {
			t.Fatalf("frame %d: bone sank below plane clearance: y = %v", frame, y)
		}
	}

	unfiltered := build(t, nil)
	for frame := 0; frame < 180; frame++ {
		unfiltered.Step(frameDt)
	}
	if y := unfiltered.Chains().Curr[1][1]; y > -0.6 {
		t.Fatalf("maskless bone should ignore the plane, y = %v", y)
	}
}

func TestTeleportedRootLeavesTipLagging(t *testing.T) {
	// Lateral jumps are the hard cases: the constraint snap of the first
	// substep must not read back as child velocity and whip the tip past
	// the root on the next one.
	cases := []struct {
		name string
		jump [3]float32
	}{
		{"up", [3]float32{0, 5, 0}},
		{"lateral-z", [3]float32{0, 0, 5}},
		{"lateral-x", [3]float32{5, 0, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nodes := chainNodes(2, [3]float32{1, 0, 0})
			avatar := &model.ImportedAvatar{
				Nodes:   nodes,
				Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
			}
			graph := mustGraph(t, nodes)
			s := mustSolver(t, graph, avatar, WithParams(noSettle()))

			tipBefore := s.Chains().Curr[1]

			graph.SetLocalTranslation(0, tc.jump)
			graph.UpdateWorldTransforms()
			s.Step(frameDt)

			rootMoved := common.Vec3Length(tc.jump)
			tipMoved := common.Vec3Distance(s.Chains().Curr[1], tipBefore)
			if tipMoved >= rootMoved {
				t.Fatalf("tip displacement %v should lag root displacement %v", tipMoved, rootMoved)
			}
			// The distance constraint still holds after the jump.
			if d := common.Vec3Distance(s.Chains().Curr[1], s.Chains().Curr[0]); d-1 > 1e-3 || d-1 < -1e-3 {
				t.Fatalf("rest length broken after teleport: %v", d)
			}
		})
	}
}

func TestSettlingCountdown(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
	}
	p := DefaultParams()
	p.SettleFrames = 3
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(p))

	for i := 0; i < 3; i++ {
		if !s.Settling() {
			t.Fatalf("frame %d: settling ended early", i)
		}
		s.Step(frameDt)
	}
	if s.Settling() {
		t.Fatal("settling countdown should be exhausted")
	}

	s.Reset()
	if !s.Settling() {
		t.Fatal("Reset should restart the settling countdown")
	}
}

func TestApplyImpulsePushesChain(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0.3)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	s.ApplyImpulse([3]float32{0, 0, 1}, 400, 1)
	for frame := 0; frame < 30; frame++ {
		s.Step(frameDt)
	}
	if z := s.Chains().Curr[1][2]; z < 0.05 {
		t.Fatalf("impulse did not deflect the chain: z = %v", z)
	}
}

func TestResetRestoresBindPose(t *testing.T) {
	nodes := chainNodes(3, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(3, 0, 0.1)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	bind := make([][3]float32, len(s.Chains().Curr))
	copy(bind, s.Chains().Curr)

	for frame := 0; frame < 60; frame++ {
		s.Step(frameDt)
	}
	s.Reset()

	for i := range bind {
		if s.Chains().Curr[i] != bind[i] || s.Chains().Prev[i] != bind[i] {
			t.Fatalf("bone %d not at bind pose after Reset: curr %v prev %v want %v",
				i, s.Chains().Curr[i], s.Chains().Prev[i], bind[i])
		}
	}
}

func TestIntegrateClampsSubstepDisplacement(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
	}
	graph := mustGraph(t, nodes)
	cs, err := BuildChains(avatar, graph, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	before := cs.Curr[1]
	env := substepEnv{
		dtSub:      1.0 / 120.0,
		dtSubSq:    1.0 / (120.0 * 120.0),
		gravityMag: 1e9,
		maxStep:    DefaultMaxStep,
	}
	integrateChain(cs, cs.chains[0], &env)

	moved := common.Vec3Distance(cs.Curr[1], before)
	if moved > DefaultMaxStep+1e-3 {
		t.Fatalf("substep displacement %v exceeds clamp %v", moved, float32(DefaultMaxStep))
	}
	if moved < DefaultMaxStep-1e-3 {
		t.Fatalf("extreme force should saturate the clamp, moved %v", moved)
	}
}

func TestIntegrateCancelsRecordedCorrection(t *testing.T) {
	build := func(t *testing.T) *ChainSet {
		t.Helper()
		nodes := chainNodes(2, [3]float32{1, 0, 0})
		avatar := &model.ImportedAvatar{
			Nodes:   nodes,
			Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
		}
		graph := mustGraph(t, nodes)
		cs, err := BuildChains(avatar, graph, zap.NewNop())
		if err != nil {
			t.Fatalf("BuildChains: %v", err)
		}
		return cs
	}
	env := substepEnv{
		dtSub:       1.0 / 120.0,
		dtSubSq:     1.0 / (120.0 * 120.0),
		maxStep:     100,
		inertiaLow:  DefaultInertiaSpeedLow / 120.0,
		inertiaHigh: DefaultInertiaSpeedHigh / 120.0,
	}

	// A large recorded correction is a constraint snap, not real velocity;
	// the next integration must not carry it forward.
	cs := build(t)
	cs.Prev[1] = [3]float32{1, 0, 0}
	cs.Curr[1] = [3]float32{1, 0, 4}
	cs.corr[1] = [3]float32{0, 0, 4}
	integrateChain(cs, cs.chains[0], &env)
	if moved := common.Vec3Distance(cs.Curr[1], [3]float32{1, 0, 4}); moved > 1e-3 {
		t.Fatalf("compensated bone should hold position, moved %v", moved)
	}

	// A downward correction is exempt so landings keep their momentum.
	cs = build(t)
	cs.Prev[1] = [3]float32{1, 0, 0}
	cs.Curr[1] = [3]float32{1, -4, 0}
	cs.corr[1] = [3]float32{0, -4, 0}
	integrateChain(cs, cs.chains[0], &env)
	if y := cs.Curr[1][1]; y > -7.9 {
		t.Fatalf("downward velocity should survive compensation, y = %v", y)
	}

	// Corrections inside normal settling dynamics fall below the band and
	// pass through untouched.
	cs = build(t)
	cs.Prev[1] = [3]float32{1, 0, 0}
	cs.Curr[1] = [3]float32{1, 0, 0.002}
	cs.corr[1] = [3]float32{0, 0, 0.002}
	integrateChain(cs, cs.chains[0], &env)
	if z := cs.Curr[1][2]; z < 0.0039 {
		t.Fatalf("small correction should not be damped, z = %v", z)
	}
}

func TestSubstepCountIsCapped(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	// A pathological 10-second frame must neither stall nor blow up.
	s.Step(10)
	cs := s.Chains()
	for i := range cs.Curr {
		if !common.Vec3IsFinite(cs.Curr[i]) {
			t.Fatalf("bone %d non-finite after long frame", i)
		}
	}
	if d := common.Vec3Distance(cs.Curr[1], cs.Curr[0]); d-1 > 1e-3 || d-1 < -1e-3 {
		t.Fatalf("rest length broken after long frame: %v", d)
	}
}
