package springbone

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

func TestWritePoseMatchesSolvedPositions(t *testing.T) {
	// After a sag, the graph's node positions must land on the solved bone
	// positions: each joint node at rest length from its parent along the
	// solved direction.
	nodes := chainNodes(3, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(3, 0, 0.3)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	for frame := 0; frame < 90; frame++ {
		s.Step(frameDt)
	}
	s.WritePose()

	cs := s.Chains()
	for i := int32(0); i < 3; i++ {
		got := graph.WorldPosition(i)
		want := cs.Curr[i]
		if d := common.Vec3Distance(got, want); d > 1e-3 {
			t.Fatalf("node %d world position %v, want solved %v (off by %v)", i, got, want, d)
		}
	}
}

func TestWritePoseKeepsRootTranslation(t *testing.T) {
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0.2)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	target := [3]float32{0, 1.5, 0.5}
	graph.SetLocalTranslation(0, target)
	graph.UpdateWorldTransforms()
	s.Step(frameDt)
	s.WritePose()

	if got := graph.WorldPosition(0); common.Vec3Distance(got, target) > 1e-5 {
		t.Fatalf("root world position %v, want animated %v", got, target)
	}
}

func TestWritePoseRotationIsShortestArc(t *testing.T) {
	// Displace the tip by hand and verify the written local rotation maps
	// the bind direction onto the displaced direction.
	nodes := chainNodes(2, [3]float32{1, 0, 0})
	avatar := &model.ImportedAvatar{
		Nodes:   nodes,
		Springs: []model.SpringSpec{{Name: "test", CenterNodeIndex: -1, Joints: chainJoints(2, 0, 0)}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	dir := common.Vec3Normalize([3]float32{1, -1, 0}, downDir)
	s.Chains().Curr[1] = common.Vec3Scale(dir, 1)
	s.WritePose()

	rot := graph.Local(0).Rotation
	got := common.QuatRotate(rot, [3]float32{1, 0, 0})
	if common.Vec3Distance(got, dir) > 1e-4 {
		t.Fatalf("rotated bind dir = %v, want solved dir %v", got, dir)
	}
}

func TestWritePoseSkipsVirtualTailNodes(t *testing.T) {
	// A VRM 0.x leaf gets a virtual tail bone; writing the pose must rotate
	// the leaf's node from the tail but never index the graph with the
	// tail's synthetic -1 node.
	nodes := chainNodes(3, [3]float32{0, -0.5, 0})
	avatar := &model.ImportedAvatar{
		Nodes: nodes,
		Springs: []model.SpringSpec{{
			Name:            "tail",
			CenterNodeIndex: -1,
			Expand:          true,
			Joints: []model.SpringJointSpec{{
				NodeIndex:  0,
				Drag:       0.2,
				GravityDir: [3]float32{0, -1, 0},
			}},
		}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	if got := s.Chains().BoneCount(); got != 4 {
		t.Fatalf("bone count = %d, want 4 (3 joints + virtual tail)", got)
	}

	for frame := 0; frame < 30; frame++ {
		s.Step(frameDt)
		s.WritePose()
	}

	for i := int32(0); i < 3; i++ {
		m := graph.WorldMatrix(i)
		for _, v := range m {
			if v != v {
				t.Fatalf("node %d world matrix has NaN", i)
			}
		}
	}
}

func TestWritePoseBranchUsesFirstChild(t *testing.T) {
	// A branching joint has two children; the written rotation must follow
	// the first child's solved direction, leaving the graph consistent.
	nodes := branchedNodes()
	avatar := &model.ImportedAvatar{
		Nodes: nodes,
		Springs: []model.SpringSpec{{
			Name:            "branch",
			CenterNodeIndex: -1,
			Expand:          true,
			Joints: []model.SpringJointSpec{{
				NodeIndex:  0,
				Drag:       0.3,
				GravityDir: [3]float32{0, -1, 0},
			}},
		}},
	}
	graph := mustGraph(t, nodes)
	s := mustSolver(t, graph, avatar, WithParams(noSettle()))

	for frame := 0; frame < 60; frame++ {
		s.Step(frameDt)
		s.WritePose()
	}

	// First child of the root bone is node 1; its graph position must track
	// its solved position. The sibling branch (node 3) inherits whatever
	// rotation the first child produced, so it is only required to stay
	// finite and at its local distance from the root.
	cs := s.Chains()
	if d := common.Vec3Distance(graph.WorldPosition(1), cs.Curr[1]); d > 1e-3 {
		t.Fatalf("first child off its solved position by %v", d)
	}
	want := common.Vec3Length([3]float32{0.3, 0, 0})
	if d := common.Vec3Distance(graph.WorldPosition(3), graph.WorldPosition(0)); d < want-1e-3 || d > want+1e-3 {
		t.Fatalf("sibling branch distance = %v, want local %v", d, want)
	}
}
