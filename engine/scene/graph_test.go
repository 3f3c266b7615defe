package scene

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

func testNodes() []model.Node {
	root := model.IdentityTransform()
	root.Translation = [3]float32{0, 1, 0}

	child := model.IdentityTransform()
	child.Translation = [3]float32{0.5, 0, 0}

	tip := model.IdentityTransform()
	tip.Translation = [3]float32{0.5, 0, 0}

	return []model.Node{
		{Name: "root", ParentIndex: -1, Local: root},
		{Name: "child", ParentIndex: 0, Local: child},
		{Name: "tip", ParentIndex: 1, Local: tip},
	}
}

func approxVec3(t *testing.T, got, want [3]float32, tol float32, label string) {
	t.Helper()
	if common.Vec3Distance(got, want) > tol {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
}

func TestNewGraphComputesWorldTransforms(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	if g.Count() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.Count())
	}
	approxVec3(t, g.WorldPosition(0), [3]float32{0, 1, 0}, 1e-6, "root")
	approxVec3(t, g.WorldPosition(1), [3]float32{0.5, 1, 0}, 1e-6, "child")
	approxVec3(t, g.WorldPosition(2), [3]float32{1, 1, 0}, 1e-6, "tip")
}

func TestNewGraphRejectsForwardParentReference(t *testing.T) {
	nodes := testNodes()
	nodes[1].ParentIndex = 2
	if _, err := NewGraph(nodes); err == nil {
		t.Fatal("expected error for parent at a later index")
	}

	nodes = testNodes()
	nodes[0].ParentIndex = 0
	if _, err := NewGraph(nodes); err == nil {
		t.Fatal("expected error for self-parented node")
	}
}

func TestNewGraphRejectsInvalidParentIndex(t *testing.T) {
	nodes := testNodes()
	nodes[2].ParentIndex = -5
	if _, err := NewGraph(nodes); err == nil {
		t.Fatal("expected error for parent index below -1")
	}
}

func TestRotationPropagatesToDescendants(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	// Rotate the root 90 degrees about Z; descendants along +X swing to +Y.
	half := float32(math.Pi / 4)
	sin, cos := float32(math.Sin(float64(half))), float32(math.Cos(float64(half)))
	g.SetLocalRotation(0, [4]float32{0, 0, sin, cos})
	g.UpdateWorldTransforms()

	approxVec3(t, g.WorldPosition(0), [3]float32{0, 1, 0}, 1e-5, "root")
	approxVec3(t, g.WorldPosition(1), [3]float32{0, 1.5, 0}, 1e-5, "child")
	approxVec3(t, g.WorldPosition(2), [3]float32{0, 2, 0}, 1e-5, "tip")
}

func TestScalePropagatesToDescendants(t *testing.T) {
	nodes := testNodes()
	nodes[0].Local.Scale = [3]float32{2, 2, 2}
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	approxVec3(t, g.WorldPosition(1), [3]float32{1, 1, 0}, 1e-5, "child")
	approxVec3(t, g.WorldPosition(2), [3]float32{2, 1, 0}, 1e-5, "tip")
}

func TestSetLocalTranslationMarksDirty(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	g.SetLocalTranslation(0, [3]float32{3, 0, 0})

	// World matrices refresh only on the explicit update call.
	approxVec3(t, g.WorldPosition(0), [3]float32{0, 1, 0}, 1e-6, "stale root")
	g.UpdateWorldTransforms()
	approxVec3(t, g.WorldPosition(0), [3]float32{3, 0, 0}, 1e-6, "updated root")
	approxVec3(t, g.WorldPosition(2), [3]float32{4, 0, 0}, 1e-6, "updated tip")
}

func TestSetLocalOutOfRangeIsIgnored(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	g.SetLocalTranslation(99, [3]float32{1, 1, 1})
	g.SetLocalRotation(-1, [4]float32{0, 0, 0, 1})
	g.SetLocal(99, model.IdentityTransform())
	g.UpdateWorldTransforms()

	approxVec3(t, g.WorldPosition(0), [3]float32{0, 1, 0}, 1e-6, "root unchanged")
}

func TestNameLookups(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	if idx := g.Index("child"); idx != 1 {
		t.Fatalf("Index(child) = %d", idx)
	}
	if idx := g.Index("missing"); idx != -1 {
		t.Fatalf("Index(missing) = %d", idx)
	}
	if name := g.Name(2); name != "tip" {
		t.Fatalf("Name(2) = %q", name)
	}
	if name := g.Name(99); name != "" {
		t.Fatalf("Name(99) = %q", name)
	}
	if p := g.ParentIndex(2); p != 1 {
		t.Fatalf("ParentIndex(2) = %d", p)
	}
	if p := g.ParentIndex(0); p != -1 {
		t.Fatalf("ParentIndex(0) = %d", p)
	}
}

func TestDuplicateNamesResolveToFirst(t *testing.T) {
	nodes := testNodes()
	nodes[2].Name = "child"
	g, err := NewGraph(nodes)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	if idx := g.Index("child"); idx != 1 {
		t.Fatalf("duplicate name should resolve to the first node, got %d", idx)
	}
}

func TestWorldMatrixCarriesRotation(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	half := float32(math.Pi / 4)
	sin, cos := float32(math.Sin(float64(half))), float32(math.Cos(float64(half)))
	g.SetLocalRotation(1, [4]float32{0, 0, sin, cos})
	g.UpdateWorldTransforms()

	rotated := common.TransformDirection(g.WorldMatrix(1), [3]float32{1, 0, 0})
	approxVec3(t, rotated, [3]float32{0, 1, 0}, 1e-5, "rotated basis")
}
