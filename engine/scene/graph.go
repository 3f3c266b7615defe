package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// graph is the implementation of the Graph interface.
type graph struct {
	names    []string
	parents  []int32
	locals   []model.Transform
	worlds   []float32 // flat, 16 floats per node, column-major
	dirty    bool
	scratch  [16]float32
	nameToID map[string]int32
}

// Graph is a flat, index-addressed transform hierarchy. Nodes are stored in
// parent-before-child order so world transforms resolve in a single forward
// pass; indices are stable for the lifetime of the graph. This is the
// structure the spring-bone writer writes rotations into and the collider
// registry reads world transforms from each frame.
type Graph interface {
	// Count returns the number of nodes in the graph.
	//
	// Returns:
	//   - int: the node count
	Count() int

	// Name returns the name of the node at index, or "" if out of range.
	//
	// Parameters:
	//   - index: the node index
	//
	// Returns:
	//   - string: the node name
	Name(index int32) string

	// Index returns the index of the first node with the given name, or -1.
	//
	// Parameters:
	//   - name: the node name to look up
	//
	// Returns:
	//   - int32: the node index or -1
	Index(name string) int32

	// ParentIndex returns the parent of the node at index (-1 for roots).
	//
	// Parameters:
	//   - index: the node index
	//
	// Returns:
	//   - int32: the parent index or -1
	ParentIndex(index int32) int32

	// Local returns the node's local transform.
	//
	// Parameters:
	//   - index: the node index
	//
	// Returns:
	//   - model.Transform: the local transform
	Local(index int32) model.Transform

	// SetLocal replaces the node's local transform and marks the graph dirty.
	//
	// Parameters:
	//   - index: the node index
	//   - local: the new local transform
	SetLocal(index int32, local model.Transform)

	// SetLocalRotation replaces only the node's local rotation quaternion and
	// marks the graph dirty. This is the write path used by the spring-bone
	// pose writer.
	//
	// Parameters:
	//   - index: the node index
	//   - rotation: the new local rotation (x, y, z, w)
	SetLocalRotation(index int32, rotation [4]float32)

	// SetLocalTranslation replaces only the node's local translation and
	// marks the graph dirty.
	//
	// Parameters:
	//   - index: the node index
	//   - translation: the new local translation
	SetLocalTranslation(index int32, translation [3]float32)

	// UpdateWorldTransforms recomputes every node's world matrix in one
	// parent-before-child pass. No-op when nothing changed since the last call.
	UpdateWorldTransforms()

	// WorldMatrix returns the node's current world matrix as a 16-element
	// column-major slice. The slice aliases internal storage; callers must
	// not retain or mutate it across UpdateWorldTransforms calls.
	//
	// Parameters:
	//   - index: the node index
	//
	// Returns:
	//   - []float32: the world matrix (16 elements)
	WorldMatrix(index int32) []float32

	// WorldPosition returns the node's current world-space position.
	//
	// Parameters:
	//   - index: the node index
	//
	// Returns:
	//   - [3]float32: the world position
	WorldPosition(index int32) [3]float32
}

var _ Graph = &graph{}

// NewGraph builds a Graph from imported nodes. The input must be ordered
// parent-before-child (the loader guarantees this); an out-of-order or
// out-of-range parent reference is a malformed hierarchy and is rejected.
//
// Parameters:
//   - nodes: the imported node list in parent-before-child order
//
// Returns:
//   - Graph: the constructed graph
//   - error: error if a parent reference is invalid
func NewGraph(nodes []model.Node) (Graph, error) {
	g := &graph{
		names:    make([]string, len(nodes)),
		parents:  make([]int32, len(nodes)),
		locals:   make([]model.Transform, len(nodes)),
		worlds:   make([]float32, len(nodes)*16),
		nameToID: make(map[string]int32, len(nodes)),
		dirty:    true,
	}

	for i, n := range nodes {
		if n.ParentIndex >= int32(i) {
			return nil, fmt.Errorf("node %d (%q): parent index %d is not earlier in the hierarchy", i, n.Name, n.ParentIndex)
		}
		if n.ParentIndex < -1 {
			return nil, fmt.Errorf("node %d (%q): invalid parent index %d", i, n.Name, n.ParentIndex)
		}
		g.names[i] = n.Name
		g.parents[i] = n.ParentIndex
		g.locals[i] = n.Local
		if _, exists := g.nameToID[n.Name]; !exists && n.Name != "" {
			g.nameToID[n.Name] = int32(i)
		}
	}

	g.UpdateWorldTransforms()
	return g, nil
}

func (g *graph) Count() int {
	return len(g.parents)
}

func (g *graph) Name(index int32) string {
	if index < 0 || int(index) >= len(g.names) {
		return ""
	}
	return g.names[index]
}

func (g *graph) Index(name string) int32 {
	if id, ok := g.nameToID[name]; ok {
		return id
	}
	return -1
}

func (g *graph) ParentIndex(index int32) int32 {
	if index < 0 || int(index) >= len(g.parents) {
		return -1
	}
	return g.parents[index]
}

func (g *graph) Local(index int32) model.Transform {
	return g.locals[index]
}

func (g *graph) SetLocal(index int32, local model.Transform) {
	if index < 0 || int(index) >= len(g.locals) {
		return
	}
	g.locals[index] = local
	g.dirty = true
}

func (g *graph) SetLocalRotation(index int32, rotation [4]float32) {
	if index < 0 || int(index) >= len(g.locals) {
		return
	}
	g.locals[index].Rotation = rotation
	g.dirty = true
}

func (g *graph) SetLocalTranslation(index int32, translation [3]float32) {
	if index < 0 || int(index) >= len(g.locals) {
		return
	}
	g.locals[index].Translation = translation
	g.dirty = true
}

func (g *graph) UpdateWorldTransforms() {
	if !g.dirty {
		return
	}

	// Parent-before-child ordering makes this a single forward pass:
	// a parent's world matrix is always final before any child reads it.
	for i := range g.parents {
		local := g.scratch[:]
		common.ComposeTRS(local, g.locals[i].Translation, g.locals[i].Rotation, g.locals[i].Scale)

		world := g.worlds[i*16 : (i+1)*16]
		if p := g.parents[i]; p >= 0 {
			common.Mul4(world, g.worlds[p*16:(p+1)*16], local)
		} else {
			copy(world, local)
		}
	}
	g.dirty = false
}

func (g *graph) WorldMatrix(index int32) []float32 {
	return g.worlds[index*16 : (index+1)*16]
}

func (g *graph) WorldPosition(index int32) [3]float32 {
	m := g.worlds[index*16 : (index+1)*16]
	return [3]float32{m[12], m[13], m[14]}
}
