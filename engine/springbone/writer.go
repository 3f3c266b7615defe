package springbone

import (
	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
)

// poseWriter converts solved world positions back into scene-node rotations.
// It keeps per-bone world-matrix scratch so a chain is written root-to-tip in
// one pass without recomputing the whole graph per joint.
type poseWriter struct {
	// world caches, per bone slot, the world matrix of that bone's node after
	// its rotation has been written this frame.
	world []float32

	// rotated marks bone slots whose node already received a rotation this
	// frame. A branching joint takes its direction from its first child.
	rotated []bool

	inv   [16]float32
	local [16]float32
	ident [16]float32
}

func newPoseWriter(boneCount int) *poseWriter {
	w := &poseWriter{
		world:   make([]float32, boneCount*16),
		rotated: make([]bool, boneCount),
	}
	common.Identity(w.ident[:])
	return w
}

// write converts every chain's solved positions into node rotations (and the
// root node's position) and triggers world-transform propagation. Runs once
// per frame after all substeps.
//
// A joint's rotation is the shortest arc taking its bind direction onto the
// solved direction toward its first child, expressed in the joint's parent
// space. Solved directions are pulled into parent space with matrices
// accumulated down the chain, so each joint sees its ancestors' corrections
// from this same frame.
func (w *poseWriter) write(cs *ChainSet, graph scene.Graph) {
	for i := range w.rotated {
		w.rotated[i] = false
	}

	for _, span := range cs.chains {
		w.writeChain(cs, graph, span)
	}

	graph.UpdateWorldTransforms()
}

func (w *poseWriter) writeChain(cs *ChainSet, graph scene.Graph, span chainSpan) {
	root := span.start
	rootNode := cs.Bones[root].NodeIndex
	if rootNode < 0 || int(rootNode) >= graph.Count() {
		return
	}

	// The root bone is kinematic; its position write-back is an identity
	// round-trip when driven from the graph but keeps externally driven
	// roots consistent.
	base := w.ident[:]
	if npp := graph.ParentIndex(rootNode); npp >= 0 {
		base = graph.WorldMatrix(npp)
	}
	if common.Invert4(w.inv[:], base) {
		graph.SetLocalTranslation(rootNode, common.TransformPoint(w.inv[:], cs.Curr[root]))
	}

	for i := span.start + 1; i < span.end; i++ {
		p := int(cs.Bones[i].ParentIndex)
		if w.rotated[p] {
			continue
		}
		np := cs.Bones[p].NodeIndex
		if np < 0 || int(np) >= graph.Count() {
			continue
		}

		wpp := w.parentSpace(cs, graph, p, np)
		if !common.Invert4(w.inv[:], wpp) {
			continue
		}

		worldDir := common.Vec3Sub(cs.Curr[i], cs.Curr[p])
		localDir := common.Vec3Normalize(common.TransformDirection(w.inv[:], worldDir), cs.Bones[i].BindDir)
		rot := common.QuatFromUnitVectors(cs.Bones[i].BindDir, localDir)

		graph.SetLocalRotation(np, rot)
		w.rotated[p] = true

		// Finalize the parent's node world matrix for its descendants.
		l := graph.Local(np)
		common.ComposeTRS(w.local[:], l.Translation, l.Rotation, l.Scale)
		common.Mul4(w.world[p*16:(p+1)*16], wpp, w.local[:])
	}
}

// parentSpace returns the world matrix of node np's parent, where np is the
// node of bone slot p. For a chain root the graph's frame-start matrices are
// authoritative; deeper joints use the matrices accumulated by this writer,
// composed through any intermediate non-joint nodes between consecutive
// joints.
func (w *poseWriter) parentSpace(cs *ChainSet, graph scene.Graph, p int, np int32) []float32 {
	pp := cs.Bones[p].ParentIndex
	if pp < 0 {
		if npp := graph.ParentIndex(np); npp >= 0 {
			return graph.WorldMatrix(npp)
		}
		return w.ident[:]
	}

	base := w.world[pp*16 : (pp+1)*16]
	ppNode := cs.Bones[pp].NodeIndex

	// Fast path: consecutive joints on directly linked nodes.
	if graph.ParentIndex(np) == ppNode {
		return base
	}

	// Joints may skip nodes; fold the untouched intermediate locals onto the
	// cached ancestor matrix.
	var stack [8]int32
	path := stack[:0]
	for n := graph.ParentIndex(np); n >= 0 && n != ppNode; n = graph.ParentIndex(n) {
		path = append(path, n)
	}
	out := w.world[p*16 : (p+1)*16] // free until this bone's own write
	copy(out, base)
	for k := len(path) - 1; k >= 0; k-- {
		l := graph.Local(path[k])
		common.ComposeTRS(w.local[:], l.Translation, l.Rotation, l.Scale)
		common.Mul4(out, out, w.local[:])
	}
	return out
}
