package springbone

import "github.com/Carmen-Shannon/oxy-avatar/common"

// solveDistanceChain hard-projects every simulated bone of one chain span to
// exactly its rest length from the parent. The pass runs parent-before-child
// within the span, so each child snaps against its parent's already-corrected
// position; chains being independent, spans solve in parallel.
//
// The projection is unconditional and independent of per-bone stiffness. A
// fully collapsed bone (near-zero distance to parent) recovers along the
// frame's world-space bind direction instead of staying stuck at the parent.
func solveDistanceChain(cs *ChainSet, span chainSpan) {
	for i := span.start; i < span.end; i++ {
		b := &cs.Bones[i]
		p := b.ParentIndex
		if p < 0 {
			continue
		}

		parent := cs.Curr[p]
		delta := common.Vec3Sub(cs.Curr[i], parent)
		dir := common.Vec3Normalize(delta, collapseDir(cs, i))
		cs.Curr[i] = common.Vec3Add(parent, common.Vec3Scale(dir, b.RestLength))
	}
}

// collapseDir picks the push-out direction for a collapsed bone: the current
// world-space bind direction, falling back to straight down when that is
// degenerate too.
func collapseDir(cs *ChainSet, i int) [3]float32 {
	d := cs.stiffTarget[i]
	if common.Vec3LengthSq(d) < common.Vec3Epsilon {
		return downDir
	}
	return d
}
