package springbone

import (
	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// collideChain resolves every simulated bone of one chain span against the
// frame's collider snapshot, filtered by the bone's group mask. Each primitive
// kind runs as its own full pass in a fixed order (spheres, capsules, planes);
// under simultaneous multi-primitive penetration the later pass wins, an
// accepted approximation rather than a simultaneous solve.
func collideChain(cs *ChainSet, span chainSpan, colliders []Collider) {
	collidePass(cs, span, colliders, model.ColliderShapeSphere)
	collidePass(cs, span, colliders, model.ColliderShapeCapsule)
	collidePass(cs, span, colliders, model.ColliderShapePlane)
}

func collidePass(cs *ChainSet, span chainSpan, colliders []Collider, kind model.ColliderShapeKind) {
	for ci := range colliders {
		c := &colliders[ci]
		if c.Kind != kind {
			continue
		}
		for i := span.start; i < span.end; i++ {
			b := &cs.Bones[i]
			if b.ParentIndex < 0 || b.GroupMask&c.GroupBit == 0 {
				continue
			}

			switch kind {
			case model.ColliderShapeSphere:
				cs.Curr[i] = resolveSphere(cs.Curr[i], c.Head, c.RadiusWorld, b.HitRadius, collapseDir(cs, i))
			case model.ColliderShapeCapsule:
				closest := closestOnSegment(c.Head, c.TailWorld, cs.Curr[i])
				cs.Curr[i] = resolveSphere(cs.Curr[i], closest, c.RadiusWorld, b.HitRadius, collapseDir(cs, i))
			case model.ColliderShapePlane:
				cs.Curr[i] = resolvePlane(cs.Curr[i], c.Head, c.NormalWorld, b.HitRadius)
			}
		}
	}
}

// resolveSphere pushes pos out of a sphere at center so the surfaces no
// longer overlap. A bone sitting exactly on the center escapes along the
// fallback direction instead of dividing by zero.
func resolveSphere(pos, center [3]float32, radius, hitRadius float32, fallback [3]float32) [3]float32 {
	delta := common.Vec3Sub(pos, center)
	minDist := radius + hitRadius
	if common.Vec3LengthSq(delta) >= minDist*minDist {
		return pos
	}
	dir := common.Vec3Normalize(delta, fallback)
	return common.Vec3Add(center, common.Vec3Scale(dir, minDist))
}

// resolvePlane pushes pos to the positive side of the half-space through
// point with unit normal, respecting the bone's hit radius.
func resolvePlane(pos, point, normal [3]float32, hitRadius float32) [3]float32 {
	signed := common.Vec3Dot(common.Vec3Sub(pos, point), normal) - hitRadius
	if signed >= 0 {
		return pos
	}
	return common.Vec3Add(pos, common.Vec3Scale(normal, -signed))
}

// closestOnSegment returns the point on segment [a, b] closest to p, with the
// degenerate zero-length segment collapsing to a.
func closestOnSegment(a, b, p [3]float32) [3]float32 {
	ab := common.Vec3Sub(b, a)
	lenSq := common.Vec3LengthSq(ab)
	if lenSq < common.Vec3Epsilon {
		return a
	}
	t := common.Vec3Dot(common.Vec3Sub(p, a), ab) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return common.Vec3Add(a, common.Vec3Scale(ab, t))
}
