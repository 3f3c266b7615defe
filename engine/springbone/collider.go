package springbone

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
)

// Collider is one collision primitive in world space. Shape-specific fields
// are refreshed from the owning node's world transform each frame; a collider
// with no node (NodeIndex -1) keeps its local geometry as world geometry,
// which is how static environment primitives like a ground plane are added.
type Collider struct {
	// NodeIndex is the scene node the collider follows, or -1 for static
	// world-space colliders.
	NodeIndex int32

	// Kind selects the primitive type.
	Kind model.ColliderShapeKind

	// Offset, Tail and Normal are the local-space geometry from the
	// imported ColliderSpec.
	Offset [3]float32
	Tail   [3]float32
	Normal [3]float32

	// Radius is the local-space radius. Non-uniform node scale is not
	// supported for collider radii; the largest world axis scale is applied.
	Radius float32

	// GroupBit is the collision mask bit of the owning group.
	GroupBit uint32

	// World-space geometry, valid after RefreshWorld.

	// Head is the world position of the primitive origin (sphere center,
	// capsule first endpoint, plane anchor point).
	Head [3]float32

	// TailWorld is the capsule's second endpoint: the node transform applied
	// to Offset + Tail.
	TailWorld [3]float32

	// NormalWorld is the plane's unit normal in world space.
	NormalWorld [3]float32

	// RadiusWorld is the radius scaled by the node's world scale.
	RadiusWorld float32
}

// ColliderRegistry owns the flat collider arena for one avatar. Indices are
// stable after build; only the world-space geometry mutates, under lock, so a
// RefreshWorld on the frame goroutine is safe against concurrent snapshot
// reads from staging.
type ColliderRegistry struct {
	mu        sync.Mutex
	colliders []Collider
}

// NewColliderRegistry flattens the imported collider groups into a registry.
// Each group's slot index becomes its mask bit; groups beyond the 32-group
// mask width were already rejected at chain build and are skipped here.
//
// Parameters:
//   - groups: the collider group specs from the imported avatar
//
// Returns:
//   - *ColliderRegistry: the registry with world geometry at local values
//     until the first RefreshWorld
func NewColliderRegistry(groups []model.ColliderGroupSpec) *ColliderRegistry {
	r := &ColliderRegistry{}
	for gi, group := range groups {
		if gi >= maxColliderGroups {
			break
		}
		for _, spec := range group.Colliders {
			r.colliders = append(r.colliders, Collider{
				NodeIndex: spec.NodeIndex,
				Kind:      spec.Kind,
				Offset:    spec.Offset,
				Tail:      spec.Tail,
				Normal:    common.Vec3Normalize(spec.Normal, [3]float32{0, 1, 0}),
				Radius:    spec.Radius,
				GroupBit:  1 << uint(gi),
			})
		}
	}
	return r
}

// AddStatic appends a world-space collider that follows no node, assigned to
// the given group bit. Used for environment primitives such as a ground
// plane. Returns the collider's registry index.
//
// Parameters:
//   - c: the collider with Offset/Tail/Normal/Radius as world geometry
//   - group: the collision group index in [0, 32)
//
// Returns:
//   - int: the registry index of the added collider
func (r *ColliderRegistry) AddStatic(c Collider, group int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.NodeIndex = -1
	if group >= 0 && group < maxColliderGroups {
		c.GroupBit = 1 << uint(group)
	}
	c.Normal = common.Vec3Normalize(c.Normal, [3]float32{0, 1, 0})
	c.Head = c.Offset
	c.TailWorld = common.Vec3Add(c.Offset, c.Tail)
	c.NormalWorld = c.Normal
	c.RadiusWorld = c.Radius

	r.colliders = append(r.colliders, c)
	return len(r.colliders) - 1
}

// Count returns the number of colliders in the registry.
func (r *ColliderRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.colliders)
}

// Snapshot returns a copy of the collider arena, world geometry included.
// The solver takes one snapshot per frame so substeps see stable geometry.
func (r *ColliderRegistry) Snapshot(dst []Collider) []Collider {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst = dst[:0]
	return append(dst, r.colliders...)
}

// RefreshWorld recomputes every collider's world-space geometry from the
// graph. Must run after the graph's world transforms are up to date and
// before the solver steps; stale geometry lags a frame otherwise.
//
// Parameters:
//   - graph: the scene graph with current world transforms
func (r *ColliderRegistry) RefreshWorld(graph scene.Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.colliders {
		c := &r.colliders[i]
		if c.NodeIndex < 0 || int(c.NodeIndex) >= graph.Count() {
			continue
		}
		m := graph.WorldMatrix(c.NodeIndex)

		c.Head = common.TransformPoint(m, c.Offset)
		c.RadiusWorld = c.Radius * maxAxisScale(m)

		switch c.Kind {
		case model.ColliderShapeCapsule:
			c.TailWorld = common.TransformPoint(m, common.Vec3Add(c.Offset, c.Tail))
		case model.ColliderShapePlane:
			c.NormalWorld = common.Vec3Normalize(common.TransformDirection(m, c.Normal), [3]float32{0, 1, 0})
		}
	}
}

// maxAxisScale returns the largest column length of the matrix's upper 3x3,
// a conservative uniform scale for radii under non-uniform node scale.
func maxAxisScale(m []float32) float32 {
	sx := common.Vec3Length([3]float32{m[0], m[1], m[2]})
	sy := common.Vec3Length([3]float32{m[4], m[5], m[6]})
	sz := common.Vec3Length([3]float32{m[8], m[9], m[10]})
	s := sx
	if sy > s {
		s = sy
	}
	if sz > s {
		s = sz
	}
	return s
}
