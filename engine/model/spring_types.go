package model

// SpringSpecVersion identifies which historical VRM spring-bone schema a
// spring definition was sourced from.
type SpringSpecVersion int

const (
	// SpringSpecVRM0 selects the VRM 0.x secondaryAnimation schema
	// (boneGroups with root nodes expanded by traversal).
	SpringSpecVRM0 SpringSpecVersion = iota

	// SpringSpecVRM1 selects the VRMC_springBone 1.0 schema
	// (explicit per-joint lists).
	SpringSpecVRM1
)

// ColliderShapeKind tags the primitive type of a collider shape.
type ColliderShapeKind int

const (
	// ColliderShapeSphere is a sphere at Offset with Radius.
	ColliderShapeSphere ColliderShapeKind = iota

	// ColliderShapeCapsule is a capsule from Offset to the second endpoint
	// Offset + Tail (both in the owning node's local space) with Radius.
	ColliderShapeCapsule

	// ColliderShapePlane is a half-space through Offset with unit Normal.
	ColliderShapePlane
)

// ColliderSpec describes one collider primitive attached to a scene node.
// World geometry is recomputed every frame from the node's world transform;
// the local-space description is immutable after load.
type ColliderSpec struct {
	// NodeIndex is the scene node the collider follows.
	NodeIndex int32

	// Kind selects the primitive type.
	Kind ColliderShapeKind

	// Offset is the primitive origin in the node's local space.
	Offset [3]float32

	// Tail is the capsule's local tail vector. The second endpoint is the
	// node transform applied to Offset + Tail. Unused for other kinds.
	Tail [3]float32

	// Normal is the plane's local unit normal. Unused for other kinds.
	Normal [3]float32

	// Radius is the primitive radius. Unused for planes.
	Radius float32
}

// ColliderGroupSpec is a named bucket of colliders that springs opt into.
type ColliderGroupSpec struct {
	// Name is the group identifier (may be empty for VRM 0.x groups).
	Name string

	// Colliders are the primitives belonging to this group.
	Colliders []ColliderSpec
}

// SpringJointSpec carries the physical parameters of one spring-bone joint.
type SpringJointSpec struct {
	// NodeIndex is the scene node this joint simulates.
	NodeIndex int32

	// Stiffness is the bind-pose-return strength. Distinct from the
	// structural distance constraint, which is unconditional.
	Stiffness float32

	// Drag is the velocity damping coefficient in [0, 1].
	Drag float32

	// GravityPower scales the effective gravity applied to this joint.
	GravityPower float32

	// GravityDir is the per-joint gravity direction (unit vector).
	GravityDir [3]float32

	// HitRadius is the joint's collision thickness.
	HitRadius float32
}

// SpringSpec is one spring-bone chain definition, normalized across both
// schema versions.
//
// For VRM 0.x the Joints slice holds only chain roots carrying shared
// parameters; the chain builder expands each root's node subtree depth-first
// into the explicit joint list. For VRM 1.0 Joints is already the full
// ordered list.
type SpringSpec struct {
	// Name is the spring identifier (comment field in VRM 0.x).
	Name string

	// Joints are the joint definitions, ordered root-first.
	Joints []SpringJointSpec

	// CenterNodeIndex is the optional space the simulation is evaluated in
	// (-1 for world space). Present in both schemas; currently informational.
	CenterNodeIndex int32

	// ColliderGroupIndices are indices into ImportedAvatar.ColliderGroups
	// this spring collides with.
	ColliderGroupIndices []int32

	// Expand indicates the Joints are chain roots whose node subtrees must be
	// expanded depth-first at chain build (VRM 0.x behavior).
	Expand bool
}
