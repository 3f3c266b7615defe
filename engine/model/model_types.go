// package model contains the plain data types produced by the loader and
// consumed by the scene graph, skinning palette, and spring-bone solver.
// They are not interface-wrapped structs, just passive containers.
package model

// --- Transform & Skeleton Types ---

// Transform represents a decomposed transform for animation and scene-graph use.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a Transform with zero translation, identity
// rotation, and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Bone represents a single bone in a skeleton hierarchy.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// NodeIndex is the index of the scene-graph node backing this bone.
	NodeIndex int32

	// ParentIndex is the index of the parent bone (-1 for root bones).
	ParentIndex int32

	// InverseBindMatrix transforms from model space to bone space at bind pose.
	// This is the inverse of the bone's world transform when the mesh was bound.
	InverseBindMatrix [16]float32

	// LocalTransform is the bone's transform relative to its parent.
	// Updated each frame during animation playback.
	LocalTransform Transform
}

// Skeleton represents a bone hierarchy for skeletal animation.
// Bones are topologically sorted: a parent always precedes its children.
type Skeleton struct {
	// Bones is the array of all bones in the skeleton.
	Bones []Bone

	// RootBoneIndices are indices of bones with no parent.
	RootBoneIndices []int32

	// BoneNameToIndex maps bone names to their indices for quick lookup.
	BoneNameToIndex map[string]int32
}

// --- Scene Node Types ---

// Node is a single node of the imported transform hierarchy.
// The hierarchy is flat and index-addressed; parents always precede children.
type Node struct {
	// Name is the node's identifier.
	Name string

	// ParentIndex is the index of the parent node (-1 for scene roots).
	ParentIndex int32

	// Local is the node's transform relative to its parent.
	Local Transform
}

// --- Imported Avatar ---

// ImportedAvatar is the universal output of the loader: the node hierarchy,
// skeleton, morph-target weights, and spring-bone configuration of one
// VRM/glTF humanoid asset.
type ImportedAvatar struct {
	// Name is the avatar identifier (file stem or asset title).
	Name string

	// Nodes is the full transform hierarchy in parent-before-child order.
	Nodes []Node

	// Skeleton is the bone hierarchy (nil when the asset carries no skin).
	Skeleton *Skeleton

	// MorphWeights are the default morph-target (blend shape) weights per
	// mesh-bearing node, keyed by node index.
	MorphWeights map[int32][]float32

	// Springs are the normalized spring-bone chain definitions.
	Springs []SpringSpec

	// ColliderGroups are the normalized collider group definitions referenced
	// by Springs via group index.
	ColliderGroups []ColliderGroupSpec

	// SpecVersion records which VRM schema the spring data came from
	// (SpringSpecVRM0 or SpringSpecVRM1).
	SpecVersion SpringSpecVersion
}
