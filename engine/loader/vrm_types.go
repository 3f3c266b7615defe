// vrm_types.go contains the two historical VRM spring-bone JSON schemas: the
// VRM 0.x secondaryAnimation block embedded in the "VRM" glTF extension, and
// the standalone "VRMC_springBone" 1.0 extension. Both deserialize into
// schema-faithful structs here and are normalized by the VRM extractor.
// References:
//   - https://github.com/vrm-c/vrm-specification/tree/master/specification/0.0
//   - https://github.com/vrm-c/vrm-specification/tree/master/specification/VRMC_springBone-1.0
package loader

import "encoding/json"

// Extension names looked up in the glTF document's extensions block.
const (
	vrm0ExtensionName       = "VRM"
	vrm1SpringExtensionName = "VRMC_springBone"

	// vrm1ExtendedColliderName is the per-collider extension carrying the
	// extended shapes (plane, inside-sphere) of the 1.0 schema.
	vrm1ExtendedColliderName = "VRMC_springBone_extended_collider"
)

// --- VRM 0.x (secondaryAnimation) ---

// vrm0Extension is the subset of the VRM 0.x extension block this loader
// reads: metadata for the avatar name and the spring-bone configuration.
type vrm0Extension struct {
	// ExporterVersion identifies the exporting tool.
	ExporterVersion string `json:"exporterVersion,omitempty"`

	// Meta carries the avatar title and authoring metadata.
	Meta vrm0Meta `json:"meta,omitempty"`

	// SecondaryAnimation is the spring-bone configuration.
	SecondaryAnimation *vrm0SecondaryAnimation `json:"secondaryAnimation,omitempty"`
}

// vrm0Meta is the VRM 0.x metadata block; only the title is read.
type vrm0Meta struct {
	Title string `json:"title,omitempty"`
}

// vrm0SecondaryAnimation is the VRM 0.x spring-bone configuration.
type vrm0SecondaryAnimation struct {
	// BoneGroups are the spring definitions; each carries shared parameters
	// and a list of chain-root nodes expanded by traversal.
	BoneGroups []vrm0BoneGroup `json:"boneGroups,omitempty"`

	// ColliderGroups are the collider definitions springs opt into by index.
	ColliderGroups []vrm0ColliderGroup `json:"colliderGroups,omitempty"`
}

// vrm0BoneGroup is one VRM 0.x spring definition.
type vrm0BoneGroup struct {
	// Comment is the authoring label for this group.
	Comment string `json:"comment,omitempty"`

	// Stiffiness is the bind-pose-return strength. The misspelling is part
	// of the published 0.x schema.
	Stiffiness float32 `json:"stiffiness,omitempty"`

	// GravityPower scales gravity for all bones in this group.
	GravityPower float32 `json:"gravityPower,omitempty"`

	// GravityDir is the gravity direction.
	GravityDir vrm0Vec3 `json:"gravityDir,omitempty"`

	// DragForce is the velocity damping coefficient.
	DragForce float32 `json:"dragForce,omitempty"`

	// Center is the node index the simulation is evaluated in, or -1.
	Center int `json:"center,omitempty"`

	// HitRadius is the collision thickness of every bone in this group.
	HitRadius float32 `json:"hitRadius,omitempty"`

	// Bones are the chain-root node indices.
	Bones []int `json:"bones,omitempty"`

	// ColliderGroups are indices into the colliderGroups array.
	ColliderGroups []int `json:"colliderGroups,omitempty"`
}

// vrm0ColliderGroup is a set of sphere colliders attached to one node.
type vrm0ColliderGroup struct {
	// Node is the owning node index.
	Node int `json:"node"`

	// Colliders are the sphere definitions in the node's local space.
	Colliders []vrm0Collider `json:"colliders,omitempty"`
}

// vrm0Collider is one VRM 0.x sphere collider.
type vrm0Collider struct {
	Offset vrm0Vec3 `json:"offset,omitempty"`
	Radius float32  `json:"radius,omitempty"`
}

// vrm0Vec3 is the object-form vector used throughout the 0.x schema.
type vrm0Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v vrm0Vec3) array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// --- VRM 1.0 (VRMC_springBone) ---

// vrm1SpringExtension is the VRMC_springBone 1.0 extension block.
type vrm1SpringExtension struct {
	// SpecVersion is the extension spec version, e.g. "1.0".
	SpecVersion string `json:"specVersion,omitempty"`

	// Colliders is the flat collider list collider groups index into.
	Colliders []vrm1Collider `json:"colliders,omitempty"`

	// ColliderGroups are named buckets of collider indices.
	ColliderGroups []vrm1ColliderGroup `json:"colliderGroups,omitempty"`

	// Springs are the explicit-joint spring definitions.
	Springs []vrm1Spring `json:"springs,omitempty"`
}

// vrm1Collider is one collider: a node reference plus exactly one shape.
type vrm1Collider struct {
	// Node is the owning node index.
	Node int `json:"node"`

	// Shape holds the sphere or capsule geometry.
	Shape vrm1ColliderShape `json:"shape"`

	// Extensions may carry the extended-collider block with plane geometry.
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// vrm1ColliderShape is the shape union; exactly one member is set.
type vrm1ColliderShape struct {
	Sphere  *vrm1SphereShape  `json:"sphere,omitempty"`
	Capsule *vrm1CapsuleShape `json:"capsule,omitempty"`
}

// vrm1SphereShape is a sphere in the owning node's local space.
type vrm1SphereShape struct {
	Offset [3]float32 `json:"offset,omitempty"`
	Radius float32    `json:"radius,omitempty"`
}

// vrm1CapsuleShape is a capsule between two local-space points.
type vrm1CapsuleShape struct {
	Offset [3]float32 `json:"offset,omitempty"`
	Radius float32    `json:"radius,omitempty"`
	Tail   [3]float32 `json:"tail,omitempty"`
}

// vrm1ExtendedCollider is the VRMC_springBone_extended_collider block; only
// the plane shape is consumed here.
type vrm1ExtendedCollider struct {
	SpecVersion string `json:"specVersion,omitempty"`
	Shape       struct {
		Plane *vrm1PlaneShape `json:"plane,omitempty"`
	} `json:"shape"`
}

// vrm1PlaneShape is an infinite half-space in the owning node's local space.
type vrm1PlaneShape struct {
	Offset [3]float32 `json:"offset,omitempty"`
	Normal [3]float32 `json:"normal,omitempty"`
}

// vrm1ColliderGroup is a named bucket of collider indices.
type vrm1ColliderGroup struct {
	Name      string `json:"name,omitempty"`
	Colliders []int  `json:"colliders,omitempty"`
}

// vrm1Spring is one explicit-joint spring definition.
type vrm1Spring struct {
	// Name is the spring identifier.
	Name string `json:"name,omitempty"`

	// Joints are the ordered joint definitions, root first.
	Joints []vrm1SpringJoint `json:"joints,omitempty"`

	// ColliderGroups are indices into the extension's colliderGroups array.
	ColliderGroups []int `json:"colliderGroups,omitempty"`

	// Center is the node the simulation is evaluated in (optional).
	Center *int `json:"center,omitempty"`
}

// vrm1SpringJoint is one joint of a 1.0 spring.
type vrm1SpringJoint struct {
	// Node is the simulated node index.
	Node int `json:"node"`

	// HitRadius is the joint's collision thickness.
	HitRadius float32 `json:"hitRadius,omitempty"`

	// Stiffness is the bind-pose-return strength.
	Stiffness float32 `json:"stiffness,omitempty"`

	// GravityPower scales gravity for this joint.
	GravityPower float32 `json:"gravityPower,omitempty"`

	// GravityDir is the gravity direction.
	GravityDir [3]float32 `json:"gravityDir,omitempty"`

	// DragForce is the velocity damping coefficient.
	DragForce float32 `json:"dragForce,omitempty"`
}
