package springbone

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Storage-buffer binding indices for the spring-bone compute mirror. Every
// logical input owns a permanently distinct binding; none are reused or
// distinguished by upload order.
const (
	// BindingGlobals is the per-frame simulation globals uniform.
	BindingGlobals = 0

	// BindingBones is the flat bone parameter/state array.
	BindingBones = 1

	// BindingColliders is the world-space collider array.
	BindingColliders = 2

	// BindingRootPositions is the kinematic root position array, indexed by
	// root slot.
	BindingRootPositions = 3

	// BindingPoseOut is the solved-pose output array read back by the host.
	BindingPoseOut = 4
)

// GPUSpringBone is the GPU-aligned representation of one simulation bone.
// Size: 80 bytes (5 × vec4, std430 aligned).
type GPUSpringBone struct {
	CurrPos    [3]float32 // offset 0: current world position
	RestLength float32    // offset 12: rest distance to parent
	PrevPos    [3]float32 // offset 16: previous world position
	ParentIdx  int32      // offset 28: parent bone slot, -1 for roots
	BindDir    [3]float32 // offset 32: bind direction in parent local space
	Stiffness  float32    // offset 44: bind-pose-return strength
	GravityDir [3]float32 // offset 48: per-bone gravity direction
	GravityPow float32    // offset 60: gravity power multiplier
	Drag       float32    // offset 64: velocity damping
	HitRadius  float32    // offset 68: collision thickness
	GroupMask  uint32     // offset 72: collision-group bitmask
	NodeIdx    int32      // offset 76: scene node index, -1 for virtual tails
}

// Size returns the size of the GPUSpringBone struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSpringBone) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSpringBone struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUSpringBone) Marshal() []byte {
	buf := make([]byte, 80)
	putVec3(buf[0:], g.CurrPos)
	putF32(buf[12:], g.RestLength)
	putVec3(buf[16:], g.PrevPos)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(g.ParentIdx))
	putVec3(buf[32:], g.BindDir)
	putF32(buf[44:], g.Stiffness)
	putVec3(buf[48:], g.GravityDir)
	putF32(buf[60:], g.GravityPow)
	putF32(buf[64:], g.Drag)
	putF32(buf[68:], g.HitRadius)
	binary.LittleEndian.PutUint32(buf[72:76], g.GroupMask)
	binary.LittleEndian.PutUint32(buf[76:80], uint32(g.NodeIdx))
	return buf
}

// GPUSpringCollider is the GPU-aligned representation of one world-space
// collider primitive. The Kind field selects which geometry fields apply.
// Size: 48 bytes (3 × vec4, std430 aligned).
type GPUSpringCollider struct {
	Head     [3]float32 // offset 0: sphere center / capsule head / plane point
	Radius   float32    // offset 12: primitive radius (unused for planes)
	Tail     [3]float32 // offset 16: capsule second endpoint
	Kind     uint32     // offset 28: 0 sphere, 1 capsule, 2 plane
	Normal   [3]float32 // offset 32: plane unit normal
	GroupBit uint32     // offset 44: collision-group bit
}

// Size returns the size of the GPUSpringCollider struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSpringCollider) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSpringCollider struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUSpringCollider) Marshal() []byte {
	buf := make([]byte, 48)
	putVec3(buf[0:], g.Head)
	putF32(buf[12:], g.Radius)
	putVec3(buf[16:], g.Tail)
	binary.LittleEndian.PutUint32(buf[28:32], g.Kind)
	putVec3(buf[32:], g.Normal)
	binary.LittleEndian.PutUint32(buf[44:48], g.GroupBit)
	return buf
}

// GPUSpringGlobals is the GPU-aligned representation of the per-frame
// simulation globals.
// Size: 64 bytes (4 × vec4, std430 aligned).
type GPUSpringGlobals struct {
	Gravity       [3]float32 // offset 0: world gravity vector
	DtSub         float32    // offset 12: substep duration in seconds
	WindDir       [3]float32 // offset 16: wind direction
	WindAmplitude float32    // offset 28: wind force scale
	WindFrequency float32    // offset 32: wind angular frequency
	WindPhase     float32    // offset 36: wind phase offset
	MaxStep       float32    // offset 40: per-substep displacement clamp
	BoneCount     uint32     // offset 44: bone array length
	ColliderCount uint32     // offset 48: collider array length
	RootCount     uint32     // offset 52: kinematic root count
	Iterations    uint32     // offset 56: constraint iterations per substep
	Settling      uint32     // offset 60: nonzero while settling frames remain
}

// Size returns the size of the GPUSpringGlobals struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUSpringGlobals) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSpringGlobals struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUSpringGlobals) Marshal() []byte {
	buf := make([]byte, 64)
	putVec3(buf[0:], g.Gravity)
	putF32(buf[12:], g.DtSub)
	putVec3(buf[16:], g.WindDir)
	putF32(buf[28:], g.WindAmplitude)
	putF32(buf[32:], g.WindFrequency)
	putF32(buf[36:], g.WindPhase)
	putF32(buf[40:], g.MaxStep)
	binary.LittleEndian.PutUint32(buf[44:48], g.BoneCount)
	binary.LittleEndian.PutUint32(buf[48:52], g.ColliderCount)
	binary.LittleEndian.PutUint32(buf[52:56], g.RootCount)
	binary.LittleEndian.PutUint32(buf[56:60], g.Iterations)
	binary.LittleEndian.PutUint32(buf[60:64], g.Settling)
	return buf
}

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v))
}

func putVec3(buf []byte, v [3]float32) {
	putF32(buf[0:], v[0])
	putF32(buf[4:], v[1])
	putF32(buf[8:], v[2])
}
