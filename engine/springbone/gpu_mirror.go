package springbone

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-avatar/engine/gpu"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
)

// GPUMirror maintains the compute-side copy of one solver's state: the bone,
// collider, and globals buffers declared on a BufferProvider, refilled each
// frame into reusable staging memory and handed off as BufferWrite records.
// The bone parameter block is static after build; only the position head of
// each bone record changes per frame, so bone uploads write the full array
// but reuse one staging allocation.
type GPUMirror struct {
	provider gpu.BufferProvider

	// Reusable staging buffers to avoid per-frame heap allocations.
	stagingBones     []byte
	stagingColliders []byte
	stagingGlobals   []byte
	stagingRoots     []byte

	colliderScratch []Collider
}

// NewGPUMirror creates the mirror for a solver, declaring every binding on a
// fresh BufferProvider sized to the solver's chain set. The provider's
// buffers are allocated by the device owner before the first flush.
//
// Parameters:
//   - s: the solver to mirror
//
// Returns:
//   - *GPUMirror: the mirror with staging pools sized to the chain set
func NewGPUMirror(s Solver) *GPUMirror {
	cs := s.Chains()
	boneStride := (&GPUSpringBone{}).Size()
	colliderStride := (&GPUSpringCollider{}).Size()

	m := &GPUMirror{
		provider:         gpu.NewBufferProvider("springbone"),
		stagingBones:     make([]byte, cs.BoneCount()*boneStride),
		stagingGlobals:   make([]byte, (&GPUSpringGlobals{}).Size()),
		stagingRoots:     make([]byte, cs.ChainCount()*16),
		stagingColliders: make([]byte, s.Colliders().Count()*colliderStride),
	}

	m.provider.DeclareBuffer(BindingGlobals, uint64(len(m.stagingGlobals)))
	m.provider.DeclareBuffer(BindingBones, uint64(len(m.stagingBones)))
	m.provider.DeclareBuffer(BindingColliders, uint64(max(len(m.stagingColliders), colliderStride)))
	m.provider.DeclareBuffer(BindingRootPositions, uint64(max(len(m.stagingRoots), 16)))
	m.provider.DeclareBuffer(BindingPoseOut, uint64(cs.BoneCount()*32))
	return m
}

// Provider returns the mirror's BufferProvider for device-side allocation
// and bind group construction.
//
// Returns:
//   - gpu.BufferProvider: the provider owning the mirror's bindings
func (m *GPUMirror) Provider() gpu.BufferProvider {
	return m.provider
}

// StageWrites snapshots the solver's current state into staged buffer writes
// for this frame. Call between Step and the compute dispatch; the returned
// slices alias the mirror's staging memory and are valid until the next call.
//
// Parameters:
//   - s: the solver to snapshot
//   - globals: the per-frame globals to upload
//
// Returns:
//   - []gpu.BufferWrite: the staged writes, one per populated binding
func (m *GPUMirror) StageWrites(s Solver, globals GPUSpringGlobals) []gpu.BufferWrite {
	cs := s.Chains()
	writes := make([]gpu.BufferWrite, 0, 4)

	copy(m.stagingGlobals, globals.Marshal())
	writes = append(writes, gpu.BufferWrite{Provider: m.provider, Binding: BindingGlobals, Data: m.stagingGlobals})

	boneStride := (&GPUSpringBone{}).Size()
	if need := cs.BoneCount() * boneStride; len(m.stagingBones) < need {
		m.stagingBones = make([]byte, need)
	}
	for i := range cs.Bones {
		b := &cs.Bones[i]
		rec := GPUSpringBone{
			CurrPos:    cs.Curr[i],
			RestLength: b.RestLength,
			PrevPos:    cs.Prev[i],
			ParentIdx:  b.ParentIndex,
			BindDir:    b.BindDir,
			Stiffness:  b.Stiffness,
			GravityDir: b.GravityDir,
			GravityPow: b.GravityPower,
			Drag:       b.Drag,
			HitRadius:  b.HitRadius,
			GroupMask:  b.GroupMask,
			NodeIdx:    b.NodeIndex,
		}
		copy(m.stagingBones[i*boneStride:], rec.Marshal())
	}
	writes = append(writes, gpu.BufferWrite{Provider: m.provider, Binding: BindingBones, Data: m.stagingBones[:cs.BoneCount()*boneStride]})

	m.colliderScratch = s.Colliders().Snapshot(m.colliderScratch)
	colliderStride := (&GPUSpringCollider{}).Size()
	if need := len(m.colliderScratch) * colliderStride; len(m.stagingColliders) < need {
		m.stagingColliders = make([]byte, need)
	}
	for i := range m.colliderScratch {
		c := &m.colliderScratch[i]
		rec := GPUSpringCollider{
			Head:     c.Head,
			Radius:   c.RadiusWorld,
			Tail:     c.TailWorld,
			Kind:     colliderKindCode(c.Kind),
			Normal:   c.NormalWorld,
			GroupBit: c.GroupBit,
		}
		copy(m.stagingColliders[i*colliderStride:], rec.Marshal())
	}
	if n := len(m.colliderScratch); n > 0 {
		writes = append(writes, gpu.BufferWrite{Provider: m.provider, Binding: BindingColliders, Data: m.stagingColliders[:n*colliderStride]})
	}

	roots := cs.RootSlots()
	if need := len(roots) * 16; len(m.stagingRoots) < need {
		m.stagingRoots = make([]byte, need)
	}
	for i, slot := range roots {
		putVec3(m.stagingRoots[i*16:], cs.Curr[slot])
		putF32(m.stagingRoots[i*16+12:], 0)
	}
	if len(roots) > 0 {
		writes = append(writes, gpu.BufferWrite{Provider: m.provider, Binding: BindingRootPositions, Data: m.stagingRoots[:len(roots)*16]})
	}

	return writes
}

// ReadPose decodes a pose-output readback buffer (BindingPoseOut layout: one
// vec4 position followed by one vec4 padding per bone) into world positions.
// The copy itself is issued and awaited by the device owner once per frame.
//
// Parameters:
//   - data: the raw readback bytes
//   - dst: destination positions, reused when capacity allows
//
// Returns:
//   - [][3]float32: decoded world positions, one per complete record
func (m *GPUMirror) ReadPose(data []byte, dst [][3]float32) [][3]float32 {
	const stride = 32
	n := len(data) / stride
	dst = dst[:0]
	for i := 0; i < n; i++ {
		rec := data[i*stride:]
		dst = append(dst, [3]float32{
			f32At(rec, 0),
			f32At(rec, 4),
			f32At(rec, 8),
		})
	}
	return dst
}

// Release releases the mirror's GPU buffers.
func (m *GPUMirror) Release() {
	m.provider.Release()
}

func colliderKindCode(kind model.ColliderShapeKind) uint32 {
	switch kind {
	case model.ColliderShapeCapsule:
		return 1
	case model.ColliderShapePlane:
		return 2
	default:
		return 0
	}
}

func f32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}
