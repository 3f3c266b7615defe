// package skinning computes the per-frame joint-matrix palette
// (world * inverseBind per bone) and the flattened morph-target weight
// buffer, and stages both for GPU upload. The palette never owns a device;
// it declares buffer sizes on a provider and emits staged writes the device
// owner flushes.
package skinning

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-avatar/common"
	"github.com/Carmen-Shannon/oxy-avatar/engine/gpu"
	"github.com/Carmen-Shannon/oxy-avatar/engine/model"
	"github.com/Carmen-Shannon/oxy-avatar/engine/scene"
)

// Common errors returned by the skinning palette.
var (
	errNilSkeleton  = errors.New("skinning: skeleton is nil")
	errMorphRange   = errors.New("skinning: morph target index out of range")
	errMorphUnknown = errors.New("skinning: node has no morph weights")
)

// palette is the implementation of the Palette interface.
type palette struct {
	mu sync.Mutex

	skeleton *model.Skeleton

	provider gpu.BufferProvider

	// joints holds the flat column-major skinning matrices, 16 floats per
	// bone in skeleton bone order.
	joints []float32

	// morphWeights is the flattened weight buffer; morphOffsets maps a
	// mesh-bearing node index to its first slot.
	morphWeights []float32
	morphOffsets map[int32]int
	morphCounts  map[int32]int

	jointsDirty bool
	morphDirty  bool

	stagedWriteData []gpu.BufferWrite

	// Reusable staging buffers. The queue copies write data before
	// returning, so reusing one buffer every frame is safe.
	stagingJoints []byte
	stagingMorphs []byte

	// scratch matrix for the per-bone multiply.
	scratch [16]float32
}

// Palette defines the public-facing interface for the joint-matrix palette
// and morph-target weight buffer of one skinned avatar.
type Palette interface {
	// UpdateFromGraph recomputes every skinning matrix as the bone node's
	// current world matrix times its inverse bind matrix, and marks the
	// joint buffer dirty. Call after the graph's world transforms are
	// up to date for the frame.
	//
	// Parameters:
	//   - graph: the scene graph holding current world transforms
	UpdateFromGraph(graph scene.Graph)

	// JointMatrices returns the flat column-major palette, 16 floats per
	// bone in skeleton bone order. The slice is live; callers must not
	// retain it across Update calls.
	//
	// Returns:
	//   - []float32: the palette data
	JointMatrices() []float32

	// BoneCount returns the number of bones in the palette.
	//
	// Returns:
	//   - int: the bone count
	BoneCount() int

	// SetMorphWeight sets one morph-target weight on a mesh-bearing node
	// and marks the morph buffer dirty.
	//
	// Parameters:
	//   - nodeIndex: the mesh-bearing node
	//   - target: the morph target index within that node
	//   - weight: the new weight
	//
	// Returns:
	//   - error: error if the node has no morph targets or target is out of range
	SetMorphWeight(nodeIndex int32, target int, weight float32) error

	// MorphWeights returns the current weights of a mesh-bearing node, or
	// nil if the node has none. The slice is live.
	//
	// Parameters:
	//   - nodeIndex: the mesh-bearing node
	//
	// Returns:
	//   - []float32: the node's weights or nil
	MorphWeights(nodeIndex int32) []float32

	// Flush stages dirty buffer regions as BufferWrite records. Clean
	// buffers stage nothing.
	Flush()

	// StagedWriteData drains and returns the staged writes accumulated by
	// Flush since the last drain.
	//
	// Returns:
	//   - []gpu.BufferWrite: the staged writes
	StagedWriteData() []gpu.BufferWrite

	// Provider returns the buffer provider carrying the palette's declared
	// bindings.
	//
	// Returns:
	//   - gpu.BufferProvider: the provider
	Provider() gpu.BufferProvider

	// Release releases the provider's GPU buffers.
	Release()
}

var _ Palette = &palette{}

// NewPalette creates a Palette for the given skeleton and morph weight map.
// Buffer sizes are declared immediately so the device owner can allocate
// before the first frame.
//
// Parameters:
//   - skeleton: the bone hierarchy (must be non-nil, may have zero bones)
//   - morphWeights: default morph weights keyed by node index (may be nil)
//
// Returns:
//   - Palette: the new palette
//   - error: error if the skeleton is nil
func NewPalette(skeleton *model.Skeleton, morphWeights map[int32][]float32) (Palette, error) {
	if skeleton == nil {
		return nil, errNilSkeleton
	}

	p := &palette{
		skeleton:     skeleton,
		provider:     gpu.NewBufferProvider("skinning_palette"),
		joints:       make([]float32, len(skeleton.Bones)*16),
		morphOffsets: make(map[int32]int),
		morphCounts:  make(map[int32]int),
	}

	// Bind pose until the first Update.
	for i := range skeleton.Bones {
		common.Identity(p.joints[i*16 : (i+1)*16])
	}

	// Flatten morph weights in ascending node order so offsets are stable.
	for _, node := range sortedMorphNodes(morphWeights) {
		weights := morphWeights[node]
		p.morphOffsets[node] = len(p.morphWeights)
		p.morphCounts[node] = len(weights)
		p.morphWeights = append(p.morphWeights, weights...)
	}

	jointBytes := uint64(len(skeleton.Bones)) * jointMatrixStride
	p.provider.DeclareBuffer(BindingJointMatrices, maxU64(jointBytes, jointMatrixStride))
	p.provider.DeclareBuffer(BindingMorphWeights, maxU64(uint64(len(p.morphWeights))*4, 4))

	p.stagingJoints = make([]byte, len(p.joints)*4)
	p.stagingMorphs = make([]byte, len(p.morphWeights)*4)

	p.jointsDirty = true
	p.morphDirty = len(p.morphWeights) > 0

	return p, nil
}

func (p *palette) UpdateFromGraph(graph scene.Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.skeleton.Bones {
		bone := &p.skeleton.Bones[i]
		world := graph.WorldMatrix(bone.NodeIndex)
		common.Mul4(p.scratch[:], world, bone.InverseBindMatrix[:])
		copy(p.joints[i*16:(i+1)*16], p.scratch[:])
	}
	p.jointsDirty = len(p.skeleton.Bones) > 0
}

func (p *palette) JointMatrices() []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.joints
}

func (p *palette) BoneCount() int {
	return len(p.skeleton.Bones)
}

func (p *palette) SetMorphWeight(nodeIndex int32, target int, weight float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.morphOffsets[nodeIndex]
	if !ok {
		return errMorphUnknown
	}
	if target < 0 || target >= p.morphCounts[nodeIndex] {
		return errMorphRange
	}

	p.morphWeights[offset+target] = weight
	p.morphDirty = true
	return nil
}

func (p *palette) MorphWeights(nodeIndex int32) []float32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset, ok := p.morphOffsets[nodeIndex]
	if !ok {
		return nil
	}
	return p.morphWeights[offset : offset+p.morphCounts[nodeIndex]]
}

func (p *palette) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.jointsDirty {
		raw := common.SliceToBytes(p.joints)
		buf := p.stagingJoints[:len(raw)]
		copy(buf, raw)

		p.stagedWriteData = append(p.stagedWriteData, gpu.BufferWrite{
			Provider: p.provider,
			Binding:  BindingJointMatrices,
			Offset:   0,
			Data:     buf,
		})
		p.jointsDirty = false
	}

	if p.morphDirty {
		raw := common.SliceToBytes(p.morphWeights)
		buf := p.stagingMorphs[:len(raw)]
		copy(buf, raw)

		p.stagedWriteData = append(p.stagedWriteData, gpu.BufferWrite{
			Provider: p.provider,
			Binding:  BindingMorphWeights,
			Offset:   0,
			Data:     buf,
		})
		p.morphDirty = false
	}
}

func (p *palette) StagedWriteData() []gpu.BufferWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.stagedWriteData
	p.stagedWriteData = p.stagedWriteData[:0]
	return w
}

func (p *palette) Provider() gpu.BufferProvider {
	return p.provider
}

func (p *palette) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider.Release()
}

// sortedMorphNodes returns the map keys in ascending order.
func sortedMorphNodes(weights map[int32][]float32) []int32 {
	nodes := make([]int32, 0, len(weights))
	for node := range weights {
		nodes = append(nodes, node)
	}
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j] < nodes[j-1]; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
	return nodes
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
