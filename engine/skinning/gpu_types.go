package skinning

// Binding slot constants for the palette's buffer provider. Each logical
// input owns its slot permanently.
const (
	// BindingJointMatrices is the storage buffer of per-bone skinning
	// matrices (world * inverseBind), 64 bytes each, bone order.
	BindingJointMatrices = 0

	// BindingMorphWeights is the storage buffer of flattened morph-target
	// weights, 4 bytes each, mesh-node order.
	BindingMorphWeights = 1
)

// jointMatrixStride is the byte size of one column-major 4x4 joint matrix.
const jointMatrixStride = 64
