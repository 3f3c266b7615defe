// package gpu holds the thin GPU-resource layer used by the compute-side
// mirrors of the simulation: storage buffers keyed by binding index and the
// staged write operations that fill them. It owns no pipeline or bind-group
// layout state; those belong to whichever compute dispatcher consumes the
// buffers.
package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// bufferProvider is the unexported implementation of BufferProvider.
type bufferProvider struct {
	// label is a debug label added for convenience.
	label string

	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	// Populated by the device owner during initialization, not by user-creation.
	buffers map[int]*wgpu.Buffer

	// sizes records the requested byte size per binding so the device owner
	// can allocate before any data exists.
	sizes map[int]uint64
}

// BufferProvider describes a set of GPU storage buffers keyed by stable
// binding indices. Components declare their bindings and sizes up front; the
// device owner allocates the buffers and hands them back via SetBuffer.
//
// Usage pattern:
//  1. Component creates a BufferProvider and declares bindings via DeclareBuffer
//  2. The device owner allocates wgpu buffers for each declared binding
//  3. Per frame, the component stages BufferWrite records against bindings
//  4. The device owner flushes staged writes to the queue and dispatches
type BufferProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// DeclareBuffer records that the provider needs a buffer of the given
	// byte size at the given binding. Re-declaring a binding updates its size.
	//
	// Parameters:
	//   - binding: the binding index
	//   - size: the required byte size
	DeclareBuffer(binding int, size uint64)

	// DeclaredSize returns the byte size declared for a binding, or 0.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the declared size in bytes
	DeclaredSize(binding int) uint64

	// Declarations returns the declared sizes keyed by binding index.
	//
	// Returns:
	//   - map[int]uint64: declared sizes per binding
	Declarations() map[int]uint64

	// Buffer returns the GPU buffer for a binding, or nil if not allocated.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns all allocated buffers keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: buffers keyed by binding index
	Buffers() map[int]*wgpu.Buffer

	// SetBuffer stores an allocated GPU buffer for a binding. Called by the
	// device owner after allocation.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the allocated buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// Release releases every GPU buffer held by this provider and clears the
	// binding map. Declarations are kept so the provider can be re-initialized.
	Release()
}

var _ BufferProvider = &bufferProvider{}

// NewBufferProvider creates a BufferProvider with the given debug label.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BufferProvider: the new provider with no declarations
func NewBufferProvider(label string) BufferProvider {
	return &bufferProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
		sizes:   make(map[int]uint64),
	}
}

func (p *bufferProvider) Label() string {
	return p.label
}

func (p *bufferProvider) DeclareBuffer(binding int, size uint64) {
	p.sizes[binding] = size
}

func (p *bufferProvider) DeclaredSize(binding int) uint64 {
	return p.sizes[binding]
}

func (p *bufferProvider) Declarations() map[int]uint64 {
	return p.sizes
}

func (p *bufferProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bufferProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bufferProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bufferProvider) Release() {
	for binding, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, binding)
	}
}
