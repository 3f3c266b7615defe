package gpu

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BufferProvider at a given byte offset.
type BufferWrite struct {
	Provider BufferProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
