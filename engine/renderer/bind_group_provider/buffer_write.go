package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BufferWrite is one queued upload into a provider's buffer. Binding selects the uniform buffer
// at that binding; a negative Binding selects vertex buffer slot -Binding-1 instead, so
// per-instance data can be staged alongside uniforms.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// VertexSlot returns the Binding value that addresses a vertex buffer slot.
//
// Parameters:
//   - slot: the vertex buffer slot
//
// Returns:
//   - int: the encoded binding
func VertexSlot(slot int) int {
	return -slot - 1
}

// Target resolves the write to its destination buffer, or nil when the provider has none there.
func (w BufferWrite) Target() *wgpu.Buffer {
	if w.Provider == nil {
		return nil
	}
	if w.Binding < 0 {
		return w.Provider.VertexBuffer(-w.Binding - 1)
	}
	return w.Provider.Buffer(w.Binding)
}
