package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	label string

	// GPU resources below are populated by the renderer, not by the caller.

	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	textures     map[int]*wgpu.Texture
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// shared marks texture views and samplers owned by another provider or render target.
	// Release leaves them alone.
	sharedViews    map[int]bool
	sharedSamplers map[int]bool

	// Vertex input for instanced draws, keyed by vertex buffer slot.
	vertexBuffers map[int]*wgpu.Buffer
	indexBuffer   *wgpu.Buffer
	indexCount    int
}

// BindGroupProvider owns the GPU resources behind one bind group and, for mesh providers, the
// vertex and index buffers of an instanced draw.
//
// Usage pattern:
//  1. Create a provider with a label
//  2. The renderer creates its buffers, textures and samplers (InitBindGroup, InitTextureView, InitSampler)
//  3. The renderer writes uniform data through BufferWrite values each frame
//  4. Draw calls read BindGroup() and the vertex buffers
//  5. Release frees everything the provider owns
type BindGroupProvider interface {
	// Release releases every GPU resource this provider owns. Shared views and samplers are
	// only dropped from the provider.
	Release()

	// ReleaseBindGroup releases only the bind group so it can be rebuilt around new views,
	// for example after a resize.
	ReleaseBindGroup()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil if it has not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the GPU bind group
	BindGroup() *wgpu.BindGroup

	// Buffer returns the buffer at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if not set
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil if not set
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler, or nil if not set
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer returns the vertex buffer bound at a slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if not set
	VertexBuffer(slot int) *wgpu.Buffer

	// VertexSlots returns the occupied vertex buffer slots in ascending order.
	//
	// Returns:
	//   - []int: the slots
	VertexSlots() []int

	// IndexBuffer returns the index buffer, or nil if not set.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices drawn per instance.
	IndexCount() int

	SetBindGroup(bg *wgpu.BindGroup)
	SetBuffer(binding int, buf *wgpu.Buffer)
	SetTexture(binding int, tex *wgpu.Texture)
	SetTextureView(binding int, tv *wgpu.TextureView)
	SetSampler(binding int, s *wgpu.Sampler)
	SetVertexBuffer(slot int, buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer)
	SetIndexCount(count int)

	// ShareTextureView binds a view owned elsewhere. Release does not free it.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the shared view
	ShareTextureView(binding int, tv *wgpu.TextureView)

	// ShareSampler binds a sampler owned elsewhere. Release does not free it.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the shared sampler
	ShareSampler(binding int, s *wgpu.Sampler)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: a debug label used for GPU object labels
//   - options: functional options, see bind_group_provider_builder.go
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:          label,
		buffers:        make(map[int]*wgpu.Buffer),
		textures:       make(map[int]*wgpu.Texture),
		textureViews:   make(map[int]*wgpu.TextureView),
		samplers:       make(map[int]*wgpu.Sampler),
		sharedViews:    make(map[int]bool),
		sharedSamplers: make(map[int]bool),
		vertexBuffers:  make(map[int]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) VertexBuffer(slot int) *wgpu.Buffer {
	return p.vertexBuffers[slot]
}

func (p *bindGroupProvider) VertexSlots() []int {
	slots := make([]int, 0, len(p.vertexBuffers))
	for s := range p.vertexBuffers {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	return slots
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture) {
	if old := p.textures[binding]; old != nil && old != tex {
		old.Release()
	}
	p.textures[binding] = tex
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.dropView(binding, tv)
	p.textureViews[binding] = tv
	delete(p.sharedViews, binding)
}

func (p *bindGroupProvider) ShareTextureView(binding int, tv *wgpu.TextureView) {
	p.dropView(binding, tv)
	p.textureViews[binding] = tv
	p.sharedViews[binding] = true
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.dropSampler(binding, s)
	p.samplers[binding] = s
	delete(p.sharedSamplers, binding)
}

func (p *bindGroupProvider) ShareSampler(binding int, s *wgpu.Sampler) {
	p.dropSampler(binding, s)
	p.samplers[binding] = s
	p.sharedSamplers[binding] = true
}

func (p *bindGroupProvider) SetVertexBuffer(slot int, buf *wgpu.Buffer) {
	if old := p.vertexBuffers[slot]; old != nil && old != buf {
		old.Release()
	}
	p.vertexBuffers[slot] = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	if p.indexBuffer != nil && p.indexBuffer != buf {
		p.indexBuffer.Release()
	}
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

// dropView releases the owned view at binding unless it is being replaced by itself.
func (p *bindGroupProvider) dropView(binding int, next *wgpu.TextureView) {
	if old := p.textureViews[binding]; old != nil && old != next && !p.sharedViews[binding] {
		old.Release()
	}
}

func (p *bindGroupProvider) dropSampler(binding int, next *wgpu.Sampler) {
	if old := p.samplers[binding]; old != nil && old != next && !p.sharedSamplers[binding] {
		old.Release()
	}
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.ReleaseBindGroup()
	for i, tv := range p.textureViews {
		if tv != nil && !p.sharedViews[i] {
			tv.Release()
		}
		delete(p.textureViews, i)
		delete(p.sharedViews, i)
	}
	for i, tex := range p.textures {
		if tex != nil {
			tex.Release()
		}
		delete(p.textures, i)
	}
	for i, s := range p.samplers {
		if s != nil && !p.sharedSamplers[i] {
			s.Release()
		}
		delete(p.samplers, i)
		delete(p.sharedSamplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	for i, buf := range p.vertexBuffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.vertexBuffers, i)
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}
