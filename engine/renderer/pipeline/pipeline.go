package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/gemfall/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the configuration for one render pipeline and, once registered, the GPU object.
type pipeline struct {
	pipelineKey string

	shader         shader.Shader
	vertexEntry    string
	fragmentEntry  string
	vertexLayouts  []wgpu.VertexBufferLayout
	targetFormat   wgpu.TextureFormat
	sampleCount    uint32
	depthFormat    wgpu.TextureFormat
	renderPipeline *wgpu.RenderPipeline
	layouts        []*wgpu.BindGroupLayout

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthOnly           bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes a render pipeline: the shader module and entry points, the vertex buffer
// layouts, the color target, and the depth, blend, cull, and topology state used to create it.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the shader module the pipeline draws with.
	Shader() shader.Shader

	// VertexEntryPoint returns the vertex stage entry point.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the fragment stage entry point.
	FragmentEntryPoint() string

	// VertexLayouts returns the vertex buffer layouts in slot order.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: one layout per bound vertex buffer, empty for generated geometry
	VertexLayouts() []wgpu.VertexBufferLayout

	// TargetFormat returns the color attachment format.
	TargetFormat() wgpu.TextureFormat

	// SampleCount returns the multisample count of the color and depth attachments.
	SampleCount() uint32

	// DepthFormat returns the depth attachment format. Only meaningful when depth testing is enabled.
	DepthFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// DepthOnly returns whether the pipeline has no fragment stage and writes depth alone.
	DepthOnly() bool

	// DepthBias returns the constant depth bias configured for this pipeline.
	//
	// Returns:
	//   - int32: the depth bias value
	DepthBias() int32

	// DepthBiasSlopeScale returns the slope-scaled depth bias configured for this pipeline.
	//
	// Returns:
	//   - float32: the slope scale
	DepthBiasSlopeScale() float32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil when blending is disabled
	BlendState() *wgpu.BlendState

	// RenderPipeline returns the GPU pipeline, or nil before registration.
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroupLayout returns the GPU layout created for a bind group at registration.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil if the group is unused or not yet registered
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetRenderPipeline stores the GPU pipeline and the bind group layouts it was created with.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	//   - layouts: bind group layouts indexed by group
	SetRenderPipeline(p *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout)

	// Release frees the GPU pipeline and its layouts.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline description. The shader and a color target format are
// required; entry points default to the shader's first vertex and fragment entries.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - s: the shader module
//   - opts: functional options, see pipeline_builder.go
//
// Returns:
//   - Pipeline: the pipeline description
//   - error: an error if the shader is missing or a named entry point does not exist
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) (Pipeline, error) {
	if s == nil {
		return nil, fmt.Errorf("pipeline %s: shader is required", pipelineKey)
	}
	p := &pipeline{
		pipelineKey:       pipelineKey,
		shader:            s,
		vertexEntry:       s.EntryPoint(shader.ShaderTypeVertex),
		fragmentEntry:     s.EntryPoint(shader.ShaderTypeFragment),
		targetFormat:      wgpu.TextureFormatRGBA16Float,
		sampleCount:       1,
		depthFormat:       wgpu.TextureFormatDepth24Plus,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if !s.HasEntryPoint(shader.ShaderTypeVertex, p.vertexEntry) {
		return nil, fmt.Errorf("pipeline %s: shader %s has no vertex entry %q", pipelineKey, s.Key(), p.vertexEntry)
	}
	if p.depthOnly {
		p.fragmentEntry = ""
		return p, nil
	}
	if !s.HasEntryPoint(shader.ShaderTypeFragment, p.fragmentEntry) {
		return nil, fmt.Errorf("pipeline %s: shader %s has no fragment entry %q", pipelineKey, s.Key(), p.fragmentEntry)
	}
	return p, nil
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) VertexEntryPoint() string {
	return p.vertexEntry
}

func (p *pipeline) FragmentEntryPoint() string {
	return p.fragmentEntry
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.vertexLayouts
}

func (p *pipeline) TargetFormat() wgpu.TextureFormat {
	return p.targetFormat
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthOnly() bool {
	return p.depthOnly
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.layouts) {
		return nil
	}
	return p.layouts[group]
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline, layouts []*wgpu.BindGroupLayout) {
	p.renderPipeline = rp
	p.layouts = layouts
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.layouts = nil
}
