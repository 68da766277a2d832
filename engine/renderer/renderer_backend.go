package renderer

import (
	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA)
// of the gem pass. WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// renderTarget is an offscreen texture the frame renders into and later passes read from.
type renderTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   int
	height  int
	format  wgpu.TextureFormat
}

func (t *renderTarget) release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// passTarget describes the attachments of one render pass.
type passTarget struct {
	// color is the attachment drawn into; the current surface view when nil.
	color *wgpu.TextureView
	// resolve receives the multisampled color, nil without MSAA.
	resolve *wgpu.TextureView
	// depth is the depth attachment, nil for full-screen passes.
	depth *wgpu.TextureView
	clear wgpu.Color
	// load keeps the color drawn by an earlier pass instead of clearing it.
	load bool
	// depthOnly renders into depth alone and stores it, as the shadow map pass does.
	depthOnly bool
}

// RendererBackend wraps the WebGPU device, queue and surface behind the operations the
// renderer issues: resource creation, pipeline registration and per-pass encoding.
type RendererBackend interface {
	// ConfigureSurface (re)configures the swapchain for a new size. A present mode the
	// surface cannot do falls back to VSync.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the surface reports no usable configuration
	ConfigureSurface(width, height int) error

	// SurfaceFormat returns the swapchain format chosen at configuration.
	SurfaceFormat() wgpu.TextureFormat

	// SetPresentMode sets the present mode applied at the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the shader module, one bind group layout per reflected group,
	// the pipeline layout and the render pipeline, and stores them on p.
	//
	// Parameters:
	//   - p: the pipeline description
	//
	// Returns:
	//   - error: an error if any GPU object could not be created
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// CreateRenderTarget allocates a 2D texture usable as a render attachment and, when
	// sampleCount is 1, as a texture binding.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: size in pixels
	//   - format: texture format
	//   - sampleCount: MSAA sample count
	//
	// Returns:
	//   - *renderTarget: the target
	//   - error: an error if the texture or view could not be created
	CreateRenderTarget(label string, width, height int, format wgpu.TextureFormat, sampleCount uint32) (*renderTarget, error)

	// InitMeshBuffers uploads mesh vertices to vertex slot 0 and the indices to the index buffer.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitVertexBuffer allocates a writable vertex buffer at a slot.
	InitVertexBuffer(provider bind_group_provider.BindGroupProvider, slot int, size uint64) error

	// InitBindGroup creates uniform buffers for every buffer entry of the group the provider has
	// no buffer for, then creates the bind group from the provider's buffers, views and samplers.
	//
	// Parameters:
	//   - provider: the provider holding the group's resources
	//   - p: a registered pipeline whose layout the group must match
	//   - group: the @group index
	//
	// Returns:
	//   - error: an error if a binding has no resource or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int) error

	// InitTextureView uploads staging pixels into a new texture and binds its view.
	InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, staging common.TextureStagingData) error

	// CreateSampler creates a sampler, filling unset fields with linear clamp-to-edge defaults.
	CreateSampler(label string, staging common.SamplerStagingData) (*wgpu.Sampler, error)

	// WriteBuffers uploads staged writes to the queue. Writes whose target is missing are skipped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and creates the frame's command encoder.
	BeginFrame() error

	// EncodePass records one render pass: a draw of meshProvider's indexed geometry with
	// instanceCount instances, or a full-screen triangle when meshProvider is nil.
	EncodePass(label string, target passTarget, p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32) error

	// EndFrame finishes and submits the frame's command buffer.
	EndFrame() error

	// Present presents the surface and releases the swapchain texture.
	Present()

	// Release frees the device, surface and instance.
	Release()
}
