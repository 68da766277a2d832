package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	// frame holds the swapchain texture and encoder between BeginFrame and Present.
	frame struct {
		encoder *wgpu.CommandEncoder
		texture *wgpu.Texture
		view    *wgpu.TextureView
	}
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend opens a device on an adapter that can present to the window surface.
// The calling goroutine is locked to its OS thread, since GLFW surfaces must be driven from the
// thread that created them.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (RendererBackend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("window has no surface")
	}
	runtime.LockOSThread()

	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	var err error
	b.adapter, err = b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}

	b.device, err = b.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "gemfall",
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.queue = b.device.GetQueue()
	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg, err := surfaceConfiguration(b.surface.GetCapabilities(b.adapter), width, height, b.presentMode)
	if err != nil {
		return err
	}
	b.surfaceFormat = cfg.Format
	b.surface.Configure(b.adapter, b.device, cfg)
	return nil
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = wgpuPresentMode(mode)
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := p.Shader()
	if s == nil {
		return fmt.Errorf("pipeline %s has no shader", p.PipelineKey())
	}
	module, err := b.device.CreateShaderModule(s.Module())
	if err != nil {
		return fmt.Errorf("failed to compile shader %s: %w", s.Key(), err)
	}
	defer module.Release()

	layouts, err := b.createBindGroupLayouts(p)
	if err != nil {
		return err
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("failed to create pipeline layout for %s: %w", p.PipelineKey(), err)
	}
	defer pipelineLayout.Release()

	rp, err := b.device.CreateRenderPipeline(renderPipelineDescriptor(p, pipelineLayout, module))
	if err != nil {
		releaseLayouts(layouts)
		return fmt.Errorf("failed to create render pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(rp, layouts)
	return nil
}

// createBindGroupLayouts creates one layout per group up to the highest group the shader
// declares. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) createBindGroupLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, error) {
	descriptors := p.Shader().BindGroupLayoutDescriptors()
	count := 0
	for g := range descriptors {
		count = max(count, g+1)
	}

	layouts := make([]*wgpu.BindGroupLayout, count)
	for g := range layouts {
		desc := descriptors[g]
		if desc.Label == "" {
			desc.Label = fmt.Sprintf("%s Group %d", p.PipelineKey(), g)
		}
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			releaseLayouts(layouts)
			return nil, fmt.Errorf("failed to create bind group layout %d for %s: %w", g, p.PipelineKey(), err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func releaseLayouts(layouts []*wgpu.BindGroupLayout) {
	for _, l := range layouts {
		if l != nil {
			l.Release()
		}
	}
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(label string, width, height int, format wgpu.TextureFormat, sampleCount uint32) (*renderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         renderTargetUsage(format, sampleCount),
		Dimension:     wgpu.TextureDimension2D,
		Size:          textureSize(uint32(width), uint32(height)),
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   max(1, sampleCount),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render target %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for render target %s: %w", label, err)
	}
	return &renderTarget{texture: tex, view: view, width: width, height: height, format: format}, nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    provider.Label() + " Vertices",
			Contents: vertexData,
			Usage:    wgpu.BufferUsageVertex,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to upload vertices: %w", provider.Label(), err)
		}
		provider.SetVertexBuffer(0, buf)
	}
	if len(indexData) > 0 {
		buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    provider.Label() + " Indices",
			Contents: indexData,
			Usage:    wgpu.BufferUsageIndex,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to upload indices: %w", provider.Label(), err)
		}
		provider.SetIndexBuffer(buf)
	}
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *wgpuRendererBackendImpl) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, slot int, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s Vertex Slot %d", provider.Label(), slot),
		Size:  alignBufferSize(size),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create vertex slot %d: %w", provider.Label(), slot, err)
	}
	provider.SetVertexBuffer(slot, buf)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	layout := p.BindGroupLayout(group)
	if layout == nil {
		return fmt.Errorf("pipeline %s has no layout for group %d", p.PipelineKey(), group)
	}
	layoutDesc := p.Shader().BindGroupLayoutDescriptor(group)

	entries := make([]wgpu.BindGroupEntry, 0, len(layoutDesc.Entries))
	for _, le := range layoutDesc.Entries {
		entry, err := b.bindGroupEntry(provider, le)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create bind group: %w", provider.Label(), err)
	}
	provider.ReleaseBindGroup()
	provider.SetBindGroup(bg)
	return nil
}

// bindGroupEntry resolves one layout entry against the provider's resources, allocating a
// buffer of the layout's minimum size when the provider has none. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) bindGroupEntry(provider bind_group_provider.BindGroupProvider, le wgpu.BindGroupLayoutEntry) (wgpu.BindGroupEntry, error) {
	binding := int(le.Binding)
	entry := wgpu.BindGroupEntry{Binding: le.Binding}

	switch kind := classifyBinding(le); kind {
	case bindingKindTexture:
		if entry.TextureView = provider.TextureView(binding); entry.TextureView == nil {
			return entry, fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
		}
	case bindingKindSampler:
		if entry.Sampler = provider.Sampler(binding); entry.Sampler == nil {
			return entry, fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
		}
	default:
		buf := provider.Buffer(binding)
		if buf == nil {
			if le.Buffer.MinBindingSize == 0 {
				return entry, fmt.Errorf("%s: buffer binding %d has no size", provider.Label(), binding)
			}
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Buffer %d", provider.Label(), binding),
				Size:  le.Buffer.MinBindingSize,
				Usage: kind.bufferUsage(),
			})
			if err != nil {
				return entry, fmt.Errorf("%s: failed to create buffer %d: %w", provider.Label(), binding, err)
			}
			provider.SetBuffer(binding, buf)
		}
		entry.Buffer = buf
		entry.Size = wgpu.WholeSize
	}
	return entry, nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, staging common.TextureStagingData) error {
	if err := staging.Validate(); err != nil {
		return fmt.Errorf("%s: %w", provider.Label(), err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	size := textureSize(staging.Width, staging.Height)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label() + " Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        common.Coalesce(staging.Format, wgpu.TextureFormatRGBA8Unorm),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create texture: %w", provider.Label(), err)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			BytesPerRow:  staging.Width * staging.BytesPerPixel(),
			RowsPerImage: staging.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("%s: failed to create texture view: %w", provider.Label(), err)
	}
	provider.SetTexture(binding, tex)
	provider.SetTextureView(binding, view)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, staging common.SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device.CreateSampler(samplerDescriptor(label, staging))
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if buf := w.Target(); buf != nil && len(w.Data) > 0 {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.texture != nil {
		return errors.New("previous frame was not presented")
	}

	tex, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to create surface view: %w", err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		tex.Release()
		return fmt.Errorf("failed to create command encoder: %w", err)
	}

	b.frame.encoder, b.frame.texture, b.frame.view = encoder, tex, view
	return nil
}

func (b *wgpuRendererBackendImpl) EncodePass(
	label string,
	target passTarget,
	p pipeline.Pipeline,
	bindGroups []bind_group_provider.BindGroupProvider,
	meshProvider bind_group_provider.BindGroupProvider,
	instanceCount uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return fmt.Errorf("%s: no frame in progress", label)
	}
	rp := p.RenderPipeline()
	if rp == nil {
		return fmt.Errorf("%s: pipeline %s is not registered", label, p.PipelineKey())
	}

	pass := b.frame.encoder.BeginRenderPass(renderPassDescriptor(label, target, b.frame.view))
	defer pass.Release()

	pass.SetPipeline(rp)
	for i, bg := range bindGroups {
		pass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	switch {
	case meshProvider == nil:
		// Full-screen triangle generated from the vertex index.
		pass.Draw(3, 1, 0, 0)
	case instanceCount > 0:
		for _, slot := range meshProvider.VertexSlots() {
			pass.SetVertexBuffer(uint32(slot), meshProvider.VertexBuffer(slot), 0, wgpu.WholeSize)
		}
		pass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder := b.frame.encoder
	if encoder == nil {
		return nil
	}
	b.frame.encoder = nil

	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		b.releaseFrame()
		return fmt.Errorf("failed to finish frame: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.texture == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

// releaseFrame drops the current frame's swapchain references. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frame.encoder != nil {
		b.frame.encoder.Release()
		b.frame.encoder = nil
	}
	if b.frame.view != nil {
		b.frame.view.Release()
		b.frame.view = nil
	}
	if b.frame.texture != nil {
		b.frame.texture.Release()
		b.frame.texture = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
