package renderer

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/instance_buffer"
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/shader"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/Carmen-Shannon/gemfall/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Pipeline keys registered by NewRenderer.
const (
	PipelineGem            = "gem"
	PipelineShadowDepth    = "shadow_depth"
	PipelineShadowCatcher  = "shadow_catcher"
	PipelineBloomThreshold = "bloom_threshold"
	PipelineBloomDown      = "bloom_downsample"
	PipelineBloomUp        = "bloom_upsample"
	PipelineBloomComposite = "bloom_composite"
)

// Bind group slots shared by the gem and bloom shaders.
const (
	bindingCamera = 0
	bindingParams = 1
	bindingEnvMap = 2

	bindingBloomParams  = 0
	bindingBloomTexA    = 1
	bindingBloomTexB    = 2
	bindingBloomSampler = 3

	slotTransforms = 1
	slotColors     = 2
)

// Bind group slots of the shadow depth and catcher shaders.
const (
	bindingShadowData = 0

	bindingCatcherCamera  = 0
	bindingCatcherShadow  = 1
	bindingCatcherMap     = 2
	bindingCatcherSampler = 3
)

const (
	hdrFormat       = wgpu.TextureFormatRGBA16Float
	shadowMapFormat = wgpu.TextureFormatDepth32Float
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	backend       RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
	env                  *envmap.Equirect
	params               refraction.Params
	settings             bloom.Settings
	background           mgl32.Vec3
	light                light.DirectionalLight
	catcher              light.ShadowCatcher

	gem    mesh.Mesh
	width  int
	height int

	// Gem pass resources
	gemGroup    bind_group_provider.BindGroupProvider
	gemMesh     bind_group_provider.BindGroupProvider
	instanceCap int
	// colorsOf is the instance buffer whose colors the color slot holds.
	colorsOf instance_buffer.InstanceBuffer

	// Shadow map and the catcher that samples it
	shadowMap     *renderTarget
	shadowSampler *wgpu.Sampler
	shadowGroup   bind_group_provider.BindGroupProvider
	catcherGroup  bind_group_provider.BindGroupProvider

	sampler *wgpu.Sampler
	// targets holds everything sized to the surface, replaced as a whole on resize.
	targets *frameTargets

	frames uint64
}

// frameTargets are the size-dependent render targets and the bloom passes that read them.
type frameTargets struct {
	width, height int

	hdr     *renderTarget
	hdrMSAA *renderTarget
	depth   *renderTarget

	down   []*renderTarget
	up     []*renderTarget
	passes []bloomPass
}

// release frees every target and bloom bind group. Safe on nil and on partly built sets.
func (t *frameTargets) release() {
	if t == nil {
		return
	}
	for _, p := range t.passes {
		p.provider.Release()
	}
	t.passes = nil
	for _, rt := range t.down {
		rt.release()
	}
	for _, rt := range t.up {
		rt.release()
	}
	t.down, t.up = nil, nil
	t.hdr.release()
	t.hdrMSAA.release()
	t.depth.release()
	t.hdr, t.hdrMSAA, t.depth = nil, nil, nil
}

// color is the attachment the catcher and gem passes draw into.
func (t *frameTargets) color() *wgpu.TextureView {
	if t.hdrMSAA != nil {
		return t.hdrMSAA.view
	}
	return t.hdr.view
}

// bloomPass is one full-screen pass of the bloom chain.
type bloomPass struct {
	label    string
	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider
	// target is the view drawn into, nil for the surface.
	target *wgpu.TextureView
}

// Renderer draws the gem scene with WebGPU. The gems are drawn into a shadow map from the
// light, a full-screen pass paints the background with the shadows on the catcher plane, the
// instanced refraction pass draws the gems over it into an HDR target, and the bloom chain
// composites the result onto the window surface.
//
// The renderer owns a cache of pipelines keyed by name. NewRenderer registers the gem and bloom
// pipelines; Pipeline exposes them for inspection.
type Renderer interface {
	scene.Renderer

	// Pipeline retrieves the cached Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Frames returns the number of frames presented.
	Frames() uint64

	// Release frees every GPU resource and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a WebGPU renderer that presents to win.
//
// Parameters:
//   - win: the window whose surface is drawn to
//   - gem: the mesh drawn for every instance
//   - options: functional options, see renderer_builder.go
//
// Returns:
//   - Renderer: the renderer
//   - error: a *refraction.ShaderParameterError or *bloom.ParameterError for invalid settings,
//     or an error if the device, a shader or a GPU resource cannot be created
func NewRenderer(win window.Window, gem mesh.Mesh, options ...RendererBuilderOption) (Renderer, error) {
	if win == nil {
		return nil, fmt.Errorf("renderer needs a window and a mesh")
	}
	r, err := newRenderer(win.Width(), win.Height(), gem, options...)
	if err != nil {
		return nil, err
	}
	backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	if err := r.start(backend); err != nil {
		return nil, err
	}
	return r, nil
}

// newRenderer applies the options and validates the settings without touching a device.
func newRenderer(width, height int, gem mesh.Mesh, options ...RendererBuilderOption) (*renderer, error) {
	if gem == nil {
		return nil, fmt.Errorf("renderer needs a window and a mesh")
	}
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		presentMode:   PresentModeVSync,
		msaa:          MSAA4x,
		params:        refraction.DefaultParams(),
		settings:      bloom.DefaultSettings(),
		background:    mgl32.Vec3{0.871, 0.871, 0.871},
		catcher:       light.DefaultShadowCatcher(),
		gem:           gem,
		width:         width,
		height:        height,
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.params.Validate(); err != nil {
		return nil, err
	}
	if err := r.settings.Validate(); err != nil {
		return nil, err
	}
	if r.catcher.Opacity < 0 || r.catcher.Opacity > 1 || r.catcher.HalfSize < 0 {
		return nil, fmt.Errorf("invalid shadow catcher %+v", r.catcher)
	}
	if r.env == nil {
		r.env = envmap.Studio(512, 256, envmap.DefaultSoftboxes)
	}
	if r.light == nil {
		r.light = light.NewDirectionalLight()
	}
	return r, nil
}

// start configures the surface on backend and creates every GPU resource. The backend is
// released on failure.
func (r *renderer) start(backend RendererBackend) error {
	r.backend = backend
	r.backend.SetPresentMode(r.presentMode)
	if err := r.backend.ConfigureSurface(r.width, r.height); err != nil {
		r.Release()
		return fmt.Errorf("failed to configure surface: %w", err)
	}

	if err := r.init(); err != nil {
		r.Release()
		return err
	}
	log.Printf("[Renderer] surface %dx%d format %v, msaa %dx, bloom %d levels, shadows %v", r.width, r.height, r.backend.SurfaceFormat(), r.msaa, r.settings.Levels, r.light.CastsShadows())
	return nil
}

// init registers the pipelines and creates every size-independent resource, then the targets.
func (r *renderer) init() error {
	gemShader, err := shader.NewShader("refraction", refraction.ShaderSource)
	if err != nil {
		return err
	}
	bloomShader, err := shader.NewShader("bloom", bloom.ShaderSource)
	if err != nil {
		return err
	}
	depthShader, err := shader.NewShader("shadow_depth", light.ShadowDepthShaderSource)
	if err != nil {
		return err
	}
	catcherShader, err := shader.NewShader("shadow_catcher", light.ShadowCatcherShaderSource)
	if err != nil {
		return err
	}

	gemLayouts := append([]wgpu.VertexBufferLayout{mesh.VertexBufferLayout()}, instance_buffer.VertexBufferLayouts()...)
	gemPipeline, err := pipeline.NewPipeline(PipelineGem, gemShader,
		pipeline.WithVertexLayouts(gemLayouts...),
		pipeline.WithSampleCount(uint32(r.msaa)),
		pipeline.WithTargetFormat(hdrFormat),
	)
	if err != nil {
		return err
	}
	depthPipeline, err := pipeline.NewPipeline(PipelineShadowDepth, depthShader,
		pipeline.WithVertexLayouts(gemLayouts...),
		pipeline.WithDepthOnly(),
		pipeline.WithDepthFormat(shadowMapFormat),
		pipeline.WithDepthBias(2, 2),
	)
	if err != nil {
		return err
	}
	catcherPipeline, err := pipeline.NewPipeline(PipelineShadowCatcher, catcherShader,
		pipeline.WithSampleCount(uint32(r.msaa)),
		pipeline.WithTargetFormat(hdrFormat),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
	)
	if err != nil {
		return err
	}
	fullscreen := func(key, fragment string, format wgpu.TextureFormat) (pipeline.Pipeline, error) {
		return pipeline.NewPipeline(key, bloomShader,
			pipeline.WithEntryPoints("vs_fullscreen", fragment),
			pipeline.WithTargetFormat(format),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
		)
	}
	pipelines := []pipeline.Pipeline{gemPipeline, depthPipeline, catcherPipeline}
	for _, def := range []struct {
		key, fragment string
		format        wgpu.TextureFormat
	}{
		{PipelineBloomThreshold, "fs_threshold", hdrFormat},
		{PipelineBloomDown, "fs_downsample", hdrFormat},
		{PipelineBloomUp, "fs_upsample", hdrFormat},
		{PipelineBloomComposite, "fs_composite", r.backend.SurfaceFormat()},
	} {
		p, err := fullscreen(def.key, def.fragment, def.format)
		if err != nil {
			return err
		}
		pipelines = append(pipelines, p)
	}
	if err := r.RegisterPipelines(pipelines...); err != nil {
		return err
	}

	// Gem pass: camera and material uniforms plus the radiance map in group 0.
	r.gemGroup = bind_group_provider.NewBindGroupProvider("Gem Group")
	if err := r.backend.InitTextureView(r.gemGroup, bindingEnvMap, r.env.Staging()); err != nil {
		return fmt.Errorf("failed to upload environment: %w", err)
	}
	if err := r.backend.InitBindGroup(r.gemGroup, gemPipeline, 0); err != nil {
		return err
	}
	u := refraction.NewGPURefractionUniform(r.params)
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: r.gemGroup, Binding: bindingParams, Data: u.Marshal()},
	})

	r.gemMesh = bind_group_provider.NewBindGroupProvider("Gem Mesh")
	if err := r.backend.InitMeshBuffers(r.gemMesh, r.gem.VertexData(), r.gem.IndexData(), r.gem.IndexCount()); err != nil {
		return err
	}

	r.sampler, err = r.backend.CreateSampler("Bloom Sampler", common.SamplerStagingData{})
	if err != nil {
		return err
	}

	if err := r.initShadows(depthPipeline, catcherPipeline); err != nil {
		return err
	}

	r.targets, err = r.buildTargets(r.width, r.height)
	return err
}

// initShadows creates the shadow map, its comparison sampler and the bind groups of the depth
// and catcher passes. The light and the catcher are fixed for the renderer's lifetime, so their
// uniform is written once here.
func (r *renderer) initShadows(depthPipeline, catcherPipeline pipeline.Pipeline) error {
	res := r.light.ShadowMapResolution()
	var err error
	r.shadowMap, err = r.backend.CreateRenderTarget("Shadow Map", res, res, shadowMapFormat, 1)
	if err != nil {
		return err
	}
	r.shadowSampler, err = r.backend.CreateSampler("Shadow Sampler", common.SamplerStagingData{
		MipmapFilter: wgpu.MipmapFilterModeNearest,
		Compare:      wgpu.CompareFunctionLessEqual,
	})
	if err != nil {
		return err
	}

	r.shadowGroup = bind_group_provider.NewBindGroupProvider("Shadow Depth Group")
	if err := r.backend.InitBindGroup(r.shadowGroup, depthPipeline, 0); err != nil {
		return err
	}
	r.catcherGroup = bind_group_provider.NewBindGroupProvider("Shadow Catcher Group",
		bind_group_provider.WithSharedTextureView(bindingCatcherMap, r.shadowMap.view),
		bind_group_provider.WithSharedSampler(bindingCatcherSampler, r.shadowSampler),
	)
	if err := r.backend.InitBindGroup(r.catcherGroup, catcherPipeline, 0); err != nil {
		return err
	}

	u := light.NewGPUShadowData(r.light, r.catcher, r.background)
	data := u.Marshal()
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: r.shadowGroup, Binding: bindingShadowData, Data: data},
		{Provider: r.catcherGroup, Binding: bindingCatcherShadow, Data: data},
	})
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

// RegisterPipelines creates the GPU objects for pipelines not yet in the cache and caches them.
//
// Parameters:
//   - pipelines: the Pipelines to register
//
// Returns:
//   - error: an error if pipeline creation fails
func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		if _, ok := r.pipelineCache[p.PipelineKey()]; ok {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("failed to register pipeline %s: %w", p.PipelineKey(), err)
		}
		r.pipelineCache[p.PipelineKey()] = p
	}
	return nil
}

// buildTargets creates a complete set of size-dependent targets and the bloom bind groups that
// read them. On failure everything created so far is released and the current set is untouched.
func (r *renderer) buildTargets(width, height int) (*frameTargets, error) {
	t := &frameTargets{width: width, height: height}
	if err := r.fillTargets(t); err != nil {
		t.release()
		return nil, err
	}
	return t, nil
}

func (r *renderer) fillTargets(t *frameTargets) error {
	var err error
	t.hdr, err = r.backend.CreateRenderTarget("HDR Color", t.width, t.height, hdrFormat, 1)
	if err != nil {
		return err
	}
	if r.msaa > 1 {
		t.hdrMSAA, err = r.backend.CreateRenderTarget("HDR Color MSAA", t.width, t.height, hdrFormat, uint32(r.msaa))
		if err != nil {
			return err
		}
	}
	t.depth, err = r.backend.CreateRenderTarget("Depth", t.width, t.height, wgpu.TextureFormatDepth24Plus, uint32(r.msaa))
	if err != nil {
		return err
	}

	sizes := bloom.MipSizes(t.width, t.height, r.settings.Levels)
	last := len(sizes) - 1
	t.down = make([]*renderTarget, len(sizes))
	t.up = make([]*renderTarget, last)
	for l, sz := range sizes {
		t.down[l], err = r.backend.CreateRenderTarget(fmt.Sprintf("Bloom Down %d", l), sz[0], sz[1], hdrFormat, 1)
		if err != nil {
			return err
		}
		if l < last {
			t.up[l], err = r.backend.CreateRenderTarget(fmt.Sprintf("Bloom Up %d", l), sz[0], sz[1], hdrFormat, 1)
			if err != nil {
				return err
			}
		}
	}

	return r.buildBloomPasses(t)
}

// buildBloomPasses wires the chain the CPU bloom runs: threshold into level 0, box downsample to
// the coarsest level, then upsample-add back to level 0 and composite onto the surface.
func (r *renderer) buildBloomPasses(t *frameTargets) error {
	last := len(t.down) - 1
	// accumulated returns the finished glow at level l.
	accumulated := func(l int) *wgpu.TextureView {
		if l == last {
			return t.down[last].view
		}
		return t.up[l].view
	}

	add := func(label, key string, target, a, b *wgpu.TextureView) {
		t.passes = append(t.passes, bloomPass{
			label:    label,
			pipeline: r.pipelineCache[key],
			provider: bind_group_provider.NewBindGroupProvider(label,
				bind_group_provider.WithSharedTextureView(bindingBloomTexA, a),
				bind_group_provider.WithSharedTextureView(bindingBloomTexB, b),
				bind_group_provider.WithSharedSampler(bindingBloomSampler, r.sampler),
			),
			target: target,
		})
	}

	add("Bloom Threshold", PipelineBloomThreshold, t.down[0].view, t.hdr.view, t.hdr.view)
	for l := 1; l <= last; l++ {
		src := t.down[l-1].view
		add(fmt.Sprintf("Bloom Downsample %d", l), PipelineBloomDown, t.down[l].view, src, src)
	}
	for l := last - 1; l >= 0; l-- {
		add(fmt.Sprintf("Bloom Upsample %d", l), PipelineBloomUp, t.up[l].view, t.down[l].view, accumulated(l+1))
	}
	add("Bloom Composite", PipelineBloomComposite, nil, t.hdr.view, accumulated(0))

	u := bloom.NewGPUBloomUniform(r.settings, !isSRGB(r.backend.SurfaceFormat()))
	data := u.Marshal()
	writes := make([]bind_group_provider.BufferWrite, 0, len(t.passes))
	for _, p := range t.passes {
		if err := r.backend.InitBindGroup(p.provider, p.pipeline, 0); err != nil {
			return err
		}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: p.provider, Binding: bindingBloomParams, Data: data})
	}
	r.backend.WriteBuffers(writes)
	return nil
}

// isSRGB reports whether the surface encodes to sRGB on store.
func isSRGB(format wgpu.TextureFormat) bool {
	switch format {
	case wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb:
		return true
	}
	return false
}

// ensureInstanceCapacity grows the per-instance vertex buffers to hold inst and uploads its
// colors, which are fixed for the life of an instance buffer. Nothing is written when the
// buffers are already sized for inst.
func (r *renderer) ensureInstanceCapacity(inst instance_buffer.InstanceBuffer) error {
	n := inst.Len()
	if n > r.instanceCap {
		var g instance_buffer.GPUInstance
		if err := r.backend.InitVertexBuffer(r.gemMesh, slotTransforms, uint64(n*g.Size())); err != nil {
			return err
		}
		if err := r.backend.InitVertexBuffer(r.gemMesh, slotColors, uint64(n*instance_buffer.ColorStride)); err != nil {
			return err
		}
		r.instanceCap = n
		r.colorsOf = nil
	}
	if r.colorsOf != inst {
		r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
			{Provider: r.gemMesh, Binding: bind_group_provider.VertexSlot(slotColors), Data: inst.ColorBytes()},
		})
		r.colorsOf = inst
	}
	return nil
}

func (r *renderer) Render(view scene.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if view.Camera == nil || view.Instances == nil {
		return fmt.Errorf("render: view needs a camera and instances")
	}
	if r.targets == nil {
		return fmt.Errorf("render: renderer has no targets")
	}
	n := view.Instances.Len()
	if err := r.ensureInstanceCapacity(view.Instances); err != nil {
		return err
	}

	cam := view.Camera.Uniform()
	camData := cam.Marshal()
	r.backend.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: r.gemGroup, Binding: bindingCamera, Data: camData},
		{Provider: r.catcherGroup, Binding: bindingCatcherCamera, Data: camData},
		{Provider: r.gemMesh, Binding: bind_group_provider.VertexSlot(slotTransforms), Data: view.Instances.TransformBytes()},
	})

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	if err := r.encodeScene(uint32(n)); err != nil {
		r.abortFrame()
		return err
	}

	if err := r.backend.EndFrame(); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	r.backend.Present()
	r.frames++
	return nil
}

// encodeScene records the shadow map, the catcher, the gems and the bloom chain. Caller holds r.mu.
func (r *renderer) encodeScene(n uint32) error {
	t := r.targets
	if r.light.CastsShadows() {
		if err := r.backend.EncodePass("Shadow Pass", passTarget{depth: r.shadowMap.view, depthOnly: true},
			r.pipelineCache[PipelineShadowDepth], []bind_group_provider.BindGroupProvider{r.shadowGroup}, r.gemMesh, n); err != nil {
			return err
		}
	}

	// The catcher clears to the background and darkens the shadowed ground; the gems load it.
	catcherTarget := passTarget{
		color: t.color(),
		clear: wgpu.Color{R: float64(r.background[0]), G: float64(r.background[1]), B: float64(r.background[2]), A: 1},
	}
	if err := r.backend.EncodePass("Shadow Catcher", catcherTarget, r.pipelineCache[PipelineShadowCatcher],
		[]bind_group_provider.BindGroupProvider{r.catcherGroup}, nil, 0); err != nil {
		return err
	}

	gemTarget := passTarget{color: t.color(), depth: t.depth.view, load: true}
	if t.hdrMSAA != nil {
		gemTarget.resolve = t.hdr.view
	}
	if err := r.backend.EncodePass("Gem Pass", gemTarget, r.pipelineCache[PipelineGem],
		[]bind_group_provider.BindGroupProvider{r.gemGroup}, r.gemMesh, n); err != nil {
		return err
	}

	for _, p := range t.passes {
		if err := r.backend.EncodePass(p.label, passTarget{color: p.target}, p.pipeline,
			[]bind_group_provider.BindGroupProvider{p.provider}, nil, 0); err != nil {
			return err
		}
	}
	return nil
}

// abortFrame submits whatever was encoded and presents so the swapchain image is returned.
func (r *renderer) abortFrame() {
	if err := r.backend.EndFrame(); err != nil {
		log.Printf("[Renderer] aborting frame: %v", err)
	}
	r.backend.Present()
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil || (width == r.width && height == r.height) {
		return
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		log.Printf("[Renderer] failed to configure surface at %dx%d: %v", width, height, err)
		return
	}
	t, err := r.buildTargets(width, height)
	if err != nil {
		log.Printf("[Renderer] failed to rebuild targets at %dx%d, keeping %dx%d: %v", width, height, r.width, r.height, err)
		if err := r.backend.ConfigureSurface(r.width, r.height); err != nil {
			log.Printf("[Renderer] failed to restore surface at %dx%d: %v", r.width, r.height, err)
		}
		return
	}
	r.targets.release()
	r.targets = t
	r.width, r.height = width, height
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return
	}
	r.targets.release()
	r.targets = nil
	r.shadowMap.release()
	r.shadowMap = nil
	for _, smp := range []*wgpu.Sampler{r.sampler, r.shadowSampler} {
		if smp != nil {
			smp.Release()
		}
	}
	r.sampler, r.shadowSampler = nil, nil
	for _, g := range []bind_group_provider.BindGroupProvider{r.shadowGroup, r.catcherGroup} {
		if g != nil {
			g.Release()
		}
	}
	if r.gemGroup != nil {
		r.gemGroup.Release()
	}
	if r.gemMesh != nil {
		r.gemMesh.Release()
	}
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
	r.backend = nil
}
