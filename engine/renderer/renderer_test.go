package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/camera"
	"github.com/Carmen-Shannon/gemfall/engine/instance_buffer"
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// encodedPass is what fakeBackend records for every EncodePass.
type encodedPass struct {
	label     string
	target    passTarget
	pipeline  string
	instances uint32
}

// fakeBackend records the renderer's calls without a device. Its targets carry no GPU objects,
// which renderTarget.release and the providers tolerate.
type fakeBackend struct {
	surfaceW, surfaceH int

	// failTargetsAfter makes CreateRenderTarget fail once this many more targets were created.
	// Negative disables it.
	failTargetsAfter int
	targetsCreated   int

	writes []bind_group_provider.BufferWrite
	passes []encodedPass
	frames int
}

var _ RendererBackend = &fakeBackend{}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failTargetsAfter: -1}
}

func (b *fakeBackend) ConfigureSurface(width, height int) error {
	b.surfaceW, b.surfaceH = width, height
	return nil
}

func (b *fakeBackend) SurfaceFormat() wgpu.TextureFormat { return wgpu.TextureFormatBGRA8UnormSrgb }

func (b *fakeBackend) SetPresentMode(mode PresentMode) {}

func (b *fakeBackend) RegisterRenderPipeline(p pipeline.Pipeline) error { return nil }

func (b *fakeBackend) CreateRenderTarget(label string, width, height int, format wgpu.TextureFormat, sampleCount uint32) (*renderTarget, error) {
	if b.failTargetsAfter == 0 {
		return nil, fmt.Errorf("%s: out of memory", label)
	}
	if b.failTargetsAfter > 0 {
		b.failTargetsAfter--
	}
	b.targetsCreated++
	return &renderTarget{width: width, height: height, format: format}, nil
}

func (b *fakeBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	provider.SetIndexCount(indexCount)
	return nil
}

func (b *fakeBackend) InitVertexBuffer(provider bind_group_provider.BindGroupProvider, slot int, size uint64) error {
	return nil
}

func (b *fakeBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, p pipeline.Pipeline, group int) error {
	return nil
}

func (b *fakeBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, staging common.TextureStagingData) error {
	return nil
}

func (b *fakeBackend) CreateSampler(label string, staging common.SamplerStagingData) (*wgpu.Sampler, error) {
	return nil, nil
}

func (b *fakeBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.writes = append(b.writes, writes...)
}

func (b *fakeBackend) BeginFrame() error {
	b.passes = b.passes[:0]
	return nil
}

func (b *fakeBackend) EncodePass(label string, target passTarget, p pipeline.Pipeline, bindGroups []bind_group_provider.BindGroupProvider, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32) error {
	if p == nil {
		return fmt.Errorf("%s: no pipeline", label)
	}
	b.passes = append(b.passes, encodedPass{label: label, target: target, pipeline: p.PipelineKey(), instances: instanceCount})
	return nil
}

func (b *fakeBackend) EndFrame() error {
	b.frames++
	return nil
}

func (b *fakeBackend) Present() {}

func (b *fakeBackend) Release() {}

// writesTo counts the recorded writes to one binding of one provider.
func (b *fakeBackend) writesTo(provider bind_group_provider.BindGroupProvider, binding int) int {
	n := 0
	for _, w := range b.writes {
		if w.Provider == provider && w.Binding == binding {
			n++
		}
	}
	return n
}

func newFakeRenderer(t *testing.T, options ...RendererBuilderOption) (*renderer, *fakeBackend) {
	t.Helper()
	opts := append([]RendererBuilderOption{WithEnvironment(envmap.Studio(16, 8, envmap.DefaultSoftboxes))}, options...)
	r, err := newRenderer(320, 180, mesh.NewBrilliantCut(), opts...)
	if err != nil {
		t.Fatalf("newRenderer: %v", err)
	}
	b := newFakeBackend()
	if err := r.start(b); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(r.Release)
	return r, b
}

func fakeView(t *testing.T, n int) scene.View {
	t.Helper()
	ids := make([]physics.BodyID, n)
	scales := make([]mgl32.Vec3, n)
	colors := make([]float32, 3*n)
	for i := range ids {
		ids[i] = physics.BodyID(i)
		scales[i] = mgl32.Vec3{1, 1, 1}
	}
	buf, err := instance_buffer.NewInstanceBuffer(ids, scales, colors)
	if err != nil {
		t.Fatalf("NewInstanceBuffer: %v", err)
	}
	return scene.View{Camera: camera.NewCamera(), Instances: buf}
}

func passLabels(passes []encodedPass) []string {
	labels := make([]string, len(passes))
	for i, p := range passes {
		labels[i] = p.label
	}
	return labels
}

func TestRenderPassOrder(t *testing.T) {
	r, b := newFakeRenderer(t)
	if err := r.Render(fakeView(t, 3)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	labels := passLabels(b.passes)
	if len(labels) < 4 {
		t.Fatalf("passes = %v", labels)
	}
	want := []string{"Shadow Pass", "Shadow Catcher", "Gem Pass", "Bloom Threshold"}
	for i, w := range want {
		if labels[i] != w {
			t.Fatalf("passes = %v, want prefix %v", labels, want)
		}
	}
	if last := labels[len(labels)-1]; last != "Bloom Composite" {
		t.Errorf("last pass = %s, want Bloom Composite", last)
	}

	shadow, catcher, gem := b.passes[0], b.passes[1], b.passes[2]
	if !shadow.target.depthOnly || shadow.pipeline != PipelineShadowDepth || shadow.instances != 3 {
		t.Errorf("shadow pass = %+v", shadow)
	}
	if catcher.target.load || catcher.pipeline != PipelineShadowCatcher {
		t.Errorf("catcher pass must clear: %+v", catcher)
	}
	if !gem.target.load || gem.instances != 3 {
		t.Errorf("gem pass must load the catcher's color: %+v", gem)
	}
	if catcher.target.color != gem.target.color {
		t.Error("catcher and gem passes draw into different attachments")
	}
}

func TestRenderWithoutShadowsSkipsDepthPass(t *testing.T) {
	r, b := newFakeRenderer(t, WithLight(light.NewDirectionalLight(light.WithCastsShadows(false))))
	if err := r.Render(fakeView(t, 1)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if labels := passLabels(b.passes); labels[0] != "Shadow Catcher" {
		t.Errorf("passes = %v, want the catcher first", labels)
	}
}

func TestInvalidShadowCatcher(t *testing.T) {
	_, err := newRenderer(320, 180, mesh.NewBrilliantCut(), WithShadowCatcher(light.ShadowCatcher{Height: -1, HalfSize: 50, Opacity: 1.5}))
	if err == nil {
		t.Error("opacity above 1 was accepted")
	}
}

func TestColorsUploadedOncePerInstanceBuffer(t *testing.T) {
	r, b := newFakeRenderer(t)
	colorSlot := bind_group_provider.VertexSlot(slotColors)
	transformSlot := bind_group_provider.VertexSlot(slotTransforms)

	view := fakeView(t, 4)
	for i := 0; i < 3; i++ {
		if err := r.Render(view); err != nil {
			t.Fatalf("Render %d: %v", i, err)
		}
	}
	if got := b.writesTo(r.gemMesh, colorSlot); got != 1 {
		t.Errorf("colors written %d times over 3 frames, want 1", got)
	}
	if got := b.writesTo(r.gemMesh, transformSlot); got != 3 {
		t.Errorf("transforms written %d times over 3 frames, want 3", got)
	}

	// A new buffer of the same size reuses the vertex buffers but has its own colors.
	if err := r.Render(fakeView(t, 4)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := b.writesTo(r.gemMesh, colorSlot); got != 2 {
		t.Errorf("colors written %d times after swapping buffers, want 2", got)
	}
}

func TestResizeSwapsTargets(t *testing.T) {
	r, b := newFakeRenderer(t)
	old := r.targets

	r.Resize(640, 360)
	if r.targets == old {
		t.Fatal("targets were not rebuilt")
	}
	if r.width != 640 || r.height != 360 || r.targets.hdr.width != 640 || r.targets.hdr.height != 360 {
		t.Errorf("size = %dx%d, hdr = %dx%d", r.width, r.height, r.targets.hdr.width, r.targets.hdr.height)
	}
	if b.surfaceW != 640 || b.surfaceH != 360 {
		t.Errorf("surface = %dx%d", b.surfaceW, b.surfaceH)
	}
}

func TestResizeFailureKeepsRendering(t *testing.T) {
	r, b := newFakeRenderer(t)
	old := r.targets

	// Fail partway through the new set, after the HDR target but before the bloom chain.
	b.failTargetsAfter = 2
	r.Resize(1280, 720)

	if r.targets != old {
		t.Fatal("a failed resize replaced the targets")
	}
	if r.width != 320 || r.height != 180 {
		t.Errorf("size = %dx%d after a failed resize, want 320x180", r.width, r.height)
	}
	if b.surfaceW != 320 || b.surfaceH != 180 {
		t.Errorf("surface = %dx%d, want it restored to 320x180", b.surfaceW, b.surfaceH)
	}

	b.failTargetsAfter = -1
	if err := r.Render(fakeView(t, 2)); err != nil {
		t.Fatalf("Render after failed resize: %v", err)
	}
	if labels := passLabels(b.passes); labels[len(labels)-1] != "Bloom Composite" {
		t.Errorf("passes = %v", labels)
	}

	// The same size is retried rather than treated as current.
	r.Resize(1280, 720)
	if r.width != 1280 || r.targets == old {
		t.Errorf("retry did not resize: %dx%d", r.width, r.height)
	}
}

func TestRenderRejectsIncompleteView(t *testing.T) {
	r, _ := newFakeRenderer(t)
	err := r.Render(scene.View{})
	if err == nil || !strings.Contains(err.Error(), "camera") {
		t.Errorf("Render(empty view) = %v", err)
	}
}
