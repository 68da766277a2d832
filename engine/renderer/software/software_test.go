package software

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/camera"
	"github.com/Carmen-Shannon/gemfall/engine/instance_buffer"
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	testWidth  = 64
	testHeight = 36
)

func near(a, b, eps float32) bool {
	d := a - b
	return d <= eps && d >= -eps
}

func testView(t *testing.T) scene.View {
	t.Helper()
	cam := camera.NewCamera(
		camera.WithAspect(float32(testWidth)/float32(testHeight)),
		camera.WithController(camera.NewCameraController(camera.WithEyePosition(0, 0, 5))),
	)
	buf, err := instance_buffer.NewInstanceBuffer(
		[]physics.BodyID{0},
		[]mgl32.Vec3{{1, 1, 1}},
		[]float32{1, 1, 1},
	)
	if err != nil {
		t.Fatalf("NewInstanceBuffer: %v", err)
	}
	return scene.View{Camera: cam, Instances: buf}
}

func newTestRenderer(t *testing.T, options ...RendererBuilderOption) Renderer {
	t.Helper()
	opts := append([]RendererBuilderOption{WithSize(testWidth, testHeight)}, options...)
	r, err := NewRenderer(mesh.NewBrilliantCut(), opts...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestHitTriangle(t *testing.T) {
	a, b, c := mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{1, -1, 0}, mgl32.Vec3{0, 1, 0}
	tri := &triangle{a: a, e1: b.Sub(a), e2: c.Sub(a)}

	tests := []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		hit    bool
		dist   float32
	}{
		{"front", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, true, 5},
		{"back face", mgl32.Vec3{0, 0, -2}, mgl32.Vec3{0, 0, 1}, true, 2},
		{"outside edge", mgl32.Vec3{2, 0, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"pointing away", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}, false, 0},
		{"parallel", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{1, 0, 0}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := hitTriangle(ray{origin: tt.origin, dir: tt.dir}, tri)
			if ok != tt.hit {
				t.Fatalf("hit = %v, want %v", ok, tt.hit)
			}
			if ok && !near(d, tt.dist, 1e-5) {
				t.Errorf("distance = %v, want %v", d, tt.dist)
			}
		})
	}
}

func TestHitSphere(t *testing.T) {
	r := ray{origin: mgl32.Vec3{0, 0, 5}, dir: mgl32.Vec3{0, 0, -1}}
	if !hitSphere(r, mgl32.Vec3{}, 1, 100) {
		t.Error("ray through the center missed")
	}
	if hitSphere(r, mgl32.Vec3{3, 0, 0}, 1, 100) {
		t.Error("ray hit a sphere it passes beside")
	}
	if hitSphere(r, mgl32.Vec3{}, 1, 2) {
		t.Error("sphere beyond tMax reported as hit")
	}
}

func TestRenderShadesGemAndBackground(t *testing.T) {
	bg := mgl32.Vec3{0.2, 0.3, 0.4}
	r := newTestRenderer(t,
		WithEnvironment(envmap.Constant{Color: mgl32.Vec3{0.5, 0.5, 0.5}}),
		WithBloom(bloom.Settings{Threshold: 100, Intensity: 1, Levels: 3}),
		WithBackground(bg),
	)
	if err := r.Render(testView(t)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	hdr := r.HDR()
	center := hdr.At(testWidth/2, testHeight/2)
	for i := 0; i < 3; i++ {
		if !near(center[i], 0.5, 1e-4) {
			t.Fatalf("gem pixel = %v, want 0.5 grey from a constant environment", center)
		}
	}
	if corner := hdr.At(0, 0); !corner.ApproxEqualThreshold(bg, 1e-6) {
		t.Errorf("corner pixel = %v, want background %v", corner, bg)
	}
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want 1", r.Frames())
	}
}

func TestBloomSpillsPastSilhouette(t *testing.T) {
	bg := mgl32.Vec3{0.1, 0.1, 0.1}
	r := newTestRenderer(t,
		WithEnvironment(envmap.Constant{Color: mgl32.Vec3{8, 8, 8}}),
		WithBloom(bloom.Settings{Threshold: 2, Intensity: 1.5, Levels: 4}),
		WithBackground(bg),
	)
	if err := r.Render(testView(t)); err != nil {
		t.Fatal(err)
	}

	hdr := r.HDR()
	y := testHeight / 2
	edge := -1
	for x := 0; x < testWidth; x++ {
		if hdr.At(x, y)[0] > 2 {
			edge = x
			break
		}
	}
	if edge < 3 {
		t.Fatalf("no bright gem found on the center row (edge %d)", edge)
	}
	if got := hdr.At(edge-2, y)[0]; got <= bg[0] {
		t.Errorf("pixel beside the gem = %v, want glow above background %v", got, bg[0])
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	env := envmap.Studio(64, 32, envmap.DefaultSoftboxes)
	serial := newTestRenderer(t, WithEnvironment(env))
	parallel := newTestRenderer(t, WithEnvironment(env), WithWorkers(4))

	view := testView(t)
	if err := serial.Render(view); err != nil {
		t.Fatal(err)
	}
	if err := parallel.Render(view); err != nil {
		t.Fatal(err)
	}

	a, b := serial.Image().Pix, parallel.Image().Pix
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d differs: serial %d, parallel %d", i, a[i], b[i])
		}
	}
}

func TestSavePNG(t *testing.T) {
	r := newTestRenderer(t)
	if err := r.Render(testView(t)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := r.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != testWidth || b.Dy() != testHeight {
		t.Errorf("snapshot is %dx%d, want %dx%d", b.Dx(), b.Dy(), testWidth, testHeight)
	}
}

func TestResize(t *testing.T) {
	r := newTestRenderer(t)
	r.Resize(32, 16)
	if err := r.Render(testView(t)); err != nil {
		t.Fatal(err)
	}
	if b := r.Image().Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("image is %dx%d after resize", b.Dx(), b.Dy())
	}
	if hdr := r.HDR(); hdr.Width != 32 || hdr.Height != 16 {
		t.Errorf("hdr frame is %dx%d after resize", hdr.Width, hdr.Height)
	}
}

func TestCatcherShowsGemShadow(t *testing.T) {
	bg := mgl32.Vec3{0.8, 0.8, 0.8}
	overhead := light.NewDirectionalLight(light.WithPosition(0, 5, 0))
	catcher := light.ShadowCatcher{Height: -2, HalfSize: 50, Opacity: 0.25}
	r := newTestRenderer(t, WithBackground(bg), WithLight(overhead), WithShadowCatcher(catcher)).(*renderer)
	if err := r.Render(testView(t)); err != nil {
		t.Fatal(err)
	}

	down := mgl32.Vec3{0, -1, 0}
	under := r.ground(ray{origin: mgl32.Vec3{0.01, 5, 0.01}, dir: down})
	if want := bg.Mul(0.75); !under.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("ground under the gem = %v, want %v", under, want)
	}
	if far := r.ground(ray{origin: mgl32.Vec3{20, 5, 0}, dir: down}); far != bg {
		t.Errorf("lit ground = %v, want background %v", far, bg)
	}
	if sky := r.ground(ray{origin: mgl32.Vec3{0, 5, 0}, dir: mgl32.Vec3{0, 1, 0}}); sky != bg {
		t.Errorf("ray missing the catcher = %v, want background %v", sky, bg)
	}

	unlit := newTestRenderer(t, WithBackground(bg), WithShadowCatcher(catcher),
		WithLight(light.NewDirectionalLight(light.WithPosition(0, 5, 0), light.WithCastsShadows(false)))).(*renderer)
	if err := unlit.Render(testView(t)); err != nil {
		t.Fatal(err)
	}
	if got := unlit.ground(ray{origin: mgl32.Vec3{0.01, 5, 0.01}, dir: down}); got != bg {
		t.Errorf("light without shadows darkened the ground: %v", got)
	}
}

func TestGemOutsideViewStillCastsShadow(t *testing.T) {
	cam := camera.NewCamera(
		camera.WithAspect(float32(testWidth)/float32(testHeight)),
		camera.WithController(camera.NewCameraController(camera.WithEyePosition(0, 0, 5))),
	)
	// Behind the camera, so no camera ray tests it.
	buf, err := instance_buffer.NewInstanceBuffer([]physics.BodyID{0}, []mgl32.Vec3{{1, 1, 1}}, []float32{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	row := buf.Row(0)
	row[12], row[13], row[14] = 0, 0, 20

	bg := mgl32.Vec3{0.5, 0.5, 0.5}
	r := newTestRenderer(t, WithBackground(bg), WithLight(light.NewDirectionalLight(
		light.WithPosition(0, 5, 20), light.WithTarget(0, 0, 20),
	))).(*renderer)
	if err := r.Render(scene.View{Camera: cam, Instances: buf}); err != nil {
		t.Fatal(err)
	}
	if len(r.geom.visible) != 0 || len(r.geom.casters) != 1 {
		t.Fatalf("visible = %d, casters = %d", len(r.geom.visible), len(r.geom.casters))
	}
	if got := r.ground(ray{origin: mgl32.Vec3{0.01, 5, 20.01}, dir: mgl32.Vec3{0, -1, 0}}); got == bg {
		t.Error("off-screen gem cast no shadow")
	}
}

func TestInvalidParameters(t *testing.T) {
	p := refraction.DefaultParams()
	p.IOR = 0
	_, err := NewRenderer(mesh.NewBrilliantCut(), WithRefraction(p))
	var shaderErr *refraction.ShaderParameterError
	if !errors.As(err, &shaderErr) {
		t.Errorf("err = %v, want *refraction.ShaderParameterError", err)
	}

	_, err = NewRenderer(mesh.NewBrilliantCut(), WithBloom(bloom.Settings{Threshold: 1, Intensity: 1, Levels: 0}))
	var bloomErr *bloom.ParameterError
	if !errors.As(err, &bloomErr) {
		t.Errorf("err = %v, want *bloom.ParameterError", err)
	}

	if _, err := NewRenderer(nil); err == nil {
		t.Error("expected error for a nil mesh")
	}

	if _, err := NewRenderer(mesh.NewBrilliantCut(), WithShadowCatcher(light.ShadowCatcher{Opacity: -0.5})); err == nil {
		t.Error("expected error for a negative catcher opacity")
	}
}
