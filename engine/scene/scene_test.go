package scene

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/config"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/go-gl/mathgl/mgl32"
)

const step = float32(1.0 / 60.0)

// recorder is a Renderer that remembers what it was asked to draw.
type recorder struct {
	views   []View
	rows    [][]float32
	resized [2]int
	fail    error
}

func (r *recorder) Render(v View) error {
	if r.fail != nil {
		return r.fail
	}
	r.views = append(r.views, v)
	r.rows = append(r.rows, append([]float32(nil), v.Instances.Transforms()...))
	return nil
}

func (r *recorder) Resize(width, height int) {
	r.resized = [2]int{width, height}
}

func testConfig(n int) *config.Config {
	cfg := config.Default()
	cfg.InstanceCount = n
	cfg.Seed = 7
	cfg.GroundPosition = [3]float32{0, -21, 0}
	return cfg
}

func newTestScene(t *testing.T, n int, options ...SceneBuilderOption) (Scene, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts := append([]SceneBuilderOption{
		WithRenderer(rec),
		WithWorldOptions(physics.WithWorkers(1)),
	}, options...)
	s, err := NewScene(testConfig(n), opts...)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	return s, rec
}

func TestBufferShape(t *testing.T) {
	for _, n := range []int{1, 7, 64} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			s, _ := newTestScene(t, n)
			buf := s.Instances()
			if buf.Len() != n {
				t.Errorf("rows = %d, want %d", buf.Len(), n)
			}
			if got := len(buf.Colors()); got != 3*n {
				t.Errorf("len(colors) = %d, want %d", got, 3*n)
			}
			if got := s.World().BodyCount(); got != n+1 {
				t.Errorf("bodies = %d, want %d gems plus ground", got, n+1)
			}
			if s.Ground() != physics.BodyID(n) {
				t.Errorf("ground id = %d, want %d", s.Ground(), n)
			}
		})
	}
}

func TestInitialRowsMatchGenerator(t *testing.T) {
	s, _ := newTestScene(t, 5)
	gen := s.Generated()
	for i := 0; i < 5; i++ {
		row := s.Instances().Row(i)
		want := gen.Positions[i]
		got := mgl32.Vec3{row[12], row[13], row[14]}
		if !got.ApproxEqualThreshold(want, 1e-5) {
			t.Errorf("row %d translation = %v, want %v", i, got, want)
		}
	}
}

func TestFrameOrdering(t *testing.T) {
	s, rec := newTestScene(t, 3)

	for frame := 1; frame <= 5; frame++ {
		for k := 0; k < 2; k++ {
			if err := s.Step(step); err != nil {
				t.Fatalf("Step: %v", err)
			}
		}
		s.Sync()
		if err := s.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}

		v := rec.views[len(rec.views)-1]
		if v.Step != s.World().Steps() {
			t.Fatalf("frame %d drew step %d, world is at %d", frame, v.Step, s.World().Steps())
		}
		if v.Instances.Frame() != s.World().Steps() {
			t.Fatalf("frame %d: buffer frame %d, world steps %d", frame, v.Instances.Frame(), s.World().Steps())
		}
	}
	if len(rec.views) != 5 {
		t.Fatalf("rendered %d frames, want 5", len(rec.views))
	}
	if rec.rows[0][13] == rec.rows[4][13] {
		t.Error("falling gem did not move between drawn frames")
	}
}

func TestDrawWithoutSyncShowsPreviousState(t *testing.T) {
	s, rec := newTestScene(t, 1)
	if err := s.Step(step); err != nil {
		t.Fatal(err)
	}
	if err := s.Draw(); err != nil {
		t.Fatal(err)
	}
	if rec.views[0].Step != 0 {
		t.Fatalf("unsynced draw reported step %d, want 0", rec.views[0].Step)
	}
}

func TestDrawPropagatesRendererError(t *testing.T) {
	s, rec := newTestScene(t, 1)
	rec.fail = errors.New("device lost")
	if err := s.Draw(); err == nil {
		t.Fatal("expected renderer error")
	}
}

func TestPausedStepIsNoop(t *testing.T) {
	s, _ := newTestScene(t, 2)
	s.SetPaused(true)
	if err := s.Step(step); err != nil {
		t.Fatal(err)
	}
	if s.World().Steps() != 0 {
		t.Fatalf("paused scene stepped to %d", s.World().Steps())
	}
	s.SetPaused(false)
	if err := s.Step(step); err != nil {
		t.Fatal(err)
	}
	if s.World().Steps() != 1 {
		t.Fatalf("steps = %d, want 1", s.World().Steps())
	}
}

func TestStepErrorIsWrapped(t *testing.T) {
	s, _ := newTestScene(t, 1)
	if err := s.Step(-1); err == nil {
		t.Fatal("expected error for negative dt")
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	s, _ := newTestScene(t, 4)
	buf := s.Instances()
	colors := append([]float32(nil), buf.Colors()...)
	initial := append([]float32(nil), buf.Transforms()...)

	for i := 0; i < 30; i++ {
		if err := s.Step(step); err != nil {
			t.Fatal(err)
		}
	}
	s.Sync()

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.World().Steps() != 0 {
		t.Errorf("steps after reset = %d, want 0", s.World().Steps())
	}
	if s.Instances() != buf {
		t.Error("reset replaced the instance buffer")
	}
	for i, v := range buf.Transforms() {
		if v != initial[i] {
			t.Fatalf("transform float %d = %v after reset, want %v", i, v, initial[i])
		}
	}
	for i, v := range buf.Colors() {
		if v != colors[i] {
			t.Fatalf("color float %d changed across reset", i)
		}
	}
}

func TestInvalidMeshIsFatal(t *testing.T) {
	flat, err := mesh.FromPositions("flat",
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {1, 0, 1}},
		[]uint32{0, 1, 2, 1, 3, 2})
	if err != nil {
		t.Fatalf("FromPositions: %v", err)
	}

	_, err = NewScene(testConfig(2), WithMesh(flat))
	var shapeErr *physics.InvalidShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("err = %v, want *physics.InvalidShapeError", err)
	}
}

func TestSingleGemSettlesOnFloor(t *testing.T) {
	s, _ := newTestScene(t, 1)
	const floorTop = float32(-11)

	if y := s.Generated().Positions[0].Y(); y != 5 {
		t.Fatalf("gem starts at y = %v, want 5", y)
	}

	w := s.World()
	settled := false
	for i := 0; i < 3600 && !settled; i++ {
		if err := s.Step(step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		settled = w.IsSleeping(0)
	}
	s.Sync()
	if !settled {
		v, _ := w.Velocity(0)
		t.Fatalf("gem never came to rest, velocity %v", v)
	}

	low := w.LowestPoint(0)
	if low < floorTop-1e-3 || low > floorTop+0.05 {
		t.Errorf("resting base at y = %v, want %v", low, floorTop)
	}
	v, _ := w.Velocity(0)
	if v.Len() > 1e-3 {
		t.Errorf("resting velocity = %v", v)
	}
	if got := s.Instances().Frame(); got != w.Steps() {
		t.Errorf("buffer frame = %d, want %d", got, w.Steps())
	}
}
