package engine

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/gemfall/engine/config"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
)

type fakeRenderer struct {
	steps []uint64
	err   error
}

func (f *fakeRenderer) Render(v scene.View) error {
	if f.err != nil {
		return f.err
	}
	f.steps = append(f.steps, v.Step)
	return nil
}

func (f *fakeRenderer) Resize(int, int) {}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (Engine, scene.Scene, *fakeRenderer) {
	t.Helper()
	cfg := config.Default()
	cfg.InstanceCount = 2
	cfg.Seed = 3

	r := &fakeRenderer{}
	s, err := scene.NewScene(cfg, scene.WithRenderer(r), scene.WithWorldOptions(physics.WithWorkers(1)))
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	e := NewEngine(append([]EngineBuilderOption{WithScene(0, s)}, options...)...)
	return e, s, r
}

func TestRunFramesStepsThenDraws(t *testing.T) {
	e, s, r := newTestEngine(t, WithTickRate(60))

	ticks := 0
	e.SetTickCallback(func(float32) { ticks++ })
	if err := e.RunFrames(10, 1.0/60.0); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}

	if ticks != 10 {
		t.Errorf("ticks = %d, want 10", ticks)
	}
	if got := s.World().Steps(); got != 10 {
		t.Errorf("world steps = %d, want 10", got)
	}
	if len(r.steps) != 10 {
		t.Fatalf("drew %d frames, want 10", len(r.steps))
	}
	for i, st := range r.steps {
		if st != uint64(i+1) {
			t.Fatalf("frame %d drew step %d, want %d", i, st, i+1)
		}
	}
}

func TestSimulateSkipsDraws(t *testing.T) {
	e, s, r := newTestEngine(t, WithTickRate(60))
	if err := e.Simulate(9, 1.0/60.0); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(r.steps) != 0 {
		t.Fatalf("Simulate drew %d frames", len(r.steps))
	}
	if got := s.World().Steps(); got != 9 {
		t.Errorf("world steps = %d, want 9", got)
	}

	if err := e.RunFrames(1, 1.0/60.0); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if len(r.steps) != 1 || r.steps[0] != 10 {
		t.Errorf("drawn steps = %v, want [10]", r.steps)
	}
	if err := e.Simulate(1, 0); err == nil {
		t.Error("zero frame delta accepted")
	}
}

func TestAccumulatorRunsMultipleStepsPerFrame(t *testing.T) {
	e, s, r := newTestEngine(t, WithTickRate(60))
	if err := e.RunFrames(10, 1.0/30.0); err != nil {
		t.Fatal(err)
	}
	if got := s.World().Steps(); got != 20 {
		t.Errorf("world steps = %d, want 20", got)
	}
	if len(r.steps) != 10 {
		t.Errorf("drew %d frames, want 10", len(r.steps))
	}
}

func TestLongFrameIsClamped(t *testing.T) {
	e, s, _ := newTestEngine(t, WithTickRate(60))
	if err := e.RunFrames(1, 10); err != nil {
		t.Fatal(err)
	}
	if got := s.World().Steps(); got > maxStepsPerFrame {
		t.Errorf("one frame ran %d steps, limit is %d", got, maxStepsPerFrame)
	}
}

func TestRenderErrorStopsEngine(t *testing.T) {
	e, _, r := newTestEngine(t)
	r.err = errors.New("surface lost")

	err := e.RunFrames(3, 1.0/60.0)
	if !errors.Is(err, r.err) {
		t.Fatalf("RunFrames err = %v, want wrapped %v", err, r.err)
	}
	if err := e.Run(); !errors.Is(err, r.err) {
		t.Fatalf("Run after failure = %v, want the recorded error", err)
	}
}

func TestHeadlessRunStopsOnQuit(t *testing.T) {
	e, s, _ := newTestEngine(t)

	e.SetTickCallback(func(float32) {
		if s.World().Steps() >= 3 {
			e.Quit()
		}
	})
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.World().Steps() < 3 {
		t.Errorf("engine quit after %d steps", s.World().Steps())
	}
}

func TestInactiveSceneIsSkipped(t *testing.T) {
	e, s, r := newTestEngine(t)
	s.SetActive(false)
	if err := e.RunFrames(5, 1.0/60.0); err != nil {
		t.Fatal(err)
	}
	if s.World().Steps() != 0 || len(r.steps) != 0 {
		t.Errorf("inactive scene stepped %d times and drew %d frames", s.World().Steps(), len(r.steps))
	}
}

func TestSetTickRate(t *testing.T) {
	e := NewEngine()
	e.SetTickRate(120)
	if got := e.FixedStep(); got != float32(1.0/120.0) {
		t.Errorf("FixedStep = %v", got)
	}
	e.SetTickRate(0)
	if got := e.FixedStep(); got != float32(1.0/60.0) {
		t.Errorf("FixedStep after reset = %v", got)
	}
}
