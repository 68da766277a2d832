package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/gemfall/engine/profiler"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/Carmen-Shannon/gemfall/engine/window"
)

// maxStepsPerFrame bounds how many fixed steps one frame may run to catch up after a stall.
const maxStepsPerFrame = 8

// maxFrameDelta clamps a single frame's elapsed time before it enters the accumulator.
const maxFrameDelta = 0.25

// engine implements the Engine interface.
// A single frame goroutine owns the simulation and the renderer; the window's message loop
// stays on the calling thread.
type engine struct {
	mu *sync.Mutex

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	err         error

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	fixedStep      float32
	accumulator    float32
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It runs the frame loop: fixed physics steps, then instance sync, then drawing, in that order.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the fixed physics rate in steps per second.
	//
	// Parameters:
	//   - fps: steps per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// FixedStep returns the physics time step in seconds.
	FixedStep() float32

	// SetTickCallback registers the function called after each fixed step.
	//
	// Parameters:
	//   - callback: function receiving the fixed step in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each drawn frame.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are stepped and drawn in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining order (lower first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	// Without a window it runs on the calling goroutine.
	//
	// Returns:
	//   - error: the first step or render failure, nil on a normal shutdown
	Run() error

	// RunFrames advances exactly n frames of frameDelta seconds each on the calling goroutine,
	// independent of wall-clock time. Used for headless snapshots and tests.
	//
	// Parameters:
	//   - n: number of frames
	//   - frameDelta: simulated seconds per frame
	//
	// Returns:
	//   - error: the first step or render failure
	RunFrames(n int, frameDelta float32) error

	// Simulate advances n frames like RunFrames but draws none of them. Scenes are still synced
	// and cameras updated, so a following RunFrames draws exactly what it would have.
	//
	// Parameters:
	//   - n: number of frames
	//   - frameDelta: simulated seconds per frame
	//
	// Returns:
	//   - error: the first step failure
	Simulate(n int, frameDelta float32) error

	// Quit signals the frame loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		quitChannel:      make(chan struct{}),
		scenes:           make(map[int]scene.Scene),
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		fixedStep:        1.0 / 60.0,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			for _, s := range e.Scenes() {
				if r := s.Renderer(); r != nil {
					r.Resize(width, height)
				}
				if c := s.Camera(); c != nil {
					c.SetAspect(float32(width) / float32(height))
				}
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	if e.window == nil {
		e.handleFrames()
		return e.result()
	}

	// The window must close on the thread that created it, so a quit raised by the
	// frame goroutine is observed here between message pumps.
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			if e.window.IsRunning() {
				if err := e.window.Close(); err != nil {
					log.Printf("[Engine] failed to close window: %v", err)
				}
			}
		default:
		}
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.handleFrames()
	}()

	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	return e.result()
}

func (e *engine) RunFrames(n int, frameDelta float32) error {
	if frameDelta <= 0 {
		return fmt.Errorf("frame delta must be positive, got %v", frameDelta)
	}
	return e.runFrames(n, frameDelta, true)
}

func (e *engine) Simulate(n int, frameDelta float32) error {
	if frameDelta <= 0 {
		return fmt.Errorf("frame delta must be positive, got %v", frameDelta)
	}
	return e.runFrames(n, frameDelta, false)
}

func (e *engine) runFrames(n int, frameDelta float32, draw bool) error {
	for i := 0; i < n; i++ {
		if err := e.frame(frameDelta, draw); err != nil {
			e.fail(err)
			return err
		}
	}
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// fail records the first fatal error and stops the engine.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.mu.Unlock()
	e.signalQuit()
}

func (e *engine) result() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// handleFrames runs frames until the quit channel is closed or a frame fails.
// Recovers from panics raised by the GPU backend and reports them as the run's error.
func (e *engine) handleFrames() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame loop recovered from panic: %v", r)
			e.fail(fmt.Errorf("frame loop panic: %v", r))
		}
	}()

	last := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		if err := e.frame(dt, true); err != nil {
			log.Printf("[Engine] stopping: %v", err)
			e.fail(err)
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// frame runs one frame: as many fixed steps as the accumulator holds, then a sync of every
// active scene, then the camera update and, when draw is set, the draw.
func (e *engine) frame(dt float32, draw bool) error {
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	active := e.activeScenes()
	fixed := e.FixedStep()

	e.accumulator += dt
	steps := 0
	for e.accumulator >= fixed && steps < maxStepsPerFrame {
		for _, s := range active {
			if err := s.Step(fixed); err != nil {
				return fmt.Errorf("scene %s: %w", s.Name(), err)
			}
			if e.profilingEnabled {
				e.profiler.RecordStep(s.Stats())
			}
		}
		if e.tickCallback != nil {
			e.tickCallback(fixed)
		}
		e.accumulator -= fixed
		steps++
	}
	if steps == maxStepsPerFrame && e.accumulator >= fixed {
		// Drop the backlog rather than spiral.
		e.accumulator = 0
	}

	for _, s := range active {
		s.Sync()
	}
	for _, s := range active {
		if c := s.Camera(); c != nil {
			c.Update(dt)
		}
		if !draw {
			continue
		}
		if err := s.Draw(); err != nil {
			return fmt.Errorf("scene %s: render failed: %w", s.Name(), err)
		}
	}
	if !draw {
		return nil
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
	return nil
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the fixed physics rate. It takes effect on the next frame.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixedStep = float32(1 / fps)
}

func (e *engine) FixedStep() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fixedStep
}

// SetTickCallback registers the function called after each fixed step.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
