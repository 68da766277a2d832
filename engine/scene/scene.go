// Package scene owns the per-frame object graph of the gem scene: the physics world, the instance
// sync buffer, the camera and the renderer that draws them.
package scene

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/Carmen-Shannon/gemfall/engine/camera"
	"github.com/Carmen-Shannon/gemfall/engine/config"
	"github.com/Carmen-Shannon/gemfall/engine/generator"
	"github.com/Carmen-Shannon/gemfall/engine/instance_buffer"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderer draws one frame of a scene. The wgpu renderer and the CPU snapshot renderer both satisfy it.
type Renderer interface {
	// Render draws the view and presents or stores the result.
	//
	// Parameters:
	//   - view: the state to draw
	//
	// Returns:
	//   - error: error if the frame could not be produced
	Render(view View) error

	// Resize changes the output size in pixels.
	Resize(width, height int)
}

// View is everything a renderer observes for one frame.
type View struct {
	Camera    camera.Camera
	Instances instance_buffer.InstanceBuffer
	// Step is the physics step count the instance rows were synced from.
	Step uint64
}

// Scene ties the simulation to its presentation.
// A frame is Step (any number of times), then Sync, then Draw, in that order.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Renderer returns the scene's renderer, or nil.
	Renderer() Renderer

	// SetRenderer replaces the scene's renderer.
	//
	// Parameters:
	//   - r: the new renderer
	SetRenderer(r Renderer)

	// Mesh returns the gem mesh shared by every instance.
	Mesh() mesh.Mesh

	// World returns the current physics world. Reset replaces it.
	World() physics.World

	// Instances returns the instance sync buffer.
	Instances() instance_buffer.InstanceBuffer

	// Generated returns the generator output the bodies were created from.
	Generated() *generator.Instances

	// Ground returns the id of the static ground body.
	Ground() physics.BodyID

	// Paused reports whether Step is currently a no-op.
	Paused() bool

	// SetPaused freezes or resumes the simulation.
	SetPaused(paused bool)

	// Step advances the physics world by one fixed step.
	//
	// Parameters:
	//   - dt: the fixed step in seconds
	//
	// Returns:
	//   - error: a non-nil error is fatal for the frame loop
	Step(dt float32) error

	// Sync copies the current body transforms into the instance buffer.
	Sync()

	// Draw hands the synced state to the renderer. Does nothing without a renderer.
	//
	// Returns:
	//   - error: the renderer's error
	Draw() error

	// Reset rebuilds the physics world from the cached generator output and syncs the
	// instance buffer to the initial transforms. Colors and buffer storage are kept.
	//
	// Returns:
	//   - error: error if a body cannot be created
	Reset() error

	// Stats returns the physics counters of the most recent step.
	Stats() physics.Stats
}

var _ Scene = &scene{}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.Mutex

	name   string
	active bool
	paused bool

	cfg       *config.Config
	cache     *generator.Cache
	genOpts   generator.Options
	worldOpts []physics.WorldBuilderOption

	gem       mesh.Mesh
	gemShape  *physics.ConvexHull
	generated *generator.Instances

	world     physics.World
	bodies    []physics.BodyID
	ground    physics.BodyID
	instances instance_buffer.InstanceBuffer

	camera   camera.Camera
	renderer Renderer
}

// NewScene builds the gem scene described by cfg: the generator runs (or hits the cache), N dynamic
// bodies are created with ids 0..N-1 followed by the static ground, and the instance buffer is
// allocated once and synced to the initial transforms.
//
// Parameters:
//   - cfg: a validated configuration
//   - options: functional options, see scene_builder.go
//
// Returns:
//   - Scene: the scene
//   - error: error if generation fails or a collision shape is invalid
func NewScene(cfg *config.Config, options ...SceneBuilderOption) (Scene, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &scene{
		mu:     &sync.Mutex{},
		name:   "gems",
		active: true,
		cfg:    cfg,
		cache:  &generator.Cache{},
		ground: -1,
	}
	s.genOpts = generator.DefaultOptions(cfg.InstanceCount)
	s.genOpts.Seed = cfg.Seed

	for _, opt := range options {
		opt(s)
	}

	if s.gem == nil {
		s.gem = mesh.NewBrilliantCut()
	}
	hull, err := physics.NewConvexHull(s.gem.Positions(), s.gem.Indices())
	if err != nil {
		return nil, fmt.Errorf("failed to build collider for mesh %s: %w", s.gem.Name(), err)
	}
	s.gemShape = hull

	gen, err := s.cache.Get(s.genOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate instances: %w", err)
	}
	s.generated = gen

	if err := s.buildWorld(); err != nil {
		return nil, err
	}

	s.instances, err = instance_buffer.NewInstanceBuffer(s.bodies, gen.Scales, gen.Colors)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate instance buffer: %w", err)
	}
	s.instances.Update(s.world)

	if s.camera == nil {
		s.camera = defaultCamera(cfg)
	}

	log.Printf("[Scene] %s: %d gems, seed %d", s.name, gen.Len(), gen.Seed)
	return s, nil
}

// defaultCamera places an auto-rotating orbit camera as the config describes.
func defaultCamera(cfg *config.Config) camera.Camera {
	pos := cfg.CameraPosition
	ctrl := camera.NewCameraController(
		camera.WithTarget(0, 0, 0),
		camera.WithEyePosition(pos[0], pos[1], pos[2]),
		camera.WithPolarBounds(0, math.Pi/2),
		camera.WithAutoRotate(cfg.AutoRotate),
		camera.WithAutoRotateSpeed(cfg.AutoRotateSpeed),
	)
	aspect := float32(1)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		aspect = float32(cfg.WindowWidth) / float32(cfg.WindowHeight)
	}
	return camera.NewCamera(
		camera.WithFov(mgl32.DegToRad(cfg.CameraFov)),
		camera.WithAspect(aspect),
		camera.WithController(ctrl),
	)
}

// buildWorld creates a fresh world from the generator output. Callers hold s.mu or own s exclusively.
func (s *scene) buildWorld() error {
	cfg := s.cfg
	opts := []physics.WorldBuilderOption{
		physics.WithGravity(0, cfg.Gravity, 0),
		physics.WithSubsteps(cfg.Substeps),
		physics.WithSolverIterations(cfg.SolverIterations),
		physics.WithWarningHandler(physics.LogWarnings(120)),
	}
	w := physics.NewWorld(append(opts, s.worldOpts...)...)

	gem := physics.ColliderParams{Friction: cfg.GemFriction, Restitution: cfg.GemRestitution, Density: cfg.GemDensity}
	gen := s.generated
	bodies := make([]physics.BodyID, gen.Len())
	for i := range bodies {
		id, err := w.CreateBody(s.gemShape, gen.Positions[i], gen.Rotations[i], gen.Scales[i], false, gem)
		if err != nil {
			return fmt.Errorf("failed to create gem %d: %w", i, err)
		}
		bodies[i] = id
	}

	h := cfg.GroundHalfExtents
	box, err := physics.NewBox(h[0], h[1], h[2])
	if err != nil {
		return fmt.Errorf("failed to create ground: %w", err)
	}
	p := cfg.GroundPosition
	groundParams := physics.ColliderParams{Friction: cfg.GroundFriction, Restitution: cfg.GroundRestitution, Density: 1}
	ground, err := w.CreateBody(box, mgl32.Vec3{p[0], p[1], p[2]}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}, true, groundParams)
	if err != nil {
		return fmt.Errorf("failed to create ground: %w", err)
	}

	s.world = w
	s.bodies = bodies
	s.ground = ground
	return nil
}

func (s *scene) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Renderer() Renderer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer
}

func (s *scene) SetRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer = r
}

func (s *scene) Mesh() mesh.Mesh {
	return s.gem
}

func (s *scene) World() physics.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

func (s *scene) Instances() instance_buffer.InstanceBuffer {
	return s.instances
}

func (s *scene) Generated() *generator.Instances {
	return s.generated
}

func (s *scene) Ground() physics.BodyID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ground
}

func (s *scene) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *scene) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *scene) Step(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return nil
	}
	if err := s.world.Step(dt); err != nil {
		return fmt.Errorf("physics step %d failed: %w", s.world.Steps(), err)
	}
	return nil
}

func (s *scene) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances.Update(s.world)
}

func (s *scene) Draw() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderer == nil {
		return nil
	}
	return s.renderer.Render(View{
		Camera:    s.camera,
		Instances: s.instances,
		Step:      s.instances.Frame(),
	})
}

func (s *scene) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, err := s.cache.Get(s.genOpts)
	if err != nil {
		return fmt.Errorf("failed to generate instances: %w", err)
	}
	s.generated = gen
	if err := s.buildWorld(); err != nil {
		return err
	}
	s.instances.Update(s.world)
	log.Printf("[Scene] %s: restarted with seed %d", s.name, gen.Seed)
	return nil
}

func (s *scene) Stats() physics.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Stats()
}
