// Command gemfall drops a pile of refracting gems onto a floor and orbits a camera around them.
//
// Windowed mode renders with WebGPU. Headless mode (-headless) advances a fixed number of frames
// with the CPU renderer and writes the last one to a PNG.
package main

import (
	"flag"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine"
	"github.com/Carmen-Shannon/gemfall/engine/config"
	"github.com/Carmen-Shannon/gemfall/engine/loader"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/renderer"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/software"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/Carmen-Shannon/gemfall/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	configPath := flag.String("config", "", "JSON config file, defaults apply to missing fields")
	headless := flag.Bool("headless", false, "render with the CPU renderer and write a snapshot instead of opening a window")
	frames := flag.Int("frames", 240, "frames to simulate in headless mode")
	snapshot := flag.String("snapshot", "gemfall.png", "PNG written in headless mode")
	saveConfig := flag.String("save-config", "", "write the effective config to this path and exit")
	forceSoftware := flag.Bool("software-adapter", false, "ask WebGPU for a fallback (CPU) adapter")

	count := flag.Int("count", 0, "override instanceCount")
	seed := flag.Int64("seed", 0, "override seed")
	ior := flag.Float64("ior", 0, "override ior")
	bounces := flag.Int("bounces", 0, "override bounceCount")
	env := flag.String("env", "", "override environment image path")
	meshPath := flag.String("mesh", "", "override mesh (.gltf or .glb)")
	meshNode := flag.String("mesh-node", "", "override meshNode")
	width := flag.Int("width", 0, "override windowWidth")
	height := flag.Int("height", 0, "override windowHeight")
	vsync := flag.Bool("vsync", true, "override vsync")
	profiling := flag.Bool("profile", false, "override profiling")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "count":
			cfg.InstanceCount = *count
		case "seed":
			cfg.Seed = *seed
		case "ior":
			cfg.IOR = float32(*ior)
		case "bounces":
			cfg.BounceCount = *bounces
		case "env":
			cfg.Environment = *env
		case "mesh":
			cfg.Mesh = *meshPath
		case "mesh-node":
			cfg.MeshNode = *meshNode
		case "width":
			cfg.WindowWidth = *width
		case "height":
			cfg.WindowHeight = *height
		case "vsync":
			cfg.VSync = *vsync
		case "profile":
			cfg.Profiling = *profiling
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] %v", err)
	}
	if *saveConfig != "" {
		if err := cfg.Save(*saveConfig); err != nil {
			log.Fatalf("[Main] %v", err)
		}
		log.Printf("[Main] wrote config to %s", *saveConfig)
		return
	}

	background, err := common.HexToLinear(cfg.Background)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}
	radiance := envmap.Studio(1024, 512, envmap.DefaultSoftboxes)
	if cfg.Environment != "" {
		radiance, err = envmap.Load(cfg.Environment, 1024, 512, cfg.EnvironmentExposure)
		if err != nil {
			log.Fatalf("[Main] %v", err)
		}
	}
	gem, err := loadGem(cfg)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	if *headless {
		runHeadless(cfg, gem, radiance, mgl32.Vec3(background), *frames, *snapshot)
		return
	}
	runWindowed(cfg, gem, radiance, mgl32.Vec3(background), *forceSoftware)
}

// loadGem imports the configured gem file scaled to the procedural cut's size, or builds the
// procedural cut when no file is set.
func loadGem(cfg *config.Config) (mesh.Mesh, error) {
	brilliant := mesh.NewBrilliantCut()
	if cfg.Mesh == "" {
		return brilliant, nil
	}
	l := loader.NewLoader(
		loader.WithNode(cfg.MeshNode),
		loader.WithTargetRadius(brilliant.BoundingRadius()),
	)
	return l.Load(cfg.Mesh)
}

// runHeadless steps the scene on the calling goroutine with a fixed frame delta and saves the last frame.
func runHeadless(cfg *config.Config, gem mesh.Mesh, radiance *envmap.Equirect, background mgl32.Vec3, frames int, snapshot string) {
	frames = max(1, frames)
	r, err := software.NewRenderer(gem,
		software.WithSize(cfg.WindowWidth, cfg.WindowHeight),
		software.WithEnvironment(radiance),
		software.WithRefraction(cfg.RefractionParams()),
		software.WithBloom(cfg.BloomSettings()),
		software.WithBackground(background),
		software.WithLight(cfg.Light()),
		software.WithShadowCatcher(cfg.ShadowCatcher()),
		software.WithWorkers(runtime.NumCPU()),
	)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	sc, err := scene.NewScene(cfg, scene.WithMesh(gem), scene.WithRenderer(r))
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	eng := engine.NewEngine(
		engine.WithProfiling(cfg.Profiling),
		engine.WithTickRate(cfg.TickRate),
		engine.WithScene(0, sc),
	)
	// Only the saved frame is traced.
	if err := eng.Simulate(frames-1, cfg.FixedStep()); err != nil {
		log.Fatalf("[Main] %v", err)
	}
	if err := eng.RunFrames(1, cfg.FixedStep()); err != nil {
		log.Fatalf("[Main] %v", err)
	}
	if err := r.SavePNG(snapshot); err != nil {
		log.Fatalf("[Main] %v", err)
	}
	log.Printf("[Main] %d frames, %d physics steps, wrote %s", frames, sc.World().Steps(), snapshot)
}

// runWindowed opens the window, builds the WebGPU renderer and runs until the window closes.
func runWindowed(cfg *config.Config, gem mesh.Mesh, radiance *envmap.Equirect, background mgl32.Vec3, forceSoftware bool) {
	win, err := window.NewWindow(
		window.WithTitle(cfg.WindowTitle),
		window.WithSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	presentMode := renderer.PresentModeUncapped
	if cfg.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r, err := renderer.NewRenderer(win, gem,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(max(1, cfg.MSAA))),
		renderer.WithForceSoftwareRenderer(forceSoftware),
		renderer.WithEnvironment(radiance),
		renderer.WithRefraction(cfg.RefractionParams()),
		renderer.WithBloom(cfg.BloomSettings()),
		renderer.WithBackground(background),
		renderer.WithLight(cfg.Light()),
		renderer.WithShadowCatcher(cfg.ShadowCatcher()),
	)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}
	defer r.Release()

	sc, err := scene.NewScene(cfg, scene.WithMesh(gem), scene.WithRenderer(r))
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}

	eng := engine.NewEngine(
		engine.WithProfiling(cfg.Profiling),
		engine.WithTickRate(cfg.TickRate),
		engine.WithWindow(win),
		engine.WithScene(0, sc),
	)
	setupInput(eng, sc, cfg.WindowTitle)

	if err := eng.Run(); err != nil {
		log.Fatalf("[Main] %v", err)
	}
	log.Printf("[Main] %d frames presented", r.Frames())
}

// setupInput binds the orbit and simulation controls:
// left drag orbits, the wheel or Q and E zoom, Space toggles auto-rotate, R restarts, P pauses,
// and WASD or the arrow keys orbit in steps.
func setupInput(eng engine.Engine, sc scene.Scene, title string) {
	win := eng.Window()
	// Key state is written by the window thread and read by the frame goroutine.
	var keyMu sync.Mutex
	keyState := make(map[uint32]bool)
	held := func(codes ...uint32) bool {
		keyMu.Lock()
		defer keyMu.Unlock()
		for _, c := range codes {
			if keyState[c] {
				return true
			}
		}
		return false
	}

	win.SetKeyDownCallback(func(keyCode uint32) {
		keyMu.Lock()
		keyState[keyCode] = true
		keyMu.Unlock()

		ctrl := sc.Camera().Controller()
		switch keyCode {
		case common.KeySpace:
			ctrl.SetAutoRotate(!ctrl.AutoRotate())
		case common.KeyR:
			if err := sc.Reset(); err != nil {
				log.Printf("[Main] restart failed: %v", err)
			}
		case common.KeyP:
			paused := !sc.Paused()
			sc.SetPaused(paused)
			if paused {
				win.SetTitle(title + " (paused)")
			} else {
				win.SetTitle(title)
			}
		}
	})
	win.SetKeyUpCallback(func(keyCode uint32) {
		keyMu.Lock()
		keyState[keyCode] = false
		keyMu.Unlock()
	})

	win.SetDragCallback(func(button window.MouseButton, dx, dy float32) {
		if button == window.MouseButtonLeft {
			sc.Camera().Controller().Rotate(dx, dy)
		}
	})
	win.SetScrollCallback(func(delta float32) {
		sc.Camera().Controller().Zoom(delta)
	})

	eng.SetTickCallback(func(_ float32) {
		ctrl := sc.Camera().Controller()
		if held(common.KeyA, common.KeyLeft) {
			ctrl.OrbitLeft()
		}
		if held(common.KeyD, common.KeyRight) {
			ctrl.OrbitRight()
		}
		if held(common.KeyW, common.KeyUp) {
			ctrl.OrbitUp()
		}
		if held(common.KeyS, common.KeyDown) {
			ctrl.OrbitDown()
		}
		if held(common.KeyQ) {
			ctrl.Zoom(zoomStep)
		}
		if held(common.KeyE) {
			ctrl.Zoom(-zoomStep)
		}
	})
}

// zoomStep is the per-tick zoom applied while Q or E is held, in scroll wheel notches.
const zoomStep = 0.25
