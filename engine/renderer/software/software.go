// Package software is a CPU renderer for headless runs. It ray-casts the instanced gems, shades
// every hit with the refraction reference shader, darkens the catcher plane where a shadow ray
// toward the light is blocked and finishes the frame with the CPU bloom.
package software

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/gemfall/common"
	"github.com/Carmen-Shannon/gemfall/engine/light"
	"github.com/Carmen-Shannon/gemfall/engine/mesh"
	"github.com/Carmen-Shannon/gemfall/engine/postprocess/bloom"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/envmap"
	"github.com/Carmen-Shannon/gemfall/engine/renderer/refraction"
	"github.com/Carmen-Shannon/gemfall/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderer draws scene views into an in-memory image.
type Renderer interface {
	scene.Renderer

	// Image returns the last presented frame, tone mapped to 8-bit sRGB.
	// The image is owned by the renderer and overwritten by the next Render.
	//
	// Returns:
	//   - *image.RGBA: the frame
	Image() *image.RGBA

	// HDR returns the last frame in linear light after bloom.
	//
	// Returns:
	//   - *bloom.Frame: the composited frame
	HDR() *bloom.Frame

	// Frames returns the number of completed Render calls.
	Frames() uint64

	// SavePNG writes the last presented frame to path.
	//
	// Parameters:
	//   - path: destination file
	//
	// Returns:
	//   - error: error if the file cannot be written
	SavePNG(path string) error
}

var _ Renderer = &renderer{}

type renderer struct {
	mu *sync.Mutex

	width  int
	height int

	gem        mesh.Mesh
	env        envmap.EnvironmentMap
	params     refraction.Params
	settings   bloom.Settings
	bloom      *bloom.Bloom
	background mgl32.Vec3
	light      light.DirectionalLight
	catcher    light.ShadowCatcher
	bandRows   int

	workers int
	pool    worker.DynamicWorkerPool

	geom   frameGeometry
	hdr    *bloom.Frame
	post   *bloom.Frame
	img    *image.RGBA
	frames uint64
}

// NewRenderer creates a software renderer for the given gem mesh.
//
// Parameters:
//   - gem: the mesh drawn for every instance
//   - options: functional options, see software_builder.go
//
// Returns:
//   - Renderer: the renderer
//   - error: a *refraction.ShaderParameterError or *bloom.ParameterError for invalid settings
func NewRenderer(gem mesh.Mesh, options ...RendererBuilderOption) (Renderer, error) {
	if gem == nil {
		return nil, fmt.Errorf("software renderer needs a mesh")
	}
	r := &renderer{
		mu:         &sync.Mutex{},
		width:      640,
		height:     360,
		gem:        gem,
		params:     refraction.DefaultParams(),
		settings:   bloom.DefaultSettings(),
		background: mgl32.Vec3{0.871, 0.871, 0.871},
		catcher:    light.DefaultShadowCatcher(),
		bandRows:   8,
		workers:    1,
		hdr:        &bloom.Frame{},
		post:       &bloom.Frame{},
	}
	for _, opt := range options {
		opt(r)
	}

	if err := r.params.Validate(); err != nil {
		return nil, err
	}
	b, err := bloom.New(r.settings)
	if err != nil {
		return nil, err
	}
	r.bloom = b
	if r.env == nil {
		r.env = envmap.Studio(256, 128, envmap.DefaultSoftboxes)
	}
	if r.light == nil {
		r.light = light.NewDirectionalLight()
	}
	if r.catcher.Opacity < 0 || r.catcher.Opacity > 1 || r.catcher.HalfSize < 0 {
		return nil, fmt.Errorf("invalid shadow catcher %+v", r.catcher)
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", r.width, r.height)
	}
	if r.workers > 1 {
		r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	}
	r.allocate()
	return r, nil
}

func (r *renderer) allocate() {
	r.hdr = bloom.NewFrame(r.width, r.height)
	r.img = image.NewRGBA(image.Rect(0, 0, r.width, r.height))
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.allocate()
}

func (r *renderer) Render(view scene.View) error {
	if view.Camera == nil || view.Instances == nil {
		return fmt.Errorf("software renderer: view is missing a camera or instances")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cam := view.Camera.Uniform()
	inv := cam.InvViewProj
	r.geom.build(r.gem, view.Instances, common.ExtractFrustumFromMatrix(cam.ViewProj[:]))

	r.forBands(func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < r.width; x++ {
				r.hdr.Set(x, y, r.trace(unproject(inv[:], x, y, r.width, r.height)))
			}
		}
	})

	r.bloom.Apply(r.post, r.hdr)

	r.forBands(func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < r.width; x++ {
				c := r.post.At(x, y)
				r.img.SetRGBA(x, y, color.RGBA{
					R: to8(common.LinearToSRGB(c[0])),
					G: to8(common.LinearToSRGB(c[1])),
					B: to8(common.LinearToSRGB(c[2])),
					A: 255,
				})
			}
		}
	})
	r.frames++
	return nil
}

// trace returns the linear radiance seen along one camera ray.
func (r *renderer) trace(ry ray) mgl32.Vec3 {
	_, tri, inst := r.geom.intersect(ry)
	if tri == nil {
		return r.ground(ry)
	}
	return r.params.Shade(r.env, ry.dir, tri.normal, inst.color)
}

// shadowOffset lifts shadow rays off the catcher plane.
const shadowOffset = 1e-4

// ground returns the background, darkened where the ray meets the catcher in a gem's shadow.
func (r *renderer) ground(ry ray) mgl32.Vec3 {
	if !r.light.CastsShadows() || r.catcher.Opacity == 0 {
		return r.background
	}
	hit, ok := r.catcher.Intersect(ry.origin, ry.dir)
	if !ok {
		return r.background
	}
	toLight := ray{origin: hit.Add(mgl32.Vec3{0, shadowOffset, 0}), dir: r.light.Direction().Mul(-1)}
	if r.geom.occluded(toLight) {
		return r.catcher.Shade(r.background, 1)
	}
	return r.background
}

// forBands splits the rows into bands and runs fn over them, on the worker pool when one exists.
func (r *renderer) forBands(fn func(y0, y1 int)) {
	if r.pool == nil {
		fn(0, r.height)
		return
	}
	var wg sync.WaitGroup
	for y0, id := 0, 0; y0 < r.height; y0, id = y0+r.bandRows, id+1 {
		y1 := min(y0+r.bandRows, r.height)
		wg.Add(1)
		r.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (r *renderer) Image() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.img
}

func (r *renderer) HDR() *bloom.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.post
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) SavePNG(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	if err := png.Encode(f, r.img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode snapshot %s: %w", path, err)
	}
	return f.Close()
}

func to8(c float32) uint8 {
	return uint8(c*255 + 0.5)
}
