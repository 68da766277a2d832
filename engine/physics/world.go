// Package physics is a small rigid-body world for convex bodies falling onto static boxes.
// Stepping is deterministic: for identical bodies and identical step sizes, two worlds produce
// bit-identical transforms regardless of the worker count.
package physics

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// World owns every rigid body and advances them together.
type World interface {
	// CreateBody registers a body and returns its id. Dynamic bodies need a *ConvexHull or *Box;
	// static bodies may use either.
	//
	// Parameters:
	//   - shape: the collision shape in local coordinates
	//   - position: initial world position
	//   - rotation: initial orientation
	//   - scale: per-axis scale applied to the shape
	//   - isStatic: static bodies never move
	//   - params: friction, restitution and density
	//
	// Returns:
	//   - BodyID: the new body's id
	//   - error: an *InvalidShapeError for missing or degenerate geometry
	CreateBody(shape Shape, position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3, isStatic bool, params ColliderParams) (BodyID, error)

	// Step advances the simulation by dt seconds, split into the configured number of substeps.
	// It blocks until every body has been advanced. An error means the world state is no longer
	// usable and the caller must stop.
	//
	// Parameters:
	//   - dt: time to advance in seconds
	//
	// Returns:
	//   - error: error if dt is invalid or the state became non-finite
	Step(dt float32) error

	// Transform returns the position and orientation of a body.
	Transform(id BodyID) (mgl32.Vec3, mgl32.Quat)

	// Scale returns the scale a body was created with.
	Scale(id BodyID) mgl32.Vec3

	// Velocity returns the linear and angular velocity of a body.
	Velocity(id BodyID) (mgl32.Vec3, mgl32.Vec3)

	// LowestPoint returns the minimum world-space y of a body's collision vertices.
	LowestPoint(id BodyID) float32

	// IsSleeping reports whether a body has come to rest and been removed from integration.
	IsSleeping(id BodyID) bool

	// BodyCount returns the number of bodies, static ones included.
	BodyCount() int

	// Steps returns the number of completed Step calls.
	Steps() uint64

	// Stats returns counters from the most recent step.
	Stats() Stats
}

// Stats summarizes the most recent step.
type Stats struct {
	Bodies   int
	Awake    int
	Sleeping int
	Pairs    int
	Contacts int
	Warnings uint64
	StepTime time.Duration
}

var _ World = &world{}

type world struct {
	mu sync.RWMutex

	gravity    mgl32.Vec3
	substeps   int
	linDamping float32
	angDamping float32

	sleepLinear  float32
	sleepAngular float32
	sleepTime    float32

	restLinear  float32
	restAngular float32
	restDamping float32

	speculative     float32
	maxLinearSpeed  float32
	maxAngularSpeed float32
	divergenceSpeed float32
	tolerance       float32

	solver  solver
	onWarn  WarningHandler
	workers int
	pool    worker.DynamicWorkerPool

	bodies    []*body
	statics   []int
	broad     sweepAndPrune
	pairs     []pair
	manifolds []manifold
	contacts  []contact

	// prev holds the solved contacts of the last substep, and prevSpan the range of each pair in it.
	prev     []contact
	prevSpan map[pair][2]int

	steps uint64
	stats Stats
}

// NewWorld creates an empty world.
//
// Parameters:
//   - options: functional options, see world_builder.go
//
// Returns:
//   - World: the world
func NewWorld(options ...WorldBuilderOption) World {
	w := &world{
		gravity:         mgl32.Vec3{0, -9.81, 0},
		substeps:        2,
		linDamping:      0.1,
		angDamping:      0.3,
		sleepLinear:     0.05,
		sleepAngular:    0.05,
		sleepTime:       0.5,
		restLinear:      0.2,
		restAngular:     0.4,
		restDamping:     6,
		speculative:     0.02,
		maxLinearSpeed:  100,
		maxAngularSpeed: 50,
		divergenceSpeed: 10,
		tolerance:       0.05,
		solver: solver{
			iterations:           10,
			baumgarte:            0.2,
			linearSlop:           LinearSlop,
			maxCorrection:        3,
			restitutionThreshold: 1,
			warmStart:            0.85,
		},
		prevSpan: make(map[pair][2]int),
		onWarn:  LogWarnings(120),
		workers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(w)
	}

	if w.workers > 1 {
		w.pool = worker.NewDynamicWorkerPool(w.workers, 256, 1*time.Second)
	}
	return w
}

// LinearSlop is the deepest a dynamic body may rest inside a static box after a step.
const LinearSlop float32 = 5e-4

func (w *world) CreateBody(shape Shape, position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3, isStatic bool, params ColliderParams) (BodyID, error) {
	if shape == nil {
		return -1, invalidShape("missing collision shape")
	}
	if err := shape.Validate(); err != nil {
		return -1, err
	}
	for i, s := range scale {
		if !(s > 0) || math32.IsInf(s, 0) {
			return -1, invalidShape("scale component %d is %g, must be a positive finite number", i, s)
		}
	}
	if !finite3(position) || rotation.Len() < 1e-6 {
		return -1, invalidShape("non-finite position or zero rotation")
	}
	if !isStatic && !(params.Density > 0) {
		return -1, invalidShape("dynamic body density %g must be positive", params.Density)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id := BodyID(len(w.bodies))
	b := newBody(id, shape, position, rotation, scale, isStatic, params)
	w.bodies = append(w.bodies, b)
	if isStatic && b.kind == ShapeKindBox {
		w.statics = append(w.statics, int(id))
	}
	return id, nil
}

func (w *world) Step(dt float32) error {
	if math32.IsNaN(dt) || dt < 0 || math32.IsInf(dt, 0) {
		return fmt.Errorf("invalid time step %v", dt)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.steps++
	if dt > 0 {
		h := dt / float32(w.substeps)
		for i := 0; i < w.substeps; i++ {
			w.substep(h)
		}
	}

	w.stats.Bodies = len(w.bodies)
	w.stats.Awake, w.stats.Sleeping = 0, 0
	for _, b := range w.bodies {
		if b.isStatic {
			continue
		}
		if !finite3(b.pos) || !finite3(b.vel) || !finite3(b.angVel) {
			return fmt.Errorf("body %d state became non-finite at step %d", b.id, w.steps)
		}
		if b.sleeping {
			w.stats.Sleeping++
		} else {
			w.stats.Awake++
		}
	}
	w.stats.StepTime = time.Since(start)
	return nil
}

func (w *world) substep(h float32) {
	for _, b := range w.bodies {
		if b.isStatic || b.sleeping {
			b.bounds = b.aabb
			continue
		}
		b.refresh()
		b.bounds = grow(b.aabb, w.speculative+b.vel.Len()*h)
	}

	w.pairs = w.broad.findPairs(w.bodies, w.pairs[:0])
	w.narrowPhase(h)
	w.wakeTouched()
	w.matchContacts()

	for _, b := range w.bodies {
		if b.isStatic || b.sleeping {
			continue
		}
		b.vel = b.vel.Add(w.gravity.Mul(h))
		b.vel = b.vel.Mul(1 / (1 + h*w.linDamping))
		b.angVel = b.angVel.Mul(1 / (1 + h*w.angDamping))
	}

	w.solver.prepare(w.bodies, w.contacts, h)
	residual := w.solver.solve(w.bodies, w.contacts)
	w.solver.solvePositions(w.bodies, w.contacts)
	if len(w.contacts) > 0 && residual > w.tolerance {
		w.stats.Warnings++
		w.clampDiverged()
		if w.onWarn != nil {
			w.onWarn(&SolverDivergenceWarning{
				Step:       w.steps,
				Residual:   residual,
				Iterations: w.solver.iterations,
				Contacts:   len(w.contacts),
			})
		}
	}
	w.stabilize(h)
	w.keepContacts()

	for _, b := range w.bodies {
		if b.isStatic || b.sleeping {
			b.biasVel, b.biasAngVel = mgl32.Vec3{}, mgl32.Vec3{}
			continue
		}
		b.vel = clampLength(b.vel, w.maxLinearSpeed)
		b.angVel = clampLength(b.angVel, w.maxAngularSpeed)
		v := b.vel.Add(b.biasVel)
		av := b.angVel.Add(b.biasAngVel)
		b.biasVel, b.biasAngVel = mgl32.Vec3{}, mgl32.Vec3{}

		b.pos = b.pos.Add(v.Mul(h))
		if av.LenSqr() > 0 {
			spin := mgl32.Quat{W: 0, V: av.Mul(0.5 * h)}
			b.rot = b.rot.Add(spin.Mul(b.rot)).Normalize()
		}
		b.refresh()
	}

	w.projectOutOfStatics()
	w.updateSleep(h)
}

// narrowPhase fills one manifold slot per pair. Large pair sets are split into contiguous chunks on
// the worker pool; each chunk writes only its own slots, so the merged contact list is in pair order
// no matter how the chunks are scheduled.
func (w *world) narrowPhase(h float32) {
	if cap(w.manifolds) < len(w.pairs) {
		w.manifolds = make([]manifold, len(w.pairs))
	}
	w.manifolds = w.manifolds[:len(w.pairs)]

	run := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := w.pairs[i]
			a, b := w.bodies[p.a], w.bodies[p.b]
			margin := w.speculative + (a.vel.Len()+b.vel.Len())*h
			collide(a, b, p.a, p.b, margin, &w.manifolds[i])
		}
	}

	const minChunk = 16
	if w.pool == nil || len(w.pairs) < 2*minChunk {
		run(0, len(w.pairs))
	} else {
		chunks := min(w.workers, (len(w.pairs)+minChunk-1)/minChunk)
		size := (len(w.pairs) + chunks - 1) / chunks
		var wg sync.WaitGroup
		for c := 0; c < chunks; c++ {
			lo := c * size
			hi := min(lo+size, len(w.pairs))
			if lo >= hi {
				break
			}
			wg.Add(1)
			w.pool.SubmitTask(worker.Task{
				ID: c,
				Do: func() (any, error) {
					defer wg.Done()
					run(lo, hi)
					return nil, nil
				},
			})
		}
		wg.Wait()
	}

	w.contacts = w.contacts[:0]
	for i := range w.manifolds {
		m := &w.manifolds[i]
		w.contacts = append(w.contacts, m.points[:m.n]...)
	}
	w.stats.Pairs = len(w.pairs)
	w.stats.Contacts = len(w.contacts)
}

// wakeTouched wakes a sleeping body that is touched by an awake body moving faster than the wake
// threshold. It runs in contact order so the result does not depend on scheduling.
func (w *world) wakeTouched() {
	for i := range w.contacts {
		c := &w.contacts[i]
		a, b := w.bodies[c.a], w.bodies[c.b]
		if a.sleeping && w.moving(b) {
			a.wake()
		}
		if b.sleeping && w.moving(a) {
			b.wake()
		}
	}
}

// matchContacts gives each new contact the impulses of the contact that joined the same pair
// through the same feature in the previous substep.
func (w *world) matchContacts() {
	for i := range w.contacts {
		c := &w.contacts[i]
		c.warmN, c.warmT = 0, mgl32.Vec3{}
		span, ok := w.prevSpan[pair{a: c.a, b: c.b}]
		if !ok {
			continue
		}
		for j := span[0]; j < span[1]; j++ {
			p := &w.prev[j]
			if p.feature != c.feature {
				continue
			}
			c.warmN = p.lambdaN
			c.warmT = p.tangent[0].Mul(p.lambdaT[0]).Add(p.tangent[1].Mul(p.lambdaT[1]))
			break
		}
	}
}

// keepContacts stores the solved contacts for the next substep. Contacts of one pair are
// contiguous because narrow phase emits them manifold by manifold.
func (w *world) keepContacts() {
	w.prev = append(w.prev[:0], w.contacts...)
	clear(w.prevSpan)
	for lo := 0; lo < len(w.prev); {
		key := pair{a: w.prev[lo].a, b: w.prev[lo].b}
		hi := lo + 1
		for hi < len(w.prev) && w.prev[hi].a == key.a && w.prev[hi].b == key.b {
			hi++
		}
		w.prevSpan[key] = [2]int{lo, hi}
		lo = hi
	}
}

// stabilize damps bodies that are both slow and pushed on by a contact. Scaling the whole velocity
// of a body scales the velocity of every point on it, so a contact that was not closing stays that
// way.
func (w *world) stabilize(h float32) {
	if w.restDamping <= 0 {
		return
	}
	for i := range w.contacts {
		c := &w.contacts[i]
		if c.lambdaN > 0 {
			w.bodies[c.a].supported = true
			w.bodies[c.b].supported = true
		}
	}
	f := 1 / (1 + h*w.restDamping)
	for _, b := range w.bodies {
		held := b.supported
		b.supported = false
		if !held || b.isStatic || b.sleeping {
			continue
		}
		if b.vel.Len() < w.restLinear && b.angVel.Len() < w.restAngular {
			b.vel = b.vel.Mul(f)
			b.angVel = b.angVel.Mul(f)
		}
	}
}

func (w *world) moving(b *body) bool {
	if b.isStatic || b.sleeping {
		return false
	}
	return b.vel.Len() > 2*w.sleepLinear || b.angVel.Len() > 2*w.sleepAngular
}

// clampDiverged limits the speed and the position-correction speed of bodies in contacts that did
// not converge, so an unresolved correction cannot launch them.
func (w *world) clampDiverged() {
	for i := range w.contacts {
		c := &w.contacts[i]
		for _, idx := range [2]int{c.a, c.b} {
			b := w.bodies[idx]
			if b.isStatic || b.sleeping {
				continue
			}
			b.vel = clampLength(b.vel, w.divergenceSpeed)
			b.biasVel = clampLength(b.biasVel, w.divergenceSpeed)
			b.biasAngVel = clampLength(b.biasAngVel, w.maxAngularSpeed)
		}
	}
}

// projectOutOfStatics moves any dynamic body resting deeper than LinearSlop inside a static box back
// to that depth and removes its velocity into the box.
func (w *world) projectOutOfStatics() {
	for _, b := range w.bodies {
		if b.isStatic || b.sleeping {
			continue
		}
		for _, si := range w.statics {
			s := w.bodies[si]
			if !overlaps(b.aabb, s.aabb) {
				continue
			}
			var m manifold
			boxManifold(b, s, int(b.id), si, 0, &m)
			var deepest float32
			for i := 0; i < m.n; i++ {
				deepest = math32.Min(deepest, m.points[i].sep)
			}
			if -deepest <= LinearSlop {
				continue
			}
			n := m.points[0].normal
			b.pos = b.pos.Add(n.Mul(-deepest - LinearSlop))
			if vn := b.vel.Dot(n); vn < 0 {
				b.vel = b.vel.Sub(n.Mul(vn))
			}
			b.refresh()
		}
	}
}

// sleepFilterTime is the time constant, in seconds, of the motion filter behind sleeping.
const sleepFilterTime = 0.25

// updateSleep filters each body's speed relative to the sleep thresholds and puts the body to sleep
// once the filtered value has stayed below one for the sleep time. A single fast substep raises the
// filter only by a fraction, so brief contact spikes do not restart the countdown.
func (w *world) updateSleep(h float32) {
	if w.sleepTime <= 0 || w.sleepLinear <= 0 || w.sleepAngular <= 0 {
		return
	}
	blend := math32.Min(h/sleepFilterTime, 1)
	for _, b := range w.bodies {
		if b.isStatic || b.sleeping {
			continue
		}
		lin := b.vel.Len() / w.sleepLinear
		ang := b.angVel.Len() / w.sleepAngular
		now := math32.Min(math32.Max(lin*lin, ang*ang), maxMotion)
		b.motion += (now - b.motion) * blend

		if b.motion < 1 {
			b.idleTime += h
			if b.idleTime >= w.sleepTime {
				b.sleeping = true
				b.vel = mgl32.Vec3{}
				b.angVel = mgl32.Vec3{}
			}
		} else {
			b.idleTime = 0
		}
	}
}

func (w *world) get(id BodyID) *body {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil
	}
	return w.bodies[id]
}

func (w *world) Transform(id BodyID) (mgl32.Vec3, mgl32.Quat) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.get(id)
	if b == nil {
		return mgl32.Vec3{}, mgl32.QuatIdent()
	}
	return b.pos, b.rot
}

func (w *world) Scale(id BodyID) mgl32.Vec3 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.get(id)
	if b == nil {
		return mgl32.Vec3{}
	}
	return b.scale
}

func (w *world) Velocity(id BodyID) (mgl32.Vec3, mgl32.Vec3) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.get(id)
	if b == nil {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	return b.vel, b.angVel
}

func (w *world) LowestPoint(id BodyID) float32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.get(id)
	if b == nil {
		return math32.NaN()
	}
	return b.lowest()
}

func (w *world) IsSleeping(id BodyID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b := w.get(id)
	return b != nil && b.sleeping
}

func (w *world) BodyCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

func (w *world) Steps() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.steps
}

func (w *world) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}
