package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShapeKind identifies the collision algorithm used for a shape.
type ShapeKind int

const (
	ShapeKindHull ShapeKind = iota
	ShapeKindBox
)

// Shape is a collision geometry in body-local coordinates, before scaling.
// Shapes are immutable after construction and may be shared by any number of bodies.
type Shape interface {
	// Kind returns the shape's collision algorithm family.
	Kind() ShapeKind
	// Vertices returns the local vertices the support mapping is evaluated over.
	Vertices() []mgl32.Vec3
	// Volume returns the unscaled volume.
	Volume() float32
	// Extents returns the unscaled local bounding box size.
	Extents() mgl32.Vec3
	// Validate reports degenerate geometry as an *InvalidShapeError.
	Validate() error
}

var _ Shape = &ConvexHull{}
var _ Shape = &Box{}

// ConvexHull is a convex collider implied by a point cloud. The hull is never built explicitly:
// narrow phase works through the support mapping, which over any point set equals the support of its
// convex hull.
type ConvexHull struct {
	points  []mgl32.Vec3
	volume  float32
	extents mgl32.Vec3
	err     error
}

// NewConvexHull builds a hull collider from mesh positions.
// When indices describe a closed triangle list, the volume is computed from that surface; otherwise
// the volume falls back to the local bounding box. Duplicate points are dropped.
//
// Parameters:
//   - points: the mesh positions
//   - indices: optional triangle indices into points
//
// Returns:
//   - *ConvexHull: the hull
//   - error: an *InvalidShapeError if the point set does not span a volume
func NewConvexHull(points []mgl32.Vec3, indices []uint32) (*ConvexHull, error) {
	h := &ConvexHull{}
	h.points = dedupe(points)

	if len(h.points) < 4 {
		h.err = invalidShape("convex hull needs at least 4 distinct points, got %d", len(h.points))
		return nil, h.err
	}

	lo, hi := bounds(h.points)
	h.extents = hi.Sub(lo)
	size := math32.Max(h.extents[0], math32.Max(h.extents[1], h.extents[2]))
	if size <= 0 || !finite3(h.extents) {
		h.err = invalidShape("convex hull has no extent")
		return nil, h.err
	}

	if tet := spanningTetraVolume(h.points); tet <= 1e-9*size*size*size {
		h.err = invalidShape("convex hull points are coplanar (zero volume)")
		return nil, h.err
	}

	h.volume = meshVolume(points, indices)
	if h.volume <= 0 {
		h.volume = h.extents[0] * h.extents[1] * h.extents[2]
	}
	return h, nil
}

func (h *ConvexHull) Kind() ShapeKind { return ShapeKindHull }
func (h *ConvexHull) Vertices() []mgl32.Vec3 { return h.points }
func (h *ConvexHull) Volume() float32 { return h.volume }
func (h *ConvexHull) Extents() mgl32.Vec3 { return h.extents }

func (h *ConvexHull) Validate() error {
	if h == nil {
		return invalidShape("nil convex hull")
	}
	if h.err != nil {
		return h.err
	}
	if len(h.points) < 4 || h.volume <= 0 {
		return invalidShape("convex hull was not built with NewConvexHull")
	}
	return nil
}

// Box is an oriented box collider centered on its body's position.
type Box struct {
	HalfExtents mgl32.Vec3
}

// NewBox creates a box collider.
//
// Parameters:
//   - hx, hy, hz: half-extents along the local axes
//
// Returns:
//   - *Box: the box
//   - error: an *InvalidShapeError if any half-extent is not a positive finite number
func NewBox(hx, hy, hz float32) (*Box, error) {
	b := &Box{HalfExtents: mgl32.Vec3{hx, hy, hz}}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Box) Kind() ShapeKind { return ShapeKindBox }

func (b *Box) Vertices() []mgl32.Vec3 {
	h := b.HalfExtents
	out := make([]mgl32.Vec3, 0, 8)
	for _, sx := range [2]float32{-1, 1} {
		for _, sy := range [2]float32{-1, 1} {
			for _, sz := range [2]float32{-1, 1} {
				out = append(out, mgl32.Vec3{sx * h[0], sy * h[1], sz * h[2]})
			}
		}
	}
	return out
}

func (b *Box) Volume() float32 {
	return 8 * b.HalfExtents[0] * b.HalfExtents[1] * b.HalfExtents[2]
}

func (b *Box) Extents() mgl32.Vec3 {
	return b.HalfExtents.Mul(2)
}

func (b *Box) Validate() error {
	if b == nil {
		return invalidShape("nil box")
	}
	for i, h := range b.HalfExtents {
		if !(h > 0) || math32.IsInf(h, 0) {
			return invalidShape("box half-extent %d is %g, must be a positive finite number", i, h)
		}
	}
	return nil
}

func dedupe(points []mgl32.Vec3) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, len(points))
	seen := make(map[mgl32.Vec3]struct{}, len(points))
	for _, p := range points {
		if !finite3(p) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func bounds(points []mgl32.Vec3) (lo, hi mgl32.Vec3) {
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
	}
	return lo, hi
}

// spanningTetraVolume greedily picks four mutually far apart points and returns the volume of the
// tetrahedron they span. Zero means every point lies on one plane.
func spanningTetraVolume(points []mgl32.Vec3) float32 {
	a := points[0]
	b := farthest(points, func(p mgl32.Vec3) float32 { return p.Sub(a).LenSqr() })
	ab := b.Sub(a)
	c := farthest(points, func(p mgl32.Vec3) float32 { return ab.Cross(p.Sub(a)).LenSqr() })
	n := ab.Cross(c.Sub(a))
	d := farthest(points, func(p mgl32.Vec3) float32 { return math32.Abs(n.Dot(p.Sub(a))) })
	return math32.Abs(n.Dot(d.Sub(a))) / 6
}

func farthest(points []mgl32.Vec3, score func(mgl32.Vec3) float32) mgl32.Vec3 {
	best, bestScore := points[0], score(points[0])
	for _, p := range points[1:] {
		if s := score(p); s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}

// meshVolume returns the enclosed volume of a closed triangle list by the divergence theorem,
// or zero when there is no usable surface.
func meshVolume(points []mgl32.Vec3, indices []uint32) float32 {
	if len(indices) < 12 || len(indices)%3 != 0 {
		return 0
	}
	var v float32
	for i := 0; i < len(indices); i += 3 {
		ia, ib, ic := indices[i], indices[i+1], indices[i+2]
		if int(ia) >= len(points) || int(ib) >= len(points) || int(ic) >= len(points) {
			return 0
		}
		v += points[ia].Dot(points[ib].Cross(points[ic]))
	}
	return math32.Abs(v) / 6
}

func finite3(v mgl32.Vec3) bool {
	for _, x := range v {
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			return false
		}
	}
	return true
}
