package physics

import (
	"sort"
)

type pair struct {
	a, b int
}

// sweepAndPrune finds overlapping bounds by sorting intervals along X and sweeping. Each body is
// tested on its bounds, the AABB grown by its speculative reach. The entries slice is reused between
// calls; pairs are appended to out in a deterministic order.
type sweepAndPrune struct {
	entries []int
}

func (s *sweepAndPrune) findPairs(bodies []*body, out []pair) []pair {
	s.entries = s.entries[:0]
	for i := range bodies {
		s.entries = append(s.entries, i)
	}
	sort.Slice(s.entries, func(i, j int) bool {
		a, b := bodies[s.entries[i]], bodies[s.entries[j]]
		if a.bounds.Min.X != b.bounds.Min.X {
			return a.bounds.Min.X < b.bounds.Min.X
		}
		return a.id < b.id
	})

	for i, ia := range s.entries {
		a := bodies[ia]
		for _, ib := range s.entries[i+1:] {
			b := bodies[ib]
			if b.bounds.Min.X > a.bounds.Max.X {
				break
			}
			if !activePair(a, b) || !overlaps(a.bounds, b.bounds) {
				continue
			}
			out = append(out, orderPair(a, b))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

// activePair reports whether at least one side can move this step.
func activePair(a, b *body) bool {
	aFixed := a.isStatic || a.sleeping
	bFixed := b.isStatic || b.sleeping
	return !(aFixed && bFixed)
}

// orderPair puts the lower id first, except that a box always goes second so the box manifold sees
// the other body's vertices against the box faces.
func orderPair(a, b *body) pair {
	if a.id > b.id {
		a, b = b, a
	}
	if a.kind == ShapeKindBox && b.kind != ShapeKindBox {
		a, b = b, a
	}
	return pair{a: int(a.id), b: int(b.id)}
}
