package refraction

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Environment is a read-only radiance lookup by world-space direction.
// Implementations must be safe for concurrent use.
type Environment interface {
	Sample(dir mgl32.Vec3) mgl32.Vec3
}

// Shade evaluates the refraction material for one fragment.
// The result is linear radiance and is intentionally not clamped or tone mapped, so the
// bloom stage can threshold on true luminance.
//
// With zero bounces the solid is treated as a mirror and the result is exactly the reflected
// environment sample tinted by color. Otherwise the ray is refracted into the solid, bounced
// internally against a spherical proxy of the surface, and the transmitted sample is blended
// with the reflected one by a biased Schlick fresnel term.
//
// Parameters:
//   - env: the environment radiance map
//   - viewDir: direction from the eye toward the fragment (need not be normalized)
//   - normal: the surface normal at the fragment (need not be normalized)
//   - color: the per-instance tint
//
// Returns:
//   - mgl32.Vec3: linear RGB radiance
func (p Params) Shade(env Environment, viewDir, normal, color mgl32.Vec3) mgl32.Vec3 {
	i := safeNormalize(viewDir, mgl32.Vec3{0, 0, -1})
	n := safeNormalize(normal, mgl32.Vec3{0, 1, 0})
	if i.Dot(n) > 0 {
		n = n.Mul(-1)
	}

	reflected := env.Sample(Reflect(i, n))
	if p.Bounces <= 0 {
		return mulElem(reflected, color)
	}

	transmitted := p.transmit(env, i, n)

	cosTheta := clamp01(-i.Dot(n))
	f := p.FresnelBias + (1-p.FresnelBias)*pow5(1-cosTheta)
	out := reflected.Mul(f).Add(transmitted.Mul(1 - f))
	return mulElem(out, color)
}

// transmit traces the refracted ray through the solid and samples the environment once per
// color channel, spreading the red and blue channels by the aberration strength.
func (p Params) transmit(env Environment, i, n mgl32.Vec3) mgl32.Vec3 {
	dir := p.trace(i, n)
	if p.AberrationStrength == 0 {
		return env.Sample(dir)
	}

	spread := mgl32.Vec3{1, 1, 1}.Mul(p.AberrationStrength / 2)
	g := env.Sample(dir)
	r := env.Sample(dir.Add(spread).Normalize())
	b := env.Sample(dir.Sub(spread).Normalize())
	return mgl32.Vec3{r[0], g[1], b[2]}
}

// trace follows a ray entering the solid at a point with outward normal n and returns the
// direction in which it leaves. The surface is approximated by a unit sphere: entering at
// point n, the ray travels along t and meets the sphere again at n - 2(n.t)t, which is also
// the outward normal there. Each exit attempt that hits total internal reflection counts as
// one bounce; when the budget runs out the last internal direction is returned.
func (p Params) trace(i, n mgl32.Vec3) mgl32.Vec3 {
	t, ok := Refract(i, n, 1/p.IOR)
	if !ok {
		return Reflect(i, n)
	}

	point := n
	for b := 0; b < p.Bounces; b++ {
		exit := point.Sub(t.Mul(2 * point.Dot(t)))
		exit = safeNormalize(exit, t)
		inward := exit.Mul(-1)

		if out, ok := Refract(t, inward, p.IOR); ok {
			return out
		}
		t = Reflect(t, inward)
		point = exit
	}
	return t
}

// Reflect mirrors the incident direction i about the normal n.
func Reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * i.Dot(n)))
}

// Refract bends the incident direction i through a surface with normal n facing against i,
// where eta is the ratio of the incident to the transmitted index of refraction.
// It reports false on total internal reflection.
func Refract(i, n mgl32.Vec3, eta float32) (mgl32.Vec3, bool) {
	cosI := i.Dot(n)
	k := 1 - eta*eta*(1-cosI*cosI)
	if k < 0 {
		return mgl32.Vec3{}, false
	}
	return i.Mul(eta).Sub(n.Mul(eta*cosI + math32.Sqrt(k))), true
}

// Luminance returns the Rec. 709 luminance of a linear RGB value.
func Luminance(c mgl32.Vec3) float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func safeNormalize(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return fallback
	}
	return v.Mul(1 / l)
}

func clamp01(x float32) float32 {
	return math32.Max(0, math32.Min(1, x))
}

func pow5(x float32) float32 {
	x2 := x * x
	return x2 * x2 * x
}
