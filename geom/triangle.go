package geom

import (
	"math"

	"github.com/chewxy/math32"
)

// Triangle represents a triangle made of three vertices.
type Triangle struct {
	A, B, C Vec3
}

// Area returns the triangle's area.
func (t Triangle) Area() float32 {
	return 0.5 * t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Length()
}

// Area64 returns the triangle's area computed in float64. It stays finite for
// any finite vertex coordinates.
func (t Triangle) Area64() float64 {
	ux, uy, uz := float64(t.B.X)-float64(t.A.X), float64(t.B.Y)-float64(t.A.Y), float64(t.B.Z)-float64(t.A.Z)
	vx, vy, vz := float64(t.C.X)-float64(t.A.X), float64(t.C.Y)-float64(t.A.Y), float64(t.C.Z)-float64(t.A.Z)
	cx := uy*vz - uz*vy
	cy := uz*vx - ux*vz
	cz := ux*vy - uy*vx
	return 0.5 * math.Sqrt(cx*cx+cy*cy+cz*cz)
}

// Centroid returns the average of the three vertices.
func (t Triangle) Centroid() Vec3 {
	return t.A.Add(t.B).Add(t.C).MulScalar(float32(1) / 3)
}

// Sample maps a uniform sample (u, v) in [0,1)^2 to a point uniformly
// distributed over the triangle's area.
//
// The square-root warp t = sqrt(1-u) gives barycentric weights
// (1-t, v*t, 1-(1-t)-v*t) for A, B and C.
func (t Triangle) Sample(u, v float32) Vec3 {
	s := math32.Sqrt(1 - u)
	a := 1 - s
	b := v * s
	c := 1 - a - b
	return t.A.MulScalar(a).Add(t.B.MulScalar(b)).Add(t.C.MulScalar(c))
}

// Barycentric returns the barycentric coordinates (wa, wb, wc) of p with
// respect to A, B and C. p is assumed to lie in the triangle's plane.
// A degenerate triangle yields (-1, -1, -1).
func (t Triangle) Barycentric(p Vec3) (wa, wb, wc float32) {
	v0 := t.B.Sub(t.A)
	v1 := t.C.Sub(t.A)
	v2 := p.Sub(t.A)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if denom == 0 {
		return -1, -1, -1
	}
	wb = (d11*d20 - d01*d21) / denom
	wc = (d00*d21 - d01*d20) / denom
	wa = 1 - wb - wc
	return wa, wb, wc
}

// Contains reports whether p lies inside the triangle, allowing eps of slack
// on each barycentric coordinate.
func (t Triangle) Contains(p Vec3, eps float32) bool {
	wa, wb, wc := t.Barycentric(p)
	return wa >= -eps && wb >= -eps && wc >= -eps
}
