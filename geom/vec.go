// Package geom provides the vertex, geometry and triangle types shared by the
// augmentation stages.
package geom

import "github.com/chewxy/math32"

// Vec2 is a 2D float32 vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3D float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// V3 returns a new Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// MulScalar returns v scaled by s.
func (v Vec3) MulScalar(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// LengthSquared returns the squared length of v.
func (v Vec3) LengthSquared() float32 {
	return v.Dot(v)
}

// Length returns the length of v.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.LengthSquared())
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float32 {
	return v.Sub(o).Length()
}

// Normal returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normal() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return !math32.IsNaN(v.X) && !math32.IsNaN(v.Y) && !math32.IsNaN(v.Z) &&
		!math32.IsInf(v.X, 0) && !math32.IsInf(v.Y, 0) && !math32.IsInf(v.Z, 0)
}
