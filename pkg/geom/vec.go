package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or direction in model space (millimetres). Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) r3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func fromR3(v r3.Vec) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return fromR3(r3.Add(v.r3(), w.r3()))
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return fromR3(r3.Sub(v.r3(), w.r3()))
}

// Scale returns v * f.
func (v Vec3) Scale(f float64) Vec3 {
	return fromR3(r3.Scale(f, v.r3()))
}

// Dot returns the dot product.
func (v Vec3) Dot(w Vec3) float64 {
	return r3.Dot(v.r3(), w.r3())
}

// Cross returns the cross product.
func (v Vec3) Cross(w Vec3) Vec3 {
	return fromR3(r3.Cross(v.r3(), w.r3()))
}

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 {
	return r3.Norm(v.r3())
}

// Normalize returns the unit vector in the direction of v, or the zero
// vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Distance returns |v - w|.
func (v Vec3) Distance(w Vec3) float64 {
	return v.Sub(w).Length()
}

// Component returns the coordinate along axis 0 (X), 1 (Y) or 2 (Z).
func (v Vec3) Component(axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// IsFinite reports whether every coordinate is a finite number.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
