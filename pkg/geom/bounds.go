package geom

import "math"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// EmptyBounds returns an inverted box that any Extend call will replace.
func EmptyBounds() Bounds {
	inf := math.Inf(1)
	return Bounds{
		Min: Vec3{X: inf, Y: inf, Z: inf},
		Max: Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether b contains no points.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend returns b grown to include p.
func (b Bounds) Extend(p Vec3) Bounds {
	return Bounds{
		Min: Vec3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: Vec3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Size returns the extent along each axis.
func (b Bounds) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Overlaps reports whether b and o intersect, treating boxes that are within
// eps of touching as overlapping.
func (b Bounds) Overlaps(o Bounds, eps float64) bool {
	return b.Min.X <= o.Max.X+eps && o.Min.X <= b.Max.X+eps &&
		b.Min.Y <= o.Max.Y+eps && o.Min.Y <= b.Max.Y+eps &&
		b.Min.Z <= o.Max.Z+eps && o.Min.Z <= b.Max.Z+eps
}

// TriangleBounds returns the bounding box of a triangle.
func TriangleBounds(a, b, c Vec3) Bounds {
	return EmptyBounds().Extend(a).Extend(b).Extend(c)
}
