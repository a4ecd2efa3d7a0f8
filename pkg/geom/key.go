package geom

import "math"

// KeyDecimals is the number of decimal places two positions must agree on
// to be treated as the same vertex.
const KeyDecimals = 6

const keyScale = 1e6

// Key is a fixed-point quantization of a position. Two vertices with equal
// keys are the same vertex for deduplication purposes.
type Key struct {
	X, Y, Z int64
}

// KeyOf quantizes v to KeyDecimals decimal places.
func KeyOf(v Vec3) Key {
	return Key{X: quantize(v.X), Y: quantize(v.Y), Z: quantize(v.Z)}
}

func quantize(c float64) int64 {
	q := math.Round(c * keyScale)
	// Rounding maps -0.0000001 to -0, which must collide with +0.
	if q == 0 {
		return 0
	}
	return int64(q)
}

// Equal reports whether v and w quantize to the same key.
func (v Vec3) Equal(w Vec3) bool {
	return KeyOf(v) == KeyOf(w)
}
