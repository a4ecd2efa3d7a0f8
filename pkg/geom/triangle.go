package geom

// TriangleArea returns the area of triangle abc: half the magnitude of the
// cross product of two edge vectors.
func TriangleArea(a, b, c Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Length() / 2
}

// TriangleNormal returns the unit normal of abc following the right-hand
// rule (counter-clockwise winding faces the viewer). Degenerate triangles
// return the zero vector.
func TriangleNormal(a, b, c Vec3) Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// Centroid returns the average of the three corners.
func Centroid(a, b, c Vec3) Vec3 {
	return a.Add(b).Add(c).Scale(1.0 / 3.0)
}

// SignedVolume returns the signed volume of the tetrahedron spanned by the
// origin and triangle abc. Summed over a closed, consistently wound mesh it
// yields the enclosed volume.
func SignedVolume(a, b, c Vec3) float64 {
	return a.Dot(b.Cross(c)) / 6
}
