package mesh

import (
	"math"

	"github.com/chazu/dotsolid/pkg/geom"
)

// ComputeStats walks the vertices once for the bounding box and the faces
// once for surface area and enclosed volume. An empty mesh yields zero
// bounds and zero stats.
func ComputeStats(m *Mesh) (geom.Bounds, Stats) {
	stats := Stats{
		VertexCount: len(m.Vertices),
		FaceCount:   len(m.Faces),
	}
	if len(m.Vertices) == 0 {
		return geom.Bounds{}, stats
	}

	b := geom.EmptyBounds()
	for _, v := range m.Vertices {
		b = b.Extend(v)
	}

	var signed float64
	for i := range m.Faces {
		a, bb, c := m.Triangle(i)
		stats.SurfaceArea += geom.TriangleArea(a, bb, c)
		signed += geom.SignedVolume(a, bb, c)
	}
	stats.Volume = math.Abs(signed)

	return b, stats
}
