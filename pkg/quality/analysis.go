package quality

import (
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
)

// analysis holds what every check needs and computes it once: per-face
// normals, edge adjacency, tolerance keys and an R-tree over triangle
// bounds. It is read-only once built.
type analysis struct {
	m       *mesh.Mesh
	normals []geom.Vec3
	areas   []float64
	keys    []geom.Key
	edges   map[mesh.Edge][]int
	bounds  geom.Bounds
	tree    *rtreego.Rtree
	eps     float64
}

// faceItem is a triangle's bounding box in the R-tree.
type faceItem struct {
	index int
	rect  rtreego.Rect
}

func (f *faceItem) Bounds() rtreego.Rect {
	return f.rect
}

func newAnalysis(m *mesh.Mesh) *analysis {
	bounds, _ := mesh.ComputeStats(m)
	a := &analysis{
		m:       m,
		normals: make([]geom.Vec3, len(m.Faces)),
		areas:   make([]float64, len(m.Faces)),
		keys:    make([]geom.Key, len(m.Vertices)),
		edges:   m.EdgeFaces(),
		bounds:  bounds,
		tree:    rtreego.NewTree(3, 25, 50),
		eps:     1e-9 * (1 + bounds.Size().Length()),
	}
	for i, v := range m.Vertices {
		a.keys[i] = geom.KeyOf(v)
	}
	for i := range m.Faces {
		p, q, r := m.Triangle(i)
		a.normals[i] = geom.TriangleNormal(p, q, r)
		a.areas[i] = geom.TriangleArea(p, q, r)
		if rect, ok := a.rect(geom.TriangleBounds(p, q, r)); ok {
			a.tree.Insert(&faceItem{index: i, rect: rect})
		}
	}
	return a
}

// rect converts b to an R-tree rectangle, padded so that flat triangles
// still have positive extent on every axis.
func (a *analysis) rect(b geom.Bounds) (rtreego.Rect, bool) {
	pad := 1e-6 * (1 + a.bounds.Size().Length())
	size := b.Size()
	corner := rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad}
	lengths := []float64{size.X + 2*pad, size.Y + 2*pad, size.Z + 2*pad}
	r, err := rtreego.NewRect(corner, lengths)
	if err != nil {
		return rtreego.Rect{}, false
	}
	return r, true
}

// near returns the faces whose bounds overlap b.
func (a *analysis) near(b geom.Bounds) []int {
	rect, ok := a.rect(b)
	if !ok {
		return nil
	}
	hits := a.tree.SearchIntersect(rect)
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.(*faceItem).index
	}
	return out
}

func (a *analysis) corners(i int) [3]geom.Vec3 {
	p, q, r := a.m.Triangle(i)
	return [3]geom.Vec3{p, q, r}
}

// touching reports whether faces i and j have a corner in common, by
// position rather than by index.
func (a *analysis) touching(i, j int) bool {
	for _, u := range a.m.Faces[i].V {
		for _, v := range a.m.Faces[j].V {
			if a.keys[u] == a.keys[v] {
				return true
			}
		}
	}
	return false
}

// onPlate reports whether face i rests on the lowest level of the model.
func (a *analysis) onPlate(i int) bool {
	for _, idx := range a.m.Faces[i].V {
		if a.m.Vertices[idx].Y-a.bounds.Min.Y > 1e-6 {
			return false
		}
	}
	return true
}

// topology counts edge usage and tolerance-level duplicate vertices.
func (a *analysis) topology() Geometry {
	g := Geometry{
		Edges:             len(a.edges),
		DuplicateVertices: mesh.DuplicateVertexCount(a.m),
	}
	manifold := 0
	for _, faces := range a.edges {
		switch len(faces) {
		case 2:
			manifold++
		case 1:
			g.BoundaryEdges++
		}
	}
	g.NonManifoldEdges = g.Edges - manifold
	if g.Edges > 0 {
		g.Manifoldness = 100 * float64(manifold) / float64(g.Edges)
		g.Watertightness = 100 * (1 - float64(g.BoundaryEdges)/float64(g.Edges))
	}
	return g
}
