// Package box implements kernel.Kernel with exact, analytic rectangular
// prisms: 8 vertices and 12 triangles per box, with constant outward
// normals per side. Chamfered boxes cut every edge with a flat 45° bevel
// and carry 24 vertices and 44 triangles.
package box

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/mesh"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel    = (*BoxKernel)(nil)
	_ kernel.Chamferer = (*BoxKernel)(nil)
)

// boxSolid is an axis-aligned box given by its corners, with an optional
// bevel leg length.
type boxSolid struct {
	min, max geom.Vec3
	chamfer  float64
}

// BoundingBox returns the axis-aligned bounding box.
func (s *boxSolid) BoundingBox() (min, max [3]float64) {
	return [3]float64{s.min.X, s.min.Y, s.min.Z}, [3]float64{s.max.X, s.max.Y, s.max.Z}
}

// BoxKernel implements kernel.Kernel with exact prisms.
type BoxKernel struct{}

// New returns a new BoxKernel.
func New() *BoxKernel {
	return &BoxKernel{}
}

// Box creates a box with the given extents centred on the origin.
func (k *BoxKernel) Box(x, y, z float64) kernel.Solid {
	half := geom.V(x/2, y/2, z/2)
	return &boxSolid{min: half.Scale(-1), max: half}
}

// ChamferedBox creates a box centred on the origin whose twelve edges are
// cut back by size along both adjacent sides. Each corner becomes a
// triangle. A size that is not positive, or not below half the smallest
// extent, gives a plain box.
func (k *BoxKernel) ChamferedBox(x, y, z, size float64) kernel.Solid {
	s := k.Box(x, y, z).(*boxSolid)
	if size > 0 && size < min(x, y, z)/2 {
		s.chamfer = size
	}
	return s
}

// sides lists each side's outward normal and its corners, counter-clockwise
// seen from outside, as indices into the corner table built by ToMesh.
var sides = []struct {
	normal  geom.Vec3
	corners [4]int
}{
	{geom.V(0, 0, -1), [4]int{0, 3, 2, 1}},
	{geom.V(0, 0, 1), [4]int{4, 5, 6, 7}},
	{geom.V(0, -1, 0), [4]int{0, 1, 5, 4}},
	{geom.V(0, 1, 0), [4]int{3, 7, 6, 2}},
	{geom.V(-1, 0, 0), [4]int{0, 4, 7, 3}},
	{geom.V(1, 0, 0), [4]int{1, 2, 6, 5}},
}

// ToMesh emits the 8 corners and 2 triangles per side, or the chamfered
// shape when the solid has a bevel.
func (k *BoxKernel) ToMesh(s kernel.Solid) (*mesh.Mesh, error) {
	b, ok := s.(*boxSolid)
	if !ok {
		return nil, fmt.Errorf("box: unsupported solid type %T", s)
	}
	if b.chamfer > 0 {
		return chamferedMesh(b), nil
	}
	lo, hi := b.min, b.max

	m := &mesh.Mesh{Vertices: make([]geom.Vec3, 0, 8), Faces: make([]mesh.Face, 0, 12)}
	for _, p := range []geom.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	} {
		m.AddVertex(p)
	}

	for _, side := range sides {
		addQuad(m, side.corners, side.normal)
	}
	return m.Refresh(), nil
}

// cornerSigns gives the octant of each entry in the corner table.
var cornerSigns = [8][3]int{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// chamferedMesh insets each side by the chamfer on its four edges, which
// yields 4 vertices per side. Sides keep the plain box's split, so touching
// chamfered boxes still produce coincident triangles there. Between two
// sides runs a bevel quad and each corner is closed by one triangle.
func chamferedMesh(b *boxSolid) *mesh.Mesh {
	half, c := b.max, b.chamfer
	m := &mesh.Mesh{Vertices: make([]geom.Vec3, 0, 24), Faces: make([]mesh.Face, 0, 44)}

	// at returns the vertex on the side facing along axis that lies nearest
	// the corner in octant s.
	index := make(map[[4]int]int, 24)
	at := func(axis int, s [3]int) int {
		key := [4]int{axis, s[0], s[1], s[2]}
		if i, ok := index[key]; ok {
			return i
		}
		var p [3]float64
		for a := range 3 {
			h := half.Component(a)
			if a != axis {
				h -= c
			}
			p[a] = float64(s[a]) * h
		}
		i := m.AddVertex(geom.V(p[0], p[1], p[2]))
		index[key] = i
		return i
	}

	for _, side := range sides {
		axis := sideAxis(side.normal)
		var q [4]int
		for i, corner := range side.corners {
			q[i] = at(axis, cornerSigns[corner])
		}
		addQuad(m, q, side.normal)
	}

	for i := range 3 {
		for j := i + 1; j < 3; j++ {
			along := 3 - i - j
			for _, si := range []int{-1, 1} {
				for _, sj := range []int{-1, 1} {
					var lo, hi [3]int
					lo[i], lo[j], lo[along] = si, sj, -1
					hi[i], hi[j], hi[along] = si, sj, 1
					var dir [3]float64
					dir[i], dir[j] = float64(si), float64(sj)
					n := geom.V(dir[0], dir[1], dir[2]).Scale(1 / math.Sqrt2)
					q := orient(m, []int{at(i, lo), at(i, hi), at(j, hi), at(j, lo)}, n)
					addQuad(m, [4]int(q), n)
				}
			}
		}
	}

	for _, s := range cornerSigns {
		n := geom.V(float64(s[0]), float64(s[1]), float64(s[2])).Normalize()
		t := orient(m, []int{at(0, s), at(1, s), at(2, s)}, n)
		m.Faces = append(m.Faces, mesh.Face{V: [3]int(t), Normal: &n})
	}
	return m.Refresh()
}

// addQuad appends a planar quad, counter-clockwise seen from outside, as
// two triangles split along the diagonal through its lowest corner (by X,
// then Y, then Z). Two boxes touching along a side therefore produce
// coincident triangles there.
func addQuad(m *mesh.Mesh, corners [4]int, normal geom.Vec3) {
	c := rotateToLowest(m.Vertices, corners)
	for _, tri := range [2][3]int{{c[0], c[1], c[2]}, {c[0], c[2], c[3]}} {
		n := normal
		m.Faces = append(m.Faces, mesh.Face{V: tri, Normal: &n})
	}
}

// orient reverses the polygon c in place when its winding disagrees with n.
func orient(m *mesh.Mesh, c []int, n geom.Vec3) []int {
	if geom.TriangleNormal(m.Vertices[c[0]], m.Vertices[c[1]], m.Vertices[c[2]]).Dot(n) < 0 {
		slices.Reverse(c)
	}
	return c
}

func sideAxis(n geom.Vec3) int {
	switch {
	case n.X != 0:
		return 0
	case n.Y != 0:
		return 1
	default:
		return 2
	}
}

// rotateToLowest cycles a quad's corners so the lowest one comes first,
// keeping the winding.
func rotateToLowest(verts []geom.Vec3, c [4]int) [4]int {
	first := 0
	for i := 1; i < 4; i++ {
		if less(verts[c[i]], verts[c[first]]) {
			first = i
		}
	}
	return [4]int{c[first], c[(first+1)%4], c[(first+2)%4], c[(first+3)%4]}
}

func less(a, b geom.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
