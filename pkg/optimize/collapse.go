package optimize

import (
	"sort"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
)

const (
	// normalTolerance is the largest 1-cos(angle) at which two face normals
	// count as parallel.
	normalTolerance = 1e-6
	// minArea rejects collapses that would leave a sliver triangle.
	minArea = 1e-10
)

// collapser performs half-edge collapses v -> u on one mesh. Faces are
// marked dead in place and compacted away at the end.
type collapser struct {
	m       *mesh.Mesh
	dead    map[int]bool
	creases bool

	vf     [][]int
	ef     map[mesh.Edge][]int
	locked []bool
}

// collapse repeatedly collapses every eligible vertex until a full sweep
// finds none. The input mesh is not modified.
func collapse(m *mesh.Mesh, creases bool) (*mesh.Mesh, int) {
	c := &collapser{m: m.Clone(), dead: make(map[int]bool), creases: creases}
	total := 0
	for {
		n := c.sweep()
		if n == 0 {
			break
		}
		total += n
	}
	if total == 0 {
		return c.m, 0
	}
	return mesh.Compact(c.m, c.dead), total
}

// sweep rebuilds adjacency and collapses as many vertices as it can
// without touching any face whose adjacency went stale during the sweep.
func (c *collapser) sweep() int {
	c.vf = make([][]int, len(c.m.Vertices))
	c.ef = make(map[mesh.Edge][]int)
	for i, f := range c.m.Faces {
		if c.dead[i] {
			continue
		}
		for _, idx := range f.V {
			c.vf[idx] = append(c.vf[idx], i)
		}
		for _, e := range mesh.FaceEdges(f) {
			c.ef[e] = append(c.ef[e], i)
		}
	}
	c.locked = make([]bool, len(c.m.Vertices))

	n := 0
	for v := range c.m.Vertices {
		if c.locked[v] || len(c.vf[v]) == 0 {
			continue
		}
		u, ok := c.target(v)
		if !ok {
			continue
		}
		c.apply(v, u)
		n++
	}
	return n
}

// neighbours returns the vertices sharing a face with v, sorted.
func (c *collapser) neighbours(v int) []int {
	seen := map[int]bool{}
	var out []int
	for _, fi := range c.vf[v] {
		for _, w := range c.m.Faces[fi].V {
			if w != v && !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	sort.Ints(out)
	return out
}

// target picks the vertex v may collapse into, if any.
func (c *collapser) target(v int) (int, bool) {
	ring := c.neighbours(v)
	if len(ring) < 3 {
		return 0, false
	}
	// Only interior vertices: every edge out of v borders exactly two faces.
	for _, w := range ring {
		if len(c.ef[mesh.EdgeOf(v, w)]) != 2 {
			return 0, false
		}
	}

	var planes []geom.Vec3
	for _, fi := range c.vf[v] {
		n := c.m.FaceNormal(fi)
		if !containsNormal(planes, n) {
			planes = append(planes, n)
		}
	}

	var candidates []int
	switch {
	case len(planes) == 1:
		candidates = ring
	case len(planes) == 2 && c.creases:
		candidates = c.creaseEnds(v, ring)
	}

	for _, u := range candidates {
		if c.locked[u] {
			continue
		}
		if c.linkOK(v, u) && c.shapeKept(v, u) {
			return u, true
		}
	}
	return 0, false
}

// creaseEnds returns the two crease neighbours of v when v sits in the
// middle of a straight crease, or nil otherwise.
func (c *collapser) creaseEnds(v int, ring []int) []int {
	var ends []int
	for _, w := range ring {
		faces := c.ef[mesh.EdgeOf(v, w)]
		if !parallel(c.m.FaceNormal(faces[0]), c.m.FaceNormal(faces[1])) {
			ends = append(ends, w)
		}
	}
	if len(ends) != 2 {
		return nil
	}
	p := c.m.Vertices[v]
	a := c.m.Vertices[ends[0]].Sub(p).Normalize()
	b := c.m.Vertices[ends[1]].Sub(p).Normalize()
	if a.Dot(b) > -1+normalTolerance {
		return nil
	}
	return ends
}

// linkOK is the link condition: the only vertices adjacent to both u and v
// are the apexes of the two faces on edge uv. Anything else would pinch
// the surface.
func (c *collapser) linkOK(v, u int) bool {
	apexes := map[int]bool{}
	for _, fi := range c.ef[mesh.EdgeOf(v, u)] {
		for _, w := range c.m.Faces[fi].V {
			if w != u && w != v {
				apexes[w] = true
			}
		}
	}
	if len(apexes) != 2 {
		return false
	}
	ringU := map[int]bool{}
	for _, w := range c.neighbours(u) {
		ringU[w] = true
	}
	shared := 0
	for _, w := range c.neighbours(v) {
		if ringU[w] {
			if !apexes[w] {
				return false
			}
			shared++
		}
	}
	return shared == 2
}

// shapeKept checks that every face around v that survives the collapse
// keeps its normal and a non-zero area.
func (c *collapser) shapeKept(v, u int) bool {
	target := c.m.Vertices[u]
	for _, fi := range c.vf[v] {
		f := c.m.Faces[fi]
		if hasVertex(f, u) {
			continue
		}
		var p [3]geom.Vec3
		for i, idx := range f.V {
			if idx == v {
				p[i] = target
			} else {
				p[i] = c.m.Vertices[idx]
			}
		}
		if geom.TriangleArea(p[0], p[1], p[2]) < minArea {
			return false
		}
		if !parallel(geom.TriangleNormal(p[0], p[1], p[2]), c.m.FaceNormal(fi)) {
			return false
		}
	}
	return true
}

// apply moves every reference to v onto u, kills the two faces on edge uv
// and locks the neighbourhood whose adjacency is now stale.
func (c *collapser) apply(v, u int) {
	for _, w := range c.neighbours(u) {
		c.locked[w] = true
	}
	for _, w := range c.neighbours(v) {
		c.locked[w] = true
	}
	c.locked[v] = true
	c.locked[u] = true

	for _, fi := range c.vf[v] {
		f := &c.m.Faces[fi]
		if hasVertex(*f, u) {
			c.dead[fi] = true
			continue
		}
		for i := range f.V {
			if f.V[i] == v {
				f.V[i] = u
			}
		}
	}
}

func hasVertex(f mesh.Face, v int) bool {
	return f.V[0] == v || f.V[1] == v || f.V[2] == v
}

func parallel(a, b geom.Vec3) bool {
	return a.Dot(b) > 1-normalTolerance
}

func containsNormal(list []geom.Vec3, n geom.Vec3) bool {
	for _, m := range list {
		if parallel(m, n) {
			return true
		}
	}
	return false
}
