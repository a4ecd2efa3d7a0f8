package quality

import (
	"math"

	"github.com/chazu/dotsolid/pkg/geom"
)

// selfIntersections counts pairs of faces that cross each other. Pairs
// sharing a corner and parallel pairs are not tested; the R-tree limits
// the exact test to faces with overlapping bounds.
func (a *analysis) selfIntersections() int {
	count := 0
	for i := range a.m.Faces {
		if a.areas[i] <= a.eps {
			continue
		}
		p, q, r := a.m.Triangle(i)
		for _, j := range a.near(geom.TriangleBounds(p, q, r)) {
			if j <= i || a.areas[j] <= a.eps || a.touching(i, j) {
				continue
			}
			if math.Abs(a.normals[i].Dot(a.normals[j])) > 1-1e-9 {
				continue
			}
			if crosses(a.corners(i), a.corners(j), a.eps) || crosses(a.corners(j), a.corners(i), a.eps) {
				count++
			}
		}
	}
	return count
}

// crosses reports whether an edge of s passes through the interior of t.
func crosses(s, t [3]geom.Vec3, eps float64) bool {
	for k := 0; k < 3; k++ {
		p, q := s[k], s[(k+1)%3]
		d := q.Sub(p)
		hit, u, v, ok := intersectRay(p, d, t)
		if !ok {
			continue
		}
		if hit > eps && hit < 1-eps && u > eps && v > eps && u+v < 1-eps {
			return true
		}
	}
	return false
}

// intersectRay is the Möller-Trumbore test of the ray origin + s·dir
// against triangle t. It returns the ray parameter and the barycentric
// coordinates of the hit; ok is false when the ray is parallel to t.
func intersectRay(origin, dir geom.Vec3, t [3]geom.Vec3) (s, u, v float64, ok bool) {
	e1 := t[1].Sub(t[0])
	e2 := t[2].Sub(t[0])
	h := dir.Cross(e2)
	det := e1.Dot(h)
	if math.Abs(det) < 1e-14 {
		return 0, 0, 0, false
	}
	inv := 1 / det
	o := origin.Sub(t[0])
	u = inv * o.Dot(h)
	qv := o.Cross(e1)
	v = inv * dir.Dot(qv)
	s = inv * e2.Dot(qv)
	return s, u, v, true
}
