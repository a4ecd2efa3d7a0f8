// Package mesh holds the indexed triangle mesh that flows through the
// pipeline and the structural passes over it: assembly of fragments,
// vertex deduplication, compaction and statistics.
//
// A Mesh is owned by exactly one stage at a time. Stages either mutate the
// mesh they were handed and return it, or return a new mesh that replaces
// it; they never keep a reference after passing it on. Bounds and Stats are
// derived data and are stale after any structural change until Refresh is
// called.
package mesh

import (
	"errors"
	"fmt"

	"github.com/chazu/dotsolid/pkg/geom"
)

// ErrNilMesh is returned when an operation is handed no mesh at all.
var ErrNilMesh = errors.New("mesh is nil")

// Face is a triangle referencing three vertices of its owning mesh.
// Normal, when set, is the precomputed outward unit normal.
type Face struct {
	V      [3]int     `json:"v"`
	Normal *geom.Vec3 `json:"normal,omitempty"`
}

// Stats are the derived counts and measures of a mesh.
type Stats struct {
	VertexCount int     `json:"vertexCount"`
	FaceCount   int     `json:"faceCount"`
	SurfaceArea float64 `json:"surfaceArea"`
	Volume      float64 `json:"volume"`
}

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Name     string      `json:"name,omitempty"`
	Vertices []geom.Vec3 `json:"vertices"`
	Faces    []Face      `json:"faces"`
	Bounds   geom.Bounds `json:"bounds"`
	Stats    Stats       `json:"stats"`

	fresh bool
}

// New returns an empty mesh with zeroed, valid stats.
func New() *Mesh {
	m := &Mesh{Vertices: []geom.Vec3{}, Faces: []Face{}}
	m.Refresh()
	return m
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty reports whether the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v geom.Vec3) int {
	m.Vertices = append(m.Vertices, v)
	m.fresh = false
	return len(m.Vertices) - 1
}

// AddFace appends a triangle over existing vertex indices. The normal is
// computed from the winding.
func (m *Mesh) AddFace(a, b, c int) {
	n := geom.TriangleNormal(m.Vertices[a], m.Vertices[b], m.Vertices[c])
	m.Faces = append(m.Faces, Face{V: [3]int{a, b, c}, Normal: &n})
	m.fresh = false
}

// AddQuad appends two triangles (a, b, c) and (a, c, d) over a planar,
// counter-clockwise quad.
func (m *Mesh) AddQuad(a, b, c, d int) {
	m.AddFace(a, b, c)
	m.AddFace(a, c, d)
}

// Triangle returns the corner positions of face i.
func (m *Mesh) Triangle(i int) (a, b, c geom.Vec3) {
	f := m.Faces[i].V
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}

// FaceNormal returns the stored normal of face i, or computes it from the
// winding when none is stored.
func (m *Mesh) FaceNormal(i int) geom.Vec3 {
	if n := m.Faces[i].Normal; n != nil {
		return *n
	}
	return geom.TriangleNormal(m.Triangle(i))
}

// Fresh reports whether Bounds and Stats reflect the current geometry.
func (m *Mesh) Fresh() bool {
	return m.fresh
}

// Refresh recomputes Bounds and Stats.
func (m *Mesh) Refresh() *Mesh {
	m.Bounds, m.Stats = ComputeStats(m)
	m.fresh = true
	return m
}

// Scale multiplies every vertex position by f. Normals are unchanged for
// positive f.
func (m *Mesh) Scale(f float64) *Mesh {
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Scale(f)
	}
	m.fresh = false
	return m
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Name:     m.Name,
		Vertices: append([]geom.Vec3(nil), m.Vertices...),
		Faces:    make([]Face, len(m.Faces)),
		Bounds:   m.Bounds,
		Stats:    m.Stats,
		fresh:    m.fresh,
	}
	for i, f := range m.Faces {
		out.Faces[i] = f.clone()
	}
	return out
}

func (f Face) clone() Face {
	if f.Normal != nil {
		n := *f.Normal
		f.Normal = &n
	}
	return f
}

// IndexError reports a face index that does not address a vertex.
type IndexError struct {
	Face        int
	Index       int
	VertexCount int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("face %d references vertex %d, mesh has %d vertices", e.Face, e.Index, e.VertexCount)
}

// Validate checks that every face index is within the vertex buffer and
// every vertex is finite.
func (m *Mesh) Validate() error {
	if m == nil {
		return ErrNilMesh
	}
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f.V {
			if idx < 0 || idx >= n {
				return &IndexError{Face: i, Index: idx, VertexCount: n}
			}
		}
	}
	for i, v := range m.Vertices {
		if !v.IsFinite() {
			return fmt.Errorf("vertex %d is not finite: %v", i, v)
		}
	}
	return nil
}
