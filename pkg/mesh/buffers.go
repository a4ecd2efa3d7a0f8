package mesh

import (
	"errors"
	"fmt"

	"github.com/chazu/dotsolid/pkg/geom"
)

// ErrCorruptBuffer is returned when flat attribute arrays cannot describe a
// triangle mesh.
var ErrCorruptBuffer = errors.New("corrupt mesh buffer")

// Buffers is the flat wire form of a mesh: three floats per vertex and
// three indices per triangle.
type Buffers struct {
	Vertices []float64 `json:"vertices"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name,omitempty"`
}

// ToBuffers flattens m.
func (m *Mesh) ToBuffers() Buffers {
	b := Buffers{
		Name:     m.Name,
		Vertices: make([]float64, 0, len(m.Vertices)*3),
		Indices:  make([]uint32, 0, len(m.Faces)*3),
	}
	for _, v := range m.Vertices {
		b.Vertices = append(b.Vertices, v.X, v.Y, v.Z)
	}
	for _, f := range m.Faces {
		b.Indices = append(b.Indices, uint32(f.V[0]), uint32(f.V[1]), uint32(f.V[2]))
	}
	return b
}

// FromBuffers rebuilds a mesh from its flat form, rejecting position arrays
// whose length is not a multiple of three, index arrays whose length is not
// a multiple of three, and indices outside the vertex buffer. Face normals
// are recomputed and stats are refreshed.
func FromBuffers(b Buffers) (*Mesh, error) {
	if len(b.Vertices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d position values is not a multiple of 3", ErrCorruptBuffer, len(b.Vertices))
	}
	if len(b.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a multiple of 3", ErrCorruptBuffer, len(b.Indices))
	}

	m := &Mesh{
		Name:     b.Name,
		Vertices: make([]geom.Vec3, len(b.Vertices)/3),
		Faces:    make([]Face, 0, len(b.Indices)/3),
	}
	for i := range m.Vertices {
		m.Vertices[i] = geom.Vec3{X: b.Vertices[i*3], Y: b.Vertices[i*3+1], Z: b.Vertices[i*3+2]}
		if !m.Vertices[i].IsFinite() {
			return nil, fmt.Errorf("%w: vertex %d is not finite", ErrCorruptBuffer, i)
		}
	}
	for t := 0; t < len(b.Indices); t += 3 {
		for _, idx := range b.Indices[t : t+3] {
			if int(idx) >= len(m.Vertices) {
				return nil, fmt.Errorf("%w: %w", ErrCorruptBuffer,
					&IndexError{Face: t / 3, Index: int(idx), VertexCount: len(m.Vertices)})
			}
		}
		m.AddFace(int(b.Indices[t]), int(b.Indices[t+1]), int(b.Indices[t+2]))
	}
	return m.Refresh(), nil
}
