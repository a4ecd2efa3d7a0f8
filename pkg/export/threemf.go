package export

import (
	"fmt"
	"io"

	"github.com/hpinc/go3mf"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// Encode3MF writes m as a single-object 3MF package. Units are
// millimetres, the 3MF default.
func Encode3MF(w io.Writer, m *mesh.Mesh, name string) error {
	if m == nil {
		return fmt.Errorf("export: 3mf: %w", mesh.ErrNilMesh)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	if name == "" {
		name = m.Name
	}

	obj := &go3mf.Object{
		ID:   1,
		Name: name,
		Mesh: &go3mf.Mesh{},
	}
	obj.Mesh.Vertices.Vertex = make([]go3mf.Point3D, len(m.Vertices))
	for i, v := range m.Vertices {
		obj.Mesh.Vertices.Vertex[i] = go3mf.Point3D{float32(v.X), float32(v.Y), float32(v.Z)}
	}
	obj.Mesh.Triangles.Triangle = make([]go3mf.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		obj.Mesh.Triangles.Triangle[i] = go3mf.Triangle{
			V1: uint32(f.V[0]),
			V2: uint32(f.V[1]),
			V3: uint32(f.V[2]),
		}
	}

	model := &go3mf.Model{}
	model.Resources.Objects = append(model.Resources.Objects, obj)
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: obj.ID})

	if err := go3mf.NewEncoder(w).Encode(model); err != nil {
		return fmt.Errorf("export: 3mf: %w", err)
	}
	return nil
}
