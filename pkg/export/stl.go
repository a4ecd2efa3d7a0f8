package export

import (
	"fmt"
	"io"

	"github.com/unixpickle/model3d/model3d"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// EncodeSTL writes m as binary STL. STL has no shared vertices, so every
// triangle carries its own corners.
func EncodeSTL(w io.Writer, m *mesh.Mesh) error {
	if m == nil {
		return fmt.Errorf("export: stl: %w", mesh.ErrNilMesh)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	if err := model3d.WriteSTL(w, toModel3D(m)); err != nil {
		return fmt.Errorf("export: stl: %w", err)
	}
	return nil
}

func toModel3D(m *mesh.Mesh) []*model3d.Triangle {
	tris := make([]*model3d.Triangle, len(m.Faces))
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		tris[i] = &model3d.Triangle{
			model3d.Coord3D{X: a.X, Y: a.Y, Z: a.Z},
			model3d.Coord3D{X: b.X, Y: b.Y, Z: b.Z},
			model3d.Coord3D{X: c.X, Y: c.Y, Z: c.Z},
		}
	}
	return tris
}
