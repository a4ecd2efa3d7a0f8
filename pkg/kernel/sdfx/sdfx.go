// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. It is used for cells whose
// edges are rounded, where the exact prism kernel cannot express the shape.
package sdfx

import (
	"fmt"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel  = (*SdfxKernel)(nil)
	_ kernel.Rounder = (*SdfxKernel)(nil)
)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest side of a solid.
const DefaultMeshCells = 24

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel rendering with the given number of marching
// cubes cells. Non-positive values select DefaultMeshCells.
func New(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centred on the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	return k.RoundedBox(x, y, z, 0)
}

// RoundedBox creates a box centred on the origin whose edges and corners
// are rounded with the given radius.
func (k *SdfxKernel) RoundedBox(x, y, z, radius float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
// Degenerate triangles emitted by the renderer are dropped. The result is
// not deduplicated; every triangle carries its own three vertices.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*mesh.Mesh, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: unsupported solid type %T", s)
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(ss.s, renderer)

	m := &mesh.Mesh{
		Vertices: make([]geom.Vec3, 0, len(triangles)*3),
		Faces:    make([]mesh.Face, 0, len(triangles)),
	}
	for _, tri := range triangles {
		var corners [3]geom.Vec3
		for j := 0; j < 3; j++ {
			corners[j] = geom.V(tri[j].X, tri[j].Y, tri[j].Z)
		}
		if geom.TriangleArea(corners[0], corners[1], corners[2]) < 1e-12 {
			continue
		}
		n := tri.Normal()
		normal := geom.V(n.X, n.Y, n.Z).Normalize()
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices, corners[:]...)
		m.Faces = append(m.Faces, mesh.Face{V: [3]int{base, base + 1, base + 2}, Normal: &normal})
	}
	if len(m.Faces) == 0 {
		return nil, fmt.Errorf("sdfx: solid rendered to an empty mesh")
	}
	return m.Refresh(), nil
}
