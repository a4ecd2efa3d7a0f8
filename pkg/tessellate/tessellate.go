// Package tessellate walks a dot pattern and produces triangle meshes
// using a geometry kernel. One mesh is produced per active cell, plus an
// optional base plate.
package tessellate

import (
	"fmt"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/pattern"
)

// Tessellate produces one triangle mesh per active cell of p using the
// provided geometry kernel. Cells are laid out on the XZ plane with Y up:
// cell (x, y) is centred at (x·pitch, 0, y·pitch). The tessellator is
// read-only and never mutates the pattern. A nil pattern is reported as
// pattern.Errors like any other malformed input.
//
// The cell solid is meshed once and translated into place for every active
// cell, so the kernel is consulted exactly once per call. An all-false
// pattern yields no fragments and no error.
func Tessellate(p *pattern.DotPattern, params pattern.GenerationParams, k kernel.Kernel) ([]*mesh.Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	if p.IsEmpty() {
		return nil, nil
	}

	template, err := cellTemplate(params, k)
	if err != nil {
		return nil, err
	}

	meshes := make([]*mesh.Mesh, 0, p.ActiveCount())
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if !p.At(x, y) {
				continue
			}
			meshes = append(meshes, place(template, x, y, params))
		}
	}
	return meshes, nil
}

// Cell builds the solid for a single grid cell at (x, y).
func Cell(x, y int, params pattern.GenerationParams, k kernel.Kernel) (*mesh.Mesh, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	template, err := cellTemplate(params, k)
	if err != nil {
		return nil, err
	}
	return place(template, x, y, params), nil
}

// cellTemplate meshes one cell centred on the origin. When chamfering is
// requested the kernel's own edge treatment is used: a flat bevel if it can
// chamfer, otherwise rounded edges if it can round, otherwise none.
func cellTemplate(params pattern.GenerationParams, k kernel.Kernel) (*mesh.Mesh, error) {
	x, y, z := params.CubeSize, params.CubeHeight, params.CubeSize
	solid := k.Box(x, y, z)
	if params.ChamferEdges && params.ChamferSize > 0 {
		switch edged := k.(type) {
		case kernel.Chamferer:
			solid = edged.ChamferedBox(x, y, z, params.ChamferSize)
		case kernel.Rounder:
			solid = edged.RoundedBox(x, y, z, params.ChamferSize)
		}
	}

	m, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for cell: %w", err)
	}
	return m, nil
}

// place copies the template and moves it to the centre of cell (x, y).
func place(template *mesh.Mesh, x, y int, params pattern.GenerationParams) *mesh.Mesh {
	pitch := params.Pitch()
	offset := geom.V(float64(x)*pitch, 0, float64(y)*pitch)

	m := template.Clone()
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(offset)
	}
	m.Name = fmt.Sprintf("cell_%d_%d", x, y)
	return m.Refresh()
}
