package tessellate

import (
	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/pattern"
)

// BasePlate returns the background quad laid beneath the cells: one
// upward-facing rectangle covering the whole grid plus one cube size of
// padding on every side, at y = -cubeHeight/2 - baseThickness. It is
// produced for empty patterns too, so a blank design still has a plate.
func BasePlate(p *pattern.DotPattern, params pattern.GenerationParams) *mesh.Mesh {
	if p == nil || p.Width <= 0 || p.Height <= 0 {
		return mesh.New()
	}
	pitch := params.Pitch()
	half := params.CubeSize / 2
	pad := params.CubeSize

	minX := -half - pad
	minZ := -half - pad
	maxX := float64(p.Width-1)*pitch + half + pad
	maxZ := float64(p.Height-1)*pitch + half + pad
	y := -params.CubeHeight/2 - params.BaseThickness

	m := mesh.New()
	m.Name = "base"
	a := m.AddVertex(geom.V(minX, y, minZ))
	b := m.AddVertex(geom.V(minX, y, maxZ))
	c := m.AddVertex(geom.V(maxX, y, maxZ))
	d := m.AddVertex(geom.V(maxX, y, minZ))
	// Counter-clockwise seen from above.
	m.AddQuad(a, b, c, d)
	return m.Refresh()
}
