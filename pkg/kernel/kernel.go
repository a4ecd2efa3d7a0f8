// Package kernel defines the abstract solid-modelling interface used to
// build cell geometry. Implementations (box, sdfx) produce triangle meshes
// behind this interface, so the tessellator can swap the exact prism
// generator, which can also chamfer, for a rounded-edge one without
// changing anything else.
package kernel

import "github.com/chazu/dotsolid/pkg/mesh"

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box returns an axis-aligned box of the given extents centred on the
	// origin.
	Box(x, y, z float64) Solid

	// ToMesh converts a solid to an indexed triangle mesh with outward
	// normals.
	ToMesh(s Solid) (*mesh.Mesh, error)
}

// Chamferer is implemented by kernels that can cut every edge of a box
// with a flat 45° bevel of the given leg length.
type Chamferer interface {
	ChamferedBox(x, y, z, size float64) Solid
}

// Rounder is implemented by kernels that can round the edges of a box.
type Rounder interface {
	RoundedBox(x, y, z, radius float64) Solid
}
