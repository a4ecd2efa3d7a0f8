package mesh

import "github.com/chazu/dotsolid/pkg/geom"

// Assemble concatenates fragments into one mesh. Vertices are appended
// verbatim; every face index is shifted by the number of vertices that
// precede its fragment, so each index stays within the combined buffer.
// Nil fragments are skipped. The result's stats are stale.
func Assemble(fragments ...*Mesh) *Mesh {
	var nv, nf int
	for _, frag := range fragments {
		if frag == nil {
			continue
		}
		nv += len(frag.Vertices)
		nf += len(frag.Faces)
	}

	out := &Mesh{
		Vertices: make([]geom.Vec3, 0, nv),
		Faces:    make([]Face, 0, nf),
	}

	offset := 0
	for _, frag := range fragments {
		if frag == nil {
			continue
		}
		out.Vertices = append(out.Vertices, frag.Vertices...)
		for _, f := range frag.Faces {
			shifted := f.clone()
			shifted.V = [3]int{f.V[0] + offset, f.V[1] + offset, f.V[2] + offset}
			out.Faces = append(out.Faces, shifted)
		}
		offset += len(frag.Vertices)
	}
	return out
}
