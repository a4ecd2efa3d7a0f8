package mesh

import "github.com/chazu/dotsolid/pkg/geom"

// Deduplicate merges vertices whose positions agree to geom.KeyDecimals
// decimal places and rewrites every face through the resulting remap.
// Canonical indices are assigned in vertex-buffer order, so the output does
// not depend on face order. Face count and winding are unchanged, and the
// output never has more vertices than the input. Running it on its own
// output is a no-op.
func Deduplicate(m *Mesh) *Mesh {
	if m == nil {
		return nil
	}

	canonical := make(map[geom.Key]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	out := &Mesh{
		Name:     m.Name,
		Vertices: make([]geom.Vec3, 0, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}

	for i, v := range m.Vertices {
		k := geom.KeyOf(v)
		idx, ok := canonical[k]
		if !ok {
			idx = len(out.Vertices)
			canonical[k] = idx
			out.Vertices = append(out.Vertices, v)
		}
		remap[i] = idx
	}

	for i, f := range m.Faces {
		nf := f.clone()
		nf.V = [3]int{remap[f.V[0]], remap[f.V[1]], remap[f.V[2]]}
		out.Faces[i] = nf
	}
	return out
}

// DuplicateVertexCount returns how many vertices share a position key with
// an earlier vertex.
func DuplicateVertexCount(m *Mesh) int {
	seen := make(map[geom.Key]struct{}, len(m.Vertices))
	dups := 0
	for _, v := range m.Vertices {
		k := geom.KeyOf(v)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// Compact drops faces listed in remove, drops vertices no remaining face
// references and renumbers the rest, preserving relative order.
func Compact(m *Mesh, remove map[int]bool) *Mesh {
	out := &Mesh{Name: m.Name}
	used := make([]bool, len(m.Vertices))
	for i, f := range m.Faces {
		if remove[i] {
			continue
		}
		for _, idx := range f.V {
			used[idx] = true
		}
	}

	remap := make([]int, len(m.Vertices))
	out.Vertices = make([]geom.Vec3, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
	}

	out.Faces = make([]Face, 0, len(m.Faces))
	for i, f := range m.Faces {
		if remove[i] {
			continue
		}
		nf := f.clone()
		nf.V = [3]int{remap[f.V[0]], remap[f.V[1]], remap[f.V[2]]}
		out.Faces = append(out.Faces, nf)
	}
	return out
}
