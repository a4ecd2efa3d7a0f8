package optimize

import (
	"sort"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// CullInternalFaces removes every pair of faces that use the same three
// vertices with opposite winding. Such pairs are the two sides of a wall
// between touching solids and are never visible. It returns the compacted
// mesh and the number of faces removed.
func CullInternalFaces(m *mesh.Mesh) (*mesh.Mesh, int) {
	if m == nil {
		return nil, 0
	}

	byVerts := make(map[[3]int][]int, len(m.Faces))
	for i, f := range m.Faces {
		if mesh.IsDegenerate(f) {
			continue
		}
		k := sortedTriple(f.V)
		byVerts[k] = append(byVerts[k], i)
	}

	remove := make(map[int]bool)
	for _, faces := range byVerts {
		if len(faces) < 2 {
			continue
		}
		for i := 0; i < len(faces); i++ {
			if remove[faces[i]] {
				continue
			}
			for j := i + 1; j < len(faces); j++ {
				if remove[faces[j]] {
					continue
				}
				if opposite(m.Faces[faces[i]].V, m.Faces[faces[j]].V) {
					remove[faces[i]] = true
					remove[faces[j]] = true
					break
				}
			}
		}
	}
	if len(remove) == 0 {
		return m, 0
	}
	return mesh.Compact(m, remove), len(remove)
}

func sortedTriple(v [3]int) [3]int {
	sort.Ints(v[:])
	return v
}

// opposite reports whether b is a with the winding reversed.
func opposite(a, b [3]int) bool {
	for r := 0; r < 3; r++ {
		if a[0] == b[r] && a[1] == b[(r+2)%3] && a[2] == b[(r+1)%3] {
			return true
		}
	}
	return false
}
