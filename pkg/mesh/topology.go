package mesh

// Edge is an undirected edge between two vertex indices, stored with
// A < B so that both traversal directions map to the same key.
type Edge struct {
	A, B int
}

// EdgeOf returns the canonical edge between a and b.
func EdgeOf(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// FaceEdges returns the three edges of face f.
func FaceEdges(f Face) [3]Edge {
	return [3]Edge{
		EdgeOf(f.V[0], f.V[1]),
		EdgeOf(f.V[1], f.V[2]),
		EdgeOf(f.V[2], f.V[0]),
	}
}

// EdgeFaces maps every edge to the faces that use it, in face order.
func (m *Mesh) EdgeFaces() map[Edge][]int {
	edges := make(map[Edge][]int, len(m.Faces)*3/2)
	for i, f := range m.Faces {
		for _, e := range FaceEdges(f) {
			edges[e] = append(edges[e], i)
		}
	}
	return edges
}

// VertexFaces maps every vertex index to the faces that reference it.
func (m *Mesh) VertexFaces() [][]int {
	incident := make([][]int, len(m.Vertices))
	for i, f := range m.Faces {
		for _, idx := range f.V {
			incident[idx] = append(incident[idx], i)
		}
	}
	return incident
}

// IsDegenerate reports whether face f repeats a vertex index.
func IsDegenerate(f Face) bool {
	return f.V[0] == f.V[1] || f.V[1] == f.V[2] || f.V[0] == f.V[2]
}
