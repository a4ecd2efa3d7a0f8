// Package optimize reduces the triangle count of a deduplicated mesh
// without changing its shape.
//
// Three passes are available. CullInternalFaces removes pairs of
// coincident, oppositely wound triangles, which appear wherever two cells
// touch. MergeCoplanar additionally collapses vertices that sit in the
// middle of a flat region. Simplify also collapses vertices that sit on a
// straight crease between two flat regions. No pass ever moves a surviving
// vertex, changes a surviving face's normal or adds a face, so vertex and
// face counts never grow.
package optimize

import (
	"fmt"
	"strings"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// Level selects how much work Run does.
type Level int

const (
	// LevelNone leaves the mesh unchanged.
	LevelNone Level = iota
	// LevelLow removes internal faces between touching cells.
	LevelLow
	// LevelMedium also merges coplanar faces.
	LevelMedium
	// LevelHigh also straightens creases.
	LevelHigh
)

var levelNames = map[Level]string{
	LevelNone:   "none",
	LevelLow:    "low",
	LevelMedium: "medium",
	LevelHigh:   "high",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name to a Level. The empty string means
// LevelNone.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelNone, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("optimize: unknown level %q (want none, low, medium or high)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LevelFor maps the boolean generation switches onto a level: either
// optimizeMesh or mergeAdjacentFaces selects LevelMedium.
func LevelFor(optimizeMesh, mergeAdjacentFaces bool) Level {
	if optimizeMesh || mergeAdjacentFaces {
		return LevelMedium
	}
	return LevelNone
}

// Report describes what a run removed. Reductions are percentages of the
// input counts.
type Report struct {
	Level           Level   `json:"level"`
	VerticesBefore  int     `json:"verticesBefore"`
	VerticesAfter   int     `json:"verticesAfter"`
	FacesBefore     int     `json:"facesBefore"`
	FacesAfter      int     `json:"facesAfter"`
	CulledFaces     int     `json:"culledFaces"`
	Collapses       int     `json:"collapses"`
	VertexReduction float64 `json:"vertexReduction"`
	FaceReduction   float64 `json:"faceReduction"`
}

// Run applies every pass up to level and returns the optimized mesh with
// refreshed stats. The input is expected to be deduplicated; it is not
// modified. A nil mesh yields nil.
func Run(m *mesh.Mesh, level Level) (*mesh.Mesh, Report) {
	if m == nil {
		return nil, Report{Level: level}
	}
	rep := Report{
		Level:          level,
		VerticesBefore: m.VertexCount(),
		FacesBefore:    m.FaceCount(),
	}

	out := m.Clone()
	if level >= LevelLow {
		var culled int
		out, culled = CullInternalFaces(out)
		rep.CulledFaces = culled
	}
	switch {
	case level >= LevelHigh:
		var n int
		out, n = Simplify(out)
		rep.Collapses = n
	case level >= LevelMedium:
		var n int
		out, n = collapse(out, false)
		rep.Collapses = n
	}
	out.Refresh()

	rep.VerticesAfter = out.VertexCount()
	rep.FacesAfter = out.FaceCount()
	rep.VertexReduction = reduction(rep.VerticesBefore, rep.VerticesAfter)
	rep.FaceReduction = reduction(rep.FacesBefore, rep.FacesAfter)
	return out, rep
}

// MergeCoplanar removes internal faces and then collapses every vertex
// whose surrounding faces all lie in one plane. It returns the number of
// faces removed.
func MergeCoplanar(m *mesh.Mesh) (*mesh.Mesh, int) {
	if m == nil {
		return nil, 0
	}
	before := m.FaceCount()
	out, _ := CullInternalFaces(m)
	out, _ = collapse(out, false)
	return out.Refresh(), before - out.FaceCount()
}

// Simplify collapses planar vertices and vertices on straight creases. It
// returns the number of collapses performed.
func Simplify(m *mesh.Mesh) (*mesh.Mesh, int) {
	if m == nil {
		return nil, 0
	}
	out, n := collapse(m, true)
	return out.Refresh(), n
}

func reduction(before, after int) float64 {
	if before == 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}
