package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
)

// DecodeOBJ parses OBJ text into a mesh. Only v and f statements are
// used; polygons with more than three corners are fanned into triangles.
// Face corners may be written as a, a/b, a//c or a/b/c, and negative
// indices count back from the most recent vertex. Normals are recomputed
// from the winding.
func DecodeOBJ(r io.Reader) (*mesh.Mesh, error) {
	m := mesh.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "decode obj: line %d", lineNo)
			}
			m.AddVertex(v)
		case "f":
			idx, err := parseFace(fields[1:], m.VertexCount())
			if err != nil {
				return nil, errors.Wrapf(err, "decode obj: line %d", lineNo)
			}
			for i := 1; i+1 < len(idx); i++ {
				m.AddFace(idx[0], idx[i], idx[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "decode obj")
	}
	return m.Refresh(), nil
}

func parseVertex(args []string) (geom.Vec3, error) {
	if len(args) < 3 {
		return geom.Vec3{}, errors.Errorf("vertex needs 3 coordinates, got %d", len(args))
	}
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return geom.Vec3{}, errors.Wrapf(err, "coordinate %d", i)
		}
		c[i] = f
	}
	v := geom.V(c[0], c[1], c[2])
	if !v.IsFinite() {
		return geom.Vec3{}, errors.Errorf("vertex %v is not finite", v)
	}
	return v, nil
}

// parseFace returns 0-based vertex indices for one f statement, given
// the number of vertices read so far.
func parseFace(args []string, count int) ([]int, error) {
	if len(args) < 3 {
		return nil, errors.Errorf("face needs at least 3 corners, got %d", len(args))
	}
	out := make([]int, len(args))
	for i, a := range args {
		if slash := strings.IndexByte(a, '/'); slash >= 0 {
			a = a[:slash]
		}
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.Wrapf(err, "corner %d", i)
		}
		switch {
		case n > 0:
			n--
		case n < 0:
			n += count
		default:
			return nil, errors.New("face index 0 is not valid")
		}
		if n < 0 || n >= count {
			return nil, errors.Errorf("face index %s out of range [1, %d]", args[i], count)
		}
		out[i] = n
	}
	return out, nil
}
