// Package export serializes meshes to the interchange formats accepted by
// slicers: Wavefront OBJ (text, byte-stable), binary STL and 3MF.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/pattern"
)

// DefaultPrecision is the number of decimals written per coordinate.
const DefaultPrecision = 6

// DefaultToolName is written on the first header line.
const DefaultToolName = "dotsolid"

// Options controls OBJ output. The zero value writes no comments at
// precision 0; use DefaultOptions as a starting point.
type Options struct {
	Precision       int    `json:"precision" yaml:"precision" toml:"precision"`
	IncludeComments bool   `json:"includeComments" yaml:"include_comments" toml:"include_comments"`
	ToolName        string `json:"toolName,omitempty" yaml:"tool_name" toml:"tool_name"`

	// Pattern and Params, when set and IncludeComments is on, are recorded
	// in the header as provenance.
	Pattern *pattern.DotPattern       `json:"-" yaml:"-" toml:"-"`
	Params  *pattern.GenerationParams `json:"-" yaml:"-" toml:"-"`
}

// DefaultOptions returns precision 6 with header comments.
func DefaultOptions() Options {
	return Options{
		Precision:       DefaultPrecision,
		IncludeComments: true,
		ToolName:        DefaultToolName,
	}
}

// EncodeOBJ writes m as OBJ text. Face indices are 1-based. The output is
// a pure function of the mesh and options, so the same input always gives
// the same bytes. A nil mesh or one with out-of-range face indices is
// rejected before anything is written.
func EncodeOBJ(w io.Writer, m *mesh.Mesh, opts Options) error {
	if m == nil {
		return fmt.Errorf("export: obj: %w", mesh.ErrNilMesh)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("export: obj: %w", err)
	}
	if opts.Precision < 0 {
		return fmt.Errorf("export: obj: precision %d is negative", opts.Precision)
	}

	bw := bufio.NewWriter(w)
	if opts.IncludeComments {
		writeHeader(bw, m, opts)
	}

	line := make([]byte, 0, 64)
	for _, v := range m.Vertices {
		line = append(line[:0], 'v')
		for _, c := range [3]float64{v.X, v.Y, v.Z} {
			line = append(line, ' ')
			line = appendCoord(line, c, opts.Precision)
		}
		line = append(line, '\n')
		bw.Write(line)
	}
	for _, f := range m.Faces {
		line = append(line[:0], 'f')
		for _, idx := range f.V {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(idx)+1, 10)
		}
		line = append(line, '\n')
		bw.Write(line)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: obj: %w", err)
	}
	return nil
}

// MarshalOBJ returns the OBJ text for m.
func MarshalOBJ(m *mesh.Mesh, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := EncodeOBJ(&buf, m, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeHeader(w *bufio.Writer, m *mesh.Mesh, opts Options) {
	tool := opts.ToolName
	if tool == "" {
		tool = DefaultToolName
	}
	fmt.Fprintf(w, "# %s\n", tool)
	if m.Name != "" {
		fmt.Fprintf(w, "# Object: %s\n", m.Name)
	}
	fmt.Fprintf(w, "# Vertices: %d\n", m.VertexCount())
	fmt.Fprintf(w, "# Faces: %d\n", m.FaceCount())
	if p := opts.Pattern; p != nil {
		fmt.Fprintf(w, "# Pattern: %dx%d, %d active\n", p.Width, p.Height, p.ActiveCount())
	}
	if g := opts.Params; g != nil {
		fmt.Fprintf(w, "# Params: cubeSize=%s cubeHeight=%s spacing=%s generateBase=%t baseThickness=%s\n",
			fmtParam(g.CubeSize), fmtParam(g.CubeHeight), fmtParam(g.Spacing), g.GenerateBase, fmtParam(g.BaseThickness))
		if g.ChamferEdges {
			fmt.Fprintf(w, "# Chamfer: %s\n", fmtParam(g.ChamferSize))
		}
	}
	w.WriteString("\n")
}

// appendCoord formats c with prec decimals. Values that round to zero are
// written without a sign so that -0 and 0 produce the same bytes.
func appendCoord(dst []byte, c float64, prec int) []byte {
	start := len(dst)
	dst = strconv.AppendFloat(dst, c, 'f', prec, 64)
	if dst[start] == '-' && isZero(dst[start+1:]) {
		dst = append(dst[:start], dst[start+1:]...)
	}
	return dst
}

func isZero(digits []byte) bool {
	for _, d := range digits {
		if d != '0' && d != '.' {
			return false
		}
	}
	return true
}

func fmtParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
