package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// Format names an output file format.
type Format string

const (
	FormatOBJ Format = "obj"
	FormatSTL Format = "stl"
	Format3MF Format = "3mf"
)

// ParseFormat accepts a format name or a file extension, with or without
// the dot, in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatOBJ, FormatSTL, Format3MF:
		return f, nil
	case "":
		return FormatOBJ, nil
	default:
		return "", fmt.Errorf("export: unknown format %q (want obj, stl or 3mf)", s)
	}
}

// FormatFromPath picks the format from a file name's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Filename returns name with the format's extension, replacing any
// existing one. An empty name becomes "model".
func Filename(name string, f Format) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "model"
	}
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name + f.Ext()
}

// Write encodes m in format f. opts applies to OBJ only.
func Write(w io.Writer, m *mesh.Mesh, f Format, opts Options) error {
	switch f {
	case FormatOBJ:
		return EncodeOBJ(w, m, opts)
	case FormatSTL:
		return EncodeSTL(w, m)
	case Format3MF:
		var name string
		if m != nil {
			name = m.Name
		}
		return Encode3MF(w, m, name)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}
