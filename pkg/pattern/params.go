package pattern

import (
	"fmt"
	"math"
)

// GenerationParams controls how a pattern is turned into a solid. All
// lengths are in millimetres. It is a value type; each job gets its own copy.
type GenerationParams struct {
	CubeSize           float64 `json:"cubeSize" yaml:"cube_size" toml:"cube_size"`
	CubeHeight         float64 `json:"cubeHeight" yaml:"cube_height" toml:"cube_height"`
	Spacing            float64 `json:"spacing" yaml:"spacing" toml:"spacing"`
	GenerateBase       bool    `json:"generateBase" yaml:"generate_base" toml:"generate_base"`
	BaseThickness      float64 `json:"baseThickness" yaml:"base_thickness" toml:"base_thickness"`
	OptimizeMesh       bool    `json:"optimizeMesh" yaml:"optimize_mesh" toml:"optimize_mesh"`
	MergeAdjacentFaces bool    `json:"mergeAdjacentFaces" yaml:"merge_adjacent_faces" toml:"merge_adjacent_faces"`
	ChamferEdges       bool    `json:"chamferEdges" yaml:"chamfer_edges" toml:"chamfer_edges"`
	ChamferSize        float64 `json:"chamferSize" yaml:"chamfer_size" toml:"chamfer_size"`
}

// DefaultParams returns the parameter set used when the caller supplies
// none.
func DefaultParams() GenerationParams {
	return GenerationParams{
		CubeSize:      2,
		CubeHeight:    2,
		Spacing:       0,
		GenerateBase:  false,
		BaseThickness: 1,
		OptimizeMesh:  true,
		ChamferSize:   0.2,
	}
}

// Pitch is the centre-to-centre distance between neighbouring cells.
func (g GenerationParams) Pitch() float64 {
	return g.CubeSize + g.Spacing
}

// Validate rejects parameter sets that cannot produce geometry.
func (g GenerationParams) Validate() error {
	var errs Errors

	positive := func(field string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s is %.4f, must be positive", field, v)})
		}
	}
	nonNegative := func(field string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%s is %.4f, must not be negative", field, v)})
		}
	}

	positive("cubeSize", g.CubeSize)
	positive("cubeHeight", g.CubeHeight)
	nonNegative("spacing", g.Spacing)
	if g.GenerateBase {
		positive("baseThickness", g.BaseThickness)
	}
	if g.ChamferEdges {
		nonNegative("chamferSize", g.ChamferSize)
		limit := math.Min(g.CubeSize, g.CubeHeight) / 2
		if g.ChamferSize >= limit && limit > 0 {
			errs = append(errs, ValidationError{
				Field:   "chamferSize",
				Message: fmt.Sprintf("chamferSize %.4f must be smaller than half the smallest cell dimension (%.4f)", g.ChamferSize, limit),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
