package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/pipeline"
)

func unitParams() pattern.GenerationParams {
	params := pattern.DefaultParams()
	params.CubeSize = 1
	params.CubeHeight = 1
	params.OptimizeMesh = false
	return params
}

func TestGenerateSingleCell(t *testing.T) {
	res, err := pipeline.Generate(context.Background(), pattern.FromRows("#"), unitParams(), pipeline.Options{})
	require.NoError(t, err)
	m := res.Mesh
	assert.Equal(t, 8, m.Stats.VertexCount)
	assert.Equal(t, 12, m.Stats.FaceCount)
	assert.InDelta(t, 6, m.Stats.SurfaceArea, 1e-9)
	assert.True(t, m.Fresh())
	assert.Equal(t, optimize.LevelNone, res.Optimization.Level)
}

func TestGenerateVertexBound(t *testing.T) {
	p := pattern.FromRows(
		"#.#.",
		".##.",
		"####",
	)
	for _, base := range []bool{false, true} {
		params := unitParams()
		params.GenerateBase = base
		res, err := pipeline.Generate(context.Background(), p, params, pipeline.Options{})
		require.NoError(t, err)

		limit := 8 * p.ActiveCount()
		if base {
			limit += 4
		}
		assert.LessOrEqual(t, res.Mesh.VertexCount(), limit, "base=%v", base)
		assert.Equal(t, 0, mesh.DuplicateVertexCount(res.Mesh), "base=%v", base)
	}
}

func TestGenerateEmptyPattern(t *testing.T) {
	p := pattern.New(4, 4)

	res, err := pipeline.Generate(context.Background(), p, unitParams(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Mesh.VertexCount())
	assert.Equal(t, 0, res.Mesh.FaceCount())
	assert.Zero(t, res.Mesh.Stats.SurfaceArea)

	params := unitParams()
	params.GenerateBase = true
	res, err = pipeline.Generate(context.Background(), p, params, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Mesh.VertexCount())
	assert.Equal(t, 2, res.Mesh.FaceCount())
	// 4 cells plus one cell of padding on each side.
	assert.InDelta(t, 36, res.Mesh.Stats.SurfaceArea, 1e-9)
}

func TestGenerateIncludeBackgroundOverrides(t *testing.T) {
	p := pattern.FromRows("#")
	on, off := true, false

	res, err := pipeline.Generate(context.Background(), p, unitParams(), pipeline.Options{IncludeBackground: &on})
	require.NoError(t, err)
	assert.Equal(t, 14, res.Mesh.FaceCount())

	params := unitParams()
	params.GenerateBase = true
	res, err = pipeline.Generate(context.Background(), p, params, pipeline.Options{IncludeBackground: &off})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Mesh.FaceCount())
}

func TestGenerateOptimizes(t *testing.T) {
	p := pattern.FromRows("##", "##")
	params := unitParams()

	plain, err := pipeline.Generate(context.Background(), p, params, pipeline.Options{})
	require.NoError(t, err)

	params.OptimizeMesh = true
	opt, err := pipeline.Generate(context.Background(), p, params, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, optimize.LevelMedium, opt.Optimization.Level)
	assert.Less(t, opt.Mesh.FaceCount(), plain.Mesh.FaceCount())
	assert.InDelta(t, plain.Mesh.Stats.Volume, opt.Mesh.Stats.Volume, 1e-9)

	low := optimize.LevelLow
	forced, err := pipeline.Generate(context.Background(), p, params, pipeline.Options{Level: &low})
	require.NoError(t, err)
	assert.Equal(t, optimize.LevelLow, forced.Optimization.Level)
	assert.Equal(t, 16, forced.Optimization.CulledFaces)
}

func TestGenerateProgress(t *testing.T) {
	var got []int
	_, err := pipeline.Generate(context.Background(), pattern.FromRows("#"), unitParams(), pipeline.Options{
		Progress: func(pct int) { got = append(got, pct) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 50, 70, 90}, got)
}

func TestGenerateInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		p      *pattern.DotPattern
		params func(*pattern.GenerationParams)
	}{
		{"nil pattern", nil, nil},
		{"ragged rows", &pattern.DotPattern{Width: 2, Height: 2, Data: [][]bool{{true, true}, {true}}}, nil},
		{"zero width", &pattern.DotPattern{Width: 0, Height: 1, Data: [][]bool{{}}}, nil},
		{"zero cube size", pattern.FromRows("#"), func(g *pattern.GenerationParams) { g.CubeSize = 0 }},
		{"negative height", pattern.FromRows("#"), func(g *pattern.GenerationParams) { g.CubeHeight = -1 }},
		{"base without thickness", pattern.FromRows("#"), func(g *pattern.GenerationParams) {
			g.GenerateBase = true
			g.BaseThickness = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := unitParams()
			if tt.params != nil {
				tt.params(&params)
			}
			var calls int
			res, err := pipeline.Generate(context.Background(), tt.p, params, pipeline.Options{
				Progress: func(int) { calls++ },
			})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, pattern.ErrInvalidInput)

			var se *pipeline.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, pipeline.OpGenerate, se.Op)
			assert.Zero(t, calls, "no stage should run on invalid input")
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.Generate(ctx, pattern.FromRows("#"), unitParams(), pipeline.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewKernel(t *testing.T) {
	for _, name := range []string{"", "box", "sdfx"} {
		k, err := pipeline.NewKernel(name, 8)
		require.NoError(t, err, name)
		assert.NotNil(t, k)
	}
	_, err := pipeline.NewKernel("manifold", 0)
	assert.Error(t, err)
}

func TestGenerateChamferedCells(t *testing.T) {
	params := unitParams()
	params.ChamferEdges = true
	params.ChamferSize = 0.1
	low := optimize.LevelLow

	res, err := pipeline.Generate(context.Background(), pattern.FromRows("##"), params, pipeline.Options{Level: &low})
	require.NoError(t, err)
	m := res.Mesh
	require.NoError(t, m.Validate())

	// Two 24-vertex cells share the 4 corners of their touching side.
	assert.Equal(t, 44, m.VertexCount())
	assert.Equal(t, 4, res.Optimization.CulledFaces)
	assert.Equal(t, 2*44-4, m.FaceCount())
	for e, faces := range m.EdgeFaces() {
		assert.Len(t, faces, 2, "edge %v", e)
	}

	// Each cell loses 2c²(x+y+z-6c) along its edges and 5c³/6 per corner.
	c := 0.1
	cell := 1 - 2*c*c*(3-6*c) - 8*5*c*c*c/6
	assert.InDelta(t, 2*cell, m.Stats.Volume, 1e-9)
}

func TestOptimize(t *testing.T) {
	t.Run("nil mesh", func(t *testing.T) {
		_, _, err := pipeline.Optimize(nil, optimize.LevelHigh, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, mesh.ErrNilMesh)
		var se *pipeline.StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, pipeline.OpOptimize, se.Op)
		assert.Contains(t, err.Error(), "optimize")
	})

	t.Run("bad indices", func(t *testing.T) {
		m := mesh.New()
		m.AddVertex(geom.V(0, 0, 0))
		m.AddFace(0, 1, 2)
		_, _, err := pipeline.Optimize(m, optimize.LevelLow, nil)
		var ie *mesh.IndexError
		assert.ErrorAs(t, err, &ie)
	})

	t.Run("assembled input", func(t *testing.T) {
		res, err := pipeline.Generate(context.Background(), pattern.FromRows("##"), unitParams(), pipeline.Options{})
		require.NoError(t, err)
		raw := res.Mesh.Clone()

		out, rep, err := pipeline.Optimize(raw, optimize.LevelLow, nil)
		require.NoError(t, err)
		assert.Equal(t, 20, out.FaceCount())
		assert.Equal(t, 24, rep.FacesBefore)
		assert.LessOrEqual(t, out.VertexCount(), raw.VertexCount())
		assert.Equal(t, 24, raw.FaceCount(), "input must not be modified")
	})
}

func TestExport(t *testing.T) {
	res, err := pipeline.Generate(context.Background(), pattern.FromRows("#"), unitParams(), pipeline.Options{})
	require.NoError(t, err)
	m := res.Mesh

	t.Run("obj scaled", func(t *testing.T) {
		var buf bytes.Buffer
		opts := pipeline.ExportOptions{OBJ: export.Options{Precision: 1}, Scale: 10}
		require.NoError(t, pipeline.Export(&buf, m, opts))
		assert.Contains(t, buf.String(), "v -5.0 -5.0 -5.0\n")
		assert.InDelta(t, -0.5, m.Vertices[0].X, 1e-12, "caller mesh must not be scaled")
	})

	t.Run("stl", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, pipeline.Export(&buf, m, pipeline.ExportOptions{Format: export.FormatSTL}))
		assert.Equal(t, 84+50*12, buf.Len())
	})

	t.Run("nil mesh", func(t *testing.T) {
		err := pipeline.Export(&bytes.Buffer{}, nil, pipeline.ExportOptions{})
		assert.ErrorIs(t, err, mesh.ErrNilMesh)
		assert.True(t, strings.HasPrefix(err.Error(), "export: "))
	})

	t.Run("negative scale", func(t *testing.T) {
		err := pipeline.Export(&bytes.Buffer{}, m, pipeline.ExportOptions{Scale: -1})
		var se *pipeline.StageError
		assert.True(t, errors.As(err, &se))
	})
}
