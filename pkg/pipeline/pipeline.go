// Package pipeline chains the generation stages: validate, tessellate,
// assemble, deduplicate, optimize and measure. Each stage either hands a
// valid mesh to the next or stops the run with a StageError naming the
// operation that failed; no partial mesh is ever returned.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/dotsolid/internal/logger"
	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/kernel/box"
	"github.com/chazu/dotsolid/pkg/kernel/sdfx"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/tessellate"
)

// Operation names used in StageError.
const (
	OpGenerate = "generate"
	OpOptimize = "optimize"
	OpExport   = "export"
)

// StageError reports which operation stopped a run.
type StageError struct {
	Op  string
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Progress receives coarse completion percentages.
type Progress func(percent int)

// Options configures a generation run. The zero value uses exact prisms,
// derives the optimization level from them and logs
// nothing.
type Options struct {
	// Kernel builds cell solids. Nil selects the exact prism kernel, which
	// chamfers with flat bevels when asked.
	Kernel kernel.Kernel
	// Level, when set, overrides the level implied by the parameters.
	Level *optimize.Level
	// IncludeBackground, when set, overrides params.GenerateBase.
	IncludeBackground *bool
	Progress          Progress
	Log               *zap.Logger
}

// Result is the outcome of Generate.
type Result struct {
	Mesh         *mesh.Mesh      `json:"mesh"`
	Optimization optimize.Report `json:"optimization"`
	Duration     time.Duration   `json:"duration"`
}

// NewKernel returns the named kernel: "box" for exact prisms or "sdfx"
// for marching-cubes solids with the given resolution.
func NewKernel(name string, cells int) (kernel.Kernel, error) {
	switch name {
	case "", "box":
		return box.New(), nil
	case "sdfx":
		return sdfx.New(cells), nil
	default:
		return nil, fmt.Errorf("pipeline: unknown kernel %q", name)
	}
}

// Generate turns p into a measured mesh. Invalid input is rejected before
// any geometry is built. An all-false pattern yields an empty mesh, or just
// the base plate when one is requested. Cancelling ctx stops the run
// between stages.
//
// Plain cells contribute at most 8 vertices each (plus 4 for the base).
// Chamfered cells from the exact kernel carry 24 each, and rounded cells
// from sdfx many more, so that bound holds only when chamferEdges is off.
func Generate(ctx context.Context, p *pattern.DotPattern, params pattern.GenerationParams, opts Options) (*Result, error) {
	start := time.Now()
	log := logger.OrNop(opts.Log)
	report := func(pct int) {
		if opts.Progress != nil {
			opts.Progress(pct)
		}
	}
	fail := func(err error) (*Result, error) {
		return nil, &StageError{Op: OpGenerate, Err: err}
	}

	if err := p.Validate(); err != nil {
		return fail(err)
	}
	if err := params.Validate(); err != nil {
		return fail(err)
	}
	withBase := params.GenerateBase
	if opts.IncludeBackground != nil {
		withBase = *opts.IncludeBackground
	}
	if withBase && params.BaseThickness <= 0 {
		return fail(pattern.Errors{{Field: "baseThickness", Message: "baseThickness must be positive when a base is generated"}})
	}
	report(10)

	k := opts.Kernel
	if k == nil {
		k = box.New()
	}

	fragments, err := tessellate.Tessellate(p, params, k)
	if err != nil {
		return fail(err)
	}
	if withBase {
		fragments = append(fragments, tessellate.BasePlate(p, params))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	assembled := mesh.Assemble(fragments...)
	log.Debug("assembled",
		zap.Int("cells", p.ActiveCount()),
		zap.Bool("base", withBase),
		zap.Int("vertices", assembled.VertexCount()),
		zap.Int("faces", assembled.FaceCount()))
	report(50)

	m := mesh.Deduplicate(assembled).Refresh()
	log.Debug("deduplicated",
		zap.Int("vertices", m.VertexCount()),
		zap.Int("removed", assembled.VertexCount()-m.VertexCount()))
	report(70)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	level := optimize.LevelFor(params.OptimizeMesh, params.MergeAdjacentFaces)
	if opts.Level != nil {
		level = *opts.Level
	}
	m, rep := optimize.Run(m, level)
	if rep.Level > optimize.LevelNone {
		log.Debug("optimized",
			zap.Stringer("level", rep.Level),
			zap.Float64("vertexReduction", rep.VertexReduction),
			zap.Float64("faceReduction", rep.FaceReduction))
	}
	report(90)

	m.Name = "dotsolid"
	return &Result{Mesh: m, Optimization: rep, Duration: time.Since(start)}, nil
}

// Optimize deduplicates m and applies level. A nil or malformed mesh is
// reported as a failed optimize operation.
func Optimize(m *mesh.Mesh, level optimize.Level, log *zap.Logger) (*mesh.Mesh, optimize.Report, error) {
	if m == nil {
		return nil, optimize.Report{}, &StageError{Op: OpOptimize, Err: mesh.ErrNilMesh}
	}
	if err := m.Validate(); err != nil {
		return nil, optimize.Report{}, &StageError{Op: OpOptimize, Err: err}
	}
	deduped := mesh.Deduplicate(m)
	out, rep := optimize.Run(deduped, level)
	// Report against the caller's mesh, not the deduplicated copy.
	rep.VerticesBefore = m.VertexCount()
	rep.FacesBefore = m.FaceCount()
	rep.VertexReduction = percent(rep.VerticesBefore, rep.VerticesAfter)
	rep.FaceReduction = percent(rep.FacesBefore, rep.FacesAfter)
	logger.OrNop(log).Debug("optimized",
		zap.Stringer("level", level),
		zap.Int("vertices", out.VertexCount()),
		zap.Int("faces", out.FaceCount()))
	return out, rep, nil
}

// ExportOptions configures Export.
type ExportOptions struct {
	Format export.Format
	OBJ    export.Options
	// Scale multiplies every coordinate; zero means 1.
	Scale float64
}

// Export writes m in the requested format. The caller's mesh is not
// modified by scaling.
func Export(w io.Writer, m *mesh.Mesh, opts ExportOptions) error {
	if m == nil {
		return &StageError{Op: OpExport, Err: mesh.ErrNilMesh}
	}
	if opts.Scale < 0 {
		return &StageError{Op: OpExport, Err: fmt.Errorf("scale %v is negative", opts.Scale)}
	}
	out := m
	if opts.Scale != 0 && opts.Scale != 1 {
		out = m.Clone().Scale(opts.Scale)
	}
	format := opts.Format
	if format == "" {
		format = export.FormatOBJ
	}
	if err := export.Write(w, out, format, opts.OBJ); err != nil {
		return &StageError{Op: OpExport, Err: err}
	}
	return nil
}

func percent(before, after int) float64 {
	if before == 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}
