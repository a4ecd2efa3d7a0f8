package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/dotsolid/internal/config"
	"github.com/chazu/dotsolid/internal/logger"
	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/quality"
	"github.com/chazu/dotsolid/pkg/worker"
)

// App owns a running worker and exposes one method per job kind. Every
// call is a request/response round trip bounded by the configured result
// timeout.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	worker *worker.Worker
	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp starts a worker for cfg. Close must be called to stop it.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log = logger.OrNop(log)
	w, err := worker.New(cfg, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, log: log, worker: w, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(a.done)
		_ = w.Run(ctx)
	}()
	return a, nil
}

// Close stops the worker and waits for it to exit.
func (a *App) Close() {
	a.cancel()
	<-a.done
}

// Worker returns the underlying worker.
func (a *App) Worker() *worker.Worker {
	return a.worker
}

// GenerateOptions carries the optional parts of a GENERATE_MESH request.
type GenerateOptions struct {
	Params            *pattern.GenerationParams
	Level             *optimize.Level
	IncludeBackground *bool
}

// Generate builds a mesh from p.
func (a *App) Generate(ctx context.Context, p *pattern.DotPattern, opts GenerateOptions) (*worker.MeshResult, error) {
	res, err := a.worker.Call(ctx, worker.GenerateRequest{
		Pattern:           p,
		Params:            opts.Params,
		Level:             opts.Level,
		IncludeBackground: opts.IncludeBackground,
	})
	if err != nil {
		return nil, err
	}
	return result[*worker.MeshResult](res)
}

// Optimize runs the optimizer over m at level, or at the configured level
// when level is nil.
func (a *App) Optimize(ctx context.Context, m *mesh.Mesh, level *optimize.Level) (*worker.MeshResult, error) {
	res, err := a.worker.Call(ctx, worker.OptimizeRequest{Mesh: buffers(m), Level: level})
	if err != nil {
		return nil, err
	}
	return result[*worker.MeshResult](res)
}

// ExportOptions carries the optional parts of an EXPORT_OBJ request.
type ExportOptions struct {
	Format  export.Format
	Scale   float64
	Name    string
	Pattern *pattern.DotPattern
	Params  *pattern.GenerationParams
}

// Export serializes m.
func (a *App) Export(ctx context.Context, m *mesh.Mesh, opts ExportOptions) (*worker.ExportResult, error) {
	res, err := a.worker.Call(ctx, worker.ExportRequest{
		Mesh:    buffers(m),
		Format:  opts.Format,
		Scale:   opts.Scale,
		Name:    opts.Name,
		Pattern: opts.Pattern,
		Params:  opts.Params,
	})
	if err != nil {
		return nil, err
	}
	return result[*worker.ExportResult](res)
}

// Assess produces a quality report for m.
func (a *App) Assess(ctx context.Context, m *mesh.Mesh, modelID string) (*quality.Report, error) {
	res, err := a.worker.Call(ctx, worker.AssessRequest{Mesh: buffers(m), ModelID: modelID})
	if err != nil {
		return nil, err
	}
	r, err := result[*worker.AssessResult](res)
	if err != nil {
		return nil, err
	}
	return r.Report, nil
}

// Compare assesses both meshes and compares the reports.
func (a *App) Compare(ctx context.Context, ma, mb *mesh.Mesh, idA, idB string) (quality.Comparison, error) {
	ra, err := a.Assess(ctx, ma, idA)
	if err != nil {
		return quality.Comparison{}, fmt.Errorf("assess %s: %w", idA, err)
	}
	rb, err := a.Assess(ctx, mb, idB)
	if err != nil {
		return quality.Comparison{}, fmt.Errorf("assess %s: %w", idB, err)
	}
	return quality.Compare(ra, rb), nil
}

func buffers(m *mesh.Mesh) *mesh.Buffers {
	if m == nil {
		return nil
	}
	b := m.ToBuffers()
	return &b
}

func result[T any](res worker.Response) (T, error) {
	v, ok := res.Payload.Result.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("task %s: unexpected result %T", res.Payload.TaskID, res.Payload.Result)
	}
	return v, nil
}
