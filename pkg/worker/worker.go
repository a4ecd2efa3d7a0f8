// Package worker runs generation jobs off the caller's goroutine. A single
// goroutine takes jobs from a queue and runs each one to completion before
// starting the next, so no job ever sees another job's mesh.
//
// Each submitted job gets its own buffered response channel. The worker
// sends PROGRESS messages at coarse milestones and then exactly one SUCCESS
// or ERROR, and closes the channel. The buffer holds every message a job can
// produce, so a caller that stops listening never stalls the worker.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/dotsolid/internal/config"
	"github.com/chazu/dotsolid/internal/logger"
	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pipeline"
	"github.com/chazu/dotsolid/pkg/quality"
)

// responseBuffer covers five progress messages plus the terminal one.
const responseBuffer = 8

var (
	// ErrQueueFull is returned by Submit when the job queue has no room.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopped is returned by Submit after Run has returned, and reported
	// for jobs still queued at that point.
	ErrStopped = errors.New("worker: stopped")
	// ErrRunning is returned by a second concurrent call to Run.
	ErrRunning = errors.New("worker: already running")
)

type job struct {
	id  string
	req Request
	out chan Response
}

// Worker processes jobs sequentially.
type Worker struct {
	cfg    *config.Config
	kernel kernel.Kernel
	log    *zap.Logger
	jobs   chan job

	mu      sync.Mutex
	running bool
	stopped bool
	// done is closed by stop; sending tracks SubmitWait calls that may
	// still put a job on the queue.
	done    chan struct{}
	sending sync.WaitGroup
}

// New creates a worker from cfg. A nil cfg means config.Default(). The
// worker does nothing until Run is called.
func New(cfg *config.Config, log *zap.Logger) (*Worker, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	w := &Worker{
		cfg:  cfg,
		log:  logger.OrNop(log).Named("worker"),
		jobs: make(chan job, max(cfg.Worker.QueueSize, 1)),
		done: make(chan struct{}),
	}
	if cfg.Worker.Kernel != "" {
		k, err := pipeline.NewKernel(cfg.Worker.Kernel, cfg.Worker.MeshCells)
		if err != nil {
			return nil, fmt.Errorf("worker: %w", err)
		}
		w.kernel = k
	}
	return w, nil
}

// Run processes jobs until ctx is done. A job already running when ctx is
// cancelled still finishes; jobs left in the queue are answered with
// ErrStopped.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrStopped
	}
	if w.running {
		w.mu.Unlock()
		return ErrRunning
	}
	w.running = true
	w.mu.Unlock()
	defer w.stop()

	w.log.Info("worker started", zap.Int("queueSize", cap(w.jobs)))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping", zap.Error(ctx.Err()))
			return ctx.Err()
		case j := <-w.jobs:
			w.process(context.WithoutCancel(ctx), j)
		}
	}
}

func (w *Worker) stop() {
	w.mu.Lock()
	w.stopped = true
	close(w.done)
	w.mu.Unlock()
	w.sending.Wait()

	for {
		select {
		case j := <-w.jobs:
			j.fail(ErrStopped)
		default:
			return
		}
	}
}

// Submit queues req and returns the channel its messages arrive on. An
// empty task id is replaced with a fresh one; the id actually used is on
// every response.
func (w *Worker) Submit(req Request) (<-chan Response, error) {
	if req == nil {
		return nil, errors.New("worker: nil request")
	}
	j := job{id: taskIDOrNew(req.TaskID()), req: req, out: make(chan Response, responseBuffer)}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil, ErrStopped
	}
	select {
	case w.jobs <- j:
		return j.out, nil
	default:
		return nil, ErrQueueFull
	}
}

// SubmitWait is Submit without the queue full error: it waits for room in
// the queue until ctx is done or the worker stops.
func (w *Worker) SubmitWait(ctx context.Context, req Request) (<-chan Response, error) {
	if req == nil {
		return nil, errors.New("worker: nil request")
	}
	j := job{id: taskIDOrNew(req.TaskID()), req: req, out: make(chan Response, responseBuffer)}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil, ErrStopped
	}
	w.sending.Add(1)
	w.mu.Unlock()
	defer w.sending.Done()

	select {
	case w.jobs <- j:
		return j.out, nil
	case <-w.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, fmt.Errorf("worker: submit %s: %w", j.id, ctx.Err())
	}
}

// Call submits req and waits for its terminal message. Waiting for queue
// room and for the result are both bounded by the configured result
// timeout.
func (w *Worker) Call(ctx context.Context, req Request) (Response, error) {
	if d := w.cfg.Worker.ResultTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	ch, err := w.SubmitWait(ctx, req)
	if err != nil {
		return Response{}, err
	}
	return Await(ctx, ch)
}

func (j job) progress(pct int) {
	j.out <- Response{Type: Progress, Payload: Payload{TaskID: j.id, Progress: pct}}
}

func (j job) fail(err error) {
	j.out <- Response{Type: Failure, Payload: Payload{TaskID: j.id, Error: err.Error(), Err: err}}
	close(j.out)
}

func (j job) succeed(result any) {
	j.progress(100)
	j.out <- Response{Type: Success, Payload: Payload{TaskID: j.id, Result: result}}
	close(j.out)
}

func (w *Worker) process(ctx context.Context, j job) {
	start := time.Now()
	log := w.log.With(zap.String("taskId", j.id), zap.String("type", string(j.req.Type())))
	log.Info("job started")

	result, err := w.execute(ctx, j)
	if err != nil {
		log.Warn("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		j.fail(err)
		return
	}
	log.Info("job finished", zap.Duration("elapsed", time.Since(start)))
	j.succeed(result)
}

// execute runs one job, turning a panic into an error.
func (w *Worker) execute(ctx context.Context, j job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic during job", zap.String("taskId", j.id), zap.Any("panic", r))
			err = fmt.Errorf("panic during %s: %v", j.req.Type(), r)
		}
	}()

	switch r := j.req.(type) {
	case GenerateRequest:
		return w.generate(ctx, r, j.progress)
	case OptimizeRequest:
		return w.optimize(r, j.progress)
	case ExportRequest:
		return w.export(r, j.progress)
	case AssessRequest:
		return w.assess(r, j.progress)
	default:
		return nil, fmt.Errorf("worker: %w %T", ErrUnknownRequest, j.req)
	}
}

func (w *Worker) generate(ctx context.Context, r GenerateRequest, progress func(int)) (*MeshResult, error) {
	params := w.cfg.Generation
	if r.Params != nil {
		params = *r.Params
	}
	opts := pipeline.Options{
		Kernel:            w.kernel,
		Level:             r.Level,
		IncludeBackground: r.IncludeBackground,
		Progress:          progress,
		Log:               w.log,
	}
	if opts.Level == nil && w.cfg.Optimize.Level != "" {
		level := w.cfg.OptimizeLevel()
		opts.Level = &level
	}

	res, err := pipeline.Generate(ctx, r.Pattern, params, opts)
	if err != nil {
		return nil, err
	}
	return meshResult(res.Mesh, res.Optimization), nil
}

func (w *Worker) optimize(r OptimizeRequest, progress func(int)) (*MeshResult, error) {
	if r.Mesh == nil {
		return nil, &pipeline.StageError{Op: pipeline.OpOptimize, Err: mesh.ErrNilMesh}
	}
	m, err := mesh.FromBuffers(*r.Mesh)
	if err != nil {
		return nil, &pipeline.StageError{Op: pipeline.OpOptimize, Err: err}
	}
	progress(10)

	level := w.cfg.OptimizeLevel()
	if r.Level != nil {
		level = *r.Level
	}
	out, rep, err := pipeline.Optimize(m, level, w.log)
	if err != nil {
		return nil, err
	}
	progress(90)
	return meshResult(out, rep), nil
}

func (w *Worker) export(r ExportRequest, progress func(int)) (*ExportResult, error) {
	if r.Mesh == nil {
		return nil, &pipeline.StageError{Op: pipeline.OpExport, Err: mesh.ErrNilMesh}
	}
	m, err := mesh.FromBuffers(*r.Mesh)
	if err != nil {
		return nil, &pipeline.StageError{Op: pipeline.OpExport, Err: err}
	}
	if r.Name != "" {
		m.Name = r.Name
	}
	progress(10)

	format := r.Format
	if format == "" {
		format = export.Format(w.cfg.Export.Format)
	}
	format, err = export.ParseFormat(string(format))
	if err != nil {
		return nil, &pipeline.StageError{Op: pipeline.OpExport, Err: err}
	}
	scale := r.Scale
	if scale == 0 {
		scale = w.cfg.Export.Scale
	}
	obj := w.cfg.ExportOptions()
	obj.Pattern = r.Pattern
	obj.Params = r.Params

	var buf bytes.Buffer
	if err := pipeline.Export(&buf, m, pipeline.ExportOptions{Format: format, OBJ: obj, Scale: scale}); err != nil {
		return nil, err
	}
	progress(90)

	res := &ExportResult{Filename: export.Filename(m.Name, format), Format: format}
	if format == export.FormatOBJ {
		res.Content = buf.String()
	} else {
		res.Data = buf.Bytes()
	}
	return res, nil
}

func (w *Worker) assess(r AssessRequest, progress func(int)) (*AssessResult, error) {
	if r.Mesh == nil {
		return nil, &quality.AssessmentError{Kind: quality.ErrEmptyGeometry}
	}
	progress(10)
	opts := w.cfg.QualityOptions()
	opts.ModelID = r.ModelID
	rep, err := quality.AssessBuffers(*r.Mesh, opts)
	if err != nil {
		return nil, err
	}
	progress(90)
	return &AssessResult{Report: rep}, nil
}

func meshResult(m *mesh.Mesh, rep optimize.Report) *MeshResult {
	return &MeshResult{
		Mesh:         m.ToBuffers(),
		Bounds:       m.Bounds,
		Stats:        m.Stats,
		Optimization: rep,
	}
}
