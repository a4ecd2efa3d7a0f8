package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/dotsolid/internal/config"
	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/kernel"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/pipeline"
	"github.com/chazu/dotsolid/pkg/quality"
)

func unitParams() *pattern.GenerationParams {
	params := pattern.DefaultParams()
	params.CubeSize = 1
	params.CubeHeight = 1
	params.OptimizeMesh = false
	return &params
}

// startWorker runs a worker for the duration of the test.
func startWorker(t *testing.T, cfg *config.Config) *Worker {
	t.Helper()
	w, err := New(cfg, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

// collect reads a task's stream to the end.
func collect(t *testing.T, ch <-chan Response) []Response {
	t.Helper()
	var out []Response
	timeout := time.After(10 * time.Second)
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, res)
		case <-timeout:
			t.Fatalf("stream did not close, got %d messages", len(out))
		}
	}
}

// terminal checks the one-terminal-message contract and returns it.
func terminal(t *testing.T, msgs []Response) Response {
	t.Helper()
	require.NotEmpty(t, msgs)
	for _, m := range msgs[:len(msgs)-1] {
		require.Equal(t, Progress, m.Type, "only the last message may be terminal")
	}
	last := msgs[len(msgs)-1]
	require.True(t, last.Terminal())
	return last
}

func progressOf(msgs []Response) []int {
	var pct []int
	for _, m := range msgs {
		if m.Type == Progress {
			pct = append(pct, m.Payload.Progress)
		}
	}
	return pct
}

func generateCube(t *testing.T, w *Worker) *MeshResult {
	t.Helper()
	ch, err := w.Submit(GenerateRequest{ID: "cube", Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)
	last := terminal(t, collect(t, ch))
	require.Equal(t, Success, last.Type, last.Payload.Error)
	return last.Payload.Result.(*MeshResult)
}

func TestGenerateJob(t *testing.T) {
	w := startWorker(t, nil)

	ch, err := w.Submit(GenerateRequest{ID: "t1", Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)
	msgs := collect(t, ch)

	last := terminal(t, msgs)
	assert.Equal(t, Success, last.Type)
	assert.Equal(t, []int{10, 50, 70, 90, 100}, progressOf(msgs))
	for _, m := range msgs {
		assert.Equal(t, "t1", m.Payload.TaskID)
	}

	res, ok := last.Payload.Result.(*MeshResult)
	require.True(t, ok)
	assert.Len(t, res.Mesh.Vertices, 24)
	assert.Len(t, res.Mesh.Indices, 36)
	assert.Equal(t, 8, res.Stats.VertexCount)
	assert.InDelta(t, 6, res.Stats.SurfaceArea, 1e-9)
	assert.InDelta(t, -0.5, res.Bounds.Min.Y, 1e-12)
}

func TestGenerateJobOptions(t *testing.T) {
	w := startWorker(t, nil)
	high := optimize.LevelHigh
	base := true

	ch, err := w.Submit(GenerateRequest{
		Pattern:           pattern.FromRows("##"),
		Params:            unitParams(),
		Level:             &high,
		IncludeBackground: &base,
	})
	require.NoError(t, err)
	msgs := collect(t, ch)
	last := terminal(t, msgs)
	require.Equal(t, Success, last.Type, last.Payload.Error)
	assert.NotEmpty(t, last.Payload.TaskID, "a task id is assigned")

	res := last.Payload.Result.(*MeshResult)
	assert.Equal(t, optimize.LevelHigh, res.Optimization.Level)
	assert.Less(t, res.Stats.FaceCount, 24+2)
}

func TestInvalidInputGetsOneError(t *testing.T) {
	w := startWorker(t, nil)
	params := unitParams()
	params.CubeSize = 0

	ch, err := w.Submit(GenerateRequest{ID: "bad", Pattern: pattern.FromRows("#"), Params: params})
	require.NoError(t, err)
	msgs := collect(t, ch)

	require.Len(t, msgs, 1, "invalid input is rejected before any stage runs")
	assert.Equal(t, Failure, msgs[0].Type)
	assert.Equal(t, "bad", msgs[0].Payload.TaskID)
	assert.Contains(t, msgs[0].Payload.Error, "cubeSize")
	assert.ErrorIs(t, msgs[0].Payload.Err, pattern.ErrInvalidInput)
}

func TestEmptyPatternSucceeds(t *testing.T) {
	w := startWorker(t, nil)
	ch, err := w.Submit(GenerateRequest{Pattern: pattern.New(4, 4), Params: unitParams()})
	require.NoError(t, err)
	last := terminal(t, collect(t, ch))
	require.Equal(t, Success, last.Type)
	res := last.Payload.Result.(*MeshResult)
	assert.Zero(t, res.Stats.VertexCount)
	assert.Zero(t, res.Stats.FaceCount)
	assert.Zero(t, res.Stats.SurfaceArea)
}

func TestOptimizeJob(t *testing.T) {
	w := startWorker(t, nil)

	t.Run("nil mesh", func(t *testing.T) {
		ch, err := w.Submit(OptimizeRequest{ID: "o1"})
		require.NoError(t, err)
		last := terminal(t, collect(t, ch))
		assert.Equal(t, Failure, last.Type)
		assert.ErrorIs(t, last.Payload.Err, mesh.ErrNilMesh)
		assert.Contains(t, last.Payload.Error, "optimize")
	})

	t.Run("corrupt buffers", func(t *testing.T) {
		ch, err := w.Submit(OptimizeRequest{ID: "o2", Mesh: &mesh.Buffers{Vertices: []float64{0, 0}}})
		require.NoError(t, err)
		last := terminal(t, collect(t, ch))
		assert.Equal(t, Failure, last.Type)
		assert.ErrorIs(t, last.Payload.Err, mesh.ErrCorruptBuffer)
	})

	t.Run("cube pair", func(t *testing.T) {
		ch, err := w.Submit(GenerateRequest{Pattern: pattern.FromRows("##"), Params: unitParams()})
		require.NoError(t, err)
		gen := terminal(t, collect(t, ch)).Payload.Result.(*MeshResult)

		low := optimize.LevelLow
		ch, err = w.Submit(OptimizeRequest{Mesh: &gen.Mesh, Level: &low})
		require.NoError(t, err)
		msgs := collect(t, ch)
		last := terminal(t, msgs)
		require.Equal(t, Success, last.Type, last.Payload.Error)
		assert.Equal(t, []int{10, 90, 100}, progressOf(msgs))

		res := last.Payload.Result.(*MeshResult)
		assert.Equal(t, 20, res.Stats.FaceCount)
		assert.Equal(t, 4, res.Optimization.CulledFaces)
	})
}

func TestExportJob(t *testing.T) {
	w := startWorker(t, nil)
	cube := generateCube(t, w)

	t.Run("obj", func(t *testing.T) {
		ch, err := w.Submit(ExportRequest{Mesh: &cube.Mesh, Scale: 2, Pattern: pattern.FromRows("#"), Params: unitParams()})
		require.NoError(t, err)
		last := terminal(t, collect(t, ch))
		require.Equal(t, Success, last.Type, last.Payload.Error)

		res := last.Payload.Result.(*ExportResult)
		assert.Equal(t, "dotsolid.obj", res.Filename)
		assert.Equal(t, export.FormatOBJ, res.Format)
		assert.Contains(t, res.Content, "# Vertices: 8\n")
		assert.Contains(t, res.Content, "# Pattern: 1x1, 1 active\n")
		assert.Contains(t, res.Content, "v -1.000000 -1.000000 -1.000000\n")
		assert.Empty(t, res.Data)
	})

	t.Run("stl", func(t *testing.T) {
		ch, err := w.Submit(ExportRequest{Mesh: &cube.Mesh, Format: export.FormatSTL, Name: "tile"})
		require.NoError(t, err)
		last := terminal(t, collect(t, ch))
		require.Equal(t, Success, last.Type, last.Payload.Error)

		res := last.Payload.Result.(*ExportResult)
		assert.Equal(t, "tile.stl", res.Filename)
		assert.Len(t, res.Data, 84+50*12)
	})

	t.Run("nil mesh", func(t *testing.T) {
		ch, err := w.Submit(ExportRequest{})
		require.NoError(t, err)
		last := terminal(t, collect(t, ch))
		assert.Equal(t, Failure, last.Type)
		var se *pipeline.StageError
		require.ErrorAs(t, last.Payload.Err, &se)
		assert.Equal(t, pipeline.OpExport, se.Op)
	})
}

func TestAssessJob(t *testing.T) {
	w := startWorker(t, nil)
	cube := generateCube(t, w)

	ch, err := w.Submit(AssessRequest{Mesh: &cube.Mesh, ModelID: "cube"})
	require.NoError(t, err)
	last := terminal(t, collect(t, ch))
	require.Equal(t, Success, last.Type, last.Payload.Error)
	rep := last.Payload.Result.(*AssessResult).Report
	assert.Equal(t, "cube", rep.ModelID)
	assert.Equal(t, 100.0, rep.Geometry.Manifoldness)
	assert.Equal(t, 100.0, rep.Geometry.Watertightness)

	tests := []struct {
		name string
		mesh *mesh.Buffers
		kind error
	}{
		{"missing", nil, quality.ErrEmptyGeometry},
		{"empty", &mesh.Buffers{}, quality.ErrEmptyGeometry},
		{"corrupt", &mesh.Buffers{Vertices: []float64{0, 0, 0, 1}, Indices: []uint32{0, 0, 0}}, quality.ErrCorruptGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := w.Submit(AssessRequest{Mesh: tt.mesh})
			require.NoError(t, err)
			last := terminal(t, collect(t, ch))
			assert.Equal(t, Failure, last.Type)
			assert.ErrorIs(t, last.Payload.Err, tt.kind)
		})
	}
}

type panicKernel struct{}

func (panicKernel) Box(x, y, z float64) kernel.Solid       { return nil }
func (panicKernel) ToMesh(kernel.Solid) (*mesh.Mesh, error) { panic("kernel exploded") }

func TestPanicBecomesError(t *testing.T) {
	w, err := New(nil, nil)
	require.NoError(t, err)
	w.kernel = panicKernel{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	ch, err := w.Submit(GenerateRequest{ID: "boom", Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)
	last := terminal(t, collect(t, ch))
	assert.Equal(t, Failure, last.Type)
	assert.Contains(t, last.Payload.Error, "panic during GENERATE_MESH")

	// The worker keeps serving after a panic.
	w.kernel = nil
	ch, err = w.Submit(GenerateRequest{Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)
	assert.Equal(t, Success, terminal(t, collect(t, ch)).Type)
}

func TestJobsRunInOrder(t *testing.T) {
	w := startWorker(t, nil)
	var chans []<-chan Response
	for _, id := range []string{"a", "b", "c"} {
		ch, err := w.Submit(GenerateRequest{ID: id, Pattern: pattern.FromRows("#."), Params: unitParams()})
		require.NoError(t, err)
		chans = append(chans, ch)
	}
	for i, id := range []string{"a", "b", "c"} {
		last := terminal(t, collect(t, chans[i]))
		assert.Equal(t, Success, last.Type)
		assert.Equal(t, id, last.Payload.TaskID)
	}
}

func TestQueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.QueueSize = 1
	w, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = w.Submit(GenerateRequest{Pattern: pattern.FromRows("#")})
	require.NoError(t, err)
	_, err = w.Submit(GenerateRequest{Pattern: pattern.FromRows("#")})
	assert.ErrorIs(t, err, ErrQueueFull)
	_, err = w.Submit(nil)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = w.SubmitWait(ctx, GenerateRequest{Pattern: pattern.FromRows("#")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitWaitBlocksUntilRoom(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.QueueSize = 1
	w, err := New(cfg, nil)
	require.NoError(t, err)

	first, err := w.Submit(GenerateRequest{ID: "first", Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)

	type submitted struct {
		ch  <-chan Response
		err error
	}
	second := make(chan submitted, 1)
	go func() {
		ch, err := w.SubmitWait(context.Background(), GenerateRequest{ID: "second", Pattern: pattern.FromRows("#"), Params: unitParams()})
		second <- submitted{ch, err}
	}()

	select {
	case <-second:
		t.Fatal("SubmitWait returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, Success, terminal(t, collect(t, first)).Type)
	last := terminal(t, collect(t, got.ch))
	assert.Equal(t, Success, last.Type)
	assert.Equal(t, "second", last.Payload.TaskID)
}

func TestStoppedWorker(t *testing.T) {
	w, err := New(nil, nil)
	require.NoError(t, err)
	ch, err := w.Submit(GenerateRequest{ID: "late", Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)

	// Whether it ran or was drained, the queued job still gets its answer.
	last := terminal(t, collect(t, ch))
	assert.Equal(t, "late", last.Payload.TaskID)

	_, err = w.Submit(GenerateRequest{Pattern: pattern.FromRows("#")})
	assert.ErrorIs(t, err, ErrStopped)
	_, err = w.SubmitWait(context.Background(), GenerateRequest{Pattern: pattern.FromRows("#")})
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, w.Run(context.Background()), ErrStopped)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.Kernel = "manifold"
	_, err := New(cfg, nil)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Worker.Kernel = "sdfx"
	cfg.Worker.MeshCells = 8
	w, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, w.kernel)
}

func TestAwait(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ch := make(chan Response, 3)
		ch <- Response{Type: Progress, Payload: Payload{TaskID: "x", Progress: 50}}
		ch <- Response{Type: Success, Payload: Payload{TaskID: "x", Result: 1}}
		close(ch)
		res, err := Await(context.Background(), ch)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Payload.Result)
	})

	t.Run("failure without cause", func(t *testing.T) {
		ch := make(chan Response, 1)
		ch <- Response{Type: Failure, Payload: Payload{TaskID: "x", Error: "boom"}}
		res, err := Await(context.Background(), ch)
		require.Error(t, err)
		assert.Equal(t, "boom", err.Error())
		assert.Equal(t, Failure, res.Type)
	})

	t.Run("closed", func(t *testing.T) {
		ch := make(chan Response)
		close(ch)
		_, err := Await(context.Background(), ch)
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := Await(ctx, make(chan Response))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCall(t *testing.T) {
	w := startWorker(t, nil)
	res, err := w.Call(context.Background(), GenerateRequest{Pattern: pattern.FromRows("#"), Params: unitParams()})
	require.NoError(t, err)
	assert.Equal(t, Success, res.Type)

	params := unitParams()
	params.CubeHeight = -1
	_, err = w.Call(context.Background(), GenerateRequest{Pattern: pattern.FromRows("#"), Params: params})
	assert.ErrorIs(t, err, pattern.ErrInvalidInput)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{
		"type": "GENERATE_MESH",
		"payload": {
			"taskId": "g1",
			"dotPattern": {"width": 2, "height": 1, "data": [[true, false]]},
			"generationParams": {"cubeSize": 3, "cubeHeight": 1},
			"optimizationLevel": "high",
			"includeBackground": true
		}
	}`))
	require.NoError(t, err)
	g, ok := req.(GenerateRequest)
	require.True(t, ok)
	assert.Equal(t, "g1", g.TaskID())
	assert.Equal(t, GenerateMesh, g.Type())
	assert.Equal(t, 1, g.Pattern.ActiveCount())
	assert.Equal(t, 3.0, g.Params.CubeSize)
	require.NotNil(t, g.Level)
	assert.Equal(t, optimize.LevelHigh, *g.Level)
	require.NotNil(t, g.IncludeBackground)
	assert.True(t, *g.IncludeBackground)

	req, err = DecodeRequest([]byte(`{"type":"EXPORT_OBJ","payload":{"meshData":{"vertices":[0,0,0],"indices":[]},"scale":2}}`))
	require.NoError(t, err)
	e := req.(ExportRequest)
	assert.Len(t, e.TaskID(), 36, "missing task id becomes a UUID")
	assert.Equal(t, 2.0, e.Scale)
	assert.Equal(t, []float64{0, 0, 0}, e.Mesh.Vertices)

	req, err = DecodeRequest([]byte(`{"type":"ASSESS_QUALITY"}`))
	require.NoError(t, err)
	assert.Nil(t, req.(AssessRequest).Mesh)

	req, err = DecodeRequest([]byte(`{"type":"OPTIMIZE_MESH","payload":{"optimizationLevel":"low"}}`))
	require.NoError(t, err)
	assert.Equal(t, optimize.LevelLow, *req.(OptimizeRequest).Level)

	_, err = DecodeRequest([]byte(`{"type":"RENDER","payload":{"taskId":"r1"}}`))
	assert.ErrorIs(t, err, ErrUnknownRequest)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "r1", de.TaskID)

	_, err = DecodeRequest([]byte(`{"type":"GENERATE_MESH","payload":{"taskId":"g2","dotPattern":{"width":"two"}}}`))
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "g2", de.TaskID)
	assert.Contains(t, err.Error(), "decode GENERATE_MESH payload")

	_, err = DecodeRequest([]byte(`not json`))
	require.ErrorAs(t, err, &de)
	assert.Empty(t, de.TaskID)
	_, err = DecodeRequest([]byte(`{"type":"OPTIMIZE_MESH","payload":{"optimizationLevel":"extreme"}}`))
	assert.Error(t, err)
}

func TestEncodeResponse(t *testing.T) {
	data, err := EncodeResponse(Response{Type: Progress, Payload: Payload{TaskID: "x", Progress: 50}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"PROGRESS","payload":{"taskId":"x","progress":50}}`, string(data))

	data, err = EncodeResponse(Response{Type: Failure, Payload: Payload{TaskID: "x", Error: "boom", Err: assert.AnError}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ERROR","payload":{"taskId":"x","error":"boom"}}`, string(data))
}

func TestServe(t *testing.T) {
	w := startWorker(t, nil)
	in := strings.Join([]string{
		`{"type":"GENERATE_MESH","payload":{"taskId":"a","dotPattern":{"width":1,"height":1,"data":[[true]]},"generationParams":{"cubeSize":1,"cubeHeight":1}}}`,
		``,
		`{"type":"NOPE"}`,
		`{"type":"GENERATE_MESH","payload":{"taskId":"b","dotPattern":{"width":1,"height":1,"data":[[true]]},"generationParams":{"cubeSize":0,"cubeHeight":1}}}`,
		`{"type":"GENERATE_MESH","payload":{"taskId":"c","dotPattern":{"width":"two","height":1,"data":[[true]]}}}`,
	}, "\n")

	var out strings.Builder
	require.NoError(t, w.Serve(context.Background(), strings.NewReader(in), &out))

	type line struct {
		Type    ResponseType `json:"type"`
		Payload struct {
			TaskID   string          `json:"taskId"`
			Progress int             `json:"progress"`
			Result   json.RawMessage `json:"result"`
			Error    string          `json:"error"`
		} `json:"payload"`
	}
	terminals := map[string]line{}
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var l line
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		if l.Type != Progress {
			terminals[l.Payload.TaskID] = l
		}
	}

	require.Len(t, terminals, 4)
	assert.Equal(t, Success, terminals["a"].Type)
	assert.Contains(t, string(terminals["a"].Payload.Result), `"vertexCount":8`)
	assert.Equal(t, Failure, terminals["b"].Type)
	assert.Equal(t, Failure, terminals[""].Type)
	assert.Contains(t, terminals[""].Payload.Error, "unknown request type")
	assert.Equal(t, Failure, terminals["c"].Type)
	assert.Contains(t, terminals["c"].Payload.Error, "decode GENERATE_MESH payload")
}

func TestServeWaitsForQueueRoom(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.QueueSize = 2
	w := startWorker(t, cfg)

	const n = 12
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"type":"GENERATE_MESH","payload":{"taskId":"t%d","dotPattern":{"width":3,"height":3,"data":[[true,true,true],[true,false,true],[true,true,true]]},"generationParams":{"cubeSize":1,"cubeHeight":1}}}`, i)
	}

	var out strings.Builder
	require.NoError(t, w.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out))

	results := map[string]ResponseType{}
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var res struct {
			Type    ResponseType `json:"type"`
			Payload struct {
				TaskID string `json:"taskId"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
		if res.Type != Progress {
			results[res.Payload.TaskID] = res.Type
		}
	}
	require.Len(t, results, n)
	for id, typ := range results {
		assert.Equal(t, Success, typ, id)
	}
}
