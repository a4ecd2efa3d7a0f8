package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/geom"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/quality"
)

// RequestType names a job kind on the wire.
type RequestType string

const (
	GenerateMesh  RequestType = "GENERATE_MESH"
	OptimizeMesh  RequestType = "OPTIMIZE_MESH"
	ExportOBJ     RequestType = "EXPORT_OBJ"
	AssessQuality RequestType = "ASSESS_QUALITY"
)

// ErrUnknownRequest is returned by DecodeRequest for an unrecognised type.
var ErrUnknownRequest = errors.New("unknown request type")

// Request is one of GenerateRequest, OptimizeRequest, ExportRequest or
// AssessRequest.
type Request interface {
	TaskID() string
	Type() RequestType
	isRequest()
}

// GenerateRequest builds a mesh from a pattern. Nil fields fall back to
// the worker's configuration.
type GenerateRequest struct {
	ID                string                    `json:"taskId"`
	Pattern           *pattern.DotPattern       `json:"dotPattern"`
	Params            *pattern.GenerationParams `json:"generationParams,omitempty"`
	Level             *optimize.Level           `json:"optimizationLevel,omitempty"`
	IncludeBackground *bool                     `json:"includeBackground,omitempty"`
}

// OptimizeRequest deduplicates and optimizes an existing mesh.
type OptimizeRequest struct {
	ID    string          `json:"taskId"`
	Mesh  *mesh.Buffers   `json:"meshData"`
	Level *optimize.Level `json:"optimizationLevel,omitempty"`
}

// ExportRequest serializes a mesh. Format defaults to OBJ and Scale to the
// configured scale. Pattern and Params are recorded in the OBJ header.
type ExportRequest struct {
	ID      string                    `json:"taskId"`
	Mesh    *mesh.Buffers             `json:"meshData"`
	Format  export.Format             `json:"format,omitempty"`
	Scale   float64                   `json:"scale,omitempty"`
	Name    string                    `json:"name,omitempty"`
	Pattern *pattern.DotPattern       `json:"dotPattern,omitempty"`
	Params  *pattern.GenerationParams `json:"generationParams,omitempty"`
}

// AssessRequest produces a quality report for a mesh.
type AssessRequest struct {
	ID      string        `json:"taskId"`
	Mesh    *mesh.Buffers `json:"meshData"`
	ModelID string        `json:"modelId,omitempty"`
}

func (r GenerateRequest) TaskID() string { return r.ID }
func (r OptimizeRequest) TaskID() string { return r.ID }
func (r ExportRequest) TaskID() string   { return r.ID }
func (r AssessRequest) TaskID() string   { return r.ID }

func (GenerateRequest) Type() RequestType { return GenerateMesh }
func (OptimizeRequest) Type() RequestType { return OptimizeMesh }
func (ExportRequest) Type() RequestType   { return ExportOBJ }
func (AssessRequest) Type() RequestType   { return AssessQuality }

func (GenerateRequest) isRequest() {}
func (OptimizeRequest) isRequest() {}
func (ExportRequest) isRequest()   {}
func (AssessRequest) isRequest()   {}

type envelope struct {
	Type    RequestType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeError is returned by DecodeRequest for a message that could not be
// turned into a request. TaskID is the payload's taskId when one could be
// read, so the failure can still be addressed to its task.
type DecodeError struct {
	TaskID string
	Err    error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeRequest parses a {type, payload} message into its typed request.
// A missing taskId is filled with a fresh UUID. Failures are *DecodeError.
func DecodeRequest(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("worker: decode request: %w", err)}
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("{}")
	}
	var head struct {
		TaskID string `json:"taskId"`
	}
	_ = json.Unmarshal(env.Payload, &head)

	req, err := decodeTyped(env)
	if err != nil {
		return nil, &DecodeError{TaskID: head.TaskID, Err: err}
	}
	return req, nil
}

func decodeTyped(env envelope) (Request, error) {
	switch env.Type {
	case GenerateMesh:
		var r GenerateRequest
		if err := decodePayload(env, &r); err != nil {
			return nil, err
		}
		r.ID = taskIDOrNew(r.ID)
		return r, nil
	case OptimizeMesh:
		var r OptimizeRequest
		if err := decodePayload(env, &r); err != nil {
			return nil, err
		}
		r.ID = taskIDOrNew(r.ID)
		return r, nil
	case ExportOBJ:
		var r ExportRequest
		if err := decodePayload(env, &r); err != nil {
			return nil, err
		}
		r.ID = taskIDOrNew(r.ID)
		return r, nil
	case AssessQuality:
		var r AssessRequest
		if err := decodePayload(env, &r); err != nil {
			return nil, err
		}
		r.ID = taskIDOrNew(r.ID)
		return r, nil
	default:
		return nil, fmt.Errorf("worker: %w %q", ErrUnknownRequest, env.Type)
	}
}

func decodePayload(env envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("worker: decode %s payload: %w", env.Type, err)
	}
	return nil
}

func taskIDOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ResponseType names a message kind sent back to the caller.
type ResponseType string

const (
	Progress ResponseType = "PROGRESS"
	Success  ResponseType = "SUCCESS"
	Failure  ResponseType = "ERROR"
)

// Response is one message about a task. Every task produces zero or more
// Progress messages followed by exactly one Success or Failure.
type Response struct {
	Type    ResponseType `json:"type"`
	Payload Payload      `json:"payload"`
}

// Payload carries the task id and, depending on the type, a progress
// percentage, a result or an error message. Err keeps the original error
// for in-process callers and is not encoded.
type Payload struct {
	TaskID   string `json:"taskId"`
	Progress int    `json:"progress,omitempty"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

// Terminal reports whether r ends its task's stream.
func (r Response) Terminal() bool {
	return r.Type == Success || r.Type == Failure
}

// EncodeResponse renders r as a JSON message.
func EncodeResponse(r Response) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("worker: encode response: %w", err)
	}
	return data, nil
}

// MeshResult is the result of GENERATE_MESH and OPTIMIZE_MESH.
type MeshResult struct {
	Mesh         mesh.Buffers    `json:"meshData"`
	Bounds       geom.Bounds     `json:"bounds"`
	Stats        mesh.Stats      `json:"stats"`
	Optimization optimize.Report `json:"optimization"`
}

// ExportResult is the result of EXPORT_OBJ. Text formats fill Content,
// binary formats fill Data.
type ExportResult struct {
	Filename string        `json:"filename"`
	Format   export.Format `json:"format"`
	Content  string        `json:"content,omitempty"`
	Data     []byte        `json:"data,omitempty"`
}

// AssessResult is the result of ASSESS_QUALITY.
type AssessResult struct {
	Report *quality.Report `json:"report"`
}
