package quality

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGeometry is returned for a mesh with no vertices or faces.
	ErrEmptyGeometry = errors.New("empty geometry")
	// ErrCorruptGeometry is returned for malformed attribute arrays or
	// faces that address missing vertices.
	ErrCorruptGeometry = errors.New("corrupt geometry")
)

// AssessmentError is returned when a mesh cannot be assessed. Kind is one
// of ErrEmptyGeometry or ErrCorruptGeometry; Err, when set, is the cause.
type AssessmentError struct {
	Kind error
	Err  error
}

func (e *AssessmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quality: %v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("quality: %v", e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *AssessmentError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
