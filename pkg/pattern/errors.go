package pattern

import (
	"errors"
	"strings"
)

// ErrInvalidInput matches every validation failure from this package.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors is the full list of findings from a Validate call.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e Errors) Is(target error) bool {
	return target == ErrInvalidInput
}
