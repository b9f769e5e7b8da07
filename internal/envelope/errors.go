package envelope

import (
	"errors"
	"fmt"
)

// ErrFormat matches every FormatError via errors.Is
var ErrFormat = errors.New("malformed envelope")

// Reasons reported by FormatError
const (
	ReasonTooShort          = "too short"
	ReasonUnknownVersion    = "unknown version"
	ReasonInvalidIterations = "invalid iteration count"
	ReasonInvalidEncoding   = "invalid transport encoding"
)

// FormatError reports a structurally invalid envelope.
// It is detected before any cryptography runs.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// InvalidIterationCountError is a FormatError raised when the declared
// iteration count is outside the accepted bounds, which is also what a
// downgrade attempt looks like.
type InvalidIterationCountError struct {
	Iterations uint32
}

func (e *InvalidIterationCountError) Error() string {
	return fmt.Sprintf("malformed envelope: %s %d", ReasonInvalidIterations, e.Iterations)
}

func (e *InvalidIterationCountError) Unwrap() error {
	return &FormatError{Reason: ReasonInvalidIterations}
}
