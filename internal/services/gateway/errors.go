package gateway

import (
	"errors"
	"fmt"
)

// ErrMalformedCallback marks a webhook payload that could not be decoded.
var ErrMalformedCallback = errors.New("malformed callback payload")

// Error wraps transport and upstream failures with the operation that hit
// them. The adapter never lets a raw HTTP error escape untyped.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s: upstream status %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
