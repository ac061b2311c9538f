package docpipe

import (
	"errors"
	"fmt"
)

// Load-stage failures. Each is fatal to a run.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrCorrupted         = errors.New("corrupted document")
	ErrTooLarge          = errors.New("file too large")
)

// LoadError is returned by every Loader. Err is one of the sentinels above,
// Cause the underlying library or I/O error, if any.
type LoadError struct {
	Kind  Kind
	Path  string
	Err   error
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load %s: %v: %v", e.Path, e.Err, e.Cause)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
