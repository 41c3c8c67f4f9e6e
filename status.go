package vpp

import (
	"errors"
	"fmt"
)

// Version is the format set version implemented by this package.
const Version = "23.06"

// Status is the numeric outcome of an operation.
type Status int

const (
	// StatusSuccess reports a completed operation.
	StatusSuccess Status = 0

	// StatusInvalidParams reports parameters rejected at construction.
	StatusInvalidParams Status = 1

	// StatusFail reports an unsupported combination, a short buffer or a
	// failed dispatch.
	StatusFail Status = 2
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidParams:
		return "INVALID_PARAMS"
	case StatusFail:
		return "FAIL"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	// ErrInvalidParams reports a parameter error detected at construction:
	// unsupported format pair or angle, misaligned geometry, bad layer count.
	ErrInvalidParams = errors.New("vpp: invalid parameters")

	// ErrFail reports a capability gap at construction or a dispatch failure
	// at run time. After a dispatch failure the destination is undefined.
	ErrFail = errors.New("vpp: operation failed")

	// ErrClosed is returned when running an operation after Close.
	ErrClosed = fmt.Errorf("%w: operation closed", ErrFail)
)

// StatusOf maps an error to its Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidParams):
		return StatusInvalidParams
	default:
		return StatusFail
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParams}, args...)...)
}

func failf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFail}, args...)...)
}
