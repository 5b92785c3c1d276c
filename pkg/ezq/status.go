package ezq

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

// Status is the result of a queue operation. It implements error so that a
// failed operation can return its Status directly.
type Status uint8

const (
	StatusSuccess         Status = iota // No errors occurred
	StatusNullQueue                     // Operation invoked on a nil queue
	StatusNullItem                      // Push was given a nil item
	StatusNullOut                       // PopInto was given a nil output slot
	StatusFull                          // Bounded capacity reached
	StatusEmpty                         // Pop attempted on an empty queue
	StatusNoAllocFunction               // Overflow needed but no allocate capability registered
	StatusNoFreeFunction                // Overflow drain needed but no release capability registered
	StatusAllocFailure                  // The registered allocate capability failed

	// StatusUnknown is reserved for status variables that were never assigned.
	// No operation returns it.
	StatusUnknown Status = 0xFF
)

// Sentinel errors for use with errors.Is.
var (
	ErrNullQueue       error = StatusNullQueue
	ErrNullItem        error = StatusNullItem
	ErrNullOut         error = StatusNullOut
	ErrFull            error = StatusFull
	ErrEmpty           error = StatusEmpty
	ErrNoAllocFunction error = StatusNoAllocFunction
	ErrNoFreeFunction  error = StatusNoFreeFunction
	ErrAllocFailure    error = StatusAllocFailure
)

// Error is the error class for failures that carry an underlying cause.
var Error = errs.Class("ezq")

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNullQueue:
		return "null queue"
	case StatusNullItem:
		return "null item"
	case StatusNullOut:
		return "null output"
	case StatusFull:
		return "queue full"
	case StatusEmpty:
		return "queue empty"
	case StatusNoAllocFunction:
		return "no allocate function"
	case StatusNoFreeFunction:
		return "no release function"
	case StatusAllocFailure:
		return "allocation failure"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s Status) Error() string {
	return "ezq: " + s.String()
}

// StatusOf maps err back to the Status it represents. A nil error is
// StatusSuccess and an error that did not come from this package is
// StatusUnknown.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusUnknown
}

// allocError ties an allocator's own error to StatusAllocFailure.
type allocError struct {
	cause error
}

func (e *allocError) Error() string {
	if e.cause == nil {
		return StatusAllocFailure.String()
	}
	return StatusAllocFailure.String() + ": " + e.cause.Error()
}

func (e *allocError) Unwrap() []error {
	if e.cause == nil {
		return []error{StatusAllocFailure}
	}
	return []error{StatusAllocFailure, e.cause}
}

func newAllocError(cause error) error {
	return Error.Wrap(&allocError{cause: cause})
}
