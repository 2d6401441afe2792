package engine

import (
	"errors"
	"fmt"

	"linefit/internal/line"
)

var (
	// ErrInvalidArgument: width <= 0 or absent text. Reported before any job exists.
	ErrInvalidArgument = line.ErrInvalidArgument
	// ErrOverflow: a multi-word line could not fit its width. This is a splitter defect.
	ErrOverflow = line.ErrOverflow
	// ErrCancelled: the run's context ended before every line was justified.
	ErrCancelled = errors.New("cancelled")
	// ErrWorkerFailure: a worker returned an error or panicked while justifying a line.
	ErrWorkerFailure = errors.New("worker failure")
	// ErrAlreadyRunning: a Transform call overlapped another one on an exclusive engine.
	ErrAlreadyRunning = errors.New("already running")
)

// LineError records which line a worker was processing when it failed.
type LineError struct {
	Index int
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Index, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Kind returns the name of the error kind err belongs to, or "Unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrAlreadyRunning):
		return "AlreadyRunning"
	case errors.Is(err, ErrOverflow):
		return "Overflow"
	case errors.Is(err, ErrWorkerFailure):
		return "WorkerFailure"
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	default:
		return "Unknown"
	}
}
