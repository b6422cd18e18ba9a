package master

import (
	"errors"
	"fmt"
)

// Orchestration errors. They indicate broken infrastructure, never a
// failing test.
var (
	// ErrSlotMissing means a worker terminated without publishing its slot.
	ErrSlotMissing = errors.New("worker exited without publishing a result slot")
	// ErrWorkerStart means the worker could not be started at all.
	ErrWorkerStart = errors.New("failed to start worker")
	// ErrWorkerTimeout means the worker was killed after its join grace.
	ErrWorkerTimeout = errors.New("worker did not exit within its join grace")
	// ErrSlotPublished means a second write to an already published slot.
	ErrSlotPublished = errors.New("result slot already published")
)

// WorkerError attaches the worker index to an orchestration error.
type WorkerError struct {
	Index int
	Err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Index, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// MissingWorkers returns the indices of every WorkerError in err.
func MissingWorkers(err error) []int {
	var out []int
	collectWorkerErrors(err, &out)
	return out
}

func collectWorkerErrors(err error, out *[]int) {
	switch e := err.(type) {
	case nil:
	case *WorkerError:
		*out = append(*out, e.Index)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collectWorkerErrors(inner, out)
		}
	case interface{ Unwrap() error }:
		collectWorkerErrors(e.Unwrap(), out)
	}
}
