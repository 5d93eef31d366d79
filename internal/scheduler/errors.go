package scheduler

import "errors"

var (
	// ErrNilJob is returned when Start is called without a job
	ErrNilJob = errors.New("scheduled job is nil")

	// ErrJobPanicked wraps a panic raised by the scheduled job
	ErrJobPanicked = errors.New("scheduled job panicked")
)
