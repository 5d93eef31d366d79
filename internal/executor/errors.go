package executor

import "errors"

var (
	// ErrJobFailed is returned by RunJob when any step reports failure
	ErrJobFailed = errors.New("scheduled job failed")

	// ErrMissingPath is returned when a required path setting is empty
	ErrMissingPath = errors.New("required path not configured")
)
