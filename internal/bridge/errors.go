package bridge

import "errors"

var (
	// ErrEntryNotFound is returned when the entry script does not exist
	ErrEntryNotFound = errors.New("entry script not found")

	// ErrTimeout is returned when the process exceeds the configured timeout
	ErrTimeout = errors.New("process timed out")

	// ErrCanceled is returned when the caller's context ends the invocation
	ErrCanceled = errors.New("invocation canceled")

	// ErrNonZeroExit is returned when the process exits with a non-zero code
	ErrNonZeroExit = errors.New("process exited with non-zero code")

	// ErrMalformedOutput is returned when stdout holds an unparseable JSON block
	ErrMalformedOutput = errors.New("malformed process output")

	// ErrInvalidParameter is returned when a parameter cannot be marshalled
	ErrInvalidParameter = errors.New("invalid parameter")
)
