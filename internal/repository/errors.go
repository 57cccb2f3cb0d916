package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist or expired.
	ErrNotFound = errors.New("repository: not found")
	// ErrUnavailable indicates the backing store could not be reached in
	// time. Callers may retry with backoff; the engine itself never does.
	ErrUnavailable = errors.New("repository: store unavailable")
	// ErrInconsistent indicates the store returned a response the
	// repository could not interpret. It is never treated as a miss.
	ErrInconsistent = errors.New("repository: store response inconsistent")
)
