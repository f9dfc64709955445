package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrRootValidation aborts a run before any worker starts.
	ErrRootValidation = errors.New("root validation failed")
	// ErrCacheMiss means no usable cache entry exists for a directory.
	ErrCacheMiss = errors.New("directory cache miss")
	// ErrUnsafePath rejects relative paths escaping the local root.
	ErrUnsafePath = errors.New("unsafe relative path")
	// ErrUnexpectedStatus marks a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// StatusError carries the HTTP status of a rejected response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
