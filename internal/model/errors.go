package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would duplicate another application's
// company and role.
var ErrConflict = errors.New("application already exists")

// ErrInvalid is returned when an application fails field validation.
var ErrInvalid = errors.New("invalid application")

// IncompleteError reports an extraction that lacked required fields.
type IncompleteError struct {
	Missing []string // field names, e.g. "company", "role"
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete extraction: missing %s", strings.Join(e.Missing, ", "))
}

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
