package concepts

import (
	"errors"
	"fmt"
)

// Sentinel errors for name resolution and bundle file lookup.
// All use prefix "concepts:" for identification. Callers should use
// errors.Is/errors.As.
var (
	ErrInvalidConceptName = errors.New("concepts: concept name contains invalid characters")
	ErrFileNotFound       = errors.New("concepts: file not present in concept bundle")
	ErrTriggerUnknown     = errors.New("concepts: trigger phrase not produced by any resolved concept")
)

// ResolveError wraps a sentinel error with concept and file context.
// Use errors.Is(err, ErrFileNotFound) and errors.As(err, &resolveErr)
// to inspect.
type ResolveError struct {
	Concept  string
	Filename string
	Err      error
}

// Error implements error.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("concepts: file %q of concept %q: %v", e.Filename, e.Concept, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *ResolveError) Unwrap() error { return e.Err }

// Compile-time check that ResolveError implements error.
var _ error = (*ResolveError)(nil)
