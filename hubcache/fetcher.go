package hubcache

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors for registry fetch operations. All use prefix
// "hubcache:" for identification. Callers should use errors.Is.
var (
	// ErrNotFound means the registry has no such concept or file.
	ErrNotFound = errors.New("hubcache: not found in registry")
	// ErrFetchFailed wraps transport-level failures (DNS, timeout, reset).
	ErrFetchFailed = errors.New("hubcache: fetch failed")
	// ErrHTTPStatus marks a non-2xx, non-404 HTTP response.
	ErrHTTPStatus = errors.New("hubcache: unexpected HTTP status")
)

// Fetcher retrieves one file of one concept bundle from the registry.
// Cache uses it to acquire bundles; HubFetcher and FSFetcher are the
// provided implementations.
//
// Return ErrNotFound when the concept or file does not exist; wrap other
// errors in ErrFetchFailed so callers can use errors.Is. The returned
// reader must be closed by the caller.
type Fetcher interface {
	FetchFile(ctx context.Context, concept, filename string) (io.ReadCloser, error)
}

// Lister is optional. When implemented by a Fetcher, Cache.ListConcepts
// uses it to enumerate every concept name the registry knows.
type Lister interface {
	ListConcepts(ctx context.Context) ([]string, error)
}
