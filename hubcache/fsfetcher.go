package hubcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
)

var (
	_ Fetcher = (*FSFetcher)(nil)
	_ Lister  = (*FSFetcher)(nil)
)

// FSFetcher serves concept bundles from an fs.FS laid out as
// {concept}/{filename}. Useful in tests and for vendoring a fixed bundle
// set into a binary with embed.FS.
type FSFetcher struct {
	fsys fs.FS
}

// NewFSFetcher creates an FSFetcher over fsys. Panics if fsys is nil.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	if fsys == nil {
		panic("hubcache: fs.FS must not be nil")
	}
	return &FSFetcher{fsys: fsys}
}

// FetchFile opens {concept}/{filename}. fs.ErrNotExist maps to ErrNotFound.
func (f *FSFetcher) FetchFile(ctx context.Context, concept, filename string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := f.fsys.Open(path.Join(concept, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, concept, filename)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return rc, nil
}

// ListConcepts returns the top-level directory names of the FS.
func (f *FSFetcher) ListConcepts(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(f.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
