package hubcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/promptkit/concepts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fullBundle is a complete bundle FS for one concept.
func fullBundle(concept string) fstest.MapFS {
	return fstest.MapFS{
		concept + "/README.md":            {Data: []byte("# " + concept)},
		concept + "/learned_embeds.bin":   {Data: []byte{0x80, 0x02, 0x8a}},
		concept + "/token_identifier.txt": {Data: []byte("<" + concept + ">\n")},
		concept + "/type_of_concept.txt":  {Data: []byte("style\n")},
	}
}

// countingFetcher wraps a Fetcher and counts FetchFile calls.
type countingFetcher struct {
	inner Fetcher

	mu    sync.Mutex
	calls int
}

func (c *countingFetcher) FetchFile(ctx context.Context, concept, filename string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.FetchFile(ctx, concept, filename)
}

func (c *countingFetcher) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// failFetcher simulates an unreachable registry.
type failFetcher struct{}

func (failFetcher) FetchFile(context.Context, string, string) (io.ReadCloser, error) {
	return nil, ErrFetchFailed
}

func TestCache_GetFile_FetchesAndCaches(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := &countingFetcher{inner: NewFSFetcher(fullBundle("my-style"))}
	cache := New(root, src, WithLogger(discardLogger()))
	ctx := context.Background()

	path, err := cache.GetFile(ctx, "my-style", concepts.TokenIdentifierFile, false)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<my-style>\n", string(data))
	assert.True(t, cache.IsCached("my-style"))
	assert.Equal(t, 4, src.callCount(), "one fetch per bundle file")

	// Every bundle file landed on disk under {root}/models/{namespace}.
	for _, filename := range bundleFiles {
		_, err := os.Stat(filepath.Join(root, "models", DefaultNamespace, "my-style", filename))
		require.NoError(t, err, filename)
	}

	// Subsequent lookups never re-fetch.
	_, err = cache.GetFile(ctx, "my-style", concepts.EmbeddingFile, false)
	require.NoError(t, err)
	assert.Equal(t, 4, src.callCount())
}

func TestCache_GetFile_LocalOnlyMiss(t *testing.T) {
	t.Parallel()
	src := &countingFetcher{inner: NewFSFetcher(fullBundle("my-style"))}
	cache := New(t.TempDir(), src, WithLogger(discardLogger()))

	_, err := cache.GetFile(context.Background(), "my-style", concepts.TokenIdentifierFile, true)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
	assert.Zero(t, src.callCount(), "local-only lookups must never fetch")
	assert.False(t, cache.IsCached("my-style"))
}

func TestCache_GetFile_UnknownConcept_NoResidue(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cache := New(root, NewFSFetcher(fstest.MapFS{}), WithLogger(discardLogger()))

	_, err := cache.GetFile(context.Background(), "no-such", concepts.EmbeddingFile, false)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
	_, statErr := os.Stat(filepath.Join(root, "models", DefaultNamespace, "no-such"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "failed fetch must leave no directory behind")
	assert.False(t, cache.IsCached("no-such"))
}

func TestCache_GetFile_TransportError_NoResidue(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cache := New(root, failFetcher{}, WithLogger(discardLogger()))

	_, err := cache.GetFile(context.Background(), "my-style", concepts.EmbeddingFile, false)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
	_, statErr := os.Stat(filepath.Join(root, "models", DefaultNamespace, "my-style"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestCache_GetFile_MissingTypeFileTolerated(t *testing.T) {
	t.Parallel()
	bundle := fullBundle("my-style")
	delete(bundle, "my-style/type_of_concept.txt")
	cache := New(t.TempDir(), NewFSFetcher(bundle), WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := cache.GetFile(ctx, "my-style", concepts.TokenIdentifierFile, false)
	require.NoError(t, err)
	assert.True(t, cache.IsCached("my-style"))

	// The absent type file surfaces as a plain local miss.
	_, err = cache.GetFile(ctx, "my-style", concepts.TypeOfConceptFile, false)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
}

func TestCache_GetFile_MissingFileInCachedBundle(t *testing.T) {
	t.Parallel()
	src := &countingFetcher{inner: NewFSFetcher(fullBundle("my-style"))}
	cache := New(t.TempDir(), src, WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := cache.GetFile(ctx, "my-style", concepts.ReadmeFile, false)
	require.NoError(t, err)
	fetched := src.callCount()

	_, err = cache.GetFile(ctx, "my-style", "extra_notes.txt", false)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
	assert.Equal(t, fetched, src.callCount(), "a cached bundle is never re-fetched")
}

func TestCache_GetFile_InvalidName(t *testing.T) {
	t.Parallel()
	cache := New(t.TempDir(), failFetcher{}, WithLogger(discardLogger()))
	_, err := cache.GetFile(context.Background(), "../escape", concepts.EmbeddingFile, false)
	require.ErrorIs(t, err, concepts.ErrInvalidConceptName)
}

func TestCache_GetFile_FileTooLarge_NoResidue(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cache := New(root, NewFSFetcher(fullBundle("my-style")),
		WithLogger(discardLogger()), WithMaxFileSize(2))

	_, err := cache.GetFile(context.Background(), "my-style", concepts.ReadmeFile, false)
	require.ErrorIs(t, err, concepts.ErrFileNotFound)
	_, statErr := os.Stat(filepath.Join(root, "models", DefaultNamespace, "my-style"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestCache_EmbeddingPath_LowercasesName(t *testing.T) {
	t.Parallel()
	cache := New(t.TempDir(), NewFSFetcher(fullBundle("my-style")), WithLogger(discardLogger()))

	path, err := cache.EmbeddingPath(context.Background(), "My-Style")
	require.NoError(t, err)
	assert.Equal(t, concepts.EmbeddingFile, filepath.Base(path))
	assert.True(t, cache.IsCached("my-style"))
}

func TestCache_DeletingDirectoryEvicts(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	src := &countingFetcher{inner: NewFSFetcher(fullBundle("my-style"))}
	cache := New(root, src, WithLogger(discardLogger()))
	ctx := context.Background()

	_, err := cache.GetFile(ctx, "my-style", concepts.ReadmeFile, false)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "models", DefaultNamespace, "my-style")))
	assert.False(t, cache.IsCached("my-style"))

	_, err = cache.GetFile(ctx, "my-style", concepts.ReadmeFile, false)
	require.NoError(t, err)
	assert.Equal(t, 8, src.callCount(), "deleting the directory fully evicts the bundle")
}

func TestCache_WithNamespace_Layout(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	cache := New(root, NewFSFetcher(fullBundle("my-style")),
		WithLogger(discardLogger()), WithNamespace("custom-library"))

	path, err := cache.GetFile(context.Background(), "my-style", concepts.ReadmeFile, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "models", "custom-library", "my-style", concepts.ReadmeFile), path)
}

// listCountFetcher implements Lister with a scripted result.
type listCountFetcher struct {
	failFetcher

	mu    sync.Mutex
	calls int
	names []string
	err   error
}

func (l *listCountFetcher) ListConcepts(context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.names, l.err
}

func (l *listCountFetcher) listCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestCache_ListConcepts_MemoizedAndInvalidated(t *testing.T) {
	t.Parallel()
	src := &listCountFetcher{names: []string{"a-style", "b-style"}}
	cache := New(t.TempDir(), src, WithLogger(discardLogger()))
	ctx := context.Background()

	assert.Equal(t, []string{"a-style", "b-style"}, cache.ListConcepts(ctx))
	assert.Equal(t, []string{"a-style", "b-style"}, cache.ListConcepts(ctx))
	assert.Equal(t, 1, src.listCalls(), "listing is fetched at most once")

	cache.InvalidateList()
	assert.Equal(t, []string{"a-style", "b-style"}, cache.ListConcepts(ctx))
	assert.Equal(t, 2, src.listCalls())
}

func TestCache_ListConcepts_FailureDegradesToEmpty(t *testing.T) {
	t.Parallel()
	src := &listCountFetcher{err: ErrFetchFailed}
	cache := New(t.TempDir(), src, WithLogger(discardLogger()))
	ctx := context.Background()

	assert.Empty(t, cache.ListConcepts(ctx))
	assert.Empty(t, cache.ListConcepts(ctx))
	assert.Equal(t, 1, src.listCalls(), "a failed listing is memoized until invalidated")
}

func TestCache_ListConcepts_FetcherWithoutLister(t *testing.T) {
	t.Parallel()
	cache := New(t.TempDir(), failFetcher{}, WithLogger(discardLogger()))
	assert.Empty(t, cache.ListConcepts(context.Background()))
}

func TestNew_NilFetcherPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { New(t.TempDir(), nil) })
}
