package hubcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/promptkit/concepts"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxFileSize caps a single bundle file download (512 MiB).
const DefaultMaxFileSize = 512 << 20

// bundleFiles is the fixed download order for a concept bundle.
// The type file is last and tolerated missing.
var bundleFiles = []string{
	concepts.ReadmeFile,
	concepts.EmbeddingFile,
	concepts.TokenIdentifierFile,
	concepts.TypeOfConceptFile,
}

// Ensures Cache implements concepts.FileSource.
var _ concepts.FileSource = (*Cache)(nil)

// Cache maps concept names to bundle directories under
// {root}/models/{namespace}, acquiring uncached bundles through a
// Fetcher on demand. Directory existence is the sole cache-membership
// predicate; bundles are never mutated in place. A failed fetch removes
// the partial directory, so a later call starts over from scratch.
type Cache struct {
	root      string
	namespace string
	fetcher   Fetcher
	logger    *slog.Logger
	maxSize   int64

	sf singleflight.Group

	mu      sync.Mutex
	listing []string
	listed  bool
}

// New creates a Cache rooted at root, acquiring misses through fetcher.
// Panics if fetcher is nil.
func New(root string, fetcher Fetcher, opts ...Option) *Cache {
	if fetcher == nil {
		panic("hubcache: Fetcher must not be nil")
	}
	c := &Cache{
		root:      root,
		namespace: DefaultNamespace,
		fetcher:   fetcher,
		logger:    slog.Default(),
		maxSize:   DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListConcepts returns every concept name the registry knows, fetched at
// most once per process unless InvalidateList is called. On failure it
// logs a warning and memoizes an empty listing: name resolution by
// listing degrades, direct-by-name fetch keeps working. The result is
// shared; callers must not modify it.
func (c *Cache) ListConcepts(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listed {
		return c.listing
	}
	c.listed = true
	lister, ok := c.fetcher.(Lister)
	if !ok {
		return c.listing
	}
	names, err := lister.ListConcepts(ctx)
	if err != nil {
		c.logger.Warn("concept listing unavailable, resolution by listing is disabled",
			"namespace", c.namespace, "err", err)
		return c.listing
	}
	c.listing = names
	return c.listing
}

// InvalidateList drops the memoized registry listing so the next
// ListConcepts call queries the registry again.
func (c *Cache) InvalidateList() {
	c.mu.Lock()
	c.listing = nil
	c.listed = false
	c.mu.Unlock()
}

// IsCached reports whether the concept's bundle directory exists on
// disk. No content validation beyond existence.
func (c *Cache) IsCached(concept string) bool {
	info, err := os.Stat(c.conceptDir(concept))
	return err == nil && info.IsDir()
}

// GetFile returns the local path of one file in the concept's bundle,
// downloading the whole bundle first unless it is cached or localOnly is
// set. Every other file lookup goes through here. Download failures are
// contained and logged; the only caller-visible outcome is an error
// wrapping concepts.ErrFileNotFound.
func (c *Cache) GetFile(ctx context.Context, concept, filename string, localOnly bool) (string, error) {
	if err := concepts.ValidateConceptName(concept); err != nil {
		return "", err
	}
	if !localOnly && !c.IsCached(concept) {
		// At most one in-flight download per concept name; concurrent
		// callers share the result.
		_, _, _ = c.sf.Do(concept, func() (any, error) {
			if c.IsCached(concept) {
				return nil, nil
			}
			return nil, c.download(ctx, concept)
		})
	}
	path := filepath.Join(c.conceptDir(concept), filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s/%s", concepts.ErrFileNotFound, concept, filename)
	}
	return path, nil
}

// EmbeddingPath returns the path of the concept's primary embedding
// binary, fetching the bundle if needed. The name is lowercased first,
// matching how the registry canonicalizes bundle ids.
func (c *Cache) EmbeddingPath(ctx context.Context, concept string) (string, error) {
	return c.GetFile(ctx, strings.ToLower(concept), concepts.EmbeddingFile, false)
}

// download acquires the fixed bundle file set in order, tallying bytes
// for the completion log. Any failure removes the bundle directory so no
// partial bundle is ever visible as cached. A missing type file alone
// does not fail the bundle.
func (c *Cache) download(ctx context.Context, concept string) error {
	dir := c.conceptDir(concept)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("hubcache: create bundle dir: %w", err)
	}
	var total int64
	for _, filename := range bundleFiles {
		n, err := c.downloadFile(ctx, concept, filename, filepath.Join(dir, filename))
		total += n
		if err == nil {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			if filename == concepts.TypeOfConceptFile {
				continue
			}
			_ = os.RemoveAll(dir)
			c.logger.Info("concept not known to the registry, continuing without it",
				"concept", concept)
			return err
		}
		_ = os.RemoveAll(dir)
		c.logger.Warn("concept download failed, this may reflect a network issue",
			"concept", concept, "file", filename, "err", err)
		return err
	}
	c.logger.Info("downloaded concept",
		"concept", concept, "size", fmt.Sprintf("%.2fKb", float64(total)/1024))
	return nil
}

func (c *Cache) downloadFile(ctx context.Context, concept, filename, dest string) (int64, error) {
	body, err := c.fetcher.FetchFile(ctx, concept, filename)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()
	f, err := os.Create(dest) // #nosec G304 -- dest is derived from a validated concept name
	if err != nil {
		return 0, fmt.Errorf("hubcache: create %s: %w", dest, err)
	}
	n, err := io.Copy(f, io.LimitReader(body, c.maxSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %w", ErrFetchFailed, filename, err)
	}
	if n > c.maxSize {
		return n, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetchFailed, filename, c.maxSize)
	}
	return n, nil
}

func (c *Cache) conceptDir(concept string) string {
	return filepath.Join(c.root, "models", c.namespace, concept)
}
