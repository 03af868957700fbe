package hubcache

import "log/slog"

// Option configures a Cache (functional options pattern).
type Option func(*Cache)

// WithNamespace overrides the registry namespace used in the on-disk
// layout {root}/models/{namespace}/{concept}. Keep it in sync with the
// namespace the Fetcher downloads from. Empty leaves the default.
func WithNamespace(namespace string) Option {
	return func(c *Cache) {
		if namespace != "" {
			c.namespace = namespace
		}
	}
}

// WithLogger sets the logger for fetch summaries and degradation
// warnings. If logger is nil, slog.Default() is left in place.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxFileSize caps a single bundle file download in bytes.
// Non-positive values leave the default.
func WithMaxFileSize(limit int64) Option {
	return func(c *Cache) {
		if limit > 0 {
			c.maxSize = limit
		}
	}
}
