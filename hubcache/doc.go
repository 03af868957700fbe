// Package hubcache caches concept artifact bundles on local disk,
// acquiring them lazily from a remote registry. A bundle is the fixed
// file set of one concept (embedding binary, token identifier, readme,
// optional type file); its directory under {root}/models/{namespace} is
// the sole source of truth for cache membership.
package hubcache
