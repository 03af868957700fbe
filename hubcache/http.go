package hubcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultHubURL is the public registry endpoint.
const DefaultHubURL = "https://huggingface.co"

// DefaultNamespace is the registry namespace holding concept bundles.
const DefaultNamespace = "sd-concepts-library"

// defaultUserAgent is the User-Agent header value for hub requests.
const defaultUserAgent = "concepts-hubcache/1.0"

// maxListingSize limits the listing response body (8 MB); the concept
// listing is a flat JSON array of model ids.
const maxListingSize = 8 << 20

var (
	_ Fetcher = (*HubFetcher)(nil)
	_ Lister  = (*HubFetcher)(nil)
)

// HubFetcher fetches concept bundle files from a HuggingFace-style hub.
// File resolution: {base}/{namespace}/{concept}/resolve/main/{filename}.
// Listing: {base}/api/models?author={namespace}, a JSON array of objects
// whose id field is "{namespace}/{concept}".
type HubFetcher struct {
	baseURL    string
	namespace  string
	httpClient *http.Client
	authToken  string
}

// HubOption configures HubFetcher.
type HubOption func(*HubFetcher)

// WithHTTPClient sets the HTTP client. The default has a 5 minute
// timeout sized for multi-megabyte embedding downloads. If c is nil,
// the default client is left unchanged.
func WithHTTPClient(c *http.Client) HubOption {
	return func(h *HubFetcher) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithAuthToken sets the Bearer token for the Authorization header,
// overriding the ambient token store.
func WithAuthToken(token string) HubOption {
	return func(h *HubFetcher) {
		h.authToken = token
	}
}

// NewHubFetcher creates a HubFetcher for the given base URL (e.g.
// DefaultHubURL) and namespace (e.g. DefaultNamespace). Unless
// WithAuthToken is given, the ambient token store is consulted once at
// construction; a missing token is not an error, requests simply go out
// unauthenticated.
func NewHubFetcher(baseURL, namespace string, opts ...HubOption) (*HubFetcher, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("hubcache: base URL must not be empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("hubcache: invalid base URL %q", baseURL)
	}
	if namespace == "" {
		return nil, fmt.Errorf("hubcache: namespace must not be empty")
	}
	h := &HubFetcher{
		baseURL:    baseURL,
		namespace:  namespace,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		authToken:  StoredToken(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// FetchFile streams one bundle file. 404 returns ErrNotFound; other
// non-2xx responses return ErrFetchFailed wrapping ErrHTTPStatus.
func (h *HubFetcher) FetchFile(ctx context.Context, concept, filename string) (io.ReadCloser, error) {
	u := h.baseURL + "/" + h.namespace + "/" + url.PathEscape(concept) + "/resolve/main/" + url.PathEscape(filename)
	resp, err := h.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, h.namespace, concept, filename)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %w: %s %s", ErrFetchFailed, ErrHTTPStatus, resp.Status, u)
	}
	return resp.Body, nil
}

// ListConcepts returns every concept name under the namespace, in the
// order the hub reports them, namespace prefix stripped.
func (h *HubFetcher) ListConcepts(ctx context.Context) ([]string, error) {
	u := h.baseURL + "/api/models?author=" + url.QueryEscape(h.namespace)
	resp, err := h.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w: %s %s", ErrFetchFailed, ErrHTTPStatus, resp.Status, u)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxListingSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read listing: %w", ErrFetchFailed, err)
	}
	var entries []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode listing: %w", ErrFetchFailed, err)
	}
	prefix := h.namespace + "/"
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutPrefix(e.ID, prefix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (h *HubFetcher) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	resp, err := h.httpClient.Do(req) // #nosec G704 -- URL is from config and path-escaped names
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return resp, nil
}

// StoredToken reads the ambient hub credential: the HF_TOKEN environment
// variable, then HUGGING_FACE_HUB_TOKEN, then ~/.huggingface/token.
// Returns "" when no credential is stored.
func StoredToken() string {
	for _, key := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
		if tok := strings.TrimSpace(os.Getenv(key)); tok != "" {
			return tok
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".huggingface", "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
