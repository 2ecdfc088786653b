package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/rs/zerolog"
)

// HTTPArchive resolves paths against a remote blob store
type HTTPArchive struct {
	// Headers are added to every request
	Headers map[string]string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client

	base   *url.URL
	logger zerolog.Logger
}

// NewHTTPArchive creates an archive rooted at baseURL
func NewHTTPArchive(baseURL string) (*HTTPArchive, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid blob store URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid blob store URL %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &HTTPArchive{
		Headers: make(map[string]string),
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		base:   u,
		logger: log.WithComponent("archive").With().Str("backend", "http").Logger(),
	}, nil
}

// WithTimeout sets the HTTP client timeout
func (a *HTTPArchive) WithTimeout(timeout time.Duration) *HTTPArchive {
	a.Client.Timeout = timeout
	return a
}

// WithHeader adds a custom HTTP header
func (a *HTTPArchive) WithHeader(key, value string) *HTTPArchive {
	a.Headers[key] = value
	return a
}

// URL returns the absolute URL a path resolves to. Paths with a ".."
// segment are not found: they would leave the base URL.
func (a *HTTPArchive) URL(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return a.base.String(), nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%s: %w", p, ErrNotFound)
		}
	}
	return a.base.JoinPath(p).String(), nil
}

func (a *HTTPArchive) fetch(ctx context.Context, p, accept string) ([]byte, error) {
	target, err := a.URL(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("GET %s: HTTP %d %s", target, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return data, nil
}

// GetBlob fetches the resource at path. Failures are logged and returned;
// there is no retry.
func (a *HTTPArchive) GetBlob(ctx context.Context, path string) ([]byte, error) {
	data, err := a.fetch(ctx, path, "")
	if err != nil {
		metrics.ResourceFetches.WithLabelValues("http", "error").Inc()
		a.logger.Warn().Err(err).Str("path", path).Msg("Resource fetch failed")
		return nil, err
	}
	metrics.ResourceFetches.WithLabelValues("http", "ok").Inc()
	return data, nil
}

func (a *HTTPArchive) GetJSON(ctx context.Context, path string, v any) error {
	return getJSON(ctx, a, path, v)
}

func (a *HTTPArchive) GetDataURL(ctx context.Context, path string) (string, error) {
	return getDataURL(ctx, a, path)
}

// GetFileInfo reads the JSON listing served at the base URL
func (a *HTTPArchive) GetFileInfo(ctx context.Context) ([]FileInfo, error) {
	data, err := a.fetch(ctx, "", "application/json")
	if err != nil {
		metrics.ResourceFetches.WithLabelValues("http", "error").Inc()
		a.logger.Warn().Err(err).Msg("Listing failed")
		return nil, err
	}
	metrics.ResourceFetches.WithLabelValues("http", "ok").Inc()

	var infos []FileInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}
	return infos, nil
}
