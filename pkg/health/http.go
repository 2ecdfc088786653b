package health

import (
	"context"
	"net/http"
	"time"
)

// HTTPChecker probes an HTTP endpoint such as the blob store root
type HTTPChecker struct {
	URL    string
	Method string
	Header http.Header

	// Accepted status codes, inclusive
	StatusMin int
	StatusMax int

	Client *http.Client
}

// NewHTTPChecker accepts any 2xx or 3xx answer from a GET
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:       url,
		Method:    http.MethodGet,
		Header:    make(http.Header),
		StatusMin: 200,
		StatusMax: 399,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Check issues one request
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return result(start, false, "failed to create request: %v", err)
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return result(start, false, "request failed: %v", err)
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code < h.StatusMin || code > h.StatusMax {
		return result(start, false, "HTTP %d %s (expected %d-%d)",
			code, http.StatusText(code), h.StatusMin, h.StatusMax)
	}
	return result(start, true, "HTTP %d %s", code, http.StatusText(code))
}

func (h *HTTPChecker) Type() CheckType {
	return CheckTypeHTTP
}

// WithMethod sets the request method
func (h *HTTPChecker) WithMethod(method string) *HTTPChecker {
	h.Method = method
	return h
}

// WithHeader adds a request header
func (h *HTTPChecker) WithHeader(key, value string) *HTTPChecker {
	h.Header.Add(key, value)
	return h
}

// WithStatusRange sets the accepted status codes
func (h *HTTPChecker) WithStatusRange(min, max int) *HTTPChecker {
	h.StatusMin, h.StatusMax = min, max
	return h
}

// WithTimeout sets the client timeout
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}
