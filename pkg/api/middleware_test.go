package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestFrom(t *testing.T, h http.Handler, remote string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/live", nil)
	r.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddlewareAccessControl(t *testing.T) {
	m, err := NewMiddleware(AccessConfig{
		AllowedIPs: []string{"10.0.0.0/8", "127.0.0.1"},
		DeniedIPs:  []string{"10.0.0.66"},
	})
	require.NoError(t, err)

	hs := NewHTTPServer(nil, nil)
	hs.Use(m.Wrap)
	h := hs.Handler()

	tests := []struct {
		remote string
		code   int
	}{
		{"127.0.0.1:5000", http.StatusOK},
		{"10.1.2.3:5000", http.StatusOK},
		{"10.0.0.66:5000", http.StatusForbidden},
		{"192.168.1.10:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.code, requestFrom(t, h, tt.remote).Code)
		})
	}
}

func TestMiddlewareRateLimit(t *testing.T) {
	m, err := NewMiddleware(AccessConfig{RequestsPerSecond: 1, Burst: 2})
	require.NoError(t, err)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	hs := NewHTTPServer(nil, nil)
	hs.Use(m.Wrap)
	h := hs.Handler()

	assert.Equal(t, http.StatusOK, requestFrom(t, h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, requestFrom(t, h, "10.0.0.1:1").Code)

	w := requestFrom(t, h, "10.0.0.1:1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, requestFrom(t, h, "10.0.0.2:1").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, requestFrom(t, h, "10.0.0.1:1").Code)
}

func TestMiddlewareCleanup(t *testing.T) {
	m, err := NewMiddleware(AccessConfig{RequestsPerSecond: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, m.burst)

	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	m.allow("10.0.0.1")

	now = now.Add(time.Minute)
	m.allow("10.0.0.2")

	assert.Equal(t, 1, m.Cleanup(30*time.Second))
	assert.Len(t, m.limiters, 1)
	assert.Contains(t, m.limiters, "10.0.0.2")
}

func TestNewMiddlewareInvalid(t *testing.T) {
	_, err := NewMiddleware(AccessConfig{AllowedIPs: []string{"10.0.0.0/33"}})
	assert.Error(t, err)

	_, err = NewMiddleware(AccessConfig{DeniedIPs: []string{"not-an-ip"}})
	assert.Error(t, err)

	_, err = NewMiddleware(AccessConfig{RequestsPerSecond: -1})
	assert.Error(t, err)
}
