package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/buffer"
	"github.com/mabitter/tractor-sub000/pkg/busstore"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"github.com/rs/zerolog"
)

// Session is the read side of the visualization store
type Session interface {
	Summary() visualization.Summary
	Panels() []*panel.Panel
	Panel(id string) (*panel.Panel, bool)
	PanelStreams(id string) (buffer.Streams, error)
}

// Bus is the read side of the bus store
type Bus interface {
	Snapshot() map[string]busstore.StreamState
	Rate(st busstore.StreamState) float64
}

// HTTPServer serves health, metrics and read-only session state
type HTTPServer struct {
	mux     *http.ServeMux
	handler http.Handler
	session Session
	bus     Bus
	logger  zerolog.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewHTTPServer registers the endpoints. A nil session or bus leaves the
// corresponding routes out (replay sessions have no bus store).
func NewHTTPServer(session Session, bus Bus) *HTTPServer {
	mux := http.NewServeMux()
	hs := &HTTPServer{
		mux:     mux,
		handler: mux,
		session: session,
		bus:     bus,
		logger:  log.WithComponent("api"),
	}

	mux.HandleFunc("GET /health", metrics.HealthHandler())
	mux.HandleFunc("GET /ready", metrics.ReadyHandler())
	mux.HandleFunc("GET /live", metrics.LivenessHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	if bus != nil {
		mux.HandleFunc("GET /streams", hs.streamsHandler)
	}
	if session != nil {
		mux.HandleFunc("GET /buffer", hs.bufferHandler)
		mux.HandleFunc("GET /panels", hs.panelsHandler)
		mux.HandleFunc("GET /panels/{id}/streams", hs.panelStreamsHandler)
	}

	return hs
}

// Use wraps every route in mw; later calls wrap outermost
func (hs *HTTPServer) Use(mw func(http.Handler) http.Handler) {
	hs.handler = mw(hs.handler)
}

// Handler returns the wrapped mux for embedding in other servers
func (hs *HTTPServer) Handler() http.Handler {
	return hs.handler
}

// Start listens on addr and blocks until Shutdown
func (hs *HTTPServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		metrics.UpdateComponent("api", false, err.Error())
		return fmt.Errorf("failed to listen: %w", err)
	}
	return hs.Serve(lis)
}

// Serve serves on an existing listener until Shutdown. The "api" component
// is healthy while the listener accepts.
func (hs *HTTPServer) Serve(lis net.Listener) error {
	server := &http.Server{
		Handler:      hs.handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	hs.mu.Lock()
	hs.server = server
	hs.mu.Unlock()

	addr := lis.Addr().String()
	metrics.UpdateComponent("api", true, "http listening on "+addr)
	hs.logger.Info().Str("addr", addr).Msg("HTTP API listening")

	err := server.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	metrics.UpdateComponent("api", false, err.Error())
	return err
}

// Shutdown stops a started server
func (hs *HTTPServer) Shutdown(ctx context.Context) error {
	hs.mu.Lock()
	server := hs.server
	hs.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}
