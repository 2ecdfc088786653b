package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bus metrics
	EnvelopesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_envelopes_emitted_total",
			Help: "Total number of envelopes dispatched by the bus emitter, by type",
		},
		[]string{"type_id"},
	)

	EnvelopesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_envelopes_dropped_total",
			Help: "Envelopes not delivered to a channel subscriber because its buffer was full",
		},
		[]string{"filter"},
	)

	DecodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_decode_failures_total",
			Help: "Total number of payloads that could not be decoded, by reason",
		},
		[]string{"reason"},
	)

	// Buffer metrics
	BufferStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_buffer_streams",
			Help: "Number of (type, name) streams in the committed buffer",
		},
	)

	BufferEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_buffer_events",
			Help: "Number of events retained in the committed buffer",
		},
	)

	EventsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_events_evicted_total",
			Help: "Total number of events dropped by the expiration window",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "console_flush_duration_seconds",
			Help:    "Time taken to merge and evict one frame of streamed events",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// Replay and resource metrics
	LogRecordsRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_log_records_read_total",
			Help: "Total number of records replayed from event logs",
		},
	)

	ResourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_resource_fetches_total",
			Help: "Resource archive fetches by backend and result",
		},
		[]string{"backend", "result"},
	)

	// Bus store metrics
	StreamRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_stream_events_per_snapshot",
			Help: "Events seen per stream during the last bus store snapshot period",
		},
		[]string{"stream"},
	)

	// API metrics
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_api_requests_total",
			Help: "gRPC requests served, by method and status code",
		},
		[]string{"method", "code"},
	)

	APIRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_api_rejected_total",
			Help: "HTTP requests refused by the access middleware, by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(EnvelopesEmitted)
	prometheus.MustRegister(EnvelopesDropped)
	prometheus.MustRegister(DecodeFailures)
	prometheus.MustRegister(BufferStreams)
	prometheus.MustRegister(BufferEvents)
	prometheus.MustRegister(EventsEvicted)
	prometheus.MustRegister(FlushDuration)
	prometheus.MustRegister(LogRecordsRead)
	prometheus.MustRegister(ResourceFetches)
	prometheus.MustRegister(StreamRate)
	prometheus.MustRegister(APIRequests)
	prometheus.MustRegister(APIRejected)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on a histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on a histogram vector
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
