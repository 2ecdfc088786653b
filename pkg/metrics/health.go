package metrics

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
)

// Health states reported by GetHealth and GetReadiness
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// HealthStatus is the body of /health and /ready. Changed holds, per
// component, when it last flipped between healthy and unhealthy.
type HealthStatus struct {
	Status     string               `json:"status"`
	Timestamp  time.Time            `json:"timestamp"`
	Components map[string]string    `json:"components,omitempty"`
	Changed    map[string]time.Time `json:"changed,omitempty"`
	Message    string               `json:"message,omitempty"`
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
}

// DefaultCriticalComponents must all be healthy before the console reports ready
var DefaultCriticalComponents = []string{"transport", "store", "api"}

type componentState struct {
	healthy bool
	message string
	since   time.Time
}

func (c componentState) describe() string {
	if c.healthy {
		return StatusHealthy
	}
	return StatusUnhealthy + ": " + c.message
}

type componentTracker struct {
	mu         sync.RWMutex
	components map[string]componentState
	critical   []string
	started    time.Time
	version    string
	now        func() time.Time
}

func newComponentTracker() *componentTracker {
	return &componentTracker{
		components: make(map[string]componentState),
		critical:   append([]string(nil), DefaultCriticalComponents...),
		started:    time.Now(),
		now:        time.Now,
	}
}

var tracker = newComponentTracker()

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	tracker.mu.Lock()
	tracker.version = version
	tracker.mu.Unlock()
}

// SetCriticalComponents replaces the set of components readiness waits for.
// Replay sessions have no transport, so they drop it from the list.
func SetCriticalComponents(names ...string) {
	tracker.mu.Lock()
	tracker.critical = append([]string(nil), names...)
	tracker.mu.Unlock()
}

// UpdateComponent records the health of a component. Transitions are
// logged; repeated reports of the same state only refresh the message.
func UpdateComponent(name string, healthy bool, message string) {
	tracker.mu.Lock()
	prev, known := tracker.components[name]
	next := componentState{healthy: healthy, message: message, since: prev.since}
	changed := !known || prev.healthy != healthy
	if changed {
		next.since = tracker.now()
	}
	tracker.components[name] = next
	tracker.mu.Unlock()

	if !changed {
		return
	}
	logger := log.WithComponent("health").With().Str("target", name).Logger()
	switch {
	case !healthy:
		logger.Warn().Str("reason", message).Msg("Component unhealthy")
	case known:
		logger.Info().Msg("Component recovered")
	default:
		logger.Debug().Msg("Component registered")
	}
}

// GetHealth is unhealthy as soon as any registered component is
func GetHealth() HealthStatus {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()

	st := tracker.report()
	st.Status = StatusHealthy
	for name, c := range tracker.components {
		st.Components[name] = c.describe()
		st.Changed[name] = c.since
		if !c.healthy {
			st.Status = StatusUnhealthy
		}
	}
	return st
}

// GetReadiness is ready once every critical component is registered and
// healthy. Message names all components still being waited for.
func GetReadiness() HealthStatus {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()

	st := tracker.report()
	var waiting []string
	for _, name := range tracker.critical {
		c, ok := tracker.components[name]
		switch {
		case !ok:
			st.Components[name] = "not registered"
			waiting = append(waiting, name+" initialization")
		case !c.healthy:
			st.Components[name] = "not ready: " + c.message
			st.Changed[name] = c.since
			waiting = append(waiting, name)
		default:
			st.Components[name] = StatusReady
			st.Changed[name] = c.since
		}
	}

	st.Status = StatusReady
	if len(waiting) > 0 {
		st.Status = StatusNotReady
		st.Message = "waiting for " + strings.Join(waiting, ", ")
	}
	return st
}

// report fills the fields shared by both endpoints; callers hold mu
func (t *componentTracker) report() HealthStatus {
	return HealthStatus{
		Timestamp:  t.now(),
		Components: make(map[string]string, len(t.components)),
		Changed:    make(map[string]time.Time, len(t.components)),
		Version:    t.version,
		Uptime:     time.Since(t.started).Round(time.Second).String(),
	}
}

// HealthHandler serves GetHealth, 503 while unhealthy
func HealthHandler() http.HandlerFunc {
	return statusHandler(GetHealth, StatusHealthy)
}

// ReadyHandler serves GetReadiness, 503 until ready
func ReadyHandler() http.HandlerFunc {
	return statusHandler(GetReadiness, StatusReady)
}

// LivenessHandler answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(tracker.started).Round(time.Second).String(),
		})
	}
}

func statusHandler(get func() HealthStatus, ok string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := get()
		code := http.StatusOK
		if st.Status != ok {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
