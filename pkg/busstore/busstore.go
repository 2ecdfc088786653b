package busstore

import (
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
)

// DefaultPeriod is the snapshot interval
const DefaultPeriod = time.Second

// StreamState is the latest state of one named stream
type StreamState struct {
	Name   string        `json:"name"`
	TypeID types.TypeID  `json:"typeId"`
	Stamp  time.Time     `json:"stamp"`
	Value  proto.Message `json:"-"`
	// Count is the number of events seen during the period
	Count int `json:"count"`
}

// Store keeps a cheap per-stream overview of the bus: latest value and
// event count per period. It does not buffer history.
type Store struct {
	mu       sync.Mutex
	emitter  *events.Emitter
	registry *registry.Registry
	period   time.Duration

	current  map[string]*StreamState
	snapshot map[string]StreamState

	sub     *events.Subscription
	stopCh  chan struct{}
	done    chan struct{}
	running bool
	logger  zerolog.Logger
}

// New creates a bus store. A non-positive period means DefaultPeriod.
func New(emitter *events.Emitter, reg *registry.Registry, period time.Duration) *Store {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Store{
		emitter:  emitter,
		registry: reg,
		period:   period,
		current:  make(map[string]*StreamState),
		snapshot: make(map[string]StreamState),
		logger:   log.WithComponent("busstore"),
	}
}

// Start subscribes to the bus and begins rotating snapshots
func (s *Store) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.sub = s.emitter.On(types.Wildcard, s.handle)

	go s.loop(s.stopCh, s.done)
	s.logger.Debug().Dur("period", s.period).Msg("Bus store started")
}

// Stop unsubscribes and stops rotating. Safe to call more than once.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	sub, stop, done := s.sub, s.stopCh, s.done
	s.sub = nil
	s.mu.Unlock()

	sub.Unsubscribe()
	close(stop)
	<-done
}

func (s *Store) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Rotate()
		case <-stop:
			return
		}
	}
}

func (s *Store) handle(env *types.Envelope) {
	if !env.HasPayload() {
		return
	}
	m := s.registry.DecodeEvent(env)
	if m == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.current[env.Name]
	if !ok {
		st = &StreamState{Name: env.Name}
		s.current[env.Name] = st
	}
	st.TypeID = env.Data.TypeURL
	st.Stamp = env.Stamp
	st.Value = m
	st.Count++
}

// Rotate publishes the accumulated period as the snapshot and starts a
// new period. Streams keep their latest value with a zero count.
func (s *Store) Rotate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]StreamState, len(s.current))
	for name, st := range s.current {
		next[name] = *st
		metrics.StreamRate.WithLabelValues(name).Set(float64(st.Count))
		st.Count = 0
	}
	s.snapshot = next
}

// Snapshot returns the last published period
func (s *Store) Snapshot() map[string]StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StreamState, len(s.snapshot))
	for name, st := range s.snapshot {
		out[name] = st
	}
	return out
}

// Rate converts a snapshot count into events per second
func (s *Store) Rate(st StreamState) float64 {
	return float64(st.Count) / s.period.Seconds()
}

// Period returns the snapshot interval
func (s *Store) Period() time.Duration {
	return s.period
}
