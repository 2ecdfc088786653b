package visualization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/archive"
	"github.com/mabitter/tractor-sub000/pkg/buffer"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
	"github.com/rs/zerolog"
)

// ErrStreaming is returned when a log is loaded while live streaming is on
var ErrStreaming = errors.New("cannot load a log while streaming")

// Config holds store tunables
type Config struct {
	// Throttle is the minimum spacing between displayed samples
	Throttle time.Duration

	// ExpirationWindow is how much live history is retained
	ExpirationWindow time.Duration

	// FramePeriod is the interval between frame updates while streaming
	FramePeriod time.Duration

	// Now returns the current time; eviction horizons are computed from it
	Now func() time.Time
}

// DefaultConfig returns the store defaults
func DefaultConfig() Config {
	return Config{
		Throttle:         0,
		ExpirationWindow: 60 * time.Second,
		FramePeriod:      100 * time.Millisecond,
		Now:              time.Now,
	}
}

// Store owns the committed buffer and switches it between live streaming
// and recorded logs. All state is guarded by mu; the frame update runs as
// one critical section so readers never see a half-merged buffer.
type Store struct {
	mu sync.RWMutex
	// run serializes start and stop
	run sync.Mutex

	cfg         Config
	emitter     *events.Emitter
	registry    *registry.Registry
	visualizers *visualizer.Registry
	streaming   *buffer.StreamingBuffer

	buf         buffer.Buffer
	bufferStart int64
	bufferEnd   int64
	hasRange    bool
	rangeStart  float64
	rangeEnd    float64
	throttle    int64
	expiration  int64

	isStreaming bool
	loaded      bool
	sub         *events.Subscription
	stopCh      chan struct{}
	done        chan struct{}

	panels     map[string]*panel.Panel
	panelOrder []string
	panelStore PanelStore

	listeners []func()
	logger    zerolog.Logger
}

// New creates a store fed by emitter while streaming
func New(emitter *events.Emitter, reg *registry.Registry, vr *visualizer.Registry, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.ExpirationWindow <= 0 {
		cfg.ExpirationWindow = def.ExpirationWindow
	}
	if cfg.FramePeriod <= 0 {
		cfg.FramePeriod = def.FramePeriod
	}
	if cfg.Throttle < 0 {
		cfg.Throttle = 0
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	return &Store{
		cfg:         cfg,
		emitter:     emitter,
		registry:    reg,
		visualizers: vr,
		streaming:   buffer.NewStreamingBuffer(reg),
		buf:         make(buffer.Buffer),
		rangeEnd:    1,
		throttle:    cfg.Throttle.Milliseconds(),
		expiration:  cfg.ExpirationWindow.Milliseconds(),
		panels:      make(map[string]*panel.Panel),
		logger:      log.WithComponent("visualization"),
	}
}

// OnChange registers fn to run after every committed change. It runs on
// the goroutine that made the change, outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// IsStreaming reports whether the store is following the live bus
func (s *Store) IsStreaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isStreaming
}

// Loaded reports whether the buffer holds a recorded log
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ToggleStreaming flips between streaming and stopped. Starting over a
// loaded log first discards it together with the range selection.
func (s *Store) ToggleStreaming() {
	s.run.Lock()
	defer s.run.Unlock()

	if s.IsStreaming() {
		s.stopLocked()
	} else {
		s.startLocked()
	}
	s.notify()
}

// StopStreaming stops following the bus. Calling it while stopped is a no-op.
func (s *Store) StopStreaming() {
	s.run.Lock()
	defer s.run.Unlock()

	if s.stopLocked() {
		s.notify()
	}
}

func (s *Store) startLocked() {
	s.mu.Lock()
	if s.loaded {
		s.resetLocked()
	}
	s.isStreaming = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopCh, s.done
	s.mu.Unlock()

	s.sub = s.emitter.On(types.Wildcard, s.streaming.Add)
	go s.frameLoop(stop, done)

	s.logger.Info().Dur("frame_period", s.cfg.FramePeriod).Msg("Streaming started")
}

// stopLocked requires s.run. It reports whether streaming was on.
func (s *Store) stopLocked() bool {
	s.mu.Lock()
	if !s.isStreaming {
		s.mu.Unlock()
		return false
	}
	s.isStreaming = false
	stop, done := s.stopCh, s.done
	s.mu.Unlock()

	s.sub.Unsubscribe()
	s.sub = nil
	close(stop)
	<-done

	s.logger.Info().Msg("Streaming stopped")
	return true
}

func (s *Store) frameLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.FramePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-stop:
			// Commit whatever arrived after the last frame
			s.Flush()
			return
		}
	}
}

// Flush runs one frame: merge the streamed events into the committed
// buffer, evict what fell out of the expiration window, update the
// observed range and clear the streaming buffer. A loaded log is never
// evicted, so Flush does nothing while one is installed.
func (s *Store) Flush() {
	timer := metrics.NewTimer()

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	data, start, end, observed := s.streaming.Drain()
	s.buf.Merge(data)

	if observed {
		if !s.hasRange {
			s.bufferStart = start
		}
		s.bufferEnd = end
		s.hasRange = true
	}

	horizon := types.Millis(s.cfg.Now()) - s.expiration
	minStamp, retained, evicted := s.buf.Evict(horizon)
	switch {
	case retained:
		s.bufferStart = minStamp
	case len(s.buf) == 0:
		s.bufferStart, s.bufferEnd, s.hasRange = 0, 0, false
	}
	s.mu.Unlock()

	timer.ObserveDuration(metrics.FlushDuration)
	if evicted > 0 {
		metrics.EventsEvicted.Add(float64(evicted))
	}
	if observed || evicted > 0 {
		s.notify()
	}
}

// ReplaceBuffer installs a buffer built from a recorded log. Every series
// is sorted and the range selection is reset.
func (s *Store) ReplaceBuffer(b buffer.Buffer, start, end int64) error {
	s.mu.Lock()
	if s.isStreaming {
		s.mu.Unlock()
		return ErrStreaming
	}
	if b == nil {
		b = make(buffer.Buffer)
	}
	b.SortAll()
	s.buf = b
	s.bufferStart, s.bufferEnd, s.hasRange = start, end, true
	s.rangeStart, s.rangeEnd = 0, 1
	s.loaded = true
	s.mu.Unlock()

	streams, events := b.Len()
	s.logger.Info().Int("streams", streams).Int("events", events).Msg("Buffer replaced")
	s.notify()
	return nil
}

// LoadLog replays a recorded log from an archive into the store. When the
// replay stops early the events read so far are still installed and the
// replay error is returned.
func (s *Store) LoadLog(ctx context.Context, a archive.Archive, path string) error {
	if s.IsStreaming() {
		return ErrStreaming
	}

	sb := buffer.NewStreamingBuffer(s.registry)
	loadErr := sb.LoadFromLog(ctx, a, path)
	data, start, end, ok := sb.Drain()
	if !ok {
		if loadErr != nil {
			return loadErr
		}
		return fmt.Errorf("log %s holds no events", path)
	}

	if err := s.ReplaceBuffer(data, start, end); err != nil {
		return err
	}
	return loadErr
}

// resetLocked requires s.mu
func (s *Store) resetLocked() {
	s.buf = make(buffer.Buffer)
	s.bufferStart, s.bufferEnd, s.hasRange = 0, 0, false
	s.rangeStart, s.rangeEnd = 0, 1
	s.loaded = false
	s.streaming.Clear()
}

// Buffer returns a copy of the committed buffer
func (s *Store) Buffer() buffer.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf.Clone()
}

// BufferRange returns the observed range in milliseconds
func (s *Store) BufferRange() (start, end int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bufferStart, s.bufferEnd, s.hasRange
}

// Stats returns the number of streams and events committed
func (s *Store) Stats() (streams, events int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf.Len()
}
