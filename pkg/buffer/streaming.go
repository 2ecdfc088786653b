package buffer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mabitter/tractor-sub000/pkg/archive"
	"github.com/mabitter/tractor-sub000/pkg/eventlog"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// StreamingBuffer accumulates decoded envelopes between flushes. It is fed
// by the live bus or by replaying a recorded log; both go through Add.
type StreamingBuffer struct {
	mu       sync.Mutex
	registry *registry.Registry
	data     Buffer
	start    int64
	end      int64
	hasRange bool
	logger   zerolog.Logger
}

// NewStreamingBuffer creates an empty buffer decoding with reg
func NewStreamingBuffer(reg *registry.Registry) *StreamingBuffer {
	return &StreamingBuffer{
		registry: reg,
		data:     make(Buffer),
		logger:   log.WithComponent("buffer"),
	}
}

// Add ingests one envelope. Envelopes without a payload or a stamp are
// ignored. The observed range is updated before decoding, so an event
// that fails to decode still moves it: start is the first stamp seen and
// end the most recent one, not a minimum and maximum.
func (b *StreamingBuffer) Add(env *types.Envelope) {
	if !env.HasPayload() || env.Stamp.IsZero() {
		return
	}
	stamp := types.Millis(env.Stamp)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasRange {
		b.start = stamp
		b.hasRange = true
	}
	b.end = stamp

	m := b.registry.DecodeEvent(env)
	if m == nil {
		return
	}
	b.data.Append(env.Data.TypeURL, env.Name, types.TimestampedEvent{Stamp: stamp, Value: m})
}

// Data returns a copy of the accumulated events
func (b *StreamingBuffer) Data() Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Clone()
}

// Range returns the first and last stamps observed since the last clear
func (b *StreamingBuffer) Range() (start, end int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.start, b.end, b.hasRange
}

// Clear drops all accumulated events and the observed range
func (b *StreamingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// Drain returns the accumulated events and range and clears the buffer in
// one step, so no envelope added concurrently is lost between the two.
func (b *StreamingBuffer) Drain() (data Buffer, start, end int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, start, end, ok = b.data, b.start, b.end, b.hasRange
	b.reset()
	return data, start, end, ok
}

// Stats reports the number of streams and events held
func (b *StreamingBuffer) Stats() (streams, events int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Len()
}

func (b *StreamingBuffer) reset() {
	b.data = make(Buffer)
	b.start, b.end, b.hasRange = 0, 0, false
}

// ReadLog replays a recorded log through Add. A truncated or undecodable
// record stops the replay; everything ingested before it is kept and the
// error is returned for the caller to report.
func (b *StreamingBuffer) ReadLog(r io.Reader) error {
	lr := eventlog.NewReader(r)
	for {
		env, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.LogRecordsRead.Add(float64(lr.Records()))
			b.logger.Warn().Err(err).Int("records", lr.Records()).Msg("Log replay stopped early")
			return fmt.Errorf("log replay stopped after %d records: %w", lr.Records(), err)
		}
		b.Add(env)
	}

	metrics.LogRecordsRead.Add(float64(lr.Records()))
	b.logger.Debug().Int("records", lr.Records()).Msg("Log replayed")
	return nil
}

// LoadFromLog fetches a recorded log from an archive and replays it
func (b *StreamingBuffer) LoadFromLog(ctx context.Context, a archive.Archive, path string) error {
	data, err := a.GetBlob(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to fetch log %s: %w", path, err)
	}
	return b.ReadLog(bytes.NewReader(data))
}
