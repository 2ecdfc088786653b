package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// Recorder captures every emitted envelope into a log file
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	writer  *Writer
	sub     *events.Subscription
	records int
	skipped int
	err     error
	logger  zerolog.Logger
}

// Record creates the log file at path and starts capturing envelopes
func Record(emitter *events.Emitter, path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log: %w", err)
	}

	buf := bufio.NewWriter(f)
	r := &Recorder{
		file:   f,
		buf:    buf,
		writer: NewWriter(buf),
		logger: log.WithComponent("recorder").With().Str("path", path).Logger(),
	}
	r.sub = emitter.On(types.Wildcard, r.write)
	r.logger.Info().Msg("Recording started")
	return r, nil
}

func (r *Recorder) write(env *types.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil || r.err != nil {
		return
	}
	if err := r.writer.Write(env); err != nil {
		if errors.Is(err, ErrRecordTooLarge) {
			r.skipped++
			r.logger.Warn().Err(err).Str("stream", env.Name).Msg("Skipping oversized envelope")
			return
		}
		r.err = err
		r.logger.Error().Err(err).Msg("Recording failed")
		return
	}
	r.records++
}

// Records returns the number of envelopes written and skipped
func (r *Recorder) Records() (written, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, r.skipped
}

// Close stops capturing and flushes the log. Safe to call more than once.
func (r *Recorder) Close() error {
	r.sub.Unsubscribe()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return r.err
	}
	if err := r.buf.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	if err := r.file.Close(); err != nil && r.err == nil {
		r.err = err
	}
	r.file = nil
	r.logger.Info().Int("records", r.records).Int("skipped", r.skipped).Msg("Recording stopped")
	return r.err
}
