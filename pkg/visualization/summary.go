package visualization

import (
	"time"

	"github.com/mabitter/tractor-sub000/pkg/types"
)

// StreamSummary describes one committed stream
type StreamSummary struct {
	Name   string    `json:"name"`
	Events int       `json:"events"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// TypeSummary groups the streams of one payload type
type TypeSummary struct {
	TypeID  types.TypeID    `json:"typeId"`
	Streams []StreamSummary `json:"streams"`
}

// Summary is a serializable overview of the store
type Summary struct {
	Streaming        bool          `json:"streaming"`
	Loaded           bool          `json:"loaded"`
	Start            *time.Time    `json:"start,omitempty"`
	End              *time.Time    `json:"end,omitempty"`
	RangeStart       float64       `json:"rangeStart"`
	RangeEnd         float64       `json:"rangeEnd"`
	Throttle         time.Duration `json:"throttle"`
	ExpirationWindow time.Duration `json:"expirationWindow"`
	Panels           int           `json:"panels"`
	Types            []TypeSummary `json:"types"`
}

// Summary describes the committed buffer without copying its events
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Streaming:        s.isStreaming,
		Loaded:           s.loaded,
		RangeStart:       s.rangeStart,
		RangeEnd:         s.rangeEnd,
		Throttle:         time.Duration(s.throttle) * time.Millisecond,
		ExpirationWindow: time.Duration(s.expiration) * time.Millisecond,
		Panels:           len(s.panels),
		Types:            []TypeSummary{},
	}
	if s.hasRange {
		start, end := types.FromMillis(s.bufferStart), types.FromMillis(s.bufferEnd)
		sum.Start, sum.End = &start, &end
	}

	for _, id := range s.buf.TypeIDs() {
		streams := s.buf.Streams(id)
		ts := TypeSummary{TypeID: id}
		for _, name := range streams.Names() {
			seq := streams[name]
			if len(seq) == 0 {
				continue
			}
			ts.Streams = append(ts.Streams, StreamSummary{
				Name:   name,
				Events: len(seq),
				First:  types.FromMillis(seq[0].Stamp),
				Last:   types.FromMillis(seq[len(seq)-1].Stamp),
			})
		}
		sum.Types = append(sum.Types, ts)
	}
	return sum
}
