package buffer

import (
	"testing"

	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	doubleType = types.TypeID("type.googleapis.com/google.protobuf.DoubleValue")
	stringType = types.TypeID("type.googleapis.com/google.protobuf.StringValue")
)

func stream(stamps ...int64) Stream {
	s := make(Stream, len(stamps))
	for i, st := range stamps {
		s[i] = types.TimestampedEvent{Stamp: st, Value: wrapperspb.Double(float64(st))}
	}
	return s
}

func stamps(s Stream) []int64 {
	out := make([]int64, len(s))
	for i, ev := range s {
		out[i] = ev.Stamp
	}
	return out
}

func TestAppendCreatesEntries(t *testing.T) {
	b := make(Buffer)
	b.Append(doubleType, "gps/lat", types.TimestampedEvent{Stamp: 1})
	b.Append(doubleType, "gps/lat", types.TimestampedEvent{Stamp: 2})
	b.Append(stringType, "status", types.TimestampedEvent{Stamp: 3})

	streams, events := b.Len()
	assert.Equal(t, 2, streams)
	assert.Equal(t, 3, events)
	assert.Equal(t, []types.TypeID{doubleType, stringType}, b.TypeIDs())
	assert.Equal(t, []string{"gps/lat"}, b.Streams(doubleType).Names())
	assert.Nil(t, b.Streams("missing"))
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		committed Stream
		incoming  Stream
		expected  []int64
	}{
		{"into empty", nil, stream(30, 10, 20), []int64{10, 20, 30}},
		{"after tail", stream(1, 2), stream(5, 3), []int64{1, 2, 3, 5}},
		{"before tail", stream(10, 20), stream(15, 5), []int64{5, 10, 15, 20}},
		{"equal to tail", stream(10, 20), stream(20), []int64{10, 20, 20}},
		{"empty incoming", stream(10), Stream{}, []int64{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make(Buffer)
			if tt.committed != nil {
				b[doubleType] = Streams{"a": tt.committed}
			}
			b.Merge(Buffer{doubleType: Streams{"a": tt.incoming}})
			assert.Equal(t, tt.expected, stamps(b[doubleType]["a"]))
		})
	}
}

func TestMergeBeforeTailDoesNotAliasCommitted(t *testing.T) {
	committed := stream(10, 20)
	snapshot := committed.clone()

	b := Buffer{doubleType: Streams{"a": committed}}
	b.Merge(Buffer{doubleType: Streams{"a": stream(5)}})

	assert.Equal(t, stamps(snapshot), stamps(committed))
}

func TestEvict(t *testing.T) {
	b := Buffer{
		doubleType: Streams{
			"old":   stream(0, 100, 200),
			"mixed": stream(0, 250, 400, 700, 1000),
		},
		stringType: Streams{
			"gone": stream(10, 20),
		},
	}

	minStamp, ok, evicted := b.Evict(400)
	require.True(t, ok)
	assert.Equal(t, int64(400), minStamp)
	assert.Equal(t, 7, evicted)

	assert.Equal(t, []types.TypeID{doubleType}, b.TypeIDs())
	assert.Equal(t, []string{"mixed"}, b.Streams(doubleType).Names())
	for _, s := range b[doubleType] {
		for _, ev := range s {
			assert.GreaterOrEqual(t, ev.Stamp, int64(400))
		}
	}
}

func TestEvictEverything(t *testing.T) {
	b := Buffer{doubleType: Streams{"a": stream(0, 100, 399)}}

	_, ok, evicted := b.Evict(400)
	assert.False(t, ok)
	assert.Equal(t, 3, evicted)
	assert.Empty(t, b)
}

func TestCloneIsIndependent(t *testing.T) {
	b := Buffer{doubleType: Streams{"a": stream(1, 2)}}
	c := b.Clone()

	c.Append(doubleType, "a", types.TimestampedEvent{Stamp: 3})
	c.Append(stringType, "b", types.TimestampedEvent{Stamp: 4})
	c[doubleType]["a"][0].Stamp = 99

	assert.Equal(t, []int64{1, 2}, stamps(b[doubleType]["a"]))
	assert.NotContains(t, b, stringType)
}

func TestSortAll(t *testing.T) {
	b := Buffer{doubleType: Streams{"a": stream(3, 1, 2), "b": stream(9, 8)}}
	b.SortAll()
	assert.Equal(t, []int64{1, 2, 3}, stamps(b[doubleType]["a"]))
	assert.Equal(t, []int64{8, 9}, stamps(b[doubleType]["b"]))
}

func (s Stream) clone() Stream {
	return append(Stream(nil), s...)
}
