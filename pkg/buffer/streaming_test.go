package buffer

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/archive"
	"github.com/mabitter/tractor-sub000/pkg/eventlog"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func envelope(t *testing.T, name string, ms int64) *types.Envelope {
	t.Helper()
	env, err := types.NewEnvelope(name, time.UnixMilli(ms), wrapperspb.Double(float64(ms)))
	require.NoError(t, err)
	return env
}

func TestAddIgnoresIncompleteEnvelopes(t *testing.T) {
	b := NewStreamingBuffer(registry.Default())

	b.Add(&types.Envelope{Name: "heartbeat", Stamp: time.UnixMilli(10)})
	env := envelope(t, "gps", 10)
	env.Stamp = time.Time{}
	b.Add(env)

	_, _, ok := b.Range()
	assert.False(t, ok)
	assert.Empty(t, b.Data())
}

func TestAddRangeIsFirstAndLastObserved(t *testing.T) {
	b := NewStreamingBuffer(registry.Default())

	for _, ms := range []int64{500, 100, 900, 300} {
		b.Add(envelope(t, "gps", ms))
	}

	start, end, ok := b.Range()
	require.True(t, ok)
	assert.Equal(t, int64(500), start)
	assert.Equal(t, int64(300), end)
	assert.Equal(t, []int64{500, 100, 900, 300}, stamps(b.Data()[doubleType]["gps"]))
}

func TestAddUndecodableStillMovesRange(t *testing.T) {
	b := NewStreamingBuffer(registry.Default())
	b.Add(envelope(t, "gps", 100))
	b.Add(&types.Envelope{
		Name:  "mystery",
		Stamp: time.UnixMilli(200),
		Data:  &types.Payload{TypeURL: "type.googleapis.com/farm_ng.Unknown", Value: []byte{1}},
	})
	b.Add(&types.Envelope{
		Name:  "gps",
		Stamp: time.UnixMilli(300),
		Data:  &types.Payload{TypeURL: doubleType, Value: []byte{0xff}},
	})

	start, end, ok := b.Range()
	require.True(t, ok)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(300), end)

	streams, events := b.Data().Len()
	assert.Equal(t, 1, streams)
	assert.Equal(t, 1, events)
}

func TestDrainClears(t *testing.T) {
	b := NewStreamingBuffer(registry.Default())
	b.Add(envelope(t, "gps", 1))
	b.Add(envelope(t, "imu", 2))

	data, start, end, ok := b.Drain()
	require.True(t, ok)
	assert.Equal(t, int64(1), start)
	assert.Equal(t, int64(2), end)
	assert.Len(t, data[doubleType], 2)

	_, _, ok = b.Range()
	assert.False(t, ok)
	streams, _ := b.Stats()
	assert.Zero(t, streams)

	b.Add(envelope(t, "gps", 3))
	b.Clear()
	assert.Empty(t, b.Data())
}

func TestMergeAfterOutOfOrderAddIsOrdered(t *testing.T) {
	b := NewStreamingBuffer(registry.Default())
	committed := make(Buffer)

	frames := [][]int64{
		{50, 10, 30},
		{20, 60, 40},
		{70, 5},
	}
	for _, frame := range frames {
		for i, ms := range frame {
			b.Add(envelope(t, fmt.Sprintf("stream/%d", i%2), ms))
		}
		data, _, _, _ := b.Drain()
		committed.Merge(data)
	}

	for name, s := range committed[doubleType] {
		for i := 1; i < len(s); i++ {
			assert.LessOrEqual(t, s[i-1].Stamp, s[i].Stamp, name)
		}
	}
	_, events := committed.Len()
	assert.Equal(t, 8, events)
}

func encodeLog(t *testing.T, envs ...*types.Envelope) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := eventlog.NewWriter(&buf)
	for _, env := range envs {
		require.NoError(t, w.Write(env))
	}
	return buf.Bytes()
}

func TestReadLogRoundTrip(t *testing.T) {
	stampsIn := []int64{400, 100, 700, 250, 300}
	var envs []*types.Envelope
	for i, ms := range stampsIn {
		envs = append(envs, envelope(t, fmt.Sprintf("cam/%d", i%2), ms))
	}

	b := NewStreamingBuffer(registry.Default())
	require.NoError(t, b.ReadLog(bytes.NewReader(encodeLog(t, envs...))))

	_, events := b.Data().Len()
	assert.Equal(t, len(envs), events)

	start, end, ok := b.Range()
	require.True(t, ok)
	assert.Equal(t, int64(400), start)
	assert.Equal(t, int64(300), end)
}

func TestReadLogTruncatedKeepsIngested(t *testing.T) {
	data := encodeLog(t, envelope(t, "a", 1), envelope(t, "a", 2), envelope(t, "a", 3))

	b := NewStreamingBuffer(registry.Default())
	err := b.ReadLog(bytes.NewReader(data[:len(data)-3]))
	assert.ErrorIs(t, err, eventlog.ErrTruncatedRecord)

	_, events := b.Data().Len()
	assert.Equal(t, 2, events)
}

func TestLoadFromLog(t *testing.T) {
	logData := encodeLog(t, envelope(t, "gps", 10), envelope(t, "gps", 20))

	var tarball bytes.Buffer
	tw := tar.NewWriter(&tarball)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "capture-2021/events.log", Mode: 0o644, Size: int64(len(logData))}))
	_, err := tw.Write(logData)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	a, err := archive.NewTarArchive(tarball.Bytes())
	require.NoError(t, err)

	b := NewStreamingBuffer(registry.Default())
	require.NoError(t, b.LoadFromLog(context.Background(), a, "events.log"))
	assert.Equal(t, []int64{10, 20}, stamps(b.Data()[doubleType]["gps"]))

	err = b.LoadFromLog(context.Background(), a, "other.log")
	assert.ErrorIs(t, err, archive.ErrNotFound)
}
