package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/buffer"
	"github.com/mabitter/tractor-sub000/pkg/busstore"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var doubleType = types.TypeIDOf(&wrapperspb.DoubleValue{})

func newSession(t *testing.T) *visualization.Store {
	t.Helper()
	s := visualization.New(events.NewEmitter(), registry.Default(), visualizer.Default(), visualization.Config{
		ExpirationWindow: time.Minute,
		FramePeriod:      time.Hour,
	})
	t.Cleanup(s.StopStreaming)

	seq := buffer.Stream{}
	for _, ms := range []int64{0, 10, 10, 50, 51, 120} {
		seq = append(seq, types.TimestampedEvent{Stamp: ms, Value: wrapperspb.Double(float64(ms))})
	}
	require.NoError(t, s.ReplaceBuffer(buffer.Buffer{
		doubleType: buffer.Streams{"gps/latitude": seq},
	}, 0, 120))
	return s
}

func TestStreamsEndpoint(t *testing.T) {
	emitter := events.NewEmitter()
	bus := busstore.New(emitter, registry.Default(), time.Hour)
	bus.Start()
	defer bus.Stop()

	for i, name := range []string{"status", "gps", "gps"} {
		env, err := types.NewEnvelope(name, time.UnixMilli(int64(i)), wrapperspb.Double(float64(i)))
		require.NoError(t, err)
		emitter.Emit(env)
	}
	bus.Rotate()

	w := get(t, NewHTTPServer(nil, bus).Handler(), http.MethodGet, "/streams")
	require.Equal(t, http.StatusOK, w.Code)

	var got []StreamResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 2)

	assert.Equal(t, "gps", got[0].Name)
	assert.Equal(t, doubleType, got[0].TypeID)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 2.0/3600, got[0].Rate, 1e-9)
	assert.JSONEq(t, "2", string(got[0].Value))
	assert.Equal(t, "status", got[1].Name)
}

func TestBufferEndpoint(t *testing.T) {
	s := newSession(t)

	w := get(t, NewHTTPServer(s, nil).Handler(), http.MethodGet, "/buffer")
	require.Equal(t, http.StatusOK, w.Code)

	var sum visualization.Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sum))
	assert.True(t, sum.Loaded)
	assert.False(t, sum.Streaming)
	require.Len(t, sum.Types, 1)
	assert.Equal(t, doubleType, sum.Types[0].TypeID)
	assert.Equal(t, 6, sum.Types[0].Streams[0].Events)
}

func TestPanelEndpoints(t *testing.T) {
	s := newSession(t)
	require.True(t, s.SetThrottle(20*time.Millisecond))

	p := s.AddPanel()
	require.NoError(t, s.UpdatePanel(p.ID, func(p *panel.Panel) error {
		p.SetEventType(doubleType)
		return p.SetTagFilter("^gps/")
	}))
	h := NewHTTPServer(s, nil).Handler()

	w := get(t, h, http.MethodGet, "/panels")
	require.Equal(t, http.StatusOK, w.Code)
	var layouts []panel.Layout
	require.NoError(t, json.NewDecoder(w.Body).Decode(&layouts))
	require.Len(t, layouts, 1)
	assert.Equal(t, p.ID, layouts[0].ID)
	assert.Equal(t, "^gps/", layouts[0].TagFilter)

	w = get(t, h, http.MethodGet, "/panels/"+p.ID+"/streams")
	require.Equal(t, http.StatusOK, w.Code)
	var resp PanelStreamsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, doubleType, resp.Panel.TypeID)

	samples := resp.Streams["gps/latitude"]
	require.Len(t, samples, 3)
	for i, want := range []int64{0, 50, 120} {
		assert.Equal(t, want, samples[i].Stamp)
	}
	assert.JSONEq(t, "50", string(samples[1].Value))

	w = get(t, h, http.MethodGet, "/panels/missing/streams")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "panel not found")
}
