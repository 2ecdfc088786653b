package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// StreamResponse is one row of /streams
type StreamResponse struct {
	Name   string          `json:"name"`
	TypeID types.TypeID    `json:"typeId"`
	Stamp  time.Time       `json:"stamp"`
	Count  int             `json:"count"`
	Rate   float64         `json:"rate"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// Sample is one event of a panel stream
type Sample struct {
	Stamp int64           `json:"stamp"`
	Value json.RawMessage `json:"value"`
}

// PanelStreamsResponse is the body of /panels/{id}/streams
type PanelStreamsResponse struct {
	Panel   *panel.Layout       `json:"panel"`
	Streams map[string][]Sample `json:"streams"`
}

func (hs *HTTPServer) streamsHandler(w http.ResponseWriter, r *http.Request) {
	snap := hs.bus.Snapshot()

	out := make([]StreamResponse, 0, len(snap))
	for _, st := range snap {
		out = append(out, StreamResponse{
			Name:   st.Name,
			TypeID: st.TypeID,
			Stamp:  st.Stamp,
			Count:  st.Count,
			Rate:   hs.bus.Rate(st),
			Value:  hs.marshalValue(st.Value),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	writeJSON(w, http.StatusOK, out)
}

func (hs *HTTPServer) bufferHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hs.session.Summary())
}

func (hs *HTTPServer) panelsHandler(w http.ResponseWriter, r *http.Request) {
	panels := hs.session.Panels()
	out := make([]*panel.Layout, 0, len(panels))
	for _, p := range panels {
		out = append(out, p.Layout())
	}
	writeJSON(w, http.StatusOK, out)
}

func (hs *HTTPServer) panelStreamsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, ok := hs.session.Panel(id)
	if !ok {
		writeError(w, http.StatusNotFound, "panel not found: "+id)
		return
	}

	streams, err := hs.session.PanelStreams(id)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, visualization.ErrPanelNotFound) {
			code = http.StatusNotFound
		}
		writeError(w, code, err.Error())
		return
	}

	resp := PanelStreamsResponse{
		Panel:   p.Layout(),
		Streams: make(map[string][]Sample, len(streams)),
	}
	for name, seq := range streams {
		samples := make([]Sample, 0, len(seq))
		for _, ev := range seq {
			samples = append(samples, Sample{Stamp: ev.Stamp, Value: hs.marshalValue(ev.Value)})
		}
		resp.Streams[name] = samples
	}

	writeJSON(w, http.StatusOK, resp)
}

// marshalValue renders a payload with protojson; nil or unencodable
// payloads become JSON null
func (hs *HTTPServer) marshalValue(m proto.Message) json.RawMessage {
	if m == nil {
		return nil
	}
	data, err := protojson.Marshal(m)
	if err != nil {
		hs.logger.Warn().Err(err).Msg("failed to encode payload as JSON")
		return json.RawMessage("null")
	}
	return data
}
