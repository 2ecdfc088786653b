package transport

import (
	"context"

	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DataChannel carries envelopes over an already negotiated WebRTC data
// channel. Signaling is the caller's business.
type DataChannel struct {
	dc      *webrtc.DataChannel
	emitter *events.Emitter
	logger  zerolog.Logger
}

// NewDataChannel emits every binary message received on dc
func NewDataChannel(dc *webrtc.DataChannel, emitter *events.Emitter) *DataChannel {
	d := &DataChannel{
		dc:      dc,
		emitter: emitter,
		logger:  log.WithComponent("transport").With().Str("label", dc.Label()).Logger(),
	}
	dc.OnMessage(d.handleMessage)
	dc.OnOpen(func() {
		d.logger.Info().Msg("Data channel opened")
	})
	dc.OnClose(func() {
		d.logger.Info().Msg("Data channel closed")
	})
	return d
}

func (d *DataChannel) handleMessage(msg webrtc.DataChannelMessage) {
	if msg.IsString {
		d.logger.Debug().Msg("Ignoring text message")
		return
	}
	dispatch(d.emitter, msg.Data, d.logger)
}

// Send writes one envelope to the channel
func (d *DataChannel) Send(ctx context.Context, env *types.Envelope) error {
	data, err := marshal(ctx, env)
	if err != nil {
		return err
	}
	return d.dc.Send(data)
}

// Close closes the data channel
func (d *DataChannel) Close() error {
	return d.dc.Close()
}

// AcceptDataChannels adapts every data channel labelled label that the
// remote peer opens on pc, and hands it to onChannel (typically to Attach it
// to the emitter). Channels with other labels are left alone.
func AcceptDataChannels(pc *webrtc.PeerConnection, label string, emitter *events.Emitter, onChannel func(*DataChannel)) {
	pc.OnDataChannel(acceptor(label, emitter, onChannel))
}

func acceptor(label string, emitter *events.Emitter, onChannel func(*DataChannel)) func(*webrtc.DataChannel) {
	return func(dc *webrtc.DataChannel) {
		if dc.Label() != label {
			logger := log.WithComponent("transport")
			logger.Debug().Str("label", dc.Label()).Msg("Ignoring data channel")
			return
		}
		d := NewDataChannel(dc, emitter)
		if onChannel != nil {
			onChannel(d)
		}
	}
}
