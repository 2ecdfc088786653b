/*
Package transport connects the console's bus to the vehicle.

Both transports carry one binary-encoded Envelope per message. Received
messages are emitted on an events.Emitter; malformed ones are logged and
dropped. Both implement events.Sender, so attaching one to the emitter
enables outbound events (starting a calibration program, for instance).

  - WebSocket dials the vehicle with gorilla/websocket. Run is the read
    loop; writes are serialized with a mutex since a gorilla connection
    supports one concurrent writer.
  - DataChannel adapts an already negotiated pion WebRTC data channel.
    SDP exchange and ICE are outside this package; an embedder that owns
    the PeerConnection wires the bus channel before answering the offer:

	transport.AcceptDataChannels(pc, "events", emitter, func(d *transport.DataChannel) {
		emitter.Attach(d)
	})

There is no reconnect: a stalled link yields no events until the caller
dials again. Connection state is reported to the "transport" health
component.
*/
package transport
