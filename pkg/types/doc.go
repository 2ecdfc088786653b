/*
Package types defines the data model shared by every console package.

An Envelope is what a transport delivers: a hierarchical stream name
("tracking_camera/front/apriltags"), a timestamp, and a Payload holding a
serialized protobuf message tagged with its TypeID (the protobuf type
URL). Envelopes are transient; once decoded, the value lives on as a
TimestampedEvent inside exactly one buffer.

# Wire Format

The binary form of an Envelope is the protobuf message

	message Event {
	  google.protobuf.Timestamp stamp = 1;
	  string name = 2;
	  google.protobuf.Any data = 3;
	}

encoded with protowire, so recorded logs and live transports share one
codec. MarshalBinary and UnmarshalBinary round-trip every field; unknown
fields are skipped on decode.

# Timestamps

Buffers index samples by milliseconds since the Unix epoch (int64). A zero
time.Time in Envelope.Stamp means the transport sent no stamp; the epoch
itself is a valid stamp.
*/
package types
