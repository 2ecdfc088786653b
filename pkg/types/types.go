package types

import (
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// TypeID identifies the codec of a payload. It is the protobuf type URL,
// e.g. "type.googleapis.com/google.protobuf.Struct".
type TypeID string

const (
	// Wildcard subscribes to every envelope regardless of payload type
	Wildcard TypeID = "*"

	// TypeURLPrefix is prepended to a message full name to form its TypeID
	TypeURLPrefix = "type.googleapis.com/"
)

// TypeIDOf returns the TypeID of a message
func TypeIDOf(m proto.Message) TypeID {
	return TypeIDForName(m.ProtoReflect().Descriptor().FullName())
}

// TypeIDForName returns the TypeID of a message full name
func TypeIDForName(name protoreflect.FullName) TypeID {
	return TypeID(TypeURLPrefix + string(name))
}

// MessageName strips the type URL prefix, returning the message full name
func (id TypeID) MessageName() protoreflect.FullName {
	s := string(id)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return protoreflect.FullName(s[i+1:])
		}
	}
	return protoreflect.FullName(s)
}

// Payload is a serialized typed value, wire compatible with google.protobuf.Any
type Payload struct {
	TypeURL TypeID
	Value   []byte
}

// Envelope is a named, timestamped event as delivered by a transport.
// A zero Stamp means the stamp is missing; a nil Data means the envelope
// carries no payload (heartbeat).
type Envelope struct {
	Name  string
	Stamp time.Time
	Data  *Payload
}

// HasPayload reports whether the envelope carries typed data
func (e *Envelope) HasPayload() bool {
	return e != nil && e.Data != nil
}

// TypeID returns the payload type, or "" when there is no payload
func (e *Envelope) TypeID() TypeID {
	if !e.HasPayload() {
		return ""
	}
	return e.Data.TypeURL
}

// TimestampedEvent is one decoded sample of a stream
type TimestampedEvent struct {
	// Stamp is milliseconds since the Unix epoch
	Stamp int64
	Value proto.Message
}

// Millis converts a time to the millisecond stamps used by buffers
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts a millisecond stamp back into a time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
