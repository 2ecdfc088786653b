/*
Package events provides the in-process bus that fans transport envelopes
out to console components.

A transport calls Emit for every envelope it receives. Subscribers register
either for one TypeID or for the Wildcard:

	sub := emitter.On(types.Wildcard, streamingBuffer.Add)
	defer sub.Unsubscribe()

# Dispatch

	Transport ──Emit──▶ Emitter
	                      │ 1. wildcard handlers (registration order)
	                      │ 2. handlers of env.Data.TypeURL, if any payload
	                      ▼
	          visualization store, bus store, recorder, ...

Dispatch is synchronous on the caller's goroutine, with no batching and no
delivery guarantees beyond the call returning. The subscriber list is
snapshotted before handlers run, so a handler may unsubscribe itself or
others without disturbing the current dispatch. Unsubscribing one handle
never affects other handles registered for the same filter.

Subscribe adapts a filter to a buffered channel for consumers that live on
their own goroutine; when the buffer is full the envelope is dropped and
counted rather than blocking the transport.

# Outbound Events

Attach binds a Sender (a transport). Send packs a protobuf message into an
envelope stamped with the current time and hands it over, which is how the
console starts and stops onboard programs.
*/
package events
