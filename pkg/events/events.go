package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
)

// ErrNoSender is returned by Send when no transport is attached
var ErrNoSender = errors.New("no transport attached")

// Handler receives envelopes synchronously on the emitting goroutine
type Handler func(env *types.Envelope)

// Sender delivers outbound envelopes to the vehicle
type Sender interface {
	Send(ctx context.Context, env *types.Envelope) error
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Subscription is the handle returned by On and Subscribe
type Subscription struct {
	emitter *Emitter
	filter  types.TypeID
	id      uint64
	once    sync.Once
}

// Filter returns the TypeID (or Wildcard) this subscription listens to
func (s *Subscription) Filter() types.TypeID {
	return s.filter
}

// Unsubscribe removes exactly this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.emitter.remove(s.filter, s.id)
	})
}

// Emitter fans envelopes out to subscribers filtered by payload type
type Emitter struct {
	mu          sync.RWMutex
	subscribers map[types.TypeID][]subscriber
	nextID      uint64
	sender      Sender
	logger      zerolog.Logger
}

// NewEmitter creates a new bus event emitter
func NewEmitter() *Emitter {
	return &Emitter{
		subscribers: make(map[types.TypeID][]subscriber),
		logger:      log.WithComponent("events"),
	}
}

// On registers a handler for a TypeID, or for every envelope with Wildcard
func (e *Emitter) On(filter types.TypeID, h Handler) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.subscribers[filter] = append(e.subscribers[filter], subscriber{id: id, handler: h})

	return &Subscription{emitter: e, filter: filter, id: id}
}

// Off removes a subscription
func (e *Emitter) Off(sub *Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (e *Emitter) remove(filter types.TypeID, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[filter]
	for i, s := range subs {
		if s.id == id {
			// Copy so that in-flight dispatch snapshots are not disturbed
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(e.subscribers, filter)
			} else {
				e.subscribers[filter] = next
			}
			return
		}
	}
}

// Emit dispatches an envelope to wildcard subscribers, then, if it carries
// a payload, to the subscribers of its TypeID. Handlers run synchronously
// in registration order.
func (e *Emitter) Emit(env *types.Envelope) {
	if env == nil {
		return
	}

	e.mu.RLock()
	wildcard := e.subscribers[types.Wildcard]
	var typed []subscriber
	if env.HasPayload() && env.Data.TypeURL != types.Wildcard {
		typed = e.subscribers[env.Data.TypeURL]
	}
	e.mu.RUnlock()

	metrics.EnvelopesEmitted.WithLabelValues(string(env.TypeID())).Inc()

	for _, s := range wildcard {
		s.handler(env)
	}
	for _, s := range typed {
		s.handler(env)
	}
}

// Subscribe creates a channel subscription. Envelopes are dropped, not
// queued, when the channel buffer is full. The channel is never closed;
// callers stop reading after Unsubscribe.
func (e *Emitter) Subscribe(filter types.TypeID, bufferSize int) (<-chan *types.Envelope, *Subscription) {
	if bufferSize <= 0 {
		bufferSize = 50
	}
	ch := make(chan *types.Envelope, bufferSize)
	sub := e.On(filter, func(env *types.Envelope) {
		select {
		case ch <- env:
		default:
			// Subscriber buffer full, skip
			metrics.EnvelopesDropped.WithLabelValues(string(filter)).Inc()
		}
	})
	return ch, sub
}

// SubscriberCount returns the number of active subscriptions
func (e *Emitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, subs := range e.subscribers {
		n += len(subs)
	}
	return n
}

// Attach sets the transport used by Send. A nil sender detaches.
func (e *Emitter) Attach(s Sender) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sender = s
}

// Send packs a message into an envelope stamped now and hands it to the
// attached transport.
func (e *Emitter) Send(ctx context.Context, name string, m proto.Message) error {
	env, err := types.NewEnvelope(name, time.Now(), m)
	if err != nil {
		return err
	}
	return e.SendEnvelope(ctx, env)
}

// SendEnvelope hands a prepared envelope to the attached transport
func (e *Emitter) SendEnvelope(ctx context.Context, env *types.Envelope) error {
	e.mu.RLock()
	sender := e.sender
	e.mu.RUnlock()

	if sender == nil {
		return ErrNoSender
	}
	if err := sender.Send(ctx, env); err != nil {
		e.logger.Warn().Err(err).Str("stream", env.Name).Msg("Failed to send event")
		return fmt.Errorf("failed to send %s: %w", env.Name, err)
	}
	return nil
}
