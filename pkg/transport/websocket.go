package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// HandshakeTimeout bounds the WebSocket opening handshake
const HandshakeTimeout = 45 * time.Second

const closeGracePeriod = time.Second

// WebSocket carries envelopes as binary WebSocket messages, one envelope
// per message
type WebSocket struct {
	conn    *websocket.Conn
	emitter *events.Emitter
	writeMu sync.Mutex
	once    sync.Once
	logger  zerolog.Logger
}

// DialWebSocket connects to the vehicle's event endpoint
func DialWebSocket(ctx context.Context, url string, header http.Header, emitter *events.Emitter) (*WebSocket, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		metrics.UpdateComponent("transport", false, err.Error())
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	w := &WebSocket{
		conn:    conn,
		emitter: emitter,
		logger:  log.WithComponent("transport").With().Str("url", url).Logger(),
	}
	metrics.UpdateComponent("transport", true, "connected")
	w.logger.Info().Msg("Connected")
	return w, nil
}

// Run reads messages and emits them until the connection closes or ctx is
// done. A normal closure or a cancelled context returns nil.
func (w *WebSocket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { w.Close() })
	defer stop()

	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			metrics.UpdateComponent("transport", false, "disconnected")
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.logger.Info().Msg("Disconnected")
				return nil
			}
			w.logger.Error().Err(err).Msg("Read loop stopped")
			return fmt.Errorf("websocket read failed: %w", err)
		}
		if kind != websocket.BinaryMessage {
			w.logger.Debug().Int("type", kind).Msg("Ignoring non-binary message")
			continue
		}
		dispatch(w.emitter, data, w.logger)
	}
}

// Send writes one envelope. Writes are serialized; the context deadline,
// if any, bounds the write.
func (w *WebSocket) Send(ctx context.Context, env *types.Envelope) error {
	data, err := marshal(ctx, env)
	if err != nil {
		return err
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close frame and closes the connection. Safe to call more than once.
func (w *WebSocket) Close() error {
	var err error
	w.once.Do(func() {
		w.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		w.writeMu.Unlock()

		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			w.logger.Debug().Err(werr).Msg("Close frame not sent")
		}
		err = w.conn.Close()
	})
	return err
}
