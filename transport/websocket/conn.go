package websocket

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 32

var (
	errConnClosed     = errors.New("connection is closed")
	errSendBufferFull = errors.New("send buffer is full")
)

// connection wraps one websocket client. All writes go through the send
// channel and a single write pump, so the room loop never blocks on a slow
// peer and the gorilla one-concurrent-writer rule holds.
type connection struct {
	id     string
	logger *slog.Logger

	ws   *websocket.Conn
	send chan outboundMessage
	done chan struct{}

	closeOnce sync.Once
}

func newConnection(id string, logger *slog.Logger, ws *websocket.Conn) *connection {
	return &connection{
		id:     id,
		logger: logger.With("connID", id),
		ws:     ws,
		send:   make(chan outboundMessage, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (that *connection) ID() string {
	return that.id
}

// Send queues a message for delivery. It never blocks: a closed connection
// or a full buffer yields an error instead.
func (that *connection) Send(action string, payload any) error {
	select {
	case <-that.done:
		return errConnClosed
	default:
	}

	select {
	case that.send <- outboundMessage{Action: action, Payload: payload}:
		return nil
	default:
		return errSendBufferFull
	}
}

// writePump drains the send channel onto the wire until the connection is
// closed or a write fails.
func (that *connection) writePump() {
	defer func() {
		if err := that.ws.Close(); err != nil {
			that.logger.Debug("failed to close websocket", "error", err)
		}
	}()

	for {
		select {
		case <-that.done:
			return
		case msg := <-that.send:
			if err := that.ws.WriteJSON(msg); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				return
			}
		}
	}
}

func (that *connection) close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}
