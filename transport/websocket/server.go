package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-relay/internal/room"
)

// gameRoom is the slice of the room engine the transport needs: it turns
// wire messages into room events and never touches game state itself.
type gameRoom interface {
	Connected(conn room.Conn)
	Disconnected(connID string)
	Move(connID string, cell int)
	Chat(connID, text string)
}

type Server struct {
	logger *slog.Logger
	room   gameRoom

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, gameRoom gameRoom, allowedOrigins []string) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),
		room:   gameRoom,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleWS)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleWS upgrades the request and pumps messages between the client and
// the room until the client goes away.
func (that *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(uuid.NewString(), that.logger, ws)
	log := that.logger.With("connID", conn.ID())
	log.Info("WebSocket connection established")

	go conn.writePump()

	that.room.Connected(conn)

	defer func() {
		that.room.Disconnected(conn.ID())
		conn.close()
	}()

	for {
		var msg Message
		if err = ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("connection closed unexpectedly", "error", err)
			}
			return
		}

		that.dispatch(conn, &msg)
	}
}

// dispatch translates one inbound envelope into a room event. Malformed
// payloads are a transport concern and answered with an error message.
func (that *Server) dispatch(conn *connection, msg *Message) {
	log := that.logger.With("connID", conn.ID(), "action", msg.Action)

	switch msg.Action {
	case actionGameMove:
		var payload MovePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Cell == nil {
			log.Warn("malformed move payload")
			that.sendError(conn, "move requires a cell index")
			return
		}

		that.room.Move(conn.ID(), *payload.Cell)

	case actionChat:
		var payload ChatPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			log.Warn("malformed chat payload")
			that.sendError(conn, "chat requires a message")
			return
		}

		that.room.Chat(conn.ID(), payload.Message)

	default:
		log.Warn("unknown action")
		that.sendError(conn, fmt.Sprintf("unknown action %q", msg.Action))
	}
}

func (that *Server) sendError(conn *connection, reason string) {
	if err := conn.Send(room.ActionError, room.ErrorPayload{Reason: reason}); err != nil {
		that.logger.Debug("failed to send error message", "connID", conn.ID(), "error", err)
	}
}

// originChecker allows requests with no Origin header (non-browser clients)
// and browser requests from the configured origins.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		return false
	}
}
