package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const eventBufferSize = 64

// Conn is the transport-side handle for one connected participant. Send must
// not block on a slow peer; the transport buffers writes per connection.
type Conn interface {
	ID() string
	Send(action string, payload any) error
}

type scoreRecorder interface {
	RecordOutcome(ctx context.Context, outcome string) error
}

// Room is the session engine for the single game room. All mutable state -
// the board, the turn, the seats and the connected set - is owned by the
// loop in Run; transports talk to it only through the event channel.
type Room struct {
	logger *slog.Logger

	events chan event
	conns  map[string]Conn
	seats  *seatRegistry
	game   *entity.Game
	scores scoreRecorder

	resetDelay time.Duration

	// epoch counts resets; a scheduled reset whose epoch no longer matches
	// is stale and gets dropped.
	epoch uint64
}

func New(logger *slog.Logger, scores scoreRecorder, resetDelay time.Duration) *Room {
	return &Room{
		logger:     logger.With("component", "room"),
		events:     make(chan event, eventBufferSize),
		conns:      make(map[string]Conn),
		seats:      newSeatRegistry(),
		game:       entity.NewGame(),
		scores:     scores,
		resetDelay: resetDelay,
	}
}

// Run processes events one at a time until ctx is canceled.
func (that *Room) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-that.events:
			that.handle(ctx, ev)
		}
	}
}

// Connected hands a freshly opened connection to the room.
func (that *Room) Connected(conn Conn) {
	that.events <- connectedEvent{conn: conn}
}

// Disconnected reports that the connection with the given handle is gone.
func (that *Room) Disconnected(connID string) {
	that.events <- disconnectedEvent{connID: connID}
}

// Move submits a move attempt for the cell index.
func (that *Room) Move(connID string, cell int) {
	that.events <- moveEvent{connID: connID, cell: cell}
}

// Chat submits a chat message to be relayed to everyone in the room.
func (that *Room) Chat(connID, text string) {
	that.events <- chatEvent{connID: connID, text: text}
}

func (that *Room) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case connectedEvent:
		that.handleConnected(ev.conn)
	case disconnectedEvent:
		that.handleDisconnected(ev.connID)
	case moveEvent:
		that.handleMove(ctx, ev)
	case chatEvent:
		that.handleChat(ev)
	case resetTimerEvent:
		that.handleResetTimer(ev.epoch)
	}
}

func (that *Room) handleConnected(conn Conn) {
	log := that.logger.With("connID", conn.ID())

	that.conns[conn.ID()] = conn

	seat, err := that.seats.Assign(conn.ID())
	if errors.Is(err, apperror.ErrRoomFull) {
		// The connection stays open as a chat observer but gets no seat.
		that.send(conn, ActionFull, nil)
		log.Info("room is full, connection seated as observer")
		return
	}

	that.send(conn, ActionSeat, SeatPayload{Mark: seat.Mark})
	log.Info("seat assigned", "mark", seat.Mark)

	if !that.seats.Full() {
		that.send(conn, ActionWaiting, nil)
		return
	}

	that.game.Start()
	that.broadcastState()
}

func (that *Room) handleDisconnected(connID string) {
	log := that.logger.With("connID", connID)

	if _, ok := that.conns[connID]; !ok {
		return
	}

	delete(that.conns, connID)

	released := that.seats.Release(connID)
	log.Info("connection closed", "heldSeat", released)

	// With two seats and no resume, any departure invalidates the current
	// game, so the board is cleared no matter who left.
	that.resetGame()

	if len(that.conns) == 0 {
		return
	}

	that.broadcast(ActionLeave, nil)
	that.broadcastState()
}

func (that *Room) handleMove(ctx context.Context, ev moveEvent) {
	log := that.logger.With("connID", ev.connID, "cell", ev.cell)

	seat, ok := that.seats.Find(ev.connID)
	if !ok {
		// Unseated connections may not move; their attempts are ignored.
		log.Debug("move attempt from unseated connection ignored")
		return
	}

	if err := that.game.MakeTurn(seat.Mark, ev.cell); err != nil {
		log.Debug("illegal move rejected", "error", err)

		if conn, ok := that.conns[ev.connID]; ok {
			that.send(conn, ActionError, ErrorPayload{Reason: err.Error()})
		}
		return
	}

	that.broadcastState()

	if !that.game.IsFinished() {
		return
	}

	that.broadcast(ActionOver, OverPayload{Winner: that.game.Winner})
	log.Info("game concluded", "winner", that.game.Winner)

	that.recordOutcome(ctx, that.game.Winner)
	that.scheduleReset()
}

func (that *Room) handleChat(ev chatEvent) {
	that.broadcast(ActionChat, ChatPayload{Sender: ev.connID, Message: ev.text})
}

func (that *Room) handleResetTimer(epoch uint64) {
	if epoch != that.epoch {
		that.logger.Debug("stale reset timer dropped", "epoch", epoch)
		return
	}

	that.resetGame()
	that.broadcastState()
}

// scheduleReset arms the post-game delay. The timer posts back into the
// event loop instead of touching state from its own goroutine.
func (that *Room) scheduleReset() {
	epoch := that.epoch

	time.AfterFunc(that.resetDelay, func() {
		that.events <- resetTimerEvent{epoch: epoch}
	})
}

// resetGame clears the board and bumps the epoch so any pending reset timer
// becomes stale. The game restarts immediately if both seats are still
// occupied, otherwise it waits for an opponent.
func (that *Room) resetGame() {
	that.epoch++
	that.game.Reset()

	if that.seats.Full() {
		that.game.Start()
	}
}

func (that *Room) recordOutcome(ctx context.Context, outcome string) {
	if that.scores == nil {
		return
	}

	// The scoreboard is advisory; a storage failure must never stall play.
	if err := that.scores.RecordOutcome(ctx, outcome); err != nil {
		that.logger.Error("failed to record outcome", "outcome", outcome, "error", err)
	}
}

func (that *Room) broadcastState() {
	that.broadcast(ActionState, StatePayload{
		Board: that.game.Board,
		Turn:  that.game.Turn,
	})
}

func (that *Room) broadcast(action string, payload any) {
	for _, conn := range that.conns {
		that.send(conn, action, payload)
	}
}

func (that *Room) send(conn Conn, action string, payload any) {
	if err := conn.Send(action, payload); err != nil {
		that.logger.Warn("failed to send message", "connID", conn.ID(), "action", action, "error", err)
	}
}
