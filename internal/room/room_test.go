package room

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

type sentMessage struct {
	action  string
	payload any
}

// fakeConn records everything the room sends to it.
type fakeConn struct {
	id string

	mu   sync.Mutex
	msgs []sentMessage
}

func (that *fakeConn) ID() string {
	return that.id
}

func (that *fakeConn) Send(action string, payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.msgs = append(that.msgs, sentMessage{action: action, payload: payload})
	return nil
}

func (that *fakeConn) actions() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	actions := make([]string, 0, len(that.msgs))
	for _, msg := range that.msgs {
		actions = append(actions, msg.action)
	}
	return actions
}

func (that *fakeConn) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.msgs)
}

func (that *fakeConn) last(t *testing.T) sentMessage {
	t.Helper()

	that.mu.Lock()
	defer that.mu.Unlock()

	require.NotEmpty(t, that.msgs)
	return that.msgs[len(that.msgs)-1]
}

// lastState returns the most recent game:state payload sent to the conn.
func (that *fakeConn) lastState(t *testing.T) StatePayload {
	t.Helper()

	state, ok := that.tryLastState()
	require.True(t, ok, "no %s message recorded for %s", ActionState, that.id)

	return state
}

func (that *fakeConn) tryLastState() (StatePayload, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for i := len(that.msgs) - 1; i >= 0; i-- {
		if that.msgs[i].action == ActionState {
			return that.msgs[i].payload.(StatePayload), true
		}
	}

	return StatePayload{}, false
}

type scoreStub struct {
	outcomes []string
}

func (that *scoreStub) RecordOutcome(_ context.Context, outcome string) error {
	that.outcomes = append(that.outcomes, outcome)
	return nil
}

func newTestRoom(scores scoreRecorder) *Room {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// an hour keeps armed timers from firing inside synchronous tests
	return New(logger, scores, time.Hour)
}

// seatTwo connects two fake players and truncates their recorded messages.
func seatTwo(t *testing.T, room *Room) (*fakeConn, *fakeConn) {
	t.Helper()

	first := &fakeConn{id: "conn-x"}
	second := &fakeConn{id: "conn-o"}

	room.handleConnected(first)
	room.handleConnected(second)
	require.True(t, room.game.IsOngoing())

	first.msgs = nil
	second.msgs = nil

	return first, second
}

func playTopRowWin(t *testing.T, room *Room, first, second *fakeConn) {
	t.Helper()

	ctx := context.Background()
	room.handleMove(ctx, moveEvent{connID: first.id, cell: 0})
	room.handleMove(ctx, moveEvent{connID: second.id, cell: 3})
	room.handleMove(ctx, moveEvent{connID: first.id, cell: 1})
	room.handleMove(ctx, moveEvent{connID: second.id, cell: 4})
	room.handleMove(ctx, moveEvent{connID: first.id, cell: 2})
	require.True(t, room.game.IsFinished())
}

func TestRoom_Seating(t *testing.T) {
	t.Run("First connection gets X and waits for an opponent", func(t *testing.T) {
		// Given: an empty room
		room := newTestRoom(nil)
		conn := &fakeConn{id: "conn-1"}

		// When: the connection arrives
		room.handleConnected(conn)

		// Then: it is seated as X and told to wait
		require.Equal(t, []string{ActionSeat, ActionWaiting}, conn.actions())
		assert.Equal(t, entity.PlayerX, conn.msgs[0].payload.(SeatPayload).Mark)
	})

	t.Run("Second connection gets O and the initial state is broadcast", func(t *testing.T) {
		// Given: a room with one seated player
		room := newTestRoom(nil)
		first := &fakeConn{id: "conn-1"}
		room.handleConnected(first)

		// When: the second connection arrives
		second := &fakeConn{id: "conn-2"}
		room.handleConnected(second)

		// Then: it is seated as O and both receive the empty board with X to move
		require.Equal(t, []string{ActionSeat, ActionState}, second.actions())
		assert.Equal(t, entity.PlayerO, second.msgs[0].payload.(SeatPayload).Mark)

		state := first.lastState(t)
		assert.Equal(t, [9]string{}, state.Board)
		assert.Equal(t, entity.PlayerX, state.Turn)
	})

	t.Run("Third connection is told the room is full", func(t *testing.T) {
		// Given: a room with both seats taken
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)

		// When: a third connection arrives
		third := &fakeConn{id: "conn-3"}
		room.handleConnected(third)

		// Then: it only gets the room-full notice and the players hear nothing
		assert.Equal(t, []string{ActionFull}, third.actions())
		assert.Zero(t, first.count())
		assert.Zero(t, second.count())
	})
}

func TestRoom_TopRowWinAndDelayedReset(t *testing.T) {
	// Given: a room with two seated players
	scores := &scoreStub{}
	room := newTestRoom(scores)
	first, second := seatTwo(t, room)

	// When: the players alternate through 0,3,1,4,2
	playTopRowWin(t, room, first, second)

	// Then: both saw the winning state, then the conclusion with X as winner
	state := first.lastState(t)
	assert.Equal(t, entity.PlayerX, state.Board[0])
	assert.Equal(t, entity.PlayerX, state.Board[1])
	assert.Equal(t, entity.PlayerX, state.Board[2])

	over := first.last(t)
	require.Equal(t, ActionOver, over.action)
	assert.Equal(t, entity.PlayerX, over.payload.(OverPayload).Winner)
	assert.Equal(t, ActionOver, second.last(t).action)

	// And: the outcome was recorded
	assert.Equal(t, []string{entity.PlayerX}, scores.outcomes)

	// When: the scheduled reset fires for the current epoch
	room.handleResetTimer(room.epoch)

	// Then: everyone gets a fresh board with X to move and play resumes
	state = first.lastState(t)
	assert.Equal(t, [9]string{}, state.Board)
	assert.Equal(t, entity.PlayerX, state.Turn)
	assert.True(t, room.game.IsOngoing())
}

func TestRoom_DrawIsConcludedAndRecorded(t *testing.T) {
	// Given: a room with two seated players
	scores := &scoreStub{}
	room := newTestRoom(scores)
	first, second := seatTwo(t, room)

	// When: all nine cells fill without a three-in-a-row
	ctx := context.Background()
	moves := []struct {
		conn *fakeConn
		cell int
	}{
		{first, 0}, {second, 1}, {first, 2},
		{second, 4}, {first, 3}, {second, 5},
		{first, 7}, {second, 6}, {first, 8},
	}
	for _, move := range moves {
		room.handleMove(ctx, moveEvent{connID: move.conn.id, cell: move.cell})
	}

	// Then: the game concludes with a tie and the draw is recorded
	over := second.last(t)
	require.Equal(t, ActionOver, over.action)
	assert.Equal(t, entity.PlayerTie, over.payload.(OverPayload).Winner)
	assert.Equal(t, []string{entity.PlayerTie}, scores.outcomes)
}

func TestRoom_IllegalMoves(t *testing.T) {
	t.Run("Out-of-turn move gets an error and nothing is broadcast", func(t *testing.T) {
		// Given: a room where X is to move
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)

		// When: O moves first
		room.handleMove(context.Background(), moveEvent{connID: second.id, cell: 0})

		// Then: only O hears about it and the board is untouched
		require.Equal(t, []string{ActionError}, second.actions())
		assert.Zero(t, first.count())
		assert.Equal(t, [9]string{}, room.game.Board)
		assert.Equal(t, entity.PlayerX, room.game.Turn)
	})

	t.Run("Move to an occupied cell gets an error", func(t *testing.T) {
		// Given: a room where X already took cell 0
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)
		room.handleMove(context.Background(), moveEvent{connID: first.id, cell: 0})

		// When: O targets the same cell
		room.handleMove(context.Background(), moveEvent{connID: second.id, cell: 0})

		// Then: O gets an error and the cell keeps its mark
		assert.Equal(t, ActionError, second.last(t).action)
		assert.Equal(t, entity.PlayerX, room.game.Board[0])
		assert.Equal(t, entity.PlayerO, room.game.Turn)
	})

	t.Run("Move before the opponent arrives gets an error", func(t *testing.T) {
		// Given: a room with a lone seated player
		room := newTestRoom(nil)
		conn := &fakeConn{id: "conn-1"}
		room.handleConnected(conn)
		conn.msgs = nil

		// When: the lone player tries to move
		room.handleMove(context.Background(), moveEvent{connID: conn.id, cell: 0})

		// Then: the move is rejected and the board stays empty
		assert.Equal(t, []string{ActionError}, conn.actions())
		assert.Equal(t, [9]string{}, room.game.Board)
	})

	t.Run("Move from an unseated connection is silently ignored", func(t *testing.T) {
		// Given: a full room with an observer
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)
		observer := &fakeConn{id: "conn-3"}
		room.handleConnected(observer)
		observer.msgs = nil

		// When: the observer tries to move
		room.handleMove(context.Background(), moveEvent{connID: observer.id, cell: 0})

		// Then: nobody hears anything and the board is untouched
		assert.Zero(t, observer.count())
		assert.Zero(t, first.count())
		assert.Zero(t, second.count())
		assert.Equal(t, [9]string{}, room.game.Board)
	})
}

func TestRoom_Disconnect(t *testing.T) {
	t.Run("Player disconnect resets the game and notifies the rest", func(t *testing.T) {
		// Given: an ongoing game with one move made
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)
		room.handleMove(context.Background(), moveEvent{connID: first.id, cell: 0})
		first.msgs = nil

		// When: O disconnects
		room.handleDisconnected(second.id)

		// Then: X hears the departure followed by a fresh waiting board
		require.Equal(t, []string{ActionLeave, ActionState}, first.actions())

		state := first.lastState(t)
		assert.Equal(t, [9]string{}, state.Board)
		assert.Equal(t, entity.PlayerX, state.Turn)
		assert.True(t, room.game.IsWaiting())

		_, found := room.seats.Find(second.id)
		assert.False(t, found)
	})

	t.Run("Observer disconnect also resets the game", func(t *testing.T) {
		// Given: an ongoing game with an observer and one move made
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)
		observer := &fakeConn{id: "conn-3"}
		room.handleConnected(observer)
		room.handleMove(context.Background(), moveEvent{connID: first.id, cell: 0})
		first.msgs = nil
		second.msgs = nil

		// When: the observer disconnects
		room.handleDisconnected(observer.id)

		// Then: the board clears but play restarts since both seats are held
		require.Equal(t, []string{ActionLeave, ActionState}, first.actions())
		require.Equal(t, []string{ActionLeave, ActionState}, second.actions())
		assert.Equal(t, [9]string{}, room.game.Board)
		assert.True(t, room.game.IsOngoing())
	})

	t.Run("A new arrival after a disconnect fills the freed seat", func(t *testing.T) {
		// Given: a room whose X player left
		room := newTestRoom(nil)
		first, second := seatTwo(t, room)
		room.handleDisconnected(first.id)
		second.msgs = nil

		// When: a new connection arrives
		replacement := &fakeConn{id: "conn-3"}
		room.handleConnected(replacement)

		// Then: it takes the X seat and the game restarts from empty
		require.Equal(t, []string{ActionSeat, ActionState}, replacement.actions())
		assert.Equal(t, entity.PlayerX, replacement.msgs[0].payload.(SeatPayload).Mark)
		assert.True(t, room.game.IsOngoing())

		state := second.lastState(t)
		assert.Equal(t, [9]string{}, state.Board)
	})
}

func TestRoom_StaleResetTimerIsDropped(t *testing.T) {
	// Given: a concluded game whose reset timer is still pending
	room := newTestRoom(nil)
	first, second := seatTwo(t, room)
	playTopRowWin(t, room, first, second)
	pendingEpoch := room.epoch

	// When: a disconnect resets the game before the timer fires
	room.handleDisconnected(second.id)
	countAfterDisconnect := first.count()

	// And: the stale timer event arrives
	room.handleResetTimer(pendingEpoch)

	// Then: the stale reset is dropped without another broadcast
	assert.Equal(t, countAfterDisconnect, first.count())
	assert.True(t, room.game.IsWaiting())
}

func TestRoom_ChatRelay(t *testing.T) {
	// Given: a full room with an observer
	room := newTestRoom(nil)
	first, second := seatTwo(t, room)
	observer := &fakeConn{id: "conn-3"}
	room.handleConnected(observer)
	observer.msgs = nil

	// When: the observer sends a chat message
	room.handleChat(chatEvent{connID: observer.id, text: "good game"})

	// Then: everyone receives it tagged with the sender handle
	for _, conn := range []*fakeConn{first, second, observer} {
		msg := conn.last(t)
		require.Equal(t, ActionChat, msg.action)

		chat := msg.payload.(ChatPayload)
		assert.Equal(t, observer.id, chat.Sender)
		assert.Equal(t, "good game", chat.Message)
	}
}

func TestRoom_RunDeliversDelayedReset(t *testing.T) {
	// Given: a running room with a short reset delay
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	room := New(logger, nil, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go room.Run(ctx)

	first := &fakeConn{id: "conn-x"}
	second := &fakeConn{id: "conn-o"}

	// When: a full game plays out through the event channel
	room.Connected(first)
	room.Connected(second)
	room.Move(first.id, 0)
	room.Move(second.id, 3)
	room.Move(first.id, 1)
	room.Move(second.id, 4)
	room.Move(first.id, 2)

	// Then: the conclusion is broadcast
	require.Eventually(t, func() bool {
		for _, action := range first.actions() {
			if action == ActionOver {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// And: after the delay everyone gets the fresh board with X to move
	require.Eventually(t, func() bool {
		state, ok := first.tryLastState()
		return ok && state.Board == [9]string{} && state.Turn == entity.PlayerX
	}, 2*time.Second, 10*time.Millisecond)
}
