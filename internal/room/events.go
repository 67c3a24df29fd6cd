package room

// event is processed by the room loop one at a time, each to completion,
// so handlers never observe partially applied state.
type event interface{}

type connectedEvent struct {
	conn Conn
}

type disconnectedEvent struct {
	connID string
}

type moveEvent struct {
	connID string
	cell   int
}

type chatEvent struct {
	connID string
	text   string
}

// resetTimerEvent is posted when the post-game delay elapses. It carries the
// epoch captured at scheduling time so a stale timer can be discarded.
type resetTimerEvent struct {
	epoch uint64
}
