package room

// Wire actions emitted by the room. The transport forwards them verbatim
// inside its message envelope.
const (
	ActionSeat    = "game:seat"
	ActionWaiting = "game:waiting"
	ActionFull    = "game:full"
	ActionState   = "game:state"
	ActionOver    = "game:over"
	ActionLeave   = "game:leave"
	ActionChat    = "chat:message"
	ActionError   = "error"
)

type SeatPayload struct {
	Mark string `json:"mark"`
}

type StatePayload struct {
	Board [9]string `json:"board"`
	Turn  string    `json:"turn"`
}

type OverPayload struct {
	Winner string `json:"winner"`
}

type ChatPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}
