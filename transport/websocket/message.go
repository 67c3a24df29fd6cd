package websocket

import "encoding/json"

// Inbound actions accepted from clients.
const (
	actionGameMove = "game:move"
	actionChat     = "chat:message"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outboundMessage is the same envelope on the way out; the payload is
// marshaled together with the envelope by the write pump.
type outboundMessage struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type MovePayload struct {
	Cell *int `json:"cell"`
}

type ChatPayload struct {
	Message string `json:"message"`
}
