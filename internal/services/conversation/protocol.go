package conversation

import "time"

// Inbound event types carried in the "type" field of a client frame.
const (
	// EventTypeAuth asks the gate to bind a verified identity to the connection.
	EventTypeAuth = "auth"
	// EventTypeMessage carries a chat message from the user.
	EventTypeMessage = "message"
	// EventTypePing keeps the connection's activity fresh.
	EventTypePing = "ping"
)

// Canonical actions per inbound type. An absent action is tolerated; a
// present but mismatched one is refused with a validation error.
const (
	ActionAuthenticate = "authenticate"
	ActionSendMessage  = "sendMessage"
	ActionPing         = "ping"
)

// Outbound envelope types carried in the "type" field of a server frame.
const (
	EnvelopeTypeAuthResponse    = "auth_response"
	EnvelopeTypeMessageResponse = "message_response"
	EnvelopeTypeError           = "error"
	EnvelopeTypePong            = "pong"
)

// inboundEvent is a parsed client frame.
type inboundEvent struct {
	Type string      `json:"type"`
	Data inboundData `json:"data"`
}

// inboundData carries the per-action payload of a client frame. Which
// fields are meaningful depends on the event type.
type inboundData struct {
	Action    string `json:"action,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// AuthResponse reports the outcome of an authentication attempt. Failures
// carry the same uniform error regardless of cause.
type AuthResponse struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MessageResponse carries a synthesized reply back to the client.
type MessageResponse struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
	IsEcho    bool      `json:"isEcho"`
}

// ErrorResponse reports a failed event to the client. The transport
// connection stays open; the code tells the client whether a retry can help.
type ErrorResponse struct {
	Type      string    `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PongResponse acknowledges a ping.
type PongResponse struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
