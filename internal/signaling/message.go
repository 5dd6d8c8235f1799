package signaling

import (
	"encoding/json"
	"strings"
	"time"
)

// Message types exchanged through the relay before a direct transport
// exists. Messages are append-only: once published they are never mutated.
const (
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "ice-candidate"
	TypePing      = "ping"
	TypePong      = "pong"
)

// Message is one signaling relay message. Data is opaque to the relay; for
// offers and answers it carries SDP, for candidates the candidate JSON.
// The msgpack tags cover the WebSocket push path, which frames the same
// struct in msgpack instead of JSON.
type Message struct {
	ShortCode string          `json:"short_code" msgpack:"short_code"`
	SessionID string          `json:"session_id" msgpack:"session_id"`
	Type      string          `json:"type" msgpack:"type"`
	Data      json.RawMessage `json:"data,omitempty" msgpack:"data,omitempty"`
	Timestamp int64           `json:"timestamp" msgpack:"timestamp"`
}

// NewMessage builds a relay message stamped with the current time in unix
// milliseconds.
func NewMessage(code, sessionID, msgType string, data json.RawMessage) Message {
	return Message{
		ShortCode: code,
		SessionID: sessionID,
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// SDPPayload is the Data shape for offer and answer messages.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// ChannelKey derives the relay channel key for a short code. The code is
// lower-cased and trimmed so both peers land on the same channel however
// the code was typed, and namespaced so other relay uses cannot collide
// with signaling.
func ChannelKey(code string) string {
	return "signal:" + strings.ToLower(strings.TrimSpace(code))
}
