package transfer

import (
	"encoding/json"
	"time"
)

// Control message types sent as text frames over the data channel. Chunk
// bytes travel as separate binary frames and never carry an envelope.
const (
	MessageTypeMetadata = "file-metadata"
	MessageTypeReady    = "transfer-ready"
	MessageTypeComplete = "transfer-complete"
	MessageTypeCancel   = "cancel"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// ControlMessage is the tagged union framing every non-payload message.
type ControlMessage struct {
	Type      string          `json:"type"`
	Metadata  *FileMetadata   `json:"metadata,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// CompletePayload is the Data shape of a transfer-complete message.
type CompletePayload struct {
	Size int64 `json:"size"`
}

func newControlMessage(msgType string) ControlMessage {
	return ControlMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
}

// NewMetadataMessage announces the payload about to be sent.
func NewMetadataMessage(meta FileMetadata) ControlMessage {
	msg := newControlMessage(MessageTypeMetadata)
	msg.Metadata = &meta
	return msg
}

// NewReadyMessage tells the sender the receiver has reset its buffer and
// chunks may flow.
func NewReadyMessage() ControlMessage {
	return newControlMessage(MessageTypeReady)
}

// NewCompleteMessage declares the total size the receiver must have
// accumulated.
func NewCompleteMessage(size int64) ControlMessage {
	msg := newControlMessage(MessageTypeComplete)
	data, _ := json.Marshal(CompletePayload{Size: size})
	msg.Data = data
	return msg
}

// NewCancelMessage aborts the transfer with a human-readable reason.
func NewCancelMessage(reason string) ControlMessage {
	msg := newControlMessage(MessageTypeCancel)
	msg.Reason = reason
	return msg
}

// NewPingMessage is the data-channel keepalive nudge.
func NewPingMessage() ControlMessage {
	return newControlMessage(MessageTypePing)
}

// NewPongMessage answers a ping.
func NewPongMessage() ControlMessage {
	return newControlMessage(MessageTypePong)
}

// CompleteSize extracts the declared size from a transfer-complete message.
func (m ControlMessage) CompleteSize() (int64, error) {
	var payload CompletePayload
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		return 0, NewError("parse complete payload", err)
	}
	return payload.Size, nil
}
