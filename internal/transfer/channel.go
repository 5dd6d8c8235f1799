package transfer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// FrameWriter is the slice of the data channel the transfer protocol
// writes through. *webrtc.DataChannel satisfies it; tests substitute a
// loopback implementation.
type FrameWriter interface {
	SendText(s string) error
	Send(b []byte) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
}

// Channel frames and dispatches protocol messages over an established data
// channel. Control messages are JSON text frames; chunk payloads are raw
// binary frames forwarded untouched to the active receiver.
type Channel struct {
	w   FrameWriter
	log *slog.Logger

	mu         sync.RWMutex
	onMetadata func(FileMetadata)
	onReady    func()
	onComplete func(int64)
	onCancel   func(string)
	onBinary   func([]byte)
}

// NewChannel wraps a frame writer.
func NewChannel(w FrameWriter) *Channel {
	return &Channel{
		w:   w,
		log: slog.Default().With("component", "transfer"),
	}
}

// Attach wires the channel's dispatcher to a pion data channel.
func (c *Channel) Attach(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.HandleFrame(msg.IsString, msg.Data)
	})
}

// OnMetadata registers the file-metadata handler.
func (c *Channel) OnMetadata(f func(FileMetadata)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMetadata = f
}

// OnReady registers the transfer-ready handler.
func (c *Channel) OnReady(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = f
}

// OnComplete registers the transfer-complete handler; the argument is the
// declared total size.
func (c *Channel) OnComplete(f func(int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = f
}

// OnCancel registers the cancel handler; the argument is the peer's reason.
func (c *Channel) OnCancel(f func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCancel = f
}

// OnBinary registers the receiver for chunk frames.
func (c *Channel) OnBinary(f func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBinary = f
}

// SendControl serializes a control message and writes it as a text frame.
func (c *Channel) SendControl(msg ControlMessage) error {
	if c.w == nil {
		return ErrChannelNotOpen
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return NewError("marshal control message", err)
	}
	if err := c.w.SendText(string(data)); err != nil {
		return NewError("send control message", err)
	}
	return nil
}

// SendBinary writes one binary frame. Frame order on the wire is the send
// order: this is only correct over an ordered, reliable channel, which is
// how the connection controller configures it. Callers must keep each
// frame within the transport's message delivery limit; the chunk sender
// fragments its chunks accordingly.
func (c *Channel) SendBinary(b []byte) error {
	if c.w == nil {
		return ErrChannelNotOpen
	}
	if err := c.w.Send(b); err != nil {
		return NewError("send chunk", err)
	}
	return nil
}

// HandleFrame dispatches one received frame. Text frames that fail to
// parse as a control message are logged and dropped rather than failing
// the transfer.
func (c *Channel) HandleFrame(isText bool, data []byte) {
	if !isText {
		c.mu.RLock()
		onBinary := c.onBinary
		c.mu.RUnlock()
		if onBinary != nil {
			onBinary(data)
		}
		return
	}

	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn("ignoring malformed control message", "error", err)
		return
	}

	c.mu.RLock()
	onMetadata, onReady := c.onMetadata, c.onReady
	onComplete, onCancel := c.onComplete, c.onCancel
	c.mu.RUnlock()

	switch msg.Type {
	case MessageTypeMetadata:
		if msg.Metadata == nil {
			c.log.Warn("metadata message without metadata")
			return
		}
		if onMetadata != nil {
			onMetadata(*msg.Metadata)
		}

	case MessageTypeReady:
		if onReady != nil {
			onReady()
		}

	case MessageTypeComplete:
		size, err := msg.CompleteSize()
		if err != nil {
			c.log.Warn("ignoring malformed complete message", "error", err)
			return
		}
		if onComplete != nil {
			onComplete(size)
		}

	case MessageTypeCancel:
		if onCancel != nil {
			onCancel(msg.Reason)
		}

	case MessageTypePing:
		// keepalive courtesy, not required for correctness
		if err := c.SendControl(NewPongMessage()); err != nil {
			c.log.Debug("pong failed", "error", err)
		}

	case MessageTypePong:
		// nothing to do; the nudge already kept the channel active

	default:
		c.log.Warn("ignoring unknown control message", "type", msg.Type)
	}
}

// BufferedAmount reports bytes queued in the transport's send buffer.
func (c *Channel) BufferedAmount() uint64 {
	return c.w.BufferedAmount()
}

// SetBufferedAmountLowThreshold configures the drain notification level.
func (c *Channel) SetBufferedAmountLowThreshold(th uint64) {
	c.w.SetBufferedAmountLowThreshold(th)
}

// OnBufferedAmountLow registers the drain notification callback.
func (c *Channel) OnBufferedAmountLow(f func()) {
	c.w.OnBufferedAmountLow(f)
}
