package chunker

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// senderConn wires a Sender directly to a Receiver, standing in for the
// data channel.
type senderConn struct {
	recv *Receiver
}

func (c *senderConn) SendControl(msg transfer.ControlMessage) error {
	switch msg.Type {
	case transfer.MessageTypeMetadata:
		c.recv.HandleMetadata(*msg.Metadata)
	case transfer.MessageTypeComplete:
		size, err := msg.CompleteSize()
		if err != nil {
			return err
		}
		c.recv.HandleComplete(size)
	case transfer.MessageTypeCancel:
		c.recv.HandleCancel(msg.Reason)
	}
	return nil
}

func (c *senderConn) SendBinary(b []byte) error {
	c.recv.HandleChunk(append([]byte(nil), b...))
	return nil
}

func (c *senderConn) BufferedAmount() uint64               { return 0 }
func (c *senderConn) SetBufferedAmountLowThreshold(uint64) {}
func (c *senderConn) OnBufferedAmountLow(func())           {}

// receiverConn is the receiver's reply path back to the sender.
type receiverConn struct {
	sender *Sender
}

func (c *receiverConn) SendControl(msg transfer.ControlMessage) error {
	if msg.Type == transfer.MessageTypeReady && c.sender != nil {
		c.sender.NotifyReady()
	}
	return nil
}

func TestSenderReceiverRoundTrip(t *testing.T) {
	payload := make([]byte, 3*(1<<20)+123)
	_, err := rand.New(rand.NewSource(42)).Read(payload)
	require.NoError(t, err)

	meta := transfer.FileMetadata{
		Name: "payload.bin",
		Type: "application/octet-stream",
		Size: int64(len(payload)),
	}

	var out bytes.Buffer
	recvSession := transfer.NewSession("code")
	replyPath := &receiverConn{}
	recv := NewReceiver(replyPath, recvSession, &out)

	sendSession := transfer.NewSession("code")
	sender := NewSender(&senderConn{recv: recv}, bytes.NewReader(payload), meta, sendSession)
	replyPath.sender = sender

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sendErr := make(chan error, 1)
	go func() { sendErr <- sender.Run(ctx) }()

	require.NoError(t, recv.Wait(ctx))
	require.NoError(t, <-sendErr)

	assert.Equal(t, payload, out.Bytes(), "arrival-order reassembly reconstructs the payload")
	assert.Equal(t, transfer.StateCompleted, sendSession.State())
	assert.Equal(t, transfer.StateCompleted, recvSession.State())

	meta2 := recvSession.Metadata()
	require.NotNil(t, meta2)
	assert.Equal(t, "payload.bin", meta2.Name)
}

func TestReceiverDetectsSizeMismatch(t *testing.T) {
	var out bytes.Buffer
	session := transfer.NewSession("code")
	recv := NewReceiver(&receiverConn{sender: nil}, session, &out)

	// receiver must not rely on the reply path here
	recv.HandleMetadata(transfer.FileMetadata{Name: "x.bin", Size: 10})
	recv.HandleChunk([]byte{1, 2, 3, 4, 5})
	recv.HandleComplete(10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := recv.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrSizeMismatch)
	assert.Equal(t, transfer.StateFailed, session.State())
}

func TestReceiverCompleteWithoutMetadata(t *testing.T) {
	var out bytes.Buffer
	session := transfer.NewSession("code")
	recv := NewReceiver(&receiverConn{}, session, &out)

	recv.HandleComplete(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := recv.Wait(ctx)
	assert.ErrorIs(t, err, transfer.ErrMetadataMissing)
}

func TestReceiverPeerCancel(t *testing.T) {
	var out bytes.Buffer
	session := transfer.NewSession("code")
	recv := NewReceiver(&receiverConn{}, session, &out)

	recv.HandleCancel("lost interest")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := recv.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrCancelled)
	assert.Equal(t, transfer.StateFailed, session.State())
}

func TestSenderPeerCancelAborts(t *testing.T) {
	payload := []byte("small payload")
	meta := transfer.FileMetadata{Name: "x.txt", Size: int64(len(payload))}

	session := transfer.NewSession("code")
	conn := &cancellingConn{}
	sender := NewSender(conn, bytes.NewReader(payload), meta, session)
	conn.sender = sender

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := sender.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, transfer.ErrCancelled)
	assert.Equal(t, transfer.StateFailed, session.State())
}

// recordingConn answers the handshake itself and records every wire frame.
// failAt makes the nth binary send fail once, to exercise the resume path.
type recordingConn struct {
	sender *Sender
	frames []int
	data   bytes.Buffer
	failAt int
	failed bool
}

func (c *recordingConn) SendControl(msg transfer.ControlMessage) error {
	if msg.Type == transfer.MessageTypeMetadata && c.sender != nil {
		c.sender.NotifyReady()
	}
	return nil
}

func (c *recordingConn) SendBinary(b []byte) error {
	if c.failAt > 0 && !c.failed && len(c.frames)+1 == c.failAt {
		c.failed = true
		return errors.New("transient send failure")
	}
	c.frames = append(c.frames, len(b))
	c.data.Write(b)
	return nil
}

func (c *recordingConn) BufferedAmount() uint64               { return 0 }
func (c *recordingConn) SetBufferedAmountLowThreshold(uint64) {}
func (c *recordingConn) OnBufferedAmountLow(func())           {}

func TestSenderFragmentsChunksIntoWireFrames(t *testing.T) {
	payload := make([]byte, 2*(1<<20)+4096)
	_, err := rand.New(rand.NewSource(7)).Read(payload)
	require.NoError(t, err)
	meta := transfer.FileMetadata{Name: "big.bin", Size: int64(len(payload))}

	session := transfer.NewSession("code")
	conn := &recordingConn{}
	sender := NewSender(conn, bytes.NewReader(payload), meta, session)
	conn.sender = sender

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sender.Run(ctx))

	require.NotEmpty(t, conn.frames)
	for _, n := range conn.frames {
		assert.LessOrEqual(t, n, maxWireFrame, "no frame may exceed what the data channel can deliver")
	}
	assert.Greater(t, len(conn.frames), len(payload)/maxWireFrame,
		"a logical chunk spans many wire frames")
	assert.Equal(t, payload, conn.data.Bytes())
}

func TestSenderResumesAtFailedFrame(t *testing.T) {
	payload := make([]byte, 200_000)
	_, err := rand.New(rand.NewSource(8)).Read(payload)
	require.NoError(t, err)
	meta := transfer.FileMetadata{Name: "resume.bin", Size: int64(len(payload))}

	session := transfer.NewSession("code")
	conn := &recordingConn{failAt: 4}
	sender := NewSender(conn, bytes.NewReader(payload), meta, session)
	conn.sender = sender

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sender.Run(ctx))

	assert.True(t, conn.failed, "the injected failure must have fired")
	assert.Equal(t, payload, conn.data.Bytes(),
		"a retried chunk resumes at the failed frame and never re-sends delivered ones")
}

// cancellingConn answers the metadata announcement with a cancel instead
// of a ready.
type cancellingConn struct {
	sender *Sender
}

func (c *cancellingConn) SendControl(msg transfer.ControlMessage) error {
	if msg.Type == transfer.MessageTypeMetadata {
		c.sender.NotifyCancel("not today")
	}
	return nil
}

func (c *cancellingConn) SendBinary([]byte) error              { return nil }
func (c *cancellingConn) BufferedAmount() uint64               { return 0 }
func (c *cancellingConn) SetBufferedAmountLowThreshold(uint64) {}
func (c *cancellingConn) OnBufferedAmountLow(func())           {}
