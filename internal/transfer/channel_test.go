package transfer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter captures frames instead of sending them anywhere.
type recordingWriter struct {
	texts    []string
	binaries [][]byte
}

func (w *recordingWriter) SendText(s string) error { w.texts = append(w.texts, s); return nil }
func (w *recordingWriter) Send(b []byte) error {
	w.binaries = append(w.binaries, append([]byte(nil), b...))
	return nil
}
func (w *recordingWriter) BufferedAmount() uint64               { return 0 }
func (w *recordingWriter) SetBufferedAmountLowThreshold(uint64) {}
func (w *recordingWriter) OnBufferedAmountLow(func())           {}

func TestChannelControlDispatch(t *testing.T) {
	ch := NewChannel(&recordingWriter{})

	var gotMeta FileMetadata
	var gotReady bool
	var gotSize int64
	var gotReason string

	ch.OnMetadata(func(m FileMetadata) { gotMeta = m })
	ch.OnReady(func() { gotReady = true })
	ch.OnComplete(func(size int64) { gotSize = size })
	ch.OnCancel(func(reason string) { gotReason = reason })

	deliver := func(msg ControlMessage) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		ch.HandleFrame(true, data)
	}

	deliver(NewMetadataMessage(FileMetadata{Name: "cat.png", Type: "image/png", Size: 42}))
	assert.Equal(t, "cat.png", gotMeta.Name)
	assert.Equal(t, int64(42), gotMeta.Size)

	deliver(NewReadyMessage())
	assert.True(t, gotReady)

	deliver(NewCompleteMessage(42))
	assert.Equal(t, int64(42), gotSize)

	deliver(NewCancelMessage("changed my mind"))
	assert.Equal(t, "changed my mind", gotReason)
}

func TestChannelBinaryPassthrough(t *testing.T) {
	ch := NewChannel(&recordingWriter{})

	var got [][]byte
	ch.OnBinary(func(b []byte) { got = append(got, b) })

	ch.HandleFrame(false, []byte{1, 2, 3})
	ch.HandleFrame(false, []byte{4, 5})

	require.Len(t, got, 2)
	assert.Equal(t, []byte{1, 2, 3}, got[0])
	assert.Equal(t, []byte{4, 5}, got[1])
}

func TestChannelPingAnsweredWithPong(t *testing.T) {
	w := &recordingWriter{}
	ch := NewChannel(w)

	data, err := json.Marshal(NewPingMessage())
	require.NoError(t, err)
	ch.HandleFrame(true, data)

	require.Len(t, w.texts, 1, "ping must be answered")
	var reply ControlMessage
	require.NoError(t, json.Unmarshal([]byte(w.texts[0]), &reply))
	assert.Equal(t, MessageTypePong, reply.Type)
}

func TestChannelIgnoresMalformedAndUnknown(t *testing.T) {
	w := &recordingWriter{}
	ch := NewChannel(w)

	called := false
	ch.OnMetadata(func(FileMetadata) { called = true })

	ch.HandleFrame(true, []byte("{not json"))
	ch.HandleFrame(true, []byte(`{"type":"mystery","timestamp":1}`))
	ch.HandleFrame(true, []byte(`{"type":"file-metadata","timestamp":1}`))

	assert.False(t, called, "bad frames never reach handlers")
	assert.Empty(t, w.texts, "bad frames never trigger replies")
}

func TestChannelSendControlFramesJSON(t *testing.T) {
	w := &recordingWriter{}
	ch := NewChannel(w)

	require.NoError(t, ch.SendControl(NewReadyMessage()))
	require.Len(t, w.texts, 1)

	var msg ControlMessage
	require.NoError(t, json.Unmarshal([]byte(w.texts[0]), &msg))
	assert.Equal(t, MessageTypeReady, msg.Type)
	assert.NotZero(t, msg.Timestamp)
}

func TestChannelSendBinary(t *testing.T) {
	w := &recordingWriter{}
	ch := NewChannel(w)

	require.NoError(t, ch.SendBinary([]byte{9, 9, 9}))
	require.Len(t, w.binaries, 1)
	assert.Equal(t, []byte{9, 9, 9}, w.binaries[0])
	assert.Empty(t, w.texts, "chunks never travel as text frames")
}
