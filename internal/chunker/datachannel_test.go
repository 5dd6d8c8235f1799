package chunker

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// TestChunksTraverseRealDataChannel runs the full send/receive pipeline
// over an actual pion data channel pair, so wire framing is subject to the
// transport's real message delivery limits instead of a test double that
// accepts frames of any size.
func TestChunksTraverseRealDataChannel(t *testing.T) {
	offerPC, err := pion.NewPeerConnection(pion.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { offerPC.Close() })

	answerPC, err := pion.NewPeerConnection(pion.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { answerPC.Close() })

	ordered := true
	dc, err := offerPC.CreateDataChannel("data", &pion.DataChannelInit{Ordered: &ordered})
	require.NoError(t, err)

	open := make(chan struct{})
	dc.OnOpen(func() { close(open) })

	sendCh := transfer.NewChannel(dc)
	sendCh.Attach(dc)

	payload := make([]byte, 2*(1<<20)+321)
	_, err = rand.New(rand.NewSource(99)).Read(payload)
	require.NoError(t, err)
	meta := transfer.FileMetadata{
		Name: "wire.bin",
		Type: "application/octet-stream",
		Size: int64(len(payload)),
	}

	var out bytes.Buffer
	recvSession := transfer.NewSession("wire")
	receivers := make(chan *Receiver, 1)
	answerPC.OnDataChannel(func(rdc *pion.DataChannel) {
		ch := transfer.NewChannel(rdc)
		recv := NewReceiver(ch, recvSession, &out)
		ch.OnMetadata(recv.HandleMetadata)
		ch.OnBinary(recv.HandleChunk)
		ch.OnComplete(recv.HandleComplete)
		ch.OnCancel(recv.HandleCancel)
		ch.Attach(rdc)
		receivers <- recv
	})

	connectPeers(t, offerPC, answerPC)

	select {
	case <-open:
	case <-time.After(15 * time.Second):
		t.Fatal("data channel never opened")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sendSession := transfer.NewSession("wire")
	sender := NewSender(sendCh, bytes.NewReader(payload), meta, sendSession)
	sendCh.OnReady(sender.NotifyReady)
	sendCh.OnCancel(sender.NotifyCancel)

	sendErr := make(chan error, 1)
	go func() { sendErr <- sender.Run(ctx) }()

	var recv *Receiver
	select {
	case recv = <-receivers:
	case <-time.After(15 * time.Second):
		t.Fatal("responder never saw the data channel")
	}

	require.NoError(t, recv.Wait(ctx))
	require.NoError(t, <-sendErr)

	assert.Equal(t, int64(len(payload)), recv.Received())
	assert.Equal(t, payload, out.Bytes())
	assert.Equal(t, transfer.StateCompleted, sendSession.State())
	assert.Equal(t, transfer.StateCompleted, recvSession.State())
}

// connectPeers completes a non-trickle offer/answer exchange between two
// in-process peer connections.
func connectPeers(t *testing.T, offerPC, answerPC *pion.PeerConnection) {
	t.Helper()

	offer, err := offerPC.CreateOffer(nil)
	require.NoError(t, err)
	offerGathered := pion.GatheringCompletePromise(offerPC)
	require.NoError(t, offerPC.SetLocalDescription(offer))
	<-offerGathered
	require.NoError(t, answerPC.SetRemoteDescription(*offerPC.LocalDescription()))

	answer, err := answerPC.CreateAnswer(nil)
	require.NoError(t, err)
	answerGathered := pion.GatheringCompletePromise(answerPC)
	require.NoError(t, answerPC.SetLocalDescription(answer))
	<-answerGathered
	require.NoError(t, offerPC.SetRemoteDescription(*answerPC.LocalDescription()))
}
