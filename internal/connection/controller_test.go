package connection

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

type nullWriter struct{}

func (nullWriter) SendText(string) error                { return nil }
func (nullWriter) Send([]byte) error                    { return nil }
func (nullWriter) BufferedAmount() uint64               { return 0 }
func (nullWriter) SetBufferedAmountLowThreshold(uint64) {}
func (nullWriter) OnBufferedAmountLow(func())           {}

// newLoopController builds a controller with just enough state to exercise
// dispatch; no transport or signaling client behind it.
func newLoopController(t *testing.T) *Controller {
	t.Helper()
	return &Controller{
		machine:  NewMachine(true, false, 3),
		log:      slog.Default(),
		events:   make(chan Event, 16),
		channels: make(chan *transfer.Channel, 1),
		failures: make(chan error, 1),
		done:     make(chan struct{}),
	}
}

func TestChannelAdoptionHappensOnDispatch(t *testing.T) {
	c := newLoopController(t)
	ch := transfer.NewChannel(nullWriter{})

	c.dispatch(channelOpen{ch: ch})

	assert.Same(t, ch, c.channel)
	select {
	case got := <-c.Channel():
		assert.Same(t, ch, got)
	default:
		t.Fatal("opened channel never delivered")
	}
}

func TestChannelCloseUnderLiveTransportFails(t *testing.T) {
	c := newLoopController(t)
	c.machine.Apply(Start{})
	c.machine.Apply(TransportUp{})

	c.dispatch(channelClosed{})

	select {
	case err := <-c.Failures():
		assert.ErrorIs(t, err, transfer.ErrChannelClosed)
	default:
		t.Fatal("channel loss under a live transport must surface as a failure")
	}
}

func TestChannelCloseDuringNegotiationIsRoutine(t *testing.T) {
	c := newLoopController(t)
	c.machine.Apply(Start{})

	c.dispatch(channelClosed{})

	select {
	case err := <-c.Failures():
		t.Fatalf("unexpected failure: %v", err)
	default:
	}
}

func TestFailureErrorNamesCause(t *testing.T) {
	err := failureError(transfer.ErrConnectionFailed, "disconnected")
	assert.ErrorIs(t, err, transfer.ErrPeerDisconnected)
	assert.Contains(t, err.Error(), "transport disconnected")

	err = failureError(transfer.ErrConnectionFailed, "failed")
	assert.ErrorIs(t, err, transfer.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "transport failed")

	err = failureError(transfer.ErrSignalingError, "")
	assert.ErrorIs(t, err, transfer.ErrSignalingError)
	assert.Contains(t, err.Error(), "relay unreachable")

	err = failureError(transfer.ErrConnectionFailed, "")
	assert.Contains(t, err.Error(), "negotiation attempts exhausted")
}
