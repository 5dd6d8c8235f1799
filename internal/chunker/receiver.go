package chunker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// ControlSender is the reply path the receiver needs: just enough of the
// transfer channel to acknowledge metadata.
type ControlSender interface {
	SendControl(msg transfer.ControlMessage) error
}

// Receiver reassembles the chunk stream in arrival order. The data channel
// is ordered and reliable and binary frames carry no chunk header, so
// arrival order is payload order and a straight append reconstructs the
// payload.
type Receiver struct {
	conn    ControlSender
	session *transfer.Session
	log     *slog.Logger

	mu       sync.Mutex
	w        io.Writer
	meter    *meter
	received int64
	finished bool

	done chan error
}

// NewReceiver prepares a receiver writing the payload to w.
func NewReceiver(conn ControlSender, session *transfer.Session, w io.Writer) *Receiver {
	return &Receiver{
		conn:    conn,
		session: session,
		log:     slog.Default().With("component", "receiver"),
		w:       w,
		meter:   newMeter(nil),
		done:    make(chan error, 1),
	}
}

// HandleMetadata accepts the sender's announcement and replies
// transfer-ready. A second announcement on the same session is ignored.
func (r *Receiver) HandleMetadata(meta transfer.FileMetadata) {
	if !r.session.SetMetadata(meta) {
		r.log.Warn("duplicate metadata ignored", "file", meta.Name)
		return
	}

	r.mu.Lock()
	r.received = 0
	r.mu.Unlock()

	r.log.Debug("metadata received", "file", meta.Name, "size", meta.Size)
	if err := r.conn.SendControl(transfer.NewReadyMessage()); err != nil {
		r.finish(transfer.NewError("send transfer-ready", err))
	}
}

// HandleChunk appends one binary frame to the payload. The first chunk
// starts the transfer clock.
func (r *Receiver) HandleChunk(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}

	if !r.meter.started() {
		r.session.Begin()
		r.meter.start()
	}

	if _, err := r.w.Write(data); err != nil {
		r.finishLocked(transfer.NewError("write chunk", err))
		return
	}
	r.received += int64(len(data))

	if _, ok := r.meter.sample(r.received); ok {
		total := int64(0)
		if meta := r.session.Metadata(); meta != nil {
			total = meta.Size
		}
		r.session.UpdateProgress(percent(r.received, total), r.meter.overall(r.received))
	}
}

// HandleComplete verifies the accumulated byte count against the sender's
// declared size and finalizes the session.
func (r *Receiver) HandleComplete(declared int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}

	if r.session.Metadata() == nil {
		r.finishLocked(transfer.NewError("complete transfer", transfer.ErrMetadataMissing))
		return
	}
	if r.received != declared {
		details := fmt.Sprintf("got %d bytes, sender declared %d", r.received, declared)
		r.finishLocked(transfer.WrapError("verify payload", transfer.ErrSizeMismatch, details))
		return
	}

	r.session.UpdateProgress(100, r.meter.overall(r.received))
	r.session.Complete()
	r.finishLocked(nil)
}

// HandleCancel aborts the transfer with the peer's reason.
func (r *Receiver) HandleCancel(reason string) {
	r.finish(transfer.WrapError("receive", transfer.ErrCancelled, "peer said: "+reason))
}

// Fail aborts the transfer from outside the protocol, typically when the
// connection controller declares the transport dead.
func (r *Receiver) Fail(err error) {
	r.finish(err)
}

// Received reports bytes accumulated so far.
func (r *Receiver) Received() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

// Wait blocks until the transfer reaches a terminal state or ctx ends. It
// returns nil only for a verified, completed payload.
func (r *Receiver) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		err := transfer.NewError("receive", transfer.ErrCancelled)
		r.finish(err)
		return err
	case err := <-r.done:
		return err
	}
}

func (r *Receiver) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked(err)
}

// finishLocked records the terminal result exactly once. Callers hold r.mu.
func (r *Receiver) finishLocked(err error) {
	if r.finished {
		return
	}
	r.finished = true
	if err != nil {
		r.session.Fail(err)
	}
	select {
	case r.done <- err:
	default:
	}
}
