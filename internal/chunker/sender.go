package chunker

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// Conn is the slice of the transfer channel the sender drives. Implemented
// by *transfer.Channel; tests substitute a loopback.
type Conn interface {
	SendControl(msg transfer.ControlMessage) error
	SendBinary(b []byte) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
}

const (
	// resizeCheckEvery is how many chunks are sent before the remaining
	// payload may be re-planned at the optimizer's current chunk size.
	resizeCheckEvery = 10

	// resizeMinRemainder skips re-planning when fewer than this many chunks
	// of the new size remain; the churn would outlast the benefit.
	resizeMinRemainder = 5

	retryBackoff = 100 * time.Millisecond
	drainTimeout = 60 * time.Second
)

// maxWireFrame caps one data-channel message. The SCTP stack only delivers
// messages up to about 64 KiB to OnMessage; an oversized Send is accepted
// and then never arrives on the far side. Logical chunks are therefore
// fragmented into wire frames here, while the optimizer keeps accounting
// in whole chunks. The receiver appends frames in arrival order and never
// depends on frame boundaries.
const maxWireFrame = 32 << 10

// Sender streams one payload over the data channel: announce metadata, wait
// for the receiver's ready, then push chunks through a single ordered send
// loop. Parallelism is an in-flight byte budget on the transport's send
// buffer, not concurrent writers, so chunk order on the wire always matches
// payload order.
type Sender struct {
	conn    Conn
	src     io.ReaderAt
	meta    transfer.FileMetadata
	session *transfer.Session
	opt     *Optimizer
	meter   *meter
	log     *slog.Logger

	ready   chan struct{}
	cancels chan string
	drained chan struct{}
}

// NewSender prepares a sender for one payload.
func NewSender(conn Conn, src io.ReaderAt, meta transfer.FileMetadata, session *transfer.Session) *Sender {
	return &Sender{
		conn:    conn,
		src:     src,
		meta:    meta,
		session: session,
		opt:     NewOptimizer(),
		meter:   newMeter(nil),
		log:     slog.Default().With("component", "sender", "file", meta.Name),
		ready:   make(chan struct{}, 1),
		cancels: make(chan string, 1),
		drained: make(chan struct{}, 1),
	}
}

// NotifyReady signals that the peer sent transfer-ready. Wired to the
// transfer channel's OnReady.
func (s *Sender) NotifyReady() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// NotifyCancel signals that the peer cancelled. Wired to OnCancel.
func (s *Sender) NotifyCancel(reason string) {
	select {
	case s.cancels <- reason:
	default:
	}
}

// Run drives the transfer to a terminal session state. It returns nil on a
// completed transfer and the terminal error otherwise.
func (s *Sender) Run(ctx context.Context) error {
	s.conn.OnBufferedAmountLow(func() {
		select {
		case s.drained <- struct{}{}:
		default:
		}
	})

	s.session.SetMetadata(s.meta)
	if err := s.conn.SendControl(transfer.NewMetadataMessage(s.meta)); err != nil {
		return s.fail(transfer.NewFileError("announce metadata", s.meta.Name, err))
	}

	s.log.Debug("metadata announced, waiting for receiver")
	select {
	case <-ctx.Done():
		return s.abort(ctx)
	case reason := <-s.cancels:
		return s.peerCancelled(reason)
	case <-s.ready:
	}

	s.session.Begin()
	s.meter.start()

	if err := s.sendChunks(ctx); err != nil {
		return err
	}

	if err := s.conn.SendControl(transfer.NewCompleteMessage(s.meta.Size)); err != nil {
		return s.fail(transfer.NewError("send transfer-complete", err))
	}
	s.session.UpdateProgress(100, s.meter.overall(s.meta.Size))
	s.session.Complete()
	s.log.Debug("transfer complete", "bytes", s.meta.Size)
	return nil
}

func (s *Sender) sendChunks(ctx context.Context) error {
	planSize := s.opt.ChunkSize()
	pending := Plan(s.meta.Size, planSize)
	buf := make([]byte, MaxChunkSize)

	var sent int64
	sinceResize := 0

	// frameOff survives a mid-chunk send failure, so a retried chunk
	// resumes at the failed frame instead of re-sending buffered ones
	frameOff := 0

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return s.abort(ctx)
		case reason := <-s.cancels:
			return s.peerCancelled(reason)
		default:
		}

		chunk := pending[0]
		payload := buf[:chunk.Size()]
		if _, err := s.src.ReadAt(payload, chunk.Start); err != nil {
			// The chunk stays at the head of the queue: the channel is
			// ordered, so it must go out before anything after it.
			s.log.Warn("chunk read failed, retrying", "chunk", chunk.Index, "error", err)
			if err := sleepCtx(ctx, retryBackoff); err != nil {
				return s.abort(ctx)
			}
			continue
		}

		if err := s.waitForWindow(ctx, planSize); err != nil {
			return err
		}

		if err := s.sendChunkFrames(payload, &frameOff); err != nil {
			s.log.Warn("chunk send failed, retrying", "chunk", chunk.Index, "offset", frameOff, "error", err)
			if err := sleepCtx(ctx, retryBackoff); err != nil {
				return s.abort(ctx)
			}
			continue
		}
		frameOff = 0

		pending = pending[1:]
		sent += chunk.Size()
		sinceResize++

		if bps, ok := s.meter.sample(sent); ok {
			s.opt.Record(bps)
			s.session.UpdateProgress(percent(sent, s.meta.Size), s.meter.overall(sent))
		}

		if sinceResize >= resizeCheckEvery && len(pending) > 0 {
			sinceResize = 0
			newSize := s.opt.ChunkSize()
			remaining := s.meta.Size - sent
			if newSize != planSize && remaining > resizeMinRemainder*int64(newSize) {
				next := pending[0]
				pending = PlanRange(next.Start, s.meta.Size, next.Index, newSize)
				planSize = newSize
				s.log.Debug("re-planned remainder", "chunk_size", newSize, "remaining", remaining)
			}
		}
	}
	return nil
}

// sendChunkFrames writes one logical chunk as a run of wire-sized frames,
// starting at *frameOff. On failure *frameOff points at the frame that did
// not make it into the send buffer.
func (s *Sender) sendChunkFrames(payload []byte, frameOff *int) error {
	for *frameOff < len(payload) {
		end := *frameOff + maxWireFrame
		if end > len(payload) {
			end = len(payload)
		}
		if err := s.conn.SendBinary(payload[*frameOff:end]); err != nil {
			return err
		}
		*frameOff = end
	}
	return nil
}

// waitForWindow blocks until the transport's send buffer has room for
// another chunk under the current in-flight budget.
func (s *Sender) waitForWindow(ctx context.Context, chunkSize int) error {
	high := uint64(s.opt.Parallelism()) * uint64(chunkSize)
	s.conn.SetBufferedAmountLowThreshold(high / 2)

	deadline := time.NewTimer(drainTimeout)
	defer deadline.Stop()

	for s.conn.BufferedAmount() >= high {
		select {
		case <-ctx.Done():
			return s.abort(ctx)
		case reason := <-s.cancels:
			return s.peerCancelled(reason)
		case <-deadline.C:
			return s.fail(transfer.WrapError("wait for send buffer", transfer.ErrTimeout, "transport stopped draining"))
		case <-s.drained:
		case <-time.After(retryBackoff):
			// poll fallback in case the low-watermark callback was missed
		}
	}
	return nil
}

func (s *Sender) abort(ctx context.Context) error {
	reason := "sender cancelled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "sender timed out"
	}
	if err := s.conn.SendControl(transfer.NewCancelMessage(reason)); err != nil {
		s.log.Debug("cancel notification failed", "error", err)
	}
	return s.fail(transfer.NewError("send", transfer.ErrCancelled))
}

func (s *Sender) peerCancelled(reason string) error {
	return s.fail(transfer.WrapError("send", transfer.ErrCancelled, "peer said: "+reason))
}

func (s *Sender) fail(err error) error {
	s.session.Fail(err)
	return err
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
