package relay

import (
	"context"
	"sync"
	"time"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
)

// Message retention defaults. Abandoned handshakes expire silently; the
// sweep also removes channels left empty so relay memory stays bounded.
const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Store is the keyed, TTL-bounded message queue behind the relay. Channels
// are created implicitly on first publish; a channel that does not exist
// polls as empty.
type Store interface {
	// Publish appends a message to the channel.
	Publish(channel string, msg signaling.Message)

	// Poll returns all channel messages newer than since and not
	// originated by excludeSession.
	Poll(channel string, since int64, excludeSession string) []signaling.Message

	// Sweep purges messages older than the TTL and removes channels left
	// empty, returning the number of messages removed.
	Sweep(now time.Time) int
}

type storedMessage struct {
	msg signaling.Message

	// receivedAt is the server receipt time; TTL is measured against it
	// rather than the client-supplied timestamp.
	receivedAt time.Time
}

// MemoryStore is the in-process Store. It is the only implementation the
// relay ships with, but negotiation code depends on the interface so a
// shared store can be swapped in without touching it.
type MemoryStore struct {
	mu       sync.Mutex
	channels map[string][]storedMessage
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store with the given message TTL. A nil now
// function defaults to time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		channels: make(map[string][]storedMessage),
		ttl:      ttl,
		now:      now,
	}
}

// Publish appends a message to the channel, creating the channel if needed.
func (s *MemoryStore) Publish(channel string, msg signaling.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = append(s.channels[channel], storedMessage{
		msg:        msg,
		receivedAt: s.now(),
	})
}

// Poll returns channel messages newer than since, excluding the caller's
// own. An unknown channel returns an empty result.
func (s *MemoryStore) Poll(channel string, since int64, excludeSession string) []signaling.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.channels[channel]
	out := make([]signaling.Message, 0, len(entries))
	for _, e := range entries {
		if e.msg.Timestamp <= since {
			continue
		}
		if e.msg.SessionID == excludeSession {
			continue
		}
		out = append(out, e.msg)
	}
	return out
}

// Sweep drops expired messages and deletes channels left empty.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.ttl)
	removed := 0

	for channel, entries := range s.channels {
		kept := entries[:0]
		for _, e := range entries {
			if e.receivedAt.After(cutoff) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.channels, channel)
		} else {
			s.channels[channel] = kept
		}
	}
	return removed
}

// Run sweeps the store on a timer until the context is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.Sweep(t)
		}
	}
}
