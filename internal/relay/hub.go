package relay

import (
	"sync"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
)

// Hub fans published messages out to WebSocket subscribers so connected
// clients see signals without polling. Polling remains the source of truth;
// the hub is purely a latency optimization and drops rather than blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one subscriber's view of a channel.
type Subscription struct {
	hub     *Hub
	channel string
	session string
	ch      chan signaling.Message
	once    sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a session on a channel. The session never receives
// its own published messages.
func (h *Hub) Subscribe(channel, session string) *Subscription {
	sub := &Subscription{
		hub:     h,
		channel: channel,
		session: session,
		ch:      make(chan signaling.Message, 32),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	return sub
}

// Broadcast delivers a message to every subscriber of the channel except
// the originating session. Slow subscribers miss the push and catch up by
// polling.
func (h *Hub) Broadcast(channel string, msg signaling.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[channel] {
		if sub.session == msg.SessionID {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// C returns the subscriber's message channel.
func (s *Subscription) C() <-chan signaling.Message {
	return s.ch
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if subs := s.hub.subs[s.channel]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.subs, s.channel)
			}
		}
		close(s.ch)
	})
}
