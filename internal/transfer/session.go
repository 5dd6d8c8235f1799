package transfer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle of one payload transfer.
type SessionState string

const (
	StateWaiting      SessionState = "waiting"
	StateTransferring SessionState = "transferring"
	StateCompleted    SessionState = "completed"
	StateFailed       SessionState = "failed"
)

// FileMetadata describes the announced payload. Immutable once announced;
// in particular the size can never change for the life of a session.
type FileMetadata struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time,omitempty"`
}

// Session tracks one payload transfer. Each side owns its own Session
// instance and mutates only that; the peer mirrors state from received
// protocol messages, never through shared memory.
type Session struct {
	mu sync.Mutex

	ID        string
	Code      string
	meta      *FileMetadata
	state     SessionState
	progress  float64 // 0-100
	speed     float64 // bytes/sec
	startedAt time.Time
	endedAt   time.Time
	err       error
}

// NewSession creates a session in the waiting state.
func NewSession(code string) *Session {
	return &Session{
		ID:    uuid.NewString(),
		Code:  code,
		state: StateWaiting,
	}
}

// SetMetadata announces the payload. It is a no-op after the first call:
// a session has at most one metadata for its lifetime.
func (s *Session) SetMetadata(meta FileMetadata) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta != nil {
		return false
	}
	s.meta = &meta
	return true
}

// Metadata returns the announced metadata, or nil before announcement.
func (s *Session) Metadata() *FileMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil
	}
	m := *s.meta
	return &m
}

// Begin moves the session to transferring and starts the clock.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateWaiting {
		return
	}
	s.state = StateTransferring
	s.startedAt = time.Now()
}

// UpdateProgress records progress percentage and current speed.
func (s *Session) UpdateProgress(progress, speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTransferring {
		return
	}
	if progress > 100 {
		progress = 100
	}
	s.progress = progress
	s.speed = speed
}

// Complete finalizes a successful transfer.
func (s *Session) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted || s.state == StateFailed {
		return
	}
	s.state = StateCompleted
	s.progress = 100
	s.endedAt = time.Now()
}

// Fail ends the session with an error. The first failure wins; a session
// never leaves a terminal state.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted || s.state == StateFailed {
		return
	}
	s.state = StateFailed
	s.err = err
	s.endedAt = time.Now()
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress returns progress percentage and speed in bytes/sec.
func (s *Session) Progress() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress, s.speed
}

// Duration returns how long the transfer ran (or has been running).
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if s.endedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.endedAt.Sub(s.startedAt)
}
