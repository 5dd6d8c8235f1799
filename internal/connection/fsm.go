package connection

import (
	"encoding/json"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// Event is an input to the negotiation machine: a peer message, a transport
// state change, or a timer firing.
type Event interface{ isEvent() }

type (
	// Start begins negotiation. The initiator side also creates the offer.
	Start struct{}

	// RemoteOffer is the peer's SDP offer, including ICE-restart offers
	// after a disconnect.
	RemoteOffer struct{ SDP string }

	// RemoteAnswer is the peer's SDP answer to our offer.
	RemoteAnswer struct{ SDP string }

	// RemoteCandidate is one trickled ICE candidate from the peer.
	RemoteCandidate struct{ Candidate json.RawMessage }

	// TransportUp fires when the peer connection reaches connected.
	TransportUp struct{}

	// TransportDown fires on a recoverable transport interruption.
	TransportDown struct{}

	// TransportFailed fires when the transport gives up on its own.
	TransportFailed struct{}

	// ConnectTimeout fires when a negotiation round exceeds its deadline.
	ConnectTimeout struct{}

	// SignalingDown fires after the relay has stopped answering for a run
	// of consecutive attempts.
	SignalingDown struct{}

	// HeartbeatTick fires on the keepalive cadence while connected.
	HeartbeatTick struct{}

	// Close is the local shutdown request.
	Close struct{}
)

func (Start) isEvent()           {}
func (RemoteOffer) isEvent()     {}
func (RemoteAnswer) isEvent()    {}
func (RemoteCandidate) isEvent() {}
func (TransportUp) isEvent()     {}
func (TransportDown) isEvent()   {}
func (TransportFailed) isEvent() {}
func (ConnectTimeout) isEvent()  {}
func (SignalingDown) isEvent()   {}
func (HeartbeatTick) isEvent()   {}
func (Close) isEvent()           {}

// Command is a side effect the machine asks its executor to perform. The
// machine itself never touches the network, timers, or pion.
type Command interface{ isCommand() }

type (
	// CreateOffer makes and publishes an SDP offer. Fresh tears the old
	// transport down and negotiates on a new one; RelayOnly additionally
	// restricts candidate gathering to TURN relay candidates. ICERestart
	// restarts ICE on the existing transport instead.
	CreateOffer struct {
		ICERestart bool
		Fresh      bool
		RelayOnly  bool
	}

	// CreateAnswer applies the peer's offer and publishes an answer. Fresh
	// means the peer renegotiated from scratch, so the answering side needs
	// a new transport too.
	CreateAnswer struct {
		SDP   string
		Fresh bool
	}

	// ApplyAnswer applies the peer's answer to our outstanding offer.
	ApplyAnswer struct{ SDP string }

	// AddCandidate feeds one remote ICE candidate to the transport.
	AddCandidate struct{ Candidate json.RawMessage }

	// StartConnectTimer arms the per-round negotiation deadline.
	StartConnectTimer struct{}

	// StopConnectTimer disarms it.
	StopConnectTimer struct{}

	// StartHeartbeat begins the keepalive cadence.
	StartHeartbeat struct{}

	// StopHeartbeat ends it.
	StopHeartbeat struct{}

	// SendHeartbeat emits one keepalive ping.
	SendHeartbeat struct{}

	// Fail reports the terminal negotiation error.
	Fail struct{ Reason error }

	// Teardown releases the transport.
	Teardown struct{}
)

func (CreateOffer) isCommand()       {}
func (CreateAnswer) isCommand()      {}
func (ApplyAnswer) isCommand()       {}
func (AddCandidate) isCommand()      {}
func (StartConnectTimer) isCommand() {}
func (StopConnectTimer) isCommand()  {}
func (StartHeartbeat) isCommand()    {}
func (StopHeartbeat) isCommand()     {}
func (SendHeartbeat) isCommand()     {}
func (Fail) isCommand()              {}
func (Teardown) isCommand()          {}

// Machine is the pure negotiation state machine. Apply is a transition
// function with no I/O, which is what makes every reconnect and fallback
// path testable without a network. Not safe for concurrent use; the
// controller serializes all events through one loop.
type Machine struct {
	state          State
	initiator      bool
	relayAvailable bool
	attempt        int
	maxAttempts    int

	// wasConnected selects the recovery strategy: a transport that worked
	// once gets an ICE restart first; one that never connected is rebuilt.
	wasConnected bool

	// sawOffer distinguishes the first offer of a round from a repeat,
	// which means the peer renegotiated on a fresh transport.
	sawOffer bool
}

// NewMachine builds a machine in the new state. The initiator side creates
// offers; relayAvailable permits the TURN-only fallback on retry rounds.
func NewMachine(initiator, relayAvailable bool, maxAttempts int) *Machine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Machine{
		state:          StateNew,
		initiator:      initiator,
		relayAvailable: relayAvailable,
		maxAttempts:    maxAttempts,
	}
}

// State returns the current connection state.
func (m *Machine) State() State { return m.state }

// Attempt returns the current negotiation round, starting at 1.
func (m *Machine) Attempt() int { return m.attempt }

// Apply transitions the machine on one event and returns the commands the
// executor must perform, in order. Events that do not apply in the current
// state return no commands; once closed, nothing does.
func (m *Machine) Apply(ev Event) []Command {
	if m.state == StateClosed {
		return nil
	}

	switch ev := ev.(type) {
	case Start:
		if m.state != StateNew {
			return nil
		}
		m.state = StateConnecting
		m.attempt = 1
		cmds := []Command{StartConnectTimer{}}
		if m.initiator {
			cmds = append(cmds, CreateOffer{})
		}
		return cmds

	case RemoteOffer:
		switch m.state {
		case StateConnecting:
			if m.initiator {
				// glare: both sides offered; the initiator's offer wins
				return nil
			}
			fresh := m.sawOffer
			m.sawOffer = true
			return []Command{CreateAnswer{SDP: ev.SDP, Fresh: fresh}}
		case StateConnected, StateDisconnected:
			// peer-initiated ICE restart on the transport we already share
			m.state = StateConnecting
			m.sawOffer = true
			return []Command{StartConnectTimer{}, CreateAnswer{SDP: ev.SDP}}
		default:
			return nil
		}

	case RemoteAnswer:
		if m.state == StateConnecting && m.initiator {
			return []Command{ApplyAnswer{SDP: ev.SDP}}
		}
		return nil

	case RemoteCandidate:
		switch m.state {
		case StateConnecting, StateConnected, StateDisconnected:
			return []Command{AddCandidate{Candidate: ev.Candidate}}
		default:
			return nil
		}

	case TransportUp:
		switch m.state {
		case StateConnecting, StateDisconnected:
			m.state = StateConnected
			m.attempt = 1
			m.wasConnected = true
			m.sawOffer = false
			return []Command{StopConnectTimer{}, StartHeartbeat{}}
		default:
			return nil
		}

	case TransportDown:
		if m.state != StateConnected {
			return nil
		}
		// give the transport a chance to self-recover before restarting ICE
		m.state = StateDisconnected
		return []Command{StopHeartbeat{}, StartConnectTimer{}}

	case TransportFailed, ConnectTimeout:
		return m.retry()

	case SignalingDown:
		// negotiation cannot proceed without the relay; a connected
		// transport no longer needs it, so only in-flight rounds fail
		switch m.state {
		case StateConnecting, StateDisconnected:
			m.state = StateFailed
			return []Command{
				StopConnectTimer{},
				StopHeartbeat{},
				Fail{Reason: transfer.ErrSignalingError},
				Teardown{},
			}
		default:
			return nil
		}

	case HeartbeatTick:
		if m.state == StateConnected {
			return []Command{SendHeartbeat{}}
		}
		return nil

	case Close:
		m.state = StateClosed
		return []Command{StopConnectTimer{}, StopHeartbeat{}, Teardown{}}
	}
	return nil
}

// retry advances to the next negotiation round, or fails the connection
// once the rounds are exhausted. A transport that never connected is torn
// down and renegotiated from scratch, relay-only when a TURN server is
// available: if direct paths were going to work, they would have by now.
// A transport that did connect gets one ICE restart before that.
func (m *Machine) retry() []Command {
	switch m.state {
	case StateConnecting, StateDisconnected:
	default:
		return nil
	}

	m.attempt++
	if m.attempt > m.maxAttempts {
		m.state = StateFailed
		return []Command{
			StopConnectTimer{},
			StopHeartbeat{},
			Fail{Reason: transfer.ErrConnectionFailed},
			Teardown{},
		}
	}

	m.state = StateConnecting
	m.sawOffer = false
	cmds := []Command{StartConnectTimer{}}
	if m.initiator {
		if m.wasConnected && m.attempt == 2 {
			cmds = append(cmds, CreateOffer{ICERestart: true})
		} else {
			cmds = append(cmds, CreateOffer{Fresh: true, RelayOnly: m.relayAvailable})
		}
	}
	return cmds
}
