// Package connection negotiates and supervises the peer-to-peer transport.
// The negotiation logic lives in a pure state machine (fsm.go) that turns
// events into commands; the controller (controller.go) feeds it events from
// signaling and the transport, and executes the commands against pion.
package connection

// State is the connection lifecycle. Disconnected is recoverable; failed
// and closed are not, and closed is terminal for the whole machine.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
