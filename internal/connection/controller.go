package connection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/config"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

const dataChannelLabel = "data"

// channelOpen and channelClosed are controller-internal events: they carry
// data-channel lifecycle changes from pion callback goroutines onto the Run
// loop, which owns all controller state.
type (
	channelOpen struct {
		dc *pion.DataChannel
		ch *transfer.Channel
	}
	channelClosed struct{}
)

func (channelOpen) isEvent()   {}
func (channelClosed) isEvent() {}

// Controller owns one peer connection. It feeds signaling messages, pion
// transport callbacks, and timers into the negotiation machine as events,
// and executes the resulting commands. All machine access happens on the
// Run loop goroutine; callbacks only push events.
type Controller struct {
	cfg       *config.Config
	client    *signaling.Client
	machine   *Machine
	initiator bool
	log       *slog.Logger

	ctx context.Context

	pc        *pion.PeerConnection
	dc        *pion.DataChannel
	channel   *transfer.Channel
	relayOnly bool

	// remote candidates that arrive before the remote description
	pending   []pion.ICECandidateInit
	remoteSet bool

	events   chan Event
	channels chan *transfer.Channel
	failures chan error

	connectTimer  *time.Timer
	heartbeatStop chan struct{}

	// last observed transport state, run-loop only, named in the terminal error
	lastTransport string

	closeOnce sync.Once
	done      chan struct{}
}

// NewController prepares a controller for one short-code pairing. The
// initiator creates the data channel and the first offer; the responder
// answers.
func NewController(cfg *config.Config, client *signaling.Client, initiator bool) (*Controller, error) {
	relayAvailable := cfg.GetTURNServers() != nil
	c := &Controller{
		cfg:       cfg,
		client:    client,
		machine:   NewMachine(initiator, relayAvailable, cfg.ConnectAttempts),
		initiator: initiator,
		log:       slog.Default().With("component", "connection", "initiator", initiator),
		events:    make(chan Event, 16),
		channels:  make(chan *transfer.Channel, 1),
		failures:  make(chan error, 1),
		done:      make(chan struct{}),
	}

	if err := c.buildTransport(cfg.ForceRelay); err != nil {
		return nil, err
	}
	return c, nil
}

// Channel delivers the transfer channel once the data channel opens. A
// reconnect that reopens the channel delivers again.
func (c *Controller) Channel() <-chan *transfer.Channel {
	return c.channels
}

// Failures delivers the terminal negotiation error, if any.
func (c *Controller) Failures() <-chan error {
	return c.failures
}

// Close requests shutdown. Safe to call from any goroutine, any number of
// times; the Run loop performs the actual teardown.
func (c *Controller) Close() {
	c.push(Close{})
}

// Run drives negotiation until the connection is closed or the context
// ends. It starts the signaling client and must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.client.Start(ctx)
	c.dispatch(Start{})

	incoming := c.client.Incoming()
	unhealthy := c.client.Unhealthy()
	for {
		select {
		case <-ctx.Done():
			c.dispatch(Close{})
			return ctx.Err()

		case <-c.done:
			return nil

		case ev := <-c.events:
			c.dispatch(ev)

		case <-unhealthy:
			unhealthy = nil
			c.dispatch(SignalingDown{})

		case msg, ok := <-incoming:
			if !ok {
				incoming = nil
				continue
			}
			c.handleSignal(msg)
		}
	}
}

// handleSignal translates one relay message into a machine event.
func (c *Controller) handleSignal(msg signaling.Message) {
	switch msg.Type {
	case signaling.TypeOffer:
		var payload signaling.SDPPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.log.Warn("dropping malformed offer", "error", err)
			return
		}
		c.dispatch(RemoteOffer{SDP: payload.SDP})

	case signaling.TypeAnswer:
		var payload signaling.SDPPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.log.Warn("dropping malformed answer", "error", err)
			return
		}
		c.dispatch(RemoteAnswer{SDP: payload.SDP})

	case signaling.TypeCandidate:
		c.dispatch(RemoteCandidate{Candidate: msg.Data})

	case signaling.TypePing:
		if err := c.client.Publish(c.ctx, signaling.TypePong, nil); err != nil {
			c.log.Debug("relay pong failed", "error", err)
		}

	case signaling.TypePong:
		// peer is alive, nothing to do

	default:
		c.log.Warn("dropping unknown signal", "type", msg.Type)
	}
}

// dispatch runs one event through the machine and executes its commands.
// Only called from the Run goroutine.
func (c *Controller) dispatch(ev Event) {
	switch ev := ev.(type) {
	case channelOpen:
		c.dc = ev.dc
		c.channel = ev.ch
		select {
		case c.channels <- ev.ch:
		default:
		}
		return
	case channelClosed:
		// under a live transport the channel only closes when the peer
		// went away; after teardown or mid-negotiation it is routine
		if c.machine.State() == StateConnected {
			c.log.Warn("data channel closed under a live transport")
			select {
			case c.failures <- transfer.NewError("channel", transfer.ErrChannelClosed):
			default:
			}
		}
		return
	case TransportUp:
		c.lastTransport = "connected"
	case TransportDown:
		c.lastTransport = "disconnected"
	case TransportFailed:
		c.lastTransport = "failed"
	}
	for _, cmd := range c.machine.Apply(ev) {
		c.execute(cmd)
	}
}

func (c *Controller) execute(cmd Command) {
	switch cmd := cmd.(type) {
	case CreateOffer:
		c.createOffer(cmd)
	case CreateAnswer:
		c.createAnswer(cmd)
	case ApplyAnswer:
		c.applyAnswer(cmd.SDP)
	case AddCandidate:
		c.addCandidate(cmd.Candidate)
	case StartConnectTimer:
		c.startConnectTimer()
	case StopConnectTimer:
		c.stopConnectTimer()
	case StartHeartbeat:
		c.startHeartbeat()
	case StopHeartbeat:
		c.stopHeartbeat()
	case SendHeartbeat:
		c.sendHeartbeat()
	case Fail:
		err := failureError(cmd.Reason, c.lastTransport)
		c.log.Error("connection failed", "attempts", c.machine.Attempt()-1, "error", err)
		select {
		case c.failures <- err:
		default:
		}
	case Teardown:
		c.teardown()
	}
}

// failureError picks the terminal error for a failed negotiation, naming
// the relay or the last observed transport state.
func failureError(reason error, lastTransport string) error {
	switch {
	case errors.Is(reason, transfer.ErrSignalingError):
		return transfer.WrapError("connect", reason, "relay unreachable")
	case lastTransport == "disconnected":
		return transfer.WrapError("connect", transfer.ErrPeerDisconnected, "transport disconnected")
	case lastTransport != "":
		return transfer.WrapError("connect", reason, "transport "+lastTransport)
	default:
		return transfer.WrapError("connect", reason, "negotiation attempts exhausted")
	}
}

// push queues an event from outside the Run loop (pion callbacks, timers).
func (c *Controller) push(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// buildTransport creates the peer connection, wires its callbacks, and on
// the initiator side creates the ordered data channel. The chunk protocol
// depends on ordered delivery, so the channel is never configured partial
// or unordered.
func (c *Controller) buildTransport(relayOnly bool) error {
	iceServers := []pion.ICEServer{{URLs: c.cfg.GetSTUNServers()}}
	if turn := c.cfg.GetTURNServers(); turn != nil {
		user, pass := c.cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   user,
			Credential: pass,
		})
	}

	policy := pion.ICETransportPolicyAll
	if relayOnly && c.cfg.GetTURNServers() != nil {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return transfer.NewError("create peer connection", err)
	}

	pc.OnICECandidate(func(cand *pion.ICECandidate) {
		if cand == nil {
			return
		}
		data, err := json.Marshal(cand.ToJSON())
		if err != nil {
			return
		}
		if err := c.client.Publish(c.ctxOrBackground(), signaling.TypeCandidate, data); err != nil {
			c.log.Debug("candidate publish failed", "error", err)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		c.log.Debug("transport state", "state", state.String())
		switch state {
		case pion.PeerConnectionStateConnected:
			c.client.SetConnected(true)
			c.push(TransportUp{})
		case pion.PeerConnectionStateDisconnected:
			c.client.SetConnected(false)
			c.push(TransportDown{})
		case pion.PeerConnectionStateFailed:
			c.client.SetConnected(false)
			c.push(TransportFailed{})
		}
	})

	if c.initiator {
		ordered := true
		dc, err := pc.CreateDataChannel(dataChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
		if err != nil {
			pc.Close()
			return transfer.NewError("create data channel", err)
		}
		c.adoptDataChannel(dc)
	} else {
		pc.OnDataChannel(func(dc *pion.DataChannel) {
			c.adoptDataChannel(dc)
		})
	}

	c.pc = pc
	c.relayOnly = relayOnly
	c.remoteSet = false
	c.pending = nil
	return nil
}

// adoptDataChannel wraps a data channel in the transfer framing. Adoption
// itself happens on the Run loop via a channelOpen event; this callback
// goroutine never touches controller state.
func (c *Controller) adoptDataChannel(dc *pion.DataChannel) {
	ch := transfer.NewChannel(dc)
	ch.Attach(dc)

	dc.OnOpen(func() {
		c.log.Debug("data channel open", "label", dc.Label())
		c.push(channelOpen{dc: dc, ch: ch})
	})
	dc.OnClose(func() {
		c.log.Debug("data channel closed", "label", dc.Label())
		c.push(channelClosed{})
	})
}

func (c *Controller) createOffer(cmd CreateOffer) {
	// a fresh round drops the stuck transport and negotiates on a new one;
	// relay-only rounds restrict the new transport to TURN candidates
	if cmd.Fresh {
		c.teardown()
		if err := c.buildTransport(cmd.RelayOnly); err != nil {
			c.log.Error("transport rebuild failed", "error", err)
			c.push(TransportFailed{})
			return
		}
		if c.relayOnly {
			c.log.Info("retrying with relay-only candidates")
		} else {
			c.log.Info("retrying on a fresh transport")
		}
	}

	var opts *pion.OfferOptions
	if cmd.ICERestart {
		opts = &pion.OfferOptions{ICERestart: true}
	}

	offer, err := c.pc.CreateOffer(opts)
	if err != nil {
		c.log.Error("create offer failed", "error", err)
		c.push(TransportFailed{})
		return
	}
	gathered := pion.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		c.log.Error("set local description failed", "error", err)
		c.push(TransportFailed{})
		return
	}
	c.watchGathering(gathered)
	c.publishSDP(signaling.TypeOffer, offer.SDP)
}

func (c *Controller) createAnswer(cmd CreateAnswer) {
	// a repeat offer means the peer renegotiated from scratch, so the old
	// transport's descriptions are stale and it has to go too
	if cmd.Fresh {
		relayOnly := c.relayOnly
		c.teardown()
		if err := c.buildTransport(relayOnly); err != nil {
			c.log.Error("transport rebuild failed", "error", err)
			c.push(TransportFailed{})
			return
		}
		c.log.Info("answering on a fresh transport")
	}

	desc := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: cmd.SDP}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		c.log.Error("set remote offer failed", "error", err)
		return
	}
	c.flushCandidates()

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		c.log.Error("create answer failed", "error", err)
		c.push(TransportFailed{})
		return
	}
	gathered := pion.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		c.log.Error("set local description failed", "error", err)
		c.push(TransportFailed{})
		return
	}
	c.watchGathering(gathered)
	c.publishSDP(signaling.TypeAnswer, answer.SDP)
}

func (c *Controller) applyAnswer(sdp string) {
	desc := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}
	if err := c.pc.SetRemoteDescription(desc); err != nil {
		c.log.Error("set remote answer failed", "error", err)
		return
	}
	c.flushCandidates()
}

func (c *Controller) addCandidate(data json.RawMessage) {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(data, &cand); err != nil {
		c.log.Warn("dropping malformed candidate", "error", err)
		return
	}
	if !c.remoteSet {
		c.pending = append(c.pending, cand)
		return
	}
	if err := c.pc.AddICECandidate(cand); err != nil {
		c.log.Warn("add candidate failed", "error", err)
	}
}

// flushCandidates applies candidates that trickled in before the remote
// description was set.
func (c *Controller) flushCandidates() {
	c.remoteSet = true
	for _, cand := range c.pending {
		if err := c.pc.AddICECandidate(cand); err != nil {
			c.log.Warn("add buffered candidate failed", "error", err)
		}
	}
	c.pending = nil
}

// watchGathering bounds how long candidate gathering may run. Trickle ICE
// already published the description, so a slow gather only costs the late
// candidates; the log line is there to explain stalled rounds.
func (c *Controller) watchGathering(gathered <-chan struct{}) {
	timeout := c.cfg.GatherTimeout
	go func() {
		select {
		case <-gathered:
		case <-time.After(timeout):
			c.log.Debug("candidate gathering incomplete", "timeout", timeout)
		case <-c.done:
		}
	}()
}

func (c *Controller) publishSDP(msgType, sdp string) {
	data, err := json.Marshal(signaling.SDPPayload{SDP: sdp})
	if err != nil {
		return
	}
	if err := c.client.Publish(c.ctxOrBackground(), msgType, data); err != nil {
		c.log.Warn("sdp publish failed", "type", msgType, "error", err)
	}
}

func (c *Controller) startConnectTimer() {
	c.stopConnectTimer()
	c.connectTimer = time.AfterFunc(c.cfg.ConnectTimeout, func() {
		c.push(ConnectTimeout{})
	})
}

func (c *Controller) stopConnectTimer() {
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
}

func (c *Controller) startHeartbeat() {
	c.stopHeartbeat()
	stop := make(chan struct{})
	c.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.push(HeartbeatTick{})
			}
		}
	}()
}

func (c *Controller) stopHeartbeat() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

// sendHeartbeat pings over the data channel when it is up, otherwise
// through the relay so the peer still sees liveness during recovery.
func (c *Controller) sendHeartbeat() {
	if c.channel != nil {
		if err := c.channel.SendControl(transfer.NewPingMessage()); err == nil {
			return
		}
	}
	if err := c.client.Publish(c.ctxOrBackground(), signaling.TypePing, nil); err != nil {
		c.log.Debug("relay heartbeat failed", "error", err)
	}
}

func (c *Controller) teardown() {
	if c.dc != nil {
		c.dc.Close()
		c.dc = nil
	}
	if c.pc != nil {
		c.pc.Close()
		c.pc = nil
	}
	c.channel = nil

	if c.machine.State() == StateClosed {
		c.closeOnce.Do(func() {
			c.client.Close()
			close(c.done)
		})
	}
}

func (c *Controller) ctxOrBackground() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}
