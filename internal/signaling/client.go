package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	publishTimeout = 10 * time.Second

	// consecutive publish/poll failures before the client reports the
	// relay as unhealthy
	failureThreshold = 5

	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// Client is the CLI side of the SignalingChannel: it publishes negotiation
// messages to the relay over HTTP and receives the peer's messages either
// through the WebSocket push endpoint or, when that is unavailable, by
// polling. Messages originated by this client's session are never returned
// to it (the relay excludes them server-side).
type Client struct {
	serverURL string
	wsURL     string
	code      string
	sessionID string

	http     *http.Client
	incoming chan Message
	done     chan struct{}

	pollConnecting time.Duration
	pollConnected  time.Duration

	// connected relaxes the poll cadence once the direct transport exists
	connected atomic.Bool

	failures      atomic.Int32
	unhealthy     chan struct{}
	unhealthyOnce sync.Once

	// since is the newest delivered timestamp, so a fallback from the
	// push path to polling does not replay messages already seen
	since atomic.Int64

	closeOnce sync.Once
	log       *slog.Logger
}

// NewClient creates a signaling client for one short code. Each client gets
// a fresh session ID; the relay uses it for self-exclusion on poll.
func NewClient(serverURL, wsURL, code string, pollConnecting, pollConnected time.Duration) *Client {
	return &Client{
		serverURL:      serverURL,
		wsURL:          wsURL,
		code:           code,
		sessionID:      uuid.NewString(),
		http:           &http.Client{Timeout: publishTimeout},
		incoming:       make(chan Message, 32),
		done:           make(chan struct{}),
		unhealthy:      make(chan struct{}),
		pollConnecting: pollConnecting,
		pollConnected:  pollConnected,
		log:            slog.Default().With("component", "signaling"),
	}
}

// SessionID returns this client's session identifier.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Start begins receiving messages. It prefers the WebSocket push path and
// falls back to HTTP polling when the upgrade fails.
func (c *Client) Start(ctx context.Context) {
	conn, err := c.dialWebSocket()
	if err != nil {
		c.log.Debug("websocket unavailable, polling instead", "error", err)
		go c.pollLoop(ctx)
		return
	}
	go c.readPump(ctx, conn)
}

// SetConnected switches the poll cadence between the urgent (negotiating)
// and relaxed (transport established) intervals.
func (c *Client) SetConnected(connected bool) {
	c.connected.Store(connected)
}

// Unhealthy is closed once the relay has failed failureThreshold
// consecutive publish or poll attempts. It never reopens; a single
// successful request before the threshold resets the count.
func (c *Client) Unhealthy() <-chan struct{} {
	return c.unhealthy
}

// noteFailure counts one relay failure and trips the unhealthy
// notification when the run reaches the threshold.
func (c *Client) noteFailure() {
	if c.failures.Add(1) >= failureThreshold {
		c.unhealthyOnce.Do(func() {
			c.log.Warn("relay unreachable")
			close(c.unhealthy)
		})
	}
}

// Incoming returns the channel of messages published by the peer.
func (c *Client) Incoming() <-chan Message {
	return c.incoming
}

// Publish sends one signaling message to the relay.
func (c *Client) Publish(ctx context.Context, msgType string, data json.RawMessage) error {
	msg := NewMessage(c.code, c.sessionID, msgType, data)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/signal", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.noteFailure()
		return fmt.Errorf("publish signal: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		c.noteFailure()
		return fmt.Errorf("publish signal: relay returned %s", resp.Status)
	}

	c.failures.Store(0)
	return nil
}

// Close stops the client and closes the incoming channel.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) dialWebSocket() (*websocket.Conn, error) {
	if c.wsURL == "" {
		return nil, fmt.Errorf("no websocket endpoint configured")
	}

	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("code", c.code)
	q.Set("session", c.sessionID)
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readPump consumes msgpack-framed messages from the WebSocket push path.
// On any read error it falls back to polling so a flaky relay socket only
// costs latency, never the handshake.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(websocket.PongMessage, []byte(appData))
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				close(c.incoming)
			case <-ctx.Done():
				close(c.incoming)
			default:
				c.log.Debug("websocket read failed, falling back to polling", "error", err)
				go c.pollLoop(ctx)
			}
			return
		}

		var msg Message
		if err := msgpack.Unmarshal(data, &msg); err != nil {
			c.log.Warn("dropping malformed push message", "error", err)
			continue
		}
		c.deliver(msg)
	}
}

// pollLoop fetches new channel messages on a timer. The interval shortens
// while connecting and lengthens once connected.
func (c *Client) pollLoop(ctx context.Context) {
	defer close(c.incoming)

	timer := time.NewTimer(c.interval())
	defer timer.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := c.pollOnce(ctx); err != nil {
			c.log.Debug("poll failed", "error", err)
			c.noteFailure()
		} else {
			c.failures.Store(0)
		}

		timer.Reset(c.interval())
	}
}

func (c *Client) pollOnce(ctx context.Context) error {
	u := fmt.Sprintf("%s/api/signal?code=%s&session=%s&since=%d",
		c.serverURL, url.QueryEscape(c.code), url.QueryEscape(c.sessionID), c.since.Load())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build poll request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("poll signal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("poll signal: relay returned %s", resp.Status)
	}

	var msgs []Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return fmt.Errorf("decode poll response: %w", err)
	}

	for _, msg := range msgs {
		c.deliver(msg)
	}
	return nil
}

func (c *Client) deliver(msg Message) {
	if msg.Timestamp > c.since.Load() {
		c.since.Store(msg.Timestamp)
	}
	select {
	case c.incoming <- msg:
	case <-c.done:
	}
}

// interval returns the current poll cadence.
func (c *Client) interval() time.Duration {
	if c.connected.Load() {
		return c.pollConnected
	}
	return c.pollConnecting
}
