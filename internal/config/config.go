package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain   = "share.meow.qzz.io"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = ""
	DefaultTURNUser = "meow"
	DefaultTURNPass = "meow-secret"
)

// Negotiation and transfer timing defaults.
const (
	DefaultGatherTimeout     = 10 * time.Second
	DefaultConnectTimeout    = 30 * time.Second
	DefaultConnectAttempts   = 3
	DefaultHeartbeatInterval = 15 * time.Second

	// Signaling poll cadence: urgent while negotiating, relaxed once the
	// data channel is up.
	DefaultPollConnecting = 500 * time.Millisecond
	DefaultPollConnected  = 3 * time.Second
)

// Config holds application configuration.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// ServerURL and WebSocketURL are constructed from Domain.
	ServerURL    string
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	GatherTimeout     time.Duration
	ConnectTimeout    time.Duration
	ConnectAttempts   int
	HeartbeatInterval time.Duration
	PollConnecting    time.Duration
	PollConnected     time.Duration
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstNonEmpty(opts.Domain, os.Getenv("MEOW_DOMAIN"), DefaultDomain)
	stun := firstNonEmpty(opts.STUNServer, os.Getenv("MEOW_STUN_SERVER"), DefaultSTUN)
	turn := firstNonEmpty(opts.TURNServer, os.Getenv("MEOW_TURN_SERVER"), DefaultTURN)
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("MEOW_TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("MEOW_TURN_PASSWORD"), DefaultTURNPass)

	cfg := &Config{
		Domain:            domain,
		ServerURL:         fmt.Sprintf("https://%s", domain),
		WebSocketURL:      fmt.Sprintf("wss://%s/ws", domain),
		STUNServer:        stun,
		TURNServer:        turn,
		TURNUser:          turnUser,
		TURNPass:          turnPass,
		ForceRelay:        opts.ForceRelay,
		GatherTimeout:     DefaultGatherTimeout,
		ConnectTimeout:    DefaultConnectTimeout,
		ConnectAttempts:   DefaultConnectAttempts,
		HeartbeatInterval: DefaultHeartbeatInterval,
		PollConnecting:    DefaultPollConnecting,
		PollConnected:     DefaultPollConnected,
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without a TURN server configured")
	}

	return cfg, nil
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
