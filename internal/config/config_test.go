package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "https://"+DefaultDomain, cfg.ServerURL)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultConnectAttempts, cfg.ConnectAttempts)
	assert.Equal(t, DefaultPollConnecting, cfg.PollConnecting)
	assert.Equal(t, DefaultPollConnected, cfg.PollConnected)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("MEOW_DOMAIN", "env.example.com")
	t.Setenv("MEOW_STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain, "flags beat environment")
	assert.Equal(t, "stun:env.example.com:3478", cfg.STUNServer, "environment beats defaults")
}

func TestForceRelayRequiresTURN(t *testing.T) {
	_, err := Load(Options{ForceRelay: true})
	assert.Error(t, err, "relay mode without a TURN server is unusable")

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:turn.example.com"})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
}

func TestGetTURNServers(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Nil(t, cfg.GetTURNServers(), "no TURN server configured by default")

	cfg, err = Load(Options{TURNServer: "turn:turn.example.com"})
	require.NoError(t, err)

	urls := cfg.GetTURNServers()
	require.Len(t, urls, 3)
	assert.Contains(t, urls[0], "transport=udp")
	assert.Contains(t, urls[1], "transport=tcp")
	assert.Contains(t, urls[2], "turns:")
}
