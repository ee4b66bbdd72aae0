package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DOMAIN", "SERVER_URL", "STUN_SERVER", "NEGOTIATION_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Empty(t, cfg.TURNServer)
	assert.Equal(t, DefaultTimeout, cfg.NegotiationTimeout)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DOMAIN", "rooms.example.com")
	t.Setenv("STUN_SERVER", "stun:stun.example.com:3478")
	t.Setenv("NEGOTIATION_TIMEOUT", "90s")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "rooms.example.com", cfg.Domain)
	assert.Equal(t, "wss://rooms.example.com/ws", cfg.WebSocketURL)
	assert.Equal(t, "stun:stun.example.com:3478", cfg.STUNServer)
	assert.Equal(t, 90*time.Second, cfg.NegotiationTimeout)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("NEGOTIATION_TIMEOUT", "90s")

	cfg, err := Load(Options{Domain: "flag.example.com", Timeout: 10 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, 10*time.Second, cfg.NegotiationTimeout)
}

func TestLoadServerURLBeatsDomain(t *testing.T) {
	cfg, err := Load(Options{Domain: "ignored.example.com", ServerURL: "ws://localhost:8080/ws"})
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("NEGOTIATION_TIMEOUT", "soonish")

	_, err := Load(Options{})
	assert.Error(t, err)
}

func TestGetRoomLink(t *testing.T) {
	cfg := &Config{Domain: "rooms.example.com"}
	assert.Equal(t, "https://rooms.example.com/room/standup", cfg.GetRoomLink("standup"))
}

func TestGetTURNServers(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.GetTURNServers())

	cfg.TURNServer = "turn:turn.example.com"
	servers := cfg.GetTURNServers()
	require.Len(t, servers, 2)
	assert.Equal(t, "turn:turn.example.com:3478?transport=udp", servers[0])
	assert.Equal(t, "turn:turn.example.com:3478?transport=tcp", servers[1])
}
