package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values (production).
const (
	DefaultDomain  = "video-room.fly.dev"
	DefaultSTUN    = "stun:stun.l.google.com:19302"
	DefaultTimeout = 45 * time.Second
)

// Config holds application configuration for the participant CLI.
type Config struct {
	// Domain is the relay server domain.
	Domain string

	// WebSocketURL is constructed from the domain unless overridden.
	WebSocketURL string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Local media sources: a VP8 video in an IVF container and an Opus
	// audio in an Ogg container.
	VideoFile string
	AudioFile string

	// NegotiationTimeout bounds how long the engine waits for a started
	// negotiation to produce remote media before giving up.
	NegotiationTimeout time.Duration
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Domain    string
	ServerURL string
	STUN      string
	TURN      string
	TURNUser  string
	TURNPass  string
	VideoFile string
	AudioFile string
	Timeout   time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstOf(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stunServer := firstOf(opts.STUN, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURN, os.Getenv("TURN_SERVER"), "")
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), "")
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), "")
	videoFile := firstOf(opts.VideoFile, os.Getenv("VIDEO_FILE"), "")
	audioFile := firstOf(opts.AudioFile, os.Getenv("AUDIO_FILE"), "")

	wsURL := firstOf(opts.ServerURL, os.Getenv("SERVER_URL"), "")
	if wsURL == "" {
		wsURL = fmt.Sprintf("wss://%s/ws", domain)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		if raw := os.Getenv("NEGOTIATION_TIMEOUT"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid NEGOTIATION_TIMEOUT: %w", err)
			}
			timeout = parsed
		}
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Config{
		Domain:             domain,
		WebSocketURL:       wsURL,
		STUNServer:         stunServer,
		TURNServer:         turnServer,
		TURNUser:           turnUser,
		TURNPass:           turnPass,
		VideoFile:          videoFile,
		AudioFile:          audioFile,
		NegotiationTimeout: timeout,
	}, nil
}

// GetRoomLink returns the webapp URL for a room ID.
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/room/%s", c.Domain, roomID)
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
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
