package cli

import (
	"github.com/anugrahthomas/video-room/internal/config"
	"github.com/anugrahthomas/video-room/internal/engine"
	"github.com/anugrahthomas/video-room/internal/signaling"
)

// ConnectionContext bundles the signaling connection and its message
// handler for the lifetime of one room visit.
type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
}

// NewConnectionContext dials the relay and starts the message handler.
func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return nil, engine.NewError("connect to relay", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
	}, nil
}

// Close shuts the signaling channel down. Safe to call more than once.
func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
