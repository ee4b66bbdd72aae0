package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/anugrahthomas/video-room/internal/logging"
	"github.com/anugrahthomas/video-room/internal/relay"
)

// Health check endpoint.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

func main() {
	logging.Init()

	hub := relay.NewHub()

	// The hub's event loop is the single owner of all rooms and names.
	go hub.Run()

	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ws", relay.ServeWs(hub))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("starting signaling relay", "addr", ":"+port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
