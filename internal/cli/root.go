package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/anugrahthomas/video-room/internal/ui"
	"github.com/anugrahthomas/video-room/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "video-room",
	Short:   "Two-party video calls straight from the terminal, over WebRTC",
	Long: `video-room connects two participants in a named room and negotiates a
direct WebRTC audio/video path between them. The relay only carries the
signaling handshake; once the call is up, media flows peer-to-peer.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
