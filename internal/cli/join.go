package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/anugrahthomas/video-room/internal/config"
	"github.com/anugrahthomas/video-room/internal/engine"
	"github.com/anugrahthomas/video-room/internal/ui"
)

var (
	flagName      string
	flagDomain    string
	flagServerURL string
	flagSTUN      string
	flagTURN      string
	flagTURNUser  string
	flagTURNPass  string
	flagVideo     string
	flagAudio     string
	flagTimeout   time.Duration
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a room and start a call",
	Long: `Join a named room. If someone is already there, a call is negotiated
immediately; otherwise the call starts when the second participant arrives.

Examples:
  video-room join standup --name Alice --video me.ivf --audio me.ogg
  video-room join standup --name Bob --server-url ws://localhost:8080/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

// validateName applies the same display-name rules the webapp enforces.
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("please provide your name with --name")
	}
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			return fmt.Errorf("name should not contain numbers")
		}
	}
	if len([]rune(trimmed)) < 3 {
		return fmt.Errorf("name too short")
	}
	return nil
}

func joinRoom(roomID string) error {
	if err := validateName(flagName); err != nil {
		return err
	}
	name := strings.TrimSpace(flagName)

	cfg, err := config.Load(config.Options{
		Domain:    flagDomain,
		ServerURL: flagServerURL,
		STUN:      flagSTUN,
		TURN:      flagTURN,
		TURNUser:  flagTURNUser,
		TURNPass:  flagTURNPass,
		VideoFile: flagVideo,
		AudioFile: flagAudio,
		Timeout:   flagTimeout,
	})
	if err != nil {
		return err
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to signaling relay...")
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		stopSpinner()
		return err
	}
	defer ctx.Close()
	stopSpinner()
	ui.PrintSuccess("Connected to signaling relay")

	eng := engine.New(cfg, ctx.Client, roomID, name)
	defer eng.Close()

	ui.RenderRoomInfo(roomID, cfg.GetRoomLink(roomID))

	callUI := ui.NewCallUI(roomID, name, ui.CallHooks{
		ToggleMute:  eng.ToggleMute,
		ToggleVideo: eng.ToggleVideo,
		Stats:       eng.Stats,
	})

	go bridgeSignals(ctx, eng, callUI)
	go bridgeEvents(eng, callUI)

	stopSpinner = ui.RunSpinner("Acquiring local media...")
	if err = eng.Join(); err != nil {
		stopSpinner()
		return err
	}
	stopSpinner()

	start := time.Now()
	if err := callUI.Run(); err != nil {
		return err
	}

	printSummary(eng, time.Since(start))
	return nil
}

// bridgeSignals feeds relayed messages into the negotiation engine. It
// returns when the signaling connection closes.
func bridgeSignals(ctx *ConnectionContext, eng *engine.Engine, callUI *ui.CallUI) {
	h := ctx.Handler
	for {
		select {
		case users, ok := <-h.AllUsers:
			if !ok {
				return
			}
			eng.HandleAllUsers(users)
		case member, ok := <-h.UserJoined:
			if !ok {
				return
			}
			eng.HandleUserJoined(member)
		case offer, ok := <-h.Offer:
			if !ok {
				return
			}
			eng.HandleOffer(offer)
		case answer, ok := <-h.Answer:
			if !ok {
				return
			}
			eng.HandleAnswer(answer)
		case cand, ok := <-h.Candidate:
			if !ok {
				return
			}
			eng.HandleCandidate(cand)
		case left, ok := <-h.MemberLeft:
			if !ok {
				return
			}
			eng.HandleMemberLeft(left)
		case errMsg, ok := <-h.Error:
			if !ok {
				return
			}
			callUI.Send(ui.CallUpdate{Err: fmt.Errorf("relay: %s", errMsg)})
		}
	}
}

// bridgeEvents turns engine notifications into call view updates.
func bridgeEvents(eng *engine.Engine, callUI *ui.CallUI) {
	for ev := range eng.Events() {
		switch ev.Kind {
		case engine.EventPeerJoined:
			callUI.Send(ui.CallUpdate{PeerName: ev.PeerName})
		case engine.EventNegotiating:
			callUI.Send(ui.CallUpdate{State: ui.CallNegotiating, HasState: true, PeerName: ev.PeerName})
		case engine.EventConnected:
			callUI.Send(ui.CallUpdate{State: ui.CallConnected, HasState: true, PeerName: ev.PeerName})
		case engine.EventPeerMediaState:
			callUI.Send(ui.CallUpdate{PeerMedia: true, Muted: ev.Muted, VideoOff: ev.VideoOff})
		case engine.EventPeerLeft:
			callUI.Send(ui.CallUpdate{State: ui.CallPeerLeft, HasState: true})
		case engine.EventFailure:
			callUI.Send(ui.CallUpdate{Err: ev.Err})
		}
	}
}

func printSummary(eng *engine.Engine, elapsed time.Duration) {
	packets, bytes := eng.Stats()
	peer := "-"
	if s := eng.Session(); s != nil && s.RemoteName != "" {
		peer = s.RemoteName
	}

	fmt.Println()
	ui.RenderCallSummary(ui.CallSummary{
		Peer:     peer,
		Duration: elapsed.Round(time.Second).String(),
		Packets:  fmt.Sprintf("%d", packets),
		Received: ui.FormatBytes(bytes),
	})
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Your display name (required)")
	joinCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom relay domain")
	joinCmd.Flags().StringVar(&flagServerURL, "server-url", "", "Full websocket URL of the relay (overrides --domain)")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	joinCmd.Flags().StringVar(&flagVideo, "video", "", "VP8 video source (IVF file)")
	joinCmd.Flags().StringVar(&flagAudio, "audio", "", "Opus audio source (Ogg file)")
	joinCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Negotiation timeout (default 45s)")
}
