package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CallState represents where the call currently stands.
type CallState int

const (
	CallWaiting CallState = iota
	CallNegotiating
	CallConnected
	CallPeerLeft
	CallFailed
)

// CallUpdate is a message sent from the engine's event loop to the view.
type CallUpdate struct {
	State     CallState
	HasState  bool
	PeerName  string
	PeerMedia bool
	Muted     bool
	VideoOff  bool
	Err       error
}

// CallHooks are the actions the view can trigger on keypresses.
type CallHooks struct {
	ToggleMute  func() bool
	ToggleVideo func() bool
	Stats       func() (packets, bytes uint64)
}

// CallUI wraps the bubbletea program for the in-call view.
type CallUI struct {
	program    *tea.Program
	updateChan chan CallUpdate
}

// NewCallUI creates the in-call view for the given room and local name.
func NewCallUI(roomID, localName string, hooks CallHooks) *CallUI {
	updateChan := make(chan CallUpdate, 16)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &callModel{
		roomID:     roomID,
		localName:  localName,
		state:      CallWaiting,
		spinner:    s,
		hooks:      hooks,
		updateChan: updateChan,
		startTime:  time.Now(),
	}

	return &CallUI{
		program:    tea.NewProgram(model),
		updateChan: updateChan,
	}
}

// Send pushes an update into the view.
func (c *CallUI) Send(update CallUpdate) {
	select {
	case c.updateChan <- update:
	default:
	}
}

// Run blocks until the user quits or the view is stopped.
func (c *CallUI) Run() error {
	_, err := c.program.Run()
	return err
}

// Quit stops the view from outside.
func (c *CallUI) Quit() {
	c.program.Quit()
}

type callModel struct {
	roomID    string
	localName string

	state    CallState
	peerName string
	err      error

	localMuted    bool
	localVideoOff bool
	peerMuted     bool
	peerVideoOff  bool

	packets uint64
	bytes   uint64

	spinner    spinner.Model
	hooks      CallHooks
	updateChan chan CallUpdate
	startTime  time.Time
	quitting   bool
}

type callUpdateMsg CallUpdate

type callTickMsg struct{}

func (m *callModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return callUpdateMsg(<-m.updateChan)
	}
}

func callTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return callTickMsg{}
	})
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate(), callTick())
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "m":
			if m.hooks.ToggleMute != nil {
				m.localMuted = m.hooks.ToggleMute()
			}
			return m, nil
		case "v":
			if m.hooks.ToggleVideo != nil {
				m.localVideoOff = m.hooks.ToggleVideo()
			}
			return m, nil
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case callUpdateMsg:
		update := CallUpdate(msg)
		if update.HasState {
			m.state = update.State
		}
		if update.PeerName != "" {
			m.peerName = update.PeerName
		}
		if update.PeerMedia {
			m.peerMuted = update.Muted
			m.peerVideoOff = update.VideoOff
		}
		if update.Err != nil {
			m.err = update.Err
			m.state = CallFailed
		}
		return m, m.waitForUpdate()

	case callTickMsg:
		if m.hooks.Stats != nil {
			m.packets, m.bytes = m.hooks.Stats()
		}
		return m, callTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *callModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Video Call Room") + "\n")
	b.WriteString(MutedStyle.Render("Room: ") + BoldStyle.Render(m.roomID) + "\n\n")

	b.WriteString(m.statusLine() + "\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.participantBox(m.localName+" (you)", m.localMuted, m.localVideoOff),
		"  ",
		m.remoteBox(),
	))

	b.WriteString("\n\n")
	b.WriteString(MutedStyle.Render("m: mute/unmute · v: video on/off · q: leave"))
	b.WriteString("\n")

	return b.String()
}

func (m *callModel) statusLine() string {
	switch m.state {
	case CallWaiting:
		return m.spinner.View() + " Waiting for someone to join..."
	case CallNegotiating:
		return m.spinner.View() + " Negotiating connection..."
	case CallConnected:
		elapsed := time.Since(m.startTime).Round(time.Second)
		return SuccessStyle.Render(IconSuccess) + fmt.Sprintf(" Connected · %s · %d pkts · %s",
			elapsed, m.packets, FormatBytes(m.bytes))
	case CallPeerLeft:
		return WarningStyle.Render("Peer left the room. Waiting for someone to join...")
	case CallFailed:
		if m.err != nil {
			return ErrorStyle.Render(IconError + " " + m.err.Error())
		}
		return ErrorStyle.Render(IconError + " call failed")
	}
	return ""
}

func (m *callModel) participantBox(name string, muted, videoOff bool) string {
	flags := make([]string, 0, 2)
	if muted {
		flags = append(flags, WarningStyle.Render("muted"))
	}
	if videoOff {
		flags = append(flags, WarningStyle.Render("video off"))
	}
	status := SuccessStyle.Render("live")
	if len(flags) > 0 {
		status = strings.Join(flags, " · ")
	}
	return BoxStyle.Render(BoldStyle.Render(name) + "\n" + status)
}

func (m *callModel) remoteBox() string {
	if m.peerName == "" {
		return InfoBoxStyle.Render(MutedStyle.Render("Nobody here yet"))
	}
	if m.state != CallConnected {
		return InfoBoxStyle.Render(BoldStyle.Render(m.peerName) + "\n" + MutedStyle.Render("connecting..."))
	}
	return m.participantBox(m.peerName, m.peerMuted, m.peerVideoOff)
}
