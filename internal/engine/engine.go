package engine

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/anugrahthomas/video-room/internal/config"
	"github.com/anugrahthomas/video-room/internal/media"
	"github.com/anugrahthomas/video-room/internal/protocol"
)

// State is the engine's position in the negotiation lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingMedia
	StateJoined
	StateOffering
	StateAnswering
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingMedia:
		return "awaiting-media"
	case StateJoined:
		return "joined"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Signaler sends messages toward the relay. *signaling.Client satisfies it.
type Signaler interface {
	Send(*protocol.Message)
}

// AcquireFunc produces the local media stream. Swappable so tests can
// supply tracks without touching the filesystem.
type AcquireFunc func() (*media.Stream, error)

// Engine drives one participant's peer connection through the
// offer/answer/ICE protocol. One instance per room visit; it owns the peer
// connection and the local media stream for its lifetime.
type Engine struct {
	mu sync.Mutex

	log      *slog.Logger
	cfg      *config.Config
	signaler Signaler
	roomID   string
	name     string
	acquire  AcquireFunc

	state   State
	stream  *media.Stream
	pc      *pion.PeerConnection
	session *Session

	// peerName remembers a user-joined announcement that arrived before
	// any session exists, so the answering side can display it.
	peerName string

	// pending buffers remote candidates that arrived before the remote
	// description; they are flushed in arrival order once it is set.
	pending []pion.ICECandidateInit

	control  *pion.DataChannel
	watchdog *time.Timer

	packets atomic.Uint64
	bytes   atomic.Uint64

	events    chan Event
	closeOnce sync.Once
}

// Option customizes an Engine.
type Option func(*Engine)

// WithAcquire overrides how local media is obtained.
func WithAcquire(fn AcquireFunc) Option {
	return func(e *Engine) { e.acquire = fn }
}

// New creates an engine for one visit to roomID under the given display
// name.
func New(cfg *config.Config, signaler Signaler, roomID, name string, opts ...Option) *Engine {
	e := &Engine{
		log:      slog.Default().With("room", roomID),
		cfg:      cfg,
		signaler: signaler,
		roomID:   roomID,
		name:     name,
		state:    StateIdle,
		events:   make(chan Event, 16),
	}
	e.acquire = func() (*media.Stream, error) {
		return media.Open(cfg.VideoFile, cfg.AudioFile)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the engine's notification channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns the active peer session, or nil outside a negotiation.
func (e *Engine) Session() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Stats returns how many remote packets and bytes have arrived so far.
func (e *Engine) Stats() (packets, bytes uint64) {
	return e.packets.Load(), e.bytes.Load()
}

// Join acquires local media and enters the room. On media failure the
// engine never reaches the joined state and the error is returned for the
// caller to surface; no retry is attempted.
func (e *Engine) Join() error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		if e.state == StateClosed {
			return ErrClosed
		}
		return ErrAlreadyJoined
	}
	e.state = StateAwaitingMedia
	e.mu.Unlock()

	// May block on disk; never under the lock.
	stream, err := e.acquire()
	if err != nil {
		return WrapError("acquire media", ErrMediaUnavailable, err.Error())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateClosed {
		stream.Close()
		return ErrClosed
	}

	e.stream = stream
	e.state = StateJoined

	msg, err := protocol.NewMessage(protocol.TypeJoinRoom, e.roomID,
		protocol.JoinPayload{Name: e.name})
	if err != nil {
		return NewError("join room", err)
	}
	e.signaler.Send(msg)
	e.log.Info("joined room", "name", e.name)
	return nil
}

// HandleAllUsers processes the roster snapshot the relay returns after a
// join. A non-empty snapshot makes this side the initiator; only the first
// entry is taken as the negotiation partner.
func (e *Engine) HandleAllUsers(users []protocol.MemberInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateJoined || len(users) == 0 {
		return
	}

	partner := users[0]
	if err := e.startNegotiationLocked(RoleInitiator, partner.SocketID, partner.Name); err != nil {
		e.emit(Event{Kind: EventFailure, Err: err})
		return
	}

	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("create offer", err)})
		return
	}
	if err := e.pc.SetLocalDescription(offer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("set local description", err)})
		return
	}
	e.session.LocalDescription = e.pc.LocalDescription()

	raw, err := json.Marshal(e.session.LocalDescription)
	if err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("encode offer", err)})
		return
	}
	msg, _ := protocol.NewMessage(protocol.TypeOffer, e.roomID,
		protocol.OfferPayload{Offer: raw})
	e.signaler.Send(msg)

	e.state = StateOffering
	e.log.Info("sent offer", "partner", partner.SocketID)
	e.emit(Event{Kind: EventNegotiating, PeerName: partner.Name})
}

// HandleUserJoined processes a join notification. With a session already
// active it only refreshes the displayed name; it never swaps the
// negotiation partner.
func (e *Engine) HandleUserJoined(member protocol.MemberInfo) {
	e.mu.Lock()
	if e.session != nil {
		if e.session.RemoteID == member.SocketID {
			e.session.RemoteName = member.Name
		}
	} else {
		e.peerName = member.Name
	}
	e.mu.Unlock()

	e.emit(Event{Kind: EventPeerJoined, PeerName: member.Name})
}

// HandleOffer processes a relayed offer: this side becomes the responder,
// applies the offer, and returns an answer through the relay.
func (e *Engine) HandleOffer(payload *protocol.OfferPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateJoined {
		e.log.Warn("ignoring offer", "state", e.state.String())
		return
	}

	var offer pion.SessionDescription
	if err := json.Unmarshal(payload.Offer, &offer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("decode offer", err)})
		return
	}

	if err := e.startNegotiationLocked(RoleResponder, payload.SenderID, e.peerName); err != nil {
		e.emit(Event{Kind: EventFailure, Err: err})
		return
	}

	if err := e.pc.SetRemoteDescription(offer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("set remote description", err)})
		return
	}
	e.session.RemoteDescription = &offer
	e.flushPendingLocked()

	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("create answer", err)})
		return
	}
	if err := e.pc.SetLocalDescription(answer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("set local description", err)})
		return
	}
	e.session.LocalDescription = e.pc.LocalDescription()

	raw, err := json.Marshal(e.session.LocalDescription)
	if err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("encode answer", err)})
		return
	}
	msg, _ := protocol.NewMessage(protocol.TypeAnswer, e.roomID,
		protocol.AnswerPayload{Answer: raw})
	e.signaler.Send(msg)

	e.state = StateAnswering
	e.log.Info("sent answer", "partner", payload.SenderID)
	e.emit(Event{Kind: EventNegotiating, PeerName: e.session.RemoteName})
}

// HandleAnswer applies the relayed answer to the offer this side sent.
func (e *Engine) HandleAnswer(payload *protocol.AnswerPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.Role != RoleInitiator {
		e.log.Warn("ignoring unexpected answer")
		return
	}

	var answer pion.SessionDescription
	if err := json.Unmarshal(payload.Answer, &answer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("decode answer", err)})
		return
	}

	if err := e.pc.SetRemoteDescription(answer); err != nil {
		e.emit(Event{Kind: EventFailure, Err: NewError("set remote description", err)})
		return
	}
	e.session.RemoteDescription = &answer
	e.flushPendingLocked()
	e.log.Info("applied answer")
}

// HandleCandidate applies a relayed ICE candidate, queueing it when the
// remote description is not set yet. Application failures are logged and
// swallowed; a single lost candidate may still leave a working path.
func (e *Engine) HandleCandidate(payload *protocol.CandidatePayload) {
	var cand pion.ICECandidateInit
	if err := json.Unmarshal(payload.Candidate, &cand); err != nil {
		e.log.Warn("undecodable ICE candidate", "err", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return
	}
	if e.pc == nil || e.pc.RemoteDescription() == nil {
		e.pending = append(e.pending, cand)
		return
	}

	if err := e.pc.AddICECandidate(cand); err != nil {
		e.log.Warn("failed to add ICE candidate", "err", err)
	}
}

// HandleMemberLeft tears down the active session when the negotiation
// partner's connection is gone, returning to the joined state so a new
// partner can start over.
func (e *Engine) HandleMemberLeft(payload protocol.MemberLeftPayload) {
	e.mu.Lock()
	if e.state == StateClosed || e.session == nil || e.session.RemoteID != payload.SocketID {
		e.mu.Unlock()
		return
	}

	name := e.session.RemoteName
	e.teardownSessionLocked()
	e.state = StateJoined
	e.mu.Unlock()

	e.log.Info("peer left", "conn", payload.SocketID)
	e.emit(Event{Kind: EventPeerLeft, PeerName: name})
}

// ToggleMute flips the local audio tracks and announces the new state to
// the peer. A no-op before media is acquired.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()

	if stream == nil {
		return false
	}
	muted := stream.ToggleMute()
	e.announceMediaState()
	return muted
}

// ToggleVideo flips the local video tracks and announces the new state to
// the peer. A no-op before media is acquired.
func (e *Engine) ToggleVideo() bool {
	e.mu.Lock()
	stream := e.stream
	e.mu.Unlock()

	if stream == nil {
		return false
	}
	off := stream.ToggleVideo()
	e.announceMediaState()
	return off
}

// Close releases the peer connection and the local media tracks. It can be
// called from any state, tolerates partial setup, and is idempotent. The
// signaling channel itself is owned and closed by the connection context.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.state = StateClosed
		e.stopWatchdogLocked()
		e.sendByeLocked()

		if e.pc != nil {
			e.pc.Close()
			e.pc = nil
		}
		if e.stream != nil {
			e.stream.Close()
			e.stream = nil
		}
		e.session = nil
		e.pending = nil
		e.mu.Unlock()

		e.log.Info("engine closed")
	})
}

// startNegotiationLocked does the peer-connection setup shared by both
// roles: tracks attached, candidate forwarding, remote-track handling,
// control channel, watchdog. Caller holds e.mu.
func (e *Engine) startNegotiationLocked(role Role, remoteID, remoteName string) error {
	pc, err := newPeerConnection(e.cfg)
	if err != nil {
		return err
	}
	e.pc = pc
	e.session = &Session{Role: role, RemoteID: remoteID, RemoteName: remoteName}

	for _, t := range e.stream.Tracks() {
		if _, err := pc.AddTrack(t.Local()); err != nil {
			return NewError("add local track", err)
		}
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		e.sendCandidate(c.ToJSON())
	})

	pc.OnTrack(e.onRemoteTrack)

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		e.log.Debug("peer connection state", "state", state.String())
	})

	if role == RoleInitiator {
		dc, err := pc.CreateDataChannel(controlChannelLabel, nil)
		if err != nil {
			return NewError("create control channel", err)
		}
		e.attachControlLocked(dc)
	} else {
		pc.OnDataChannel(func(dc *pion.DataChannel) {
			e.mu.Lock()
			e.attachControlLocked(dc)
			e.mu.Unlock()
		})
	}

	e.watchdog = time.AfterFunc(e.cfg.NegotiationTimeout, e.onNegotiationTimeout)
	return nil
}

func (e *Engine) sendCandidate(cand pion.ICECandidateInit) {
	raw, err := json.Marshal(cand)
	if err != nil {
		e.log.Warn("failed to encode ICE candidate", "err", err)
		return
	}
	msg, _ := protocol.NewMessage(protocol.TypeICECandidate, e.roomID,
		protocol.CandidatePayload{Candidate: raw})

	e.mu.Lock()
	if e.session != nil {
		e.session.SentCandidates = append(e.session.SentCandidates, cand)
	}
	closed := e.state == StateClosed
	e.mu.Unlock()

	if !closed {
		e.signaler.Send(msg)
	}
}

// onRemoteTrack marks the session connected on first remote track and
// drains the track, counting traffic for the UI.
func (e *Engine) onRemoteTrack(track *pion.TrackRemote, _ *pion.RTPReceiver) {
	e.mu.Lock()
	if e.state == StateOffering || e.state == StateAnswering {
		e.state = StateConnected
		e.stopWatchdogLocked()
		name := ""
		if e.session != nil {
			name = e.session.RemoteName
		}
		e.mu.Unlock()
		e.log.Info("remote media flowing", "kind", track.Kind().String())
		e.emit(Event{Kind: EventConnected, PeerName: name})
	} else {
		e.mu.Unlock()
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		e.packets.Add(1)
		e.bytes.Add(uint64(n))
	}
}

func (e *Engine) flushPendingLocked() {
	for _, cand := range e.pending {
		if err := e.pc.AddICECandidate(cand); err != nil {
			e.log.Warn("failed to add buffered ICE candidate", "err", err)
		}
	}
	e.pending = nil
}

func (e *Engine) teardownSessionLocked() {
	e.stopWatchdogLocked()
	e.control = nil
	if e.pc != nil {
		e.pc.Close()
		e.pc = nil
	}
	e.session = nil
	e.pending = nil
}

func (e *Engine) onNegotiationTimeout() {
	e.mu.Lock()
	stuck := e.state == StateOffering || e.state == StateAnswering
	e.mu.Unlock()

	if stuck {
		e.log.Warn("negotiation watchdog fired")
		e.emit(Event{Kind: EventFailure, Err: ErrNegotiationTimeout})
	}
}

func (e *Engine) stopWatchdogLocked() {
	if e.watchdog != nil {
		e.watchdog.Stop()
		e.watchdog = nil
	}
}

// emit delivers an event without ever blocking the engine; if the UI has
// stopped draining, the event is dropped.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
