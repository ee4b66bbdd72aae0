package signaling

import (
	"log/slog"

	"github.com/anugrahthomas/video-room/internal/protocol"
)

// Handler routes incoming signaling messages to typed channels, one per
// message kind the negotiation engine cares about.
type Handler struct {
	client *Client

	AllUsers   chan []protocol.MemberInfo
	UserJoined chan protocol.MemberInfo
	Offer      chan *protocol.OfferPayload
	Answer     chan *protocol.AnswerPayload
	Candidate  chan *protocol.CandidatePayload
	MemberLeft chan protocol.MemberLeftPayload
	Error      chan string

	closed bool
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		AllUsers:   make(chan []protocol.MemberInfo, 1),
		UserJoined: make(chan protocol.MemberInfo, 1),
		Offer:      make(chan *protocol.OfferPayload, 1),
		Answer:     make(chan *protocol.AnswerPayload, 1),
		Candidate:  make(chan *protocol.CandidatePayload, 32),
		MemberLeft: make(chan protocol.MemberLeftPayload, 1),
		Error:      make(chan string, 1),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection closes.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeAllUsers:
			users, err := msg.DecodeAllUsers()
			if err != nil {
				h.Error <- "failed to parse roster snapshot"
				continue
			}
			h.AllUsers <- users

		case protocol.TypeUserJoined:
			var member protocol.MemberInfo
			if err := msg.DecodePayload(&member); err != nil {
				h.Error <- "failed to parse join notification"
				continue
			}
			h.UserJoined <- member

		case protocol.TypeOffer:
			var offer protocol.OfferPayload
			if err := msg.DecodePayload(&offer); err != nil {
				h.Error <- "failed to parse offer"
				continue
			}
			h.Offer <- &offer

		case protocol.TypeAnswer:
			var answer protocol.AnswerPayload
			if err := msg.DecodePayload(&answer); err != nil {
				h.Error <- "failed to parse answer"
				continue
			}
			h.Answer <- &answer

		case protocol.TypeICECandidate:
			var cand protocol.CandidatePayload
			if err := msg.DecodePayload(&cand); err != nil {
				h.Error <- "failed to parse ICE candidate"
				continue
			}
			h.Candidate <- &cand

		case protocol.TypeMemberLeft:
			var left protocol.MemberLeftPayload
			if err := msg.DecodePayload(&left); err != nil {
				continue
			}
			h.MemberLeft <- left

		case protocol.TypeError:
			var errPayload protocol.ErrorPayload
			if err := msg.DecodePayload(&errPayload); err != nil {
				h.Error <- "unknown error from relay"
				continue
			}
			h.Error <- errPayload.Error

		default:
			slog.Debug("ignoring unknown message type", "type", msg.Type)
		}
	}
}

// Close closes all handler channels. Call only after the client connection
// is closed and Start has returned.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.AllUsers)
	close(h.UserJoined)
	close(h.Offer)
	close(h.Answer)
	close(h.Candidate)
	close(h.MemberLeft)
	close(h.Error)
}
