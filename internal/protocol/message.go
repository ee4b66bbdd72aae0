package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type constants. These are the wire names used on the websocket
// between participants and the relay.
const (
	// Client to relay.
	TypeJoinRoom = "join-room"

	// Relay to client.
	TypeAllUsers   = "all-users"
	TypeUserJoined = "user-joined"
	TypeMemberLeft = "member-left"
	TypeError      = "error"

	// Relayed between room members in both directions.
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
)

// Message is the envelope for every signaling frame. The payload shape
// depends on Type; the relay validates presence of required fields but never
// inspects SDP or candidate contents.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MemberInfo identifies one room occupant.
type MemberInfo struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
}

// JoinPayload is sent by a client entering a room.
type JoinPayload struct {
	Name string `json:"name"`
}

// OfferPayload carries a session description offer. SenderID is stamped by
// the relay before forwarding, never set by the sending client.
type OfferPayload struct {
	Offer    json.RawMessage `json:"offer"`
	SenderID string          `json:"senderId,omitempty"`
}

// AnswerPayload carries a session description answer, stamped like an offer.
type AnswerPayload struct {
	Answer   json.RawMessage `json:"answer"`
	SenderID string          `json:"senderId,omitempty"`
}

// CandidatePayload carries one ICE candidate. Candidates are forwarded
// without sender identity.
type CandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// MemberLeftPayload notifies remaining room members that a peer's connection
// is gone.
type MemberLeftPayload struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name,omitempty"`
}

// ErrorPayload carries a relay-side rejection back to the sender.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessage builds an envelope with the payload marshaled in place.
func NewMessage(msgType, roomID string, payload any) (*Message, error) {
	msg := &Message{Type: msgType, RoomID: roomID}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		msg.Payload = b
	}
	return msg, nil
}

// DecodePayload unmarshals the message payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(m.Payload, v)
}

// DecodeAllUsers returns the roster carried by an all-users message.
func (m *Message) DecodeAllUsers() ([]MemberInfo, error) {
	var users []MemberInfo
	if err := m.DecodePayload(&users); err != nil {
		return nil, err
	}
	return users, nil
}

// Validation errors returned at the relay boundary.
var (
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingRoom  = errors.New("missing room id")
	ErrMissingField = errors.New("missing required field")
)

// Validate checks that a client-originated message has a known type and the
// fields the relay needs for routing. Payload semantics (SDP, candidate
// syntax) are deliberately not checked.
func Validate(m *Message) error {
	switch m.Type {
	case TypeJoinRoom:
		if m.RoomID == "" {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingRoom)
		}
		var join JoinPayload
		if err := m.DecodePayload(&join); err != nil || join.Name == "" {
			return fmt.Errorf("%s: %w: name", m.Type, ErrMissingField)
		}
	case TypeOffer:
		if m.RoomID == "" {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingRoom)
		}
		var offer OfferPayload
		if err := m.DecodePayload(&offer); err != nil || len(offer.Offer) == 0 {
			return fmt.Errorf("%s: %w: offer", m.Type, ErrMissingField)
		}
	case TypeAnswer:
		if m.RoomID == "" {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingRoom)
		}
		var answer AnswerPayload
		if err := m.DecodePayload(&answer); err != nil || len(answer.Answer) == 0 {
			return fmt.Errorf("%s: %w: answer", m.Type, ErrMissingField)
		}
	case TypeICECandidate:
		if m.RoomID == "" {
			return fmt.Errorf("%s: %w", m.Type, ErrMissingRoom)
		}
		var cand CandidatePayload
		if err := m.DecodePayload(&cand); err != nil || len(cand.Candidate) == 0 {
			return fmt.Errorf("%s: %w: candidate", m.Type, ErrMissingField)
		}
	default:
		return fmt.Errorf("%q: %w", m.Type, ErrUnknownType)
	}
	return nil
}
