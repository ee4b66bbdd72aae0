package engine

import "github.com/pion/webrtc/v4"

// Role says which side of the offer/answer exchange this participant is on.
type Role int

const (
	// RoleInitiator joined a room that already had an occupant and sent
	// the offer.
	RoleInitiator Role = iota

	// RoleResponder was already in the room and answered an incoming
	// offer.
	RoleResponder
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// Session tracks one negotiation with one remote party. It is created when
// a roster snapshot or an incoming offer first identifies the partner, and
// torn down when either side leaves.
type Session struct {
	Role       Role
	RemoteID   string
	RemoteName string

	LocalDescription  *webrtc.SessionDescription
	RemoteDescription *webrtc.SessionDescription

	// SentCandidates records every locally gathered candidate forwarded
	// through the relay.
	SentCandidates []webrtc.ICECandidateInit
}
