package engine

// EventKind classifies engine notifications to the UI layer.
type EventKind int

const (
	// EventPeerJoined reports a (new or updated) remote display name.
	EventPeerJoined EventKind = iota

	// EventNegotiating fires when an offer or answer exchange begins.
	EventNegotiating

	// EventConnected fires on first remote track arrival.
	EventConnected

	// EventPeerMediaState reports the remote side's mute/video flags,
	// received over the control channel.
	EventPeerMediaState

	// EventPeerLeft fires when the remote party departs.
	EventPeerLeft

	// EventFailure carries a negotiation failure, such as a timeout.
	EventFailure
)

// Event is a notification from the engine to whoever renders the call.
type Event struct {
	Kind     EventKind
	PeerName string
	Muted    bool
	VideoOff bool
	Err      error
}
