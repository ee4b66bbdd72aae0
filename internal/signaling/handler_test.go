package signaling

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anugrahthomas/video-room/internal/protocol"
)

// route pushes messages through a handler and returns once Start drains them.
func route(t *testing.T, msgs ...*protocol.Message) *Handler {
	t.Helper()
	client := &Client{incoming: make(chan *protocol.Message, len(msgs))}
	for _, msg := range msgs {
		client.incoming <- msg
	}
	close(client.incoming)

	h := NewHandler(client)
	h.Start()
	return h
}

func mustMessage(t *testing.T, msgType string, payload any) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, "r1", payload)
	require.NoError(t, err)
	return msg
}

func TestRoutesRoster(t *testing.T) {
	h := route(t, mustMessage(t, protocol.TypeAllUsers, []protocol.MemberInfo{
		{SocketID: "a", Name: "Alice"},
	}))

	users := <-h.AllUsers
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
}

func TestRoutesUserJoined(t *testing.T) {
	h := route(t, mustMessage(t, protocol.TypeUserJoined,
		protocol.MemberInfo{SocketID: "b", Name: "Bob"}))

	member := <-h.UserJoined
	assert.Equal(t, "b", member.SocketID)
}

func TestRoutesOfferAnswerCandidate(t *testing.T) {
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h := route(t,
		mustMessage(t, protocol.TypeOffer, protocol.OfferPayload{Offer: sdp, SenderID: "b"}),
		mustMessage(t, protocol.TypeAnswer, protocol.AnswerPayload{Answer: sdp}),
		mustMessage(t, protocol.TypeICECandidate, protocol.CandidatePayload{Candidate: sdp}),
	)

	offer := <-h.Offer
	assert.Equal(t, "b", offer.SenderID)
	assert.NotNil(t, <-h.Answer)
	assert.NotNil(t, <-h.Candidate)
}

func TestRoutesMemberLeftAndError(t *testing.T) {
	h := route(t,
		mustMessage(t, protocol.TypeMemberLeft, protocol.MemberLeftPayload{SocketID: "b"}),
		mustMessage(t, protocol.TypeError, protocol.ErrorPayload{Error: "room is full"}),
	)

	left := <-h.MemberLeft
	assert.Equal(t, "b", left.SocketID)
	assert.Equal(t, "room is full", <-h.Error)
}

func TestUnparsableRosterBecomesError(t *testing.T) {
	h := route(t, &protocol.Message{
		Type:    protocol.TypeAllUsers,
		RoomID:  "r1",
		Payload: json.RawMessage(`"not a list"`),
	})

	assert.NotEmpty(t, <-h.Error)
}

func TestUnknownTypeIgnored(t *testing.T) {
	h := route(t, &protocol.Message{Type: "telemetry", RoomID: "r1"})

	select {
	case e := <-h.Error:
		t.Fatalf("unexpected error: %s", e)
	default:
	}
}

func TestConnectLeavesDefaultDialerAlone(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	assert.Error(t, c.Connect(), "nothing listens on port 1")

	assert.Nil(t, websocket.DefaultDialer.NetDial,
		"custom resolver stays off the package-global dialer")
}

func TestCloseIdempotent(t *testing.T) {
	h := route(t)
	h.Close()
	h.Close()

	_, open := <-h.Offer
	assert.False(t, open)
}
