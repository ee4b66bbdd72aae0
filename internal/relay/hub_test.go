package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anugrahthomas/video-room/internal/protocol"
)

func newTestClient(id string) *Client {
	return &Client{ID: id, Send: make(chan *protocol.Message, 16)}
}

// recv pops the next queued message for a client. Hub handlers run
// synchronously in these tests, so anything sent is already buffered.
func recv(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		require.NotNil(t, msg)
		return msg
	default:
		t.Fatal("expected a queued message")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}

func joinMsg(t *testing.T, roomID, name string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(protocol.TypeJoinRoom, roomID, protocol.JoinPayload{Name: name})
	require.NoError(t, err)
	return msg
}

func offerMsg(t *testing.T, roomID string) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(protocol.TypeOffer, roomID,
		protocol.OfferPayload{Offer: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})
	require.NoError(t, err)
	return msg
}

func join(t *testing.T, h *Hub, c *Client, roomID, name string) {
	t.Helper()
	h.handleRegister(c)
	h.handleMessage(c, joinMsg(t, roomID, name))
}

func TestJoinEmptyRoomReturnsEmptyRoster(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")

	join(t, h, a, "r1", "Alice")

	msg := recv(t, a)
	assert.Equal(t, protocol.TypeAllUsers, msg.Type)
	users, err := msg.DecodeAllUsers()
	require.NoError(t, err)
	assert.Empty(t, users)

	require.Contains(t, h.Rooms, "r1")
	assert.Len(t, h.Rooms["r1"].Members, 1)
}

func TestSecondJoinFlow(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, h, a, "r1", "Alice")
	recv(t, a) // a's own roster

	join(t, h, b, "r1", "Bob")

	// B receives the members present before the join, excluding itself.
	roster := recv(t, b)
	assert.Equal(t, protocol.TypeAllUsers, roster.Type)
	users, err := roster.DecodeAllUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a", users[0].SocketID)
	assert.Equal(t, "Alice", users[0].Name)

	// A is told that B joined.
	joined := recv(t, a)
	assert.Equal(t, protocol.TypeUserJoined, joined.Type)
	var member protocol.MemberInfo
	require.NoError(t, joined.DecodePayload(&member))
	assert.Equal(t, "b", member.SocketID)
	assert.Equal(t, "Bob", member.Name)
}

func TestJoinThenLeaveLeavesNoTrace(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")

	join(t, h, a, "r1", "Alice")
	h.handleUnregister(a)

	assert.Empty(t, h.Rooms)
	assert.Empty(t, h.Clients)

	// Send channel is closed so the write pump stops.
	_, open := <-a.Send
	for open {
		_, open = <-a.Send
	}
}

func TestDisconnectNotifiesRemainingMember(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, h, a, "r1", "Alice")
	join(t, h, b, "r1", "Bob")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	h.handleUnregister(b)

	msg := recv(t, a)
	assert.Equal(t, protocol.TypeMemberLeft, msg.Type)
	var left protocol.MemberLeftPayload
	require.NoError(t, msg.DecodePayload(&left))
	assert.Equal(t, "b", left.SocketID)
	assert.Equal(t, "Bob", left.Name)

	assert.Len(t, h.Rooms["r1"].Members, 1)
}

func TestThirdJoinRejected(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")
	c := newTestClient("c")

	join(t, h, a, "r1", "Alice")
	join(t, h, b, "r1", "Bob")
	join(t, h, c, "r1", "Carol")

	msg := recv(t, c)
	assert.Equal(t, protocol.TypeError, msg.Type)
	var errPayload protocol.ErrorPayload
	require.NoError(t, msg.DecodePayload(&errPayload))
	assert.Contains(t, errPayload.Error, "full")

	assert.Len(t, h.Rooms["r1"].Members, 2)
	assert.Empty(t, c.RoomID)
}

func TestDuplicateJoinReRegisters(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")

	join(t, h, a, "r1", "Alice")
	recv(t, a)

	h.handleMessage(a, joinMsg(t, "r1", "Alice"))

	msg := recv(t, a)
	assert.Equal(t, protocol.TypeAllUsers, msg.Type)
	users, err := msg.DecodeAllUsers()
	require.NoError(t, err)
	assert.Empty(t, users, "roster never includes the joiner itself")

	assert.Len(t, h.Rooms["r1"].Members, 1)
	assert.Equal(t, "Alice", a.Name)
}

func TestSwitchingRoomsLeavesOldRoom(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, h, a, "r1", "Alice")
	join(t, h, b, "r1", "Bob")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	// A moving to r2 is an implicit departure from r1.
	h.handleMessage(a, joinMsg(t, "r2", "Alice"))

	left := recv(t, b)
	assert.Equal(t, protocol.TypeMemberLeft, left.Type)
	var payload protocol.MemberLeftPayload
	require.NoError(t, left.DecodePayload(&payload))
	assert.Equal(t, "a", payload.SocketID)

	require.Contains(t, h.Rooms, "r1")
	assert.NotContains(t, h.Rooms["r1"].Members, "a")
	assert.Len(t, h.Rooms["r1"].Members, 1)
	require.Contains(t, h.Rooms, "r2")
	assert.Contains(t, h.Rooms["r2"].Members, "a")
	assert.Equal(t, "r2", a.RoomID)
}

func TestRoomSwitchLeavesNoGhostBehind(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	// A passes through r1 on the way to r2, then disconnects entirely.
	join(t, h, a, "r1", "Alice")
	recv(t, a)
	h.handleMessage(a, joinMsg(t, "r2", "Alice"))
	recv(t, a)
	h.handleUnregister(a)

	assert.Empty(t, h.Rooms, "both rooms emptied and deleted")

	// A later join to r1 must see a fresh room, not A's dead connection.
	join(t, h, b, "r1", "Bob")

	roster := recv(t, b)
	assert.Equal(t, protocol.TypeAllUsers, roster.Type)
	users, err := roster.DecodeAllUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Len(t, h.Rooms["r1"].Members, 1)
}

func TestRelaySkipsSenderAndStampsOffer(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, h, a, "r1", "Alice")
	join(t, h, b, "r1", "Bob")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	h.handleMessage(b, offerMsg(t, "r1"))

	msg := recv(t, a)
	assert.Equal(t, protocol.TypeOffer, msg.Type)
	var offer protocol.OfferPayload
	require.NoError(t, msg.DecodePayload(&offer))
	assert.Equal(t, "b", offer.SenderID, "relay stamps the sender id")
	assert.NotEmpty(t, offer.Offer)

	assertNoMessage(t, b)
}

func TestCandidateForwardedUnstamped(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	b := newTestClient("b")

	join(t, h, a, "r1", "Alice")
	join(t, h, b, "r1", "Bob")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	raw := json.RawMessage(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 1 typ host"}`)
	msg, err := protocol.NewMessage(protocol.TypeICECandidate, "r1", protocol.CandidatePayload{Candidate: raw})
	require.NoError(t, err)
	h.handleMessage(a, msg)

	got := recv(t, b)
	assert.Equal(t, protocol.TypeICECandidate, got.Type)
	var cand protocol.CandidatePayload
	require.NoError(t, got.DecodePayload(&cand))
	assert.JSONEq(t, string(raw), string(cand.Candidate))
}

func TestSignalToEmptyRoomDropped(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")

	join(t, h, a, "r1", "Alice")
	recv(t, a)

	h.handleMessage(a, offerMsg(t, "r1"))

	// Fire and forget: no error, no echo back to the sender.
	assertNoMessage(t, a)
}

func TestSignalWithoutJoinRejected(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.handleRegister(a)

	h.handleMessage(a, offerMsg(t, "r1"))

	msg := recv(t, a)
	assert.Equal(t, protocol.TypeError, msg.Type)
}

func TestMalformedMessagesRejected(t *testing.T) {
	h := NewHub()
	a := newTestClient("a")
	h.handleRegister(a)

	cases := []*protocol.Message{
		{Type: "bogus"},
		{Type: protocol.TypeJoinRoom}, // no room, no name
		{Type: protocol.TypeJoinRoom, RoomID: "r1"},
		{Type: protocol.TypeOffer, RoomID: "r1"},
	}

	for _, msg := range cases {
		h.handleMessage(a, msg)
		reply := recv(t, a)
		assert.Equal(t, protocol.TypeError, reply.Type)
	}

	assert.Empty(t, h.Rooms, "nothing malformed is ever routed")
}
