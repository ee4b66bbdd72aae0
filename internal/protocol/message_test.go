package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeJoinRoom, "r1", JoinPayload{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, TypeJoinRoom, msg.Type)
	assert.Equal(t, "r1", msg.RoomID)

	var join JoinPayload
	require.NoError(t, msg.DecodePayload(&join))
	assert.Equal(t, "Alice", join.Name)
}

func TestDecodeAllUsers(t *testing.T) {
	msg, err := NewMessage(TypeAllUsers, "r1", []MemberInfo{
		{SocketID: "a", Name: "Alice"},
		{SocketID: "b", Name: "Bob"},
	})
	require.NoError(t, err)

	users, err := msg.DecodeAllUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].SocketID)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestDecodeEmptyPayload(t *testing.T) {
	msg := &Message{Type: TypeAllUsers}
	var users []MemberInfo
	assert.Error(t, msg.DecodePayload(&users))
}

func TestWireFieldNames(t *testing.T) {
	// The webapp peers depend on these exact JSON keys.
	msg, err := NewMessage(TypeOffer, "r1", OfferPayload{
		Offer:    json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
		SenderID: "a",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"roomId":"r1"`)
	assert.Contains(t, string(raw), `"senderId":"a"`)

	left, err := NewMessage(TypeMemberLeft, "r1", MemberLeftPayload{SocketID: "a"})
	require.NoError(t, err)
	raw, err = json.Marshal(left)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"socketId":"a"`)
}

func TestValidate(t *testing.T) {
	mustPayload := func(v any) json.RawMessage {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return b
	}

	cases := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{
			name: "valid join",
			msg:  &Message{Type: TypeJoinRoom, RoomID: "r1", Payload: mustPayload(JoinPayload{Name: "Alice"})},
		},
		{
			name: "valid offer",
			msg:  &Message{Type: TypeOffer, RoomID: "r1", Payload: mustPayload(OfferPayload{Offer: json.RawMessage(`{}`)})},
		},
		{
			name: "valid answer",
			msg:  &Message{Type: TypeAnswer, RoomID: "r1", Payload: mustPayload(AnswerPayload{Answer: json.RawMessage(`{}`)})},
		},
		{
			name: "valid candidate",
			msg:  &Message{Type: TypeICECandidate, RoomID: "r1", Payload: mustPayload(CandidatePayload{Candidate: json.RawMessage(`{}`)})},
		},
		{
			name:    "unknown type",
			msg:     &Message{Type: "shrug", RoomID: "r1"},
			wantErr: ErrUnknownType,
		},
		{
			name:    "join without room",
			msg:     &Message{Type: TypeJoinRoom, Payload: mustPayload(JoinPayload{Name: "Alice"})},
			wantErr: ErrMissingRoom,
		},
		{
			name:    "join without name",
			msg:     &Message{Type: TypeJoinRoom, RoomID: "r1", Payload: mustPayload(JoinPayload{})},
			wantErr: ErrMissingField,
		},
		{
			name:    "offer without sdp",
			msg:     &Message{Type: TypeOffer, RoomID: "r1", Payload: mustPayload(OfferPayload{})},
			wantErr: ErrMissingField,
		},
		{
			name:    "answer without sdp",
			msg:     &Message{Type: TypeAnswer, RoomID: "r1", Payload: mustPayload(AnswerPayload{})},
			wantErr: ErrMissingField,
		},
		{
			name:    "candidate without body",
			msg:     &Message{Type: TypeICECandidate, RoomID: "r1"},
			wantErr: ErrMissingField,
		},
		{
			name:    "candidate without room",
			msg:     &Message{Type: TypeICECandidate, Payload: mustPayload(CandidatePayload{Candidate: json.RawMessage(`{}`)})},
			wantErr: ErrMissingRoom,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.msg)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}
