package relay

import (
	"encoding/json"
	"log/slog"

	"github.com/anugrahthomas/video-room/internal/protocol"
)

// inbound pairs a client-originated message with the connection it arrived
// on. The sender identity lives here, not on the wire, so clients cannot
// spoof it.
type inbound struct {
	client *Client
	msg    *protocol.Message
}

// Hub is the central brain of the signaling relay. It owns the connection
// registry (id to name) and the room registry, and routes every signaling
// message. All state is confined to the single Run goroutine, so no locking
// is needed; handlers communicate with it exclusively through channels.
type Hub struct {
	// Rooms maps room IDs to Room instances.
	Rooms map[string]*Room

	// Clients maps connection ids to registered clients.
	Clients map[string]*Client

	// Register is a channel for registering new connections.
	Register chan *Client

	// Unregister is a channel for dropped connections.
	Unregister chan *Client

	// Inbound carries client messages into the hub for routing.
	Inbound chan *inbound

	log *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
		log:        slog.Default(),
	}
}

// Run starts the hub's main processing loop. Each event is handled to
// completion before the next is taken, which is what makes the lock-free
// registries safe.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleUnregister(client)

		case in := <-h.Inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.Clients[client.ID] = client
	h.log.Debug("client registered", "conn", client.ID)
}

// handleUnregister removes every trace of the connection and tells the
// remaining room member, if any, that its peer is gone.
func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.Clients[client.ID]; !ok {
		return
	}
	delete(h.Clients, client.ID)

	h.removeFromRoom(client)

	close(client.Send)
	h.log.Debug("client unregistered", "conn", client.ID)
}

// removeFromRoom drops the client from its current room, if any, deleting
// the room when it empties and notifying the remaining member otherwise.
// Every path that takes a connection out of a room goes through here, so a
// room's member set never holds a connection that has moved on.
func (h *Hub) removeFromRoom(client *Client) {
	if client.RoomID == "" {
		return
	}
	roomID := client.RoomID
	client.RoomID = ""

	room, ok := h.Rooms[roomID]
	if !ok {
		return
	}
	room.Remove(client.ID)

	if room.Empty() {
		delete(h.Rooms, room.ID)
		h.log.Info("room deleted", "room", room.ID)
		return
	}

	left, _ := protocol.NewMessage(protocol.TypeMemberLeft, room.ID,
		protocol.MemberLeftPayload{SocketID: client.ID, Name: client.Name})
	for _, member := range room.Others(client.ID) {
		member.Send <- left
	}
	h.log.Info("member left room", "room", room.ID, "conn", client.ID)
}

// handleMessage validates and routes one client message. Validation failures
// draw an error reply; nothing malformed is ever forwarded.
func (h *Hub) handleMessage(client *Client, msg *protocol.Message) {
	if err := protocol.Validate(msg); err != nil {
		h.log.Warn("rejected message", "conn", client.ID, "err", err)
		h.sendError(client, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(client, msg)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.relay(client, msg)
	}
}

func (h *Hub) handleJoin(client *Client, msg *protocol.Message) {
	var join protocol.JoinPayload
	msg.DecodePayload(&join) // already validated

	room, ok := h.Rooms[msg.RoomID]
	if !ok {
		room = NewRoom(msg.RoomID)
		h.Rooms[msg.RoomID] = room
	}

	if _, member := room.Members[client.ID]; !member && len(room.Members) >= MaxMembers {
		h.log.Warn("room full", "room", room.ID, "conn", client.ID)
		h.sendError(client, "room is full")
		return
	}

	// Joining a different room is an implicit departure from the current
	// one; otherwise the old room would keep a stale member entry and
	// fan-outs there would hit a dead connection.
	if client.RoomID != "" && client.RoomID != msg.RoomID {
		h.removeFromRoom(client)
	}

	// A display name is set once; a duplicate join by the same connection
	// just re-registers it.
	if client.Name == "" {
		client.Name = join.Name
	}

	roster := room.Roster(client.ID)
	room.Add(client)

	h.log.Info("client joined room", "room", room.ID, "conn", client.ID, "name", client.Name)

	// The joiner gets the occupants that were already present.
	allUsers, _ := protocol.NewMessage(protocol.TypeAllUsers, room.ID, roster)
	client.Send <- allUsers

	// Everyone else learns about the joiner.
	joined, _ := protocol.NewMessage(protocol.TypeUserJoined, room.ID,
		protocol.MemberInfo{SocketID: client.ID, Name: client.Name})
	for _, member := range room.Others(client.ID) {
		member.Send <- joined
	}
}

// relay forwards a signaling message to the other occupants of the sender's
// room. Offers and answers are stamped with the sender's connection id so
// the receiving engine knows its negotiation partner; candidates are
// forwarded as-is. Delivery is fire-and-forget.
func (h *Hub) relay(client *Client, msg *protocol.Message) {
	room, ok := h.Rooms[msg.RoomID]
	if !ok || room.Members[client.ID] == nil {
		h.sendError(client, "you must join the room first")
		return
	}

	others := room.Others(client.ID)
	if len(others) == 0 {
		// Nobody to deliver to; drop silently rather than error.
		h.log.Debug("dropping signal for empty room", "room", room.ID, "type", msg.Type)
		return
	}

	out := msg
	switch msg.Type {
	case protocol.TypeOffer:
		var offer protocol.OfferPayload
		msg.DecodePayload(&offer)
		offer.SenderID = client.ID
		out, _ = protocol.NewMessage(msg.Type, msg.RoomID, offer)
	case protocol.TypeAnswer:
		var answer protocol.AnswerPayload
		msg.DecodePayload(&answer)
		answer.SenderID = client.ID
		out, _ = protocol.NewMessage(msg.Type, msg.RoomID, answer)
	}

	for _, member := range others {
		member.Send <- out
	}
	h.log.Debug("relayed signal", "room", room.ID, "type", msg.Type, "from", client.ID)
}

func (h *Hub) sendError(client *Client, text string) {
	payload, _ := json.Marshal(protocol.ErrorPayload{Error: text})
	client.Send <- &protocol.Message{Type: protocol.TypeError, Payload: payload}
}
