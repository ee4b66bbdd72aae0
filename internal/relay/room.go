package relay

import "github.com/anugrahthomas/video-room/internal/protocol"

// MaxMembers is the hard cap on room occupancy. The negotiation protocol is
// strictly pairwise, so a third joiner is rejected instead of silently
// ignored.
const MaxMembers = 2

// Room is a caller-named grouping of connected clients. Rooms are created on
// first join and deleted by the hub once the last member leaves. Only the hub
// goroutine touches a Room, so there is no lock here.
type Room struct {
	// ID is the caller-supplied room identifier.
	ID string

	// Members maps connection id to client. Keying by id makes a duplicate
	// join by the same connection a re-registration instead of a second entry.
	Members map[string]*Client
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: make(map[string]*Client),
	}
}

// Add registers a client as a room member.
func (r *Room) Add(c *Client) {
	r.Members[c.ID] = c
	c.RoomID = r.ID
}

// Remove drops a client from the member set.
func (r *Room) Remove(connID string) {
	delete(r.Members, connID)
}

// Empty reports whether the room has no members left.
func (r *Room) Empty() bool {
	return len(r.Members) == 0
}

// Roster returns the members other than excludeID as {id, name} entries, for
// the all-users snapshot sent to a joiner.
func (r *Room) Roster(excludeID string) []protocol.MemberInfo {
	roster := make([]protocol.MemberInfo, 0, len(r.Members))
	for id, member := range r.Members {
		if id != excludeID {
			roster = append(roster, protocol.MemberInfo{SocketID: id, Name: member.Name})
		}
	}
	return roster
}

// Others returns every member except excludeID.
func (r *Room) Others(excludeID string) []*Client {
	others := make([]*Client, 0, len(r.Members))
	for id, member := range r.Members {
		if id != excludeID {
			others = append(others, member)
		}
	}
	return others
}
