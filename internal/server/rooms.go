package server

import (
	"context"

	"github.com/npezzotti/roomcast/internal/stats"
)

func (h *Hub) handleJoinRoom(ctx context.Context, c *Conn, p *JoinRoom) {
	userId, ok := h.userOf(c)
	if !ok {
		c.queue(newError(MsgNotAuthenticated))
		return
	}

	member, err := h.db.IsMember(ctx, userId, p.RoomId)
	if err != nil {
		c.log.Error().Err(err).Str("user_id", userId).Str("room_id", p.RoomId).Msg("membership lookup failed")
		c.queue(newError(MsgJoinFailed))
		return
	}
	if !member {
		c.queue(newError(MsgNotMember))
		return
	}

	added, others, ok := h.addToGroup(c, userId, p.RoomId)
	if !ok {
		// disconnected or re-authenticated while the lookup was in flight
		c.log.Debug().Str("room_id", p.RoomId).Msg("dropping stale join")
		return
	}

	if added {
		ev := newUserJoined(userId, p.RoomId)
		for _, o := range others {
			o.queue(ev)
		}
	}

	c.log.Debug().Str("user_id", userId).Str("room_id", p.RoomId).Bool("added", added).Msg("joined room")
	c.queue(newJoinedRoom(p.RoomId))
}

func (h *Hub) handleLeaveRoom(_ context.Context, c *Conn, p *LeaveRoom) {
	userId, ok := h.userOf(c)
	if !ok {
		c.queue(newError(MsgNotAuthenticated))
		return
	}

	removed, remaining := h.leaveGroup(c, p.RoomId)
	if !removed {
		return
	}

	ev := newUserLeft(userId, p.RoomId)
	for _, o := range remaining {
		o.queue(ev)
	}

	c.log.Debug().Str("user_id", userId).Str("room_id", p.RoomId).Msg("left room")
}

// addToGroup adds c to the room group if it is still registered under
// userId. It returns whether c was newly added and the other members.
func (h *Hub) addToGroup(c *Conn, userId, roomId string) (added bool, others []*Conn, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.id] != c || c.userId != userId {
		return false, nil, false
	}

	group, exists := h.groups[roomId]
	if !exists {
		group = make(map[string]*Conn)
		h.groups[roomId] = group
		h.stats.Incr(stats.NumRoomGroups)
	}

	if _, in := group[c.id]; !in {
		group[c.id] = c
		c.rooms[roomId] = struct{}{}
		added = true
	}

	others = make([]*Conn, 0, len(group)-1)
	for id, o := range group {
		if id != c.id {
			others = append(others, o)
		}
	}

	return added, others, true
}

func (h *Hub) leaveGroup(c *Conn, roomId string) (bool, []*Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.removeFromGroupLocked(c, roomId) {
		return false, nil
	}

	group := h.groups[roomId]
	remaining := make([]*Conn, 0, len(group))
	for _, o := range group {
		remaining = append(remaining, o)
	}
	return true, remaining
}

func (h *Hub) removeFromGroupLocked(c *Conn, roomId string) bool {
	delete(c.rooms, roomId)

	group, ok := h.groups[roomId]
	if !ok {
		return false
	}
	if _, in := group[c.id]; !in {
		return false
	}

	delete(group, c.id)
	if len(group) == 0 {
		delete(h.groups, roomId)
		h.stats.Decr(stats.NumRoomGroups)
	}
	return true
}

// occupancy returns the number of live connections in the room group and
// every one of them except skip.
func (h *Hub) occupancy(roomId string, skip *Conn) (int, []*Conn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group := h.groups[roomId]
	recipients := make([]*Conn, 0, len(group))
	for id, c := range group {
		if id != skip.id {
			recipients = append(recipients, c)
		}
	}
	return len(group), recipients
}

// Occupancy reports the number of live connections joined to the room.
func (h *Hub) Occupancy(roomId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[roomId])
}
