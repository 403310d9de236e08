package server

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/npezzotti/roomcast/internal/stats"
	"github.com/npezzotti/roomcast/internal/types"
)

const maxContentLength = 4000

// handleSendMessage runs the gates (auth, content, rate, membership) before
// anything is persisted. Once the message is stored it is never rolled back;
// later failures only degrade delivery.
func (h *Hub) handleSendMessage(ctx context.Context, c *Conn, p *SendMessage) {
	userId, ok := h.userOf(c)
	if !ok {
		c.queue(newError(MsgNotAuthenticated))
		return
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		c.queue(newError(MsgEmptyMessage))
		return
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		c.queue(newError(MsgMessageTooLong))
		return
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.queue(newError(MsgRateLimited))
		return
	}

	log := c.log.With().Str("user_id", userId).Str("room_id", p.RoomId).Logger()

	member, err := h.db.IsMember(ctx, userId, p.RoomId)
	if err != nil {
		log.Error().Err(err).Msg("membership lookup failed")
		c.queue(newError(MsgSendFailed))
		return
	}
	if !member {
		c.queue(newError(MsgNotMember))
		return
	}

	msg, err := h.db.CreateMessage(ctx, p.RoomId, userId, content)
	if err != nil {
		log.Error().Err(err).Msg("failed to persist message")
		c.queue(newError(MsgSendFailed))
		return
	}
	h.stats.Incr(stats.NumMessagesSent)

	if err := h.db.TouchRoomUpdatedAt(ctx, p.RoomId); err != nil {
		log.Warn().Err(err).Str("message_id", msg.Id).Msg("failed to touch room updatedAt")
	}
	updatedAt := Now()

	// the sender only counts toward occupancy if it joined the room
	n, recipients := h.occupancy(p.RoomId, c)
	if n > 1 {
		ev := newNewMessage(msg)
		for _, r := range recipients {
			r.queue(ev)
		}
		h.stats.Incr(stats.NumMessagesBroadcast)
	}

	notified := h.notifyMembers(ctx, msg, updatedAt)

	log.Debug().
		Str("message_id", msg.Id).
		Int("occupancy", n).
		Int("notified", notified).
		Msg("message sent")

	c.queue(newMessageSent(msg))
}

// notifyMembers pushes a room update to the personal channel of every
// persisted member except the author, whether or not they joined the room
// group. It returns the number of connections reached.
func (h *Hub) notifyMembers(ctx context.Context, msg types.Message, updatedAt time.Time) int {
	members, err := h.db.ListMembers(ctx, msg.ChatRoomId)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", msg.ChatRoomId).Str("message_id", msg.Id).Msg("failed to list room members")
		return 0
	}

	ev := newRoomMessageUpdate(msg, updatedAt)
	n := 0
	for _, userId := range members {
		if userId == msg.UserId {
			continue
		}
		n += h.deliver(userId, ev)
	}

	return n
}
