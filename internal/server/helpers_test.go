package server

import (
	"testing"

	"github.com/npezzotti/roomcast/internal/auth"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/npezzotti/roomcast/internal/stats"
	"github.com/npezzotti/roomcast/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestHub creates a Hub whose stats calls are accepted but not asserted.
func newTestHub(t *testing.T, db database.Repository, v auth.Verifier, opts Options) *Hub {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(6)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	return NewHub(testutil.TestLogger(t), db, v, su, opts)
}

// newTestConn registers a connection without a websocket behind it; events
// queued for it can be read from its send channel.
func newTestConn(t *testing.T, h *Hub, id string) *Conn {
	t.Helper()

	c := newConn(h, id, nil)
	require.True(t, h.register(c), "expected connection %q to register", id)
	return c
}

func authAs(t *testing.T, h *Hub, c *Conn, userId string) {
	t.Helper()
	require.True(t, h.attach(c, auth.Identity{UserId: userId, Email: userId + "@example.com"}),
		"expected connection %q to authenticate as %q", c.id, userId)
}

// joinAs puts an authenticated connection into a room group and discards the
// events the join produced.
func joinAs(t *testing.T, h *Hub, c *Conn, roomId string) {
	t.Helper()
	userId, ok := h.userOf(c)
	require.True(t, ok, "expected connection %q to be authenticated", c.id)
	_, _, ok = h.addToGroup(c, userId, roomId)
	require.True(t, ok, "expected connection %q to join %q", c.id, roomId)
}

// drain returns every event currently queued for the connection.
func drain(c *Conn) []*ServerEvent {
	var out []*ServerEvent
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func named(evs []*ServerEvent, name string) []*ServerEvent {
	var out []*ServerEvent
	for _, ev := range evs {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func errorMessage(t *testing.T, ev *ServerEvent) string {
	t.Helper()
	require.Equal(t, EventError, ev.Event, "expected an error event")
	payload, ok := ev.Data.(ErrorPayload)
	require.True(t, ok, "expected ErrorPayload, got %T", ev.Data)
	return payload.Message
}
