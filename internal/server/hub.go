package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/roomcast/internal/auth"
	"github.com/npezzotti/roomcast/internal/database"
	"github.com/npezzotti/roomcast/internal/stats"
	"github.com/npezzotti/roomcast/internal/types"
	"github.com/rs/zerolog"
	"github.com/teris-io/shortid"
	"golang.org/x/time/rate"
)

var ErrShuttingDown = errors.New("hub is shutting down")

type Options struct {
	// SendRate is the sustained number of messages per second a connection
	// may send. Zero disables the limit.
	SendRate  float64
	SendBurst int
}

// Hub is the single coordinator of live state: the connection registry, the
// per-user connection index used for personal channels, and room groups.
type Hub struct {
	log       zerolog.Logger
	db        database.Repository
	verifier  auth.Verifier
	stats     stats.StatsProvider
	sendRate  rate.Limit
	sendBurst int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	conns     map[string]*Conn
	userConns map[string]map[string]*Conn
	groups    map[string]map[string]*Conn
}

func NewHub(logger zerolog.Logger, db database.Repository, verifier auth.Verifier, su stats.StatsProvider, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		log:       logger,
		db:        db,
		verifier:  verifier,
		stats:     su,
		sendRate:  rate.Limit(opts.SendRate),
		sendBurst: opts.SendBurst,
		ctx:       ctx,
		cancel:    cancel,
		conns:     make(map[string]*Conn),
		userConns: make(map[string]map[string]*Conn),
		groups:    make(map[string]map[string]*Conn),
	}

	if h.sendRate > 0 && h.sendBurst < 1 {
		h.sendBurst = 1
	}

	for _, name := range []string{
		stats.NumActiveConnections,
		stats.NumAuthenticatedUsers,
		stats.NumRoomGroups,
		stats.NumMessagesSent,
		stats.NumMessagesBroadcast,
		stats.NumNotificationsDelivered,
	} {
		su.RegisterMetric(name)
	}

	return h
}

// Serve registers an upgraded websocket and starts its pumps.
func (h *Hub) Serve(ws *websocket.Conn) (*Conn, error) {
	id, err := shortid.Generate()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("generate connection id: %w", err)
	}

	c := newConn(h, id, ws)
	if !h.register(c) {
		ws.Close()
		return nil, ErrShuttingDown
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.Write()
	}()
	go func() {
		defer h.wg.Done()
		c.Read()
	}()

	return c, nil
}

func (h *Hub) register(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.conns[c.id] = c
	h.stats.Incr(stats.NumActiveConnections)
	c.log.Info().Msg("connection registered")
	return true
}

// unregister forgets the connection and removes it from every room group it
// joined. Peers are not told about the departure.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.id] != c {
		return
	}

	delete(h.conns, c.id)
	h.detachLocked(c)
	h.stats.Decr(stats.NumActiveConnections)
	c.log.Info().Msg("connection unregistered")
}

// attach binds an identity to the connection. It reports false when the
// connection is no longer registered.
func (h *Hub) attach(c *Conn, id auth.Identity) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.id] != c {
		return false
	}

	if c.userId == id.UserId {
		c.email = id.Email
		return true
	}

	if c.userId != "" {
		// groups were authorized for the previous user
		h.detachLocked(c)
	}

	c.userId = id.UserId
	c.email = id.Email

	userConns, ok := h.userConns[id.UserId]
	if !ok {
		userConns = make(map[string]*Conn)
		h.userConns[id.UserId] = userConns
		h.stats.Incr(stats.NumAuthenticatedUsers)
	}
	userConns[c.id] = c

	return true
}

// detachLocked drops the connection's identity and room groups.
func (h *Hub) detachLocked(c *Conn) {
	for roomId := range c.rooms {
		h.removeFromGroupLocked(c, roomId)
	}

	if c.userId == "" {
		return
	}

	if userConns, ok := h.userConns[c.userId]; ok {
		delete(userConns, c.id)
		if len(userConns) == 0 {
			delete(h.userConns, c.userId)
			h.stats.Decr(stats.NumAuthenticatedUsers)
		}
	}
	c.userId = ""
	c.email = ""
}

func (h *Hub) userOf(c *Conn) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return c.userId, c.userId != ""
}

// connsOf returns a snapshot of the user's live connections.
func (h *Hub) connsOf(userId string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userConns := h.userConns[userId]
	out := make([]*Conn, 0, len(userConns))
	for _, c := range userConns {
		out = append(out, c)
	}
	return out
}

// deliver queues ev on every live connection of the user and returns how
// many accepted it.
func (h *Hub) deliver(userId string, ev *ServerEvent) int {
	n := 0
	for _, c := range h.connsOf(userId) {
		if c.queue(ev) {
			n++
		}
	}
	return n
}

// Notify pushes a notification to the user's personal channel. Delivery is
// best effort: with no live connection the notification is dropped.
func (h *Hub) Notify(userId string, n types.Notification) (int, error) {
	if userId == "" {
		return 0, errors.New("user id is required")
	}
	if err := n.Validate(); err != nil {
		return 0, err
	}

	delivered := h.deliver(userId, newNotification(n))
	if delivered > 0 {
		h.stats.Incr(stats.NumNotificationsDelivered)
	}

	h.log.Debug().
		Str("user_id", userId).
		Str("notification_id", n.Id).
		Str("type", n.Type).
		Int("delivered", delivered).
		Msg("notification fan-out")

	return delivered, nil
}

// dispatch decodes one client frame and runs its handler to completion.
func (h *Hub) dispatch(c *Conn, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("event handler panicked")
			c.queue(newError(MsgInternalError))
		}
	}()

	payload, err := decodeClientEvent(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("rejected client event")
		c.queue(newError(err.Error()))
		return
	}

	switch p := payload.(type) {
	case *Authenticate:
		h.handleAuthenticate(h.ctx, c, p)
	case *JoinRoom:
		h.handleJoinRoom(h.ctx, c, p)
	case *LeaveRoom:
		h.handleLeaveRoom(h.ctx, c, p)
	case *SendMessage:
		h.handleSendMessage(h.ctx, c, p)
	}
}

func (h *Hub) handleAuthenticate(_ context.Context, c *Conn, p *Authenticate) {
	id, err := h.verifier.Verify(p.Token)
	if err != nil {
		msg := MsgAuthFailed
		if errors.Is(err, auth.ErrInvalidToken) {
			msg = MsgInvalidToken
		}
		c.log.Info().Err(err).Msg("authentication failed")
		c.queue(newAuthenticated(msg))
		return
	}

	if !h.attach(c, id) {
		return
	}

	c.log.Info().Str("user_id", id.UserId).Msg("authenticated")
	c.queue(newAuthenticated(""))
}

// Shutdown closes every connection and waits for their pumps to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.log.Info().Int("connections", len(conns)).Msg("shutting down hub")
	h.cancel()
	for _, c := range conns {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
