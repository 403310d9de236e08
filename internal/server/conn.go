package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendQueueSize  = 256
)

// Conn is one live transport connection. Identity and room membership are
// owned by the Hub and only touched under Hub.mu.
type Conn struct {
	id       string
	ws       *websocket.Conn
	hub      *Hub
	log      zerolog.Logger
	send     chan *ServerEvent
	limiter  *rate.Limiter
	stop     chan struct{}
	stopOnce sync.Once

	userId string
	email  string
	rooms  map[string]struct{}
}

func newConn(h *Hub, id string, ws *websocket.Conn) *Conn {
	c := &Conn{
		id:    id,
		ws:    ws,
		hub:   h,
		log:   h.log.With().Str("conn_id", id).Logger(),
		send:  make(chan *ServerEvent, sendQueueSize),
		stop:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}

	if h.sendRate > 0 {
		c.limiter = rate.NewLimiter(h.sendRate, h.sendBurst)
	}

	return c
}

func (c *Conn) Id() string {
	return c.id
}

func (c *Conn) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.log.Debug().Msg("write exiting")
	}()

	for {
		select {
		case ev := <-c.send:
			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Error().Err(err).Str("event", ev.Event).Msg("failed to serialize event")
				continue
			}

			if !c.writeFrame(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Conn) Read() {
	defer func() {
		c.hub.unregister(c)
		c.close()
		c.ws.Close()
		c.log.Debug().Msg("read exiting")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(appData string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read")
			}
			break
		}

		c.hub.dispatch(c, raw)
	}
}

// queue hands an event to the write pump without blocking. Events for a
// connection that is slow or already gone are dropped.
func (c *Conn) queue(ev *ServerEvent) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- ev:
	default:
		c.log.Warn().Str("event", ev.Event).Msg("send queue full, dropping event")
		return false
	}

	return true
}

func (c *Conn) writeFrame(msgType int, msg []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.ws.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn().Err(err).Msg("ws write")
		}
		return false
	}

	return true
}

func (c *Conn) close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
