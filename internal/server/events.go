package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/npezzotti/roomcast/internal/types"
)

// Client to server events.
const (
	EventAuthenticate = "authenticate"
	EventJoinRoom     = "joinRoom"
	EventLeaveRoom    = "leaveRoom"
	EventSendMessage  = "sendMessage"
)

// Server to client events.
const (
	EventAuthenticated     = "authenticated"
	EventJoinedRoom        = "joinedRoom"
	EventUserJoined        = "userJoined"
	EventUserLeft          = "userLeft"
	EventNewMessage        = "newMessage"
	EventMessageSent       = "messageSent"
	EventRoomMessageUpdate = "roomMessageUpdate"
	EventNotification      = "notification"
	EventError             = "error"
)

// Messages carried by error events.
const (
	MsgNotAuthenticated = "Not authenticated"
	MsgNotMember        = "Not a member of this room"
	MsgEmptyMessage     = "Message cannot be empty"
	MsgMessageTooLong   = "Message is too long"
	MsgRateLimited      = "Too many messages"
	MsgSendFailed       = "Failed to send message"
	MsgJoinFailed       = "Failed to join room"
	MsgInvalidFormat    = "Invalid message format"
	MsgUnknownEvent     = "Unknown event"
	MsgRoomIdRequired   = "Room id is required"
	MsgInvalidToken     = "Invalid token"
	MsgAuthFailed       = "Authentication failed"
	MsgInternalError    = "Internal server error"
)

var (
	errInvalidFormat  = errors.New(MsgInvalidFormat)
	errUnknownEvent   = errors.New(MsgUnknownEvent)
	errRoomIdRequired = errors.New(MsgRoomIdRequired)
)

// ClientEvent is the envelope of every frame a client sends.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type clientPayload interface {
	validate() error
}

type Authenticate struct {
	Token string `json:"token"`
}

type JoinRoom struct {
	RoomId string `json:"roomId"`
}

type LeaveRoom struct {
	RoomId string `json:"roomId"`
}

type SendMessage struct {
	RoomId  string `json:"roomId"`
	Content string `json:"content"`
}

func (p *Authenticate) validate() error { return nil }

func (p *JoinRoom) validate() error {
	if p.RoomId == "" {
		return errRoomIdRequired
	}
	return nil
}

func (p *LeaveRoom) validate() error {
	if p.RoomId == "" {
		return errRoomIdRequired
	}
	return nil
}

func (p *SendMessage) validate() error {
	if p.RoomId == "" {
		return errRoomIdRequired
	}
	return nil
}

// decodeClientEvent parses a raw frame into one of the known payload types.
// The returned error text is safe to send back to the client.
func decodeClientEvent(raw []byte) (clientPayload, error) {
	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errInvalidFormat
	}

	var p clientPayload
	switch ev.Event {
	case EventAuthenticate:
		p = &Authenticate{}
	case EventJoinRoom:
		p = &JoinRoom{}
	case EventLeaveRoom:
		p = &LeaveRoom{}
	case EventSendMessage:
		p = &SendMessage{}
	default:
		return nil, errUnknownEvent
	}

	if len(ev.Data) == 0 || string(ev.Data) == "null" {
		return nil, errInvalidFormat
	}
	if err := json.Unmarshal(ev.Data, p); err != nil {
		return nil, errInvalidFormat
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// ServerEvent is the envelope of every frame the server sends. Instances are
// shared between recipients and must not be mutated once queued.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Authenticated struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type RoomRef struct {
	RoomId string `json:"roomId"`
}

type Presence struct {
	UserId string `json:"userId"`
	RoomId string `json:"roomId"`
}

type RoomMessageUpdate struct {
	RoomId      string               `json:"roomId"`
	LastMessage types.MessageSummary `json:"lastMessage"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newAuthenticated(errMsg string) *ServerEvent {
	return &ServerEvent{
		Event: EventAuthenticated,
		Data:  Authenticated{Success: errMsg == "", Error: errMsg},
	}
}

func newJoinedRoom(roomId string) *ServerEvent {
	return &ServerEvent{Event: EventJoinedRoom, Data: RoomRef{RoomId: roomId}}
}

func newUserJoined(userId, roomId string) *ServerEvent {
	return &ServerEvent{Event: EventUserJoined, Data: Presence{UserId: userId, RoomId: roomId}}
}

func newUserLeft(userId, roomId string) *ServerEvent {
	return &ServerEvent{Event: EventUserLeft, Data: Presence{UserId: userId, RoomId: roomId}}
}

func newNewMessage(msg types.Message) *ServerEvent {
	return &ServerEvent{Event: EventNewMessage, Data: msg}
}

func newMessageSent(msg types.Message) *ServerEvent {
	return &ServerEvent{Event: EventMessageSent, Data: msg}
}

func newRoomMessageUpdate(msg types.Message, updatedAt time.Time) *ServerEvent {
	return &ServerEvent{
		Event: EventRoomMessageUpdate,
		Data: RoomMessageUpdate{
			RoomId:      msg.ChatRoomId,
			LastMessage: msg.Summary(),
			UpdatedAt:   updatedAt,
		},
	}
}

func newNotification(n types.Notification) *ServerEvent {
	return &ServerEvent{Event: EventNotification, Data: n}
}

func newError(message string) *ServerEvent {
	return &ServerEvent{Event: EventError, Data: ErrorPayload{Message: message}}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
