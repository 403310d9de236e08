package types

import (
	"encoding/json"
	"errors"
	"time"
)

// Notification is a push to a user's personal channel. Type specific fields
// (friend request ids, team ids, ...) travel in Extra and are flattened into
// the JSON object next to the common fields.
type Notification struct {
	Id        string
	Type      string
	Title     string
	Message   string
	CreatedAt time.Time
	Read      bool
	User      *UserSummary
	Extra     map[string]any
}

var notificationFields = []string{"id", "type", "title", "message", "createdAt", "read", "user"}

type notificationJSON struct {
	Id        string       `json:"id"`
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
	Read      bool         `json:"read"`
	User      *UserSummary `json:"user,omitempty"`
}

func (n Notification) Validate() error {
	if n.Id == "" {
		return errors.New("notification id is required")
	}
	if n.Type == "" {
		return errors.New("notification type is required")
	}
	return nil
}

func (n Notification) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Extra)+len(notificationFields))
	for k, v := range n.Extra {
		out[k] = v
	}

	out["id"] = n.Id
	out["type"] = n.Type
	out["title"] = n.Title
	out["message"] = n.Message
	out["createdAt"] = n.CreatedAt
	out["read"] = n.Read
	if n.User != nil {
		out["user"] = n.User
	} else {
		delete(out, "user")
	}

	return json.Marshal(out)
}

func (n *Notification) UnmarshalJSON(b []byte) error {
	var common notificationJSON
	if err := json.Unmarshal(b, &common); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range notificationFields {
		delete(raw, k)
	}

	var extra map[string]any
	if len(raw) > 0 {
		extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			extra[k] = val
		}
	}

	*n = Notification{
		Id:        common.Id,
		Type:      common.Type,
		Title:     common.Title,
		Message:   common.Message,
		CreatedAt: common.CreatedAt,
		Read:      common.Read,
		User:      common.User,
		Extra:     extra,
	}

	return nil
}
