package types

import (
	"time"
)

type RoomType string

const (
	RoomTypeDM    RoomType = "DM"
	RoomTypeGroup RoomType = "GROUP"
)

func (t RoomType) Valid() bool {
	return t == RoomTypeDM || t == RoomTypeGroup
}

// Author is the denormalized profile attached to every persisted message.
type Author struct {
	Id           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

type UserSummary struct {
	Id    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Message struct {
	Id         string    `json:"id"`
	Content    string    `json:"content"`
	UserId     string    `json:"userId"`
	ChatRoomId string    `json:"chatRoomId"`
	CreatedAt  time.Time `json:"createdAt"`
	User       Author    `json:"user"`
}

// Summary returns the preview shape used by room update notifications.
func (m Message) Summary() MessageSummary {
	return MessageSummary{
		Id:        m.Id,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		User: UserSummary{
			Id:    m.User.Id,
			Email: m.User.Email,
			Name:  m.User.Name,
		},
	}
}

type MessageSummary struct {
	Id        string      `json:"id"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserSummary `json:"user"`
}
