package database

import (
	"time"

	"github.com/npezzotti/roomcast/internal/types"
)

type User struct {
	Id           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id        string         `gorm:"primaryKey"`
	Type      types.RoomType `gorm:"not null"`
	Name      string
	Members   []RoomMember `gorm:"foreignKey:RoomId"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RoomMember struct {
	RoomId   string `gorm:"primaryKey"`
	UserId   string `gorm:"primaryKey;index"`
	JoinedAt time.Time
}

type Message struct {
	Id         string `gorm:"primaryKey"`
	Content    string `gorm:"not null"`
	UserId     string `gorm:"not null"`
	ChatRoomId string `gorm:"not null;index"`
	CreatedAt  time.Time
	User       User `gorm:"foreignKey:UserId"`
}

func (m Message) toType() types.Message {
	return types.Message{
		Id:         m.Id,
		Content:    m.Content,
		UserId:     m.UserId,
		ChatRoomId: m.ChatRoomId,
		CreatedAt:  m.CreatedAt,
		User: types.Author{
			Id:           m.User.Id,
			Email:        m.User.Email,
			Name:         m.User.Name,
			ProfileImage: m.User.ProfileImage,
		},
	}
}
