package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/roomcast/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqliteRepository is a gorm backed store for local development and tests.
type SqliteRepository struct {
	db *gorm.DB
}

func NewSqliteRepository(dsn string) (*SqliteRepository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// an in-memory database only lives as long as its single connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&User{}, &Room{}, &RoomMember{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SqliteRepository{db: db}, nil
}

func (r *SqliteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *SqliteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SqliteRepository) IsMember(ctx context.Context, userId, roomId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomId, userId).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return count > 0, nil
}

func (r *SqliteRepository) ListMembers(ctx context.Context, roomId string) ([]string, error) {
	var members []string
	err := r.db.WithContext(ctx).
		Model(&RoomMember{}).
		Where("room_id = ?", roomId).
		Order("joined_at").
		Pluck("user_id", &members).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

func (r *SqliteRepository) CreateMessage(ctx context.Context, roomId, userId, content string) (types.Message, error) {
	msg := Message{
		Id:         uuid.NewString(),
		Content:    content,
		UserId:     userId,
		ChatRoomId: roomId,
		CreatedAt:  time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&msg.User, "id = ?", userId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("author %q: %w", userId, ErrNotFound)
			}
			return err
		}

		return tx.Omit("User").Create(&msg).Error
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	return msg.toType(), nil
}

func (r *SqliteRepository) TouchRoomUpdatedAt(ctx context.Context, roomId string) error {
	res := r.db.WithContext(ctx).
		Model(&Room{}).
		Where("id = ?", roomId).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("touch room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("touch room %q: %w", roomId, ErrNotFound)
	}

	return nil
}

// Seed inserts users, then a room together with its memberships.
func (r *SqliteRepository) Seed(ctx context.Context, room Room, users ...User) error {
	if !room.Type.Valid() {
		return fmt.Errorf("seed room %q: invalid room type %q", room.Id, room.Type)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range users {
			if err := tx.Create(&users[i]).Error; err != nil {
				return fmt.Errorf("seed user %q: %w", users[i].Id, err)
			}
		}
		if err := tx.Create(&room).Error; err != nil {
			return fmt.Errorf("seed room %q: %w", room.Id, err)
		}
		return nil
	})
}
