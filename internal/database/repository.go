package database

import (
	"context"
	"errors"

	"github.com/npezzotti/roomcast/internal/types"
)

var ErrNotFound = errors.New("not found")

// Repository is the slice of the workspace store the real-time layer needs:
// membership lookups and message persistence.
type Repository interface {
	Ping(ctx context.Context) error
	IsMember(ctx context.Context, userId, roomId string) (bool, error)
	ListMembers(ctx context.Context, roomId string) ([]string, error)
	CreateMessage(ctx context.Context, roomId, userId, content string) (types.Message, error)
	TouchRoomUpdatedAt(ctx context.Context, roomId string) error
	Close() error
}
