package database

import (
	"context"

	"github.com/npezzotti/roomcast/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRepository) IsMember(ctx context.Context, userId, roomId string) (bool, error) {
	args := m.Called(ctx, userId, roomId)
	return args.Bool(0), args.Error(1)
}
func (m *MockRepository) ListMembers(ctx context.Context, roomId string) ([]string, error) {
	args := m.Called(ctx, roomId)
	if members, ok := args.Get(0).([]string); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) CreateMessage(ctx context.Context, roomId, userId, content string) (types.Message, error) {
	args := m.Called(ctx, roomId, userId, content)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockRepository) TouchRoomUpdatedAt(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}
func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
