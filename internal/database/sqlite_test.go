package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/roomcast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates an in-memory store with room "r1" holding members
// u1 and u2, and a user u3 who is not a member.
func setupTestRepo(t *testing.T) *SqliteRepository {
	t.Helper()

	repo, err := NewSqliteRepository("file::memory:")
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { repo.Close() })

	now := time.Now().UTC()
	err = repo.Seed(context.Background(),
		Room{
			Id:   "r1",
			Type: types.RoomTypeGroup,
			Name: "general",
			Members: []RoomMember{
				{UserId: "u1", JoinedAt: now},
				{UserId: "u2", JoinedAt: now.Add(time.Second)},
			},
			UpdatedAt: now.Add(-time.Hour),
		},
		User{Id: "u1", Email: "u1@example.com", Name: "User One", ProfileImage: "https://example.com/u1.png"},
		User{Id: "u2", Email: "u2@example.com", Name: "User Two"},
		User{Id: "u3", Email: "u3@example.com", Name: "User Three"},
	)
	require.NoError(t, err, "failed to seed test database")

	return repo
}

func TestSqliteRepository_Ping(t *testing.T) {
	repo := setupTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestSqliteRepository_IsMember(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	tcases := []struct {
		name     string
		userId   string
		roomId   string
		expected bool
	}{
		{name: "member", userId: "u1", roomId: "r1", expected: true},
		{name: "second member", userId: "u2", roomId: "r1", expected: true},
		{name: "not a member", userId: "u3", roomId: "r1", expected: false},
		{name: "unknown room", userId: "u1", roomId: "r2", expected: false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := repo.IsMember(ctx, tc.userId, tc.roomId)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestSqliteRepository_ListMembers(t *testing.T) {
	repo := setupTestRepo(t)

	members, err := repo.ListMembers(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, members, "expected members in join order")

	members, err = repo.ListMembers(context.Background(), "r2")
	require.NoError(t, err)
	assert.Empty(t, members, "expected no members for unknown room")
}

func TestSqliteRepository_CreateMessage(t *testing.T) {
	t.Run("persists message with author profile", func(t *testing.T) {
		repo := setupTestRepo(t)

		msg, err := repo.CreateMessage(context.Background(), "r1", "u1", "hello")
		require.NoError(t, err)
		_, err = uuid.Parse(msg.Id)
		assert.NoError(t, err, "expected a uuid message id")
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "u1", msg.UserId)
		assert.Equal(t, "r1", msg.ChatRoomId)
		assert.False(t, msg.CreatedAt.IsZero(), "expected createdAt to be set")
		assert.Equal(t, types.Author{
			Id:           "u1",
			Email:        "u1@example.com",
			Name:         "User One",
			ProfileImage: "https://example.com/u1.png",
		}, msg.User)

		var count int64
		require.NoError(t, repo.db.Model(&Message{}).Where("id = ?", msg.Id).Count(&count).Error)
		assert.Equal(t, int64(1), count, "expected exactly one persisted row")
	})

	t.Run("unknown author", func(t *testing.T) {
		repo := setupTestRepo(t)

		_, err := repo.CreateMessage(context.Background(), "r1", "ghost", "hello")
		assert.ErrorIs(t, err, ErrNotFound)

		var count int64
		require.NoError(t, repo.db.Model(&Message{}).Count(&count).Error)
		assert.Zero(t, count, "expected no message to be persisted")
	})
}

func TestSqliteRepository_TouchRoomUpdatedAt(t *testing.T) {
	repo := setupTestRepo(t)

	var before Room
	require.NoError(t, repo.db.First(&before, "id = ?", "r1").Error)

	require.NoError(t, repo.TouchRoomUpdatedAt(context.Background(), "r1"))

	var after Room
	require.NoError(t, repo.db.First(&after, "id = ?", "r1").Error)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "expected updatedAt to move forward")

	err := repo.TouchRoomUpdatedAt(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqliteRepository_SeedRejectsRoomType(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Seed(context.Background(), Room{Id: "r2", Type: "CHANNEL"})
	assert.Error(t, err)

	ok, err := repo.IsMember(context.Background(), "u1", "r2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	repo, err := Open("sqlite", "file::memory:")
	require.NoError(t, err)
	assert.IsType(t, &SqliteRepository{}, repo)
	assert.NoError(t, repo.Close())

	_, err = Open("mysql", "whatever")
	assert.Error(t, err, "expected error for unsupported driver")
}
