package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/npezzotti/roomcast/internal/types"
)

const (
	isMemberQuery = "SELECT EXISTS (SELECT 1 FROM room_members WHERE user_id = $1 AND room_id = $2)"

	listMembersQuery = "SELECT user_id FROM room_members WHERE room_id = $1 ORDER BY joined_at"

	createMessageQuery = `
		WITH m AS (
			INSERT INTO messages (content, user_id, chat_room_id, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, content, user_id, chat_room_id, created_at
		)
		SELECT
			m.id,
			m.content,
			m.user_id,
			m.chat_room_id,
			m.created_at,
			u.email,
			u.name,
			u.profile_image
		FROM m
		JOIN users u ON u.id = m.user_id;
`

	touchRoomQuery = "UPDATE rooms SET updated_at = $2 WHERE id = $1"
)

func (db *PgRepository) IsMember(ctx context.Context, userId, roomId string) (bool, error) {
	var exists bool
	if err := db.conn.QueryRowContext(ctx, isMemberQuery, userId, roomId).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	return exists, nil
}

func (db *PgRepository) ListMembers(ctx context.Context, roomId string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, listMembersQuery, roomId)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, userId)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

func (db *PgRepository) CreateMessage(ctx context.Context, roomId, userId, content string) (types.Message, error) {
	row := db.conn.QueryRowContext(ctx, createMessageQuery,
		content,
		userId,
		roomId,
		time.Now().UTC(),
	)

	var (
		msg          types.Message
		name         sql.NullString
		profileImage sql.NullString
	)
	err := row.Scan(
		&msg.Id,
		&msg.Content,
		&msg.UserId,
		&msg.ChatRoomId,
		&msg.CreatedAt,
		&msg.User.Email,
		&name,
		&profileImage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, fmt.Errorf("create message: author %q: %w", userId, ErrNotFound)
		}
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	msg.User.Id = msg.UserId
	msg.User.Name = name.String
	msg.User.ProfileImage = profileImage.String

	return msg, nil
}

func (db *PgRepository) TouchRoomUpdatedAt(ctx context.Context, roomId string) error {
	res, err := db.conn.ExecContext(ctx, touchRoomQuery, roomId, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("touch room %q: %w", roomId, ErrNotFound)
	}

	return nil
}
