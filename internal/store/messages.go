// internal/store/messages.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mfjones/chatter/internal/db"
)

// Message types.
const (
	MessageText  = "TEXT"
	MessageImage = "IMAGE"
)

// historyLimit bounds the initial history fetch.
const historyLimit = 100

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Edited    bool      `json:"edited"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`

	// Author display fields, joined from users.
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

type MessageStore struct {
	db *db.DB
}

func NewMessageStore(database *db.DB) *MessageStore {
	return &MessageStore{db: database}
}

// Create persists a message and bumps the room's updated_at and the other
// members' unread counters in the same transaction.
func (s *MessageStore) Create(ctx context.Context, roomID, userID, content, msgType string) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (room_id, user_id, content, type, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, roomID, userID, content, msgType, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rooms SET updated_at = ? WHERE id = ?`, now, roomID); err != nil {
		return nil, fmt.Errorf("failed to touch room: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE room_members SET unread_count = unread_count + 1
		WHERE room_id = ? AND user_id != ?
	`, roomID, userID); err != nil {
		return nil, fmt.Errorf("failed to increment unread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns a message including its soft-delete state. Callers that must
// not observe deleted messages check msg.Deleted themselves; this keeps the
// re-validation before broadcast explicit at the call site.
func (s *MessageStore) Get(ctx context.Context, id string) (*Message, error) {
	var m Message
	var avatar, deletedAt sql.NullString
	var edited int
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.room_id, m.user_id, m.content, m.type, m.edited, m.deleted_at, m.created_at,
		       u.username, u.avatar
		FROM messages m JOIN users u ON u.id = m.user_id
		WHERE m.id = ?
	`, id).Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.Type, &edited, &deletedAt,
		&createdAt, &m.Username, &avatar)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	m.Edited = edited != 0
	m.Deleted = deletedAt.Valid
	m.CreatedAt = parseTime(createdAt)
	if avatar.Valid {
		m.Avatar = &avatar.String
	}
	return &m, nil
}

// UpdateContent sets new content and marks the message edited. Soft-deleted
// messages are not updatable.
func (s *MessageStore) UpdateContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET content = ?, edited = 1 WHERE id = ? AND deleted_at IS NULL
	`, content, id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message: %w", ErrNotFound)
	}
	return nil
}

// SoftDelete marks the message deleted without erasing the row, so delete
// events can still reference a valid id.
func (s *MessageStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("message: %w", ErrNotFound)
	}
	return nil
}

// ListRoom returns the room's most recent messages, oldest first, excluding
// soft-deleted ones, bounded to the last 100.
func (s *MessageStore) ListRoom(ctx context.Context, roomID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, user_id, content, type, edited, created_at, username, avatar FROM (
			SELECT m.id, m.room_id, m.user_id, m.content, m.type, m.edited, m.created_at,
			       u.username, u.avatar
			FROM messages m JOIN users u ON u.id = m.user_id
			WHERE m.room_id = ? AND m.deleted_at IS NULL
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, roomID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var avatar sql.NullString
		var edited int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.Type, &edited,
			&createdAt, &m.Username, &avatar); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Edited = edited != 0
		m.CreatedAt = parseTime(createdAt)
		if avatar.Valid {
			m.Avatar = &avatar.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
