// internal/store/rooms.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mfjones/chatter/internal/db"
)

// Room types.
const (
	RoomPublic  = "PUBLIC"
	RoomPrivate = "PRIVATE"
	RoomDirect  = "DIRECT"
)

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Type        string    `json:"type"`
	CreatorID   string    `json:"creator_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoomStore struct {
	db *db.DB
}

func NewRoomStore(database *db.DB) *RoomStore {
	return &RoomStore{db: database}
}

// Create inserts the room and makes the creator an admin member, atomically.
func (s *RoomStore) Create(ctx context.Context, name string, description *string, roomType, creatorID string) (*Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO rooms (name, description, type, creator_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, name, description, roomType, creatorID, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO room_members (user_id, room_id, role, joined_at) VALUES (?, ?, 'admin', ?)
	`, creatorID, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return s.Get(ctx, id)
}

// CreateDirect creates a DIRECT room between two users, or returns the
// existing one if they already share a direct room.
func (s *RoomStore) CreateDirect(ctx context.Context, userA, userB string) (*Room, error) {
	var existing string
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id FROM rooms r
		JOIN room_members ma ON ma.room_id = r.id AND ma.user_id = ?
		JOIN room_members mb ON mb.room_id = r.id AND mb.user_id = ?
		WHERE r.type = 'DIRECT'
		LIMIT 1
	`, userA, userB).Scan(&existing)
	if err == nil {
		return s.Get(ctx, existing)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up direct room: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := nowUTC()
	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO rooms (name, type, creator_id, created_at, updated_at)
		VALUES ('', 'DIRECT', ?, ?, ?)
		RETURNING id
	`, userA, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create direct room: %w", err)
	}

	for _, uid := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO room_members (user_id, room_id, role, joined_at) VALUES (?, ?, 'member', ?)
		`, uid, id, now); err != nil {
			return nil, fmt.Errorf("failed to add direct member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *RoomStore) Get(ctx context.Context, id string) (*Room, error) {
	var room Room
	var description sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.name, r.description, r.type, r.creator_id, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id)
		FROM rooms r WHERE r.id = ?
	`, id).Scan(&room.ID, &room.Name, &description, &room.Type, &room.CreatorID,
		&createdAt, &updatedAt, &room.MemberCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if description.Valid {
		room.Description = &description.String
	}
	room.CreatedAt = parseTime(createdAt)
	room.UpdatedAt = parseTime(updatedAt)
	return &room, nil
}

// ListForUser returns public rooms plus private/direct rooms the user belongs
// to, most recently active first.
func (s *RoomStore) ListForUser(ctx context.Context, userID string) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.type, r.creator_id, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id)
		FROM rooms r
		WHERE r.type = 'PUBLIC'
		   OR EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = r.id AND m.user_id = ?)
		ORDER BY r.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		var description sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&room.ID, &room.Name, &description, &room.Type, &room.CreatorID,
			&createdAt, &updatedAt, &room.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if description.Valid {
			room.Description = &description.String
		}
		room.CreatedAt = parseTime(createdAt)
		room.UpdatedAt = parseTime(updatedAt)
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *RoomStore) Update(ctx context.Context, id, name string, description *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET name = ?, description = ?, updated_at = ? WHERE id = ?
	`, name, description, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("room: %w", ErrNotFound)
	}
	return nil
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("room: %w", ErrNotFound)
	}
	return nil
}
