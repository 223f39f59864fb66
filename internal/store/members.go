// internal/store/members.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mfjones/chatter/internal/db"
)

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership is the durable record that a user belongs to a room.
// Distinct from a subscription, which is the ephemeral fact that a live
// connection is currently receiving broadcasts for the room.
type Membership struct {
	UserID      string    `json:"user_id"`
	RoomID      string    `json:"room_id"`
	Role        string    `json:"role"`
	UnreadCount int       `json:"unread_count"`
	JoinedAt    time.Time `json:"joined_at"`
}

type MemberStore struct {
	db *db.DB
}

func NewMemberStore(database *db.DB) *MemberStore {
	return &MemberStore{db: database}
}

func (s *MemberStore) Get(ctx context.Context, userID, roomID string) (*Membership, error) {
	var m Membership
	var joinedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, room_id, role, unread_count, joined_at
		FROM room_members WHERE user_id = ? AND room_id = ?
	`, userID, roomID).Scan(&m.UserID, &m.RoomID, &m.Role, &m.UnreadCount, &joinedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.JoinedAt = parseTime(joinedAt)
	return &m, nil
}

func (s *MemberStore) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM room_members WHERE user_id = ? AND room_id = ?
	`, userID, roomID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// Create adds a membership. Adding an existing (user, room) pair is a no-op.
func (s *MemberStore) Create(ctx context.Context, userID, roomID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_members (user_id, room_id, role, joined_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, room_id) DO NOTHING
	`, userID, roomID, role, nowUTC())
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (s *MemberStore) Delete(ctx context.Context, userID, roomID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM room_members WHERE user_id = ? AND room_id = ?
	`, userID, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}

// ListRoom returns memberships for a room.
func (s *MemberStore) ListRoom(ctx context.Context, roomID string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, room_id, role, unread_count, joined_at
		FROM room_members WHERE room_id = ?
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		var joinedAt string
		if err := rows.Scan(&m.UserID, &m.RoomID, &m.Role, &m.UnreadCount, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		m.JoinedAt = parseTime(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// ResetUnread zeroes the unread counter for a member, e.g. when they open the room.
func (s *MemberStore) ResetUnread(ctx context.Context, userID, roomID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE room_members SET unread_count = 0 WHERE user_id = ? AND room_id = ?
	`, userID, roomID)
	if err != nil {
		return fmt.Errorf("failed to reset unread: %w", err)
	}
	return nil
}
