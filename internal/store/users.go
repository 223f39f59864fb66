// internal/store/users.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mfjones/chatter/internal/db"
)

// Presence states stored on the users table.
const (
	StatusOnline  = "ONLINE"
	StatusAway    = "AWAY"
	StatusOffline = "OFFLINE"
)

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	EncryptedPassword string     `json:"-"`
	Avatar            *string    `json:"avatar"`
	Status            string     `json:"status"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type UserStore struct {
	db *db.DB
}

func NewUserStore(database *db.DB) *UserStore {
	return &UserStore{db: database}
}

func (s *UserStore) Create(ctx context.Context, email, username, encryptedPassword string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	now := nowUTC()

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, encrypted_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, email, username, encryptedPassword, now, now).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", username, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *UserStore) Get(ctx context.Context, id string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, encrypted_password, avatar, status, last_seen, created_at, updated_at
		FROM users WHERE id = ?
	`, id))
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, encrypted_password, avatar, status, last_seen, created_at, updated_at
		FROM users WHERE email = ?
	`, email))
}

func (s *UserStore) scanOne(row *sql.Row) (*User, error) {
	var user User
	var avatar, lastSeen sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.EncryptedPassword,
		&avatar, &user.Status, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if avatar.Valid {
		user.Avatar = &avatar.String
	}
	if lastSeen.Valid {
		t := parseTime(lastSeen.String)
		user.LastSeen = &t
	}
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	return &user, nil
}

// UpdateProfile sets username and avatar. Empty username is rejected by the caller.
func (s *UserStore) UpdateProfile(ctx context.Context, id, username string, avatar *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = ?, avatar = ?, updated_at = ? WHERE id = ?
	`, username, avatar, nowUTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %s: %w", username, ErrDuplicate)
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// UpdateStatus records the presence status and last-seen timestamp.
// Callers treat failures as best-effort; the in-memory presence value
// stays authoritative for live broadcasts.
func (s *UserStore) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET status = ?, last_seen = ?, updated_at = ? WHERE id = ?
	`, status, nowUTC(), nowUTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// ListAvailable returns all users except the given one, for the DM picker.
func (s *UserStore) ListAvailable(ctx context.Context, excludeID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, username, encrypted_password, avatar, status, last_seen, created_at, updated_at
		FROM users WHERE id != ? ORDER BY username
	`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		var avatar, lastSeen sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.EncryptedPassword,
			&avatar, &user.Status, &lastSeen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if avatar.Valid {
			user.Avatar = &avatar.String
		}
		if lastSeen.Valid {
			t := parseTime(lastSeen.String)
			user.LastSeen = &t
		}
		user.CreatedAt = parseTime(createdAt)
		user.UpdatedAt = parseTime(updatedAt)
		users = append(users, user)
	}
	return users, rows.Err()
}
