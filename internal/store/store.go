// Package store implements the durable chat state: users, rooms,
// memberships, messages and reactions over SQLite.
//
// The realtime hub treats this package as its storage collaborator; it
// never caches rows itself beyond transient broadcast payloads.
package store

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a row does not exist (or a message is soft-deleted).
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("already exists")
)

// nowUTC writes a fixed-width nanosecond timestamp so lexicographic order on
// the column matches chronological order, second-sharing rows included.
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// parseTime accepts both RFC3339 (written by Go) and the format SQLite's
// datetime('now') default produces.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
