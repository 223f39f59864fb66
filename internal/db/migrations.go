// internal/db/migrations.go
package db

import "fmt"

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
    id                  TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
    email               TEXT UNIQUE NOT NULL,
    username            TEXT UNIQUE NOT NULL,
    encrypted_password  TEXT NOT NULL,
    avatar              TEXT,
    status              TEXT NOT NULL DEFAULT 'OFFLINE' CHECK (status IN ('ONLINE', 'AWAY', 'OFFLINE')),
    last_seen           TEXT,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const roomSchema = `
CREATE TABLE IF NOT EXISTS rooms (
    id           TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
    name         TEXT NOT NULL,
    description  TEXT,
    type         TEXT NOT NULL DEFAULT 'PUBLIC' CHECK (type IN ('PUBLIC', 'PRIVATE', 'DIRECT')),
    creator_id   TEXT NOT NULL REFERENCES users(id),
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS room_members (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    room_id       TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'member')),
    unread_count  INTEGER NOT NULL DEFAULT 0,
    joined_at     TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(user_id, room_id)
);

CREATE INDEX IF NOT EXISTS idx_room_members_room_id ON room_members(room_id);
CREATE INDEX IF NOT EXISTS idx_room_members_user_id ON room_members(user_id);
`

const messageSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
    room_id     TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    user_id     TEXT NOT NULL REFERENCES users(id),
    content     TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT 'TEXT' CHECK (type IN ('TEXT', 'IMAGE')),
    edited      INTEGER NOT NULL DEFAULT 0,
    deleted_at  TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room_id, created_at);

CREATE TABLE IF NOT EXISTS reactions (
    id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
    message_id  TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    emoji       TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(user_id, message_id, emoji)
);

CREATE INDEX IF NOT EXISTS idx_reactions_message_id ON reactions(message_id);
`

// RunMigrations creates the schema tables if they don't exist.
func (db *DB) RunMigrations() error {
	for _, schema := range []string{userSchema, roomSchema, messageSchema} {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
