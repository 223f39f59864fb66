package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, database.RunMigrations())

	// Running migrations again must be a no-op
	require.NoError(t, database.RunMigrations())

	rows, err := database.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	require.NoError(t, err)
	defer rows.Close()

	tables := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables[name] = true
	}

	for _, want := range []string{"users", "rooms", "room_members", "messages", "reactions"} {
		assert.True(t, tables[want], "missing table %s", want)
	}
}

func TestReactionUniqueness(t *testing.T) {
	path := t.TempDir() + "/test.db"
	database, err := New(path)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.RunMigrations())

	_, err = database.Exec(`INSERT INTO users (id, email, username, encrypted_password) VALUES ('u1', 'a@b.c', 'alice', 'x')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO rooms (id, name, creator_id) VALUES ('r1', 'general', 'u1')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO messages (id, room_id, user_id, content) VALUES ('m1', 'r1', 'u1', 'hi')`)
	require.NoError(t, err)

	_, err = database.Exec(`INSERT INTO reactions (message_id, user_id, emoji) VALUES ('m1', 'u1', '👍')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO reactions (message_id, user_id, emoji) VALUES ('m1', 'u1', '👍')`)
	assert.Error(t, err, "duplicate (user, message, emoji) must violate unique constraint")
}
