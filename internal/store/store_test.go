// internal/store/store_test.go
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfjones/chatter/internal/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "chatter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())
	return database
}

func mustUser(t *testing.T, users *UserStore, email, username string) *User {
	t.Helper()
	user, err := users.Create(context.Background(), email, username, "hash")
	require.NoError(t, err)
	return user
}

func mustRoom(t *testing.T, rooms *RoomStore, name, roomType, creatorID string) *Room {
	t.Helper()
	room, err := rooms.Create(context.Background(), name, nil, roomType, creatorID)
	require.NoError(t, err)
	return room
}
