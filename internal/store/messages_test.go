// internal/store/messages_test.go
package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCreateSideEffects(t *testing.T) {
	database := newTestDB(t)
	users := NewUserStore(database)
	rooms := NewRoomStore(database)
	members := NewMemberStore(database)
	messages := NewMessageStore(database)
	ctx := context.Background()

	alice := mustUser(t, users, "alice@test.io", "alice")
	bob := mustUser(t, users, "bob@test.io", "bob")
	room := mustRoom(t, rooms, "general", RoomPublic, alice.ID)
	require.NoError(t, members.Create(ctx, bob.ID, room.ID, RoleMember))

	before, err := rooms.Get(ctx, room.ID)
	require.NoError(t, err)

	msg, err := messages.Create(ctx, room.ID, alice.ID, "hello", MessageText)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "alice", msg.Username)
	assert.False(t, msg.Edited)
	assert.False(t, msg.Deleted)

	// The room's activity timestamp moved forward.
	after, err := rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	// Only the other member's unread counter was bumped.
	m, err := members.Get(ctx, bob.ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, m.UnreadCount)
	m, err = members.Get(ctx, alice.ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.UnreadCount)
}

func TestMessageUpdateContent(t *testing.T) {
	database := newTestDB(t)
	users := NewUserStore(database)
	rooms := NewRoomStore(database)
	messages := NewMessageStore(database)
	ctx := context.Background()

	alice := mustUser(t, users, "alice@test.io", "alice")
	room := mustRoom(t, rooms, "general", RoomPublic, alice.ID)
	msg, err := messages.Create(ctx, room.ID, alice.ID, "hello", MessageText)
	require.NoError(t, err)

	require.NoError(t, messages.UpdateContent(ctx, msg.ID, "hello, edited"))

	got, err := messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello, edited", got.Content)
	assert.True(t, got.Edited)
}

func TestMessageSoftDelete(t *testing.T) {
	database := newTestDB(t)
	users := NewUserStore(database)
	rooms := NewRoomStore(database)
	messages := NewMessageStore(database)
	ctx := context.Background()

	alice := mustUser(t, users, "alice@test.io", "alice")
	room := mustRoom(t, rooms, "general", RoomPublic, alice.ID)
	msg, err := messages.Create(ctx, room.ID, alice.ID, "hello", MessageText)
	require.NoError(t, err)

	require.NoError(t, messages.SoftDelete(ctx, msg.ID))

	// The row survives with the deleted flag set.
	got, err := messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	// Deleted messages reject edits and repeat deletes.
	assert.ErrorIs(t, messages.UpdateContent(ctx, msg.ID, "too late"), ErrNotFound)
	assert.ErrorIs(t, messages.SoftDelete(ctx, msg.ID), ErrNotFound)
}

func TestMessageListRoomOrderAndLimit(t *testing.T) {
	database := newTestDB(t)
	users := NewUserStore(database)
	rooms := NewRoomStore(database)
	messages := NewMessageStore(database)
	ctx := context.Background()

	alice := mustUser(t, users, "alice@test.io", "alice")
	room := mustRoom(t, rooms, "general", RoomPublic, alice.ID)

	for i := 0; i < historyLimit+5; i++ {
		_, err := messages.Create(ctx, room.ID, alice.ID, fmt.Sprintf("msg %d", i), MessageText)
		require.NoError(t, err)
	}

	list, err := messages.ListRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, list, historyLimit)

	// Oldest first, with the oldest 5 trimmed off the window.
	assert.Equal(t, "msg 5", list[0].Content)
	assert.Equal(t, fmt.Sprintf("msg %d", historyLimit+4), list[len(list)-1].Content)
}

func TestMessageListRoomExcludesDeleted(t *testing.T) {
	database := newTestDB(t)
	users := NewUserStore(database)
	rooms := NewRoomStore(database)
	messages := NewMessageStore(database)
	ctx := context.Background()

	alice := mustUser(t, users, "alice@test.io", "alice")
	room := mustRoom(t, rooms, "general", RoomPublic, alice.ID)

	keep, err := messages.Create(ctx, room.ID, alice.ID, "keep", MessageText)
	require.NoError(t, err)
	gone, err := messages.Create(ctx, room.ID, alice.ID, "gone", MessageText)
	require.NoError(t, err)
	require.NoError(t, messages.SoftDelete(ctx, gone.ID))

	list, err := messages.ListRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}
