// internal/store/reactions_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reactionFixture struct {
	users     *UserStore
	rooms     *RoomStore
	messages  *MessageStore
	reactions *ReactionStore

	alice *User
	bob   *User
	room  *Room
	msg   *Message
}

func newReactionFixture(t *testing.T) *reactionFixture {
	t.Helper()
	database := newTestDB(t)
	f := &reactionFixture{
		users:     NewUserStore(database),
		rooms:     NewRoomStore(database),
		messages:  NewMessageStore(database),
		reactions: NewReactionStore(database),
	}
	f.alice = mustUser(t, f.users, "alice@test.io", "alice")
	f.bob = mustUser(t, f.users, "bob@test.io", "bob")
	f.room = mustRoom(t, f.rooms, "general", RoomPublic, f.alice.ID)

	var err error
	f.msg, err = f.messages.Create(context.Background(), f.room.ID, f.alice.ID, "hello", MessageText)
	require.NoError(t, err)
	return f
}

func TestReactionToggle(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	added, err := f.reactions.Toggle(ctx, f.msg.ID, f.alice.ID, "👍")
	require.NoError(t, err)
	assert.True(t, added)

	// Same user, same emoji again: removed.
	added, err = f.reactions.Toggle(ctx, f.msg.ID, f.alice.ID, "👍")
	require.NoError(t, err)
	assert.False(t, added)

	groups, err := f.reactions.ListByMessage(ctx, f.msg.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestReactionGrouping(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	for _, r := range []struct{ userID, emoji string }{
		{f.alice.ID, "👍"},
		{f.bob.ID, "👍"},
		{f.bob.ID, "🎉"},
	} {
		added, err := f.reactions.Toggle(ctx, f.msg.ID, r.userID, r.emoji)
		require.NoError(t, err)
		require.True(t, added)
	}

	groups, err := f.reactions.ListByMessage(ctx, f.msg.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{f.alice.ID, f.bob.ID}, groups[0].Users)
	assert.Equal(t, "🎉", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
}

func TestReactionRemove(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	_, err := f.reactions.Toggle(ctx, f.msg.ID, f.alice.ID, "👍")
	require.NoError(t, err)

	removed, err := f.reactions.Remove(ctx, f.msg.ID, f.alice.ID, "👍")
	require.NoError(t, err)
	assert.True(t, removed)

	// Removing an absent reaction is a quiet no-op.
	removed, err = f.reactions.Remove(ctx, f.msg.ID, f.alice.ID, "👍")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReactionListByRoomSkipsDeletedMessages(t *testing.T) {
	f := newReactionFixture(t)
	ctx := context.Background()

	second, err := f.messages.Create(ctx, f.room.ID, f.bob.ID, "another", MessageText)
	require.NoError(t, err)

	_, err = f.reactions.Toggle(ctx, f.msg.ID, f.bob.ID, "👍")
	require.NoError(t, err)
	_, err = f.reactions.Toggle(ctx, second.ID, f.alice.ID, "🎉")
	require.NoError(t, err)

	byMessage, err := f.reactions.ListByRoom(ctx, f.room.ID)
	require.NoError(t, err)
	require.Len(t, byMessage, 2)
	assert.Equal(t, "👍", byMessage[f.msg.ID][0].Emoji)
	assert.Equal(t, "🎉", byMessage[second.ID][0].Emoji)

	require.NoError(t, f.messages.SoftDelete(ctx, second.ID))
	byMessage, err = f.reactions.ListByRoom(ctx, f.room.ID)
	require.NoError(t, err)
	require.Len(t, byMessage, 1)
	_, ok := byMessage[second.ID]
	assert.False(t, ok)
}
