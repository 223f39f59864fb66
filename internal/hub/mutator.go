// internal/hub/mutator.go
package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/mfjones/chatter/internal/store"
)

// Mutator serializes message mutations and couples each durable write to its
// broadcast. It holds the per-message lock across commit plus fan-out enqueue
// so two mutations of one message reach subscribers in commit order, and a
// per-room lock across create plus fan-out so new messages go out in the
// order they were persisted. Registry snapshots are never taken under either
// lock's critical section for longer than the enqueue itself.
//
// Lock order is message before room, everywhere.
type Mutator struct {
	messages  *store.MessageStore
	reactions *store.ReactionStore

	msgLocks  *keyedMutex
	roomSends *keyedMutex

	broadcast func(roomID string, evt *Event)
}

func NewMutator(messages *store.MessageStore, reactions *store.ReactionStore, broadcast func(roomID string, evt *Event)) *Mutator {
	return &Mutator{
		messages:  messages,
		reactions: reactions,
		msgLocks:  newKeyedMutex(),
		roomSends: newKeyedMutex(),
		broadcast: broadcast,
	}
}

// CreateMessage persists a new message and fans out new_message. The room
// send lock makes persist order equal delivery order for a room's creates.
func (m *Mutator) CreateMessage(ctx context.Context, roomID, userID, content, msgType string) (*store.Message, error) {
	if msgType == "" {
		msgType = store.MessageText
	}

	m.roomSends.Lock(roomID)
	defer m.roomSends.Unlock(roomID)

	msg, err := m.messages.Create(ctx, roomID, userID, content, msgType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	m.broadcast(roomID, NewEvent(EventNewMessage, msg))
	return msg, nil
}

// EditMessage replaces the message content after verifying the editor owns
// it, then fans out message_updated with the reloaded row.
func (m *Mutator) EditMessage(ctx context.Context, messageID, userID, newContent string) (*store.Message, error) {
	m.msgLocks.Lock(messageID)
	defer m.msgLocks.Unlock(messageID)

	msg, err := m.loadLive(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != userID {
		return nil, fmt.Errorf("%w: cannot edit another user's message", ErrForbidden)
	}

	if err := m.messages.UpdateContent(ctx, messageID, newContent); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	updated, err := m.messages.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	m.roomSends.Lock(msg.RoomID)
	m.broadcast(msg.RoomID, NewEvent(EventMessageUpdated, updated))
	m.roomSends.Unlock(msg.RoomID)
	return updated, nil
}

// DeleteMessage soft-deletes the message after an ownership check and fans
// out message_deleted. Deleting an already-deleted message reports not found.
func (m *Mutator) DeleteMessage(ctx context.Context, messageID, userID string) (roomID string, err error) {
	m.msgLocks.Lock(messageID)
	defer m.msgLocks.Unlock(messageID)

	msg, err := m.loadLive(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.UserID != userID {
		return "", fmt.Errorf("%w: cannot delete another user's message", ErrForbidden)
	}

	if err := m.messages.SoftDelete(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}

	m.roomSends.Lock(msg.RoomID)
	m.broadcast(msg.RoomID, NewEvent(EventMessageDeleted, MessageDeletedPayload{MessageID: messageID}))
	m.roomSends.Unlock(msg.RoomID)
	return msg.RoomID, nil
}

// ToggleReaction flips the (user, message, emoji) reaction and fans out
// reaction_added or reaction_removed to match what actually happened.
func (m *Mutator) ToggleReaction(ctx context.Context, messageID, userID, emoji string) (added bool, err error) {
	m.msgLocks.Lock(messageID)
	defer m.msgLocks.Unlock(messageID)

	msg, err := m.loadLive(ctx, messageID)
	if err != nil {
		return false, err
	}

	added, err = m.reactions.Toggle(ctx, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	eventType := EventReactionRemoved
	if added {
		eventType = EventReactionAdded
	}
	m.roomSends.Lock(msg.RoomID)
	m.broadcast(msg.RoomID, NewEvent(eventType, ReactionEventPayload{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
	}))
	m.roomSends.Unlock(msg.RoomID)
	return added, nil
}

// RemoveReaction deletes the reaction if present. Removing an absent reaction
// succeeds quietly and fans out nothing.
func (m *Mutator) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	m.msgLocks.Lock(messageID)
	defer m.msgLocks.Unlock(messageID)

	msg, err := m.loadLive(ctx, messageID)
	if err != nil {
		return err
	}

	removed, err := m.reactions.Remove(ctx, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !removed {
		return nil
	}

	m.roomSends.Lock(msg.RoomID)
	m.broadcast(msg.RoomID, NewEvent(EventReactionRemoved, ReactionEventPayload{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    userID,
	}))
	m.roomSends.Unlock(msg.RoomID)
	return nil
}

// loadLive fetches the message and rejects soft-deleted ones, so a mutation
// racing a delete resolves deterministically under the message lock.
func (m *Mutator) loadLive(ctx context.Context, messageID string) (*store.Message, error) {
	msg, err := m.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if msg.Deleted {
		return nil, fmt.Errorf("message: %w", ErrNotFound)
	}
	return msg, nil
}
