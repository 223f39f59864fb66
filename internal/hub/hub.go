// internal/hub/hub.go
package hub

import (
	"context"
	"fmt"

	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/log"
	"github.com/mfjones/chatter/internal/store"
)

// Hub owns the realtime state of the service: the connection registry,
// presence, typing indicators and the mutation coordinator. Every websocket
// event lands here after dispatch.
type Hub struct {
	registry *Registry
	presence *PresenceTracker
	typing   *TypingDebouncer
	mutator  *Mutator

	users     *store.UserStore
	rooms     *store.RoomStore
	members   *store.MemberStore
	messages  *store.MessageStore
	reactions *store.ReactionStore
}

func NewHub(database *db.DB) *Hub {
	h := &Hub{
		registry:  NewRegistry(),
		presence:  NewPresenceTracker(),
		users:     store.NewUserStore(database),
		rooms:     store.NewRoomStore(database),
		members:   store.NewMemberStore(database),
		messages:  store.NewMessageStore(database),
		reactions: store.NewReactionStore(database),
	}
	h.typing = NewTypingDebouncer(h.typingExpired)
	h.mutator = NewMutator(h.messages, h.reactions, h.Broadcast)
	return h
}

// Broadcast enqueues the event on every connection subscribed to the room.
func (h *Hub) Broadcast(roomID string, evt *Event) {
	for _, c := range h.registry.ConnectionsFor(roomID) {
		c.Send(evt)
	}
}

// BroadcastExcept is Broadcast minus one connection, for events the
// originator should not echo back to itself.
func (h *Hub) BroadcastExcept(roomID, exceptConnID string, evt *Event) {
	for _, c := range h.registry.ConnectionsFor(roomID) {
		if c.id == exceptConnID {
			continue
		}
		c.Send(evt)
	}
}

// HandleConnect registers a fresh connection and raises the user's presence.
func (h *Hub) HandleConnect(ctx context.Context, c *Conn) {
	h.registry.Register(c)

	if status, changed := h.presence.OnConnect(c.userID); changed {
		h.publishStatus(ctx, c.userID, status, nil)
	}

	conns, rooms := h.registry.Counts()
	log.Debug("connection opened", "conn_id", c.id, "user_id", c.userID, "conns", conns, "rooms", rooms)
}

// HandleDisconnect tears a connection down. Idempotent: the registry removal
// reports which rooms were affected, and a second call finds none. The
// teardown order is fixed so subscribers observe stop-typing and user_left
// before the offline status change.
func (h *Hub) HandleDisconnect(ctx context.Context, c *Conn) {
	c.Close()
	affected := h.registry.UnregisterAll(c.id)

	for _, roomID := range affected {
		if h.registry.UserSubscribed(c.userID, roomID) {
			continue
		}
		if h.typing.Stop(roomID, c.userID) {
			h.Broadcast(roomID, NewEvent(EventUserStoppedTyping, TypingEventPayload{
				UserID:   c.userID,
				Username: c.username,
			}))
		}
		h.Broadcast(roomID, NewEvent(EventUserLeft, UserLeftPayload{Username: c.username}))
	}

	if status, changed := h.presence.OnDisconnect(c.userID); changed {
		h.publishStatus(ctx, c.userID, status, affected)
	}

	conns, rooms := h.registry.Counts()
	log.Debug("connection closed", "conn_id", c.id, "user_id", c.userID, "conns", conns, "rooms", rooms)
}

// JoinRoom subscribes the connection to a room. Public rooms are joined on
// first contact; private and direct rooms require existing membership. The
// user's unread counter for the room is reset as a side effect.
func (h *Hub) JoinRoom(ctx context.Context, c *Conn, roomID string) error {
	room, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}

	isMember, err := h.members.IsMember(ctx, c.userID, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !isMember {
		if room.Type != store.RoomPublic {
			return ErrNotAMember
		}
		if err := h.members.Create(ctx, c.userID, roomID, store.RoleMember); err != nil {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}

	firstForUser := !h.registry.UserSubscribed(c.userID, roomID)
	if !h.registry.Subscribe(c.id, roomID) {
		return nil
	}

	if err := h.members.ResetUnread(ctx, c.userID, roomID); err != nil {
		log.Warn("failed to reset unread counter", "user_id", c.userID, "room_id", roomID, "error", err)
	}

	if firstForUser {
		h.BroadcastExcept(roomID, c.id, NewEvent(EventUserJoined, UserJoinedPayload{Username: c.username}))
	}
	return nil
}

// LeaveRoom unsubscribes the connection. The room only sees user_left once
// the user's last subscribed connection is gone.
func (h *Hub) LeaveRoom(ctx context.Context, c *Conn, roomID string) error {
	if !h.registry.IsSubscribed(c.id, roomID) {
		return nil
	}
	h.registry.Unsubscribe(c.id, roomID)

	if h.registry.UserSubscribed(c.userID, roomID) {
		return nil
	}
	if h.typing.Stop(roomID, c.userID) {
		h.Broadcast(roomID, NewEvent(EventUserStoppedTyping, TypingEventPayload{
			UserID:   c.userID,
			Username: c.username,
		}))
	}
	h.Broadcast(roomID, NewEvent(EventUserLeft, UserLeftPayload{Username: c.username}))
	return nil
}

// HistoryMessage is a message hydrated with its reaction groups for the
// initial room_messages snapshot.
type HistoryMessage struct {
	store.Message
	Reactions []store.ReactionGroup `json:"reactions"`
}

// RoomMessages returns the room's recent history for the requesting
// connection. Requires an active subscription.
func (h *Hub) RoomMessages(ctx context.Context, c *Conn, roomID string) ([]HistoryMessage, error) {
	if !h.registry.IsSubscribed(c.id, roomID) {
		return nil, ErrNotAMember
	}

	msgs, err := h.messages.ListRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	groups, err := h.reactions.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, msg := range msgs {
		history = append(history, HistoryMessage{Message: msg, Reactions: groups[msg.ID]})
	}
	return history, nil
}

// SendMessage persists and fans out a new message. Membership is checked
// here; the mutator assumes an authorized caller.
func (h *Hub) SendMessage(ctx context.Context, c *Conn, p *SendRoomMessagePayload) (*store.Message, error) {
	if err := h.requireMember(ctx, c.userID, p.RoomID); err != nil {
		return nil, err
	}
	return h.mutator.CreateMessage(ctx, p.RoomID, c.userID, p.Content, p.Type)
}

func (h *Hub) requireMember(ctx context.Context, userID, roomID string) error {
	isMember, err := h.members.IsMember(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if !isMember {
		return ErrNotAMember
	}
	return nil
}

// EditMessage delegates to the mutator, which enforces ownership.
func (h *Hub) EditMessage(ctx context.Context, c *Conn, p *EditMessagePayload) error {
	_, err := h.mutator.EditMessage(ctx, p.MessageID, c.userID, p.NewContent)
	return err
}

// DeleteMessage delegates to the mutator, which enforces ownership.
func (h *Hub) DeleteMessage(ctx context.Context, c *Conn, p *DeleteMessagePayload) error {
	_, err := h.mutator.DeleteMessage(ctx, p.MessageID, c.userID)
	return err
}

// ToggleReaction flips the caller's reaction on a message.
func (h *Hub) ToggleReaction(ctx context.Context, c *Conn, p *ReactionPayload) error {
	if err := h.requireMember(ctx, c.userID, p.RoomID); err != nil {
		return err
	}
	_, err := h.mutator.ToggleReaction(ctx, p.MessageID, c.userID, p.Emoji)
	return err
}

// RemoveReaction removes the caller's reaction on a message if present.
func (h *Hub) RemoveReaction(ctx context.Context, c *Conn, p *ReactionPayload) error {
	if err := h.requireMember(ctx, c.userID, p.RoomID); err != nil {
		return err
	}
	return h.mutator.RemoveReaction(ctx, p.MessageID, c.userID, p.Emoji)
}

// Typing raises the caller's typing indicator. Only the first signal in a
// burst fans out; refreshes just push the expiry forward.
func (h *Hub) Typing(c *Conn, roomID, username string) error {
	if !h.registry.IsSubscribed(c.id, roomID) {
		return ErrNotAMember
	}
	if username == "" {
		username = c.username
	}
	if h.typing.Signal(roomID, c.userID, username) {
		h.BroadcastExcept(roomID, c.id, NewEvent(EventUserTyping, TypingEventPayload{
			UserID:   c.userID,
			Username: username,
		}))
	}
	return nil
}

// StopTyping clears the caller's typing indicator.
func (h *Hub) StopTyping(c *Conn, roomID string) error {
	if !h.registry.IsSubscribed(c.id, roomID) {
		return ErrNotAMember
	}
	if h.typing.Stop(roomID, c.userID) {
		h.BroadcastExcept(roomID, c.id, NewEvent(EventUserStoppedTyping, TypingEventPayload{
			UserID:   c.userID,
			Username: c.username,
		}))
	}
	return nil
}

// SetUserStatus applies an explicit presence request, typically from the
// profile endpoint. OFFLINE cannot be forced while connections remain.
func (h *Hub) SetUserStatus(ctx context.Context, userID, requested string) {
	if status, changed := h.presence.SetStatus(userID, requested); changed {
		h.publishStatus(ctx, userID, status, nil)
	}
}

// UserStatus returns the user's current effective presence.
func (h *Hub) UserStatus(userID string) string {
	return h.presence.Status(userID)
}

// typingExpired is the debouncer's timeout callback.
func (h *Hub) typingExpired(roomID, userID, username string) {
	h.Broadcast(roomID, NewEvent(EventUserStoppedTyping, TypingEventPayload{
		UserID:   userID,
		Username: username,
	}))
}

// publishStatus writes the new status through to the users table and fans
// out user_status_changed to every room the user is visible in. The write is
// best effort: presence is in-memory truth, the column is a convenience for
// the REST surface.
func (h *Hub) publishStatus(ctx context.Context, userID, status string, extraRooms []string) {
	if err := h.users.UpdateStatus(ctx, userID, status); err != nil {
		log.Warn("failed to persist user status", "user_id", userID, "status", status, "error", err)
	}

	seen := make(map[string]struct{})
	evt := NewEvent(EventUserStatusChanged, StatusChangedPayload{UserID: userID, Status: status})
	for _, roomID := range h.registry.RoomsForUser(userID) {
		seen[roomID] = struct{}{}
		h.Broadcast(roomID, evt)
	}
	for _, roomID := range extraRooms {
		if _, ok := seen[roomID]; ok {
			continue
		}
		h.Broadcast(roomID, evt)
	}
}
