// Package hub implements the realtime messaging and presence core of
// chatter: websocket connection lifecycle, room subscriptions, presence
// and typing state, serialized message mutations and per-room fan-out.
package hub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mfjones/chatter/internal/store"
)

// Event is the wire envelope for both directions. Payloads are typed per
// event and validated exhaustively before any component is invoked.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client events.
const (
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventGetRoomMessages = "get_room_messages"
	EventSendRoomMessage = "send_room_message"
	EventEditMessage     = "edit_message"
	EventDeleteMessage   = "delete_message"
	EventAddReaction     = "add_reaction"
	EventRemoveReaction  = "remove_reaction"
	EventTyping          = "typing"
	EventStopTyping      = "stop_typing"
)

// Server events.
const (
	EventRoomMessages      = "room_messages"
	EventNewMessage        = "new_message"
	EventMessageUpdated    = "message_updated"
	EventMessageDeleted    = "message_deleted"
	EventReactionAdded     = "reaction_added"
	EventReactionRemoved   = "reaction_removed"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventUserStatusChanged = "user_status_changed"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventError             = "error"
)

// Inbound payloads.

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (p *JoinRoomPayload) Validate() error {
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidInput)
	}
	return nil
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (p *LeaveRoomPayload) Validate() error {
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidInput)
	}
	return nil
}

type GetRoomMessagesPayload struct {
	RoomID string `json:"roomId"`
}

func (p *GetRoomMessagesPayload) Validate() error {
	if p.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrInvalidInput)
	}
	return nil
}

type SendRoomMessagePayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Type     string `json:"type"`
}

func (p *SendRoomMessagePayload) Validate() error {
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	switch p.Type {
	case "", store.MessageText, store.MessageImage:
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidInput, p.Type)
	}
	return nil
}

type EditMessagePayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	UserID     string `json:"userId"`
	RoomID     string `json:"roomId"`
}

func (p *EditMessagePayload) Validate() error {
	if p.MessageID == "" || p.UserID == "" || p.RoomID == "" {
		return fmt.Errorf("%w: messageId, userId and roomId are required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.NewContent) == "" {
		return fmt.Errorf("%w: newContent is required", ErrInvalidInput)
	}
	return nil
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	RoomID    string `json:"roomId"`
}

func (p *DeleteMessagePayload) Validate() error {
	if p.MessageID == "" || p.UserID == "" || p.RoomID == "" {
		return fmt.Errorf("%w: messageId, userId and roomId are required", ErrInvalidInput)
	}
	return nil
}

type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
	RoomID    string `json:"roomId"`
}

func (p *ReactionPayload) Validate() error {
	if p.MessageID == "" || p.UserID == "" || p.RoomID == "" {
		return fmt.Errorf("%w: messageId, userId and roomId are required", ErrInvalidInput)
	}
	if p.Emoji == "" {
		return fmt.Errorf("%w: emoji is required", ErrInvalidInput)
	}
	return nil
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (p *TypingPayload) Validate() error {
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidInput)
	}
	return nil
}

type StopTypingPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (p *StopTypingPayload) Validate() error {
	if p.RoomID == "" || p.UserID == "" {
		return fmt.Errorf("%w: roomId and userId are required", ErrInvalidInput)
	}
	return nil
}

// Outbound payloads.

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

type ReactionEventPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

type UserJoinedPayload struct {
	Username string `json:"username"`
}

type UserLeftPayload struct {
	Username string `json:"username"`
}

type StatusChangedPayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type TypingEventPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEvent builds an outbound event. Payloads are our own structs, so a
// marshal failure is a programming error and reported as such.
func NewEvent(eventType string, payload any) *Event {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("hub: unmarshalable payload for %s: %v", eventType, err))
	}
	return &Event{Type: eventType, Payload: data}
}

// NewErrorEvent builds the single error event a rejected request yields.
func NewErrorEvent(message string) *Event {
	return NewEvent(EventError, ErrorPayload{Message: message})
}

// Encode serializes an event to JSON bytes.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Bind unmarshals the payload into dst and validates it.
func (e *Event) Bind(dst interface{ Validate() error }) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidInput)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return dst.Validate()
}

// DecodeEvent parses JSON bytes into an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("%w: invalid event format", ErrInvalidInput)
	}
	if evt.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidInput)
	}
	return &evt, nil
}
