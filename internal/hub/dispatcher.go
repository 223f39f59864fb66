// internal/hub/dispatcher.go
package hub

import (
	"context"
	"fmt"

	"github.com/mfjones/chatter/internal/log"
)

// Dispatch routes one inbound event. Validation failures, identity spoofing
// and handler errors all collapse to a single error event on the originating
// connection; nothing fans out for a rejected request.
func (h *Hub) Dispatch(ctx context.Context, c *Conn, evt *Event) {
	err := h.dispatch(ctx, c, evt)
	if err == nil {
		return
	}
	log.Debug("event rejected", "event", evt.Type, "conn_id", c.id, "user_id", c.userID, "error", err)
	c.Send(NewErrorEvent(errorMessage(err)))
}

func (h *Hub) dispatch(ctx context.Context, c *Conn, evt *Event) error {
	switch evt.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.JoinRoom(ctx, c, p.RoomID)

	case EventLeaveRoom:
		var p LeaveRoomPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.LeaveRoom(ctx, c, p.RoomID)

	case EventGetRoomMessages:
		var p GetRoomMessagesPayload
		if err := evt.Bind(&p); err != nil {
			return err
		}
		history, err := h.RoomMessages(ctx, c, p.RoomID)
		if err != nil {
			return err
		}
		c.Send(NewEvent(EventRoomMessages, history))
		return nil

	case EventSendRoomMessage:
		var p SendRoomMessagePayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		_, err := h.SendMessage(ctx, c, &p)
		return err

	case EventEditMessage:
		var p EditMessagePayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.EditMessage(ctx, c, &p)

	case EventDeleteMessage:
		var p DeleteMessagePayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.DeleteMessage(ctx, c, &p)

	case EventAddReaction:
		var p ReactionPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.ToggleReaction(ctx, c, &p)

	case EventRemoveReaction:
		var p ReactionPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.RemoveReaction(ctx, c, &p)

	case EventTyping:
		var p TypingPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.Typing(c, p.RoomID, p.Username)

	case EventStopTyping:
		var p StopTypingPayload
		if err := bindAs(evt, &p, &p.UserID, c); err != nil {
			return err
		}
		return h.StopTyping(c, p.RoomID)

	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidInput, evt.Type)
	}
}

// bindAs binds and validates the payload, then checks that the user id the
// client claims matches the identity the connection authenticated with.
func bindAs(evt *Event, dst interface{ Validate() error }, claimedUserID *string, c *Conn) error {
	if err := evt.Bind(dst); err != nil {
		return err
	}
	if *claimedUserID != c.userID {
		return fmt.Errorf("%w: payload user does not match connection", ErrUnauthorized)
	}
	return nil
}
