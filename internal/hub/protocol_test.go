// internal/hub/protocol_test.go
package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	evt, err := DecodeEvent([]byte(`{"event":"typing","payload":{"roomId":"r1","userId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventTyping, evt.Type)

	_, err = DecodeEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = DecodeEvent([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBindValidates(t *testing.T) {
	evt := &Event{Type: EventSendRoomMessage, Payload: []byte(`{"roomId":"r1","userId":"u1","content":"  "}`)}
	var p SendRoomMessagePayload
	assert.ErrorIs(t, evt.Bind(&p), ErrInvalidInput, "whitespace-only content is rejected")

	evt.Payload = []byte(`{"roomId":"r1","userId":"u1","content":"hi","type":"VIDEO"}`)
	assert.ErrorIs(t, evt.Bind(&p), ErrInvalidInput, "unknown message type is rejected")

	evt.Payload = []byte(`{"roomId":"r1","userId":"u1","content":"hi"}`)
	require.NoError(t, evt.Bind(&p))
	assert.Equal(t, "hi", p.Content)

	evt.Payload = nil
	assert.ErrorIs(t, evt.Bind(&p), ErrInvalidInput, "missing payload is rejected")
}

func TestReactionPayloadValidation(t *testing.T) {
	p := ReactionPayload{MessageID: "m1", UserID: "u1", RoomID: "r1"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidInput, "emoji is required")

	p.Emoji = "🎉"
	assert.NoError(t, p.Validate())
}

func TestNewErrorEvent(t *testing.T) {
	evt := NewErrorEvent("Not a member of this room")
	require.Equal(t, EventError, evt.Type)

	data, err := evt.Encode()
	require.NoError(t, err)

	round, err := DecodeEvent(data)
	require.NoError(t, err)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(round.Payload, &p))
	assert.Equal(t, "Not a member of this room", p.Message)
}
