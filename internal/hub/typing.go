// internal/hub/typing.go
package hub

import (
	"sync"
	"time"
)

// typingExpiry is how long a typing indicator stays up without a refresh.
const typingExpiry = 3 * time.Second

type typingKey struct {
	roomID string
	userID string
}

type typingEntry struct {
	timer    *time.Timer
	username string
}

// TypingDebouncer holds active typing indicators keyed by (room, user).
// Repeated typing events refresh the expiry timer instead of firing again,
// and an expired or explicitly stopped indicator emits exactly one stop
// notification through the callback.
type TypingDebouncer struct {
	mu      sync.Mutex
	entries map[typingKey]*typingEntry

	// expired is called outside the lock when an indicator times out.
	expired func(roomID, userID, username string)
}

func NewTypingDebouncer(expired func(roomID, userID, username string)) *TypingDebouncer {
	return &TypingDebouncer{
		entries: make(map[typingKey]*typingEntry),
		expired: expired,
	}
}

// Signal records typing activity. Returns true if the indicator is new and a
// user_typing event should fan out; a refresh returns false.
func (t *TypingDebouncer) Signal(roomID, userID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{roomID: roomID, userID: userID}
	prev, refreshed := t.entries[key]
	if refreshed {
		prev.timer.Stop()
	}

	// A fresh entry per signal keeps the expiry callback's identity check
	// sound even when a stale timer already fired and is waiting on the lock.
	e := &typingEntry{username: username}
	e.timer = time.AfterFunc(typingExpiry, func() {
		t.expire(key, e)
	})
	t.entries[key] = e
	return !refreshed
}

// Stop clears the indicator. Returns true if one was active, so the caller
// knows whether to fan out user_stopped_typing. Stopping an inactive
// indicator is a no-op.
func (t *TypingDebouncer) Stop(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{roomID: roomID, userID: userID}
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, key)
	return true
}

// Active reports whether the indicator is currently up.
func (t *TypingDebouncer) Active(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{roomID: roomID, userID: userID}]
	return ok
}

// expire runs on the timer goroutine. A fire that lost the race against Stop
// or a fresh Signal finds a different entry under the key and does nothing.
func (t *TypingDebouncer) expire(key typingKey, e *typingEntry) {
	t.mu.Lock()
	cur, ok := t.entries[key]
	if !ok || cur != e {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	username := cur.username
	t.mu.Unlock()

	if t.expired != nil {
		t.expired(key.roomID, key.userID, username)
	}
}
