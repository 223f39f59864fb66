// internal/hub/presence.go
package hub

import (
	"sync"

	"github.com/mfjones/chatter/internal/store"
)

// Status values mirror the persisted user status column.
const (
	StatusOnline  = store.StatusOnline
	StatusAway    = store.StatusAway
	StatusOffline = store.StatusOffline
)

// PresenceTracker derives each user's effective status from their live
// connection count plus an optional explicit override. A user with zero
// connections is OFFLINE no matter what they last requested; with at least
// one connection they are ONLINE unless they explicitly set AWAY.
type PresenceTracker struct {
	mu        sync.Mutex
	conns     map[string]int    // userID -> live connection count
	overrides map[string]string // userID -> explicitly requested status
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		conns:     make(map[string]int),
		overrides: make(map[string]string),
	}
}

// OnConnect records a new connection for the user. It returns the user's
// effective status after the change and whether it changed.
func (p *PresenceTracker) OnConnect(userID string) (status string, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.effectiveLocked(userID)
	p.conns[userID]++
	after := p.effectiveLocked(userID)
	return after, after != before
}

// OnDisconnect records a dropped connection. Effective status only changes
// when the last connection goes away.
func (p *PresenceTracker) OnDisconnect(userID string) (status string, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.effectiveLocked(userID)
	if p.conns[userID] > 0 {
		p.conns[userID]--
	}
	if p.conns[userID] == 0 {
		delete(p.conns, userID)
		delete(p.overrides, userID)
	}
	after := p.effectiveLocked(userID)
	return after, after != before
}

// SetStatus records an explicit status request. OFFLINE cannot be forced
// while connections remain, and AWAY/ONLINE have no effect while offline.
func (p *PresenceTracker) SetStatus(userID, requested string) (status string, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.effectiveLocked(userID)
	switch requested {
	case StatusAway:
		p.overrides[userID] = StatusAway
	case StatusOnline:
		delete(p.overrides, userID)
	}
	after := p.effectiveLocked(userID)
	return after, after != before
}

// Status returns the user's current effective status.
func (p *PresenceTracker) Status(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effectiveLocked(userID)
}

func (p *PresenceTracker) effectiveLocked(userID string) string {
	if p.conns[userID] == 0 {
		return StatusOffline
	}
	if s, ok := p.overrides[userID]; ok {
		return s
	}
	return StatusOnline
}
