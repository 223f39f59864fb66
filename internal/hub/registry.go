// internal/hub/registry.go
package hub

import "sync"

// Registry tracks live connections and which rooms each is subscribed to.
// It owns the connection-to-rooms map exclusively; every mutation is atomic
// with respect to concurrent fan-out snapshots. All operations are
// idempotent, so join/leave/disconnect races resolve to no-ops rather than
// torn state.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn               // connID -> conn
	rooms  map[string]map[string]*Conn    // roomID -> connID -> conn
	byConn map[string]map[string]struct{} // connID -> set of roomIDs
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]*Conn),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection. A user may have many connections.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.id] = c
	if r.byConn[c.id] == nil {
		r.byConn[c.id] = make(map[string]struct{})
	}
}

// Connection returns the connection with the given id, or nil.
func (r *Registry) Connection(id string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// Subscribe adds the connection to a room's subscriber set. Subscribing an
// already-subscribed pair is a no-op; an unknown connection is ignored.
// Returns true if the subscription was newly added.
func (r *Registry) Subscribe(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, ok := r.byConn[connID][roomID]; ok {
		return false
	}

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]*Conn)
	}
	r.rooms[roomID][connID] = c
	r.byConn[connID][roomID] = struct{}{}
	return true
}

// Unsubscribe removes the connection from a room's subscriber set.
// Unsubscribing a non-subscribed pair is a no-op.
func (r *Registry) Unsubscribe(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(connID, roomID)
}

func (r *Registry) unsubscribeLocked(connID, roomID string) {
	if subs, ok := r.rooms[roomID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if rooms, ok := r.byConn[connID]; ok {
		delete(rooms, roomID)
	}
}

// IsSubscribed reports whether the connection currently subscribes to the room.
func (r *Registry) IsSubscribed(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byConn[connID][roomID]
	return ok
}

// UnregisterAll removes the connection from every room it was subscribed to
// and returns the affected rooms so the caller can trigger leave/presence
// broadcasts. Calling it twice has the same effect as once.
func (r *Registry) UnregisterAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.byConn[connID]
	affected := make([]string, 0, len(rooms))
	for roomID := range rooms {
		affected = append(affected, roomID)
		r.unsubscribeLocked(connID, roomID)
	}
	delete(r.byConn, connID)
	delete(r.conns, connID)
	return affected
}

// ConnectionsFor returns a snapshot of the room's current subscribers.
// The snapshot never contains a connection mid-removal and never misses one
// mid-addition beyond the benign before-or-after race.
func (r *Registry) ConnectionsFor(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.rooms[roomID]
	conns := make([]*Conn, 0, len(subs))
	for _, c := range subs {
		conns = append(conns, c)
	}
	return conns
}

// RoomsForUser returns the union of rooms any of the user's connections
// subscribe to. Used to fan out presence changes per-room.
func (r *Registry) RoomsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for connID, c := range r.conns {
		if c.userID != userID {
			continue
		}
		for roomID := range r.byConn[connID] {
			set[roomID] = struct{}{}
		}
	}
	rooms := make([]string, 0, len(set))
	for roomID := range set {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// UserSubscribed reports whether any connection of the user subscribes to the
// room. Used to suppress user_left/typing cleanup while another tab remains.
func (r *Registry) UserSubscribed(userID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID, c := range r.conns {
		if c.userID != userID {
			continue
		}
		if _, ok := r.byConn[connID][roomID]; ok {
			return true
		}
	}
	return false
}

// Counts returns the number of live connections and active rooms.
func (r *Registry) Counts() (conns, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.rooms)
}
