package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

type Set map[string]struct{}

// Registry owns the live membership map: which connection belongs to
// which room, and the sink used to reach it. A connection is a member
// of at most one room at a time; joining another room moves it.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // connection -> sink
	rooms       map[string]domain.Room        // connection -> current room
	roomMembers map[domain.Room]Set           // room -> connections
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		rooms:       make(map[string]domain.Room),
		roomMembers: make(map[domain.Room]Set),
	}
}

// Join registers a connection's sink and assigns it to a room. If the
// connection already belongs to a different room it is removed from
// that room first, so no connection is ever a member of two rooms.
// Re-joining the same room is idempotent.
func (r *Registry) Join(connectionID string, room domain.Room, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.rooms[connectionID]; ok && previous != room {
		r.removeLocked(connectionID, previous)
	}

	r.sessions[connectionID] = sink
	r.rooms[connectionID] = room

	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][connectionID] = struct{}{}
}

// Leave removes the connection from whatever room it belongs to. It is
// a no-op for unknown connections, so disconnect handlers can call it
// unconditionally.
func (r *Registry) Leave(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connectionID)

	room, ok := r.rooms[connectionID]
	if !ok {
		return
	}
	r.removeLocked(connectionID, room)
}

// removeLocked drops membership bookkeeping for one connection. Empty
// member sets are pruned so the room map does not grow forever.
func (r *Registry) removeLocked(connectionID string, room domain.Room) {
	delete(r.rooms, connectionID)
	if members, ok := r.roomMembers[room]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
}

// RoomOf reports the room a connection currently belongs to.
func (r *Registry) RoomOf(connectionID string) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[connectionID]
	return room, ok
}

// MembersOf returns a snapshot of the connections in a room. Safe to
// call while joins and leaves happen on other connections.
func (r *Registry) MembersOf(room domain.Room) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	snapshot := make([]string, 0, len(members))
	for connectionID := range members {
		snapshot = append(snapshot, connectionID)
	}
	return snapshot
}

// SinksFor resolves the active sinks of a room's members, the targets
// of one broadcast. Returns nil for an unknown or empty room.
func (r *Registry) SinksFor(room domain.Room) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connectionID := range members {
		if sink, exists := r.sessions[connectionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Counts exposes registry gauges for the telemetry reporter.
func (r *Registry) Counts() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roomMembers), len(r.sessions)
}
