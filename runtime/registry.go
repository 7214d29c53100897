package runtime

import (
	"sync"

	"social-chat/contract"
	"social-chat/domain/chat"
	"social-chat/errors"
)

type Set map[string]struct{}

// Registry maps realtime rooms to the connections joined to them.
// A connection is attached once and may then join any number of rooms.
type Registry struct {
	mu              sync.RWMutex
	sessions        map[string]contract.EventSink       // map connection -> Sink
	roomMembers     map[chat.RoomID]Set                 // map room -> connections
	connectionRooms map[string]map[chat.RoomID]struct{} // map connection -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:        make(map[string]contract.EventSink),
		roomMembers:     make(map[chat.RoomID]Set),
		connectionRooms: make(map[string]map[chat.RoomID]struct{}),
	}
}

// Attach registers an active connection. Attaching an existing connection replaces its sink
// and keeps its room memberships.
func (r *Registry) Attach(connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connectionID] = sink
	if _, ok := r.connectionRooms[connectionID]; !ok {
		r.connectionRooms[connectionID] = make(map[chat.RoomID]struct{})
	}
}

// Detach removes the connection from every room it joined.
// No empty sets are left behind in the room map.
func (r *Registry) Detach(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.connectionRooms[connectionID] {
		r.leaveLocked(roomID, connectionID)
	}
	delete(r.connectionRooms, connectionID)
	delete(r.sessions, connectionID)
}

// Join is idempotent. Only attached connections can join a room.
func (r *Registry) Join(roomID chat.RoomID, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionID]; !ok {
		return errors.ErrNotAttached
	}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][connectionID] = struct{}{}
	r.connectionRooms[connectionID][roomID] = struct{}{}
	return nil
}

// Leave is idempotent, leaving a room never joined is a no-op.
func (r *Registry) Leave(roomID chat.RoomID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, connectionID)
}

func (r *Registry) leaveLocked(roomID chat.RoomID, connectionID string) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	if rooms, ok := r.connectionRooms[connectionID]; ok {
		delete(rooms, roomID)
	}
}

// GetSinksForRoom resolves the members of a room into their sinks.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(roomID chat.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
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

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
