package server

import "sync"

// Roster tracks which usernames hold a live connection in each room on
// this process. It is the single source of truth for the "one connection
// per (username, room)" invariant.
//
// One mutex covers the whole table, not one per room, so a contains check
// never interleaves with a mutation anywhere in the table. Entries are
// rebuilt from scratch as connections arrive; nothing survives a restart.
type Roster struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

func NewRoster() *Roster {
	return &Roster{
		rooms: make(map[string]map[string]struct{}),
	}
}

func (r *Roster) Contains(username, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[roomId]
	if !ok {
		return false
	}

	_, ok = users[username]
	return ok
}

// TryJoin reserves the (username, roomId) slot. It returns false without
// mutating the table if the slot is already held.
func (r *Roster) TryJoin(username, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[roomId]
	if !ok {
		users = make(map[string]struct{})
		r.rooms[roomId] = users
	}

	if _, taken := users[username]; taken {
		return false
	}

	users[username] = struct{}{}
	return true
}

// Leave releases the (username, roomId) slot. It is idempotent: releasing
// a slot that was never held is a no-op.
func (r *Roster) Leave(username, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[roomId]
	if !ok {
		return
	}

	delete(users, username)
	if len(users) == 0 {
		delete(r.rooms, roomId)
	}
}

// NumOccupiedRooms returns the number of rooms with at least one live
// connection on this process.
func (r *Roster) NumOccupiedRooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}
