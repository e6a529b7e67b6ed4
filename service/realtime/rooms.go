package realtime

import (
	"sync"

	"PSocial/logger"
)

// Router maintains room membership as a bidirectional index:
// room -> set of clients here, plus each client's own room set
// (Client.rooms). Both sides are mutated under r.mu only, so they
// can never disagree. leaveAll is O(rooms of that client).
type Router struct {
	mu      sync.RWMutex
	members map[string]map[*Client]struct{}
}

func NewRouter() *Router {
	return &Router{members: make(map[string]map[*Client]struct{})}
}

// Join adds the client to the room. Re-joining is a no-op.
// Rooms exist implicitly: first member creates, last leaver removes.
func (r *Router) Join(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Teardown flips the state to Closed before it takes r.mu for
	// LeaveAll, so checking under the lock means a join racing a
	// disconnect can never re-add a dead client behind LeaveAll's back.
	if c.State() == StateClosed {
		return
	}
	set := r.members[room]
	if set == nil {
		set = make(map[*Client]struct{})
		r.members[room] = set
	}
	set[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (r *Router) Leave(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, c)
}

func (r *Router) leaveLocked(room string, c *Client) {
	if set := r.members[room]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	delete(c.rooms, room)
}

// LeaveAll removes the client from every room it belongs to;
// used on disconnect. Returns the rooms that were left.
func (r *Router) LeaveAll(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
		r.leaveLocked(room, c)
	}
	return out
}

func (r *Router) Has(room string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (r *Router) MembersOf(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Broadcast enqueues the payload to every current member of the room.
// The exclusive lock serializes broadcasts to the same room, which is
// what gives per-room FIFO; only the cheap queue handoff happens under
// it, socket writes stay in each client's writer goroutine. A member
// with a full queue just misses this frame, nobody else is affected.
func (r *Router) Broadcast(room string, payload []byte) {
	r.BroadcastExcept(room, payload, nil)
}

// BroadcastExcept is Broadcast minus one member (typing events exclude
// their sender).
func (r *Router) BroadcastExcept(room string, payload []byte, except *Client) {
	if len(payload) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.members[room]
	if len(set) == 0 {
		return // empty room: broadcast is a no-op
	}
	dropped := 0
	for c := range set {
		if c == except {
			continue
		}
		if !c.enqueue(payload) {
			dropped++
		}
	}
	if dropped > 0 {
		logger.Warnf("[router] room=%s dropped=%d slow or closed members", room, dropped)
	}
}
