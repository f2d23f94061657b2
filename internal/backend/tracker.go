package backend

import "sync"

// Ticket identifies one in-flight request for a resource.
type Ticket struct {
	Resource string
	ID       uint64
}

// Tracker hands out monotonic request ids per resource so that a response
// arriving after a newer request for the same resource can be discarded.
type Tracker struct {
	mu        sync.Mutex
	issued    map[string]uint64
	committed map[string]uint64
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		issued:    make(map[string]uint64),
		committed: make(map[string]uint64),
	}
}

// Begin issues a ticket newer than every earlier ticket for resource.
func (t *Tracker) Begin(resource string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.issued[resource]++
	return Ticket{Resource: resource, ID: t.issued[resource]}
}

// Commit reports whether the response for ticket may be applied. Only the
// newest issued ticket for a resource commits, and only once.
func (t *Tracker) Commit(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticket.ID != t.issued[ticket.Resource] || ticket.ID <= t.committed[ticket.Resource] {
		return false
	}
	t.committed[ticket.Resource] = ticket.ID
	return true
}
