package realtime

import (
	"sync"
)

// Sender is the minimal interface the hub needs from a subscriber: the
// ability to accept an event. A Send error marks the subscriber broken.
type Sender interface {
	Send(Event) error
}

// Hub routes events to local topic subscribers. It maps topic names to one
// or more registered senders so an event can be pushed to every endpoint
// currently listening on that topic (a user with two tabs open holds two
// registrations on the same topics).
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]Sender
	nextID int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int64]Sender)}
}

// Register adds a subscriber to a topic and returns the registration id
// used to unregister it when the connection closes. A dangling
// registration is a leak and a stale-callback hazard, so sessions must
// unregister every topic on teardown.
func (h *Hub) Register(topic string, s Sender) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[int64]Sender)
	}

	h.nextID++
	id := h.nextID
	h.subs[topic][id] = s
	return id
}

// Unregister removes a registration. No-op for unknown ids.
func (h *Hub) Unregister(topic string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.subs[topic]; ok {
		delete(conns, id)
		if len(conns) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Publish delivers the event to every subscriber of the topic,
// best-effort: a failing sender doesn't stop delivery to the rest, and
// failed registrations are dropped so broken connections don't linger.
// Returns the number of subscribers reached.
func (h *Hub) Publish(topic string, ev Event) int {
	h.mu.RLock()
	conns := h.subs[topic]
	// Copy under the read lock; Send may be slow and Unregister needs the
	// write lock.
	targets := make(map[int64]Sender, len(conns))
	for id, s := range conns {
		targets[id] = s
	}
	h.mu.RUnlock()

	delivered := 0
	var failedIDs []int64
	for id, s := range targets {
		if err := s.Send(ev); err != nil {
			failedIDs = append(failedIDs, id)
			continue
		}
		delivered++
	}

	for _, id := range failedIDs {
		h.Unregister(topic, id)
	}

	return delivered
}

// Subscribers reports how many senders are registered on a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
