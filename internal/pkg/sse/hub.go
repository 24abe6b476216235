package sse

import (
	"sync"
)

// AdminChannel receives events meant for every reviewer.
const AdminChannel = "admins"

// EmployeeChannel is the private channel of one employee.
func EmployeeChannel(employeeID string) string {
	return "employee:" + employeeID
}

// Event represents an SSE event to be sent to subscribers
type Event struct {
	Channel string
	Event   string
	Data    interface{}
}

// Hub manages SSE subscribers and event broadcasting
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers one subscriber on every given channel and returns the
// event channel and cleanup function
func (h *Hub) Subscribe(channels ...string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	for _, c := range channels {
		if h.subscribers[c] == nil {
			h.subscribers[c] = make(map[chan Event]struct{})
		}
		h.subscribers[c][ch] = struct{}{}
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, c := range channels {
				delete(h.subscribers[c], ch)
				if len(h.subscribers[c]) == 0 {
					delete(h.subscribers, c)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a channel
func (h *Hub) Publish(channel string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.Channel = channel
	for ch := range h.subscribers[channel] {
		select {
		case ch <- event:
		default:
			// Skip if channel is full (non-blocking to prevent deadlock)
		}
	}
}

// SubscriberCount returns the number of active subscribers on a channel
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[channel])
}
