// Package notifier broadcasts document change events to SSE listeners.
package notifier

import "sync"

// Event describes a stored document change.
type Event struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Notifier broadcasts events to all subscribed listeners. Each listener
// holds at most one pending event; a newer event replaces an unread one.
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast delivers e to every listener without blocking.
func (n *Notifier) Broadcast(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		// Drop the unread event so the listener sees the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
