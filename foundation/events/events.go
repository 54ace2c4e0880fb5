// Package events provides an in-process fan-out of node activity to any
// interested listener, typically websocket clients.
package events

import (
	"fmt"
	"sync"
)

// subscriberBuffer absorbs short stalls such as a slow websocket write.
// A subscriber that falls further behind misses messages.
const subscriberBuffer = 100

// Events fans node activity out to subscriber channels keyed by a unique
// id, usually the trace id of the request that subscribed.
type Events struct {
	mu   sync.RWMutex
	subs map[string]chan string
}

// New constructs an Events for subscribing to node activity.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Acquire returns the channel held for the specified id, creating it when
// the id subscribes for the first time.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch
	return ch
}

// Release closes and removes the channel held for the specified id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)
	return nil
}

// Send delivers the message to every subscriber. Send never blocks, a
// subscriber with a full buffer misses the message.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}
