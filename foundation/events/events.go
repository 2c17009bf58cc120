// Package events fans ledger event messages out to registered receivers.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// messageBuffer is how far a receiver can fall behind before messages are
// dropped for it. Websocket writes can be slow.
const messageBuffer = 100

// receiver is a single registered consumer.
type receiver struct {
	ch      chan string
	dropped atomic.Int64
}

// Events maintains the set of receivers keyed by a caller provided id.
type Events struct {
	mu        sync.RWMutex
	receivers map[string]*receiver
}

// New constructs an empty set of receivers.
func New() *Events {
	return &Events{
		receivers: make(map[string]*receiver),
	}
}

// Shutdown closes and removes every receiver.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, rcv := range evt.receivers {
		delete(evt.receivers, id)
		close(rcv.ch)
	}
}

// Acquire registers a receiver under the id and returns its channel.
// Acquiring an id that is already registered returns the same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if rcv, exists := evt.receivers[id]; exists {
		return rcv.ch
	}

	rcv := receiver{
		ch: make(chan string, messageBuffer),
	}
	evt.receivers[id] = &rcv

	return rcv.ch
}

// Release closes and removes the receiver registered under the id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	rcv, exists := evt.receivers[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.receivers, id)
	close(rcv.ch)

	return nil
}

// Send delivers the message to every receiver without blocking. A receiver
// with a full buffer misses the message and the miss is counted.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, rcv := range evt.receivers {
		select {
		case rcv.ch <- s:
		default:
			rcv.dropped.Add(1)
		}
	}
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.receivers)
}

// Dropped returns the number of messages the receiver missed. An unknown
// id reports zero.
func (evt *Events) Dropped(id string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	rcv, exists := evt.receivers[id]
	if !exists {
		return 0
	}

	return int(rcv.dropped.Load())
}
