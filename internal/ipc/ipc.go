// Package ipc implements the bounded per-endpoint FIFO message queues and
// the sparse endpoint handle table processes index them through.
package ipc

import (
	"github.com/tinyrange/ruzzle/internal/capset"
	"github.com/tinyrange/ruzzle/internal/kernerr"
)

// MaxMessageSize is the largest payload a single message may carry.
const MaxMessageSize = 4096

// QueueLen is the bounded capacity of one endpoint's FIFO.
const QueueLen = 64

// Message is one queued IPC message: a payload and an optional riding
// capability.
type Message struct {
	Payload []byte
	Cap     *capset.Capability
}

// Endpoint is a bounded FIFO of Messages. It is single-owner: callers must
// serialize access externally.
type Endpoint struct {
	queue []Message
}

// NewEndpoint returns an empty endpoint.
func NewEndpoint() *Endpoint {
	return &Endpoint{}
}

// Send appends a message, rejecting an oversized payload or a full queue.
func (e *Endpoint) Send(payload []byte, cap *capset.Capability) error {
	if len(payload) > MaxMessageSize {
		return kernerr.InvalidArg
	}
	if len(e.queue) >= QueueLen {
		return kernerr.QueueFull
	}
	e.queue = append(e.queue, Message{Payload: payload, Cap: cap})
	return nil
}

// Recv pops the head message into out. If out is smaller than the head
// payload, the message is pushed back to the front (preserving FIFO order)
// and InvalidArg is returned. An empty queue returns QueueEmpty.
func (e *Endpoint) Recv(out []byte) (int, *capset.Capability, error) {
	if len(e.queue) == 0 {
		return 0, nil, kernerr.QueueEmpty
	}
	head := e.queue[0]
	if len(out) < len(head.Payload) {
		return 0, nil, kernerr.InvalidArg
	}
	e.queue = e.queue[1:]
	n := copy(out, head.Payload)
	return n, head.Cap, nil
}

// Len reports the number of queued messages.
func (e *Endpoint) Len() int { return len(e.queue) }

// Table is a sparse vector of endpoint handles. A nil slot is a deleted
// (and therefore reusable) handle.
type Table struct {
	slots []*Endpoint
}

// NewTable returns an empty endpoint table.
func NewTable() *Table {
	return &Table{}
}

// Create allocates a new endpoint, reusing the lowest free slot before
// appending, and returns its handle.
func (t *Table) Create() int {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = NewEndpoint()
			return i
		}
	}
	t.slots = append(t.slots, NewEndpoint())
	return len(t.slots) - 1
}

// Get returns the endpoint for handle, or NotFound for a stale or
// out-of-range handle.
func (t *Table) Get(handle int) (*Endpoint, error) {
	if handle < 0 || handle >= len(t.slots) || t.slots[handle] == nil {
		return nil, kernerr.NotFound
	}
	return t.slots[handle], nil
}

// Remove deletes the endpoint at handle, freeing the slot for reuse.
func (t *Table) Remove(handle int) error {
	if handle < 0 || handle >= len(t.slots) || t.slots[handle] == nil {
		return kernerr.NotFound
	}
	t.slots[handle] = nil
	return nil
}
