package transport

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// InboundEvent is a datagram as it arrives off the wire, before any
// protocol parsing (§3).
type InboundEvent struct {
	Addr    *net.UDPAddr
	Payload []byte
}

// OutboundEvent is a datagram queued for transmission. TraceID exists
// purely for operational log correlation ("which send produced this
// line") and never appears on the wire.
type OutboundEvent struct {
	Payload []byte
	Addr    *net.UDPAddr
	TraceID uuid.UUID
}

// InboundQueue is a thread-safe FIFO of InboundEvents, as produced by a
// Listener and drained by a role's main loop.
type InboundQueue struct {
	mu    sync.Mutex
	items []InboundEvent
}

func NewInboundQueue() *InboundQueue { return &InboundQueue{} }

func (q *InboundQueue) Push(ev InboundEvent) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
}

// Pop removes and returns the oldest event, or false if the queue is empty.
func (q *InboundQueue) Pop() (InboundEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return InboundEvent{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// OutboundQueue is a thread-safe FIFO of OutboundEvents with a
// head-insertion option for urgent traffic (liveness pings jumping ahead
// of queued bulk updates, §4.1).
type OutboundQueue struct {
	mu    sync.Mutex
	items []OutboundEvent
}

func NewOutboundQueue() *OutboundQueue { return &OutboundQueue{} }

// Push enqueues ev. When front is true, ev is placed ahead of everything
// already queued instead of at the tail.
func (q *OutboundQueue) Push(ev OutboundEvent, front bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if front {
		q.items = append(q.items[:0:0], append([]OutboundEvent{ev}, q.items...)...)
		return
	}
	q.items = append(q.items, ev)
}

func (q *OutboundQueue) Pop() (OutboundEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return OutboundEvent{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

func (q *OutboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
