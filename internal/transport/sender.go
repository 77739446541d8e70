package transport

import (
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// idlePoll is how long the send loop sleeps when the outbound queue is
// empty, to avoid busy-spinning while still reacting quickly once traffic
// arrives.
const idlePoll = 5 * time.Millisecond

// Sender runs its own drain loop against a shared UDP socket, writing
// queued datagrams out one at a time. A socket error on send is logged
// and discarded (§4.1): UDP is best-effort and the periodic protocol
// heals the loss.
type Sender struct {
	conn *net.UDPConn
	log  *slog.Logger

	queue     *OutboundQueue
	stayAlive atomic.Bool
	started   atomic.Bool
	done      chan struct{}
}

// NewSender wraps an already-bound UDP socket, shared with a Listener.
func NewSender(conn *net.UDPConn, log *slog.Logger) *Sender {
	return &Sender{
		conn:  conn,
		log:   log,
		queue: NewOutboundQueue(),
		done:  make(chan struct{}),
	}
}

// Start spawns the drain loop. Calling it more than once has no effect.
func (s *Sender) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.stayAlive.Store(true)
	go s.run()
}

// Kill clears the stay-alive flag; the drain loop exits before its next
// queue check.
func (s *Sender) Kill() {
	s.stayAlive.Store(false)
}

// Done is closed once the drain loop has returned.
func (s *Sender) Done() <-chan struct{} { return s.done }

func (s *Sender) run() {
	defer close(s.done)
	for s.stayAlive.Load() {
		ev, ok := s.queue.Pop()
		if !ok {
			time.Sleep(idlePoll)
			continue
		}
		if _, err := s.conn.WriteToUDP(ev.Payload, ev.Addr); err != nil {
			s.log.Warn("transport: send error", "error", err, "trace", ev.TraceID, "dest", ev.Addr)
		}
	}
}

// Append queues payload for delivery to addr. When front is true the
// datagram is enqueued ahead of everything already queued (used by
// keep_alive pings so they don't sit behind bulk routing_update traffic).
func (s *Sender) Append(payload []byte, addr *net.UDPAddr, front bool) {
	s.queue.Push(OutboundEvent{Payload: payload, Addr: addr, TraceID: uuid.New()}, front)
}

// QueueSize reports the current outbound queue depth.
func (s *Sender) QueueSize() int { return s.queue.Len() }
