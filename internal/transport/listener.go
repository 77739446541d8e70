// Package transport implements the non-blocking UDP I/O shared by the
// controller and switch roles: a Listener filling an inbound queue from
// the socket, and a Sender draining an outbound queue to it (§4.1, §5).
package transport

import (
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// readTimeout bounds each blocking read so the stay-alive flag is
// re-checked periodically instead of blocking forever.
const readTimeout = 15 * time.Second

// Listener runs its own read loop against a shared UDP socket, appending
// every received datagram to an inbound queue. Start/Kill are idempotent
// and safe to call from any goroutine.
type Listener struct {
	conn *net.UDPConn
	log  *slog.Logger

	queue     *InboundQueue
	stayAlive atomic.Bool
	started   atomic.Bool
	done      chan struct{}
}

// NewListener wraps an already-bound UDP socket.
func NewListener(conn *net.UDPConn, log *slog.Logger) *Listener {
	return &Listener{
		conn:  conn,
		log:   log,
		queue: NewInboundQueue(),
		done:  make(chan struct{}),
	}
}

// Start spawns the read loop. Calling it more than once has no effect.
func (l *Listener) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	l.stayAlive.Store(true)
	go l.run()
}

// Kill clears the stay-alive flag; the read loop exits before its next
// read attempt (within readTimeout).
func (l *Listener) Kill() {
	l.stayAlive.Store(false)
}

// Done is closed once the read loop has returned.
func (l *Listener) Done() <-chan struct{} { return l.done }

func (l *Listener) run() {
	defer close(l.done)
	buf := make([]byte, 1024)

	for l.stayAlive.Load() {
		if err := l.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Warn("transport: set read deadline failed", "error", err)
			continue
		}

		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Warn("transport: read error", "error", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		l.queue.Push(InboundEvent{Addr: addr, Payload: payload})
	}
}

// QueuePop pops the oldest inbound event, if any.
func (l *Listener) QueuePop() (InboundEvent, bool) { return l.queue.Pop() }

// QueueSize reports the current inbound queue depth.
func (l *Listener) QueueSize() int { return l.queue.Len() }
