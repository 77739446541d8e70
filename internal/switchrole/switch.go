// Package switchrole implements the switch side of the protocol: initial
// registration, the symmetric keep_alive/neighbor-dead detector, local
// routing table storage, and periodic topology reporting (§4.3).
package switchrole

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/g-hurst/sdnctl/internal/graph"
	"github.com/g-hurst/sdnctl/internal/metrics"
	"github.com/g-hurst/sdnctl/internal/protolog"
	"github.com/g-hurst/sdnctl/internal/transport"
	"github.com/g-hurst/sdnctl/internal/wire"
)

const (
	PingTime = 2 * time.Second
	Timeout  = 3 * PingTime
)

// NeighborRecord tracks one live neighbor, as learned from a
// register_response and refreshed by keep_alive traffic.
type NeighborRecord struct {
	ID         int
	Host       string
	Port       int
	LastPingTS time.Time
}

// Config bundles a Switch's dependencies and static configuration.
type Config struct {
	ID             int
	ControllerAddr *net.UDPAddr

	Sender  *transport.Sender
	Log     *protolog.Log
	Slog    *slog.Logger
	Metrics *metrics.Registry

	// FailureID, if >= 0, names a neighbor whose keep_alives this switch
	// pretends never to receive — the §9/"-f" simulated one-sided failure.
	// Callers with no failure to simulate must set this to -1; the zero
	// value is a valid neighbor id and is not treated as "unset".
	FailureID int

	// PingTime/Timeout override the §6 defaults; zero means use the default.
	PingTime time.Duration
	Timeout  time.Duration
}

// Switch holds all switch-side state behind a single mutex (§4.3).
type Switch struct {
	mu sync.Mutex

	id             int
	controllerAddr *net.UDPAddr
	neighbors      map[int]*NeighborRecord
	routingTable   []graph.RoutingRow
	isRegistered   atomic.Bool
	lastPingSentTS time.Time
	failureID      int

	sender   *transport.Sender
	log      *protolog.Log
	slog     *slog.Logger
	metrics  *metrics.Registry
	pingTime time.Duration
	timeout  time.Duration
}

// New constructs a Switch that has not yet registered with the controller.
func New(cfg Config) *Switch {
	pingTime := cfg.PingTime
	if pingTime == 0 {
		pingTime = PingTime
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = Timeout
	}
	return &Switch{
		id:             cfg.ID,
		controllerAddr: cfg.ControllerAddr,
		neighbors:      make(map[int]*NeighborRecord),
		sender:         cfg.Sender,
		log:            cfg.Log,
		slog:           cfg.Slog,
		metrics:        cfg.Metrics,
		failureID:      cfg.FailureID,
		pingTime:       pingTime,
		timeout:        timeout,
	}
}

// IsRegistered reports whether this switch has received its first
// register_response.
func (s *Switch) IsRegistered() bool { return s.isRegistered.Load() }

// RoutingTable returns a copy of the switch's last-received routing table.
func (s *Switch) RoutingTable() []graph.RoutingRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]graph.RoutingRow(nil), s.routingTable...)
}

// NeighborCount returns the number of neighbors currently believed alive.
func (s *Switch) NeighborCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.neighbors)
}

// Register sends the initial register_request to the controller (§4.3
// register). Idempotent to call repeatedly; the controller's registry
// overwrite semantics make retransmission safe.
func (s *Switch) Register() {
	payload, err := wire.EncodeRegisterRequest(s.id)
	if err != nil {
		s.slog.Error("switch: encode register_request", "error", err)
		return
	}
	s.sender.Append(payload, s.controllerAddr, false)
}

// HandleInbound decodes and dispatches one raw datagram.
func (s *Switch) HandleInbound(ev transport.InboundEvent) {
	action, data, err := wire.Decode(ev.Payload)
	if err != nil {
		s.slog.Error("switch: malformed message", "error", err, "peer", ev.Addr)
		return
	}

	switch action {
	case wire.ActionRegisterResponse:
		id, table, err := wire.DecodeRegisterResponse(data)
		if err != nil {
			s.slog.Error("switch: bad register_response", "error", err)
			return
		}
		s.HandleRegisterResponse(id, table)
	case wire.ActionRoutingUpdate:
		wireRows, err := wire.DecodeRoutingUpdate(data)
		if err != nil {
			s.slog.Error("switch: bad routing_update", "error", err)
			return
		}
		rows := make([]graph.RoutingRow, len(wireRows))
		for i, r := range wireRows {
			rows[i] = graph.RoutingRow(r)
		}
		s.HandleRoutingUpdate(rows)
	case wire.ActionKeepAlive:
		sid, err := wire.DecodeKeepAlive(data)
		if err != nil {
			s.slog.Error("switch: bad keep_alive", "error", err)
			return
		}
		s.HandleKeepAlive(sid, ev.Addr.IP.String(), ev.Addr.Port)
		if s.metrics != nil {
			s.metrics.KeepAlivesReceived.Inc()
		}
	default:
		s.slog.Warn("switch: unexpected action", "action", action, "peer", ev.Addr)
	}
}

// HandleRegisterResponse implements §4.3 handle_register_response. The
// neighbor table is replaced on every receipt; is_registered and the ping
// broadcast clock are set only once, on the first receipt.
func (s *Switch) HandleRegisterResponse(id int, table []wire.NeighborEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.id {
		s.slog.Error("switch: register_response id mismatch", "want", s.id, "got", id)
		return
	}

	now := time.Now()
	neighbors := make(map[int]*NeighborRecord, len(table))
	for _, e := range table {
		neighbors[e.ID] = &NeighborRecord{ID: e.ID, Host: e.Host, Port: e.Port, LastPingTS: now}
	}
	s.neighbors = neighbors

	if !s.isRegistered.Load() {
		s.isRegistered.Store(true)
		s.lastPingSentTS = now
		s.log.RegisterResponseReceived()
	}
}

// HandleKeepAlive implements §4.3 handle_keep_alive. A keep_alive from
// failureID is dropped before touching any state, modeling a simulated
// failure: this switch never learns senderID is alive. The send side is a
// separate guard in doAlivePing, which sends failureID no pings.
func (s *Switch) HandleKeepAlive(senderID int, host string, port int) {
	if s.failureID >= 0 && senderID == s.failureID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if rec, ok := s.neighbors[senderID]; ok {
		rec.LastPingTS = now
		return
	}
	s.neighbors[senderID] = &NeighborRecord{ID: senderID, Host: host, Port: port, LastPingTS: now}
	s.log.NeighborAlive(senderID)
	if s.metrics != nil {
		s.metrics.NeighborsUp.Inc()
	}
}

// HandleRoutingUpdate implements §4.3 handle_routing_update: replace the
// local table wholesale and log it (without the cost column, §6/§9).
func (s *Switch) HandleRoutingUpdate(rows []graph.RoutingRow) {
	s.mu.Lock()
	s.routingTable = rows
	s.mu.Unlock()
	s.log.RoutingUpdateSwitch(s.id, rows)
}

// detectNeighborDead implements §4.3 detect_neighbor_dead: drop any
// neighbor whose last keep_alive is older than the timeout.
func (s *Switch) detectNeighborDead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, rec := range s.neighbors {
		if now.Sub(rec.LastPingTS) > s.timeout {
			delete(s.neighbors, id)
			s.log.NeighborDead(id)
			if s.metrics != nil {
				s.metrics.NeighborsDead.Inc()
			}
		}
	}
}

// doAlivePing implements §4.3 do_alive_ping: broadcast a keep_alive to
// every current neighbor except failureID, front-inserted into the
// outbound queue so liveness traffic never waits behind bulk updates.
func (s *Switch) doAlivePing() {
	payload, err := wire.EncodeKeepAlive(s.id)
	if err != nil {
		s.slog.Error("switch: encode keep_alive", "error", err)
		return
	}

	s.mu.Lock()
	targets := make([]*net.UDPAddr, 0, len(s.neighbors))
	for nid, rec := range s.neighbors {
		if s.failureID >= 0 && nid == s.failureID {
			continue
		}
		targets = append(targets, &net.UDPAddr{IP: net.ParseIP(rec.Host), Port: rec.Port})
	}
	s.mu.Unlock()

	for _, addr := range targets {
		s.sender.Append(payload, addr, true)
		if s.metrics != nil {
			s.metrics.KeepAlivesSent.Inc()
		}
	}
}

// doTopologyUpdate implements §4.3 do_topology_update: report the current
// neighbor id set to the controller.
func (s *Switch) doTopologyUpdate() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.neighbors))
	for id := range s.neighbors {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	payload, err := wire.EncodeTopologyUpdate(s.id, ids)
	if err != nil {
		s.slog.Error("switch: encode topology_update", "error", err)
		return
	}
	s.sender.Append(payload, s.controllerAddr, false)
	if s.metrics != nil {
		s.metrics.TopologyUpdates.Inc()
	}
}

// Run drives the switch main loop: dispatch inbound events as they arrive,
// and once registered, broadcast keep_alive/topology_update every
// pingTime and run the neighbor-dead detector (§4.3, §5).
func (s *Switch) Run(ctx context.Context, listener *transport.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, got := listener.QueuePop()
		if got {
			s.HandleInbound(ev)
		}

		if s.metrics != nil {
			s.metrics.InboundQueueLen.Set(float64(listener.QueueSize()))
			s.metrics.OutboundQueueLen.Set(float64(s.sender.QueueSize()))
		}

		if s.isRegistered.Load() {
			s.mu.Lock()
			due := time.Since(s.lastPingSentTS) >= s.pingTime
			s.mu.Unlock()
			if due {
				s.doAlivePing()
				s.doTopologyUpdate()
				s.mu.Lock()
				s.lastPingSentTS = time.Now()
				s.mu.Unlock()
			}
			s.detectNeighborDead()
		}

		if !got {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}
