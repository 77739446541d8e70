// Package controllerrole implements the controller side of the protocol:
// the bootstrap barrier, the topology/registry store, the Dijkstra-driven
// routing recomputation, and the switch-dead failure detector (§4.2).
package controllerrole

import (
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

// PingTime and Timeout are the §6 timing constants, shared by both roles'
// liveness detectors.
const (
	PingTime = 2 * time.Second
	Timeout  = 3 * PingTime
)

// SwitchRecord tracks one registered switch (§3). It is created on first
// register_request and destroyed when the controller declares the switch
// dead.
type SwitchRecord struct {
	ID         int
	Host       string
	Port       int
	LastPingTS time.Time
}

// Config bundles a Controller's dependencies and static configuration.
type Config struct {
	NumSwitches int
	Edges       []graph.ConfiguredEdge

	Sender  *transport.Sender
	Log     *protolog.Log
	Slog    *slog.Logger
	Metrics *metrics.Registry

	// Timeout overrides the default detect timeout; zero means use Timeout.
	Timeout time.Duration
}

// Controller holds all controller-side state behind a single mutex (§4.2).
type Controller struct {
	mu sync.Mutex

	numSwitches  int
	bootstrapped graph.Map
	live         graph.Map
	registry     map[int]*SwitchRecord
	routingTable map[int][]graph.RoutingRow
	isBooted     atomic.Bool

	sender  *transport.Sender
	log     *protolog.Log
	slog    *slog.Logger
	metrics *metrics.Registry
	timeout time.Duration
}

// New constructs a Controller in the COLLECTING bootstrap state.
func New(cfg Config) *Controller {
	boot := graph.NewBootstrapped(cfg.NumSwitches, cfg.Edges)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = Timeout
	}
	return &Controller{
		numSwitches:  cfg.NumSwitches,
		bootstrapped: boot,
		live:         boot.Clone(),
		registry:     make(map[int]*SwitchRecord),
		routingTable: make(map[int][]graph.RoutingRow),
		sender:       cfg.Sender,
		log:          cfg.Log,
		slog:         cfg.Slog,
		metrics:      cfg.Metrics,
		timeout:      timeout,
	}
}

// IsBooted reports whether the bootstrap barrier has closed. Read without
// the controller mutex, matching the single-writer discipline §4.2
// describes for is_booted.
func (c *Controller) IsBooted() bool { return c.isBooted.Load() }

// RoutingTableFor returns the last computed routing table for src, if any.
func (c *Controller) RoutingTableFor(src int) ([]graph.RoutingRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.routingTable[src]
	return append([]graph.RoutingRow(nil), rows...), ok
}

// MetricsRegistry exposes the Controller's metrics registry so the main
// loop can report transport queue depths alongside protocol counters.
func (c *Controller) MetricsRegistry() *metrics.Registry { return c.metrics }

// RegisteredCount returns the number of switches currently in the registry.
func (c *Controller) RegisteredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registry)
}

// HandleInbound decodes and dispatches one raw datagram. Unknown actions and
// malformed payloads are logged and discarded; while still COLLECTING, any
// non-register_request action is discarded without logging. A single bad
// event never stops the controller (§7).
func (c *Controller) HandleInbound(ev transport.InboundEvent) {
	action, data, err := wire.Decode(ev.Payload)
	if err != nil {
		c.slog.Error("controller: malformed message", "error", err, "peer", ev.Addr)
		return
	}

	if !c.isBooted.Load() && action != wire.ActionRegisterRequest {
		// COLLECTING: only register_requests are processed.
		return
	}

	switch action {
	case wire.ActionRegisterRequest:
		sid, err := wire.DecodeRegisterRequest(data)
		if err != nil {
			c.slog.Error("controller: bad register_request", "error", err, "peer", ev.Addr)
			return
		}
		c.HandleRegisterRequest(ev.Addr.IP.String(), ev.Addr.Port, sid)
	case wire.ActionTopologyUpdate:
		sid, neighbors, err := wire.DecodeTopologyUpdate(data)
		if err != nil {
			c.slog.Error("controller: bad topology_update", "error", err, "peer", ev.Addr)
			return
		}
		c.HandleTopologyUpdate(sid, neighbors)
	default:
		c.slog.Warn("controller: unexpected action", "action", action, "peer", ev.Addr)
	}
}

// HandleRegisterRequest implements §4.2 handle_register_request.
func (c *Controller) HandleRegisterRequest(host string, port int, sid int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if rec, ok := c.registry[sid]; ok {
		rec.Host, rec.Port, rec.LastPingTS = host, port, now
	} else {
		c.registry[sid] = &SwitchRecord{ID: sid, Host: host, Port: port, LastPingTS: now}
	}
	c.log.RegisterRequest(sid)
	if c.metrics != nil {
		c.metrics.RegisterRequests.Inc()
	}

	if !c.isBooted.Load() {
		if len(c.registry) == c.numSwitches {
			c.bootLocked(now)
		}
		return
	}

	c.live.RestoreNeighbors(sid, c.bootstrapped)
	c.log.SwitchAlive(sid)
	if c.metrics != nil {
		c.metrics.SwitchesAlive.Inc()
	}
	c.recomputeRoutesLocked()
	c.broadcastRegisterResponseLocked(sid)
	c.broadcastRoutingUpdateLocked(-1)
}

// bootLocked runs the BOOTED-entry actions of the bootstrap state machine:
// reset every SwitchRecord's grace period, compute routes, then broadcast
// register_responses and routing_updates to everyone. Called with c.mu held.
func (c *Controller) bootLocked(now time.Time) {
	for _, rec := range c.registry {
		rec.LastPingTS = now
	}
	c.recomputeRoutesLocked()
	c.isBooted.Store(true)
	c.broadcastRegisterResponseLocked(-1)
	c.broadcastRoutingUpdateLocked(-1)
}

// HandleTopologyUpdate implements §4.2 handle_topology_update.
func (c *Controller) HandleTopologyUpdate(sid int, neighborIDs []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.registry[sid]
	if !ok {
		return // unknown sender: protocol error, discard
	}
	rec.LastPingTS = time.Now()
	if c.metrics != nil {
		c.metrics.TopologyUpdates.Inc()
	}

	current, ok := c.live[sid]
	if !ok {
		return
	}
	reported := make(map[int]bool, len(neighborIDs))
	for _, n := range neighborIDs {
		reported[n] = true
	}

	changed := false
	for m := range current {
		if !reported[m] {
			c.log.LinkDead(sid, m)
			if c.metrics != nil {
				c.metrics.LinksDead.Inc()
			}
			c.live.RemoveEdge(sid, m)
			changed = true
		}
	}

	if changed {
		c.recomputeRoutesLocked()
		c.broadcastRoutingUpdateLocked(-1)
	}
}

// DetectSwitchDead implements §4.2 detect_switch_dead. It is meant to run
// once per main-loop iteration once the controller is booted.
func (c *Controller) DetectSwitchDead() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var dead []int
	for id, rec := range c.registry {
		if now.Sub(rec.LastPingTS) > c.timeout {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return
	}

	for _, id := range dead {
		delete(c.registry, id)
		c.live.RemoveNode(id)
		c.log.SwitchDead(id)
		if c.metrics != nil {
			c.metrics.SwitchesDead.Inc()
		}
	}
	c.recomputeRoutesLocked()
	c.broadcastRoutingUpdateLocked(-1)
}

func (c *Controller) recomputeRoutesLocked() {
	c.routingTable = graph.ComputeRoutes(c.live, c.bootstrapped)
}

// targetsLocked resolves the sid|all convention used by the broadcast
// operations: target >= 0 means just that switch, target < 0 means every
// currently registered switch.
func (c *Controller) targetsLocked(target int) []int {
	if target >= 0 {
		return []int{target}
	}
	out := make([]int, 0, len(c.registry))
	for id := range c.registry {
		out = append(out, id)
	}
	return out
}

// neighborTableLocked builds sid's direct-neighbor table from the live map.
func (c *Controller) neighborTableLocked(sid int) []wire.NeighborEntry {
	var table []wire.NeighborEntry
	for nb := range c.live[sid] {
		rec, ok := c.registry[nb]
		if !ok {
			continue
		}
		table = append(table, wire.NeighborEntry{ID: nb, Host: rec.Host, Port: rec.Port})
	}
	return table
}

// broadcastRegisterResponseLocked implements §4.2 broadcast_register_response.
func (c *Controller) broadcastRegisterResponseLocked(target int) {
	for _, t := range c.targetsLocked(target) {
		rec, ok := c.registry[t]
		if !ok {
			continue
		}
		payload, err := wire.EncodeRegisterResponse(t, c.neighborTableLocked(t))
		if err != nil {
			c.slog.Error("controller: encode register_response", "error", err, "switch", t)
			continue
		}
		c.sender.Append(payload, &net.UDPAddr{IP: net.ParseIP(rec.Host), Port: rec.Port}, false)
		c.log.RegisterResponse(t)
		if c.metrics != nil {
			c.metrics.RegisterResponses.Inc()
		}
	}
}

// broadcastRoutingUpdateLocked implements §4.2 broadcast_routing_update:
// send each target its row set, then emit the full block to the protocol
// log (§6), sorted by source then destination.
func (c *Controller) broadcastRoutingUpdateLocked(target int) {
	for _, t := range c.targetsLocked(target) {
		rec, ok := c.registry[t]
		if !ok {
			continue
		}
		rows, ok := c.routingTable[t]
		if !ok {
			continue // source has no live map entry: omitted, not "dead"
		}
		wireRows := make([]wire.RoutingRow, len(rows))
		for i, r := range rows {
			wireRows[i] = wire.RoutingRow(r)
		}
		payload, err := wire.EncodeRoutingUpdate(wireRows)
		if err != nil {
			c.slog.Error("controller: encode routing_update", "error", err, "switch", t)
			continue
		}
		c.sender.Append(payload, &net.UDPAddr{IP: net.ParseIP(rec.Host), Port: rec.Port}, false)
		if c.metrics != nil {
			c.metrics.RoutingUpdatesSent.Inc()
		}
	}
	c.log.RoutingUpdateController(c.routingTable)
}
