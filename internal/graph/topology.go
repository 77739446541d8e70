// Package graph holds the controller's weighted adjacency model and the
// Dijkstra engine used to compute per-switch routing tables.
package graph

// ConfiguredEdge is an undirected, statically configured link between two
// switch ids with a fixed cost of at least 1. Loaded once from the config
// file and never mutated afterward.
type ConfiguredEdge struct {
	A, B int
	Cost int
}

// Map is a symmetric weighted adjacency: switch id -> neighbor id -> cost.
// Two independent Maps are kept by the controller: the bootstrapped map
// (frozen at the end of bootstrap) and the live map (mutated as switches
// and links come and go). Every edge present in a live map must also be
// present in the bootstrapped map with an identical cost.
type Map map[int]map[int]int

// NewBootstrapped builds the canonical adjacency for numSwitches switches
// (ids 0..numSwitches-1) from the configured edges. Every id is present as
// a key, even if it has no edges, so a switch with zero configured links
// still gets a self-route.
func NewBootstrapped(numSwitches int, edges []ConfiguredEdge) Map {
	m := make(Map, numSwitches)
	for i := 0; i < numSwitches; i++ {
		m[i] = make(map[int]int)
	}
	for _, e := range edges {
		if _, ok := m[e.A]; !ok {
			m[e.A] = make(map[int]int)
		}
		if _, ok := m[e.B]; !ok {
			m[e.B] = make(map[int]int)
		}
		m[e.A][e.B] = e.Cost
		m[e.B][e.A] = e.Cost
	}
	return m
}

// Clone returns a deep copy so the live map can diverge from the
// bootstrapped snapshot it started from.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		inner := make(map[int]int, len(v))
		for nk, nv := range v {
			inner[nk] = nv
		}
		out[k] = inner
	}
	return out
}

// HasNode reports whether id is present as a key (i.e. the switch is
// currently registered/alive in this snapshot), regardless of degree.
func (m Map) HasNode(id int) bool {
	_, ok := m[id]
	return ok
}

// AddNode ensures id is present as a key without touching existing edges.
func (m Map) AddNode(id int) {
	if _, ok := m[id]; !ok {
		m[id] = make(map[int]int)
	}
}

// RemoveNode deletes id's row and every edge pointing back at id from
// other rows (used by Switch Dead handling).
func (m Map) RemoveNode(id int) {
	delete(m, id)
	for _, neighbors := range m {
		delete(neighbors, id)
	}
}

// RemoveEdge deletes the a->b direction only, leaving b->a (and a itself)
// untouched. Used for one-sided Link Dead handling (§4.2 open question 1).
func (m Map) RemoveEdge(a, b int) {
	if neighbors, ok := m[a]; ok {
		delete(neighbors, b)
	}
}

// RestoreNeighbors reinstates id's edges to every neighbor n of id in
// bootstrapped such that n is still present in m (a still-live switch),
// using bootstrapped's cost. Used when a switch re-registers after being
// marked dead (Switch Alive).
func (m Map) RestoreNeighbors(id int, bootstrapped Map) {
	m.AddNode(id)
	for n, cost := range bootstrapped[id] {
		if _, ok := m[n]; ok {
			m[id][n] = cost
			m[n][id] = cost
		}
	}
}
