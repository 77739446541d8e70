package graph

import "container/heap"

// UnreachableNextHop and UnreachableCost are the wire/log sentinel values
// for a destination with no live path (§3, Unreachable destination
// convention).
const (
	UnreachableNextHop = -1
	UnreachableCost    = 9999
)

// RoutingRow is one row of a computed routing table: the shortest known
// path from an implicit source to Dest, identified by its first hop and
// total cost.
type RoutingRow struct {
	Dest    int
	NextHop int
	Cost    int
}

// heapItem is a single entry in the Dijkstra frontier. seq breaks ties
// between equal-cost items in FIFO order (the order they were relaxed),
// matching the first-path-found tie-break the spec requires.
type heapItem struct {
	node int
	cost int
	seq  uint64
}

type itemHeap []heapItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].cost == h[j].cost {
		return h[i].seq < h[j].seq
	}
	return h[i].cost < h[j].cost
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// shortestPathsFrom runs Dijkstra over live starting at src, returning for
// every reached node its cost and first hop. The first hop of a node v is
// the neighbor of src that lies on the path that first reached v — i.e.
// whichever adjacency was relaxed first among equal-cost alternatives.
func shortestPathsFrom(live Map, src int) (cost map[int]int, firstHop map[int]int) {
	cost = map[int]int{src: 0}
	firstHop = map[int]int{src: src}
	visited := make(map[int]bool)

	h := &itemHeap{}
	heap.Init(h)
	var seq uint64
	heap.Push(h, heapItem{node: src, cost: 0, seq: seq})

	for h.Len() > 0 {
		cur := heap.Pop(h).(heapItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true

		for nb, w := range live[cur.node] {
			nd := cur.cost + w
			if d, ok := cost[nb]; !ok || nd < d {
				cost[nb] = nd
				if cur.node == src {
					firstHop[nb] = nb
				} else {
					firstHop[nb] = firstHop[cur.node]
				}
				seq++
				heap.Push(h, heapItem{node: nb, cost: nd, seq: seq})
			}
		}
	}
	return cost, firstHop
}

// ComputeRoutes runs the controller's full route computation (§4.2
// compute_routes): Dijkstra from every node present in live (regardless of
// degree — a registered-but-currently-isolated switch still gets a
// self-route), with one row per destination present in bootstrapped.
// Sources absent from live are omitted entirely, not emitted as dead.
func ComputeRoutes(live Map, bootstrapped Map) map[int][]RoutingRow {
	tables := make(map[int][]RoutingRow, len(live))

	for src := range live {
		cost, firstHop := shortestPathsFrom(live, src)

		rows := make([]RoutingRow, 0, len(bootstrapped))
		for dest := range bootstrapped {
			if dest == src {
				rows = append(rows, RoutingRow{Dest: dest, NextHop: src, Cost: 0})
				continue
			}
			if c, ok := cost[dest]; ok {
				rows = append(rows, RoutingRow{Dest: dest, NextHop: firstHop[dest], Cost: c})
			} else {
				rows = append(rows, RoutingRow{Dest: dest, NextHop: UnreachableNextHop, Cost: UnreachableCost})
			}
		}
		tables[src] = rows
	}
	return tables
}
