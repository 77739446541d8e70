package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rowsByDest(rows []RoutingRow) map[int]RoutingRow {
	out := make(map[int]RoutingRow, len(rows))
	for _, r := range rows {
		out[r.Dest] = r
	}
	return out
}

func TestComputeRoutes_Bootstrap(t *testing.T) {
	edges := []ConfiguredEdge{
		{A: 0, B: 1, Cost: 10},
		{A: 1, B: 2, Cost: 20},
		{A: 0, B: 2, Cost: 50},
	}
	boot := NewBootstrapped(3, edges)
	tables := ComputeRoutes(boot, boot)

	require.Len(t, tables, 3)

	r0 := rowsByDest(tables[0])
	require.Equal(t, RoutingRow{0, 0, 0}, r0[0])
	require.Equal(t, RoutingRow{1, 1, 10}, r0[1])
	require.Equal(t, RoutingRow{2, 1, 30}, r0[2])

	r1 := rowsByDest(tables[1])
	require.Equal(t, RoutingRow{0, 0, 10}, r1[0])
	require.Equal(t, RoutingRow{1, 1, 0}, r1[1])
	require.Equal(t, RoutingRow{2, 2, 20}, r1[2])

	r2 := rowsByDest(tables[2])
	require.Equal(t, RoutingRow{0, 1, 30}, r2[0])
	require.Equal(t, RoutingRow{1, 1, 20}, r2[1])
	require.Equal(t, RoutingRow{2, 2, 0}, r2[2])
}

func TestComputeRoutes_BetterNextHop(t *testing.T) {
	edges := []ConfiguredEdge{
		{A: 0, B: 1, Cost: 1},
		{A: 1, B: 2, Cost: 1},
		{A: 0, B: 2, Cost: 5},
	}
	boot := NewBootstrapped(3, edges)
	tables := ComputeRoutes(boot, boot)

	r0 := rowsByDest(tables[0])
	require.Equal(t, RoutingRow{2, 1, 2}, r0[2])
}

func TestComputeRoutes_Partition(t *testing.T) {
	edges := []ConfiguredEdge{
		{A: 0, B: 1, Cost: 1},
		{A: 2, B: 3, Cost: 1},
	}
	boot := NewBootstrapped(4, edges)
	tables := ComputeRoutes(boot, boot)

	r0 := rowsByDest(tables[0])
	require.Equal(t, UnreachableNextHop, r0[2].NextHop)
	require.Equal(t, UnreachableCost, r0[2].Cost)
	require.Equal(t, UnreachableNextHop, r0[3].NextHop)

	r2 := rowsByDest(tables[2])
	require.Equal(t, UnreachableNextHop, r2[0].NextHop)
}

func TestComputeRoutes_SourceRemovedFromLiveOmitted(t *testing.T) {
	edges := []ConfiguredEdge{
		{A: 0, B: 1, Cost: 10},
		{A: 1, B: 2, Cost: 20},
	}
	boot := NewBootstrapped(3, edges)
	live := boot.Clone()
	live.RemoveNode(1)

	tables := ComputeRoutes(live, boot)
	_, ok := tables[1]
	require.False(t, ok, "a source absent from the live map must not get a table")

	r0 := rowsByDest(tables[0])
	require.Equal(t, UnreachableNextHop, r0[1].NextHop)
	require.Equal(t, UnreachableNextHop, r0[2].NextHop)
}

func TestMap_SymmetryAndSubgraphInvariant(t *testing.T) {
	edges := []ConfiguredEdge{
		{A: 0, B: 1, Cost: 7},
		{A: 1, B: 2, Cost: 3},
	}
	boot := NewBootstrapped(3, edges)
	live := boot.Clone()
	live.RemoveEdge(0, 1)

	require.Equal(t, 7, boot[1][0])
	_, stillPresent := live[0][1]
	require.False(t, stillPresent)
	require.Equal(t, 3, live[1][2])
	require.Equal(t, 3, live[2][1])

	live.RestoreNeighbors(0, boot)
	require.Equal(t, 7, live[0][1])
	require.Equal(t, 7, live[1][0])
}
