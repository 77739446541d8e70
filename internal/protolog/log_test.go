package protolog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/g-hurst/sdnctl/internal/graph"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestEntriesArePrecededByBlankLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.now = fixedClock(time.Date(2024, 1, 1, 10, 20, 30, 0, time.UTC))

	l.RegisterRequest(1)
	l.SwitchDead(2)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\n"))
	require.Contains(t, out, "\nRegister Request 1\n")
	require.Contains(t, out, "\n10:20:30.000000\n")
	require.Contains(t, out, "\nSwitch Dead 2\n")
}

func TestRoutingUpdateControllerOrderedBySourceThenDest(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.now = fixedClock(time.Unix(0, 0).UTC())

	tables := map[int][]graph.RoutingRow{
		1: {{Dest: 2, NextHop: 2, Cost: 20}, {Dest: 0, NextHop: 0, Cost: 10}, {Dest: 1, NextHop: 1, Cost: 0}},
		0: {{Dest: 1, NextHop: 1, Cost: 10}, {Dest: 0, NextHop: 0, Cost: 0}, {Dest: 2, NextHop: 1, Cost: 30}},
	}
	l.RoutingUpdateController(tables)

	want := "Routing Update\n" +
		"0,0:0,0\n" +
		"0,1:1,10\n" +
		"0,2:1,30\n" +
		"1,0:0,10\n" +
		"1,1:1,0\n" +
		"1,2:2,20\n" +
		"Routing Complete\n"
	require.Contains(t, buf.String(), want)
}

func TestRoutingUpdateSwitchOmitsCostColumn(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.now = fixedClock(time.Unix(0, 0).UTC())

	rows := []graph.RoutingRow{
		{Dest: 1, NextHop: 1, Cost: 10},
		{Dest: 0, NextHop: 0, Cost: 0},
	}
	l.RoutingUpdateSwitch(0, rows)

	want := "Routing Update\n" +
		"0,0:0\n" +
		"0,1:1\n" +
		"Routing Complete\n"
	require.Contains(t, buf.String(), want)
	require.NotContains(t, buf.String(), "0,1:1,10")
}
