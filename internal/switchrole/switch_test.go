package switchrole

import (
	"bytes"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/g-hurst/sdnctl/internal/graph"
	"github.com/g-hurst/sdnctl/internal/metrics"
	"github.com/g-hurst/sdnctl/internal/protolog"
	"github.com/g-hurst/sdnctl/internal/transport"
	"github.com/g-hurst/sdnctl/internal/wire"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func newTestSwitch(t *testing.T, id int, failureID int) *Switch {
	t.Helper()
	var buf bytes.Buffer
	l := protolog.New(&buf)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return New(Config{
		ID:             id,
		ControllerAddr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999},
		Sender:         transport.NewSender(conn, discardLogger()),
		Log:            l,
		Slog:           discardLogger(),
		Metrics:        metrics.New("switch-test"),
		FailureID:      failureID,
		Timeout:        50 * time.Millisecond,
	})
}

func TestRegisterResponseSetsRegisteredOnFirstReceiptOnly(t *testing.T) {
	s := newTestSwitch(t, 0, -1)
	require.False(t, s.IsRegistered())

	table := []wire.NeighborEntry{{ID: 1, Host: "127.0.0.1", Port: 9001}}
	s.HandleRegisterResponse(0, table)
	require.True(t, s.IsRegistered())
	require.Equal(t, 1, s.NeighborCount())

	// Second receipt still replaces the table wholesale.
	s.HandleRegisterResponse(0, nil)
	require.True(t, s.IsRegistered())
	require.Equal(t, 0, s.NeighborCount())
}

func TestKeepAliveFromUnknownSenderAddsNeighborAndLogsAlive(t *testing.T) {
	s := newTestSwitch(t, 0, -1)
	var buf bytes.Buffer
	s.log = protolog.New(&buf)
	s.HandleRegisterResponse(0, nil)

	s.HandleKeepAlive(1, "127.0.0.1", 9001)
	require.Equal(t, 1, s.NeighborCount())
	require.Contains(t, buf.String(), "\nNeighbor Alive 1\n")
}

func TestKeepAliveFromSimulatedFailureIsIgnored(t *testing.T) {
	s := newTestSwitch(t, 0, 1)
	s.HandleRegisterResponse(0, nil)

	s.HandleKeepAlive(1, "127.0.0.1", 9001)
	require.Equal(t, 0, s.NeighborCount())
}

func TestDetectNeighborDeadDropsStaleEntries(t *testing.T) {
	s := newTestSwitch(t, 0, -1)
	table := []wire.NeighborEntry{{ID: 1, Host: "127.0.0.1", Port: 9001}}
	s.HandleRegisterResponse(0, table)
	require.Equal(t, 1, s.NeighborCount())

	time.Sleep(60 * time.Millisecond)
	s.detectNeighborDead()
	require.Equal(t, 0, s.NeighborCount())
}

func TestRoutingUpdateReplacesLocalTable(t *testing.T) {
	s := newTestSwitch(t, 0, -1)
	rows := []graph.RoutingRow{{Dest: 1, NextHop: 1, Cost: 10}}
	s.HandleRoutingUpdate(rows)
	require.Equal(t, rows, s.RoutingTable())
}
