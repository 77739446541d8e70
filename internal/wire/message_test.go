package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRequestRoundTrip(t *testing.T) {
	payload, err := EncodeRegisterRequest(3)
	require.NoError(t, err)

	action, data, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, ActionRegisterRequest, action)

	sid, err := DecodeRegisterRequest(data)
	require.NoError(t, err)
	require.Equal(t, 3, sid)
}

func TestRegisterResponseRoundTrip(t *testing.T) {
	table := []NeighborEntry{
		{ID: 1, Host: "10.0.0.1", Port: 5000},
		{ID: 2, Host: "10.0.0.2", Port: 5001},
	}
	payload, err := EncodeRegisterResponse(0, table)
	require.NoError(t, err)

	action, data, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, ActionRegisterResponse, action)

	id, got, err := DecodeRegisterResponse(data)
	require.NoError(t, err)
	require.Equal(t, 0, id)
	require.Equal(t, table, got)
}

func TestRegisterResponseEmptyTableIsEmptyArrayNotNull(t *testing.T) {
	payload, err := EncodeRegisterResponse(5, nil)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"table":[]`)
}

func TestRoutingUpdateRoundTrip(t *testing.T) {
	rows := []RoutingRow{
		{Dest: 0, NextHop: 0, Cost: 0},
		{Dest: 1, NextHop: 1, Cost: 10},
		{Dest: 2, NextHop: -1, Cost: 9999},
	}
	payload, err := EncodeRoutingUpdate(rows)
	require.NoError(t, err)

	_, data, err := Decode(payload)
	require.NoError(t, err)
	got, err := DecodeRoutingUpdate(data)
	require.NoError(t, err)
	require.Equal(t, rows, got)
}

func TestTopologyUpdateRoundTrip(t *testing.T) {
	payload, err := EncodeTopologyUpdate(7, []int{1, 2, 3})
	require.NoError(t, err)

	_, data, err := Decode(payload)
	require.NoError(t, err)
	sid, neighbors, err := DecodeTopologyUpdate(data)
	require.NoError(t, err)
	require.Equal(t, 7, sid)
	require.Equal(t, []int{1, 2, 3}, neighbors)
}

func TestTopologyUpdateRejectsMultipleKeys(t *testing.T) {
	_, _, err := DecodeTopologyUpdate([]byte(`{"1":[],"2":[]}`))
	require.Error(t, err)
}

func TestKeepAliveRoundTrip(t *testing.T) {
	payload, err := EncodeKeepAlive(9)
	require.NoError(t, err)

	_, data, err := Decode(payload)
	require.NoError(t, err)
	sid, err := DecodeKeepAlive(data)
	require.NoError(t, err)
	require.Equal(t, 9, sid)
}

func TestDecodeRejectsMalformedEnvelope(t *testing.T) {
	_, _, err := Decode([]byte(`not json`))
	require.Error(t, err)

	_, _, err = Decode([]byte(`{"data": 1}`))
	require.Error(t, err)
}
