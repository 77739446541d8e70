// Package wire implements the UDP datagram codec (§6): every message is a
// JSON object {"action": <str>, "data": <value>}, UTF-8 encoded, one per
// datagram, capped at 1024 bytes.
package wire

import (
	"encoding/json"
	"fmt"
)

// Action names the five message kinds the protocol exchanges. Values match
// the wire strings verbatim.
type Action string

const (
	ActionRegisterRequest  Action = "register_request"
	ActionRegisterResponse Action = "register_response"
	ActionRoutingUpdate    Action = "routing_update"
	ActionTopologyUpdate   Action = "topology_update"
	ActionKeepAlive        Action = "keep_alive"

	// MaxDatagramSize is the §4.1 bound: 1024 bytes is sufficient for every
	// message shape this protocol defines.
	MaxDatagramSize = 1024
)

type envelope struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Decode parses the outer {action, data} envelope. The caller further
// decodes Data according to Action via the Decode<Action> helpers below.
func Decode(payload []byte) (Action, json.RawMessage, error) {
	var e envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return "", nil, fmt.Errorf("wire: malformed envelope: %w", err)
	}
	if e.Action == "" {
		return "", nil, fmt.Errorf("wire: missing action")
	}
	return e.Action, e.Data, nil
}

func encode(action Action, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %s data: %w", action, err)
	}
	payload, err := json.Marshal(envelope{Action: action, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %s envelope: %w", action, err)
	}
	if len(payload) > MaxDatagramSize {
		return nil, fmt.Errorf("wire: %s payload of %d bytes exceeds %d byte datagram bound", action, len(payload), MaxDatagramSize)
	}
	return payload, nil
}

// NeighborEntry is one row of a register_response table: a direct neighbor
// and how to reach it. On the wire it is the 3-tuple [nid, host, port].
type NeighborEntry struct {
	ID   int
	Host string
	Port int
}

func (n NeighborEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{n.ID, n.Host, n.Port})
}

func (n *NeighborEntry) UnmarshalJSON(b []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("wire: neighbor entry: %w", err)
	}
	if err := json.Unmarshal(tuple[0], &n.ID); err != nil {
		return fmt.Errorf("wire: neighbor entry id: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &n.Host); err != nil {
		return fmt.Errorf("wire: neighbor entry host: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &n.Port); err != nil {
		return fmt.Errorf("wire: neighbor entry port: %w", err)
	}
	return nil
}

// RoutingRow is one row of a routing_update: the 3-tuple [dest, next_hop, cost].
type RoutingRow struct {
	Dest    int
	NextHop int
	Cost    int
}

func (r RoutingRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{r.Dest, r.NextHop, r.Cost})
}

func (r *RoutingRow) UnmarshalJSON(b []byte) error {
	var tuple [3]int
	if err := json.Unmarshal(b, &tuple); err != nil {
		return fmt.Errorf("wire: routing row: %w", err)
	}
	r.Dest, r.NextHop, r.Cost = tuple[0], tuple[1], tuple[2]
	return nil
}

// EncodeRegisterRequest builds a switch->controller register_request
// carrying the switch's own integer id.
func EncodeRegisterRequest(sid int) ([]byte, error) {
	return encode(ActionRegisterRequest, sid)
}

// DecodeRegisterRequest extracts the switch id from a register_request's data.
func DecodeRegisterRequest(data json.RawMessage) (int, error) {
	var sid int
	if err := json.Unmarshal(data, &sid); err != nil {
		return 0, fmt.Errorf("wire: register_request data: %w", err)
	}
	return sid, nil
}

type registerResponseData struct {
	ID    int             `json:"id"`
	Table []NeighborEntry `json:"table"`
}

// EncodeRegisterResponse builds a controller->switch register_response
// carrying the target's id and its direct-neighbor table.
func EncodeRegisterResponse(id int, table []NeighborEntry) ([]byte, error) {
	if table == nil {
		table = []NeighborEntry{}
	}
	return encode(ActionRegisterResponse, registerResponseData{ID: id, Table: table})
}

// DecodeRegisterResponse parses a register_response's data.
func DecodeRegisterResponse(data json.RawMessage) (int, []NeighborEntry, error) {
	var d registerResponseData
	if err := json.Unmarshal(data, &d); err != nil {
		return 0, nil, fmt.Errorf("wire: register_response data: %w", err)
	}
	return d.ID, d.Table, nil
}

// EncodeRoutingUpdate builds a controller->switch routing_update carrying
// the full set of rows computed for that switch.
func EncodeRoutingUpdate(rows []RoutingRow) ([]byte, error) {
	if rows == nil {
		rows = []RoutingRow{}
	}
	return encode(ActionRoutingUpdate, rows)
}

// DecodeRoutingUpdate parses a routing_update's data.
func DecodeRoutingUpdate(data json.RawMessage) ([]RoutingRow, error) {
	var rows []RoutingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("wire: routing_update data: %w", err)
	}
	return rows, nil
}

// EncodeTopologyUpdate builds a switch->controller topology_update, keyed
// by the sending switch's id (as a string, per the wire object-key
// requirement), carrying its currently-live neighbor ids.
func EncodeTopologyUpdate(sid int, neighborIDs []int) ([]byte, error) {
	if neighborIDs == nil {
		neighborIDs = []int{}
	}
	data := map[string][]int{fmt.Sprintf("%d", sid): neighborIDs}
	return encode(ActionTopologyUpdate, data)
}

// DecodeTopologyUpdate parses a topology_update's data, which carries
// exactly one key: the reporting switch's id.
func DecodeTopologyUpdate(data json.RawMessage) (sid int, neighborIDs []int, err error) {
	var m map[string][]int
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, nil, fmt.Errorf("wire: topology_update data: %w", err)
	}
	if len(m) != 1 {
		return 0, nil, fmt.Errorf("wire: topology_update data must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		if _, err := fmt.Sscanf(k, "%d", &sid); err != nil {
			return 0, nil, fmt.Errorf("wire: topology_update key %q is not an integer: %w", k, err)
		}
		neighborIDs = v
	}
	return sid, neighborIDs, nil
}

// EncodeKeepAlive builds a switch->neighbor keep_alive carrying the
// sender's own switch id.
func EncodeKeepAlive(sid int) ([]byte, error) {
	return encode(ActionKeepAlive, sid)
}

// DecodeKeepAlive extracts the sender's switch id from a keep_alive's data.
func DecodeKeepAlive(data json.RawMessage) (int, error) {
	var sid int
	if err := json.Unmarshal(data, &sid); err != nil {
		return 0, fmt.Errorf("wire: keep_alive data: %w", err)
	}
	return sid, nil
}
