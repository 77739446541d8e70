// Package protolog implements the mandated textual protocol log (§6): a
// strict, human-grep-able append-only format, distinct from the
// operational slog output. Writes are serialized under a single per-role
// lock, matching the "per-role log lock" discipline in §5.
package protolog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/g-hurst/sdnctl/internal/graph"
)

// Clock is overridable in tests so timestamp assertions don't race real time.
type Clock func() time.Time

// Log is an append-only writer for the §6 textual format. Every entry is
// preceded by a blank line, starts with a timestamp line, and is followed
// by one or more message lines.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    Clock
}

// Open creates (or truncates) the log file at path.
func Open(path string) (*Log, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("protolog: open %s: %w", path, err)
	}
	return &Log{w: f, closer: f, now: time.Now}, nil
}

// New wraps an arbitrary writer (used by tests to capture output
// in-memory instead of touching the filesystem).
func New(w io.Writer) *Log {
	return &Log{w: w, now: time.Now}
}

// Close releases the underlying file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Log) timestamp() string {
	return l.now().Format("15:04:05.000000")
}

func (l *Log) writeEntry(lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(l.timestamp())
	b.WriteString("\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	_, _ = io.WriteString(l.w, b.String())
}

// RegisterRequest logs a received register_request.
func (l *Log) RegisterRequest(sid int) {
	l.writeEntry(fmt.Sprintf("Register Request %d", sid))
}

// RegisterResponse logs a sent register_response.
func (l *Log) RegisterResponse(sid int) {
	l.writeEntry(fmt.Sprintf("Register Response %d", sid))
}

// LinkDead logs a one-sided link-dead detection between a and b.
func (l *Log) LinkDead(a, b int) {
	l.writeEntry(fmt.Sprintf("Link Dead %d,%d", a, b))
}

// SwitchDead logs a controller-side switch failure detection.
func (l *Log) SwitchDead(sid int) {
	l.writeEntry(fmt.Sprintf("Switch Dead %d", sid))
}

// SwitchAlive logs a switch re-registering after having been marked dead
// (or registering for the first time after bootstrap).
func (l *Log) SwitchAlive(sid int) {
	l.writeEntry(fmt.Sprintf("Switch Alive %d", sid))
}

// NeighborDead logs a switch-side neighbor failure detection.
func (l *Log) NeighborDead(id int) {
	l.writeEntry(fmt.Sprintf("Neighbor Dead %d", id))
}

// NeighborAlive logs a switch learning of a new or returning neighbor.
func (l *Log) NeighborAlive(id int) {
	l.writeEntry(fmt.Sprintf("Neighbor Alive %d", id))
}

// RegisterResponseReceived logs a switch's first register_response receipt.
func (l *Log) RegisterResponseReceived() {
	l.writeEntry("Register Response received")
}

// RoutingUpdateController logs the full routing-table block, sorted by
// source id ascending and, within each source, destination id ascending,
// including the cost column (§6).
func (l *Log) RoutingUpdateController(tables map[int][]graph.RoutingRow) {
	sources := make([]int, 0, len(tables))
	for src := range tables {
		sources = append(sources, src)
	}
	sort.Ints(sources)

	lines := []string{"Routing Update"}
	for _, src := range sources {
		rows := append([]graph.RoutingRow(nil), tables[src]...)
		sort.Slice(rows, func(i, j int) bool { return rows[i].Dest < rows[j].Dest })
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("%d,%d:%d,%d", src, r.Dest, r.NextHop, r.Cost))
		}
	}
	lines = append(lines, "Routing Complete")
	l.writeEntry(lines...)
}

// RoutingUpdateSwitch logs a switch's own routing-table block: only its
// own rows, sorted by destination id ascending, without the cost column
// (§6, §9 open question 3).
func (l *Log) RoutingUpdateSwitch(src int, rows []graph.RoutingRow) {
	sorted := append([]graph.RoutingRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Dest < sorted[j].Dest })

	lines := []string{"Routing Update"}
	for _, r := range sorted {
		lines = append(lines, fmt.Sprintf("%d,%d:%d", src, r.Dest, r.NextHop))
	}
	lines = append(lines, "Routing Complete")
	l.writeEntry(lines...)
}
