// Package config loads the controller's config file (§6): line 1 is the
// switch count N, every subsequent line is "a b cost".
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/g-hurst/sdnctl/internal/graph"
)

// Config is the parsed, validated result of reading a controller config
// file.
type Config struct {
	NumSwitches int
	Edges       []graph.ConfiguredEdge
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the config format from r. Split out from Load so tests can
// exercise it against an in-memory reader instead of the filesystem.
func Parse(r io.Reader) (*Config, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("config: missing switch count line")
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("config: invalid switch count %q: %w", scanner.Text(), err)
	}
	if n < 0 {
		return nil, fmt.Errorf("config: switch count must be non-negative, got %d", n)
	}

	var edges []graph.ConfiguredEdge
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("config: line %d: expected \"a b cost\", got %q", lineNo, line)
		}
		a, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("config: line %d: invalid switch id %q: %w", lineNo, fields[0], err)
		}
		b, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("config: line %d: invalid switch id %q: %w", lineNo, fields[1], err)
		}
		cost, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("config: line %d: invalid cost %q: %w", lineNo, fields[2], err)
		}
		if cost < 1 {
			return nil, fmt.Errorf("config: line %d: cost must be >= 1, got %d", lineNo, cost)
		}
		if a < 0 || a >= n || b < 0 || b >= n {
			return nil, fmt.Errorf("config: line %d: edge %d-%d out of range [0,%d)", lineNo, a, b, n)
		}
		edges = append(edges, graph.ConfiguredEdge{A: a, B: b, Cost: cost})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading: %w", err)
	}

	return &Config{NumSwitches: n, Edges: edges}, nil
}
