package data

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/islands/internal/grid"
	"github.com/l1jgo/islands/internal/world"
)

// IslandEntry is one confirmed or orphaned island in island_list.yaml.
type IslandEntry struct {
	X         int       `yaml:"x"`
	Z         int       `yaml:"z"`
	Owner     string    `yaml:"owner,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	Orphaned  bool      `yaml:"orphaned,omitempty"`
}

func (e IslandEntry) Cell() grid.Cell {
	return grid.Cell{X: e.X, Z: e.Z}
}

// LoadIslandList loads island_list.yaml. A missing file is an empty list.
func LoadIslandList(path string) ([]IslandEntry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read island list: %w", err)
	}
	var entries []IslandEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse island list: %w", err)
	}
	return entries, nil
}

// SaveIslandList writes island_list.yaml sorted by cell.
func SaveIslandList(path string, entries []IslandEntry) error {
	sorted := append([]IslandEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Z < sorted[j].Z
	})
	out, err := yaml.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("encode island list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save island list: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("save island list: %w", err)
	}
	return nil
}

// Populate fills the world state and orphan pool from loaded entries.
// Entries are snapped to the plot grid of spacing d; two entries landing on
// the same plot fail with world.ErrOccupied.
// Returns the number of confirmed islands and orphans added.
func Populate(entries []IslandEntry, d int, ws *world.State, orphans *world.OrphanPool) (islands, orphaned int, err error) {
	for _, e := range entries {
		c := grid.AlignCell(e.Cell(), d)
		if e.Orphaned {
			orphans.Add(c)
			orphaned++
			continue
		}
		if _, err := ws.AddIsland(c, e.Owner, e.CreatedAt); err != nil {
			return islands, orphaned, fmt.Errorf("island %s: %w", e.Cell(), err)
		}
		islands++
	}
	return islands, orphaned, nil
}

// Snapshot converts the world state and orphan pool back to entries.
func Snapshot(ws *world.State, orphans *world.OrphanPool) []IslandEntry {
	var out []IslandEntry
	ws.AllIslands(func(info world.IslandInfo) {
		out = append(out, IslandEntry{X: info.Cell.X, Z: info.Cell.Z, Owner: info.Owner, CreatedAt: info.CreatedAt})
	})
	for _, c := range orphans.Cells() {
		out = append(out, IslandEntry{X: c.X, Z: c.Z, Orphaned: true})
	}
	return out
}
