package world

import (
	"github.com/l1jgo/islands/internal/grid"
)

// Spawn is a square protected region centered on the origin.
// A zero radius disables it.
type Spawn struct {
	Radius int
}

func (s Spawn) InSpawn(cell grid.Cell) bool {
	if s.Radius <= 0 {
		return false
	}
	return abs(cell.X) <= s.Radius && abs(cell.Z) <= s.Radius
}

// Worlds knows which world names are sky worlds.
type Worlds struct {
	sky map[string]struct{}
}

func NewWorlds(skyWorlds []string) *Worlds {
	w := &Worlds{sky: make(map[string]struct{}, len(skyWorlds))}
	for _, name := range skyWorlds {
		w.sky[name] = struct{}{}
	}
	return w
}

func (w *Worlds) IsSkyWorld(name string) bool {
	_, ok := w.sky[name]
	return ok
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
