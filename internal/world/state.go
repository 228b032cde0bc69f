package world

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/l1jgo/islands/internal/grid"
)

// ErrOccupied is returned when confirming an island on a cell that already has one.
var ErrOccupied = errors.New("island already exists at location")

// IslandInfo holds in-memory data for a confirmed island.
type IslandInfo struct {
	Cell      grid.Cell
	Owner     string
	CreatedAt time.Time
}

// State is the set of confirmed islands, keyed by cell name.
// Read concurrently by the allocator, written by command handlers.
type State struct {
	mu      sync.RWMutex
	islands map[string]*IslandInfo
	orphans *OrphanPool // abandoned islands go here; nil disables reuse
}

func NewState(orphans *OrphanPool) *State {
	return &State{
		islands: make(map[string]*IslandInfo),
		orphans: orphans,
	}
}

// AddIsland confirms an island at the cell.
func (s *State) AddIsland(cell grid.Cell, owner string, at time.Time) (*IslandInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := cell.Name()
	if _, ok := s.islands[name]; ok {
		return nil, ErrOccupied
	}
	info := &IslandInfo{Cell: cell, Owner: owner, CreatedAt: at}
	s.islands[name] = info
	return info, nil
}

// RemoveIsland deletes the island at cell and, if an orphan pool is attached,
// offers the cell for reuse. Returns the removed island or nil.
func (s *State) RemoveIsland(cell grid.Cell) *IslandInfo {
	s.mu.Lock()
	info, ok := s.islands[cell.Name()]
	if ok {
		delete(s.islands, cell.Name())
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if s.orphans != nil {
		s.orphans.Add(cell)
	}
	return info
}

// IsOccupied reports whether a confirmed island exists at the cell.
func (s *State) IsOccupied(cell grid.Cell) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.islands[cell.Name()]
	return ok
}

func (s *State) GetIsland(cell grid.Cell) *IslandInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.islands[cell.Name()]
	if !ok {
		return nil
	}
	cp := *info
	return &cp
}

func (s *State) IslandCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.islands)
}

// AllIslands calls fn for every island in cell-name order.
// fn must not call back into State.
func (s *State) AllIslands(fn func(IslandInfo)) {
	s.mu.RLock()
	list := make([]IslandInfo, 0, len(s.islands))
	for _, info := range s.islands {
		list = append(list, *info)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Cell.Name() < list[j].Cell.Name() })
	for _, info := range list {
		fn(info)
	}
}
