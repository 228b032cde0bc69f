package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/islands/internal/grid"
)

type availSet map[grid.Cell]bool

func (a availSet) IsAvailable(c grid.Cell) bool { return a[c] }

func TestState_AddRemove(t *testing.T) {
	pool := NewOrphanPool()
	s := NewState(pool)
	c := grid.Cell{X: 110, Z: -220}
	now := time.Unix(1700000000, 0)

	info, err := s.AddIsland(c, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Owner)
	assert.True(t, s.IsOccupied(c))
	assert.Equal(t, 1, s.IslandCount())

	_, err = s.AddIsland(c, "bob", now)
	require.ErrorIs(t, err, ErrOccupied)

	got := s.GetIsland(c)
	require.NotNil(t, got)
	assert.Equal(t, now, got.CreatedAt)

	removed := s.RemoveIsland(c)
	require.NotNil(t, removed)
	assert.False(t, s.IsOccupied(c))
	assert.Equal(t, []grid.Cell{c}, pool.Cells())

	assert.Nil(t, s.RemoveIsland(c))
	assert.Equal(t, 1, pool.Len())
}

func TestState_AllIslandsSorted(t *testing.T) {
	s := NewState(nil)
	for _, c := range []grid.Cell{{X: 200, Z: 0}, {X: 0, Z: 100}, {X: 100, Z: 100}} {
		_, err := s.AddIsland(c, "", time.Time{})
		require.NoError(t, err)
	}
	var names []string
	s.AllIslands(func(i IslandInfo) { names = append(names, i.Cell.Name()) })
	assert.Equal(t, []string{"0,100", "100,100", "200,0"}, names)
}

func TestOrphanPool_NextSkipsUnavailable(t *testing.T) {
	p := NewOrphanPool()
	a, b, c := grid.Cell{X: 100, Z: 0}, grid.Cell{X: 200, Z: 0}, grid.Cell{X: 300, Z: 0}
	p.Add(a)
	p.Add(b)
	p.Add(b)
	p.Add(c)
	assert.Equal(t, 3, p.Len())

	got, ok := p.NextOrphan(availSet{b: true, c: true})
	require.True(t, ok)
	assert.Equal(t, b, got)
	// a was discarded on the way
	assert.Equal(t, []grid.Cell{c}, p.Cells())

	_, ok = p.NextOrphan(availSet{})
	assert.False(t, ok)
	assert.Equal(t, 0, p.Len())
}

func TestSpawn(t *testing.T) {
	s := Spawn{Radius: 64}
	assert.True(t, s.InSpawn(grid.Cell{X: 0, Z: 0}))
	assert.True(t, s.InSpawn(grid.Cell{X: -64, Z: 64}))
	assert.False(t, s.InSpawn(grid.Cell{X: 0, Z: 100}))
	assert.False(t, Spawn{}.InSpawn(grid.Cell{}))
}

func TestWorlds(t *testing.T) {
	w := NewWorlds([]string{"skyworld", "skyworld_nether"})
	assert.True(t, w.IsSkyWorld("skyworld"))
	assert.False(t, w.IsSkyWorld("world"))
}
