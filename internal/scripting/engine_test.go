package scripting

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/islands/internal/grid"
	"github.com/l1jgo/islands/internal/world"
)

func newEngine(t *testing.T, scripts map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	e, err := NewEngine(dir, 100, world.Spawn{Radius: 64}, world.NewWorlds([]string{"skyworld"}), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEngine_ScriptedHooks(t *testing.T) {
	e := newEngine(t, map[string]string{
		"spawn.lua": `
function in_spawn(x, z)
  local r = ISLAND_DISTANCE * 2
  return math.abs(x) <= r and math.abs(z) <= r
end`,
		"worlds.lua": `
function is_sky_world(name)
  return string.sub(name, 1, 3) == "sky"
end`,
		"notes.txt": "ignored",
	})

	assert.True(t, e.HasHook("in_spawn"))
	assert.True(t, e.InSpawn(grid.Cell{X: 200, Z: -200}))
	assert.False(t, e.InSpawn(grid.Cell{X: 300, Z: 0}))
	assert.True(t, e.IsSkyWorld("sky_nether"))
	assert.False(t, e.IsSkyWorld("world"))
}

func TestEngine_FallsBackWithoutHooks(t *testing.T) {
	e := newEngine(t, nil)
	assert.False(t, e.HasHook("in_spawn"))
	assert.True(t, e.InSpawn(grid.Cell{X: 0, Z: 0}))
	assert.False(t, e.InSpawn(grid.Cell{X: 100, Z: 0}))
	assert.True(t, e.IsSkyWorld("skyworld"))
}

func TestEngine_FallsBackOnRuntimeError(t *testing.T) {
	e := newEngine(t, map[string]string{
		"broken.lua": `function is_sky_world(name) error("boom") end`,
	})
	assert.True(t, e.IsSkyWorld("skyworld"))
	assert.False(t, e.IsSkyWorld("world"))
}

func TestEngine_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("function ("), 0o644))
	_, err := NewEngine(dir, 100, world.Spawn{}, world.NewWorlds(nil), zap.NewNop())
	require.Error(t, err)
}

func TestEngine_MissingDir(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), 100, world.Spawn{Radius: 1}, world.NewWorlds(nil), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.InSpawn(grid.Cell{}))
}

func TestEngine_ConcurrentCalls(t *testing.T) {
	e := newEngine(t, map[string]string{
		"spawn.lua": `function in_spawn(x, z) return x == 0 and z == 0 end`,
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, j == 0 && i == 0, e.InSpawn(grid.Cell{X: j * 100, Z: i * 100}))
			}
		}(i)
	}
	wg.Wait()
}
