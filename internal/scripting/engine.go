package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/islands/internal/grid"
)

// SpawnRegion and WorldPolicy are the fallbacks used when a script does not
// define the hook or the hook fails.
type SpawnRegion interface {
	InSpawn(cell grid.Cell) bool
}

type WorldPolicy interface {
	IsSkyWorld(name string) bool
}

// Engine wraps a gopher-lua VM holding island placement policy.
//
// Scripts may define:
//
//	in_spawn(x, z)       -> bool
//	is_sky_world(name)   -> bool
//
// The VM is not goroutine-safe, so every call holds mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger

	spawn  SpawnRegion
	worlds WorldPolicy
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir in name order.
func NewEngine(scriptsDir string, distance int, spawn SpawnRegion, worlds WorldPolicy, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("ISLAND_DISTANCE", lua.LNumber(distance))

	e := &Engine{vm: vm, log: log, spawn: spawn, worlds: worlds}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load policy scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory. A missing directory is not an error.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Warn("policy script dir not found, using config defaults", zap.String("dir", dir))
			return nil
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasHook reports whether a script defined the named global function.
func (e *Engine) HasHook(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// InSpawn calls in_spawn(x, z), falling back to the configured region.
func (e *Engine) InSpawn(cell grid.Cell) bool {
	v, ok := e.callBool("in_spawn", lua.LNumber(cell.X), lua.LNumber(cell.Z))
	if !ok {
		return e.spawn.InSpawn(cell)
	}
	return v
}

// IsSkyWorld calls is_sky_world(name), falling back to the configured list.
func (e *Engine) IsSkyWorld(name string) bool {
	v, ok := e.callBool("is_sky_world", lua.LString(name))
	if !ok {
		return e.worlds.IsSkyWorld(name)
	}
	return v
}

func (e *Engine) callBool(name string, args ...lua.LValue) (bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return false, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
		return false, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(ret), true
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
