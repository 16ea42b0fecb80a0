package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrMissingFunction is returned when a script does not define a hook.
var ErrMissingFunction = errors.New("lua function not defined")

// Engine wraps a single gopher-lua VM. It is not safe for concurrent use:
// systems calling into it declare write access to it so the runner never
// schedules two of them side by side.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// NewEngine creates a Lua engine and loads every script of dir in name
// order. A missing directory yields an engine without hooks.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(dir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromSource creates an engine from a single script.
func NewEngineFromSource(name, source string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(source); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether the scripts define a global function name.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// SteerContext is what the steer hook sees of one entity.
type SteerContext struct {
	Frame int
	X, Y  float64
	VX    float64
	VY    float64
}

// SteerResult is the new velocity of the entity.
type SteerResult struct {
	VX, VY float64
}

// Steer calls steer(ctx) and reads back the velocity it returns. Missing
// fields keep the current velocity.
func (e *Engine) Steer(ctx SteerContext) (SteerResult, error) {
	fn, ok := e.vm.GetGlobal("steer").(*lua.LFunction)
	if !ok {
		return SteerResult{VX: ctx.VX, VY: ctx.VY}, fmt.Errorf("steer: %w", ErrMissingFunction)
	}

	t := e.vm.NewTable()
	t.RawSetString("frame", lua.LNumber(ctx.Frame))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("vx", lua.LNumber(ctx.VX))
	t.RawSetString("vy", lua.LNumber(ctx.VY))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return SteerResult{VX: ctx.VX, VY: ctx.VY}, fmt.Errorf("steer: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua steer returned non-table")
		return SteerResult{VX: ctx.VX, VY: ctx.VY}, nil
	}
	return SteerResult{
		VX: lFloat(rt, "vx", ctx.VX),
		VY: lFloat(rt, "vy", ctx.VY),
	}, nil
}

// SpawnCount asks spawn_count(frame) how many particles an emitter releases.
// Without the hook, fallback is returned.
func (e *Engine) SpawnCount(frame, fallback int) int {
	if !e.Has("spawn_count") {
		return fallback
	}
	return e.callIntFunc("spawn_count", fallback, frame)
}

// lFloat reads a number field from a Lua table.
func lFloat(t *lua.LTable, key string, fallback float64) float64 {
	v, ok := t.RawGetString(key).(lua.LNumber)
	if !ok {
		return fallback
	}
	return float64(v)
}

// callIntFunc calls a Lua function with int args and returns an int result.
func (e *Engine) callIntFunc(name string, fallback int, args ...int) int {
	fn := e.vm.GetGlobal(name)
	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
