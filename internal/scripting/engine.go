package scripting

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/ironforge/outpost/internal/system"
)

//go:embed lua/tuning.lua
var defaultTuning string

// Engine wraps a single gopher-lua VM holding the tuning functions.
// Single-goroutine access only (the tick loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	fallback system.DefaultTuning
}

var _ system.Tuning = (*Engine)(nil)

// NewEngine creates a Lua engine with the built-in tuning script, then loads
// every .lua file of scriptsDir (if set) on top of it.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := vm.DoString(defaultTuning); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load default tuning: %w", err)
	}
	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load tuning scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
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

// --- Threat tuning bridge ---

// WaveBatchSize calls Lua wave_batch_size(wave, difficulty).
func (e *Engine) WaveBatchSize(wave int, difficulty string) int {
	return e.callIntFunc("wave_batch_size", e.fallback.WaveBatchSize(wave, difficulty), wave, difficulty)
}

// RaidBatchSize calls Lua raid_batch_size(wave, difficulty).
func (e *Engine) RaidBatchSize(wave int, difficulty string) int {
	return e.callIntFunc("raid_batch_size", e.fallback.RaidBatchSize(wave, difficulty), wave, difficulty)
}

// MilestoneReward calls Lua milestone_reward(wave, difficulty).
func (e *Engine) MilestoneReward(wave int, difficulty string) int {
	return e.callIntFunc("milestone_reward", e.fallback.MilestoneReward(wave, difficulty), wave, difficulty)
}

// --- Lua helpers ---

// callIntFunc calls a Lua function with int/string args and returns an int
// result, or fallback when the function is missing or fails.
func (e *Engine) callIntFunc(name string, fallback int, args ...any) int {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return fallback
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case int:
			lArgs[i] = lua.LNumber(v)
		case string:
			lArgs[i] = lua.LString(v)
		default:
			lArgs[i] = lua.LNil
		}
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
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua function returned non-number", zap.String("func", name), zap.String("type", result.Type().String()))
		return fallback
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
