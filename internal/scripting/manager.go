package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scope VM is found.
const globalScope = "__global__"

// UnitInfo is a snapshot of a unit passed to Lua callbacks.
type UnitInfo struct {
	ID      string
	Name    string
	Team    string
	HP      int
	MaxHP   int
	MP      int
	MaxMP   int
	X, Y    int
	Range   int
	Effects []string
}

type vm struct {
	L         *lua.LState
	instLimit int
}

// Manager owns one sandboxed LState per scope (an AI domain ID, or the
// global scope) and exposes hook dispatch. Calls are serialised by a mutex;
// each call runs with a fresh instruction budget.
type Manager struct {
	mu     sync.Mutex
	vms    map[string]*vm
	logger *zap.Logger

	// Injected after construction. nil = engine.* functions return nil.
	GetUnit  func(id string) *UnitInfo
	Distance func(a, b string) (int, bool)
	Enemies  func(id string) []string
	Allies   func(id string) []string
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs loaded.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		logger: logger,
	}
}

// LoadScope creates a sandboxed VM for scope, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: The scope VM is registered, replacing any previous one;
// returns an error on Lua load failure.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	if scope == "" {
		return fmt.Errorf("scripting: scope must not be empty")
	}
	return m.loadInto(scope, scriptDir, instLimit)
}

// LoadGlobal creates the shared VM accessible as a CallHook fallback from
// any scope.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	defer cancel()
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.vms[key]; ok {
		old.L.Close()
	}
	m.vms[key] = &vm{L: L, instLimit: instLimit}
	m.mu.Unlock()
	m.logger.Debug("scripting: scope loaded", zap.String("scope", key), zap.Int("files", len(luaFiles)))
	return nil
}

// CallHook calls the named Lua global function in scope's VM. If the scope
// has no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vms[scope]
	if !ok {
		v = m.vms[globalScope]
	}
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	cancel := withBudget(v.L, v.instLimit)
	defer cancel()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// HasHook reports whether hook is a global function in scope's VM or the
// global fallback.
func (m *Manager) HasHook(scope, hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range []string{scope, globalScope} {
		if v, ok := m.vms[key]; ok {
			if _, isFn := v.L.GetGlobal(hook).(*lua.LFunction); isFn {
				return true
			}
		}
	}
	return false
}

// Close releases every VM.
//
// Postcondition: Subsequent CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.vms {
		v.L.Close()
		delete(m.vms, key)
	}
}
