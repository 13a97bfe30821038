package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the engine.* Lua table into L:
//
//	engine.log.debug/info/warn(msg)
//	engine.unit(id)        -> table or nil
//	engine.distance(a, b)  -> number or nil
//	engine.enemies(id)     -> array of ids
//	engine.allies(id)      -> array of ids (excluding id)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	log := L.NewTable()
	L.SetField(log, "debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	L.SetField(log, "info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(log, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetField(engine, "log", log)

	L.SetField(engine, "unit", L.NewFunction(m.luaUnit))
	L.SetField(engine, "distance", L.NewFunction(m.luaDistance))
	L.SetField(engine, "enemies", L.NewFunction(func(L *lua.LState) int {
		return pushIDs(L, m.Enemies, L.CheckString(1))
	}))
	L.SetField(engine, "allies", L.NewFunction(func(L *lua.LState) int {
		return pushIDs(L, m.Allies, L.CheckString(1))
	}))

	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

func (m *Manager) luaUnit(L *lua.LState) int {
	id := L.CheckString(1)
	if m.GetUnit == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := m.GetUnit(id)
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(info.ID))
	L.SetField(t, "name", lua.LString(info.Name))
	L.SetField(t, "team", lua.LString(info.Team))
	L.SetField(t, "hp", lua.LNumber(info.HP))
	L.SetField(t, "max_hp", lua.LNumber(info.MaxHP))
	L.SetField(t, "mp", lua.LNumber(info.MP))
	L.SetField(t, "max_mp", lua.LNumber(info.MaxMP))
	L.SetField(t, "x", lua.LNumber(info.X))
	L.SetField(t, "y", lua.LNumber(info.Y))
	L.SetField(t, "range", lua.LNumber(info.Range))
	effects := L.NewTable()
	for _, e := range info.Effects {
		effects.Append(lua.LString(e))
	}
	L.SetField(t, "effects", effects)
	L.Push(t)
	return 1
}

func (m *Manager) luaDistance(L *lua.LState) int {
	a, b := L.CheckString(1), L.CheckString(2)
	if m.Distance == nil {
		L.Push(lua.LNil)
		return 1
	}
	d, ok := m.Distance(a, b)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(d))
	return 1
}

func pushIDs(L *lua.LState, fn func(string) []string, id string) int {
	t := L.NewTable()
	if fn != nil {
		for _, x := range fn(id) {
			t.Append(lua.LString(x))
		}
	}
	L.Push(t)
	return 1
}
