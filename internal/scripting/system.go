// Package scripting runs gopher-lua scripts as ECS systems. Scripts only
// see a read-only view of the world and queue their mutations through the
// commands table, like any other system.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/you-win/bevy/internal/component"
	"github.com/you-win/bevy/internal/core/command"
	"github.com/you-win/bevy/internal/core/ecs"
	"github.com/you-win/bevy/internal/core/resource"
	coresys "github.com/you-win/bevy/internal/core/system"
)

const entityTypeName = "entity"

// PrefabSource resolves prefab names to bundles.
type PrefabSource interface {
	Bundle(name string) (ecs.Bundle, bool)
}

// ScriptState is the value a script keeps with commands.store. It is a
// local resource scoped to the script's SystemID.
type ScriptState struct {
	Value float64
}

// ScriptSystem is one .lua file. Its LState is only touched from Update,
// which the runner never calls concurrently for the same system.
type ScriptSystem struct {
	name    string
	phase   coresys.Phase
	vm      *lua.LState
	prefabs PrefabSource
	log     *zap.Logger

	// Valid during Update only.
	params  *coresys.Params
	pending []command.Command
}

// LoadSystems creates one ScriptSystem per .lua file in dir. A missing
// directory yields no systems.
func LoadSystems(dir string, prefabs PrefabSource, log *zap.Logger) ([]*ScriptSystem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*ScriptSystem
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := NewScriptSystem(path, prefabs, log)
		if err != nil {
			for _, loaded := range out {
				loaded.Close()
			}
			return nil, err
		}
		log.Debug("loaded lua system",
			zap.String("file", path),
			zap.Stringer("phase", s.phase),
		)
		out = append(out, s)
	}
	return out, nil
}

// NewScriptSystem loads a single script file.
func NewScriptSystem(path string, prefabs PrefabSource, log *zap.Logger) (*ScriptSystem, error) {
	s := &ScriptSystem{
		name:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		phase:   coresys.PhaseUpdate,
		vm:      lua.NewState(),
		prefabs: prefabs,
		log:     log,
	}
	s.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	s.registerAPI()

	if err := s.vm.DoFile(path); err != nil {
		s.vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if fn := s.vm.GetGlobal("update"); fn.Type() != lua.LTFunction {
		s.vm.Close()
		return nil, fmt.Errorf("load %s: no update function", path)
	}
	if v := s.vm.GetGlobal("PHASE"); v != lua.LNil {
		phase, ok := coresys.ParsePhase(v.String())
		if !ok {
			s.vm.Close()
			return nil, fmt.Errorf("load %s: unknown phase %q", path, v.String())
		}
		s.phase = phase
	}
	return s, nil
}

func (s *ScriptSystem) Name() string         { return "lua:" + s.name }
func (s *ScriptSystem) Phase() coresys.Phase { return s.phase }

// Close releases the Lua VM.
func (s *ScriptSystem) Close() { s.vm.Close() }

// Update calls the script's update(dt). Commands the script queued are
// forwarded only if update returns cleanly.
func (s *ScriptSystem) Update(p *coresys.Params) error {
	s.params = p
	s.pending = s.pending[:0]
	defer func() { s.params = nil }()

	err := s.vm.CallByParam(lua.P{
		Fn:      s.vm.GetGlobal("update"),
		NRet:    0,
		Protect: true,
	}, lua.LNumber(p.DT.Seconds()))
	if err != nil {
		s.log.Error("lua update failed",
			zap.String("script", s.name),
			zap.Uint64("tick", p.Tick),
			zap.Error(err),
		)
		return nil
	}
	for _, c := range s.pending {
		p.Commands.Push(c)
	}
	return nil
}

func (s *ScriptSystem) registerAPI() {
	L := s.vm
	mt := L.NewTypeMetatable(entityTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(checkEntity(L, 1).String()))
		return 1
	}))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(checkEntity(L, 1) == checkEntity(L, 2)))
		return 1
	}))

	cmds := L.NewTable()
	L.SetFuncs(cmds, map[string]lua.LGFunction{
		"spawn":   s.luaSpawn,
		"despawn": s.luaDespawn,
		"insert":  s.luaInsert,
		"store":   s.luaStore,
	})
	L.SetGlobal("commands", cmds)

	world := L.NewTable()
	L.SetFuncs(world, map[string]lua.LGFunction{
		"tick":     s.luaTick,
		"count":    s.luaCount,
		"entities": s.luaEntities,
		"alive":    s.luaAlive,
		"state":    s.luaState,
	})
	L.SetGlobal("world", world)
}

func (s *ScriptSystem) mustParams(L *lua.LState) *coresys.Params {
	if s.params == nil {
		L.RaiseError("commands are only available inside update")
	}
	return s.params
}

func (s *ScriptSystem) bundle(L *lua.LState, arg int) ecs.Bundle {
	name := L.CheckString(arg)
	b, ok := s.prefabs.Bundle(name)
	if !ok {
		L.ArgError(arg, fmt.Sprintf("unknown prefab %q", name))
	}
	return b
}

func (s *ScriptSystem) luaSpawn(L *lua.LState) int {
	p := s.mustParams(L)
	b := s.bundle(L, 1)
	id := p.World.Entities().Reserve()
	s.pending = append(s.pending, command.SpawnAsEntity(id, b))
	L.Push(newEntity(L, id))
	return 1
}

func (s *ScriptSystem) luaDespawn(L *lua.LState) int {
	s.mustParams(L)
	s.pending = append(s.pending, command.Despawn(checkEntity(L, 1)))
	return 0
}

func (s *ScriptSystem) luaInsert(L *lua.LState) int {
	s.mustParams(L)
	id := checkEntity(L, 1)
	s.pending = append(s.pending, command.Insert(id, s.bundle(L, 2)))
	return 0
}

func (s *ScriptSystem) luaStore(L *lua.LState) int {
	p := s.mustParams(L)
	v := float64(L.CheckNumber(1))
	s.pending = append(s.pending, command.InsertLocalResource(p.ID, ScriptState{Value: v}))
	return 0
}

func (s *ScriptSystem) luaTick(L *lua.LState) int {
	L.Push(lua.LNumber(s.mustParams(L).Tick))
	return 1
}

// count(prefab) or count() for all live entities.
func (s *ScriptSystem) luaCount(L *lua.LState) int {
	p := s.mustParams(L)
	if L.GetTop() == 0 {
		L.Push(lua.LNumber(p.World.Len()))
		return 1
	}
	L.Push(lua.LNumber(len(s.byPrefab(p.World, L.CheckString(1)))))
	return 1
}

func (s *ScriptSystem) luaEntities(L *lua.LState) int {
	p := s.mustParams(L)
	ids := s.byPrefab(p.World, L.CheckString(1))
	t := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		t.Append(newEntity(L, id))
	}
	L.Push(t)
	return 1
}

func (s *ScriptSystem) luaAlive(L *lua.LState) int {
	p := s.mustParams(L)
	L.Push(lua.LBool(p.World.Alive(checkEntity(L, 1))))
	return 1
}

func (s *ScriptSystem) luaState(L *lua.LState) int {
	p := s.mustParams(L)
	st, ok := resource.GetLocal[ScriptState](p.Resources, p.ID)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(st.Value))
	return 1
}

// byPrefab returns live entities spawned from the named prefab, ordered by
// index so scripts see a stable order.
func (s *ScriptSystem) byPrefab(w *ecs.World, name string) []ecs.EntityID {
	want := component.Prefab(component.NormalizeName(name))
	var ids []ecs.EntityID
	ecs.Each(w, func(id ecs.EntityID, p component.Prefab) {
		if p == want {
			ids = append(ids, id)
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].Index() < ids[j].Index() })
	return ids
}

func newEntity(L *lua.LState, id ecs.EntityID) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = id
	L.SetMetatable(ud, L.GetTypeMetatable(entityTypeName))
	return ud
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	ud := L.CheckUserData(n)
	id, ok := ud.Value.(ecs.EntityID)
	if !ok {
		L.ArgError(n, "entity expected")
	}
	return id
}
