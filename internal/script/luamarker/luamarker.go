// Package luamarker forwards footstep markers to a Lua handler installed
// at system.costumeMarkerHandler. The handler is either a function called
// as handler(actorID, step) or a table whose costumeMarkerHandler field is
// that function.
package luamarker

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
)

const (
	systemTable = "system"
	handlerName = "costumeMarkerHandler"
)

type Sink struct {
	mu  sync.Mutex
	L   *lua.LState
	log *zap.Logger

	errors int
}

// New creates a Lua state with the standard libraries and an empty system
// table.
func New(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	L := lua.NewState()
	L.SetGlobal(systemTable, L.NewTable())
	L.SetGlobal("footstep", footstepTable(L))
	return &Sink{L: L, log: log}
}

func footstepTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	for _, f := range []actor.Footstep{actor.LeftWalk, actor.RightWalk, actor.LeftRun, actor.RightRun, actor.LeftTurn, actor.RightTurn} {
		t.RawSetString(f.String(), lua.LNumber(f))
	}
	return t
}

func (s *Sink) DoString(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.L.DoString(src)
}

func (s *Sink) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.L.DoFile(path); err != nil {
		return fmt.Errorf("lua %s: %w", path, err)
	}
	return nil
}

// Footstep calls the installed handler. Missing handlers are ignored and
// handler errors are logged, never propagated to the actor.
func (s *Sink) Footstep(actorID int32, step actor.Footstep) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn := s.handler()
	if fn == nil {
		return
	}
	top := s.L.GetTop()
	defer s.L.SetTop(top)
	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(actorID), lua.LNumber(step)); err != nil {
		s.errors++
		s.log.Warn("costume marker handler", zap.Int32("actor", actorID), zap.Stringer("step", step), zap.Error(err))
	}
}

func (s *Sink) handler() *lua.LFunction {
	sys, ok := s.L.GetGlobal(systemTable).(*lua.LTable)
	if !ok {
		return nil
	}
	switch v := sys.RawGetString(handlerName).(type) {
	case *lua.LFunction:
		return v
	case *lua.LTable:
		fn, _ := v.RawGetString(handlerName).(*lua.LFunction)
		return fn
	}
	return nil
}

// Errors reports how many handler calls failed.
func (s *Sink) Errors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}
