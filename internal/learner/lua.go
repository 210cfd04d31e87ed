package learner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lewisedginton/rota/pkg/logger"
)

const luaEntryPoint = "next_question"

// LuaSupplier asks a sandboxed Lua script for questions. The script defines
// next_question(n), where n counts calls from 1, and returns a string. An empty
// string or nil ends the sequence.
type LuaSupplier struct {
	mu      sync.Mutex
	state   *lua.LState
	fn      lua.LValue
	calls   int
	timeout time.Duration
	log     logger.Logger
}

var _ QuestionSource = (*LuaSupplier)(nil)

// NewLuaSupplier loads script and checks it defines next_question.
func NewLuaSupplier(ctx context.Context, script string, timeout time.Duration, log logger.Logger) (*LuaSupplier, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSandbox(L, log)

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	L.SetContext(loadCtx)
	err := L.DoString(script)
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load lua script: %w", err)
	}

	fn := L.GetGlobal(luaEntryPoint)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("lua script must define function %s", luaEntryPoint)
	}

	return &LuaSupplier{state: L, fn: fn, timeout: timeout, log: log}, nil
}

func (s *LuaSupplier) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return "", ErrSourceExhausted
	}

	s.calls++
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.state.SetContext(callCtx)
	defer s.state.RemoveContext()

	err := s.state.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}, lua.LNumber(s.calls))
	if err != nil {
		return "", fmt.Errorf("%s(%d) failed: %w", luaEntryPoint, s.calls, err)
	}
	ret := s.state.Get(-1)
	s.state.Pop(1)

	if ret == lua.LNil {
		return "", ErrSourceExhausted
	}
	str, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%s(%d) returned %s, want string", luaEntryPoint, s.calls, ret.Type())
	}
	q := strings.TrimSpace(string(str))
	if q == "" {
		return "", ErrSourceExhausted
	}
	return q, nil
}

// Close releases the Lua state.
func (s *LuaSupplier) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}

// openSandbox opens base, string, table and math, without file or code loading.
func openSandbox(L *lua.LState, log logger.Logger) {
	lua.OpenBase(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	lua.OpenString(L)
	lua.OpenTable(L)
	lua.OpenMath(L)

	L.SetGlobal("print", L.NewFunction(func(l *lua.LState) int {
		parts := make([]string, 0, l.GetTop())
		for i := 1; i <= l.GetTop(); i++ {
			parts = append(parts, l.ToStringMeta(l.Get(i)).String())
		}
		log.Debug("lua", logger.StringField("output", strings.Join(parts, "\t")))
		return 0
	}))
}
