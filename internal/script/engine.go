// Package script binds Lua classes to entities as script hooks.
//
// A script file registers classes with register(name, class). A class is a
// table of functions keyed by operation name; each is called as
// class[op](self, op) and returns handled and an optional list of operation
// tables. self carries the entity snapshot plus a set(name, value) method that
// writes ScriptWritable properties.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/operation"
)

var (
	ErrBadResult = errors.New("script returned an invalid result")
	ErrLoad      = errors.New("script load failed")
)

const classesKey = "simkernel.classes"

// Engine owns one Lua state. It is not safe for concurrent use and belongs to
// the simulation goroutine.
type Engine struct {
	state   *lua.State
	log     log.Log
	classes map[string]struct{}
}

func NewEngine(logger log.Log) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	e := &Engine{
		state:   lua.NewState(),
		log:     logger.With(log.String("component", "script")),
		classes: make(map[string]struct{}),
	}
	lua.OpenLibraries(e.state)

	e.state.NewTable()
	e.state.SetField(lua.RegistryIndex, classesKey)
	e.state.Register("register", e.register)
	e.state.Register("log", e.logFromScript)
	return e
}

// LoadString runs a chunk of Lua source.
func (e *Engine) LoadString(name, src string) error {
	if err := lua.LoadBuffer(e.state, src, name, ""); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoad, name, err)
	}
	if err := e.state.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoad, name, err)
	}
	return nil
}

// LoadFile runs one Lua file.
func (e *Engine) LoadFile(path string) error {
	if err := lua.LoadFile(e.state, path, ""); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	if err := e.state.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	e.log.Info("script loaded", log.String("path", path))
	return nil
}

// LoadDir runs every *.lua file of dir in name order. A missing dir is not an
// error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if !ent.IsDir() && strings.HasSuffix(ent.Name(), ".lua") {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if err := e.LoadFile(filepath.Join(dir, n)); err != nil {
			return err
		}
	}
	return nil
}

// Classes lists the registered class names.
func (e *Engine) Classes() []string {
	out := make([]string, 0, len(e.classes))
	for name := range e.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HookFor returns a hook for the most specific script class named on the
// entity's type ancestry, or nil when none is registered.
func (e *Engine) HookFor(ent *entity.Entity) entity.Script {
	if ent == nil || ent.Type() == nil {
		return nil
	}
	for _, node := range ent.Type().Ancestors() {
		class := node.Script()
		if class == "" {
			continue
		}
		if _, ok := e.classes[class]; ok {
			return &hook{engine: e, class: class, ent: ent}
		}
	}
	return nil
}

func (e *Engine) register(l *lua.State) int {
	name := lua.CheckString(l, 1)
	lua.CheckType(l, 2, lua.TypeTable)
	l.Field(lua.RegistryIndex, classesKey)
	l.PushValue(2)
	l.SetField(-2, name)
	l.Pop(1)
	e.classes[name] = struct{}{}
	return 0
}

func (e *Engine) logFromScript(l *lua.State) int {
	msg := lua.CheckString(l, 1)
	e.log.Debug(msg)
	return 0
}

type hook struct {
	engine *Engine
	class  string
	ent    *entity.Entity
}

// TryHandle offers op to the class function named name.
func (h *hook) TryHandle(name string, op *operation.Operation) (operation.Vector, bool, error) {
	l := h.engine.state
	top := l.Top()
	defer l.SetTop(top)

	l.Field(lua.RegistryIndex, classesKey)
	l.Field(-1, h.class)
	if l.TypeOf(-1) != lua.TypeTable {
		return nil, false, nil
	}
	l.Field(-1, name)
	if !l.IsFunction(-1) {
		return nil, false, nil
	}

	h.pushSelf(l)
	pushOperation(l, op)
	if err := l.ProtectedCall(2, 2, 0); err != nil {
		return nil, false, fmt.Errorf("%s.%s: %w", h.class, name, err)
	}

	if !l.ToBoolean(-2) {
		return nil, false, nil
	}
	var res operation.Vector
	switch l.TypeOf(-1) {
	case lua.TypeNil:
		return res, true, nil
	case lua.TypeTable:
	default:
		return nil, false, fmt.Errorf("%w: %s.%s: second result must be a list", ErrBadResult, h.class, name)
	}

	var list []any
	switch v := tableToGo(l, -1).(type) {
	case []any:
		list = v
	case map[string]any:
		// An empty table reads as a map.
		if len(v) != 0 {
			return nil, false, fmt.Errorf("%w: %s.%s: second result must be a list", ErrBadResult, h.class, name)
		}
	}
	for _, item := range list {
		raw, ok := item.(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s.%s: operation %v", ErrBadResult, h.class, name, item)
		}
		out, err := opFromTable(raw, h.ent.ID(), op.Serial())
		if err != nil {
			return nil, false, err
		}
		res.Add(out)
	}
	return res, true, nil
}

func (h *hook) pushSelf(l *lua.State) {
	pushMap(l, h.ent.Snapshot(0))
	ent := h.ent
	l.PushGoFunction(func(l *lua.State) int {
		key := lua.CheckString(l, 2)
		if err := ent.Props().SetFromScript(key, toGo(l, 3)); err != nil {
			lua.Errorf(l, "%s", err.Error())
		}
		ent.MarkDirty()
		return 0
	})
	l.SetField(-2, "set")
}
