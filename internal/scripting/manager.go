package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/dice"
)

// ErrNoEffect is returned by CallEffect when no loaded module defines an
// effect for the requested move.
var ErrNoEffect = errors.New("scripting: move has no effect function")

// Requirement mirrors the requires table a module fills in. MaxLevel 0 means
// unbounded.
type Requirement struct {
	MinLevel    int
	MaxLevel    int
	Role        string
	Type        string
	Description string
	AlwaysFails bool
	Or          []*Requirement
}

// Move targets. A TargetUser move acts on its user only and cannot miss.
const (
	TargetOpponent = "target"
	TargetUser     = "user"
)

// Registration is the move data a module's register(move) function produced.
type Registration struct {
	Name         string
	Description  string
	Icon         string
	Role         string
	Power        float64
	Priority     int
	CriticalRate float64
	HitRate      float64
	Times        int
	PP           int
	// Target is TargetUser or TargetOpponent.
	Target   string
	Requires *Requirement
	// Source is the file the module was loaded from.
	Source string
}

// module is one loaded move script. Its LState is single-threaded, so every
// call holds mu.
type module struct {
	mu     sync.Mutex
	L      *lua.LState
	effect *lua.LFunction
}

// Manager owns one sandboxed LState per move module and dispatches effect
// calls to them.
//
// Manager is safe for concurrent CallEffect. LoadDirectory replaces the whole
// module set atomically.
type Manager struct {
	mu        sync.RWMutex
	modules   map[string]*module
	roller    *dice.Roller
	logger    *zap.Logger
	instLimit int

	// Damage backs args:calculate_damage and args:deal_damage. nil makes both
	// raise a Lua error.
	Damage DamageFunc
}

// NewManager creates a Manager with an empty module set.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	return &Manager{
		modules:   make(map[string]*module),
		roller:    roller,
		logger:    logger,
		instLimit: instLimit,
	}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// LoadDirectory loads every *.lua file in dir in lexicographic order and
// replaces the current module set with the result. A module that fails to
// load is logged at Warn and skipped.
//
// Postcondition: returns the registrations of the modules that loaded, in
// file order; returns an error only if dir cannot be read.
func (m *Manager) LoadDirectory(dir string) ([]Registration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading move dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	loaded := make(map[string]*module, len(files))
	regs := make([]Registration, 0, len(files))
	for _, path := range files {
		reg, mod, err := m.loadModule(path)
		if err != nil {
			m.logger.Warn("scripting: skipping move module",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		k := key(reg.Name)
		if prev, dup := loaded[k]; dup {
			m.logger.Warn("scripting: duplicate move name, later module wins",
				zap.String("move", reg.Name),
				zap.String("path", path),
			)
			prev.L.Close()
			regs = removeRegistration(regs, k)
		}
		loaded[k] = mod
		regs = append(regs, reg)
	}

	m.mu.Lock()
	old := m.modules
	m.modules = loaded
	m.mu.Unlock()

	for _, mod := range old {
		mod.mu.Lock()
		mod.L.Close()
		mod.mu.Unlock()
	}

	m.logger.Info("scripting: move modules loaded",
		zap.String("dir", dir),
		zap.Int("loaded", len(regs)),
		zap.Int("files", len(files)),
	)
	return regs, nil
}

func removeRegistration(regs []Registration, k string) []Registration {
	out := regs[:0]
	for _, r := range regs {
		if key(r.Name) != k {
			out = append(out, r)
		}
	}
	return out
}

// loadModule runs path in a fresh sandbox and calls its register function.
func (m *Manager) loadModule(path string) (Registration, *module, error) {
	L := NewSandboxedState(m.instLimit)
	m.RegisterModules(L)

	reg := Registration{Source: path}
	err := withBudget(L, m.instLimit, func() error {
		if err := L.DoFile(path); err != nil {
			return err
		}
		fn, ok := L.GetGlobal("register").(*lua.LFunction)
		if !ok {
			return errors.New("module does not define register(move)")
		}
		tbl := defaultMoveTable(L, path)
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl); err != nil {
			return err
		}
		reg = readRegistration(tbl, path)
		return nil
	})
	if err != nil {
		L.Close()
		return Registration{}, nil, err
	}
	if strings.TrimSpace(reg.Name) == "" {
		L.Close()
		return Registration{}, nil, errors.New("register(move) left move.name empty")
	}

	mod := &module{L: L}
	if fn, ok := L.GetGlobal("effect").(*lua.LFunction); ok {
		mod.effect = fn
	}
	return reg, mod, nil
}

// HasEffect reports whether a loaded module defines effect(args) for move.
func (m *Manager) HasEffect(move string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[key(move)]
	return ok && mod.effect != nil
}

// CallEffect runs the effect function of move against args. Changes the
// script makes to args.user, args.target and args.text are written back.
//
// Postcondition: on error args is left as it was before the call.
func (m *Manager) CallEffect(move string, args *EffectArgs) error {
	m.mu.RLock()
	mod, ok := m.modules[key(move)]
	m.mu.RUnlock()
	if !ok || mod.effect == nil {
		return fmt.Errorf("%w: %q", ErrNoEffect, move)
	}

	mod.mu.Lock()
	defer mod.mu.Unlock()

	L := mod.L
	tbl := m.argsToTable(L, args)
	err := withBudget(L, m.instLimit, func() error {
		return L.CallByParam(lua.P{Fn: mod.effect, NRet: 0, Protect: true}, tbl)
	})
	if err != nil {
		m.logger.Warn("scripting: move effect failed",
			zap.String("move", move),
			zap.Error(err),
		)
		return fmt.Errorf("scripting: effect %q: %w", move, err)
	}
	readArgs(tbl, args)
	return nil
}

// Close releases every loaded LState.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, mod := range m.modules {
		mod.mu.Lock()
		mod.L.Close()
		mod.mu.Unlock()
		delete(m.modules, k)
	}
}

// defaultMoveTable is the table handed to register(move), pre-filled with
// the defaults a module may leave untouched.
func defaultMoveTable(L *lua.LState, path string) *lua.LTable {
	t := L.NewTable()
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t.RawSetString("name", lua.LString(stem))
	t.RawSetString("description", lua.LString(""))
	t.RawSetString("icon", lua.LString(""))
	t.RawSetString("role", lua.LString(""))
	t.RawSetString("power", lua.LNumber(1))
	t.RawSetString("priority", lua.LNumber(0))
	t.RawSetString("critical_rate", lua.LNumber(1))
	t.RawSetString("hit_rate", lua.LNumber(1))
	t.RawSetString("times", lua.LNumber(1))
	t.RawSetString("pp", lua.LNumber(20))
	t.RawSetString("target", lua.LString(TargetOpponent))
	return t
}

func readRegistration(t *lua.LTable, path string) Registration {
	reg := Registration{
		Name:         lString(t, "name"),
		Description:  lString(t, "description"),
		Icon:         lString(t, "icon"),
		Role:         lString(t, "role"),
		Power:        lFloat(t, "power"),
		Priority:     lInt(t, "priority"),
		CriticalRate: lFloat(t, "critical_rate"),
		HitRate:      lFloat(t, "hit_rate"),
		Times:        max(lInt(t, "times"), 1),
		PP:           max(lInt(t, "pp"), 1),
		Target:       TargetOpponent,
		Source:       path,
	}
	if strings.EqualFold(lString(t, "target"), TargetUser) {
		reg.Target = TargetUser
	}
	if req, ok := t.RawGetString("requires").(*lua.LTable); ok {
		reg.Requires = readRequirement(req)
	}
	return reg
}

func readRequirement(t *lua.LTable) *Requirement {
	r := &Requirement{
		MinLevel:    lInt(t, "min_level"),
		MaxLevel:    lInt(t, "max_level"),
		Role:        lString(t, "role"),
		Type:        lString(t, "type"),
		Description: lString(t, "description"),
		AlwaysFails: lua.LVAsBool(t.RawGetString("always_fails")),
	}
	if alts, ok := t.RawGetString("or_requirements").(*lua.LTable); ok {
		alts.ForEach(func(_, v lua.LValue) {
			if at, ok := v.(*lua.LTable); ok {
				r.Or = append(r.Or, readRequirement(at))
			}
		})
	}
	return r
}

func lString(t *lua.LTable, field string) string {
	if s, ok := t.RawGetString(field).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func lFloat(t *lua.LTable, field string) float64 {
	if n, ok := t.RawGetString(field).(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

func lInt(t *lua.LTable, field string) int { return int(lFloat(t, field)) }
