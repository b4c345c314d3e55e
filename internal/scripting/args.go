package scripting

import (
	lua "github.com/yuin/gopher-lua"
)

// StatView is the slice of a combatant's state a script may read and change.
type StatView struct {
	Level    int
	HP       int
	MaxHP    int
	Attack   int
	Defense  int
	Speed    int
	Accuracy float64
	Evasion  float64
	Status   string
}

// EffectArgs is the structured argument handed to effect(args).
type EffectArgs struct {
	Move   string
	User   StatView
	Target StatView
	// Power is the move's power multiplier.
	Power float64
	// Multiplier is the matchup multiplier of the move against the target.
	Multiplier float64
	Critical   bool
	// Text overrides the generated narration when non-empty.
	Text string
}

// DamageFunc computes the damage user deals to target with a move of the
// given power.
type DamageFunc func(user, target StatView, power, multiplier float64, critical bool) int

func statToTable(L *lua.LState, v StatView) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("level", lua.LNumber(v.Level))
	t.RawSetString("hp", lua.LNumber(v.HP))
	t.RawSetString("max_hp", lua.LNumber(v.MaxHP))
	t.RawSetString("attack", lua.LNumber(v.Attack))
	t.RawSetString("defense", lua.LNumber(v.Defense))
	t.RawSetString("speed", lua.LNumber(v.Speed))
	t.RawSetString("accuracy", lua.LNumber(v.Accuracy))
	t.RawSetString("evasion", lua.LNumber(v.Evasion))
	t.RawSetString("status", lua.LString(v.Status))
	return t
}

func tableToStat(t *lua.LTable) StatView {
	return StatView{
		Level:    lInt(t, "level"),
		HP:       lInt(t, "hp"),
		MaxHP:    lInt(t, "max_hp"),
		Attack:   lInt(t, "attack"),
		Defense:  lInt(t, "defense"),
		Speed:    lInt(t, "speed"),
		Accuracy: lFloat(t, "accuracy"),
		Evasion:  lFloat(t, "evasion"),
		Status:   lString(t, "status"),
	}
}

func (m *Manager) argsToTable(L *lua.LState, a *EffectArgs) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("move", lua.LString(a.Move))
	t.RawSetString("user", statToTable(L, a.User))
	t.RawSetString("target", statToTable(L, a.Target))
	t.RawSetString("power", lua.LNumber(a.Power))
	t.RawSetString("multiplier", lua.LNumber(a.Multiplier))
	t.RawSetString("critical", lua.LBool(a.Critical))
	t.RawSetString("text", lua.LString(a.Text))

	t.RawSetString("calculate_damage", L.NewFunction(m.luaCalculateDamage))
	t.RawSetString("deal_damage", L.NewFunction(m.luaDealDamage))
	t.RawSetString("heal", L.NewFunction(luaHeal))
	t.RawSetString("inflict", L.NewFunction(luaInflict))
	return t
}

// readArgs copies the script-visible fields of t back into a.
func readArgs(t *lua.LTable, a *EffectArgs) {
	if u, ok := t.RawGetString("user").(*lua.LTable); ok {
		a.User = tableToStat(u)
	}
	if tg, ok := t.RawGetString("target").(*lua.LTable); ok {
		a.Target = tableToStat(tg)
	}
	a.Text = lString(t, "text")
}

func sides(L *lua.LState, self *lua.LTable) (*lua.LTable, *lua.LTable) {
	user, ok := self.RawGetString("user").(*lua.LTable)
	if !ok {
		L.RaiseError("args.user is not a table")
	}
	target, ok := self.RawGetString("target").(*lua.LTable)
	if !ok {
		L.RaiseError("args.target is not a table")
	}
	return user, target
}

func (m *Manager) damage(L *lua.LState) (int, *lua.LTable) {
	self := L.CheckTable(1)
	power := float64(L.OptNumber(2, lua.LNumber(lFloat(self, "power"))))
	if m.Damage == nil {
		L.RaiseError("damage formula not configured")
	}
	user, target := sides(L, self)
	dmg := m.Damage(tableToStat(user), tableToStat(target), power,
		lFloat(self, "multiplier"), lua.LVAsBool(self.RawGetString("critical")))
	return max(dmg, 0), target
}

// args:calculate_damage([power]) returns the damage a hit would deal.
func (m *Manager) luaCalculateDamage(L *lua.LState) int {
	dmg, _ := m.damage(L)
	L.Push(lua.LNumber(dmg))
	return 1
}

// args:deal_damage([power]) subtracts the damage from target.hp and returns it.
func (m *Manager) luaDealDamage(L *lua.LState) int {
	dmg, target := m.damage(L)
	hp := max(lInt(target, "hp")-dmg, 0)
	target.RawSetString("hp", lua.LNumber(hp))
	L.Push(lua.LNumber(dmg))
	return 1
}

// args:heal(fraction) restores fraction of the user's max HP and returns the
// amount actually healed.
func luaHeal(L *lua.LState) int {
	self := L.CheckTable(1)
	fraction := float64(L.CheckNumber(2))
	user, _ := sides(L, self)
	hp, maxHP := lInt(user, "hp"), lInt(user, "max_hp")
	amount := int(float64(maxHP) * fraction)
	if fraction > 0 && amount < 1 {
		amount = 1
	}
	next := min(max(hp+amount, 0), maxHP)
	user.RawSetString("hp", lua.LNumber(next))
	L.Push(lua.LNumber(next - hp))
	return 1
}

// args:inflict(status[, side]) sets a status on the target, or on the user
// when side is "user".
func luaInflict(L *lua.LState) int {
	self := L.CheckTable(1)
	status := L.CheckString(2)
	user, target := sides(L, self)
	if L.OptString(3, "target") == "user" {
		user.RawSetString("status", lua.LString(status))
	} else {
		target.RawSetString("status", lua.LString(status))
	}
	return 0
}
