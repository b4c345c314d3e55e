package battle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// TurnOrder returns the two players in acting order: higher move priority
// first, then higher speed, then coin decides (true puts a first).
//
// Precondition: both players have a Selected move.
func TurnOrder(a, b *Player, coin func() bool) (*Player, *Player) {
	switch {
	case a.Selected.Priority != b.Selected.Priority:
		if a.Selected.Priority > b.Selected.Priority {
			return a, b
		}
		return b, a
	case a.Stats.Speed != b.Stats.Speed:
		if a.Stats.Speed > b.Stats.Speed {
			return a, b
		}
		return b, a
	case coin():
		return a, b
	default:
		return b, a
	}
}

// resolveTurn runs both selected moves, the end-of-turn phase and, if a side
// fainted, settlement.
//
// Precondition: s.mu is held; both players have a Selected move.
func (e *Engine) resolveTurn(ctx context.Context, s *Session) (*TurnResult, error) {
	ctx, span := e.startSpan(ctx, s)
	defer span.End()

	if err := s.fire(ctx, eventResolve); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	s.Turn++

	first, second := TurnOrder(s.Players[0], s.Players[1], e.roller.CoinFlip)
	var lines []string
	lines = append(lines, e.useMove(first, second)...)
	if !first.Fainted() && !second.Fainted() {
		lines = append(lines, e.useMove(second, first)...)
	}
	if !first.Fainted() && !second.Fainted() {
		lines = append(lines, e.endOfTurn(s)...)
	}
	for _, p := range s.Players {
		p.Selected = nil
		p.damaged = false
	}

	res := &TurnResult{Resolved: true, Turn: s.Turn}
	if s.Players[0].Fainted() || s.Players[1].Fainted() {
		if err := s.fire(ctx, eventFinish); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
		}
		out, settleLines := e.settle(ctx, s)
		lines = append(lines, settleLines...)
		s.outcome = out
		res.Ended = true
		res.Outcome = out
	} else if err := s.fire(ctx, eventContinue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	s.Text = strings.Join(lines, "\n")
	res.Text = s.Text
	e.logger.Debug("battle turn resolved",
		zap.String("session", s.ID),
		zap.Int("turn", s.Turn),
		zap.Bool("ended", res.Ended),
	)
	return res, nil
}

func displayName(name string) string {
	return cases.Title(language.English).String(name)
}

func view(p *Player) scripting.StatView {
	return scripting.StatView{
		Level:    p.Stats.Level,
		HP:       p.Stats.HP,
		MaxHP:    p.Stats.MaxHP,
		Attack:   p.Stats.Attack,
		Defense:  p.Stats.Defense,
		Speed:    p.Stats.Speed,
		Accuracy: p.Stats.Accuracy,
		Evasion:  p.Stats.Evasion,
		Status:   p.Status,
	}
}

func apply(p *Player, v scripting.StatView) {
	p.Stats.HP = min(max(v.HP, 0), p.Stats.MaxHP)
	p.Stats.Attack = max(v.Attack, 1)
	p.Stats.Defense = max(v.Defense, 1)
	p.Stats.Speed = max(v.Speed, 1)
	p.Stats.Accuracy = math.Max(v.Accuracy, 0)
	p.Stats.Evasion = math.Max(v.Evasion, 0.01)
	p.Status = strings.ToLower(v.Status)
}

// hitChance is the move's hit rate scaled by accuracy over evasion.
func hitChance(m *move.Move, actor, target *Player) float64 {
	evasion := target.Stats.Evasion
	if evasion <= 0 {
		evasion = 1
	}
	return m.HitRate * actor.Stats.Accuracy / evasion
}

// useMove resolves actor's selected move against target, one hit at a time.
func (e *Engine) useMove(actor, target *Player) []string {
	m := actor.Selected
	m.Spend()
	name := displayName(m.Name)
	lines := []string{fmt.Sprintf("%s used %s!", actor.Name, name)}
	multiplier := Matchup(m.Role, target.Profile.Archetypes())

	for hit := 0; hit < max(m.Times, 1); hit++ {
		if target.Fainted() || actor.Fainted() {
			break
		}
		if m.SelfTarget {
			lines = append(lines, e.strike(m, actor, target, multiplier)...)
			continue
		}
		if def, ok := e.statuses.Get(target.Status); ok && def.BlocksHit {
			target.Status = ""
			lines = append(lines, fmt.Sprintf("%s's %s blocked the attack!", target.Name, strings.ToLower(def.Name)))
			continue
		}
		if !e.roller.Chance("hit", hitChance(m, actor, target)) {
			lines = append(lines, "But it missed!")
			continue
		}
		lines = append(lines, e.strike(m, actor, target, multiplier)...)
	}
	return lines
}

// strike applies one landed hit.
func (e *Engine) strike(m *move.Move, actor, target *Player, multiplier float64) []string {
	critical := actor.Profile.Preys(target.Profile.Species.ID)
	if n := criticalDenominator(m.CriticalRate); !critical && n > 0 {
		critical = e.roller.Intn(n) == 0
	}

	args := &scripting.EffectArgs{
		Move:       m.Name,
		User:       view(actor),
		Target:     view(target),
		Power:      m.Power,
		Multiplier: multiplier,
		Critical:   critical,
	}
	before := *args
	if err := e.runEffect(m, args); err != nil {
		return []string{"But something went wrong."}
	}

	guarded := false
	if def, ok := e.statuses.Get(before.Target.Status); ok && def.Guard && args.Target.HP <= 0 && before.Target.HP > 0 {
		args.Target.HP = 1
		guarded = true
	}
	apply(actor, args.User)
	apply(target, args.Target)
	if target.Stats.HP < before.Target.HP {
		target.damaged = true
	}

	var lines []string
	if critical && target.Stats.HP < before.Target.HP {
		lines = append(lines, "A critical hit!")
	}
	switch {
	case multiplier > 1 && target.Stats.HP < before.Target.HP:
		lines = append(lines, "It's super effective!")
	case multiplier < 1 && target.Stats.HP < before.Target.HP:
		lines = append(lines, "It's not very effective...")
	}
	if args.Text != "" {
		lines = append(lines, args.Text)
	} else {
		lines = append(lines, e.narrate(actor, target, before.User, before.Target)...)
	}
	if guarded {
		lines = append(lines, fmt.Sprintf("%s held on while withdrawn!", target.Name))
	}
	return lines
}

// runEffect calls the move's script, or applies plain damage when the move
// has none.
func (e *Engine) runEffect(m *move.Move, args *scripting.EffectArgs) error {
	if e.effects.HasEffect(m.Name) {
		return e.effects.CallEffect(m.Name, args)
	}
	dmg := Damage(args.User, args.Target, args.Power, args.Multiplier, args.Critical)
	args.Target.HP = max(args.Target.HP-dmg, 0)
	return nil
}

// narrate describes the difference between before and after snapshots.
func (e *Engine) narrate(actor, target *Player, userBefore, targetBefore scripting.StatView) []string {
	var lines []string
	if d := targetBefore.HP - target.Stats.HP; d > 0 {
		lines = append(lines, fmt.Sprintf("%s took %d damage.", target.Name, d))
	}
	if d := actor.Stats.HP - userBefore.HP; d > 0 {
		lines = append(lines, fmt.Sprintf("%s recovered %d HP.", actor.Name, d))
	} else if d < 0 {
		lines = append(lines, fmt.Sprintf("%s took %d recoil damage.", actor.Name, -d))
	}
	lines = append(lines, statChanges(actor.Name, userBefore, view(actor))...)
	lines = append(lines, statChanges(target.Name, targetBefore, view(target))...)
	if target.Status != "" && target.Status != targetBefore.Status {
		lines = append(lines, fmt.Sprintf("%s is afflicted with %s!", target.Name, e.statusName(target.Status)))
	}
	if actor.Status != "" && actor.Status != userBefore.Status {
		lines = append(lines, fmt.Sprintf("%s gained %s!", actor.Name, e.statusName(actor.Status)))
	}
	if len(lines) == 0 {
		lines = append(lines, "But nothing happened.")
	}
	return lines
}

func statChanges(name string, before, after scripting.StatView) []string {
	var lines []string
	for _, c := range []struct {
		stat          string
		before, after int
	}{
		{"attack", before.Attack, after.Attack},
		{"defense", before.Defense, after.Defense},
		{"speed", before.Speed, after.Speed},
	} {
		switch {
		case c.after > c.before:
			lines = append(lines, fmt.Sprintf("%s's %s rose by %d.", name, c.stat, c.after-c.before))
		case c.after < c.before:
			lines = append(lines, fmt.Sprintf("%s's %s fell by %d.", name, c.stat, c.before-c.after))
		}
	}
	return lines
}

func (e *Engine) statusName(id string) string {
	if def, ok := e.statuses.Get(id); ok && def.Name != "" {
		return strings.ToLower(def.Name)
	}
	return strings.ReplaceAll(id, "_", " ")
}

// endOfTurn applies each player's status in seating order.
func (e *Engine) endOfTurn(s *Session) []string {
	var lines []string
	for i, p := range s.Players {
		def, ok := e.statuses.Get(p.Status)
		if !ok {
			continue
		}
		other := s.Players[1-i]
		acted := false
		if def.Drain > 0 {
			p.Stats.HP = max(p.Stats.HP-fraction(p.Stats.MaxHP, def.Drain), 0)
			acted = true
		}
		if def.Heal > 0 && p.Stats.HP > 0 {
			p.Stats.HP = min(p.Stats.HP+fraction(p.Stats.MaxHP, def.Heal), p.Stats.MaxHP)
			acted = true
		}
		if def.Reflect > 0 && p.damaged {
			other.Stats.HP = max(other.Stats.HP-fraction(other.Stats.MaxHP, def.Reflect), 0)
			acted = true
		}
		if def.ClearsAtEndOfTurn {
			p.Status = ""
			acted = true
		}
		if acted && def.Narration != "" {
			lines = append(lines, fmt.Sprintf(def.Narration, p.Name))
		}
	}
	return lines
}

// fraction is f of total, at least 1.
func fraction(total int, f float64) int {
	return max(int(float64(total)*f), 1)
}
