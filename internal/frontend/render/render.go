package render

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// Session formats a session view: each combatant's HP bar, status and
// moveset, followed by the latest narration.
func Session(s *structpb.Struct) string {
	m := s.AsMap()
	var b strings.Builder

	b.WriteString(Colorf(BrightYellow, "Battle %s  [%s, turn %d]", str(m, "id"), str(m, "state"), num(m, "turn")))
	b.WriteString("\n")

	for _, raw := range list(m, "players") {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := str(p, "name")
		if p["cpu"] == true {
			name += " (wild)"
		}
		hp, maxHP := num(p, "hp"), num(p, "max_hp")
		b.WriteString(fmt.Sprintf("  %s Lv%d  %s %d/%d",
			Colorize(Bold, name), num(p, "level"), hpBar(hp, maxHP, 20), hp, maxHP))
		if st := str(p, "status"); st != "" {
			b.WriteString(" " + Colorize(Magenta, st))
		}
		if p["selected"] == true {
			b.WriteString(" " + Colorize(Dim, "(ready)"))
		}
		b.WriteString("\n")

		for i, mr := range list(p, "moves") {
			mv, ok := mr.(map[string]any)
			if !ok {
				continue
			}
			b.WriteString(fmt.Sprintf("    %s%d.%s %-16s %s\n",
				BrightCyan, i+1, Reset, str(mv, "name"),
				Colorf(Dim, "%d/%d PP", num(mv, "pp"), num(mv, "max_pp"))))
		}
	}

	if text := str(m, "text"); text != "" {
		b.WriteString(Colorize(White, text))
		b.WriteString("\n")
	}
	return b.String()
}

// Turn formats the result of a submitted move, including the settlement
// when the battle ended.
func Turn(s *structpb.Struct) string {
	m := s.AsMap()
	if m["resolved"] != true {
		return Colorize(Dim, "Waiting for your opponent...") + "\n"
	}

	var b strings.Builder
	b.WriteString(Colorf(BrightYellow, "Turn %d", num(m, "turn")))
	b.WriteString("\n")
	b.WriteString(str(m, "text"))
	b.WriteString("\n")

	out, ok := m["outcome"].(map[string]any)
	if !ok {
		return b.String()
	}
	if out["draw"] == true {
		b.WriteString(Colorize(Yellow, "The battle ended in a draw."))
	} else {
		winner, _ := out["winner"].(map[string]any)
		b.WriteString(Colorf(BrightGreen, "%s won the battle!", str(winner, "name")))
	}
	b.WriteString("\n")
	for _, side := range []string{"winner", "loser"} {
		a, ok := out[side].(map[string]any)
		if !ok || a["cpu"] == true {
			continue
		}
		b.WriteString(award(a))
	}
	return b.String()
}

func award(a map[string]any) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s gained %d experience.\n", str(a, "name"), num(a, "experience")))
	if old, next := num(a, "old_level"), num(a, "new_level"); next > old {
		b.WriteString(Colorf(BrightGreen, "  %s grew to level %d!", str(a, "name"), next))
		b.WriteString("\n")
	}
	if a["evolve"] == true {
		b.WriteString(Colorf(BrightCyan, "  %s is ready to evolve!", str(a, "name")))
		b.WriteString("\n")
	}
	return b.String()
}

// History formats a battle history listing, newest first.
func History(s *structpb.Struct) string {
	entries := list(s.AsMap(), "battles")
	if len(entries) == 0 {
		return Colorize(Dim, "No battles yet.") + "\n"
	}
	var b strings.Builder
	for _, raw := range entries {
		e, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		result := Colorize(BrightRed, "lost")
		switch {
		case e["draw"] == true:
			result = Colorize(Yellow, "draw")
		case e["won"] == true:
			result = Colorize(BrightGreen, "won ")
		}
		b.WriteString(fmt.Sprintf("  %s  %s vs %-16s +%d exp  %d turns\n",
			Colorize(Dim, str(e, "ended_at")), result, str(e, "opponent"),
			num(e, "experience"), num(e, "turns")))
	}
	return b.String()
}

func hpBar(hp, maxHP, width int) string {
	if maxHP <= 0 {
		return strings.Repeat(" ", width)
	}
	filled := min(max(hp*width/maxHP, 0), width)
	if hp > 0 && filled == 0 {
		filled = 1
	}
	color := Green
	switch {
	case hp*4 <= maxHP:
		color = Red
	case hp*2 <= maxHP:
		color = Yellow
	}
	return "[" + Colorize(color, strings.Repeat("#", filled)) + strings.Repeat(".", width-filled) + "]"
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// num reads a number; structpb carries every number as float64.
func num(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}

func list(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}
