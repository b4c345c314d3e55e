package gameserver

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/storage/sqlite"
)

func viewMap(v battle.View) map[string]any {
	players := make([]any, 0, len(v.Players))
	for _, p := range v.Players {
		moves := make([]any, 0, len(p.Moves))
		for _, m := range p.Moves {
			moves = append(moves, map[string]any{"name": m.Name, "pp": m.PP, "max_pp": m.MaxPP})
		}
		players = append(players, map[string]any{
			"user_id":  p.UserID,
			"name":     p.Name,
			"level":    p.Level,
			"hp":       p.HP,
			"max_hp":   p.MaxHP,
			"status":   p.Status,
			"cpu":      p.CPU,
			"selected": p.Selected,
			"moves":    moves,
		})
	}
	return map[string]any{
		"id":      v.ID,
		"state":   v.State,
		"turn":    v.Turn,
		"text":    v.Text,
		"players": players,
	}
}

func viewStruct(v battle.View) (*structpb.Struct, error) {
	return structpb.NewStruct(viewMap(v))
}

func awardMap(a battle.Award) map[string]any {
	return map[string]any{
		"user_id":          a.UserID,
		"name":             a.Name,
		"cpu":              a.CPU,
		"experience":       a.Experience,
		"total_experience": a.TotalExperience,
		"old_level":        a.OldLevel,
		"new_level":        a.NewLevel,
		"evolve":           a.Evolve,
	}
}

func turnStruct(r *battle.TurnResult) (*structpb.Struct, error) {
	m := map[string]any{
		"resolved": r.Resolved,
		"turn":     r.Turn,
		"text":     r.Text,
		"ended":    r.Ended,
	}
	if o := r.Outcome; o != nil {
		m["outcome"] = map[string]any{
			"draw":   o.Draw,
			"turns":  o.Turns,
			"winner": awardMap(o.Winner),
			"loser":  awardMap(o.Loser),
		}
	}
	return structpb.NewStruct(m)
}

func historyStruct(entries []sqlite.Entry) (*structpb.Struct, error) {
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]any{
			"session_id": e.SessionID,
			"opponent":   e.Opponent,
			"won":        e.Won,
			"draw":       e.Draw,
			"experience": e.Experience,
			"new_level":  e.NewLevel,
			"turns":      e.Turns,
			"ended_at":   e.EndedAt.Format(time.RFC3339),
		})
	}
	return structpb.NewStruct(map[string]any{"battles": list})
}
