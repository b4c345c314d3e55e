package battle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
)

// Award is one side's settlement.
type Award struct {
	UserID     string
	CreatureID int64
	Name       string
	CPU        bool
	Experience int
	// TotalExperience is the creature's experience after the award.
	TotalExperience int
	OldLevel        int
	NewLevel        int
	// Evolve is set when the new level crossed a multiple of ten.
	Evolve bool
}

// Outcome is the result of a finished battle.
type Outcome struct {
	SessionID string
	// Draw is set when both sides fainted; Winner and Loser are then the
	// challenger and the opponent.
	Draw    bool
	Winner  Award
	Loser   Award
	Turns   int
	EndedAt time.Time
}

// award computes the experience for one side.
func award(p *Player, exp int) Award {
	old := p.Stats.Level
	total := p.Stats.Experience + exp
	next := creature.LevelFromExperience(total)
	a := Award{
		UserID:          p.UserID,
		Name:            p.Name,
		CPU:             p.CPU,
		Experience:      exp,
		TotalExperience: total,
		OldLevel:        old,
		NewLevel:        next,
		Evolve:          next/10 > old/10,
	}
	if p.Profile != nil && p.Profile.Creature != nil {
		a.CreatureID = p.Profile.Creature.ID
	}
	return a
}

// settle awards experience and persists progress for human players.
//
// Precondition: s.mu is held and s is in StateEnded.
func (e *Engine) settle(ctx context.Context, s *Session) (*Outcome, []string) {
	winner, loser := s.Players[0], s.Players[1]
	draw := winner.Fainted() && loser.Fainted()
	if !draw && winner.Fainted() {
		winner, loser = loser, winner
	}

	full := loser.Stats.Level * e.cfg.ExpMultiple
	out := &Outcome{SessionID: s.ID, Draw: draw, Turns: s.Turn, EndedAt: e.now()}
	var lines []string
	if draw {
		out.Winner = award(winner, loser.Stats.Level*e.cfg.ExpMultiple/2)
		out.Loser = award(loser, winner.Stats.Level*e.cfg.ExpMultiple/2)
		lines = append(lines, fmt.Sprintf("Both %s and %s fainted! It's a draw.", winner.Name, loser.Name))
	} else {
		out.Winner = award(winner, full)
		out.Loser = award(loser, full/2)
		lines = append(lines, fmt.Sprintf("%s fainted! %s wins!", loser.Name, winner.Name))
	}

	for _, a := range []*Award{&out.Winner, &out.Loser} {
		if a.CPU {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s gained %d experience.", a.Name, a.Experience))
		if a.NewLevel > a.OldLevel {
			lines = append(lines, fmt.Sprintf("%s grew to level %d!", a.Name, a.NewLevel))
		}
		if a.Evolve {
			lines = append(lines, fmt.Sprintf("%s is ready to evolve!", a.Name))
		}
		if err := e.repo.UpdateProgress(ctx, a.CreatureID, a.NewLevel, a.TotalExperience); err != nil {
			e.logger.Error("persisting battle progress",
				zap.String("session", s.ID),
				zap.Int64("creature", a.CreatureID),
				zap.Error(err),
			)
		}
	}

	if e.history != nil {
		if err := e.history.Record(ctx, out); err != nil {
			e.logger.Warn("recording battle history", zap.String("session", s.ID), zap.Error(err))
		}
	}
	e.logger.Info("battle settled",
		zap.String("session", s.ID),
		zap.Bool("draw", draw),
		zap.String("winner", out.Winner.Name),
		zap.Int("turns", s.Turn),
	)
	return out, lines
}
