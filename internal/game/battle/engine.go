// Package battle runs turn-based gotchi battles: session creation, move
// selection, turn resolution and settlement.
package battle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/condition"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/dice"
	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/game/stats"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// Config holds the tunable battle parameters.
type Config struct {
	// ExpMultiple times the loser's level is the winner's award.
	ExpMultiple int
	// LevelSpread bounds how far a CPU opponent's level may stray from the
	// challenger's.
	LevelSpread int
}

// DefaultConfig returns the standard battle parameters.
func DefaultConfig() Config {
	return Config{ExpMultiple: 10, LevelSpread: 3}
}

// Movesets supplies movesets and individual moves.
type Movesets interface {
	GetMoveset(p *creature.Profile) []*move.Move
	GetMove(name string) (*move.Move, error)
}

// Effects runs scripted move effects.
type Effects interface {
	HasEffect(move string) bool
	CallEffect(move string, args *scripting.EffectArgs) error
}

// HistoryRecorder persists settled battles.
type HistoryRecorder interface {
	Record(ctx context.Context, o *Outcome) error
}

// Participant is a human entering a battle with one of their creatures.
type Participant struct {
	UserID   string
	Creature *creature.Creature
}

// Engine creates sessions and advances them. It holds no session state of its
// own; an Engine is safe for concurrent use.
type Engine struct {
	repo     creature.Repository
	moves    Movesets
	calc     *stats.Calculator
	effects  Effects
	statuses *condition.Registry
	roller   *dice.Roller
	history  HistoryRecorder
	logger   *zap.Logger
	tracer   trace.Tracer
	cfg      Config
	now      func() time.Time
}

// NewEngine creates an Engine. roller must be backed by an unseeded source;
// history may be nil.
//
// Precondition: every other argument must be non-nil.
func NewEngine(
	repo creature.Repository,
	moves Movesets,
	calc *stats.Calculator,
	effects Effects,
	statuses *condition.Registry,
	roller *dice.Roller,
	history HistoryRecorder,
	logger *zap.Logger,
	cfg Config,
) *Engine {
	if cfg.ExpMultiple <= 0 {
		cfg.ExpMultiple = DefaultConfig().ExpMultiple
	}
	if cfg.LevelSpread < 0 {
		cfg.LevelSpread = 0
	}
	return &Engine{
		repo:     repo,
		moves:    moves,
		calc:     calc,
		effects:  effects,
		statuses: statuses,
		roller:   roller,
		history:  history,
		logger:   logger,
		tracer:   otel.Tracer("github.com/cory-johannsen/gotchi/internal/game/battle"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateSession builds a session for challenger against opponent, or against
// a generated CPU creature when opponent is nil. PvP sessions start awaiting
// acceptance; CPU sessions start awaiting moves.
func (e *Engine) CreateSession(ctx context.Context, challenger Participant, opponent *Participant) (*Session, error) {
	if opponent != nil && opponent.UserID == challenger.UserID {
		return nil, userErrorf("you cannot challenge yourself")
	}
	first, err := e.buildPlayer(ctx, challenger.UserID, challenger.Creature, false)
	if err != nil {
		return nil, err
	}

	var second *Player
	if opponent == nil {
		c, err := e.GenerateOpponent(ctx, first.Profile)
		if err != nil {
			return nil, err
		}
		second, err = e.buildPlayer(ctx, "", c, true)
		if err != nil {
			return nil, err
		}
	} else {
		second, err = e.buildPlayer(ctx, opponent.UserID, opponent.Creature, false)
		if err != nil {
			return nil, err
		}
	}

	s := newSession(first, second)
	e.logger.Info("battle session created",
		zap.String("session", s.ID),
		zap.String("challenger", challenger.UserID),
		zap.String("opponent", second.Name),
		zap.Bool("cpu", second.CPU),
	)
	return s, nil
}

func (e *Engine) buildPlayer(ctx context.Context, userID string, c *creature.Creature, cpu bool) (*Player, error) {
	p, err := creature.LoadProfile(ctx, e.repo, c)
	if err != nil {
		return nil, fmt.Errorf("building player: %w", err)
	}
	name := c.Name
	if name == "" {
		name = p.Species.Name
	}
	return &Player{
		UserID:  userID,
		Name:    name,
		Profile: p,
		Stats:   e.calc.ComputeLeveledStats(p),
		Moves:   e.moves.GetMoveset(p),
		CPU:     cpu,
	}, nil
}

// GenerateOpponent picks a species sharing a zone with challenger and levels
// it within the configured spread of the challenger's level.
//
// Postcondition: the returned creature has IsCPU() == true.
func (e *Engine) GenerateOpponent(ctx context.Context, challenger *creature.Profile) (*creature.Creature, error) {
	candidates, err := e.repo.ListSpeciesInZones(ctx, challenger.ZoneIDs())
	if err != nil {
		return nil, fmt.Errorf("listing opponent species: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoOpponentSpecies
	}
	sp := candidates[e.roller.Intn(len(candidates))]
	spread := e.cfg.LevelSpread
	level := challenger.Level() + e.roller.Intn(2*spread+1) - spread
	level = min(max(level, 1), creature.MaxLevel)
	return &creature.Creature{
		SpeciesID:  sp.ID,
		Name:       "Wild " + sp.Name,
		BornAt:     e.now(),
		Experience: creature.ExperienceForLevel(level),
	}, nil
}

// Accept moves a challenge into play. Only the challenged player may accept.
func (e *Engine) Accept(ctx context.Context, s *Session, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Is(StateAwaitingAcceptance) {
		return userErrorf("there is no pending challenge to accept")
	}
	if s.Players[1] == nil || s.Players[1].UserID != userID {
		return userErrorf("only the challenged player can accept")
	}
	if err := s.fire(ctx, eventAccept); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	s.Accepted = true
	s.Text = fmt.Sprintf("%s accepted the challenge! Choose your moves.", s.Players[1].Name)
	return nil
}

// Abort ends s without settlement, for declined, expired or corrupt
// sessions. Aborting an ended session is a no-op.
func (e *Engine) Abort(ctx context.Context, s *Session, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Ended() {
		return
	}
	_ = s.fire(ctx, eventAbort)
	s.Text = reason
	e.logger.Info("battle session aborted", zap.String("session", s.ID), zap.String("reason", reason))
}

// AbortPending aborts s only while it still awaits acceptance and reports
// whether it did. Challenge expiry uses it so a challenge accepted at the
// last moment is left alone.
func (e *Engine) AbortPending(ctx context.Context, s *Session, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Is(StateAwaitingAcceptance) {
		return false
	}
	_ = s.fire(ctx, eventAbort)
	s.Text = reason
	e.logger.Info("battle challenge withdrawn", zap.String("session", s.ID), zap.String("reason", reason))
	return true
}

// TurnResult reports what a SubmitMove did.
type TurnResult struct {
	// Resolved is false while waiting for the other side's move.
	Resolved bool
	Turn     int
	Text     string
	Ended    bool
	Outcome  *Outcome
}

// SubmitMove locks in userID's move for the current turn. ident is a move
// name (case-insensitive) or a 1-based moveset index. When both sides have
// a move the turn resolves.
//
// Postcondition: a *UserError leaves s unchanged; an ErrCorruptSession
// means s must be torn down.
func (e *Engine) SubmitMove(ctx context.Context, s *Session, userID, ident string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateEnded:
		return nil, userErrorf("this battle is already over")
	case StateAwaitingAcceptance:
		return nil, userErrorf("the challenge has not been accepted yet")
	case StateResolvingTurn:
		return nil, fmt.Errorf("%w: submit during resolution", ErrCorruptSession)
	}

	me, other := s.player(userID)
	if me == nil {
		return nil, userErrorf("you are not part of this battle")
	}
	if other == nil {
		return nil, fmt.Errorf("%w: missing opponent", ErrCorruptSession)
	}
	if me.Selected != nil {
		return nil, userErrorf("you already chose %s this turn", me.Selected.Name)
	}
	m, err := e.pickMove(me, ident)
	if err != nil {
		return nil, err
	}
	me.Selected = m

	if other.CPU && other.Selected == nil {
		if other.Selected = e.cpuMove(other); other.Selected == nil {
			return nil, fmt.Errorf("%w: cpu has no move", ErrCorruptSession)
		}
	}
	if other.Selected == nil {
		return &TurnResult{Turn: s.Turn + 1, Text: fmt.Sprintf("%s is ready. Waiting for %s.", me.Name, other.Name)}, nil
	}
	return e.resolveTurn(ctx, s)
}

// pickMove resolves ident against p's moveset.
func (e *Engine) pickMove(p *Player, ident string) (*move.Move, error) {
	ident = strings.TrimSpace(ident)
	var m *move.Move
	if n, err := strconv.Atoi(ident); err == nil {
		if n < 1 || n > len(p.Moves) {
			return nil, userErrorf("pick a move between 1 and %d", len(p.Moves))
		}
		m = p.Moves[n-1]
	} else {
		for _, c := range p.Moves {
			if strings.EqualFold(c.Name, ident) {
				m = c
				break
			}
		}
	}
	if m == nil {
		return nil, userErrorf("%s doesn't know %q", p.Name, ident)
	}
	if m.Available() {
		return m, nil
	}
	if hasAvailable(p.Moves) {
		return nil, userErrorf("%s has no PP left", m.Name)
	}
	return e.struggle()
}

// struggle is the fallback when every move in the set is exhausted.
func (e *Engine) struggle() (*move.Move, error) {
	m, err := e.moves.GetMove(move.UniversalMove)
	if err != nil {
		return nil, fmt.Errorf("%w: universal move missing: %v", ErrCorruptSession, err)
	}
	return m, nil
}

func hasAvailable(ms []*move.Move) bool {
	for _, m := range ms {
		if m.Available() {
			return true
		}
	}
	return false
}

// cpuMove picks a random usable move for a CPU player.
func (e *Engine) cpuMove(p *Player) *move.Move {
	var usable []*move.Move
	for _, m := range p.Moves {
		if m.Available() {
			usable = append(usable, m)
		}
	}
	if len(usable) == 0 {
		m, err := e.struggle()
		if err != nil {
			return nil
		}
		return m
	}
	return usable[e.roller.Intn(len(usable))]
}

// IsCorrupt reports whether err requires the session to be torn down.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorruptSession) }

func (e *Engine) startSpan(ctx context.Context, s *Session) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "battle.resolve_turn", trace.WithAttributes(
		attribute.String("battle.session", s.ID),
		attribute.Int("battle.turn", s.Turn+1),
	))
}
