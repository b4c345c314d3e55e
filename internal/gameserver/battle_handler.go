package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/session"
)

// ErrSessionNotFound is returned when a user is not registered in any battle.
var ErrSessionNotFound = errors.New("gameserver: no battle for user")

// Battles is the battle engine surface the handler drives.
type Battles interface {
	CreateSession(ctx context.Context, challenger battle.Participant, opponent *battle.Participant) (*battle.Session, error)
	Accept(ctx context.Context, s *battle.Session, userID string) error
	Abort(ctx context.Context, s *battle.Session, reason string)
	AbortPending(ctx context.Context, s *battle.Session, reason string) bool
	SubmitMove(ctx context.Context, s *battle.Session, userID, ident string) (*battle.TurnResult, error)
}

// BattleHandler registers battles in a session store under their human
// participants and drives them through the engine. It owns challenge timers.
//
// Precondition: All fields must be non-nil after construction.
type BattleHandler struct {
	engine           Battles
	repo             creature.Repository
	store            session.Store[*battle.Session]
	challengeTimeout time.Duration
	logger           *zap.Logger
	tracer           trace.Tracer

	timersMu sync.Mutex
	timers   map[string]*battle.ChallengeTimer
}

// NewBattleHandler creates a BattleHandler.
//
// Precondition: challengeTimeout > 0; every other argument must be non-nil.
// Postcondition: Returns a non-nil BattleHandler with no pending timers.
func NewBattleHandler(
	engine Battles,
	repo creature.Repository,
	store session.Store[*battle.Session],
	challengeTimeout time.Duration,
	logger *zap.Logger,
) *BattleHandler {
	return &BattleHandler{
		engine:           engine,
		repo:             repo,
		store:            store,
		challengeTimeout: challengeTimeout,
		logger:           logger,
		tracer:           otel.Tracer("github.com/cory-johannsen/gotchi/internal/gameserver"),
		timers:           make(map[string]*battle.ChallengeTimer),
	}
}

func (h *BattleHandler) span(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return h.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("gotchi.user", userID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !battle.IsUserError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *BattleHandler) participant(ctx context.Context, userID string) (battle.Participant, error) {
	c, err := h.repo.GetCreatureByOwner(ctx, userID)
	if err != nil {
		return battle.Participant{}, fmt.Errorf("loading creature for %s: %w", userID, err)
	}
	return battle.Participant{UserID: userID, Creature: c}, nil
}

// CreateSession starts a battle for challengerID. An empty opponentID trains
// against a generated CPU creature; otherwise the opponent is challenged and
// has challengeTimeout to accept.
//
// Postcondition: on success the session is registered under every human
// participant; session.ErrParticipantBusy means nothing was registered.
func (h *BattleHandler) CreateSession(ctx context.Context, challengerID, opponentID string) (v battle.View, err error) {
	ctx, span := h.span(ctx, "gameserver.create_session", challengerID)
	defer func() { endSpan(span, err) }()

	if cur, ok, err := h.store.Get(ctx, challengerID); err != nil {
		return battle.View{}, err
	} else if ok && !cur.Ended() {
		return battle.View{}, fmt.Errorf("%w: %s", session.ErrParticipantBusy, challengerID)
	}

	challenger, err := h.participant(ctx, challengerID)
	if err != nil {
		return battle.View{}, err
	}
	var opponent *battle.Participant
	if opponentID != "" {
		p, err := h.participant(ctx, opponentID)
		if err != nil {
			return battle.View{}, err
		}
		opponent = &p
	}

	s, err := h.engine.CreateSession(ctx, challenger, opponent)
	if err != nil {
		return battle.View{}, err
	}
	if err := h.store.Register(ctx, s); err != nil {
		h.engine.Abort(ctx, s, "The battle could not start.")
		return battle.View{}, err
	}
	if s.State() == battle.StateAwaitingAcceptance {
		h.startTimer(s)
	}
	return s.View(), nil
}

// Accept accepts the challenge pending for userID.
func (h *BattleHandler) Accept(ctx context.Context, userID string) (v battle.View, err error) {
	ctx, span := h.span(ctx, "gameserver.accept", userID)
	defer func() { endSpan(span, err) }()

	s, err := h.lookup(ctx, userID)
	if err != nil {
		return battle.View{}, err
	}
	if err := h.engine.Accept(ctx, s, userID); err != nil {
		if battle.IsCorrupt(err) {
			h.teardown(ctx, s, err)
		}
		return battle.View{}, err
	}
	h.stopTimer(s.ID)
	return s.View(), nil
}

// Decline ends the challenge userID is part of, from either side, before it
// has been accepted.
func (h *BattleHandler) Decline(ctx context.Context, userID string) (err error) {
	ctx, span := h.span(ctx, "gameserver.decline", userID)
	defer func() { endSpan(span, err) }()

	s, err := h.lookup(ctx, userID)
	if err != nil {
		return err
	}
	if !h.engine.AbortPending(ctx, s, "The challenge was declined.") {
		return &battle.UserError{Notice: "there is no pending challenge to decline"}
	}
	h.stopTimer(s.ID)
	return h.store.Remove(ctx, s)
}

// SubmitMove locks in userID's move. A finished battle is removed from the
// store; a corrupt one is torn down.
func (h *BattleHandler) SubmitMove(ctx context.Context, userID, ident string) (res *battle.TurnResult, err error) {
	ctx, span := h.span(ctx, "gameserver.submit_move", userID)
	defer func() { endSpan(span, err) }()

	s, err := h.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	res, err = h.engine.SubmitMove(ctx, s, userID, ident)
	if err != nil {
		if battle.IsCorrupt(err) {
			h.teardown(ctx, s, err)
		}
		return nil, err
	}
	if res.Ended {
		if err := h.store.Remove(ctx, s); err != nil {
			h.logger.Warn("removing finished battle", zap.String("session", s.ID), zap.Error(err))
		}
	}
	return res, nil
}

// GetSessionByUser returns a view of the live battle userID is in.
func (h *BattleHandler) GetSessionByUser(ctx context.Context, userID string) (battle.View, error) {
	s, err := h.lookup(ctx, userID)
	if err != nil {
		return battle.View{}, err
	}
	return s.View(), nil
}

// DeregisterSession abandons the battle userID is in without settlement.
func (h *BattleHandler) DeregisterSession(ctx context.Context, userID string) (err error) {
	ctx, span := h.span(ctx, "gameserver.deregister", userID)
	defer func() { endSpan(span, err) }()

	s, ok, err := h.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	h.stopTimer(s.ID)
	h.engine.Abort(ctx, s, "The battle was abandoned.")
	return h.store.Remove(ctx, s)
}

// Close stops every pending challenge timer.
func (h *BattleHandler) Close() {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
}

// lookup returns the live battle for userID. An ended battle still in the
// store counts as none.
func (h *BattleHandler) lookup(ctx context.Context, userID string) (*battle.Session, error) {
	s, ok, err := h.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok || s.Ended() {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (h *BattleHandler) teardown(ctx context.Context, s *battle.Session, cause error) {
	h.logger.Error("tearing down corrupt battle", zap.String("session", s.ID), zap.Error(cause))
	h.stopTimer(s.ID)
	h.engine.Abort(ctx, s, "Something went wrong and the battle was called off.")
	if err := h.store.Remove(ctx, s); err != nil {
		h.logger.Warn("removing corrupt battle", zap.String("session", s.ID), zap.Error(err))
	}
}

func (h *BattleHandler) startTimer(s *battle.Session) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	h.timers[s.ID] = battle.NewChallengeTimer(h.challengeTimeout, func() { h.expire(s) })
}

func (h *BattleHandler) stopTimer(id string) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.timers[id]; ok {
		t.Stop()
		delete(h.timers, id)
	}
}

func (h *BattleHandler) expire(s *battle.Session) {
	h.timersMu.Lock()
	delete(h.timers, s.ID)
	h.timersMu.Unlock()

	ctx := context.Background()
	if !h.engine.AbortPending(ctx, s, "The challenge expired.") {
		return
	}
	if err := h.store.Remove(ctx, s); err != nil {
		h.logger.Warn("removing expired challenge", zap.String("session", s.ID), zap.Error(err))
	}
	h.logger.Info("challenge expired", zap.String("session", s.ID))
}

// pendingTimers reports how many challenge timers are armed.
func (h *BattleHandler) pendingTimers() int {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	return len(h.timers)
}
