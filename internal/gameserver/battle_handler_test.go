package gameserver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/session"
)

var ctx = context.Background()

func TestBattleHandler_CPUBattleRunsToSettlement(t *testing.T) {
	f := newFixture(t, time.Minute)

	v, err := f.handler.CreateSession(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, battle.StateAwaitingMoves, v.State)
	require.Len(t, v.Players, 2)
	assert.True(t, v.Players[1].CPU)
	assert.Equal(t, 0, f.handler.pendingTimers())

	got, err := f.handler.GetSessionByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	res, err := f.handler.SubmitMove(ctx, alice, "smite")
	require.NoError(t, err)
	assert.True(t, res.Ended)
	require.NotNil(t, res.Outcome)

	_, err = f.handler.GetSessionByUser(ctx, alice)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, f.store.Len())
	assert.Len(t, f.history.outcomes, 1)
}

func TestBattleHandler_ChallengeAccept(t *testing.T) {
	f := newFixture(t, time.Minute)

	v, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, battle.StateAwaitingAcceptance, v.State)
	assert.Equal(t, 1, f.handler.pendingTimers())
	assert.Equal(t, 2, f.store.Len())

	_, err = f.handler.Accept(ctx, alice)
	assert.True(t, battle.IsUserError(err), "challenger cannot accept")

	v, err = f.handler.Accept(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, battle.StateAwaitingMoves, v.State)
	assert.Equal(t, 0, f.handler.pendingTimers())

	res, err := f.handler.SubmitMove(ctx, alice, "1")
	require.NoError(t, err)
	assert.False(t, res.Resolved)

	_, err = f.handler.SubmitMove(ctx, alice, "2")
	assert.True(t, battle.IsUserError(err), "second lock-in is rejected")

	res, err = f.handler.SubmitMove(ctx, bob, "Smite")
	require.NoError(t, err)
	assert.True(t, res.Resolved)
}

func TestBattleHandler_BusyParticipantsRejected(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)

	_, err = f.handler.CreateSession(ctx, carol, bob)
	assert.ErrorIs(t, err, session.ErrParticipantBusy)
	_, err = f.handler.CreateSession(ctx, alice, "")
	assert.ErrorIs(t, err, session.ErrParticipantBusy)

	_, err = f.handler.GetSessionByUser(ctx, carol)
	assert.ErrorIs(t, err, ErrSessionNotFound, "a rejected registration leaves no trace")
	assert.Equal(t, 1, f.handler.pendingTimers())
}

func TestBattleHandler_Decline(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)

	require.NoError(t, f.handler.Decline(ctx, bob))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.handler.pendingTimers())
	assert.ErrorIs(t, f.handler.Decline(ctx, bob), ErrSessionNotFound)
}

func TestBattleHandler_DeclineAfterAcceptIsUserError(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)
	_, err = f.handler.Accept(ctx, bob)
	require.NoError(t, err)

	assert.True(t, battle.IsUserError(f.handler.Decline(ctx, alice)))
	_, err = f.handler.GetSessionByUser(ctx, alice)
	assert.NoError(t, err)
}

func TestBattleHandler_ChallengeExpires(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	_, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := f.handler.GetSessionByUser(ctx, bob)
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.handler.pendingTimers())
	assert.Equal(t, 1, f.logs.FilterMessage("challenge expired").Len())
}

func TestBattleHandler_AcceptedChallengeDoesNotExpire(t *testing.T) {
	f := newFixture(t, 30*time.Millisecond)
	_, err := f.handler.CreateSession(ctx, alice, bob)
	require.NoError(t, err)
	_, err = f.handler.Accept(ctx, bob)
	require.NoError(t, err)

	time.Sleep(90 * time.Millisecond)
	v, err := f.handler.GetSessionByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, battle.StateAwaitingMoves, v.State)
}

func TestBattleHandler_Deregister(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.handler.CreateSession(ctx, alice, "")
	require.NoError(t, err)

	require.NoError(t, f.handler.DeregisterSession(ctx, alice))
	_, err = f.handler.GetSessionByUser(ctx, alice)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.handler.DeregisterSession(ctx, alice), ErrSessionNotFound)
	assert.Empty(t, f.history.outcomes, "abandoned battles are not settled")
}

func TestBattleHandler_UnknownCreature(t *testing.T) {
	f := newFixture(t, time.Minute)
	_, err := f.handler.CreateSession(ctx, "nobody", "")
	assert.ErrorIs(t, err, creature.ErrCreatureNotFound)
	_, err = f.handler.CreateSession(ctx, alice, "nobody")
	assert.ErrorIs(t, err, creature.ErrCreatureNotFound)
	assert.Equal(t, 0, f.store.Len())
}

// corrupting fails every SubmitMove as if the session's invariants broke.
type corrupting struct{ *battle.Engine }

func (corrupting) SubmitMove(context.Context, *battle.Session, string, string) (*battle.TurnResult, error) {
	return nil, fmt.Errorf("%w: injected", battle.ErrCorruptSession)
}

func TestBattleHandler_CorruptSessionTornDown(t *testing.T) {
	f := newFixture(t, time.Minute)
	h := NewBattleHandler(corrupting{f.engine}, f.repo, f.store, time.Minute, f.handler.logger)
	_, err := h.CreateSession(ctx, alice, "")
	require.NoError(t, err)

	_, err = h.SubmitMove(ctx, alice, "smite")
	assert.True(t, battle.IsCorrupt(err))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 1, f.logs.FilterMessage("tearing down corrupt battle").Len())
}

func TestBattleHandler_ConcurrentChallengesOneWins(t *testing.T) {
	f := newFixture(t, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, challenger := range []string{alice, carol} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.handler.CreateSession(ctx, challenger, bob)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, busy int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, session.ErrParticipantBusy):
			busy++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, busy)
	assert.Equal(t, 1, f.handler.pendingTimers())
}
