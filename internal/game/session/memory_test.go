package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gotchi/internal/game/session"
)

type fakeBattle struct {
	users []string
	ended atomic.Bool
}

func (b *fakeBattle) Participants() []string { return b.users }
func (b *fakeBattle) Ended() bool            { return b.ended.Load() }

func battleOf(users ...string) *fakeBattle { return &fakeBattle{users: users} }

var ctx = context.Background()

func TestMemoryStore_RegisterBothParticipants(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	b := battleOf("alice", "bob")
	require.NoError(t, s.Register(ctx, b))

	for _, u := range []string{"alice", "bob"} {
		got, ok, err := s.Get(ctx, u)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, b, got)
	}
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_CPUBattleRegistersOnlyHuman(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	require.NoError(t, s.Register(ctx, battleOf("alice")))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_BusyParticipantRejectsWholeRegistration(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	first := battleOf("alice", "bob")
	require.NoError(t, s.Register(ctx, first))

	err := s.Register(ctx, battleOf("carol", "bob"))
	require.True(t, errors.Is(err, session.ErrParticipantBusy))
	_, ok, _ := s.Get(ctx, "carol")
	assert.False(t, ok, "carol must not be half-registered")
}

func TestMemoryStore_EndedBattleIsOverwritten(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	old := battleOf("alice", "bob")
	require.NoError(t, s.Register(ctx, old))
	old.ended.Store(true)

	next := battleOf("alice", "carol")
	require.NoError(t, s.Register(ctx, next))
	got, _, _ := s.Get(ctx, "alice")
	assert.Same(t, next, got)
	stale, _, _ := s.Get(ctx, "bob")
	assert.Same(t, old, stale)
}

func TestMemoryStore_RemoveOnlyOwnMappings(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	old := battleOf("alice", "bob")
	require.NoError(t, s.Register(ctx, old))
	old.ended.Store(true)
	next := battleOf("alice")
	require.NoError(t, s.Register(ctx, next))

	require.NoError(t, s.Remove(ctx, old))
	got, ok, _ := s.Get(ctx, "alice")
	require.True(t, ok)
	assert.Same(t, next, got)
	_, ok, _ = s.Get(ctx, "bob")
	assert.False(t, ok)
}

func TestMemoryStore_RejectsEmptyParticipants(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	assert.Error(t, s.Register(ctx, battleOf()))
}

func TestMemoryStore_ConcurrentRegistrationsOneWinner(t *testing.T) {
	s := session.NewMemoryStore[*fakeBattle]()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Register(ctx, battleOf("alice", fmt.Sprintf("user%d", i))) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 2, s.Len())
}

func TestProperty_NoUserInTwoLiveBattles(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := session.NewMemoryStore[*fakeBattle]()
		users := []string{"a", "b", "c", "d"}
		var live []*fakeBattle
		n := rapid.IntRange(1, 20).Draw(rt, "ops")
		for i := 0; i < n; i++ {
			x := rapid.SampledFrom(users).Draw(rt, "x")
			y := rapid.SampledFrom(users).Draw(rt, "y")
			b := battleOf(x)
			if y != x {
				b = battleOf(x, y)
			}
			if s.Register(ctx, b) == nil {
				live = append(live, b)
			}
			if len(live) > 0 && rapid.Bool().Draw(rt, "end") {
				live[0].ended.Store(true)
				live = live[1:]
			}
		}
		seen := map[string]bool{}
		for _, b := range live {
			for _, u := range b.Participants() {
				assert.False(rt, seen[u], "user %s in two live battles", u)
				seen[u] = true
			}
		}
	})
}
