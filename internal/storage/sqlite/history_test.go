package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
)

func openTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func outcome(id string, ended time.Time, winner, loser battle.Award) *battle.Outcome {
	return &battle.Outcome{SessionID: id, Winner: winner, Loser: loser, Turns: 4, EndedAt: ended}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestHistoryStore_RecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fang := battle.Award{UserID: "alice", CreatureID: 10, Name: "Fang", Experience: 50, NewLevel: 6}
	fronds := battle.Award{UserID: "bob", CreatureID: 20, Name: "Fronds", Experience: 25, NewLevel: 5}
	wild := battle.Award{Name: "Wild Rabbit", CPU: true, Experience: 30}

	require.NoError(t, s.Record(ctx, outcome("s1", base, fang, fronds)))
	require.NoError(t, s.Record(ctx, outcome("s2", base.Add(time.Hour), wild, fang)))

	got, err := s.History(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "s2", got[0].SessionID)
	assert.False(t, got[0].Won)
	assert.Equal(t, "Wild Rabbit", got[0].Opponent)
	assert.True(t, base.Add(time.Hour).Equal(got[0].EndedAt))

	assert.Equal(t, "s1", got[1].SessionID)
	assert.True(t, got[1].Won)
	assert.Equal(t, "Fronds", got[1].Opponent)
	assert.Equal(t, 50, got[1].Experience)
	assert.Equal(t, 4, got[1].Turns)
}

func TestHistoryStore_CPUNeverListed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	wild := battle.Award{Name: "Wild Fern", CPU: true}
	fang := battle.Award{UserID: "alice", CreatureID: 10, Name: "Fang"}
	require.NoError(t, s.Record(ctx, outcome("s1", time.Now(), fang, wild)))

	got, err := s.History(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryStore_DrawIsNotAWin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	o := outcome("d1", time.Now(),
		battle.Award{UserID: "alice", CreatureID: 10, Name: "Fang"},
		battle.Award{UserID: "bob", CreatureID: 20, Name: "Fronds"})
	o.Draw = true
	require.NoError(t, s.Record(ctx, o))

	for _, id := range []int64{10, 20} {
		got, err := s.History(ctx, id, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Draw)
		assert.False(t, got[0].Won)
	}
}

func TestHistoryStore_RecordIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	o := outcome("s1", time.Now(),
		battle.Award{UserID: "alice", CreatureID: 10, Name: "Fang"},
		battle.Award{UserID: "bob", CreatureID: 20, Name: "Fronds"})
	require.NoError(t, s.Record(ctx, o))
	require.NoError(t, s.Record(ctx, o))

	got, err := s.History(ctx, 10, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHistoryStore_RejectsEmptySession(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Record(context.Background(), &battle.Outcome{}))
}

func TestHistoryStore_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Record(context.Background(), outcome("m1", time.Now(),
		battle.Award{UserID: "a", CreatureID: 1, Name: "A"},
		battle.Award{UserID: "b", CreatureID: 2, Name: "B"})))
	got, err := s.History(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
