package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"pgregory.net/rapid"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSession(t *testing.T) {
	s := mustStruct(t, map[string]any{
		"id": "abc", "state": "in_progress", "turn": 2, "text": "Fang used Bite!",
		"players": []any{
			map[string]any{
				"name": "Fang", "level": 5, "hp": 10, "max_hp": 40, "status": "Poisoned",
				"selected": true,
				"moves":    []any{map[string]any{"name": "Bite", "pp": 3, "max_pp": 10}},
			},
			map[string]any{"name": "Fronds", "level": 4, "hp": 0, "max_hp": 30, "cpu": true},
		},
	})

	out := StripANSI(Session(s))
	assert.Contains(t, out, "Battle abc  [in_progress, turn 2]")
	assert.Contains(t, out, "Fang Lv5")
	assert.Contains(t, out, "10/40 Poisoned (ready)")
	assert.Contains(t, out, "1. Bite")
	assert.Contains(t, out, "3/10 PP")
	assert.Contains(t, out, "Fronds (wild) Lv4")
	assert.Contains(t, out, "Fang used Bite!")
}

func TestTurn_Waiting(t *testing.T) {
	out := StripANSI(Turn(mustStruct(t, map[string]any{"resolved": false})))
	assert.Equal(t, "Waiting for your opponent...\n", out)
}

func TestTurn_Outcome(t *testing.T) {
	s := mustStruct(t, map[string]any{
		"resolved": true, "turn": 3, "text": "Fronds fainted!", "ended": true,
		"outcome": map[string]any{
			"draw": false,
			"winner": map[string]any{
				"name": "Fang", "experience": 50, "old_level": 9, "new_level": 10, "evolve": true,
			},
			"loser": map[string]any{"name": "Fronds", "cpu": true, "experience": 25},
		},
	})
	out := StripANSI(Turn(s))
	assert.Contains(t, out, "Fang won the battle!")
	assert.Contains(t, out, "Fang gained 50 experience.")
	assert.Contains(t, out, "Fang grew to level 10!")
	assert.Contains(t, out, "Fang is ready to evolve!")
	assert.NotContains(t, out, "Fronds gained")
}

func TestTurn_Draw(t *testing.T) {
	s := mustStruct(t, map[string]any{
		"resolved": true, "turn": 1, "text": "",
		"outcome": map[string]any{
			"draw":   true,
			"winner": map[string]any{"name": "A", "experience": 5, "old_level": 2, "new_level": 2},
			"loser":  map[string]any{"name": "B", "experience": 5, "old_level": 2, "new_level": 2},
		},
	})
	out := StripANSI(Turn(s))
	assert.Contains(t, out, "draw")
	assert.Contains(t, out, "A gained 5 experience.")
	assert.Contains(t, out, "B gained 5 experience.")
	assert.NotContains(t, out, "grew")
}

func TestHistory(t *testing.T) {
	empty := mustStruct(t, map[string]any{"battles": []any{}})
	assert.Equal(t, "No battles yet.\n", StripANSI(History(empty)))

	s := mustStruct(t, map[string]any{"battles": []any{
		map[string]any{"opponent": "Fronds", "won": true, "experience": 40, "turns": 3, "ended_at": "2026-01-02T03:04:05Z"},
		map[string]any{"opponent": "Hops", "draw": true, "experience": 10, "turns": 9, "ended_at": "2026-01-01T00:00:00Z"},
	}})
	lines := strings.Split(strings.TrimSpace(StripANSI(History(s))), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "won  vs Fronds")
	assert.Contains(t, lines[1], "draw vs Hops")
}

// Property: the HP bar always has the requested width once colors are removed.
func TestPropertyHPBarWidth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxHP := rapid.IntRange(1, 500).Draw(t, "max")
		hp := rapid.IntRange(0, maxHP).Draw(t, "hp")
		width := rapid.IntRange(1, 40).Draw(t, "width")
		bar := StripANSI(hpBar(hp, maxHP, width))
		assert.Len(t, bar, width+2)
		if hp > 0 {
			assert.Contains(t, bar, "#")
		}
	})
}
