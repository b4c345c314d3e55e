package move_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/gotchi/internal/game/dice"
	"github.com/cory-johannsen/gotchi/internal/game/eligibility"
	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/scripting"
)

const contentDir = "../../../content/moves"

func loadContent(t *testing.T) *move.Catalog {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewRoller(dice.NewSeededSource(1), logger), logger, 0)
	t.Cleanup(mgr.Close)
	c := move.NewCatalog(mgr, eligibility.NewEvaluator(logger), logger, 0)
	require.NoError(t, c.LoadAll(contentDir))
	return c
}

func TestContent_AllMovesLoad(t *testing.T) {
	c := loadContent(t)
	assert.Len(t, c.Definitions(), 13)
	for _, name := range []string{"Bite", "Vine Wrap", "Poison Sting", "Withdraw", "Pollen Cloud"} {
		_, err := c.GetMove(name)
		assert.NoError(t, err, name)
	}
}

func TestContent_ProducerLearnSet(t *testing.T) {
	c := loadContent(t)
	learn := c.GetLearnSet(profile(2, 10, "producer"))
	assert.Equal(t, []string{"hit", "Photosynthesis", "Root", "Tackle", "Vine Wrap"}, names(learn))
}

func TestContent_SelfTargetedMoves(t *testing.T) {
	c := loadContent(t)
	self := map[string]bool{"Withdraw": true, "Thorns": true, "Root": true, "Photosynthesis": true}
	for _, d := range c.Definitions() {
		assert.Equal(t, self[d.Name], d.SelfTarget, d.Name)
	}
}
