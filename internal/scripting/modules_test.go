package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gotchi/internal/scripting"
)

// runEffect loads a module whose effect body is src and runs it once.
func runEffect(t *testing.T, mgr *scripting.Manager, src string) (*scripting.EffectArgs, error) {
	t.Helper()
	dir := t.TempDir()
	writeLua(t, dir, "sample.lua", "function register(move) move.name = \"Sample\" end\nfunction effect(args)\n"+src+"\nend\n")
	_, err := mgr.LoadDirectory(dir)
	require.NoError(t, err)
	args := &scripting.EffectArgs{}
	return args, mgr.CallEffect("sample", args)
}

func TestEngineLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t)
	_, err := runEffect(t, mgr, `
		engine.log.debug("d")
		engine.log.info("i")
		engine.log.warn("w")
		engine.log.error("e")
	`)
	require.NoError(t, err)

	for msg, lvl := range map[string]zapcore.Level{
		"d": zapcore.DebugLevel,
		"i": zapcore.InfoLevel,
		"w": zapcore.WarnLevel,
		"e": zapcore.ErrorLevel,
	} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, "message %q", msg)
		assert.Equal(t, lvl, entries[0].Level)
	}
}

func TestEngineDice_Roll_ReturnsTable(t *testing.T) {
	mgr, _ := newTestManager(t)
	args, err := runEffect(t, mgr, `
		local r = engine.dice.roll("1d6+2")
		if type(r.dice) ~= "number" then error("dice field missing") end
		args.text = tostring(r.total)
		args.user.hp = r.dice
	`)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, args.User.HP, 1)
	assert.LessOrEqual(t, args.User.HP, 6)
	assert.NotEmpty(t, args.Text)
}

func TestEngineDice_Roll_BadExpressionIsScriptError(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := runEffect(t, mgr, `engine.dice.roll("banana")`)
	assert.Error(t, err)
}

func TestEngineDice_Roll_OversizedIsScriptError(t *testing.T) {
	mgr, _ := newTestManager(t)
	for _, expr := range []string{"3000000d6", "101d6", "2d1001", "10000000000d6"} {
		_, err := runEffect(t, mgr, `engine.dice.roll("`+expr+`")`)
		assert.Error(t, err, "expected %q to be rejected", expr)
	}
}

func TestEngineDice_ChanceBounds(t *testing.T) {
	mgr, _ := newTestManager(t)
	args, err := runEffect(t, mgr, `
		if engine.dice.chance(0) then error("chance(0) succeeded") end
		if not engine.dice.chance(1) then error("chance(1) failed") end
		args.text = "ok"
	`)
	require.NoError(t, err)
	assert.Equal(t, "ok", args.Text)
}

func TestProperty_DiceRoll_TotalEqualsDicePlusModifier(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	writeLua(t, dir, "sample.lua", `
		function register(move) move.name = "Sample" end
		function effect(args)
			local r = engine.dice.roll(args.move)
			if r.total ~= r.dice + r.modifier then error("total mismatch") end
		end
	`)
	_, err := mgr.LoadDirectory(dir)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{"1d6", "2d6+1", "1d4-1", "3d8"}).Draw(rt, "expr")
		assert.NoError(t, mgr.CallEffect("sample", &scripting.EffectArgs{Move: expr}))
	})
}
