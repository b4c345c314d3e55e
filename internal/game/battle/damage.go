package battle

import (
	"math"

	"github.com/cory-johannsen/gotchi/internal/scripting"
)

const (
	// basePower is the damage of a power 1.0 move.
	basePower          = 40.0
	criticalMultiplier = 1.5
)

// Damage is the battle damage formula:
//
//	((2L/5 + 2) × basePower×power × A/D / 50 + 2) × matchup × critical
//
// A power of 0 or less deals no damage.
func Damage(user, target scripting.StatView, power, multiplier float64, critical bool) int {
	if power <= 0 {
		return 0
	}
	def := math.Max(float64(target.Defense), 1)
	level := float64(max(user.Level, 1))
	d := (2*level/5+2)*basePower*power*float64(user.Attack)/def/50 + 2
	d *= multiplier
	if critical {
		d *= criticalMultiplier
	}
	return max(int(math.Floor(d)), 1)
}

// criticalDenominator converts a move's critical rate into the n of a 1-in-n
// roll. 0 means the move never crits on its own.
func criticalDenominator(rate float64) int {
	if rate <= 0 {
		return 0
	}
	return max(int(math.Round(10/rate)), 1)
}
