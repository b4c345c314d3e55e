package dice

import (
	"math"

	"go.uber.org/zap"
)

// chanceScale is the resolution of Chance: probabilities are rounded to 1/10000.
const chanceScale = 10000

// Roller wraps a Source with the probability helpers the battle engine uses
// and logs every roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller over src.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: src must not be nil")
	}
	if logger == nil {
		panic("dice.NewRoller: logger must not be nil")
	}
	return &Roller{src: src, logger: logger}
}

// Intn returns a value in [0, n) from the underlying source.
func (r *Roller) Intn(n int) int { return r.src.Intn(n) }

// Chance reports true with probability p. p <= 0 or NaN never succeeds and
// p >= 1 always succeeds.
func (r *Roller) Chance(reason string, p float64) bool {
	roll := r.src.Intn(chanceScale)
	var ok bool
	switch {
	case math.IsNaN(p):
	case p >= 1:
		ok = true
	default:
		ok = roll < int(p*chanceScale)
	}
	r.logger.Debug("chance roll",
		zap.String("reason", reason),
		zap.Float64("p", p),
		zap.Int("roll", roll),
		zap.Bool("success", ok),
	)
	return ok
}

// CoinFlip returns true or false with equal probability.
func (r *Roller) CoinFlip() bool {
	return r.src.Intn(2) == 0
}

// RollExpr parses and rolls expr, logging the result.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	res := e.Roll(r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("modifier", res.Modifier),
		zap.Int("total", res.Total()),
	)
	return res, nil
}
