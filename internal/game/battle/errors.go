package battle

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptSession marks a session whose invariants no longer hold. The
	// caller must tear the session down.
	ErrCorruptSession = errors.New("battle: corrupt session")
	// ErrNoOpponentSpecies is returned when no species shares a zone with the
	// challenger.
	ErrNoOpponentSpecies = errors.New("battle: no eligible opponent species")
)

// UserError is a problem with the player's request. It carries the notice to
// show the player; the session is unchanged.
type UserError struct {
	Notice string
}

func (e *UserError) Error() string { return e.Notice }

func userErrorf(format string, args ...any) error {
	return &UserError{Notice: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err is, or wraps, a *UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
