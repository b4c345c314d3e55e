// Package session stores live battles addressed by participant.
package session

import (
	"context"
	"errors"
)

// ErrParticipantBusy is returned by Register when a participant is already
// in a battle that has not ended.
var ErrParticipantBusy = errors.New("session: participant already in a battle")

// Battle is what a Store keeps: a value addressed by its human participants.
type Battle interface {
	comparable
	Participants() []string
	Ended() bool
}

// Store maps participant user ids to battles.
type Store[T Battle] interface {
	// Get returns the battle userID is registered under.
	Get(ctx context.Context, userID string) (T, bool, error)
	// Register maps every participant of v to v in one step. Mappings to
	// ended battles are replaced; a mapping to a live battle fails the whole
	// registration with ErrParticipantBusy.
	Register(ctx context.Context, v T) error
	// Remove drops every participant mapping that points at v.
	Remove(ctx context.Context, v T) error
}
