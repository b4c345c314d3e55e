package battle

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/cory-johannsen/gotchi/internal/game/creature"
	"github.com/cory-johannsen/gotchi/internal/game/move"
	"github.com/cory-johannsen/gotchi/internal/game/stats"
)

// Session states.
const (
	StateAwaitingAcceptance = "awaiting_acceptance"
	StateAwaitingMoves      = "awaiting_moves"
	StateResolvingTurn      = "resolving_turn"
	StateEnded              = "ended"
)

const (
	eventAccept   = "accept"
	eventResolve  = "resolve"
	eventContinue = "continue"
	eventFinish   = "finish"
	eventAbort    = "abort"
)

func newMachine(initial string) *fsm.FSM {
	return fsm.NewFSM(initial, fsm.Events{
		{Name: eventAccept, Src: []string{StateAwaitingAcceptance}, Dst: StateAwaitingMoves},
		{Name: eventResolve, Src: []string{StateAwaitingMoves}, Dst: StateResolvingTurn},
		{Name: eventContinue, Src: []string{StateResolvingTurn}, Dst: StateAwaitingMoves},
		{Name: eventFinish, Src: []string{StateResolvingTurn}, Dst: StateEnded},
		{Name: eventAbort, Src: []string{StateAwaitingAcceptance, StateAwaitingMoves, StateResolvingTurn}, Dst: StateEnded},
	}, fsm.Callbacks{})
}

// Player is one side of a battle.
type Player struct {
	// UserID is empty for a CPU opponent.
	UserID   string
	Name     string
	Profile  *creature.Profile
	Stats    stats.Snapshot
	Moves    []*move.Move
	Selected *move.Move
	Status   string
	CPU      bool

	damaged bool
}

// Fainted reports whether the player's HP reached zero.
func (p *Player) Fainted() bool { return p.Stats.HP <= 0 }

// Session is one live battle. All mutation goes through the Engine, which
// holds mu for the whole of each operation.
type Session struct {
	ID string

	mu       sync.Mutex
	machine  *fsm.FSM
	Players  [2]*Player
	Turn     int
	Accepted bool
	Text     string
	outcome  *Outcome
}

func newSession(challenger, opponent *Player) *Session {
	initial := StateAwaitingAcceptance
	if opponent.CPU {
		initial = StateAwaitingMoves
	}
	return &Session{
		ID:       uuid.NewString(),
		machine:  newMachine(initial),
		Players:  [2]*Player{challenger, opponent},
		Accepted: opponent.CPU,
	}
}

// State returns the current state name.
func (s *Session) State() string { return s.machine.Current() }

// Ended reports whether the session reached its terminal state.
func (s *Session) Ended() bool { return s.machine.Is(StateEnded) }

// Participants returns the user ids of the human players.
func (s *Session) Participants() []string {
	var out []string
	for _, p := range s.Players {
		if p != nil && !p.CPU && p.UserID != "" {
			out = append(out, p.UserID)
		}
	}
	return out
}

// Outcome returns the settlement, or nil while the battle is running.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) fire(ctx context.Context, event string) error {
	return s.machine.Event(ctx, event)
}

// player returns the side controlled by userID and its opponent.
func (s *Session) player(userID string) (*Player, *Player) {
	for i, p := range s.Players {
		if p != nil && !p.CPU && p.UserID == userID {
			return p, s.Players[1-i]
		}
	}
	return nil, nil
}

// MoveView describes one moveset entry.
type MoveView struct {
	Name  string
	PP    int
	MaxPP int
}

// PlayerView is a read-only copy of a Player.
type PlayerView struct {
	UserID   string
	Name     string
	Level    int
	HP       int
	MaxHP    int
	Status   string
	CPU      bool
	Selected bool
	Moves    []MoveView
}

// View is a read-only copy of a Session, safe to hand to other goroutines.
type View struct {
	ID      string
	State   string
	Turn    int
	Text    string
	Players []PlayerView
}

// View copies the session under its lock.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{ID: s.ID, State: s.State(), Turn: s.Turn, Text: s.Text}
	for _, p := range s.Players {
		if p == nil {
			continue
		}
		pv := PlayerView{
			UserID:   p.UserID,
			Name:     p.Name,
			Level:    p.Stats.Level,
			HP:       max(p.Stats.HP, 0),
			MaxHP:    p.Stats.MaxHP,
			Status:   p.Status,
			CPU:      p.CPU,
			Selected: p.Selected != nil,
		}
		for _, m := range p.Moves {
			pv.Moves = append(pv.Moves, MoveView{Name: m.Name, PP: m.PP, MaxPP: m.MaxPP})
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
