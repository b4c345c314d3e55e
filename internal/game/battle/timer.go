package battle

import (
	"sync"
	"time"
)

// ChallengeTimer calls onExpire once after a delay unless stopped first.
// It is safe for concurrent use.
type ChallengeTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewChallengeTimer starts a timer that calls onExpire after d in its own
// goroutine.
//
// Precondition: d > 0; onExpire must not be nil.
func NewChallengeTimer(d time.Duration, onExpire func()) *ChallengeTimer {
	ct := &ChallengeTimer{}
	ct.timer = time.AfterFunc(d, func() {
		ct.mu.Lock()
		stopped := ct.stopped
		ct.stopped = true
		ct.mu.Unlock()
		if !stopped {
			onExpire()
		}
	})
	return ct
}

// Stop prevents onExpire from firing and reports whether it had not fired
// yet. Safe to call multiple times.
func (ct *ChallengeTimer) Stop() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	wasPending := !ct.stopped
	ct.stopped = true
	ct.timer.Stop()
	return wasPending
}
