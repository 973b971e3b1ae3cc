// internal/scheduler/scheduler.go
package scheduler

import (
	"sync"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/game"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so tests can fire timers by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is backed by the time package.
var RealClock Clock = realClock{}

// FireFunc is invoked when a phase timer expires. epoch is the round epoch the
// timer was armed for; the receiver must drop the command if the round has moved
// on since.
type FireFunc func(lobbyID string, epoch uint64)

// Deadline describes an armed timer, in the shape broadcast as
// game:timerStarted.
type Deadline struct {
	Phase    game.Phase `json:"phase"`
	Duration int64      `json:"duration"` // ms
	EndTime  int64      `json:"endTime"`  // unix ms
}

type entry struct {
	timer    Timer
	phase    game.Phase
	epoch    uint64
	deadline time.Time
}

// PhaseScheduler owns at most one pending phase timer per lobby. Arming a new
// one replaces the old.
type PhaseScheduler struct {
	mu      sync.Mutex
	clock   Clock
	pending map[string]*entry
	stopped bool
}

// New returns a scheduler on clock, or on the real clock when nil.
func New(clock Clock) *PhaseScheduler {
	if clock == nil {
		clock = RealClock
	}
	return &PhaseScheduler{clock: clock, pending: make(map[string]*entry)}
}

// Schedule cancels any timer for lobbyID and arms one that calls fire after d.
func (s *PhaseScheduler) Schedule(lobbyID string, phase game.Phase, epoch uint64, d time.Duration, fire FireFunc) Deadline {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[lobbyID]; ok {
		old.timer.Stop()
		delete(s.pending, lobbyID)
	}

	end := s.clock.Now().Add(d)
	dl := Deadline{Phase: phase, Duration: d.Milliseconds(), EndTime: end.UnixMilli()}
	if s.stopped {
		return dl
	}

	e := &entry{phase: phase, epoch: epoch, deadline: end}
	e.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.pending[lobbyID]
		if !ok || current != e {
			// replaced or cancelled after the timer already fired
			s.mu.Unlock()
			return
		}
		delete(s.pending, lobbyID)
		s.mu.Unlock()
		fire(lobbyID, epoch)
	})
	s.pending[lobbyID] = e
	return dl
}

// Cancel stops the timer for lobbyID, if any.
func (s *PhaseScheduler) Cancel(lobbyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[lobbyID]; ok {
		e.timer.Stop()
		delete(s.pending, lobbyID)
	}
}

// Pending reports the phase, epoch and deadline of lobbyID's armed timer.
func (s *PhaseScheduler) Pending(lobbyID string) (phase game.Phase, epoch uint64, deadline time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[lobbyID]
	if !ok {
		return "", 0, time.Time{}, false
	}
	return e.phase, e.epoch, e.deadline, true
}

// Stop cancels every timer. Later Schedule calls compute deadlines but arm
// nothing.
func (s *PhaseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
	s.stopped = true
}
