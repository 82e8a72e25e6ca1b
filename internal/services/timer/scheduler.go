package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
	"github.com/mcoot/drawguess/internal/model"
)

// Persister records timer expiries for restart recovery. Calls must not block.
type Persister interface {
	SaveTimer(id model.RoomID, expiry time.Time)
	DeleteTimer(id model.RoomID)
}

// FireFunc is invoked on expiry with the generation of the arming that fired
type FireFunc func(roomID model.RoomID, gen uint64)

type entry struct {
	gen    uint64
	expiry time.Time
	timer  clock.Timer
}

// Scheduler runs one independent countdown per room.
// Every arming gets a new generation so a callback that raced with a re-arm or disarm
// can be recognised as stale with IsCurrent.
type Scheduler struct {
	clock     clock.Clock
	persister Persister
	logger    *slog.Logger

	mu      sync.Mutex
	timers  map[model.RoomID]*entry
	nextGen uint64
}

// New creates a Scheduler. persister may be nil.
func New(clock clock.Clock, persister Persister, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:     clock,
		persister: persister,
		logger:    logger.With(slog.String("component", "timer")),
		timers:    make(map[model.RoomID]*entry),
	}
}

// Arm starts (or restarts) the room's countdown to expiry. An expiry in the past fires immediately.
func (s *Scheduler) Arm(roomID model.RoomID, expiry time.Time, fire FireFunc) uint64 {
	s.mu.Lock()
	if old, ok := s.timers[roomID]; ok {
		old.timer.Stop()
	}
	s.nextGen++
	gen := s.nextGen
	delay := max(expiry.Sub(s.clock.Now()), 0)
	s.timers[roomID] = &entry{
		gen:    gen,
		expiry: expiry,
		timer:  s.clock.AfterFunc(delay, func() { fire(roomID, gen) }),
	}
	s.mu.Unlock()

	if s.persister != nil {
		s.persister.SaveTimer(roomID, expiry)
	}

	s.logger.Debug("timer armed",
		slog.String("room_id", string(roomID)),
		slog.Duration("delay", delay),
	)
	return gen
}

// Disarm cancels the room's countdown and clears its persisted expiry.
// It reports whether a countdown was pending.
func (s *Scheduler) Disarm(roomID model.RoomID) bool {
	s.mu.Lock()
	e, ok := s.timers[roomID]
	if ok {
		e.timer.Stop()
		delete(s.timers, roomID)
	}
	s.mu.Unlock()

	if ok && s.persister != nil {
		s.persister.DeleteTimer(roomID)
	}
	return ok
}

// IsCurrent reports whether gen is the room's latest arming and has not been disarmed
func (s *Scheduler) IsCurrent(roomID model.RoomID, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[roomID]
	return ok && e.gen == gen
}

// Expiry returns the room's pending expiry instant
func (s *Scheduler) Expiry(roomID model.RoomID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[roomID]
	if !ok {
		return time.Time{}, false
	}
	return e.expiry, true
}

// Release forgets the room's countdown after it fired, clearing the persisted expiry
func (s *Scheduler) Release(roomID model.RoomID, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[roomID]
	current := ok && e.gen == gen
	if current {
		delete(s.timers, roomID)
	}
	s.mu.Unlock()

	if current && s.persister != nil {
		s.persister.DeleteTimer(roomID)
	}
}

// Stop cancels every countdown without touching persisted expiries, so they survive a restart
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

// Len returns the number of pending countdowns
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
