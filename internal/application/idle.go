package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
)

const DefaultIdleGrace = 5 * time.Minute

type IdleState string

const (
	IdleDisarmed IdleState = "disarmed"
	IdleArmed    IdleState = "armed"
	IdleFired    IdleState = "fired"
)

// IdleScheduler deletes sessions whose voice room stays empty for the grace
// period. Each session has at most one pending timer; every arm replaces the
// previous one.
type IdleScheduler struct {
	clock     ports.Clock
	grace     time.Duration
	occupancy ports.OccupancyProbe
	fire      func(ctx context.Context, id domain.SessionID) bool
	logger    *slog.Logger

	mu         sync.Mutex
	generation uint64
	timers     map[domain.SessionID]*idleTimer
}

type idleTimer struct {
	timer      ports.Timer
	generation uint64
	voiceRoom  string
	state      IdleState
}

// NewIdleScheduler builds a scheduler that calls fire once a session's room
// is confirmed empty at the deadline. fire reports whether the session still
// existed.
func NewIdleScheduler(clock ports.Clock, grace time.Duration, occupancy ports.OccupancyProbe, fire func(ctx context.Context, id domain.SessionID) bool, logger *slog.Logger) *IdleScheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if grace <= 0 {
		grace = DefaultIdleGrace
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &IdleScheduler{
		clock:     clock,
		grace:     grace,
		occupancy: occupancy,
		fire:      fire,
		logger:    logger.With("component", "idle"),
		timers:    map[domain.SessionID]*idleTimer{},
	}
}

// Arm starts, or restarts, the countdown for id.
func (s *IdleScheduler) Arm(id domain.SessionID, voiceRoomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[id]; ok {
		if existing.state == IdleFired {
			return
		}
		if existing.timer != nil {
			existing.timer.Stop()
		}
	}

	s.generation++
	entry := &idleTimer{generation: s.generation, voiceRoom: voiceRoomID, state: IdleArmed}
	s.timers[id] = entry
	generation := entry.generation
	entry.timer = s.clock.AfterFunc(s.grace, func() {
		s.onDeadline(id, generation)
	})

	s.logger.Debug("idle timer armed", "session", id, "grace", s.grace)
}

// Disarm cancels a pending countdown. It is a no-op when none is pending.
func (s *IdleScheduler) Disarm(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.timers[id]
	if !ok || entry.state != IdleArmed {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(s.timers, id)

	s.logger.Debug("idle timer disarmed", "session", id)
}

// Forget drops all scheduler state for id. Used once the session is gone.
func (s *IdleScheduler) Forget(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[id]; ok && entry.timer != nil {
		entry.timer.Stop()
	}
	delete(s.timers, id)
}

func (s *IdleScheduler) State(id domain.SessionID) IdleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.timers[id]; ok {
		return entry.state
	}
	return IdleDisarmed
}

// Armed returns the number of sessions with a pending countdown.
func (s *IdleScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.timers {
		if entry.state == IdleArmed {
			count++
		}
	}
	return count
}

func (s *IdleScheduler) onDeadline(id domain.SessionID, generation uint64) {
	voiceRoom, ok := s.current(id, generation)
	if !ok {
		return
	}

	ctx := context.Background()
	occupants, err := s.occupancy.Occupants(ctx, voiceRoom)
	if err != nil {
		s.logger.Warn("idle check failed, re-arming", "session", id, "error", err)
		s.rearm(id, generation, voiceRoom)
		return
	}

	s.mu.Lock()
	entry, ok := s.timers[id]
	if !ok || entry.generation != generation {
		s.mu.Unlock()
		return
	}
	if len(occupants) > 0 {
		delete(s.timers, id)
		s.mu.Unlock()
		s.logger.Debug("idle deadline reached with occupants, disarmed", "session", id, "occupants", len(occupants))
		return
	}
	entry.state = IdleFired
	entry.timer = nil
	s.mu.Unlock()

	s.logger.Info("idle timer fired", "session", id)
	if s.fire(ctx, id) {
		return
	}

	s.mu.Lock()
	if entry, ok := s.timers[id]; ok && entry.generation == generation {
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.logger.Debug("idle timer fired for unknown session, forgotten", "session", id)
}

func (s *IdleScheduler) current(id domain.SessionID, generation uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.timers[id]
	if !ok || entry.generation != generation || entry.state != IdleArmed {
		return "", false
	}
	return entry.voiceRoom, true
}

func (s *IdleScheduler) rearm(id domain.SessionID, generation uint64, voiceRoom string) {
	s.mu.Lock()
	entry, ok := s.timers[id]
	stale := !ok || entry.generation != generation
	s.mu.Unlock()
	if stale {
		return
	}
	s.Arm(id, voiceRoom)
}
