package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"finderguard/internal/timeutil"
)

// fireSlack makes timers fire strictly after the deadline, which is when an
// exchange becomes eligible for expiry.
const fireSlack = 5 * time.Millisecond

type timerEntry struct {
	timer *time.Timer
	gen   uint64
}

// TimerScheduler keeps one in-process timer per match.
type TimerScheduler struct {
	clock timeutil.Clock

	mu      sync.Mutex
	gen     uint64
	timers  map[string]timerEntry
	handler func(matchID string)
	stopped bool
}

// NewTimerScheduler creates a scheduler measuring delays with clock.
func NewTimerScheduler(clock timeutil.Clock) *TimerScheduler {
	if clock == nil {
		clock = timeutil.System{}
	}
	return &TimerScheduler{clock: clock, timers: make(map[string]timerEntry)}
}

// OnDeadline sets the callback invoked when a deadline passes.
func (s *TimerScheduler) OnDeadline(fn func(matchID string)) {
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
}

// Schedule replaces any pending timer of matchID.
func (s *TimerScheduler) Schedule(_ context.Context, matchID string, deadline time.Time) error {
	delay := deadline.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("timer scheduler stopped")
	}
	if old, ok := s.timers[matchID]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timers[matchID] = timerEntry{
		gen:   gen,
		timer: time.AfterFunc(delay+fireSlack, func() { s.fire(matchID, gen) }),
	}
	return nil
}

// Cancel stops the pending timer of matchID, if any.
func (s *TimerScheduler) Cancel(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[matchID]; ok {
		e.timer.Stop()
		delete(s.timers, matchID)
	}
	return nil
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer. Schedule fails afterwards.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
}

func (s *TimerScheduler) fire(matchID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[matchID]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, matchID)
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(matchID)
	}
}

// MultiScheduler forwards to several schedulers, e.g. in-process timers
// backed by a durable queue.
type MultiScheduler []Scheduler

// Schedule schedules on every scheduler and returns the joined errors.
func (ms MultiScheduler) Schedule(ctx context.Context, matchID string, deadline time.Time) error {
	var errs []error
	for _, s := range ms {
		if err := s.Schedule(ctx, matchID, deadline); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cancel cancels on every scheduler and returns the joined errors.
func (ms MultiScheduler) Cancel(ctx context.Context, matchID string) error {
	var errs []error
	for _, s := range ms {
		if err := s.Cancel(ctx, matchID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
