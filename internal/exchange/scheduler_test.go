package exchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finderguard/internal/timeutil"
)

func TestTimerSchedulerFiresOnce(t *testing.T) {
	clock := timeutil.NewManual(t0)
	s := NewTimerScheduler(clock)
	fired := make(chan string, 4)
	s.OnDeadline(func(id string) { fired <- id })

	ctx := context.Background()
	if err := s.Schedule(ctx, "m1", t0.Add(10*time.Millisecond)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// rescheduling replaces the pending timer
	if err := s.Schedule(ctx, "m1", t0.Add(20*time.Millisecond)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case id := <-fired:
		if id != "m1" {
			t.Fatalf("unexpected id %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
	select {
	case id := <-fired:
		t.Fatalf("timer fired twice for %s", id)
	case <-time.After(100 * time.Millisecond):
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", s.Pending())
	}
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler(timeutil.NewManual(t0))
	fired := make(chan string, 1)
	s.OnDeadline(func(id string) { fired <- id })

	ctx := context.Background()
	_ = s.Schedule(ctx, "m1", t0.Add(30*time.Millisecond))
	_ = s.Cancel(ctx, "m1")
	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}

	s.Stop()
	if err := s.Schedule(ctx, "m2", t0); err == nil {
		t.Fatalf("schedule after stop should fail")
	}
}

type failingScheduler struct{ err error }

func (f failingScheduler) Schedule(context.Context, string, time.Time) error { return f.err }
func (f failingScheduler) Cancel(context.Context, string) error             { return f.err }

func TestMultiScheduler(t *testing.T) {
	rec := newRecordingScheduler()
	ms := MultiScheduler{failingScheduler{err: errors.New("redis down")}, rec}
	if err := ms.Schedule(context.Background(), "m1", t0); err == nil {
		t.Fatalf("expected joined error")
	}
	if _, ok := rec.deadlines["m1"]; !ok {
		t.Fatalf("healthy scheduler should still be called")
	}
}

func TestKeyedMutexReleasesKeys(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("m1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if k.size() != 0 {
		t.Fatalf("expected keys to be released, %d left", k.size())
	}
}
