package timeutil

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewManual(start)
	if !clock.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, clock.Now())
	}
	clock.Advance(299 * time.Second)
	if got := clock.Now().Sub(start); got != 299*time.Second {
		t.Fatalf("expected 299s elapsed, got %v", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(36 * time.Hour)
	if got := DaysBetween(a, b); got != 1.5 {
		t.Fatalf("expected 1.5 days, got %v", got)
	}
	if got := DaysBetween(b, a); got != 1.5 {
		t.Fatalf("expected symmetric distance, got %v", got)
	}
}
