package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"finderguard/internal/timeutil"
)

type stubDue struct {
	asked time.Time
	ids   []string
	err   error
}

func (s *stubDue) Due(_ context.Context, now time.Time, limit int64) ([]string, error) {
	s.asked = now
	return s.ids, s.err
}

func TestSweepUsesInjectedClock(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 5, 1, 0, time.UTC)
	queue := &stubDue{ids: []string{"m1", "m2"}}
	var handled []string

	n, err := sweepDueExchanges(context.Background(), queue, timeutil.NewManual(at), func(id string) {
		handled = append(handled, id)
	})
	if err != nil || n != 2 {
		t.Fatalf("sweep: %d %v", n, err)
	}
	if !queue.asked.Equal(at) {
		t.Fatalf("queue asked with %s, want %s", queue.asked, at)
	}
	if diff := cmp.Diff([]string{"m1", "m2"}, handled); diff != "" {
		t.Fatalf("handled (-want +got):\n%s", diff)
	}

	queue.err = errors.New("redis down")
	if _, err := sweepDueExchanges(context.Background(), queue, timeutil.NewManual(at), func(string) {
		t.Fatalf("nothing should be handled on error")
	}); err == nil {
		t.Fatalf("expected queue error")
	}
}
