package exchange

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusNone, StatusFounderConfirmed, true},
		{StatusNone, StatusCompleted, false},
		{StatusNone, StatusExpired, false},
		{StatusFounderConfirmed, StatusCompleted, true},
		{StatusFounderConfirmed, StatusExpired, true},
		{StatusFounderConfirmed, StatusNone, false},
		{StatusCompleted, StatusExpired, false},
		{StatusExpired, StatusCompleted, false},
		{StatusExpired, StatusFounderConfirmed, false},
		{"owner_confirmed", StatusCompleted, false},
		{"bogus", StatusNone, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusExpired) {
		t.Fatalf("completed and expired must be terminal")
	}
	if IsTerminal(StatusNone) || IsTerminal(StatusFounderConfirmed) || IsTerminal("bogus") {
		t.Fatalf("unexpected terminal status")
	}
}

func TestCheckTransitionErrors(t *testing.T) {
	cases := []struct {
		from, to string
		want     error
	}{
		{StatusCompleted, StatusCompleted, ErrExchangeCompleted},
		{StatusExpired, StatusCompleted, ErrExchangeExpired},
		{StatusNone, StatusCompleted, ErrExchangeNotStarted},
		{StatusNone, StatusExpired, ErrExchangeNotStarted},
		{StatusFounderConfirmed, StatusFounderConfirmed, ErrAlreadyStarted},
		{"bogus", StatusCompleted, ErrInvalidTransition},
	}
	for _, tc := range cases {
		if err := checkTransition(tc.from, tc.to); !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s expected %v, got %v", tc.from, tc.to, tc.want, err)
		}
	}
	if err := checkTransition(StatusNone, StatusFounderConfirmed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
