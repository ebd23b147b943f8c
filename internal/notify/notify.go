// Package notify delivers match and exchange events to users over push and
// websocket channels.
package notify

import (
	"context"
	"errors"
)

// Event types.
const (
	EventMatchFound        = "match_found"
	EventMatchAccepted     = "match_accepted"
	EventMatchRejected     = "match_rejected"
	EventExchangeStarted   = "exchange_started"
	EventExchangeCompleted = "exchange_completed"
	EventExchangeExpired   = "exchange_expired"
)

// Event is a message for a single user.
type Event struct {
	Type   string            `json:"type"`
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Logger is a minimal logger interface required by notifiers.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Nop drops every event.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Event) error { return nil }

// Multi delivers an event to every notifier and joins their errors.
type Multi []Notifier

// Notify forwards ev to all notifiers.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
