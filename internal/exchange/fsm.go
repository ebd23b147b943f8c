// Package exchange coordinates the time-boxed, mutually confirmed handover
// of a matched item between the founder and the owner.
package exchange

import "finderguard/internal/models"

// Status constants used by the exchange state machine.
const (
	StatusNone             = models.ExchangeStatusNone
	StatusFounderConfirmed = models.ExchangeStatusFounderConfirmed
	StatusCompleted        = models.ExchangeStatusCompleted
	StatusExpired          = models.ExchangeStatusExpired
)

var transitions = map[string]map[string]struct{}{
	StatusNone:             {StatusFounderConfirmed: {}},
	StatusFounderConfirmed: {StatusCompleted: {}, StatusExpired: {}},
	StatusCompleted:        {},
	StatusExpired:          {},
}

// CanTransition returns whether an exchange can move from one status to another.
func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	allowed, ok := transitions[status]
	return ok && len(allowed) == 0
}

// checkTransition returns the error a caller sees when from -> to is not allowed.
func checkTransition(from, to string) error {
	if CanTransition(from, to) {
		return nil
	}
	switch from {
	case StatusCompleted:
		return ErrExchangeCompleted
	case StatusExpired:
		return ErrExchangeExpired
	case StatusNone:
		if to == StatusCompleted || to == StatusExpired {
			return ErrExchangeNotStarted
		}
	case StatusFounderConfirmed:
		if to == StatusFounderConfirmed {
			return ErrAlreadyStarted
		}
	}
	return ErrInvalidTransition
}
