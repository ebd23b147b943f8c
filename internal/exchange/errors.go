package exchange

import "errors"

var (
	ErrInvalidTransition    = errors.New("invalid exchange transition")
	ErrExchangeNotStarted   = errors.New("cannot confirm: the founder has not handed the item over yet")
	ErrAlreadyStarted       = errors.New("exchange already started")
	ErrExchangeCompleted    = errors.New("cannot confirm: exchange already completed")
	ErrExchangeExpired      = errors.New("cannot confirm: exchange already expired")
	ErrNotFounder           = errors.New("only the user who found the item can start the exchange")
	ErrNotOwner             = errors.New("only the owner of the lost item can confirm the exchange")
	ErrMatchNotAccepted     = errors.New("match must be accepted before an exchange")
	ErrStaleMatch           = errors.New("match refers to items that no longer exist")
	ErrNotDue               = errors.New("exchange deadline has not passed yet")
	ErrConcurrentTransition = errors.New("exchange was changed by another request")
)
