package models

import (
	"errors"
)

var (
	ErrNoRecord        = errors.New("models: no matching record found")
	ErrItemNotFound    = errors.New("item not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
	ErrForbidden       = errors.New("models: action not allowed for this user")
	ErrKindImmutable   = errors.New("item kind cannot be changed")
	ErrInvalidKind     = errors.New("item kind must be lost or found")
	ErrItemNotOpen     = errors.New("item is no longer open")
	ErrStaleWrite      = errors.New("models: record changed concurrently")
	ErrValidation      = errors.New("invalid input")
	ErrItemInExchange  = errors.New("item is part of a running exchange")
	ErrMatchClosed     = errors.New("match can no longer be reviewed")
)
