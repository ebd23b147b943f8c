package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"finderguard/internal/exchange"
	"finderguard/internal/models"
	"finderguard/utils"
)

// errorStatus maps a domain error to the HTTP status returned to clients.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidKind),
		errors.Is(err, models.ErrKindImmutable),
		errors.Is(err, utils.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, exchange.ErrNotFounder),
		errors.Is(err, exchange.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNoRecord),
		errors.Is(err, models.ErrItemNotFound),
		errors.Is(err, models.ErrMatchNotFound),
		errors.Is(err, models.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrProfileExists),
		errors.Is(err, models.ErrItemNotOpen),
		errors.Is(err, models.ErrItemInExchange),
		errors.Is(err, models.ErrMatchClosed),
		errors.Is(err, exchange.ErrInvalidTransition),
		errors.Is(err, exchange.ErrExchangeNotStarted),
		errors.Is(err, exchange.ErrAlreadyStarted),
		errors.Is(err, exchange.ErrExchangeCompleted),
		errors.Is(err, exchange.ErrExchangeExpired),
		errors.Is(err, exchange.ErrMatchNotAccepted),
		errors.Is(err, exchange.ErrStaleMatch),
		errors.Is(err, exchange.ErrConcurrentTransition):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Logger is a minimal logger interface required by handlers.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// writeError answers with the status of err. Internal errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, logger Logger, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Errorf("%v", err)
		}
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
