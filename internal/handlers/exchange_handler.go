package handlers

import (
	"context"
	"net/http"

	"finderguard/internal/exchange"
	"finderguard/internal/models"
)

type ExchangeMachine interface {
	FounderConfirm(ctx context.Context, matchID, userID string) (models.Match, error)
	OwnerConfirm(ctx context.Context, matchID, userID string) (models.Match, error)
	Status(ctx context.Context, matchID string) (exchange.Snapshot, error)
}

type ExchangeHandler struct {
	Machine ExchangeMachine
	Matches MatchService
	Logger  Logger
}

// GetExchange returns the exchange state of a match with the seconds left
// before it expires.
func (h *ExchangeHandler) GetExchange(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	if _, err := h.Matches.Get(r.Context(), userID, id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	snap, err := h.Machine.Status(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GiveItem is called by the founder once the item is handed over.
func (h *ExchangeHandler) GiveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, err := h.Machine.FounderConfirm(r.Context(), pathParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ConfirmReceipt is called by the owner after receiving the item.
func (h *ExchangeHandler) ConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, err := h.Machine.OwnerConfirm(r.Context(), pathParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
