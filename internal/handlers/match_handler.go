package handlers

import (
	"context"
	"net/http"

	"finderguard/internal/models"
)

type MatchService interface {
	ListByUser(ctx context.Context, userID string) ([]models.Match, error)
	Get(ctx context.Context, userID, id string) (models.Match, error)
	Accept(ctx context.Context, userID, id string) (models.Match, error)
	Reject(ctx context.Context, userID, id string) (models.Match, error)
}

type MatchHandler struct {
	Service MatchService
	Logger  Logger
}

func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	matches, err := h.Service.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Service.Get)
}

func (h *MatchHandler) AcceptMatch(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Service.Accept)
}

func (h *MatchHandler) RejectMatch(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Service.Reject)
}

func (h *MatchHandler) respond(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, id string) (models.Match, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, err := op(r.Context(), userID, pathParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
