package handlers

import (
	"context"
	"net/http"

	"finderguard/internal/models"
)

type ProfileService interface {
	Onboard(ctx context.Context, uid, username string) (models.Profile, error)
	Get(ctx context.Context, uid string) (models.Profile, error)
	Rename(ctx context.Context, uid, username string) (models.Profile, error)
	RegisterDevice(ctx context.Context, uid, token string) error
	UnregisterDevice(ctx context.Context, token string) error
}

type ProfileHandler struct {
	Service ProfileService
	Logger  Logger
}

type profileRequest struct {
	Username string `json:"username"`
}

type deviceTokenRequest struct {
	Token string `json:"token"`
}

func (h *ProfileHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Service.Onboard(r.Context(), userID, req.Username)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.write(w, r, userID)
}

// GetProfile returns the public profile of another user.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	h.write(w, r, pathParam(r, "uid"))
}

func (h *ProfileHandler) write(w http.ResponseWriter, r *http.Request, uid string) {
	p, err := h.Service.Get(r.Context(), uid)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Service.Rename(r.Context(), userID, req.Username)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req deviceTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Service.RegisterDevice(r.Context(), userID, req.Token); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	if err := h.Service.UnregisterDevice(r.Context(), pathParam(r, "token")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
