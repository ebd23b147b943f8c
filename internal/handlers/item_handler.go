package handlers

import (
	"context"
	"net/http"

	"finderguard/internal/models"
	"finderguard/internal/services"
)

type ItemService interface {
	Report(ctx context.Context, ownerID string, it models.Item) (services.ReportResult, error)
	Get(ctx context.Context, userID, id string) (models.Item, error)
	ListOpen(ctx context.Context, userID, kind, category string) ([]models.Item, error)
	ListMine(ctx context.Context, userID string) ([]models.Item, error)
	Update(ctx context.Context, userID, id string, patch models.ItemPatch) (models.Item, error)
	Delete(ctx context.Context, userID, id string) error
}

type ItemHandler struct {
	Service ItemService
	Logger  Logger
}

// ReportItem stores a lost or found item and answers with the matches found
// for it.
func (h *ItemHandler) ReportItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var it models.Item
	if !decodeJSON(w, r, &it) {
		return
	}
	res, err := h.Service.Report(r.Context(), userID, it)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	it, err := h.Service.Get(r.Context(), userID, pathParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// ListItems lists open items by kind and category, or the caller's own items
// when mine=true.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var (
		items []models.Item
		err   error
	)
	if q.Get("mine") == "true" {
		items, err = h.Service.ListMine(r.Context(), userID)
	} else {
		items, err = h.Service.ListOpen(r.Context(), userID, q.Get("kind"), q.Get("category"))
	}
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch models.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	it, err := h.Service.Update(r.Context(), userID, pathParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), userID, pathParam(r, "id")); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
