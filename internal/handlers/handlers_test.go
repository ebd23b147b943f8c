package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finderguard/internal/exchange"
	"finderguard/internal/models"
	"finderguard/internal/services"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", models.ErrValidation), http.StatusBadRequest},
		{models.ErrKindImmutable, http.StatusBadRequest},
		{models.ErrForbidden, http.StatusForbidden},
		{exchange.ErrNotOwner, http.StatusForbidden},
		{models.ErrMatchNotFound, http.StatusNotFound},
		{models.ErrProfileExists, http.StatusConflict},
		{exchange.ErrExchangeExpired, http.StatusConflict},
		{exchange.ErrExchangeNotStarted, http.StatusConflict},
		{fmt.Errorf("store: %w", exchange.ErrConcurrentTransition), http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

type stubItems struct {
	reported models.Item
	err      error
}

func (s *stubItems) Report(_ context.Context, ownerID string, it models.Item) (services.ReportResult, error) {
	if s.err != nil {
		return services.ReportResult{}, s.err
	}
	it.ID = "item-1"
	it.OwnerID = ownerID
	s.reported = it
	return services.ReportResult{Item: it, Matches: []models.Match{}}, nil
}

func (s *stubItems) Get(_ context.Context, userID, id string) (models.Item, error) {
	if id != "item-1" {
		return models.Item{}, models.ErrItemNotFound
	}
	return models.Item{ID: id, OwnerID: "alice"}, nil
}

func (s *stubItems) ListOpen(context.Context, string, string, string) ([]models.Item, error) {
	return nil, nil
}

func (s *stubItems) ListMine(context.Context, string) ([]models.Item, error) {
	return nil, nil
}

func (s *stubItems) Update(context.Context, string, string, models.ItemPatch) (models.Item, error) {
	return models.Item{}, models.ErrKindImmutable
}

func (s *stubItems) Delete(context.Context, string, string) error { return models.ErrItemInExchange }

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(WithUserID(r.Context(), userID))
}

func TestItemHandler(t *testing.T) {
	svc := &stubItems{}
	h := &ItemHandler{Service: svc}

	t.Run("requires a user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ReportItem(rec, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{}`)))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := `{"kind":"lost","title":"Wallet","description":"black wallet"}`
		h.ReportItem(rec, authed(httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body)), "alice"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}
		var res services.ReportResult
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Item.ID != "item-1" || svc.reported.OwnerID != "alice" || svc.reported.Kind != models.KindLost {
			t.Fatalf("unexpected result %+v", res)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ReportItem(rec, authed(httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{`)), "alice"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get by path param", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetItem(rec, authed(httptest.NewRequest(http.MethodGet, "/items/item-1?:id=item-1", nil), "bob"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		rec = httptest.NewRecorder()
		h.GetItem(rec, authed(httptest.NewRequest(http.MethodGet, "/items/nope?:id=nope", nil), "bob"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("list returns an empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ListItems(rec, authed(httptest.NewRequest(http.MethodGet, "/items?kind=lost", nil), "bob"))
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("unexpected response %d %q", rec.Code, rec.Body)
		}
	})

	t.Run("delete during exchange", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.DeleteItem(rec, authed(httptest.NewRequest(http.MethodDelete, "/items/item-1?:id=item-1", nil), "alice"))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

type stubMachine struct {
	confirmErr error
}

func (s *stubMachine) FounderConfirm(_ context.Context, matchID, userID string) (models.Match, error) {
	return models.Match{ID: matchID, ExchangeStatus: models.ExchangeStatusFounderConfirmed}, nil
}

func (s *stubMachine) OwnerConfirm(_ context.Context, matchID, userID string) (models.Match, error) {
	return models.Match{}, s.confirmErr
}

func (s *stubMachine) Status(_ context.Context, matchID string) (exchange.Snapshot, error) {
	return exchange.Snapshot{Match: models.Match{ID: matchID}, RemainingSeconds: 241}, nil
}

type stubMatches struct{}

func (stubMatches) ListByUser(context.Context, string) ([]models.Match, error) { return nil, nil }

func (stubMatches) Get(_ context.Context, userID, id string) (models.Match, error) {
	if userID != "alice" && userID != "bob" {
		return models.Match{}, models.ErrForbidden
	}
	return models.Match{ID: id}, nil
}

func (stubMatches) Accept(context.Context, string, string) (models.Match, error) {
	return models.Match{}, models.ErrMatchClosed
}

func (stubMatches) Reject(context.Context, string, string) (models.Match, error) {
	return models.Match{}, nil
}

func TestExchangeHandler(t *testing.T) {
	h := &ExchangeHandler{Machine: &stubMachine{confirmErr: exchange.ErrExchangeExpired}, Matches: stubMatches{}}

	rec := httptest.NewRecorder()
	h.GetExchange(rec, authed(httptest.NewRequest(http.MethodGet, "/matches/m1/exchange?:id=m1", nil), "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap exchange.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil || snap.RemainingSeconds != 241 {
		t.Fatalf("unexpected snapshot %+v %v", snap, err)
	}

	rec = httptest.NewRecorder()
	h.GetExchange(rec, authed(httptest.NewRequest(http.MethodGet, "/matches/m1/exchange?:id=m1", nil), "carol"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ConfirmReceipt(rec, authed(httptest.NewRequest(http.MethodPost, "/matches/m1/exchange/confirm?:id=m1", nil), "alice"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != exchange.ErrExchangeExpired.Error() {
		t.Fatalf("unexpected error body %v", body)
	}

	mh := &MatchHandler{Service: stubMatches{}}
	rec = httptest.NewRecorder()
	mh.AcceptMatch(rec, authed(httptest.NewRequest(http.MethodPost, "/matches/m1/accept?:id=m1", nil), "alice"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

type recLogger struct {
	errors []string
}

func (l *recLogger) Infof(string, ...interface{}) {}

func (l *recLogger) Errorf(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func TestInternalErrorsAreLoggedAndHidden(t *testing.T) {
	logger := &recLogger{}
	h := &ItemHandler{Service: &stubItems{err: errors.New("db: connection refused")}, Logger: logger}

	rec := httptest.NewRecorder()
	body := `{"kind":"lost","title":"Wallet","description":"black wallet"}`
	h.ReportItem(rec, authed(httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body)), "alice"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("internal error leaked to client: %s", rec.Body)
	}
	if len(logger.errors) != 1 || !strings.Contains(logger.errors[0], "connection refused") {
		t.Fatalf("expected the error to be logged once, got %v", logger.errors)
	}

	logger.errors = nil
	h.Service = &stubItems{err: models.ErrForbidden}
	rec = httptest.NewRecorder()
	h.ReportItem(rec, authed(httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(body)), "alice"))
	if rec.Code != http.StatusForbidden || len(logger.errors) != 0 {
		t.Fatalf("client errors are not logged: %d %v", rec.Code, logger.errors)
	}
}

func TestPathParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/items/item-1?:id=item-1", nil)
	if got := pathParam(r, "id"); got != "item-1" {
		t.Fatalf("pat variable: got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/items?id=item-1", nil)
	if got := pathParam(r, "id"); got != "" {
		t.Fatalf("plain query value must not act as a path variable, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/items/item-2", nil)
	r.SetPathValue("id", "item-2")
	if got := pathParam(r, "id"); got != "item-2" {
		t.Fatalf("ServeMux variable: got %q", got)
	}
}
