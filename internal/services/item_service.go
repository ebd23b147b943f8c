package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finderguard/internal/matching"
	"finderguard/internal/models"
	"finderguard/internal/notify"
	"finderguard/internal/timeutil"
)

// Logger is a minimal logger interface required by services.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type ItemStore interface {
	Get(ctx context.Context, id string) (models.Item, error)
	Add(ctx context.Context, it models.Item) (models.Item, error)
	// Update stores the editable fields of it. Status is not written.
	Update(ctx context.Context, it models.Item) error
	Delete(ctx context.Context, id string) error
	// SetStatus moves all of ids from status from to to, or none of them
	// with models.ErrStaleWrite.
	SetStatus(ctx context.Context, ids []string, from, to string) error
	ListOpenByKindAndCategory(ctx context.Context, kind, category string) ([]models.Item, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Item, error)
}

type MatchStore interface {
	Create(ctx context.Context, m models.Match) (models.Match, error)
	Get(ctx context.Context, id string) (models.Match, error)
	UpdateStatus(ctx context.Context, id, from, to string) error
	ListByUser(ctx context.Context, userID string) ([]models.Match, error)
	ListByItem(ctx context.Context, itemID string) ([]models.Match, error)
}

type Ranker interface {
	Rank(ctx context.Context, subject models.Item) []models.Match
}

type ImageUploader interface {
	Store(ctx context.Context, image, folder string) (string, error)
}

// ReportResult is the stored item together with the matches found for it.
type ReportResult struct {
	Item    models.Item    `json:"item"`
	Matches []models.Match `json:"matches"`
}

type ItemService struct {
	Items    ItemStore
	Matches  MatchStore
	Ranker   Ranker
	Images   ImageUploader
	Notifier notify.Notifier
	Clock    timeutil.Clock
	Logger   Logger
}

func (s *ItemService) now() timeutil.Clock {
	if s.Clock == nil {
		return timeutil.System{}
	}
	return s.Clock
}

// Report stores a new lost or found item and records the matches it has
// with open items of the opposite kind.
func (s *ItemService) Report(ctx context.Context, ownerID string, it models.Item) (ReportResult, error) {
	if ownerID == "" {
		return ReportResult{}, models.ErrForbidden
	}
	it.ID = ""
	it.OwnerID = ownerID
	it.Status = models.ItemStatusOpen
	it.CreatedAt = s.now().Now()
	if err := normalizeItem(&it); err != nil {
		return ReportResult{}, err
	}
	if err := s.storeImage(ctx, &it); err != nil {
		return ReportResult{}, err
	}

	stored, err := s.Items.Add(ctx, it)
	if err != nil {
		return ReportResult{}, fmt.Errorf("add item: %w", err)
	}

	matches := []models.Match{}
	for _, m := range s.Ranker.Rank(ctx, stored) {
		m.CreatedAt = stored.CreatedAt
		created, err := s.Matches.Create(ctx, m)
		if err != nil {
			s.errorf("item %s: store match with %s: %v", stored.ID, counterpart(m, stored.ID), err)
			continue
		}
		matches = append(matches, created)
		s.announce(ctx, created)
	}
	if len(matches) > 0 {
		s.infof("item %s reported by %s with %d matches", stored.ID, ownerID, len(matches))
	}
	return ReportResult{Item: stored, Matches: matches}, nil
}

// Get returns the item as seen by userID.
func (s *ItemService) Get(ctx context.Context, userID, id string) (models.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	return it.ViewFor(userID), nil
}

// ListOpen lists open items of a kind as seen by userID.
func (s *ItemService) ListOpen(ctx context.Context, userID, kind, category string) ([]models.Item, error) {
	if !models.ValidKind(kind) {
		return nil, models.ErrInvalidKind
	}
	items, err := s.Items.ListOpenByKindAndCategory(ctx, kind, category)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = items[i].ViewFor(userID)
	}
	return items, nil
}

// ListMine lists every item reported by userID.
func (s *ItemService) ListMine(ctx context.Context, userID string) ([]models.Item, error) {
	return s.Items.ListByOwner(ctx, userID)
}

// Update applies patch to an item owned by userID. The kind of an item never
// changes.
func (s *ItemService) Update(ctx context.Context, userID, id string, patch models.ItemPatch) (models.Item, error) {
	it, err := s.load(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	if it.OwnerID != userID {
		return models.Item{}, models.ErrForbidden
	}
	if patch.Kind != nil && *patch.Kind != it.Kind {
		return models.Item{}, models.ErrKindImmutable
	}

	descriptionChanged := false
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	if patch.Description != nil && *patch.Description != it.Description {
		it.Description = *patch.Description
		descriptionChanged = true
	}
	if patch.ColorTokens != nil {
		it.ColorTokens = patch.ColorTokens
	} else if descriptionChanged {
		it.ColorTokens = nil
	}
	if patch.BrandToken != nil {
		it.BrandToken = *patch.BrandToken
	} else if descriptionChanged {
		it.BrandToken = ""
	}
	if patch.Location != nil {
		it.Location = patch.Location
	}
	if patch.Priority != nil {
		it.Priority = *patch.Priority
	}
	if patch.PrivateDetails != nil {
		it.PrivateDetails = patch.PrivateDetails
	}
	closing := false
	if patch.Status != nil && *patch.Status != it.Status {
		// owners may only close an open report themselves
		if it.Status != models.ItemStatusOpen || *patch.Status != models.ItemStatusCompleted {
			return models.Item{}, fmt.Errorf("%w: status cannot change from %s to %s", models.ErrValidation, it.Status, *patch.Status)
		}
		closing = true
	}
	if patch.Image != nil {
		it.Image = *patch.Image
		if err := s.storeImage(ctx, &it); err != nil {
			return models.Item{}, err
		}
	}
	if err := normalizeItem(&it); err != nil {
		return models.Item{}, err
	}

	if err := s.Items.Update(ctx, it); err != nil {
		return models.Item{}, err
	}
	if closing {
		err := s.Items.SetStatus(ctx, []string{it.ID}, models.ItemStatusOpen, models.ItemStatusCompleted)
		if errors.Is(err, models.ErrStaleWrite) {
			return models.Item{}, models.ErrItemNotOpen
		}
		if err != nil {
			return models.Item{}, err
		}
		it.Status = models.ItemStatusCompleted
	}
	return it, nil
}

// Delete removes an item owned by userID unless it is being handed over.
func (s *ItemService) Delete(ctx context.Context, userID, id string) error {
	it, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if it.OwnerID != userID {
		return models.ErrForbidden
	}
	matches, err := s.Matches.ListByItem(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ExchangeStatus == models.ExchangeStatusFounderConfirmed {
			return models.ErrItemInExchange
		}
	}
	return s.Items.Delete(ctx, id)
}

func (s *ItemService) load(ctx context.Context, id string) (models.Item, error) {
	it, err := s.Items.Get(ctx, id)
	if errors.Is(err, models.ErrNoRecord) {
		return models.Item{}, models.ErrItemNotFound
	}
	return it, err
}

func (s *ItemService) storeImage(ctx context.Context, it *models.Item) error {
	if s.Images == nil || it.Image == "" {
		return nil
	}
	url, err := s.Images.Store(ctx, it.Image, "items")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	it.Image = url
	return nil
}

// announce tells both parties about a new match.
func (s *ItemService) announce(ctx context.Context, m models.Match) {
	if s.Notifier == nil {
		return
	}
	for _, uid := range []string{m.LostUserID, m.FoundUserID} {
		err := s.Notifier.Notify(ctx, notify.Event{
			Type:   notify.EventMatchFound,
			UserID: uid,
			Title:  "Possible match found",
			Body:   fmt.Sprintf("We found an item that matches yours with %d%% confidence", m.Confidence),
			Data:   map[string]string{"match_id": m.ID},
		})
		if err != nil {
			s.errorf("notify %s about match %s: %v", uid, m.ID, err)
		}
	}
}

// normalizeItem validates an item and fills its colour and brand tokens from
// the public text when none were given.
func normalizeItem(it *models.Item) error {
	if !models.ValidKind(it.Kind) {
		return models.ErrInvalidKind
	}
	it.Title = strings.TrimSpace(it.Title)
	it.Category = strings.TrimSpace(it.Category)
	it.Description = strings.TrimSpace(it.Description)
	if it.Description == "" && it.Title == "" {
		return fmt.Errorf("%w: title or description is required", models.ErrValidation)
	}
	switch it.Priority {
	case "":
		it.Priority = models.PriorityMedium
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		return fmt.Errorf("%w: unknown priority %q", models.ErrValidation, it.Priority)
	}
	if it.Location != nil && (it.Location.Lat < -90 || it.Location.Lat > 90 || it.Location.Lng < -180 || it.Location.Lng > 180) {
		return fmt.Errorf("%w: location out of range", models.ErrValidation)
	}

	f := matching.Extract(*it)
	it.ColorTokens = f.ColorList()
	it.BrandToken = f.Brand
	return nil
}

func counterpart(m models.Match, itemID string) string {
	if m.LostItemID == itemID {
		return m.FoundItemID
	}
	return m.LostItemID
}

func (s *ItemService) infof(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Infof(format, args...)
	}
}

func (s *ItemService) errorf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Errorf(format, args...)
	}
}
