package services

import (
	"context"
	"errors"
	"fmt"

	"finderguard/internal/models"
	"finderguard/internal/notify"
)

type MatchService struct {
	Matches  MatchStore
	Items    ItemStore
	Notifier notify.Notifier
	Logger   Logger
}

// ListByUser lists the matches userID takes part in.
func (s *MatchService) ListByUser(ctx context.Context, userID string) ([]models.Match, error) {
	return s.Matches.ListByUser(ctx, userID)
}

// Get returns a match visible to userID.
func (s *MatchService) Get(ctx context.Context, userID, id string) (models.Match, error) {
	m, err := s.Matches.Get(ctx, id)
	if errors.Is(err, models.ErrNoRecord) {
		return models.Match{}, models.ErrMatchNotFound
	}
	if err != nil {
		return models.Match{}, err
	}
	if !m.Involves(userID) {
		return models.Match{}, models.ErrForbidden
	}
	return m, nil
}

// Accept confirms a pending match on behalf of the owner of the lost item
// and takes both items out of the open pool.
func (s *MatchService) Accept(ctx context.Context, userID, id string) (models.Match, error) {
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Match{}, err
	}
	if m.LostUserID != userID {
		return models.Match{}, models.ErrForbidden
	}
	if m.Status != models.MatchStatusPending {
		return models.Match{}, models.ErrMatchClosed
	}
	ids := []string{m.LostItemID, m.FoundItemID}
	for _, itemID := range ids {
		it, err := s.Items.Get(ctx, itemID)
		if errors.Is(err, models.ErrNoRecord) {
			return models.Match{}, models.ErrItemNotFound
		}
		if err != nil {
			return models.Match{}, err
		}
		if it.Status != models.ItemStatusOpen {
			return models.Match{}, models.ErrItemNotOpen
		}
	}

	// claim the items first; a competing match for either item loses here
	if err := s.Items.SetStatus(ctx, ids, models.ItemStatusOpen, models.ItemStatusMatched); err != nil {
		if errors.Is(err, models.ErrStaleWrite) {
			return models.Match{}, models.ErrItemNotOpen
		}
		return models.Match{}, fmt.Errorf("claim items: %w", err)
	}
	if err := s.Matches.UpdateStatus(ctx, id, models.MatchStatusPending, models.MatchStatusAccepted); err != nil {
		if rerr := s.Items.SetStatus(ctx, ids, models.ItemStatusMatched, models.ItemStatusOpen); rerr != nil {
			s.errorf("match %s: release items: %v", id, rerr)
		}
		if errors.Is(err, models.ErrStaleWrite) {
			return models.Match{}, models.ErrMatchClosed
		}
		return models.Match{}, err
	}
	m.Status = models.MatchStatusAccepted

	s.send(ctx, notify.Event{
		Type:   notify.EventMatchAccepted,
		UserID: m.FoundUserID,
		Title:  "Match accepted",
		Body:   "The owner confirmed the item is theirs. Arrange the handover.",
		Data:   map[string]string{"match_id": m.ID},
	})
	return m, nil
}

// Reject dismisses a match that has no running exchange. Items of an
// accepted match return to the open pool.
func (s *MatchService) Reject(ctx context.Context, userID, id string) (models.Match, error) {
	m, err := s.Get(ctx, userID, id)
	if err != nil {
		return models.Match{}, err
	}
	if m.LostUserID != userID {
		return models.Match{}, models.ErrForbidden
	}
	reopen := false
	switch {
	case m.Status == models.MatchStatusPending:
	case m.Status == models.MatchStatusAccepted && m.ExchangeStatus != models.ExchangeStatusFounderConfirmed &&
		m.ExchangeStatus != models.ExchangeStatusCompleted:
		reopen = m.ExchangeStatus == models.ExchangeStatusNone
	default:
		return models.Match{}, models.ErrMatchClosed
	}

	if err := s.Matches.UpdateStatus(ctx, id, m.Status, models.MatchStatusRejected); err != nil {
		if errors.Is(err, models.ErrStaleWrite) {
			return models.Match{}, models.ErrMatchClosed
		}
		return models.Match{}, err
	}
	if reopen {
		err := s.Items.SetStatus(ctx, []string{m.LostItemID, m.FoundItemID}, models.ItemStatusMatched, models.ItemStatusOpen)
		switch {
		case errors.Is(err, models.ErrStaleWrite):
			// an item was deleted by its owner meanwhile
			s.errorf("match %s: items not reopened: %v", id, err)
		case err != nil:
			return models.Match{}, fmt.Errorf("reopen items: %w", err)
		}
	}
	m.Status = models.MatchStatusRejected

	s.send(ctx, notify.Event{
		Type:   notify.EventMatchRejected,
		UserID: m.FoundUserID,
		Title:  "Match rejected",
		Body:   "The owner says this is not their item.",
		Data:   map[string]string{"match_id": m.ID},
	})
	return m, nil
}

func (s *MatchService) send(ctx context.Context, ev notify.Event) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, ev); err != nil {
		s.errorf("notify %s about %s: %v", ev.UserID, ev.Type, err)
	}
}

func (s *MatchService) errorf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Errorf(format, args...)
	}
}
