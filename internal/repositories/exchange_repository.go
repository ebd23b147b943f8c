package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finderguard/internal/models"
)

// ExchangeRepository persists exchange transitions. Terminal transitions
// run in a single transaction together with their item and trust effects.
type ExchangeRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func (r *ExchangeRepository) GetMatch(ctx context.Context, id string) (models.Match, error) {
	return getMatch(ctx, r.DB, r.Dialect, id)
}

func (r *ExchangeRepository) GetItem(ctx context.Context, id string) (models.Item, error) {
	return getItem(ctx, r.DB, r.Dialect, id)
}

func (r *ExchangeRepository) ListAwaitingOwner(ctx context.Context) ([]models.Match, error) {
	matches := &MatchRepository{DB: r.DB, Dialect: r.Dialect}
	return matches.ListAwaitingOwner(ctx)
}

// StartExchange stores m if no exchange was started yet.
func (r *ExchangeRepository) StartExchange(ctx context.Context, m models.Match) error {
	return updateMatch(ctx, r.DB, r.Dialect, m, models.ExchangeStatusNone)
}

// CompleteExchange stores m, deletes both items and rewards the founder.
func (r *ExchangeRepository) CompleteExchange(ctx context.Context, m models.Match, adjust func(models.Profile) models.Profile) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateMatch(ctx, tx, r.Dialect, m, models.ExchangeStatusFounderConfirmed); err != nil {
			return err
		}
		query := r.Dialect.Rebind(`DELETE FROM items WHERE id IN (?, ?)`)
		if _, err := tx.ExecContext(ctx, query, m.LostItemID, m.FoundItemID); err != nil {
			return fmt.Errorf("delete exchanged items: %w", err)
		}
		return r.adjustProfile(ctx, tx, m.FoundUserID, adjust)
	})
}

// ExpireExchange stores m, reopens both items and penalises the founder.
func (r *ExchangeRepository) ExpireExchange(ctx context.Context, m models.Match, adjust func(models.Profile) models.Profile) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateMatch(ctx, tx, r.Dialect, m, models.ExchangeStatusFounderConfirmed); err != nil {
			return err
		}
		ids := []string{m.LostItemID, m.FoundItemID}
		if _, err := setItemStatus(ctx, tx, r.Dialect, ids, models.ItemStatusMatched, models.ItemStatusOpen); err != nil {
			return fmt.Errorf("reopen items: %w", err)
		}
		return r.adjustProfile(ctx, tx, m.FoundUserID, adjust)
	})
}

// adjustProfile locks the profile row, creating a default profile for users
// who never onboarded.
func (r *ExchangeRepository) adjustProfile(ctx context.Context, tx *sql.Tx, uid string, adjust func(models.Profile) models.Profile) error {
	row := tx.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE uid = ? FOR UPDATE`), uid)
	p, err := scanProfile(row)
	switch {
	case errors.Is(err, models.ErrNoRecord):
		p = models.Profile{UID: uid, TrustScore: models.InitialTrustScore, JoinedAt: time.Now().UTC()}
		if err := insertProfile(ctx, tx, r.Dialect, adjust(p)); err != nil {
			return fmt.Errorf("create founder profile: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lock founder profile: %w", err)
	}
	return updateProfile(ctx, tx, r.Dialect, adjust(p))
}

func (r *ExchangeRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
