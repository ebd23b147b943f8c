package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finderguard/internal/models"
)

const matchColumns = `id, lost_item_id, found_item_id, lost_user_id, found_user_id, confidence, reason, source,
	status, exchange_status, exchange_start_time, exchange_confirmed_by, created_at`

type MatchRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func scanMatch(row rowScanner) (models.Match, error) {
	var (
		m         models.Match
		reason    sql.NullString
		started   sql.NullTime
		confirmed sql.NullString
	)
	err := row.Scan(&m.ID, &m.LostItemID, &m.FoundItemID, &m.LostUserID, &m.FoundUserID, &m.Confidence, &reason, &m.Source,
		&m.Status, &m.ExchangeStatus, &started, &confirmed, &m.CreatedAt)
	if err != nil {
		return models.Match{}, err
	}
	m.Reason = reason.String
	m.ExchangeStartTime = timePtr(started)
	m.ExchangeConfirmedBy = []string{}
	if err := unmarshalJSON(confirmed, &m.ExchangeConfirmedBy); err != nil {
		return models.Match{}, fmt.Errorf("match %s confirmations: %w", m.ID, err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func getMatch(ctx context.Context, q queryer, d Dialect, id string) (models.Match, error) {
	m, err := scanMatch(q.QueryRowContext(ctx, d.Rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Match{}, models.ErrNoRecord
	}
	return m, err
}

// Create stores a new match, assigning an id when empty.
func (r *MatchRepository) Create(ctx context.Context, m models.Match) (models.Match, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.ExchangeConfirmedBy == nil {
		m.ExchangeConfirmedBy = []string{}
	}
	confirmed, err := marshalJSON(m.ExchangeConfirmedBy)
	if err != nil {
		return models.Match{}, err
	}
	query := r.Dialect.Rebind(`INSERT INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.DB.ExecContext(ctx, query,
		m.ID, m.LostItemID, m.FoundItemID, m.LostUserID, m.FoundUserID, m.Confidence, m.Reason, m.Source,
		m.Status, m.ExchangeStatus, nullTime(m.ExchangeStartTime), confirmed, m.CreatedAt.UTC(),
	)
	if err != nil {
		return models.Match{}, fmt.Errorf("insert match: %w", err)
	}
	return m, nil
}

// Get returns a match by id or models.ErrNoRecord.
func (r *MatchRepository) Get(ctx context.Context, id string) (models.Match, error) {
	return getMatch(ctx, r.DB, r.Dialect, id)
}

// Update writes the match if its stored exchange status still equals
// expectedExchange. It returns models.ErrStaleWrite otherwise.
func (r *MatchRepository) Update(ctx context.Context, m models.Match, expectedExchange string) error {
	return updateMatch(ctx, r.DB, r.Dialect, m, expectedExchange)
}

func updateMatch(ctx context.Context, q queryer, d Dialect, m models.Match, expectedExchange string) error {
	confirmed, err := marshalJSON(m.ExchangeConfirmedBy)
	if err != nil {
		return err
	}
	query := d.Rebind(`UPDATE matches SET confidence = ?, reason = ?, source = ?, status = ?, exchange_status = ?,
		exchange_start_time = ?, exchange_confirmed_by = ? WHERE id = ? AND exchange_status = ?`)
	res, err := q.ExecContext(ctx, query,
		m.Confidence, m.Reason, m.Source, m.Status, m.ExchangeStatus,
		nullTime(m.ExchangeStartTime), confirmed, m.ID, expectedExchange,
	)
	if err != nil {
		return fmt.Errorf("update match %s: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrStaleWrite
	}
	return nil
}

// UpdateStatus moves the review status of a match from one value to another.
func (r *MatchRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`UPDATE matches SET status = ? WHERE id = ? AND status = ?`), to, id, from)
	if err != nil {
		return fmt.Errorf("update match %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrStaleWrite
	}
	return nil
}

// ListByUser lists matches where userID is either party, newest first.
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches WHERE lost_user_id = ? OR found_user_id = ?
		ORDER BY confidence DESC, created_at DESC`, userID, userID)
}

// ListByItem lists matches referencing itemID.
func (r *MatchRepository) ListByItem(ctx context.Context, itemID string) ([]models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches WHERE lost_item_id = ? OR found_item_id = ?`, itemID, itemID)
}

// ListAwaitingOwner lists matches whose founder has confirmed the handover.
func (r *MatchRepository) ListAwaitingOwner(ctx context.Context) ([]models.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches WHERE exchange_status = ?`, models.ExchangeStatusFounderConfirmed)
}

func (r *MatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
