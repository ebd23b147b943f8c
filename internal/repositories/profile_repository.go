package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finderguard/internal/models"
)

const profileColumns = `uid, username, trust_score, reports_count, failed_exchanges, joined_at, is_verified`

type ProfileRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func scanProfile(row rowScanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.UID, &p.Username, &p.TrustScore, &p.ReportsCount, &p.FailedExchanges, &p.JoinedAt, &p.IsVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, models.ErrNoRecord
	}
	p.JoinedAt = p.JoinedAt.UTC()
	return p, err
}

// Get returns a profile by uid or models.ErrNoRecord.
func (r *ProfileRepository) Get(ctx context.Context, uid string) (models.Profile, error) {
	return scanProfile(r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE uid = ?`), uid))
}

// Create stores a new profile. It returns models.ErrProfileExists when the
// uid is taken.
func (r *ProfileRepository) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	if err := insertProfile(ctx, r.DB, r.Dialect, p); err != nil {
		if isDuplicate(err) {
			return models.Profile{}, models.ErrProfileExists
		}
		return models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func insertProfile(ctx context.Context, q queryer, d Dialect, p models.Profile) error {
	_, err := q.ExecContext(ctx, d.Rebind(`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		p.UID, p.Username, p.TrustScore, p.ReportsCount, p.FailedExchanges, p.JoinedAt.UTC(), p.IsVerified)
	return err
}

// Update writes the profile.
func (r *ProfileRepository) Update(ctx context.Context, p models.Profile) error {
	return updateProfile(ctx, r.DB, r.Dialect, p)
}

func updateProfile(ctx context.Context, q queryer, d Dialect, p models.Profile) error {
	_, err := q.ExecContext(ctx, d.Rebind(`UPDATE profiles SET username = ?, trust_score = ?, reports_count = ?,
		failed_exchanges = ?, is_verified = ? WHERE uid = ?`),
		p.Username, p.TrustScore, p.ReportsCount, p.FailedExchanges, p.IsVerified, p.UID)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", p.UID, err)
	}
	return nil
}
