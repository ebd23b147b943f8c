package repositories

import (
	"context"
	"database/sql"
	"time"

	"finderguard/internal/models"
)

type DeviceTokenRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

// Save registers a push token for a user. A token moves to the latest user
// that registered it.
func (r *DeviceTokenRepository) Save(ctx context.Context, t models.DeviceToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM device_tokens WHERE token = ?`), t.Token); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`INSERT INTO device_tokens (token, user_id, created_at) VALUES (?, ?, ?)`),
		t.Token, t.UserID, t.CreatedAt.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete unregisters a token.
func (r *DeviceTokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM device_tokens WHERE token = ?`), token)
	return err
}

// TokensByUser lists the tokens registered by userID.
func (r *DeviceTokenRepository) TokensByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`SELECT token FROM device_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
