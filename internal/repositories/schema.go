package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id VARCHAR(64) PRIMARY KEY,
		owner_id VARCHAR(128) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		title VARCHAR(255) NOT NULL DEFAULT '',
		category VARCHAR(128) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		color_tokens TEXT,
		brand_token VARCHAR(64) NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NULL,
		lng DOUBLE PRECISION NULL,
		address VARCHAR(255) NOT NULL DEFAULT '',
		image TEXT,
		priority VARCHAR(16) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		private_details TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_items_open ON items (status, kind, category)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id VARCHAR(64) PRIMARY KEY,
		lost_item_id VARCHAR(64) NOT NULL,
		found_item_id VARCHAR(64) NOT NULL,
		lost_user_id VARCHAR(128) NOT NULL,
		found_user_id VARCHAR(128) NOT NULL,
		confidence INT NOT NULL,
		reason TEXT,
		source VARCHAR(16) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		exchange_status VARCHAR(32) NOT NULL,
		exchange_start_time DATETIME NULL,
		exchange_confirmed_by TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_matches_exchange ON matches (exchange_status)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		uid VARCHAR(128) PRIMARY KEY,
		username VARCHAR(128) NOT NULL DEFAULT '',
		trust_score INT NOT NULL,
		reports_count INT NOT NULL DEFAULT 0,
		failed_exchanges INT NOT NULL DEFAULT 0,
		joined_at DATETIME NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		token VARCHAR(255) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// EnsureSchema creates missing tables. Index creation failures on existing
// indexes are ignored.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range schema {
		if dialect == DialectPostgres {
			stmt = strings.ReplaceAll(stmt, "DATETIME", "TIMESTAMP")
			stmt = strings.Replace(stmt, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if strings.HasPrefix(stmt, "CREATE INDEX") {
				continue
			}
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
