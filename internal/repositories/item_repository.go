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

const itemColumns = `id, owner_id, kind, title, category, description, color_tokens, brand_token,
	lat, lng, address, image, priority, status, private_details, created_at`

type ItemRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func scanItem(row rowScanner) (models.Item, error) {
	var (
		it       models.Item
		colors   sql.NullString
		private  sql.NullString
		image    sql.NullString
		lat, lng sql.NullFloat64
		address  string
	)
	err := row.Scan(&it.ID, &it.OwnerID, &it.Kind, &it.Title, &it.Category, &it.Description, &colors, &it.BrandToken,
		&lat, &lng, &address, &image, &it.Priority, &it.Status, &private, &it.CreatedAt)
	if err != nil {
		return models.Item{}, err
	}
	if err := unmarshalJSON(colors, &it.ColorTokens); err != nil {
		return models.Item{}, fmt.Errorf("item %s colors: %w", it.ID, err)
	}
	if private.Valid && private.String != "" && private.String != "null" {
		it.PrivateDetails = &models.PrivateDetails{}
		if err := unmarshalJSON(private, it.PrivateDetails); err != nil {
			return models.Item{}, fmt.Errorf("item %s private details: %w", it.ID, err)
		}
	}
	if lat.Valid && lng.Valid {
		it.Location = &models.GeoPoint{Lat: lat.Float64, Lng: lng.Float64, Address: address}
	}
	it.Image = image.String
	it.CreatedAt = it.CreatedAt.UTC()
	return it, nil
}

func itemArgs(it models.Item) ([]interface{}, error) {
	colors, err := marshalJSON(it.ColorTokens)
	if err != nil {
		return nil, err
	}
	var private sql.NullString
	if it.PrivateDetails != nil {
		raw, err := marshalJSON(it.PrivateDetails)
		if err != nil {
			return nil, err
		}
		private = sql.NullString{String: raw, Valid: true}
	}
	var lat, lng sql.NullFloat64
	address := ""
	if it.Location != nil {
		lat = sql.NullFloat64{Float64: it.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: it.Location.Lng, Valid: true}
		address = it.Location.Address
	}
	return []interface{}{
		it.OwnerID, it.Kind, it.Title, it.Category, it.Description, colors, it.BrandToken,
		lat, lng, address, it.Image, it.Priority, it.Status, private, it.CreatedAt.UTC(),
	}, nil
}

func getItem(ctx context.Context, q queryer, d Dialect, id string) (models.Item, error) {
	query := d.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE id = ?`)
	it, err := scanItem(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, models.ErrNoRecord
	}
	return it, err
}

// Get returns an item by id or models.ErrNoRecord.
func (r *ItemRepository) Get(ctx context.Context, id string) (models.Item, error) {
	return getItem(ctx, r.DB, r.Dialect, id)
}

// Add stores a new item, assigning an id when empty.
func (r *ItemRepository) Add(ctx context.Context, it models.Item) (models.Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if it.Status == "" {
		it.Status = models.ItemStatusOpen
	}
	args, err := itemArgs(it)
	if err != nil {
		return models.Item{}, err
	}
	query := r.Dialect.Rebind(`INSERT INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.DB.ExecContext(ctx, query, append([]interface{}{it.ID}, args...)...); err != nil {
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

// Update overwrites the editable columns of an item. Status is left to
// SetStatus so an edit never undoes a concurrent claim.
func (r *ItemRepository) Update(ctx context.Context, it models.Item) error {
	args, err := itemArgs(it)
	if err != nil {
		return err
	}
	// title through priority, then private details
	editable := make([]interface{}, 0, 12)
	editable = append(editable, args[2:12]...)
	editable = append(editable, args[13])
	query := r.Dialect.Rebind(`UPDATE items SET title = ?, category = ?, description = ?, color_tokens = ?,
		brand_token = ?, lat = ?, lng = ?, address = ?, image = ?, priority = ?, private_details = ? WHERE id = ?`)
	if _, err := r.DB.ExecContext(ctx, query, append(editable, it.ID)...); err != nil {
		return fmt.Errorf("update item %s: %w", it.ID, err)
	}
	return nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM items WHERE id = ?`), id)
	return err
}

// SetStatus moves every item in ids from status from to status to. Nothing
// changes and models.ErrStaleWrite is returned when any of them is not in
// from.
func (r *ItemRepository) SetStatus(ctx context.Context, ids []string, from, to string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	n, err := setItemStatus(ctx, tx, r.Dialect, ids, from, to)
	if err == nil && n < int64(len(ids)) {
		err = models.ErrStaleWrite
	}
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func setItemStatus(ctx context.Context, q queryer, d Dialect, ids []string, from, to string) (int64, error) {
	args := []interface{}{to, from}
	for _, id := range ids {
		args = append(args, id)
	}
	query := d.Rebind(`UPDATE items SET status = ? WHERE status = ? AND id IN (` + inClause(len(ids)) + `)`)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListOpenByKindAndCategory lists open items of kind. An empty category
// lists every category.
func (r *ItemRepository) ListOpenByKindAndCategory(ctx context.Context, kind, category string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE status = ? AND kind = ?`
	args := []interface{}{models.ItemStatusOpen, kind}
	if category != "" {
		query += ` AND LOWER(category) = LOWER(?)`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`
	return r.list(ctx, query, args...)
}

// ListByOwner lists every item reported by ownerID.
func (r *ItemRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Item, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
}

func (r *ItemRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Item, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
