package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/dbx"
)

// ItemRow mirrors the shopping_items table.
type ItemRow struct {
	ID          string
	ListID      string
	Name        string
	Description string
	Done        bool
	Repeating   string
	OrderIndex  int
	CreatedAt   time.Time
	DoneAt      *time.Time
}

type ItemRepository struct {
	db dbx.DBTX
}

func NewItemRepository(db dbx.DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) SelectByList(ctx context.Context, listID string) ([]ItemRow, error) {
	query := `
		SELECT id, list_id, name, description, done, repeating, order_index, created_at, done_at
		FROM shopping_items
		WHERE list_id = $1
		ORDER BY order_index
	`
	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []ItemRow
	for rows.Next() {
		var item ItemRow
		if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.Description,
			&item.Done, &item.Repeating, &item.OrderIndex, &item.CreatedAt, &item.DoneAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID re-reads a single item. Used as the precondition read before every
// write whose next value depends on the current one (done, repeating, order).
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*ItemRow, error) {
	query := `
		SELECT id, list_id, name, description, done, repeating, order_index, created_at, done_at
		FROM shopping_items
		WHERE id = $1
	`
	var item ItemRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.ListID, &item.Name,
		&item.Description, &item.Done, &item.Repeating, &item.OrderIndex, &item.CreatedAt, &item.DoneAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// MaxOrder returns the current maximum order_index in the list, 0 when empty.
func (r *ItemRepository) MaxOrder(ctx context.Context, listID string) (int, error) {
	query := `SELECT COALESCE(MAX(order_index), 0) FROM shopping_items WHERE list_id = $1`
	var max int
	if err := r.db.QueryRowContext(ctx, query, listID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max order: %w", err)
	}
	return max, nil
}

func (r *ItemRepository) Insert(ctx context.Context, row ItemRow) (string, error) {
	query := `
		INSERT INTO shopping_items (list_id, name, description, done, repeating, order_index, done_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query, row.ListID, row.Name, row.Description,
		row.Done, row.Repeating, row.OrderIndex, row.DoneAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}
	return id, nil
}

func (r *ItemRepository) SetDone(ctx context.Context, id string, done bool, doneAt *time.Time) error {
	query := `UPDATE shopping_items SET done = $2, done_at = $3, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, done, doneAt)
}

func (r *ItemRepository) SetName(ctx context.Context, id, name string) error {
	query := `UPDATE shopping_items SET name = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, name)
}

func (r *ItemRepository) SetDescription(ctx context.Context, id, description string) error {
	query := `UPDATE shopping_items SET description = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, description)
}

func (r *ItemRepository) SetRepeating(ctx context.Context, id, repeating string) error {
	query := `UPDATE shopping_items SET repeating = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, repeating)
}

func (r *ItemRepository) SetOrder(ctx context.Context, id string, orderIndex int) error {
	query := `UPDATE shopping_items SET order_index = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, query, id, orderIndex)
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM shopping_items WHERE id = $1`
	return r.exec(ctx, query, id)
}

// DeleteDone removes every completed item in the list (clear history).
func (r *ItemRepository) DeleteDone(ctx context.Context, listID string) error {
	query := `DELETE FROM shopping_items WHERE list_id = $1 AND done = true`
	_, err := r.db.ExecContext(ctx, query, listID)
	if err != nil {
		return fmt.Errorf("failed to delete done items: %w", err)
	}
	return nil
}

func (r *ItemRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrItemNotFound
	}
	return nil
}
