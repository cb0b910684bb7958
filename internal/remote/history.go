package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/dbx"
)

// HistoryRow mirrors the shopping_history table. respawned_at records when a
// repeating entry was re-materialized; NULL means it has not been yet.
type HistoryRow struct {
	ID          string
	ListID      string
	Name        string
	Description string
	Repeating   string
	CompletedAt time.Time
	RespawnedAt *time.Time
}

type HistoryRepository struct {
	db dbx.DBTX
}

func NewHistoryRepository(db dbx.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) SelectByList(ctx context.Context, listID string) ([]HistoryRow, error) {
	query := `
		SELECT id, list_id, name, description, repeating, completed_at, respawned_at
		FROM shopping_history
		WHERE list_id = $1
		ORDER BY completed_at DESC
	`
	return r.selectRows(ctx, query, listID)
}

// Insert archives a completed item. Runs inside the same transaction as the
// live-row delete, via a tx-bound repository.
func (r *HistoryRepository) Insert(ctx context.Context, row HistoryRow) error {
	query := `
		INSERT INTO shopping_history (list_id, name, description, repeating, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, row.ListID, row.Name, row.Description, row.Repeating, row.CompletedAt); err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

func (r *HistoryRepository) DeleteByList(ctx context.Context, listID string) error {
	query := `DELETE FROM shopping_history WHERE list_id = $1`
	if _, err := r.db.ExecContext(ctx, query, listID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// SelectRespawnCandidates returns repeating entries that have not been
// re-materialized yet, across all reachable lists. Interval arithmetic is
// done by the caller so the daily/weekly/monthly table lives in one place.
func (r *HistoryRepository) SelectRespawnCandidates(ctx context.Context) ([]HistoryRow, error) {
	query := `
		SELECT id, list_id, name, description, repeating, completed_at, respawned_at
		FROM shopping_history
		WHERE repeating <> 'none' AND respawned_at IS NULL
	`
	return r.selectRows(ctx, query)
}

func (r *HistoryRepository) MarkRespawned(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE shopping_history SET respawned_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark history row respawned: %w", err)
	}
	return nil
}

func (r *HistoryRepository) selectRows(ctx context.Context, query string, args ...any) ([]HistoryRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []HistoryRow
	for rows.Next() {
		var item HistoryRow
		if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.Description,
			&item.Repeating, &item.CompletedAt, &item.RespawnedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
