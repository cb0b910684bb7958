// Package remote provides PostgreSQL-backed repositories for the hosted
// backend: lists, items, members, invitations and completion history, plus
// the LISTEN/NOTIFY subscriber used for change invalidation. There is no
// application server in front of the database; the schema's row-level
// policies are the backend's concern.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/dbx"
)

// ListRow mirrors the shopping_lists table.
type ListRow struct {
	ID        string
	Name      string
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListRepository accesses shopping_lists over a dbx.DBTX (*sql.DB or *sql.Tx).
type ListRepository struct {
	db dbx.DBTX
}

func NewListRepository(db dbx.DBTX) *ListRepository {
	return &ListRepository{db: db}
}

// Insert creates a list and returns its server-generated id. Client-side id
// generation is reserved for Local Mode.
func (r *ListRepository) Insert(ctx context.Context, name, owner string) (string, error) {
	query := `
		INSERT INTO shopping_lists (name, owner)
		VALUES ($1, $2)
		RETURNING id
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, name, owner).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert list: %w", err)
	}
	return id, nil
}

// SelectReachable returns every list the identity owns or is a member of.
// Visibility of individual rows may be limited by the backend's policies;
// callers must not assume the result is complete beyond that.
func (r *ListRepository) SelectReachable(ctx context.Context, identity string) ([]ListRow, error) {
	query := `
		SELECT DISTINCT l.id, l.name, l.owner, l.created_at, l.updated_at
		FROM shopping_lists l
		LEFT JOIN list_members m ON m.list_id = l.id
		WHERE l.owner = $1 OR m.email = $1
		ORDER BY l.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to select lists: %w", err)
	}
	defer rows.Close()

	var result []ListRow
	for rows.Next() {
		var item ListRow
		if err := rows.Scan(&item.ID, &item.Name, &item.Owner, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
