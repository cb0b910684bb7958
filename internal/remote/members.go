package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/dbx"
)

// Membership roles. The owner row is created together with the list.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type MemberRepository struct {
	db dbx.DBTX
}

func NewMemberRepository(db dbx.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// SelectEmails returns the member emails visible to the current connection.
// The backend's policies may hide rows, so callers union in the list owner
// themselves rather than trusting this to be complete.
func (r *MemberRepository) SelectEmails(ctx context.Context, listID string) ([]string, error) {
	query := `SELECT email FROM list_members WHERE list_id = $1 ORDER BY joined_at`
	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to select members: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		result = append(result, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *MemberRepository) Exists(ctx context.Context, listID, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM list_members WHERE list_id = $1 AND email = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, listID, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (r *MemberRepository) Insert(ctx context.Context, listID, email, role string) error {
	query := `
		INSERT INTO list_members (list_id, email, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (list_id, email) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, listID, email, role); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, listID, email string) error {
	query := `DELETE FROM list_members WHERE list_id = $1 AND email = $2`
	if _, err := r.db.ExecContext(ctx, query, listID, email); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// InvitationRepository records pending invitations. Delivery of the actual
// email is the backend's concern; the client only inserts the record.
type InvitationRepository struct {
	db dbx.DBTX
}

func NewInvitationRepository(db dbx.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Insert(ctx context.Context, listID, email, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO invitations (list_id, email, token, expires_at, used)
		VALUES ($1, $2, $3, $4, false)
	`
	if _, err := r.db.ExecContext(ctx, query, listID, email, token, expiresAt); err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}
