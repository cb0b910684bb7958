package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/cartsync/internal/dbx"
	"github.com/dmitrijs2005/cartsync/internal/remote/migrations"
)

// Manager owns the Postgres connection and exposes the backend operations the
// store needs. Repository structs stay internal; multi-statement operations
// (archive, respawn) run inside transactions with tx-bound repositories.
type Manager struct {
	db      *sql.DB
	lists   *ListRepository
	items   *ItemRepository
	members *MemberRepository
	invites *InvitationRepository
	history *HistoryRepository
}

// NewManager opens the database and verifies connectivity.
func NewManager(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Manager{
		db:      db,
		lists:   NewListRepository(db),
		items:   NewItemRepository(db),
		members: NewMemberRepository(db),
		invites: NewInvitationRepository(db),
		history: NewHistoryRepository(db),
	}, nil
}

// RunMigrations applies the embedded schema migrations.
func (m *Manager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) SelectLists(ctx context.Context, identity string) ([]ListRow, error) {
	return m.lists.SelectReachable(ctx, identity)
}

func (m *Manager) InsertList(ctx context.Context, name, owner string) (string, error) {
	return m.lists.Insert(ctx, name, owner)
}

func (m *Manager) SelectItems(ctx context.Context, listID string) ([]ItemRow, error) {
	return m.items.SelectByList(ctx, listID)
}

func (m *Manager) GetItem(ctx context.Context, id string) (*ItemRow, error) {
	return m.items.GetByID(ctx, id)
}

func (m *Manager) MaxOrder(ctx context.Context, listID string) (int, error) {
	return m.items.MaxOrder(ctx, listID)
}

func (m *Manager) InsertItem(ctx context.Context, row ItemRow) (string, error) {
	return m.items.Insert(ctx, row)
}

func (m *Manager) SetItemDone(ctx context.Context, id string, done bool, doneAt *time.Time) error {
	return m.items.SetDone(ctx, id, done, doneAt)
}

func (m *Manager) SetItemName(ctx context.Context, id, name string) error {
	return m.items.SetName(ctx, id, name)
}

func (m *Manager) SetItemDescription(ctx context.Context, id, description string) error {
	return m.items.SetDescription(ctx, id, description)
}

func (m *Manager) SetItemRepeating(ctx context.Context, id, repeating string) error {
	return m.items.SetRepeating(ctx, id, repeating)
}

func (m *Manager) SetItemOrder(ctx context.Context, id string, orderIndex int) error {
	return m.items.SetOrder(ctx, id, orderIndex)
}

func (m *Manager) DeleteItem(ctx context.Context, id string) error {
	return m.items.Delete(ctx, id)
}

func (m *Manager) DeleteDoneItems(ctx context.Context, listID string) error {
	return m.items.DeleteDone(ctx, listID)
}

func (m *Manager) SelectMembers(ctx context.Context, listID string) ([]string, error) {
	return m.members.SelectEmails(ctx, listID)
}

func (m *Manager) MemberExists(ctx context.Context, listID, email string) (bool, error) {
	return m.members.Exists(ctx, listID, email)
}

func (m *Manager) InsertMember(ctx context.Context, listID, email, role string) error {
	return m.members.Insert(ctx, listID, email, role)
}

func (m *Manager) DeleteMember(ctx context.Context, listID, email string) error {
	return m.members.Delete(ctx, listID, email)
}

func (m *Manager) InsertInvitation(ctx context.Context, listID, email, token string, expiresAt time.Time) error {
	return m.invites.Insert(ctx, listID, email, token, expiresAt)
}

func (m *Manager) SelectHistory(ctx context.Context, listID string) ([]HistoryRow, error) {
	return m.history.SelectByList(ctx, listID)
}

func (m *Manager) ClearHistory(ctx context.Context, listID string) error {
	return m.history.DeleteByList(ctx, listID)
}

func (m *Manager) SelectRespawnCandidates(ctx context.Context) ([]HistoryRow, error) {
	return m.history.SelectRespawnCandidates(ctx)
}

// ArchiveItem atomically copies a completed item into shopping_history and
// deletes the live row. The caller verifies the item is actually due.
func (m *Manager) ArchiveItem(ctx context.Context, item *ItemRow, completedAt time.Time) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		history := NewHistoryRepository(tx)
		items := NewItemRepository(tx)
		row := HistoryRow{
			ListID:      item.ListID,
			Name:        item.Name,
			Description: item.Description,
			Repeating:   item.Repeating,
			CompletedAt: completedAt,
		}
		if err := history.Insert(ctx, row); err != nil {
			return err
		}
		return items.Delete(ctx, item.ID)
	})
}

// RespawnEntry atomically inserts a fresh active item from a history entry
// and stamps the entry so it is never respawned twice.
func (m *Manager) RespawnEntry(ctx context.Context, entry HistoryRow, at time.Time) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		items := NewItemRepository(tx)
		history := NewHistoryRepository(tx)
		max, err := items.MaxOrder(ctx, entry.ListID)
		if err != nil {
			return err
		}
		row := ItemRow{
			ListID:      entry.ListID,
			Name:        entry.Name,
			Description: entry.Description,
			Repeating:   entry.Repeating,
			OrderIndex:  max + 1,
		}
		if _, err := items.Insert(ctx, row); err != nil {
			return err
		}
		return history.MarkRespawned(ctx, entry.ID, at)
	})
}
