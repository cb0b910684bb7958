package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/lifecycle"
	"github.com/dmitrijs2005/cartsync/internal/logging"
	"github.com/dmitrijs2005/cartsync/internal/models"
	"github.com/dmitrijs2005/cartsync/internal/remote"
)

// invitationTTL bounds how long a pending invitation stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

// RemoteBackend is the slice of the Postgres manager the remote engine uses.
// Kept as an interface so the engine tests run against a fake.
type RemoteBackend interface {
	SelectLists(ctx context.Context, identity string) ([]remote.ListRow, error)
	InsertList(ctx context.Context, name, owner string) (string, error)

	SelectItems(ctx context.Context, listID string) ([]remote.ItemRow, error)
	GetItem(ctx context.Context, id string) (*remote.ItemRow, error)
	MaxOrder(ctx context.Context, listID string) (int, error)
	InsertItem(ctx context.Context, row remote.ItemRow) (string, error)
	SetItemDone(ctx context.Context, id string, done bool, doneAt *time.Time) error
	SetItemName(ctx context.Context, id, name string) error
	SetItemDescription(ctx context.Context, id, description string) error
	SetItemRepeating(ctx context.Context, id, repeating string) error
	SetItemOrder(ctx context.Context, id string, orderIndex int) error
	DeleteItem(ctx context.Context, id string) error
	DeleteDoneItems(ctx context.Context, listID string) error

	SelectMembers(ctx context.Context, listID string) ([]string, error)
	MemberExists(ctx context.Context, listID, email string) (bool, error)
	InsertMember(ctx context.Context, listID, email, role string) error
	DeleteMember(ctx context.Context, listID, email string) error
	InsertInvitation(ctx context.Context, listID, email, token string, expiresAt time.Time) error

	SelectHistory(ctx context.Context, listID string) ([]remote.HistoryRow, error)
	ClearHistory(ctx context.Context, listID string) error
	SelectRespawnCandidates(ctx context.Context) ([]remote.HistoryRow, error)
	ArchiveItem(ctx context.Context, item *remote.ItemRow, completedAt time.Time) error
	RespawnEntry(ctx context.Context, entry remote.HistoryRow, at time.Time) error
}

// RemoteEngine runs the operation set against the hosted backend. Every write
// follows the same protocol: re-read the state the next value depends on,
// issue the mutation, then refetch everything reachable so the in-memory
// mirror matches server truth. No optimistic patching.
type RemoteEngine struct {
	backend      RemoteBackend
	identity     func() string
	log          logging.Logger
	now          func() time.Time
	promoteAfter time.Duration

	mu      sync.Mutex
	mirror  []models.List
	fetched bool
}

func NewRemoteEngine(backend RemoteBackend, identity func() string, promoteAfter time.Duration, log logging.Logger) *RemoteEngine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if promoteAfter <= 0 {
		promoteAfter = lifecycle.DefaultPromoteAfter
	}
	return &RemoteEngine{
		backend:      backend,
		identity:     identity,
		log:          log,
		now:          time.Now,
		promoteAfter: promoteAfter,
	}
}

// Lists returns the current mirror, fetching it first if it was never
// populated. Change notifications keep it fresh via Refetch.
func (e *RemoteEngine) Lists(ctx context.Context) ([]models.List, error) {
	e.mu.Lock()
	fetched := e.fetched
	e.mu.Unlock()

	if !fetched {
		if err := e.Refetch(ctx); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneLists(e.mirror), nil
}

// Refetch rebuilds the whole mirror from the backend: every reachable list,
// its items, its archived history merged in as read-only synthetic items, and
// its members with the owner unioned in unconditionally. Row visibility may
// be partial under the backend's policies, so no single query is trusted to
// be complete.
func (e *RemoteEngine) Refetch(ctx context.Context) error {
	rows, err := e.backend.SelectLists(ctx, e.identity())
	if err != nil {
		return fmt.Errorf("failed to fetch lists: %w", err)
	}

	lists := make([]models.List, 0, len(rows))
	for _, row := range rows {
		list, err := e.assembleList(ctx, row)
		if err != nil {
			return err
		}
		lists = append(lists, list)
	}

	e.mu.Lock()
	e.mirror = lists
	e.fetched = true
	e.mu.Unlock()

	e.log.Debug(ctx, "mirror refreshed", "lists", len(lists))
	return nil
}

func (e *RemoteEngine) assembleList(ctx context.Context, row remote.ListRow) (models.List, error) {
	list := models.List{ID: row.ID, Name: row.Name, Owner: row.Owner}

	itemRows, err := e.backend.SelectItems(ctx, row.ID)
	if err != nil {
		return models.List{}, fmt.Errorf("failed to fetch items for %s: %w", row.ID, err)
	}
	for _, ir := range itemRows {
		list.Items = append(list.Items, itemFromRow(ir))
	}

	historyRows, err := e.backend.SelectHistory(ctx, row.ID)
	if err != nil {
		return models.List{}, fmt.Errorf("failed to fetch history for %s: %w", row.ID, err)
	}
	order := list.MaxOrder()
	for _, hr := range historyRows {
		entry := historyFromRow(hr)
		list.History = append(list.History, entry)
		order++
		list.Items = append(list.Items, syntheticHistoryItem(entry, order))
	}

	members, err := e.backend.SelectMembers(ctx, row.ID)
	if err != nil {
		return models.List{}, fmt.Errorf("failed to fetch members for %s: %w", row.ID, err)
	}
	list.Members = []string{row.Owner}
	for _, m := range members {
		if !list.HasMember(m) {
			list.Members = append(list.Members, m)
		}
	}
	return list, nil
}

func itemFromRow(r remote.ItemRow) models.Item {
	item := models.Item{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Done:        r.Done,
		Order:       r.OrderIndex,
		CreatedAt:   r.CreatedAt,
		Repeating:   models.RepeatInterval(r.Repeating),
	}
	if !item.Repeating.Valid() {
		item.Repeating = models.RepeatNone
	}
	if item.Done {
		if r.DoneAt != nil {
			t := *r.DoneAt
			item.DoneAt = &t
		} else {
			var zero time.Time
			item.DoneAt = &zero
		}
	}
	return item
}

func historyFromRow(r remote.HistoryRow) models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Repeating:   models.RepeatInterval(r.Repeating),
		CompletedAt: r.CompletedAt,
	}
	if !entry.Repeating.Valid() {
		entry.Repeating = models.RepeatNone
	}
	if r.RespawnedAt != nil {
		t := *r.RespawnedAt
		entry.RespawnedAt = &t
	}
	return entry
}

// syntheticHistoryItem renders an archived entry as a completed item so the
// UI shows one unified sequence. The derived id carries the history marker
// that blocks every mutating operation.
func syntheticHistoryItem(entry models.HistoryEntry, order int) models.Item {
	t := entry.CompletedAt
	return models.Item{
		ID:          models.HistoryItemID(entry.ID),
		Name:        entry.Name,
		Description: entry.Description,
		Done:        true,
		Repeating:   entry.Repeating,
		Order:       order,
		DoneAt:      &t,
	}
}

func (e *RemoteEngine) CreateList(ctx context.Context, name string, memberEmails []string) (string, error) {
	owner := e.identity()
	id, err := e.backend.InsertList(ctx, name, owner)
	if err != nil {
		return "", fmt.Errorf("failed to create list: %w", err)
	}
	for _, m := range memberEmails {
		if m == "" || m == owner {
			continue
		}
		if err := e.backend.InsertMember(ctx, id, m, remote.RoleMember); err != nil {
			return "", fmt.Errorf("failed to add member %s: %w", m, err)
		}
	}
	return id, e.Refetch(ctx)
}

func (e *RemoteEngine) AddItem(ctx context.Context, listID, name string) error {
	max, err := e.backend.MaxOrder(ctx, listID)
	if err != nil {
		return fmt.Errorf("failed to read item order: %w", err)
	}
	row := remote.ItemRow{
		ListID:     listID,
		Name:       name,
		Repeating:  string(models.RepeatNone),
		OrderIndex: max + 1,
	}
	if _, err := e.backend.InsertItem(ctx, row); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) ToggleItemDone(ctx context.Context, listID, itemID string) (bool, error) {
	item, err := e.backend.GetItem(ctx, itemID)
	if err != nil {
		return false, err
	}

	done := !item.Done
	var doneAt *time.Time
	if done {
		t := e.now()
		doneAt = &t
	}
	if err := e.backend.SetItemDone(ctx, itemID, done, doneAt); err != nil {
		return false, fmt.Errorf("failed to toggle item: %w", err)
	}
	return done, e.Refetch(ctx)
}

func (e *RemoteEngine) UpdateItemName(ctx context.Context, listID, itemID, name string) error {
	if err := e.backend.SetItemName(ctx, itemID, name); err != nil {
		return fmt.Errorf("failed to rename item: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) UpdateItemDescription(ctx context.Context, listID, itemID, text string) error {
	if err := e.backend.SetItemDescription(ctx, itemID, text); err != nil {
		return fmt.Errorf("failed to update description: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) CycleItemRepeat(ctx context.Context, listID, itemID string) error {
	item, err := e.backend.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	current := models.RepeatInterval(item.Repeating)
	if !current.Valid() {
		current = models.RepeatNone
	}
	if err := e.backend.SetItemRepeating(ctx, itemID, string(current.Next())); err != nil {
		return fmt.Errorf("failed to cycle repeat: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) RemoveItem(ctx context.Context, listID, itemID string) error {
	if err := e.backend.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) InviteMember(ctx context.Context, listID, email string) (InviteOutcome, error) {
	exists, err := e.backend.MemberExists(ctx, listID, email)
	if err != nil {
		return InviteDelivered, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return InviteDelivered, common.ErrAlreadyExists
	}

	if err := e.backend.InsertMember(ctx, listID, email, remote.RoleMember); err != nil {
		return InviteDelivered, fmt.Errorf("failed to add member: %w", err)
	}
	token := uuid.NewString()
	if err := e.backend.InsertInvitation(ctx, listID, email, token, e.now().Add(invitationTTL)); err != nil {
		return InviteDelivered, fmt.Errorf("failed to record invitation: %w", err)
	}
	return InviteDelivered, e.Refetch(ctx)
}

func (e *RemoteEngine) RemoveMember(ctx context.Context, listID, email string) error {
	if owner, ok := e.ownerOf(listID); ok && owner == email {
		return common.ErrOwnerImmutable
	}
	if err := e.backend.DeleteMember(ctx, listID, email); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) ClearHistory(ctx context.Context, listID string) error {
	if err := e.backend.DeleteDoneItems(ctx, listID); err != nil {
		return fmt.Errorf("failed to delete completed items: %w", err)
	}
	if err := e.backend.ClearHistory(ctx, listID); err != nil {
		return err
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) UpdateItemOrder(ctx context.Context, listID, itemID string, order int) error {
	if err := e.backend.SetItemOrder(ctx, itemID, order); err != nil {
		return err
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) RestoreFromHistory(ctx context.Context, listID, sourceID string) (string, error) {
	sourceID = trimHistoryID(sourceID)

	rows, err := e.backend.SelectHistory(ctx, listID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch history: %w", err)
	}
	var source *remote.HistoryRow
	for n := range rows {
		if rows[n].ID == sourceID {
			source = &rows[n]
			break
		}
	}
	if source == nil {
		return "", common.ErrItemNotFound
	}

	max, err := e.backend.MaxOrder(ctx, listID)
	if err != nil {
		return "", fmt.Errorf("failed to read item order: %w", err)
	}
	row := remote.ItemRow{
		ListID:      listID,
		Name:        source.Name,
		Description: source.Description,
		Repeating:   source.Repeating,
		OrderIndex:  max + 1,
	}
	id, err := e.backend.InsertItem(ctx, row)
	if err != nil {
		return "", fmt.Errorf("failed to restore item: %w", err)
	}
	return id, e.Refetch(ctx)
}

// MigrateItem moves a completed item out of the live table into history. The
// item is re-read first and the move only happens if it is still done and the
// promotion threshold has elapsed, so a timer firing after an un-toggle is a
// no-op.
func (e *RemoteEngine) MigrateItem(ctx context.Context, itemID string) error {
	item, err := e.backend.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Done || item.DoneAt == nil {
		e.log.Debug(ctx, "skipping history migration, item no longer done", "item", itemID)
		return nil
	}
	if e.now().Sub(*item.DoneAt) < e.promoteAfter {
		e.log.Debug(ctx, "skipping history migration, threshold not reached", "item", itemID)
		return nil
	}

	if err := e.backend.ArchiveItem(ctx, item, *item.DoneAt); err != nil {
		return fmt.Errorf("failed to archive item: %w", err)
	}
	return e.Refetch(ctx)
}

func (e *RemoteEngine) RematerializeDue(ctx context.Context, now time.Time) error {
	rows, err := e.backend.SelectRespawnCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch respawn candidates: %w", err)
	}

	respawned := 0
	for _, row := range rows {
		if !lifecycle.DueForRespawn(historyFromRow(row), now) {
			continue
		}
		if err := e.backend.RespawnEntry(ctx, row, now); err != nil {
			return fmt.Errorf("failed to respawn %s: %w", row.Name, err)
		}
		respawned++
	}
	if respawned == 0 {
		return nil
	}
	e.log.Info(ctx, "re-materialized repeating items", "count", respawned)
	return e.Refetch(ctx)
}

func (e *RemoteEngine) ownerOf(listID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.mirror {
		if l.ID == listID {
			return l.Owner, true
		}
	}
	return "", false
}
