// Package store is the heart of the client: a single façade exposing the
// shopping-list operation set, internally dispatching every call to a local
// in-memory engine or a remote Postgres-backed engine depending on the
// current authentication state.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/models"
)

// trimHistoryID strips the synthetic history marker so restore operations
// accept both the raw record id and the display id derived from it.
func trimHistoryID(id string) string {
	return strings.TrimPrefix(id, models.HistoryIDPrefix)
}

// InviteOutcome tells the caller what actually happened on an invite.
type InviteOutcome int

const (
	// InviteDelivered: the membership and invitation records were persisted
	// on the backend.
	InviteDelivered InviteOutcome = iota
	// InviteLocalOnly: the member was added to the in-memory list only and
	// no invitation was sent anywhere. Callers must tell the user.
	InviteLocalOnly
)

func (o InviteOutcome) String() string {
	if o == InviteLocalOnly {
		return "local-only"
	}
	return "delivered"
}

// Engine is the strategy interface both modes implement. The façade selects
// one per call, so an engine must not assume it handled the previous call.
//
// Engines signal a missing list or item with common.ErrListNotFound or
// common.ErrItemNotFound; the façade downgrades those to logged no-ops since
// a refetch will correct the mirror anyway.
type Engine interface {
	// Lists returns a deep copy of every list reachable by the current
	// identity.
	Lists(ctx context.Context) ([]models.List, error)

	// CreateList builds a list owned by the current identity with the given
	// extra members and returns its id.
	CreateList(ctx context.Context, name string, memberEmails []string) (string, error)

	// AddItem appends a pending item at the end of the list's order.
	AddItem(ctx context.Context, listID, name string) error

	// ToggleItemDone flips the item's done flag, maintaining the doneAt
	// coupling, and returns the new value.
	ToggleItemDone(ctx context.Context, listID, itemID string) (bool, error)

	UpdateItemName(ctx context.Context, listID, itemID, name string) error
	UpdateItemDescription(ctx context.Context, listID, itemID, text string) error

	// CycleItemRepeat advances the repeat setting one step through
	// none -> daily -> weekly -> monthly -> none.
	CycleItemRepeat(ctx context.Context, listID, itemID string) error

	RemoveItem(ctx context.Context, listID, itemID string) error

	// InviteMember adds email to the list's members and reports whether a
	// real invitation was produced.
	InviteMember(ctx context.Context, listID, email string) (InviteOutcome, error)

	// RemoveMember drops email from the members. Removing the owner fails
	// with common.ErrOwnerImmutable.
	RemoveMember(ctx context.Context, listID, email string) error

	// ClearHistory irrecoverably deletes the list's completed items and
	// archived entries. Active items are untouched.
	ClearHistory(ctx context.Context, listID string) error

	// UpdateItemOrder sets the item's order to the given value without
	// renumbering siblings.
	UpdateItemOrder(ctx context.Context, listID, itemID string, order int) error

	// RestoreFromHistory creates a brand-new pending item copying the named
	// source's name, description and repeat setting, and returns the new id.
	// The source record itself is never modified.
	RestoreFromHistory(ctx context.Context, listID, sourceID string) (string, error)

	// RematerializeDue re-creates repeating items whose interval has elapsed
	// since completion. Each completion respawns at most once.
	RematerializeDue(ctx context.Context, now time.Time) error
}
