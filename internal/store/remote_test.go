package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/models"
	"github.com/dmitrijs2005/cartsync/internal/remote"
)

type fakeInvitation struct {
	listID, email, token string
	expiresAt            time.Time
}

// fakeBackend is an in-memory RemoteBackend with the same observable
// semantics as the Postgres manager.
type fakeBackend struct {
	lists   []remote.ListRow
	items   map[string]*remote.ItemRow
	members map[string][]string
	history map[string][]remote.HistoryRow
	invites []fakeInvitation
	nextID  int

	failWith error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items:   make(map[string]*remote.ItemRow),
		members: make(map[string][]string),
		history: make(map[string][]remote.HistoryRow),
	}
}

func (f *fakeBackend) genID() string {
	f.nextID++
	return fmt.Sprintf("srv-%d", f.nextID)
}

func (f *fakeBackend) addList(id, name, owner string) {
	f.lists = append(f.lists, remote.ListRow{ID: id, Name: name, Owner: owner})
	f.members[id] = append(f.members[id], owner)
}

func (f *fakeBackend) addItem(listID, id, name string, done bool) *remote.ItemRow {
	row := &remote.ItemRow{ID: id, ListID: listID, Name: name, Done: done, Repeating: "none", OrderIndex: len(f.items) + 1}
	if done {
		t := time.Now()
		row.DoneAt = &t
	}
	f.items[id] = row
	return row
}

func (f *fakeBackend) SelectLists(ctx context.Context, identity string) ([]remote.ListRow, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []remote.ListRow
	for _, l := range f.lists {
		if l.Owner == identity {
			out = append(out, l)
			continue
		}
		for _, m := range f.members[l.ID] {
			if m == identity {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertList(ctx context.Context, name, owner string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	id := f.genID()
	f.addList(id, name, owner)
	return id, nil
}

func (f *fakeBackend) SelectItems(ctx context.Context, listID string) ([]remote.ItemRow, error) {
	var out []remote.ItemRow
	for _, it := range f.items {
		if it.ListID == listID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetItem(ctx context.Context, id string) (*remote.ItemRow, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, common.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeBackend) MaxOrder(ctx context.Context, listID string) (int, error) {
	max := 0
	for _, it := range f.items {
		if it.ListID == listID && it.OrderIndex > max {
			max = it.OrderIndex
		}
	}
	return max, nil
}

func (f *fakeBackend) InsertItem(ctx context.Context, row remote.ItemRow) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	row.ID = f.genID()
	row.CreatedAt = time.Now()
	f.items[row.ID] = &row
	return row.ID, nil
}

func (f *fakeBackend) SetItemDone(ctx context.Context, id string, done bool, doneAt *time.Time) error {
	it, ok := f.items[id]
	if !ok {
		return common.ErrItemNotFound
	}
	it.Done = done
	it.DoneAt = doneAt
	return nil
}

func (f *fakeBackend) SetItemName(ctx context.Context, id, name string) error {
	it, ok := f.items[id]
	if !ok {
		return common.ErrItemNotFound
	}
	it.Name = name
	return nil
}

func (f *fakeBackend) SetItemDescription(ctx context.Context, id, description string) error {
	it, ok := f.items[id]
	if !ok {
		return common.ErrItemNotFound
	}
	it.Description = description
	return nil
}

func (f *fakeBackend) SetItemRepeating(ctx context.Context, id, repeating string) error {
	it, ok := f.items[id]
	if !ok {
		return common.ErrItemNotFound
	}
	it.Repeating = repeating
	return nil
}

func (f *fakeBackend) SetItemOrder(ctx context.Context, id string, orderIndex int) error {
	it, ok := f.items[id]
	if !ok {
		return common.ErrItemNotFound
	}
	it.OrderIndex = orderIndex
	return nil
}

func (f *fakeBackend) DeleteItem(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return common.ErrItemNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeBackend) DeleteDoneItems(ctx context.Context, listID string) error {
	for id, it := range f.items {
		if it.ListID == listID && it.Done {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeBackend) SelectMembers(ctx context.Context, listID string) ([]string, error) {
	return f.members[listID], nil
}

func (f *fakeBackend) MemberExists(ctx context.Context, listID, email string) (bool, error) {
	for _, m := range f.members[listID] {
		if m == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) InsertMember(ctx context.Context, listID, email, role string) error {
	for _, m := range f.members[listID] {
		if m == email {
			return nil
		}
	}
	f.members[listID] = append(f.members[listID], email)
	return nil
}

func (f *fakeBackend) DeleteMember(ctx context.Context, listID, email string) error {
	kept := f.members[listID][:0]
	for _, m := range f.members[listID] {
		if m != email {
			kept = append(kept, m)
		}
	}
	f.members[listID] = kept
	return nil
}

func (f *fakeBackend) InsertInvitation(ctx context.Context, listID, email, token string, expiresAt time.Time) error {
	f.invites = append(f.invites, fakeInvitation{listID: listID, email: email, token: token, expiresAt: expiresAt})
	return nil
}

func (f *fakeBackend) SelectHistory(ctx context.Context, listID string) ([]remote.HistoryRow, error) {
	return f.history[listID], nil
}

func (f *fakeBackend) ClearHistory(ctx context.Context, listID string) error {
	f.history[listID] = nil
	return nil
}

func (f *fakeBackend) SelectRespawnCandidates(ctx context.Context) ([]remote.HistoryRow, error) {
	var out []remote.HistoryRow
	for _, rows := range f.history {
		for _, r := range rows {
			if r.Repeating != "none" && r.RespawnedAt == nil {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeBackend) ArchiveItem(ctx context.Context, item *remote.ItemRow, completedAt time.Time) error {
	f.history[item.ListID] = append(f.history[item.ListID], remote.HistoryRow{
		ID:          f.genID(),
		ListID:      item.ListID,
		Name:        item.Name,
		Description: item.Description,
		Repeating:   item.Repeating,
		CompletedAt: completedAt,
	})
	delete(f.items, item.ID)
	return nil
}

func (f *fakeBackend) RespawnEntry(ctx context.Context, entry remote.HistoryRow, at time.Time) error {
	max, _ := f.MaxOrder(ctx, entry.ListID)
	id := f.genID()
	f.items[id] = &remote.ItemRow{
		ID: id, ListID: entry.ListID, Name: entry.Name,
		Description: entry.Description, Repeating: entry.Repeating, OrderIndex: max + 1,
	}
	for n := range f.history[entry.ListID] {
		if f.history[entry.ListID][n].ID == entry.ID {
			t := at
			f.history[entry.ListID][n].RespawnedAt = &t
		}
	}
	return nil
}

func newTestRemoteEngine(f *fakeBackend, identity string) *RemoteEngine {
	return NewRemoteEngine(f, func() string { return identity }, 10*time.Second, nil)
}

func findList(t *testing.T, lists []models.List, id string) models.List {
	t.Helper()
	for _, l := range lists {
		if l.ID == id {
			return l
		}
	}
	t.Fatalf("list %s not found", id)
	return models.List{}
}

func TestRemoteEngine_RefetchMergesHistory(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", false)
	f.history["l1"] = []remote.HistoryRow{
		{ID: "h1", ListID: "l1", Name: "Flour", Repeating: "none", CompletedAt: time.Now().Add(-time.Hour)},
	}

	e := newTestRemoteEngine(f, "alice@example.com")
	lists, err := e.Lists(context.Background())
	require.NoError(t, err)

	l := findList(t, lists, "l1")
	require.Len(t, l.Items, 2)
	assert.Equal(t, "Milk", l.Items[0].Name)

	synthetic := l.Items[1]
	assert.Equal(t, models.HistoryItemID("h1"), synthetic.ID)
	assert.True(t, models.IsHistoryID(synthetic.ID))
	assert.True(t, synthetic.Done)
	require.NotNil(t, synthetic.DoneAt)

	require.Len(t, l.History, 1)
	assert.Equal(t, "Flour", l.History[0].Name)
}

func TestRemoteEngine_MembersAlwaysIncludeOwner(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	// simulate partial row visibility: the owner's membership row is hidden
	f.members["l1"] = []string{"bob@example.com"}

	e := newTestRemoteEngine(f, "alice@example.com")
	lists, err := e.Lists(context.Background())
	require.NoError(t, err)

	l := findList(t, lists, "l1")
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, l.Members)
}

func TestRemoteEngine_CreateList(t *testing.T) {
	f := newFakeBackend()
	e := newTestRemoteEngine(f, "alice@example.com")

	id, err := e.CreateList(context.Background(), "Groceries", []string{"bob@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	lists, err := e.Lists(context.Background())
	require.NoError(t, err)
	l := findList(t, lists, id)
	assert.Equal(t, "alice@example.com", l.Owner)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, l.Members)
}

func TestRemoteEngine_ToggleReReadsState(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", false)

	e := newTestRemoteEngine(f, "alice@example.com")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	done, err := e.ToggleItemDone(context.Background(), "l1", "i1")
	require.NoError(t, err)
	assert.True(t, done)
	require.NotNil(t, f.items["i1"].DoneAt)
	assert.Equal(t, now, *f.items["i1"].DoneAt)

	done, err = e.ToggleItemDone(context.Background(), "l1", "i1")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Nil(t, f.items["i1"].DoneAt)
}

func TestRemoteEngine_ToggleMissingItem(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")

	e := newTestRemoteEngine(f, "alice@example.com")
	_, err := e.ToggleItemDone(context.Background(), "l1", "gone")
	require.ErrorIs(t, err, common.ErrItemNotFound)
}

func TestRemoteEngine_CycleRepeat(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", false).Repeating = "weekly"

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.CycleItemRepeat(context.Background(), "l1", "i1"))
	assert.Equal(t, "monthly", f.items["i1"].Repeating)
}

func TestRemoteEngine_AddItemOrdersAfterMax(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", false).OrderIndex = 7

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.AddItem(context.Background(), "l1", "Bread"))

	for _, it := range f.items {
		if it.Name == "Bread" {
			assert.Equal(t, 8, it.OrderIndex)
			return
		}
	}
	t.Fatal("item not inserted")
}

func TestRemoteEngine_InviteMember(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")

	e := newTestRemoteEngine(f, "alice@example.com")
	outcome, err := e.InviteMember(context.Background(), "l1", "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, InviteDelivered, outcome)
	assert.Contains(t, f.members["l1"], "bob@example.com")

	require.Len(t, f.invites, 1)
	inv := f.invites[0]
	assert.Equal(t, "bob@example.com", inv.email)
	assert.NotEmpty(t, inv.token)
	assert.WithinDuration(t, time.Now().Add(invitationTTL), inv.expiresAt, time.Minute)

	_, err = e.InviteMember(context.Background(), "l1", "bob@example.com")
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestRemoteEngine_RemoveOwnerRejected(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.members["l1"] = append(f.members["l1"], "bob@example.com")

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.Refetch(context.Background()))

	err := e.RemoveMember(context.Background(), "l1", "alice@example.com")
	require.ErrorIs(t, err, common.ErrOwnerImmutable)
	assert.Contains(t, f.members["l1"], "alice@example.com")

	require.NoError(t, e.RemoveMember(context.Background(), "l1", "bob@example.com"))
	assert.NotContains(t, f.members["l1"], "bob@example.com")
}

func TestRemoteEngine_MigrateItem(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	row := f.addItem("l1", "i1", "Milk", true)
	doneAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row.DoneAt = &doneAt
	row.Repeating = "daily"

	e := newTestRemoteEngine(f, "alice@example.com")
	e.now = func() time.Time { return doneAt.Add(11 * time.Second) }

	require.NoError(t, e.MigrateItem(context.Background(), "i1"))

	_, ok := f.items["i1"]
	assert.False(t, ok, "live row should be gone")
	require.Len(t, f.history["l1"], 1)
	entry := f.history["l1"][0]
	assert.Equal(t, "Milk", entry.Name)
	assert.Equal(t, "daily", entry.Repeating)
	assert.Equal(t, doneAt, entry.CompletedAt)
}

func TestRemoteEngine_MigrateSkipsWhenNotDue(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	row := f.addItem("l1", "i1", "Milk", true)
	doneAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	row.DoneAt = &doneAt

	e := newTestRemoteEngine(f, "alice@example.com")
	e.now = func() time.Time { return doneAt.Add(5 * time.Second) }

	require.NoError(t, e.MigrateItem(context.Background(), "i1"))
	_, ok := f.items["i1"]
	assert.True(t, ok, "item must stay live before the threshold")
	assert.Empty(t, f.history["l1"])
}

func TestRemoteEngine_MigrateSkipsWhenUnToggled(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", false)

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.MigrateItem(context.Background(), "i1"))
	_, ok := f.items["i1"]
	assert.True(t, ok)
	assert.Empty(t, f.history["l1"])
}

func TestRemoteEngine_RestoreFromHistory(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.history["l1"] = []remote.HistoryRow{
		{ID: "h1", ListID: "l1", Name: "Flour", Description: "plain", Repeating: "weekly", CompletedAt: time.Now()},
	}

	e := newTestRemoteEngine(f, "alice@example.com")
	newID, err := e.RestoreFromHistory(context.Background(), "l1", models.HistoryItemID("h1"))
	require.NoError(t, err)
	require.NotEmpty(t, newID)

	restored := f.items[newID]
	require.NotNil(t, restored)
	assert.Equal(t, "Flour", restored.Name)
	assert.Equal(t, "plain", restored.Description)
	assert.Equal(t, "weekly", restored.Repeating)
	assert.False(t, restored.Done)

	// the history record is untouched
	require.Len(t, f.history["l1"], 1)
	assert.Equal(t, "h1", f.history["l1"][0].ID)
}

func TestRemoteEngine_ClearHistory(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	f.addItem("l1", "i1", "Milk", true)
	f.addItem("l1", "i2", "Bread", false)
	f.history["l1"] = []remote.HistoryRow{{ID: "h1", ListID: "l1", Name: "Flour", CompletedAt: time.Now()}}

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.ClearHistory(context.Background(), "l1"))

	_, done := f.items["i1"]
	assert.False(t, done)
	_, active := f.items["i2"]
	assert.True(t, active)
	assert.Empty(t, f.history["l1"])
}

func TestRemoteEngine_RematerializeDue(t *testing.T) {
	f := newFakeBackend()
	f.addList("l1", "Groceries", "alice@example.com")
	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.history["l1"] = []remote.HistoryRow{
		{ID: "h1", ListID: "l1", Name: "Milk", Repeating: "daily", CompletedAt: completed},
		{ID: "h2", ListID: "l1", Name: "Rice", Repeating: "monthly", CompletedAt: completed},
	}

	e := newTestRemoteEngine(f, "alice@example.com")
	require.NoError(t, e.RematerializeDue(context.Background(), completed.Add(25*time.Hour)))

	names := make([]string, 0, len(f.items))
	for _, it := range f.items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Milk"}, names, "only the daily entry is due")
	require.NotNil(t, f.history["l1"][0].RespawnedAt)
	assert.Nil(t, f.history["l1"][1].RespawnedAt)

	// stamped entries never respawn again
	require.NoError(t, e.RematerializeDue(context.Background(), completed.Add(49*time.Hour)))
	assert.Len(t, f.items, 1)
}
