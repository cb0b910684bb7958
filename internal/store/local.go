package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cartsync/internal/common"
	"github.com/dmitrijs2005/cartsync/internal/lifecycle"
	"github.com/dmitrijs2005/cartsync/internal/models"
)

// LocalEngine keeps every list in memory. All mutations are synchronous and
// replace-not-mutate: the collection slice and the targeted list are copied
// before changing, so a reader holding a previous snapshot never observes a
// half-applied edit.
type LocalEngine struct {
	identity func() string
	now      func() time.Time
	newID    func() string

	mu    sync.Mutex
	lists []models.List
	// respawned marks live item ids whose completion already produced a
	// re-materialized copy. Cleared when the item is toggled back to pending.
	respawned map[string]bool
}

// NewLocalEngine constructs an engine. identity supplies the current user's
// key and is re-read on every call, matching the mode selector's contract.
func NewLocalEngine(identity func() string) *LocalEngine {
	return &LocalEngine{
		identity:  identity,
		now:       time.Now,
		newID:     uuid.NewString,
		respawned: make(map[string]bool),
	}
}

func (e *LocalEngine) Lists(ctx context.Context) ([]models.List, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.CloneLists(e.lists), nil
}

func (e *LocalEngine) CreateList(ctx context.Context, name string, memberEmails []string) (string, error) {
	owner := e.identity()
	list := models.List{
		ID:      e.newID(),
		Name:    name,
		Owner:   owner,
		Members: []string{owner},
	}
	for _, m := range memberEmails {
		if m != "" && !list.HasMember(m) {
			list.Members = append(list.Members, m)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lists = append(models.CloneLists(e.lists), list)
	return list.ID, nil
}

func (e *LocalEngine) AddItem(ctx context.Context, listID, name string) error {
	return e.updateList(listID, func(l *models.List) error {
		l.Items = append(l.Items, models.Item{
			ID:        e.newID(),
			Name:      name,
			Repeating: models.RepeatNone,
			Order:     l.MaxOrder() + 1,
			CreatedAt: e.now(),
		})
		return nil
	})
}

func (e *LocalEngine) ToggleItemDone(ctx context.Context, listID, itemID string) (bool, error) {
	var done bool
	err := e.updateItem(listID, itemID, func(it *models.Item) error {
		it.Done = !it.Done
		if it.Done {
			t := e.now()
			it.DoneAt = &t
		} else {
			it.DoneAt = nil
			delete(e.respawned, it.ID)
		}
		done = it.Done
		return nil
	})
	return done, err
}

func (e *LocalEngine) UpdateItemName(ctx context.Context, listID, itemID, name string) error {
	return e.updateItem(listID, itemID, func(it *models.Item) error {
		it.Name = name
		return nil
	})
}

func (e *LocalEngine) UpdateItemDescription(ctx context.Context, listID, itemID, text string) error {
	return e.updateItem(listID, itemID, func(it *models.Item) error {
		it.Description = text
		return nil
	})
}

func (e *LocalEngine) CycleItemRepeat(ctx context.Context, listID, itemID string) error {
	return e.updateItem(listID, itemID, func(it *models.Item) error {
		it.Repeating = it.Repeating.Next()
		return nil
	})
}

func (e *LocalEngine) RemoveItem(ctx context.Context, listID, itemID string) error {
	return e.updateList(listID, func(l *models.List) error {
		kept := l.Items[:0]
		found := false
		for _, it := range l.Items {
			if it.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, it)
		}
		if !found {
			return common.ErrItemNotFound
		}
		l.Items = kept
		return nil
	})
}

func (e *LocalEngine) InviteMember(ctx context.Context, listID, email string) (InviteOutcome, error) {
	err := e.updateList(listID, func(l *models.List) error {
		if !l.HasMember(email) {
			l.Members = append(l.Members, email)
		}
		return nil
	})
	return InviteLocalOnly, err
}

func (e *LocalEngine) RemoveMember(ctx context.Context, listID, email string) error {
	return e.updateList(listID, func(l *models.List) error {
		if email == l.Owner {
			return common.ErrOwnerImmutable
		}
		kept := l.Members[:0]
		for _, m := range l.Members {
			if m != email {
				kept = append(kept, m)
			}
		}
		l.Members = kept
		return nil
	})
}

func (e *LocalEngine) ClearHistory(ctx context.Context, listID string) error {
	return e.updateList(listID, func(l *models.List) error {
		kept := l.Items[:0]
		for _, it := range l.Items {
			if !it.Done {
				kept = append(kept, it)
			}
		}
		l.Items = kept
		l.History = nil
		return nil
	})
}

func (e *LocalEngine) UpdateItemOrder(ctx context.Context, listID, itemID string, order int) error {
	return e.updateItem(listID, itemID, func(it *models.Item) error {
		it.Order = order
		return nil
	})
}

func (e *LocalEngine) RestoreFromHistory(ctx context.Context, listID, sourceID string) (string, error) {
	sourceID = trimHistoryID(sourceID)
	var newID string
	err := e.updateList(listID, func(l *models.List) error {
		item, ok := findRestoreSource(l, sourceID)
		if !ok {
			return common.ErrItemNotFound
		}
		item.ID = e.newID()
		item.Order = l.MaxOrder() + 1
		item.CreatedAt = e.now()
		l.Items = append(l.Items, item)
		newID = item.ID
		return nil
	})
	return newID, err
}

// findRestoreSource resolves a restore target against the archived entries
// first and the completed live items second, returning a fresh pending item
// carrying over name, description and repeat setting.
func findRestoreSource(l *models.List, sourceID string) (models.Item, bool) {
	for _, entry := range l.History {
		if entry.ID == sourceID {
			return models.Item{
				Name:        entry.Name,
				Description: entry.Description,
				Repeating:   entry.Repeating,
			}, true
		}
	}
	for _, it := range l.Items {
		if it.ID == sourceID && it.Done {
			return models.Item{
				Name:        it.Name,
				Description: it.Description,
				Repeating:   it.Repeating,
			}, true
		}
	}
	return models.Item{}, false
}

func (e *LocalEngine) RematerializeDue(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := models.CloneLists(e.lists)
	changed := false
	for n := range next {
		l := &next[n]
		for h := range l.History {
			entry := &l.History[h]
			if !lifecycle.DueForRespawn(*entry, now) {
				continue
			}
			t := now
			entry.RespawnedAt = &t
			l.Items = append(l.Items, respawnedItem(e.newID(), entry.Name, entry.Description, entry.Repeating, l.MaxOrder()+1, now))
			changed = true
		}
		for _, it := range l.Items {
			if !it.Done || it.DoneAt == nil || e.respawned[it.ID] {
				continue
			}
			interval, ok := lifecycle.RespawnInterval(it.Repeating)
			if !ok || now.Before(it.DoneAt.Add(interval)) {
				continue
			}
			e.respawned[it.ID] = true
			l.Items = append(l.Items, respawnedItem(e.newID(), it.Name, it.Description, it.Repeating, l.MaxOrder()+1, now))
			changed = true
		}
	}
	if changed {
		e.lists = next
	}
	return nil
}

func respawnedItem(id, name, description string, repeating models.RepeatInterval, order int, now time.Time) models.Item {
	return models.Item{
		ID:          id,
		Name:        name,
		Description: description,
		Repeating:   repeating,
		Order:       order,
		CreatedAt:   now,
	}
}

// seedList is the JSON shape accepted by Seed. Item and history records pass
// through the shape-tolerant normalizer, so both old and new field names load.
type seedList struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Owner   string          `json:"owner"`
	Members []string        `json:"members"`
	Items   []models.Record `json:"items"`
	History []models.Record `json:"history"`
}

// Seed replaces the collection with lists decoded from JSON. Missing ids are
// generated, the owner defaults to the current identity and is always forced
// into the members.
func (e *LocalEngine) Seed(data []byte) error {
	var seeds []seedList
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to decode seed data: %w", err)
	}

	lists := make([]models.List, 0, len(seeds))
	for _, s := range seeds {
		l := models.List{ID: s.ID, Name: s.Name, Owner: s.Owner, Members: s.Members}
		if l.ID == "" {
			l.ID = e.newID()
		}
		if l.Owner == "" {
			l.Owner = e.identity()
		}
		if !l.HasMember(l.Owner) {
			l.Members = append([]string{l.Owner}, l.Members...)
		}
		for _, rec := range s.Items {
			item, err := models.NormalizeItem(rec)
			if err != nil {
				return err
			}
			if item.ID == "" {
				item.ID = e.newID()
			}
			if item.Order == 0 {
				item.Order = l.MaxOrder() + 1
			}
			l.Items = append(l.Items, item)
		}
		for _, rec := range s.History {
			entry, err := normalizeHistory(rec)
			if err != nil {
				return err
			}
			if entry.ID == "" {
				entry.ID = e.newID()
			}
			l.History = append(l.History, entry)
		}
		lists = append(lists, l)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lists = lists
	return nil
}

// normalizeHistory funnels a history record through the item normalizer by
// forcing the done flag, then lifts the result into a HistoryEntry.
func normalizeHistory(rec models.Record) (models.HistoryEntry, error) {
	forced := make(models.Record, len(rec)+1)
	for k, v := range rec {
		forced[k] = v
	}
	forced["done"] = true

	item, err := models.NormalizeItem(forced)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	entry := models.HistoryEntry{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Repeating:   item.Repeating,
	}
	if item.DoneAt != nil {
		entry.CompletedAt = *item.DoneAt
	}
	return entry, nil
}

// updateList applies fn to a deep copy of the targeted list and swaps the
// collection only on success.
func (e *LocalEngine) updateList(listID string, fn func(l *models.List) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for n := range e.lists {
		if e.lists[n].ID != listID {
			continue
		}
		updated := e.lists[n].Clone()
		if err := fn(&updated); err != nil {
			return err
		}
		next := append([]models.List(nil), e.lists...)
		next[n] = updated
		e.lists = next
		return nil
	}
	return common.ErrListNotFound
}

func (e *LocalEngine) updateItem(listID, itemID string, fn func(it *models.Item) error) error {
	return e.updateList(listID, func(l *models.List) error {
		for n := range l.Items {
			if l.Items[n].ID == itemID {
				return fn(&l.Items[n])
			}
		}
		return common.ErrItemNotFound
	})
}
