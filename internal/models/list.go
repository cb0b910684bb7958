// Package models defines the shopping-list domain types shared by the local
// and remote engines.
package models

import (
	"strings"
	"time"
)

// RepeatInterval controls whether a completed item re-materializes after a
// fixed interval.
type RepeatInterval string

const (
	RepeatNone    RepeatInterval = "none"
	RepeatDaily   RepeatInterval = "daily"
	RepeatWeekly  RepeatInterval = "weekly"
	RepeatMonthly RepeatInterval = "monthly"
)

// repeatCycle is the fixed order CycleRepeat advances through. Applying Next
// four times returns to the starting value.
var repeatCycle = []RepeatInterval{RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly}

// Next returns the interval following r in the repeat cycle, wrapping after
// monthly. Unknown values are treated as none.
func (r RepeatInterval) Next() RepeatInterval {
	for n, v := range repeatCycle {
		if v == r {
			return repeatCycle[(n+1)%len(repeatCycle)]
		}
	}
	return repeatCycle[1]
}

func (r RepeatInterval) Valid() bool {
	for _, v := range repeatCycle {
		if v == r {
			return true
		}
	}
	return false
}

// HistoryIDPrefix marks item ids synthesized from archived history rows.
// Items carrying it are display-only; every mutating operation must treat
// such ids as a no-op.
const HistoryIDPrefix = "history:"

func IsHistoryID(id string) bool {
	return strings.HasPrefix(id, HistoryIDPrefix)
}

// HistoryItemID derives the synthetic item id for a history entry.
func HistoryItemID(entryID string) string {
	return HistoryIDPrefix + entryID
}

// Item is a single shopping-list entry.
//
// Invariant: DoneAt is non-nil exactly when Done is true.
type Item struct {
	ID          string
	Name        string
	Description string
	Done        bool
	Repeating   RepeatInterval
	Order       int
	CreatedAt   time.Time
	DoneAt      *time.Time
}

func (i Item) Clone() Item {
	out := i
	if i.DoneAt != nil {
		t := *i.DoneAt
		out.DoneAt = &t
	}
	return out
}

// HistoryEntry is an archived completion record. Entries are immutable:
// restoring one creates a brand-new item and leaves the record untouched.
type HistoryEntry struct {
	ID          string
	Name        string
	Description string
	Repeating   RepeatInterval
	CompletedAt time.Time
	RespawnedAt *time.Time
}

func (e HistoryEntry) Clone() HistoryEntry {
	out := e
	if e.RespawnedAt != nil {
		t := *e.RespawnedAt
		out.RespawnedAt = &t
	}
	return out
}

// List is a named, owned, shared collection of items.
//
// Invariant: Owner is always contained in Members.
type List struct {
	ID      string
	Name    string
	Owner   string
	Members []string
	Items   []Item
	History []HistoryEntry
}

func (l List) Clone() List {
	out := l
	out.Members = append([]string(nil), l.Members...)
	out.Items = make([]Item, len(l.Items))
	for n, it := range l.Items {
		out.Items[n] = it.Clone()
	}
	out.History = make([]HistoryEntry, len(l.History))
	for n, e := range l.History {
		out.History[n] = e.Clone()
	}
	return out
}

// CloneLists deep-copies a collection so that readers never alias engine
// internals.
func CloneLists(lists []List) []List {
	out := make([]List, len(lists))
	for n, l := range lists {
		out[n] = l.Clone()
	}
	return out
}

func (l List) HasMember(email string) bool {
	for _, m := range l.Members {
		if m == email {
			return true
		}
	}
	return false
}

// MaxOrder returns the highest order value among the list's items, or 0 for
// an empty list. New items are appended at MaxOrder()+1.
func (l List) MaxOrder() int {
	max := 0
	for _, it := range l.Items {
		if it.Order > max {
			max = it.Order
		}
	}
	return max
}
