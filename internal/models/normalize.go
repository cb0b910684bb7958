package models

import (
	"fmt"
	"time"
)

// Record is a loosely shaped row, as decoded from JSON seed data or older
// exports. The backend schema changed field names over time (done/completed,
// order/order_index, doneAt/done_at), so records are converted to canonical
// Items in exactly one place instead of tolerating both shapes throughout
// the engines.
type Record map[string]any

func (r Record) str(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func (r Record) boolean(keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			switch t := v.(type) {
			case bool:
				return t, true
			case float64:
				return t != 0, true
			}
		}
	}
	return false, false
}

func (r Record) integer(keys ...string) (int, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			switch t := v.(type) {
			case float64:
				return int(t), true
			case int:
				return t, true
			}
		}
	}
	return 0, false
}

func (r Record) timestamp(keys ...string) (time.Time, bool) {
	s, ok := r.str(keys...)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeItem converts a record in either the old or the new field shape
// into a canonical Item. It restores the done/doneAt coupling: a done item
// without a completion timestamp gets the zero time, a pending item loses
// any stale timestamp.
func NormalizeItem(rec Record) (Item, error) {
	name, ok := rec.str("name", "title")
	if !ok || name == "" {
		return Item{}, fmt.Errorf("record has no name: %v", rec)
	}

	item := Item{Name: name}
	item.ID, _ = rec.str("id")
	item.Description, _ = rec.str("description", "note")
	item.Done, _ = rec.boolean("done", "completed")
	item.Order, _ = rec.integer("order", "order_index", "orderIndex")

	if rep, ok := rec.str("repeating", "repeat"); ok {
		if RepeatInterval(rep).Valid() {
			item.Repeating = RepeatInterval(rep)
		} else {
			item.Repeating = RepeatNone
		}
	} else {
		item.Repeating = RepeatNone
	}

	if t, ok := rec.timestamp("createdAt", "created_at"); ok {
		item.CreatedAt = t
	}
	if item.Done {
		if t, ok := rec.timestamp("doneAt", "done_at", "completedAt", "completed_at"); ok {
			item.DoneAt = &t
		} else {
			var zero time.Time
			item.DoneAt = &zero
		}
	}
	return item, nil
}
