// Package lifecycle classifies items into display stages purely from their
// completion state and the wall clock. The classification is recomputed on
// every read and is never stored.
package lifecycle

import (
	"time"

	"github.com/dmitrijs2005/cartsync/internal/models"
)

// Stage is the derived lifecycle classification of an item.
type Stage int

const (
	// StageActive: the item is pending.
	StageActive Stage = iota
	// StageRecentlyCompleted: done less than the promotion threshold ago,
	// still shown inline so the user can un-toggle a slip.
	StageRecentlyCompleted
	// StageArchived: done for at least the threshold, or loaded from a
	// persisted history record. Shown in the history view only.
	StageArchived
)

func (s Stage) String() string {
	switch s {
	case StageActive:
		return "active"
	case StageRecentlyCompleted:
		return "recently-completed"
	case StageArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// DefaultPromoteAfter is how long a completed item stays recently-completed
// before it is treated as archived.
const DefaultPromoteAfter = 10 * time.Second

// Classify returns the stage of item at the given instant. Items synthesized
// from history records are always archived. A done item missing its
// completion timestamp is treated as completed just now.
func Classify(item models.Item, now time.Time, promoteAfter time.Duration) Stage {
	if models.IsHistoryID(item.ID) {
		return StageArchived
	}
	if !item.Done {
		return StageActive
	}
	if item.DoneAt == nil {
		return StageRecentlyCompleted
	}
	if now.Sub(*item.DoneAt) >= promoteAfter {
		return StageArchived
	}
	return StageRecentlyCompleted
}

// RespawnInterval maps a repeat setting to the delay after which a completed
// item re-materializes: daily 24h, weekly 7d, monthly 30d. The second return
// is false for RepeatNone and unknown values.
func RespawnInterval(r models.RepeatInterval) (time.Duration, bool) {
	switch r {
	case models.RepeatDaily:
		return 24 * time.Hour, true
	case models.RepeatWeekly:
		return 7 * 24 * time.Hour, true
	case models.RepeatMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// DueForRespawn reports whether a history entry's repeat interval has elapsed
// and it has not been re-materialized yet.
func DueForRespawn(e models.HistoryEntry, now time.Time) bool {
	if e.RespawnedAt != nil {
		return false
	}
	interval, ok := RespawnInterval(e.Repeating)
	if !ok {
		return false
	}
	return !now.Before(e.CompletedAt.Add(interval))
}
