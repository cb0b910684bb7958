package lifecycle

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/cartsync/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify_ActiveItem(t *testing.T) {
	now := time.Now()
	item := models.Item{ID: "i1", Name: "Milk"}
	assert.Equal(t, StageActive, Classify(item, now, DefaultPromoteAfter))
}

func TestClassify_PassesThroughRecentlyCompleted(t *testing.T) {
	// An item toggled done must classify as recently-completed until the
	// threshold elapses, and only then as archived.
	doneAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	item := models.Item{ID: "i1", Name: "Milk", Done: true, DoneAt: &doneAt}

	assert.Equal(t, StageRecentlyCompleted, Classify(item, doneAt, DefaultPromoteAfter))
	assert.Equal(t, StageRecentlyCompleted, Classify(item, doneAt.Add(DefaultPromoteAfter-time.Millisecond), DefaultPromoteAfter))
	assert.Equal(t, StageArchived, Classify(item, doneAt.Add(DefaultPromoteAfter), DefaultPromoteAfter))
	assert.Equal(t, StageArchived, Classify(item, doneAt.Add(time.Hour), DefaultPromoteAfter))
}

func TestClassify_HistoryDerivedAlwaysArchived(t *testing.T) {
	now := time.Now()
	item := models.Item{ID: models.HistoryItemID("h1"), Name: "Milk", Done: true, DoneAt: &now}
	assert.Equal(t, StageArchived, Classify(item, now, DefaultPromoteAfter))
}

func TestClassify_DoneWithoutTimestamp(t *testing.T) {
	item := models.Item{ID: "i1", Done: true}
	assert.Equal(t, StageRecentlyCompleted, Classify(item, time.Now(), DefaultPromoteAfter))
}

func TestRespawnInterval(t *testing.T) {
	d, ok := RespawnInterval(models.RepeatDaily)
	assert.True(t, ok)
	assert.Equal(t, 24*time.Hour, d)

	w, ok := RespawnInterval(models.RepeatWeekly)
	assert.True(t, ok)
	assert.Equal(t, 7*24*time.Hour, w)

	m, ok := RespawnInterval(models.RepeatMonthly)
	assert.True(t, ok)
	assert.Equal(t, 30*24*time.Hour, m)

	_, ok = RespawnInterval(models.RepeatNone)
	assert.False(t, ok)
}

func TestDueForRespawn(t *testing.T) {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := models.HistoryEntry{ID: "h1", Name: "Milk", Repeating: models.RepeatDaily, CompletedAt: completed}

	assert.False(t, DueForRespawn(entry, completed.Add(23*time.Hour)))
	assert.True(t, DueForRespawn(entry, completed.Add(24*time.Hour)))

	stamped := entry
	at := completed.Add(25 * time.Hour)
	stamped.RespawnedAt = &at
	assert.False(t, DueForRespawn(stamped, completed.Add(48*time.Hour)), "an entry re-materializes at most once")

	oneOff := models.HistoryEntry{ID: "h2", Repeating: models.RepeatNone, CompletedAt: completed}
	assert.False(t, DueForRespawn(oneOff, completed.Add(1000*time.Hour)))
}
