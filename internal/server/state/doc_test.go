package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tabsync/internal/models"
)

func upsert(id, windowID, url string, index int) models.UpsertTab {
	return models.UpsertTab{
		ID: id,
		Tab: models.TabData{
			WindowID: windowID,
			URL:      url,
			Title:    url,
			Index:    index,
		},
		Timestamp: 1,
	}
}

func TestDoc_UpsertAndClose(t *testing.T) {
	doc := NewDoc()

	assert.True(t, doc.Apply(upsert("t1", "w1", "https://a", 0), 1))
	assert.True(t, doc.Apply(upsert("t2", "w1", "https://b", 1), 2))

	snapshot := doc.Snapshot()
	require.Len(t, snapshot.Tabs, 2)
	assert.Equal(t, uint64(2), snapshot.Clock)

	assert.True(t, doc.Apply(models.CloseTab{ID: "t1", Timestamp: 3}, 3))

	snapshot = doc.Snapshot()
	require.Len(t, snapshot.Tabs, 1)
	assert.Equal(t, "t2", snapshot.Tabs[0].ID)
}

func TestDoc_StaleUpdateIgnored(t *testing.T) {
	doc := NewDoc()

	require.True(t, doc.Apply(upsert("t1", "w1", "https://new", 0), 5))

	// Операция с меньшим clock опоздала: состояние не откатывается
	assert.False(t, doc.Apply(upsert("t1", "w1", "https://old", 0), 3))
	assert.False(t, doc.Apply(models.ChangeURL{ID: "t1", URL: "https://older", Timestamp: 1}, 2))
	assert.False(t, doc.Apply(models.CloseTab{ID: "t1", Timestamp: 1}, 4))

	snapshot := doc.Snapshot()
	require.Len(t, snapshot.Tabs, 1)
	assert.Equal(t, "https://new", snapshot.Tabs[0].URL)
}

func TestDoc_MutationsOnUnknownTabIgnored(t *testing.T) {
	doc := NewDoc()

	assert.False(t, doc.Apply(models.SetActive{ID: "ghost", Active: true, Timestamp: 1}, 1))
	assert.False(t, doc.Apply(models.MoveTab{ID: "ghost", WindowID: "w1", Index: 0, Timestamp: 1}, 2))
	assert.False(t, doc.Apply(models.ChangeURL{ID: "ghost", URL: "https://a", Timestamp: 1}, 3))

	assert.Empty(t, doc.Snapshot().Tabs)
	// Clock продвигается даже для проигнорированных операций
	assert.Equal(t, uint64(3), doc.Clock())
}

func TestDoc_ChangeURLKeepsTitleWhenAbsent(t *testing.T) {
	doc := NewDoc()
	require.True(t, doc.Apply(upsert("t1", "w1", "https://a", 0), 1))

	assert.True(t, doc.Apply(models.ChangeURL{ID: "t1", URL: "https://b", Timestamp: 2}, 2))

	snapshot := doc.Snapshot()
	require.Len(t, snapshot.Tabs, 1)
	assert.Equal(t, "https://b", snapshot.Tabs[0].URL)
	assert.Equal(t, "https://a", snapshot.Tabs[0].Title, "title unchanged when not provided")

	title := "B"
	assert.True(t, doc.Apply(models.ChangeURL{ID: "t1", URL: "https://b", Title: &title, Timestamp: 3}, 3))
	assert.Equal(t, "B", doc.Snapshot().Tabs[0].Title)
}

func TestDoc_WindowLifecycle(t *testing.T) {
	doc := NewDoc()

	assert.True(t, doc.Apply(models.TrackWindow{ID: "w1", Timestamp: 1}, 1))
	assert.True(t, doc.Apply(models.SetWindowFocus{ID: "w1", Focused: true, Timestamp: 2}, 2))

	snapshot := doc.Snapshot()
	require.Len(t, snapshot.Windows, 1)
	assert.True(t, snapshot.Windows[0].Tracked)
	assert.True(t, snapshot.Windows[0].Focused)

	assert.True(t, doc.Apply(models.UntrackWindow{ID: "w1", Timestamp: 3}, 3))
	assert.False(t, doc.Snapshot().Windows[0].Tracked)

	// Фокус неизвестного окна игнорируется
	assert.False(t, doc.Apply(models.SetWindowFocus{ID: "ghost", Focused: true, Timestamp: 4}, 4))
}

func TestDoc_SnapshotOrdering(t *testing.T) {
	doc := NewDoc()

	require.True(t, doc.Apply(upsert("t3", "w2", "https://c", 0), 1))
	require.True(t, doc.Apply(upsert("t2", "w1", "https://b", 1), 2))
	require.True(t, doc.Apply(upsert("t1", "w1", "https://a", 0), 3))

	snapshot := doc.Snapshot()
	require.Len(t, snapshot.Tabs, 3)
	assert.Equal(t, "t1", snapshot.Tabs[0].ID)
	assert.Equal(t, "t2", snapshot.Tabs[1].ID)
	assert.Equal(t, "t3", snapshot.Tabs[2].ID)
}

func TestDoc_RebuildFromLog(t *testing.T) {
	// Повтор одной и той же последовательности дает одно состояние
	build := func() Snapshot {
		doc := NewDoc()
		doc.Apply(models.TrackWindow{ID: "w1", Timestamp: 1}, 1)
		doc.Apply(upsert("t1", "w1", "https://a", 0), 2)
		doc.Apply(models.ChangeURL{ID: "t1", URL: "https://b", Timestamp: 3}, 3)
		doc.Apply(models.SetActive{ID: "t1", Active: true, Timestamp: 4}, 4)
		return doc.Snapshot()
	}

	first := build()
	second := build()
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(4), first.Clock)
	require.Len(t, first.Tabs, 1)
	assert.True(t, first.Tabs[0].Active)
	assert.Equal(t, "https://b", first.Tabs[0].URL)
}
