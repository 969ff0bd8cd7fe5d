package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tabsync/internal/models"
)

// fakeClock выдает заранее заданные моменты постановки в очередь
type fakeClock struct {
	times []int64
	pos   int
}

func (c *fakeClock) now() time.Time {
	ts := c.times[c.pos]
	if c.pos < len(c.times)-1 {
		c.pos++
	}
	return time.UnixMilli(ts)
}

func newTestQueue(enqueueTimes ...int64) *Queue {
	q := New()
	if len(enqueueTimes) > 0 {
		q.now = (&fakeClock{times: enqueueTimes}).now
	}
	return q
}

func TestQueue_EnqueueComputesMetadata(t *testing.T) {
	q := newTestQueue(100)

	entry := q.Enqueue(models.CloseTab{ID: "t1", Timestamp: 50})

	assert.Equal(t, models.PriorityCritical, entry.Priority)
	assert.Equal(t, "close_tab:t1", entry.DedupKey)
	assert.Equal(t, int64(100), entry.EnqueuedAt)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_DrainDeduplicatesLatestWins(t *testing.T) {
	q := newTestQueue(100, 200, 300)

	q.Enqueue(models.SetActive{ID: "t1", Active: false, Timestamp: 1})
	q.Enqueue(models.SetActive{ID: "t1", Active: true, Timestamp: 2})
	q.Enqueue(models.SetActive{ID: "t1", Active: false, Timestamp: 3})

	ops := q.Drain()
	require.Len(t, ops, 1)
	assert.Equal(t, models.SetActive{ID: "t1", Active: false, Timestamp: 3}, ops[0])
}

func TestQueue_DrainEqualTimesLaterInsertWins(t *testing.T) {
	q := newTestQueue(100, 100)

	q.Enqueue(models.SetWindowFocus{ID: "w1", Focused: true, Timestamp: 1})
	q.Enqueue(models.UntrackWindow{ID: "w1", Timestamp: 2})

	ops := q.Drain()
	require.Len(t, ops, 1)
	assert.Equal(t, models.UntrackWindow{ID: "w1", Timestamp: 2}, ops[0])
}

func TestQueue_WindowLifecycleSharesKeySpace(t *testing.T) {
	q := newTestQueue(100, 200)

	q.Enqueue(models.TrackWindow{ID: "w1", Timestamp: 1})
	q.Enqueue(models.SetWindowFocus{ID: "w1", Focused: true, Timestamp: 2})

	// Фокус и track одного окна конкурируют за один слот
	ops := q.Drain()
	require.Len(t, ops, 1)
	assert.Equal(t, models.KindSetWindowFocus, ops[0].Kind())
}

func TestQueue_DrainOrderedByPriorityThenTime(t *testing.T) {
	// Сценарий из спецификации поведения очереди: пять операций,
	// две set_active сворачиваются, порядок critical → high → normal → low.
	q := newTestQueue(100, 200, 300, 500, 400)

	q.Enqueue(models.UpsertTab{ID: "t1", Tab: models.TabData{WindowID: "w1", URL: "https://a"}, Timestamp: 100})
	q.Enqueue(models.SetActive{ID: "t1", Active: false, Timestamp: 200})
	q.Enqueue(models.ChangeURL{ID: "t1", URL: "https://b", Timestamp: 300})
	q.Enqueue(models.CloseTab{ID: "t2", Timestamp: 500})
	q.Enqueue(models.SetActive{ID: "t1", Active: true, Timestamp: 400})

	ops := q.Drain()
	require.Len(t, ops, 4)

	assert.Equal(t, models.KindCloseTab, ops[0].Kind())
	assert.Equal(t, "t2", ops[0].EntityID())

	assert.Equal(t, models.KindUpsertTab, ops[1].Kind())

	assert.Equal(t, models.KindSetActive, ops[2].Kind())
	assert.True(t, ops[2].(models.SetActive).Active, "latest set_active must win")

	assert.Equal(t, models.KindChangeURL, ops[3].Kind())
}

func TestQueue_DrainIsNonDecreasing(t *testing.T) {
	q := newTestQueue(5, 4, 3, 2, 1)

	q.Enqueue(models.ChangeURL{ID: "t1", URL: "https://a"})
	q.Enqueue(models.CloseTab{ID: "t1"})
	q.Enqueue(models.SetActive{ID: "t2"})
	q.Enqueue(models.UpsertTab{ID: "t3"})
	q.Enqueue(models.TrackWindow{ID: "w1"})

	ops := q.Drain()
	require.Len(t, ops, 5)

	for i := 1; i < len(ops); i++ {
		prev := models.PriorityOf(ops[i-1])
		cur := models.PriorityOf(ops[i])
		assert.LessOrEqual(t, prev, cur, "priorities must be non-decreasing")
	}
}

func TestQueue_DrainClearsBuffer(t *testing.T) {
	q := newTestQueue(100)

	q.Enqueue(models.CloseTab{ID: "t1"})
	require.Len(t, q.Drain(), 1)

	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain(), "second drain must return nothing")
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New()
	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}
