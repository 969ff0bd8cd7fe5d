package boundary

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tabsync/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startedClient(t *testing.T) *Client {
	t.Helper()

	c := NewClient(func() (*Worker, error) {
		return NewWorker("", 0, testLogger()), nil
	}, testLogger())
	t.Cleanup(c.Terminate)

	require.NoError(t, c.Initialize())
	return c
}

func TestWorker_QueueIncrementsClock(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	ack, err := c.Queue(ctx, models.CloseTab{ID: "t1", Timestamp: 10})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, ack.Priority)
	assert.Equal(t, "close_tab:t1", ack.DedupKey)

	_, err = c.Queue(ctx, models.ChangeURL{ID: "t1", URL: "https://a", Timestamp: 20})
	require.NoError(t, err)

	// Два запроса queue, выполненных последовательно, оба видны
	// следующему getState: clock инкрементирован дважды
	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", state.LogicalClock)
	assert.Equal(t, 2, state.QueueLength)
	assert.NotEmpty(t, state.DeviceID)
}

func TestWorker_DeduplicateReturnsOrderedBatch(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	_, err := c.Queue(ctx, models.ChangeURL{ID: "t1", URL: "https://a", Timestamp: 1})
	require.NoError(t, err)
	_, err = c.Queue(ctx, models.CloseTab{ID: "t2", Timestamp: 2})
	require.NoError(t, err)

	ops, err := c.Deduplicate(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, models.KindCloseTab, ops[0].Kind())
	assert.Equal(t, models.KindChangeURL, ops[1].Kind())

	// Drain опустошил очередь
	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.QueueLength)

	ops, err = c.Deduplicate(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestWorker_ApplyOverwritesPresentFields(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	deviceID := "device-alpha"
	clockValue := uint64(42)
	err := c.ApplyState(ctx, StatePatch{DeviceID: &deviceID, Clock: &clockValue})
	require.NoError(t, err)

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-alpha", state.DeviceID)
	assert.Equal(t, "42", state.LogicalClock)

	// Частичный patch трогает только присутствующее поле
	smaller := uint64(7)
	err = c.ApplyState(ctx, StatePatch{Clock: &smaller})
	require.NoError(t, err)

	state, err = c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-alpha", state.DeviceID)
	assert.Equal(t, "42", state.LogicalClock, "clock never rolls back")
}

func TestWorker_UnknownMessageKind(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	_, err := c.call(ctx, MessageKind("bogus"), nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown message type: bogus", err.Error())

	// Воркер жив и отвечает на следующий запрос
	_, err = c.GetState(ctx)
	assert.NoError(t, err)
}

func TestWorker_QueueRejectsNonOperationPayload(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	_, err := c.call(ctx, MessageQueue, "not an operation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an operation")
}

func TestWorker_HandleRecoversPanic(t *testing.T) {
	w := NewWorker("device-1", 0, testLogger())
	w.queue = nil // nil очередь: Enqueue паникует внутри обработчика

	resp := w.handle(Request{ID: "r1", Kind: MessageQueue, Payload: models.CloseTab{ID: "t1"}})

	assert.Equal(t, "r1", resp.ID)
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Err)
}

func TestWorker_RestoresClockValue(t *testing.T) {
	ctx := context.Background()

	c := NewClient(func() (*Worker, error) {
		return NewWorker("device-1", 99, testLogger()), nil
	}, testLogger())
	t.Cleanup(c.Terminate)

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-1", state.DeviceID)
	assert.Equal(t, "99", state.LogicalClock)
}
