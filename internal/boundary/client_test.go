package boundary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/tabsync/internal/models"
)

func TestClient_InitializeSharesOneWorker(t *testing.T) {
	var created atomic.Int32

	c := NewClient(func() (*Worker, error) {
		created.Add(1)
		return NewWorker("", 0, testLogger()), nil
	}, testLogger())
	t.Cleanup(c.Terminate)

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Initialize())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "concurrent initializers must share one worker")
}

func TestClient_NoFactoryMeansOffloadUnavailable(t *testing.T) {
	c := NewClient(nil, testLogger())

	err := c.Initialize()
	assert.ErrorIs(t, err, ErrWorkerUnavailable)

	_, err = c.GetState(context.Background())
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
}

func TestClient_FactoryFailureWrapsUnavailable(t *testing.T) {
	c := NewClient(func() (*Worker, error) {
		return nil, errors.New("no background context")
	}, testLogger())

	err := c.Initialize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
	assert.Contains(t, err.Error(), "no background context")
}

func TestClient_CorrelatesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	// N конкурентных queue-вызовов: каждый должен получить ack именно
	// своей операции, а не чужой
	const calls = 32
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("tab-%d", n)
			ack, err := c.Queue(ctx, models.CloseTab{ID: id, Timestamp: int64(n)})
			if assert.NoError(t, err) {
				assert.Equal(t, "close_tab:"+id, ack.DedupKey)
			}
		}(i)
	}
	wg.Wait()

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, state.QueueLength)
	assert.Equal(t, fmt.Sprint(calls), state.LogicalClock)
}

func TestClient_TimeoutAndLateResponseDropped(t *testing.T) {
	ctx := context.Background()

	c := NewClient(nil, testLogger())
	w := NewWorker("", 0, testLogger())
	t.Cleanup(w.Stop)

	// Воркер намеренно не обслуживает запросы: Serve не запущен
	c.worker = w
	go c.dispatch(w)
	c.timeout = 50 * time.Millisecond

	_, err := c.GetState(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	// Запрос снят с ожидания
	c.pendingMu.Lock()
	assert.Empty(t, c.pending)
	c.pendingMu.Unlock()

	// Воркер просыпается и отвечает на уже брошенный запрос: ответ
	// должен быть отброшен, а следующие вызовы — работать
	go w.Serve()
	c.timeout = DefaultTimeout

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, state.DeviceID)
}

func TestClient_TimeoutDoesNotAffectOtherRequests(t *testing.T) {
	ctx := context.Background()
	c := startedClient(t)

	// Искусственно регистрируем ожидающий запрос, который никогда не
	// получит ответ, и убеждаемся, что обычные вызовы не задеты
	c.pendingMu.Lock()
	c.pending["orphan"] = make(chan Response, 1)
	c.pendingMu.Unlock()

	_, err := c.GetState(ctx)
	assert.NoError(t, err)
}

func TestClient_ContextCancellation(t *testing.T) {
	c := NewClient(nil, testLogger())
	w := NewWorker("", 0, testLogger())
	t.Cleanup(w.Stop)
	c.worker = w // Serve не запущен: ответа не будет
	go c.dispatch(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetState(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_TerminateAllowsReinitialize(t *testing.T) {
	ctx := context.Background()
	var created atomic.Int32

	c := NewClient(func() (*Worker, error) {
		created.Add(1)
		return NewWorker("", 0, testLogger()), nil
	}, testLogger())
	t.Cleanup(c.Terminate)

	_, err := c.Queue(ctx, models.CloseTab{ID: "t1"})
	require.NoError(t, err)

	c.Terminate()

	// Новый воркер стартует с чистым состоянием
	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.QueueLength)
	assert.Equal(t, "0", state.LogicalClock)
	assert.Equal(t, int32(2), created.Load())
}

func TestClient_LazyInitializationOnFirstCall(t *testing.T) {
	var created atomic.Int32

	c := NewClient(func() (*Worker, error) {
		created.Add(1)
		return NewWorker("", 0, testLogger()), nil
	}, testLogger())
	t.Cleanup(c.Terminate)

	assert.Equal(t, int32(0), created.Load(), "worker must not start before first use")

	_, err := c.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.Load())
}
