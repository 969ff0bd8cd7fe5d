package boundary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/tabsync/internal/models"
)

// DefaultTimeout это потолок ожидания ответа воркера на один запрос
const DefaultTimeout = 5 * time.Second

var (
	// ErrWorkerUnavailable возвращается, когда среда не может предоставить
	// фоновый контекст исполнения. Решение о fallback (например, работа
	// с очередью напрямую) остается за вызывающей стороной.
	ErrWorkerUnavailable = errors.New("worker execution context unavailable")

	// ErrTimeout возвращается, когда воркер не ответил за отведенное время
	ErrTimeout = errors.New("boundary request timed out")
)

// WorkerFactory создает воркер при первой инициализации клиента
type WorkerFactory func() (*Worker, error)

// Client представляет синхронную сторону границы: превращает операции
// воркера в блокирующие вызовы через коррелированные сообщения.
// Клиент владеет только картой ожидающих запросов; все состояние очереди
// живет на стороне воркера.
type Client struct {
	factory WorkerFactory
	logger  *slog.Logger
	worker  *Worker
	pending map[string]chan Response

	mu        sync.Mutex // защищает worker (инициализация/терминация)
	pendingMu sync.Mutex // защищает pending
	timeout   time.Duration
}

// NewClient создает клиента границы. Воркер не запускается до первого
// вызова Initialize или первого запроса.
func NewClient(factory WorkerFactory, logger *slog.Logger) *Client {
	return &Client{
		factory: factory,
		logger:  logger,
		pending: make(map[string]chan Response),
		timeout: DefaultTimeout,
	}
}

// Initialize лениво запускает воркер. Конкурентные вызовы до завершения
// первого делят одну инициализацию: второй воркер не создается.
func (c *Client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.ensureWorker()
	return err
}

// ensureWorker запускает воркер, если он еще не запущен. Вызывается под c.mu.
func (c *Client) ensureWorker() (*Worker, error) {
	if c.worker != nil {
		return c.worker, nil
	}
	if c.factory == nil {
		return nil, ErrWorkerUnavailable
	}

	w, err := c.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}

	c.worker = w
	go w.Serve()
	go c.dispatch(w)

	c.logger.Debug("boundary worker started")
	return w, nil
}

// Terminate останавливает воркер и очищает карту ожидающих запросов.
// Незавершенные вызовы не получают отказ — они упрутся в собственный
// timeout. Последующий Initialize создаст новый воркер.
func (c *Client) Terminate() {
	c.mu.Lock()
	w := c.worker
	c.worker = nil
	c.mu.Unlock()

	if w != nil {
		w.Stop()
	}

	c.pendingMu.Lock()
	c.pending = make(map[string]chan Response)
	c.pendingMu.Unlock()

	c.logger.Debug("boundary worker terminated")
}

// Queue ставит операцию в очередь воркера и возвращает присвоенные метаданные
func (c *Client) Queue(ctx context.Context, op models.Operation) (QueueAck, error) {
	data, err := c.call(ctx, MessageQueue, op)
	if err != nil {
		return QueueAck{}, err
	}
	ack, ok := data.(QueueAck)
	if !ok {
		return QueueAck{}, fmt.Errorf("unexpected queue response payload: %T", data)
	}
	return ack, nil
}

// Deduplicate сворачивает очередь воркера и возвращает упорядоченный батч
func (c *Client) Deduplicate(ctx context.Context) ([]models.Operation, error) {
	data, err := c.call(ctx, MessageDeduplicate, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	ops, ok := data.([]models.Operation)
	if !ok {
		return nil, fmt.Errorf("unexpected deduplicate response payload: %T", data)
	}
	return ops, nil
}

// GetState возвращает снимок состояния воркера
func (c *Client) GetState(ctx context.Context) (State, error) {
	data, err := c.call(ctx, MessageGetState, nil)
	if err != nil {
		return State{}, err
	}
	state, ok := data.(State)
	if !ok {
		return State{}, fmt.Errorf("unexpected getState response payload: %T", data)
	}
	return state, nil
}

// ApplyState перезаписывает присутствующие в patch поля состояния устройства
func (c *Client) ApplyState(ctx context.Context, patch StatePatch) error {
	_, err := c.call(ctx, MessageApply, patch)
	return err
}

// call отправляет один коррелированный запрос и ждет соответствующий ответ
func (c *Client) call(ctx context.Context, kind MessageKind, payload any) (any, error) {
	c.mu.Lock()
	w, err := c.ensureWorker()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	req := Request{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: payload,
	}

	reply := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = reply
	c.pendingMu.Unlock()

	select {
	case w.requests <- req:
	case <-w.done:
		c.forget(req.ID)
		return nil, ErrWorkerUnavailable
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-reply:
		if !resp.OK {
			return nil, errors.New(resp.Err)
		}
		return resp.Data, nil
	case <-timer.C:
		c.forget(req.ID)
		return nil, fmt.Errorf("%w: %s request %s after %s", ErrTimeout, kind, req.ID, c.timeout)
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	}
}

// dispatch доставляет ответы воркера ожидающим вызовам по request ID
func (c *Client) dispatch(w *Worker) {
	for {
		select {
		case resp := <-w.replies:
			c.deliver(resp)
		case <-w.done:
			return
		}
	}
}

// deliver находит ожидающий вызов по ID ответа. Ответ на запрос, который
// уже отвалился по таймауту, отбрасывается с записью в лог.
func (c *Client) deliver(resp Response) {
	c.pendingMu.Lock()
	reply, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("dropping response for abandoned request", "request_id", resp.ID)
		return
	}

	reply <- resp
}

// forget снимает запрос с ожидания после таймаута или отмены
func (c *Client) forget(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}
