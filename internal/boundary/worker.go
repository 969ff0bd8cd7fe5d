package boundary

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/tabsync/internal/clock"
	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/internal/queue"
)

// requestBuffer ограничивает число запросов, ожидающих обработки воркером
const requestBuffer = 64

// Worker монопольно владеет очередью операций и состоянием устройства.
// Запросы обрабатываются строго последовательно, один за другим, поэтому
// внутренних блокировок нет: это и есть упрощение модели конкурентности,
// которое обязана сохранять любая реализация границы.
type Worker struct {
	logger   *slog.Logger
	queue    *queue.Queue
	clock    *clock.Lamport
	requests chan Request
	replies  chan Response
	done     chan struct{}
	stopOnce sync.Once
	deviceID string
}

// NewWorker создает воркер с заданной идентичностью устройства.
// Пустой deviceID означает новое устройство: идентификатор генерируется.
// clockValue восстанавливает logical clock после перезапуска (0 для нового).
func NewWorker(deviceID string, clockValue uint64, logger *slog.Logger) *Worker {
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	lc := clock.NewLamportWithNodeID(deviceID)
	lc.SetCurrent(clockValue)

	return &Worker{
		deviceID: deviceID,
		queue:    queue.New(),
		clock:    lc,
		requests: make(chan Request, requestBuffer),
		replies:  make(chan Response, requestBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Serve обрабатывает запросы до остановки воркера.
// Запускается в отдельной горутине владельцем воркера.
func (w *Worker) Serve() {
	for {
		select {
		case req := <-w.requests:
			w.send(w.handle(req))
		case <-w.done:
			return
		}
	}
}

// Stop останавливает воркер. Запросы, оставшиеся в буфере, отбрасываются.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// send доставляет ответ, не зависая, если слушатель уже остановлен
func (w *Worker) send(resp Response) {
	select {
	case w.replies <- resp:
	case <-w.done:
	}
}

// handle обрабатывает один запрос. Паника обработчика превращается в
// error-ответ: воркер не падает и не теряет запросы.
func (w *Worker) handle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker handler panicked", "kind", req.Kind, "panic", r)
			resp = Response{ID: req.ID, OK: false, Err: fmt.Sprintf("%v", r)}
		}
	}()

	switch req.Kind {
	case MessageQueue:
		return w.handleQueue(req)
	case MessageDeduplicate:
		return w.handleDeduplicate(req)
	case MessageGetState:
		return w.handleGetState(req)
	case MessageApply:
		return w.handleApply(req)
	default:
		return Response{ID: req.ID, OK: false, Err: fmt.Sprintf("Unknown message type: %s", req.Kind)}
	}
}

func (w *Worker) handleQueue(req Request) Response {
	op, ok := req.Payload.(models.Operation)
	if !ok {
		return Response{ID: req.ID, OK: false, Err: fmt.Sprintf("queue payload is not an operation: %T", req.Payload)}
	}

	entry := w.queue.Enqueue(op)
	w.clock.Tick()

	w.logger.Debug("operation queued",
		"kind", op.Kind(),
		"entity_id", op.EntityID(),
		"priority", entry.Priority.String(),
		"dedup_key", entry.DedupKey,
		"queue_length", w.queue.Len())

	return Response{
		ID: req.ID,
		OK: true,
		Data: QueueAck{
			Priority: entry.Priority,
			DedupKey: entry.DedupKey,
		},
	}
}

func (w *Worker) handleDeduplicate(req Request) Response {
	ops := w.queue.Drain()

	w.logger.Debug("queue drained", "operations", len(ops))

	return Response{ID: req.ID, OK: true, Data: ops}
}

func (w *Worker) handleGetState(req Request) Response {
	return Response{
		ID: req.ID,
		OK: true,
		Data: State{
			QueueLength:  w.queue.Len(),
			LogicalClock: strconv.FormatUint(w.clock.Current(), 10),
			DeviceID:     w.deviceID,
		},
	}
}

func (w *Worker) handleApply(req Request) Response {
	patch, ok := req.Payload.(StatePatch)
	if !ok {
		return Response{ID: req.ID, OK: false, Err: fmt.Sprintf("apply payload is not a state patch: %T", req.Payload)}
	}

	if patch.DeviceID != nil {
		w.deviceID = *patch.DeviceID
	}
	if patch.Clock != nil {
		w.clock.SetCurrent(*patch.Clock)
	}

	w.logger.Debug("device state applied",
		"device_id", w.deviceID,
		"clock", w.clock.Current())

	return Response{ID: req.ID, OK: true}
}
