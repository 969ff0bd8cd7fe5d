package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/tabsync/internal/clock"
	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/internal/server/state"
	"github.com/iudanet/tabsync/internal/server/storage"
	"github.com/iudanet/tabsync/internal/validation"
	"github.com/iudanet/tabsync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

// DeviceIDKey ключ для хранения device_id в контексте
const DeviceIDKey contextKey = "device_id"

// GetDeviceID извлекает device_id из контекста запроса
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}

// maxPullBatch ограничивает число операций, отдаваемых за один запрос
const maxPullBatch = 1000

// OperationStorage определяет интерфейс op log, нужный handler'у
type OperationStorage interface {
	SaveOperations(ctx context.Context, records []*storage.StoredOperation) error
	GetOperationsSince(ctx context.Context, since uint64, excludeDevice string, limit int) ([]*storage.StoredOperation, error)
}

// DeviceStorage определяет интерфейс реестра устройств, нужный handler'у
type DeviceStorage interface {
	UpsertDevice(ctx context.Context, device *storage.Device) error
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger     *slog.Logger
	operations OperationStorage
	devices    DeviceStorage
	clock      *clock.Lamport
	doc        *state.Doc
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(
	logger *slog.Logger,
	operations OperationStorage,
	devices DeviceStorage,
	serverClock *clock.Lamport,
	doc *state.Doc,
) *SyncHandler {
	return &SyncHandler{
		logger:     logger,
		operations: operations,
		devices:    devices,
		clock:      serverClock,
		doc:        doc,
	}
}

// HandleSync обрабатывает POST /api/v1/sync
// Принимает батч операций устройства, присваивает им серверный clock
// и возвращает операции других устройств с момента since
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// device_id из токена установлен AuthMiddleware
	deviceID, ok := GetDeviceID(ctx)
	if !ok {
		h.logger.Error("device ID not found in context")
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode sync request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSyncRequest(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid sync request", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// device_id в запросе обязан совпадать с идентичностью токена
	if req.DeviceID != deviceID {
		h.logger.WarnContext(ctx, "device id mismatch",
			slog.String("token_device", deviceID),
			slog.String("request_device", req.DeviceID))
		h.sendError(w, "device_id does not match token", http.StatusForbidden)
		return
	}

	ops, err := models.FromWireBatch(req.Operations)
	if err != nil {
		h.logger.WarnContext(ctx, "malformed operation in batch", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateOperations(ops); err != nil {
		h.logger.WarnContext(ctx, "operation validation failed", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Подтягиваем серверный clock до clock клиента, затем штампуем
	// каждую операцию: порядок внутри батча сохраняется
	h.clock.Update(req.Clock)

	now := time.Now().Unix()
	records := make([]*storage.StoredOperation, 0, len(ops))
	for i := range ops {
		records = append(records, &storage.StoredOperation{
			ID:        uuid.New().String(),
			DeviceID:  deviceID,
			Operation: req.Operations[i],
			Clock:     h.clock.Tick(),
			CreatedAt: now,
		})
	}

	if err := h.operations.SaveOperations(ctx, records); err != nil {
		h.logger.ErrorContext(ctx, "failed to save operations", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Обновляем материализованный документ после успешной записи в журнал
	for i, op := range ops {
		h.doc.Apply(op, records[i].Clock)
	}

	serverClock := h.clock.Current()

	if err := h.devices.UpsertDevice(ctx, &storage.Device{
		DeviceID:  deviceID,
		FirstSeen: now,
		LastSeen:  now,
		LastClock: serverClock,
	}); err != nil {
		// Реестр устройств вспомогательный, синхронизацию не прерываем
		h.logger.WarnContext(ctx, "failed to upsert device", slog.Any("error", err))
	}

	pulled, err := h.operations.GetOperationsSince(ctx, req.Since, deviceID, maxPullBatch)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get operations", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	wire := make([]api.Operation, 0, len(pulled))
	for _, record := range pulled {
		wire = append(wire, record.Operation)
	}

	h.logger.InfoContext(ctx, "sync completed",
		slog.String("device_id", deviceID),
		slog.Int("pushed", len(records)),
		slog.Int("pulled", len(wire)),
		slog.Uint64("server_clock", serverClock))

	resp := api.SyncResponse{
		Clock:      serverClock,
		Operations: wire,
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// HandleState обрабатывает GET /api/v1/state
// Возвращает материализованное состояние вкладок и окон
func (h *SyncHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetDeviceID(r.Context()); !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.sendJSON(w, h.doc.Snapshot(), http.StatusOK)
}

// sendJSON отправляет JSON ответ
func (h *SyncHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *SyncHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
