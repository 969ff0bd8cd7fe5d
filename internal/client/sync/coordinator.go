// Package sync реализует координатор периодической синхронизации:
// проверка разрешений, свертка очереди через boundary, передача батча
// транспорту и принятие авторитетного состояния сервера.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/iudanet/tabsync/internal/boundary"
	"github.com/iudanet/tabsync/internal/client/permissions"
	"github.com/iudanet/tabsync/internal/client/storage"
	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/pkg/api"
)

// RequiredPermissions это фиксированный набор разрешений, без которых
// синхронизация невозможна. Координатор его только проверяет и
// запрашивает, никогда не изменяет.
var RequiredPermissions = []string{"tabs", "storage"}

// Действия восстановления, показываемые пользователю при отказе в
// разрешениях. Это данные, а не проза: вызывающая сторона рендерит их
// как есть, тесты сравнивают точные строки.
const (
	RecoveryGrantPermissions = "Grant the required permissions"
	RecoveryOpenPrompt       = "Use the extension icon to open the permission prompt"
)

// Status описывает исход попытки синхронизации
type Status int

const (
	StatusOK                    Status = iota // батч передан, состояние принято
	StatusSkipped                             // другая попытка уже выполняется
	StatusPermissionDenied                    // не хватает разрешений
	StatusPermissionCheckFailed               // сама проверка разрешений упала
	StatusBoundaryFailed                      // boundary не ответил или ответил ошибкой
	StatusTransportFailed                     // транспорт вернул ошибку
)

// String возвращает читаемое имя статуса для логов
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusPermissionDenied:
		return "permission_denied"
	case StatusPermissionCheckFailed:
		return "permission_check_failed"
	case StatusBoundaryFailed:
		return "boundary_failed"
	case StatusTransportFailed:
		return "transport_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result представляет структурированный исход попытки синхронизации.
// Ошибки никогда не пробрасываются мимо координатора: вызывающая сторона
// получает результат, пригодный для показа пользователю.
type Result struct {
	Err              error
	RemoteOperations []models.Operation // операции других устройств (только при StatusOK)
	Missing          []string           // недостающие разрешения (только при StatusPermissionDenied)
	RecoveryActions  []string           // подсказки пользователю (только при StatusPermissionDenied)
	ServerClock      uint64             // clock сервера после обмена (только при StatusOK)
	Status           Status
}

//go:generate moq -out boundary_mock.go . Boundary

// Boundary определяет операции границы, используемые координатором
type Boundary interface {
	Deduplicate(ctx context.Context) ([]models.Operation, error)
	GetState(ctx context.Context) (boundary.State, error)
	ApplyState(ctx context.Context, patch boundary.StatePatch) error
}

//go:generate moq -out transport_mock.go . Transport

// Transport определяет внешний транспорт обмена с сервером.
// Политика повторов живет внутри транспорта, координатор не повторяет.
type Transport interface {
	Sync(ctx context.Context, accessToken string, req api.SyncRequest) (*api.SyncResponse, error)
}

// Coordinator управляет жизненным циклом одной попытки синхронизации
type Coordinator struct {
	boundary    Boundary
	transport   Transport
	permissions permissions.Checker
	auth        storage.AuthStorage
	devices     storage.DeviceStorage
	logger      *slog.Logger
	syncing     atomic.Bool // single-flight guard
}

// NewCoordinator создает координатор синхронизации
func NewCoordinator(
	b Boundary,
	transport Transport,
	perms permissions.Checker,
	auth storage.AuthStorage,
	devices storage.DeviceStorage,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		boundary:    b,
		transport:   transport,
		permissions: perms,
		auth:        auth,
		devices:     devices,
		logger:      logger,
	}
}

// Sync выполняет одну попытку синхронизации.
// Если попытка уже выполняется, возвращается StatusSkipped без побочных
// эффектов: одновременно может выполняться не больше одной попытки.
func (c *Coordinator) Sync(ctx context.Context) *Result {
	// Guard выставляется до первой точки приостановки и снимается на
	// всех путях выхода, иначе следующие попытки заблокируются навсегда.
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug("sync already in progress, skipping")
		return &Result{Status: StatusSkipped}
	}
	defer c.syncing.Store(false)

	if result := c.checkPermissions(ctx); result != nil {
		return result
	}

	return c.run(ctx)
}

// checkPermissions проверяет обязательные разрешения.
// Возвращает nil, если синхронизация может продолжаться.
func (c *Coordinator) checkPermissions(ctx context.Context) *Result {
	granted, err := c.permissions.Contains(ctx, RequiredPermissions)
	if err != nil {
		// Сбой самой проверки: к сети не прикасаемся
		return &Result{
			Status: StatusPermissionCheckFailed,
			Err:    fmt.Errorf("failed to check permissions: %w", err),
		}
	}
	if granted {
		return nil
	}

	missing := c.missingPermissions(ctx)

	// Пробуем запросить недостающее, но текущая попытка все равно
	// завершается отказом: успешный grant подействует на следующую.
	if ok, err := c.permissions.Request(ctx, missing); err != nil {
		c.logger.Warn("permission request failed", "error", err)
	} else if ok {
		c.logger.Info("permissions granted, will take effect on next sync", "granted", missing)
	}

	return &Result{
		Status:          StatusPermissionDenied,
		Missing:         missing,
		RecoveryActions: []string{RecoveryGrantPermissions, RecoveryOpenPrompt},
		Err:             fmt.Errorf("missing permissions: %v", missing),
	}
}

// missingPermissions вычисляет недостающее подмножество обязательных разрешений
func (c *Coordinator) missingPermissions(ctx context.Context) []string {
	granted, err := c.permissions.GetAll(ctx)
	if err != nil {
		c.logger.Warn("failed to enumerate granted permissions", "error", err)
		granted = nil
	}

	grantedSet := make(map[string]bool, len(granted))
	for _, name := range granted {
		grantedSet[name] = true
	}

	missing := make([]string, 0, len(RequiredPermissions))
	for _, name := range RequiredPermissions {
		if !grantedSet[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// run выполняет drain → transmit → apply
func (c *Coordinator) run(ctx context.Context) *Result {
	state, err := c.boundary.GetState(ctx)
	if err != nil {
		return &Result{Status: StatusBoundaryFailed, Err: fmt.Errorf("failed to get device state: %w", err)}
	}

	clock, err := strconv.ParseUint(state.LogicalClock, 10, 64)
	if err != nil {
		return &Result{Status: StatusBoundaryFailed, Err: fmt.Errorf("malformed logical clock %q: %w", state.LogicalClock, err)}
	}

	auth, err := c.auth.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return &Result{Status: StatusTransportFailed, Err: errors.New("not authenticated: run login first")}
		}
		return &Result{Status: StatusTransportFailed, Err: fmt.Errorf("failed to read auth data: %w", err)}
	}
	if time.Now().Unix() >= auth.ExpiresAt {
		return &Result{Status: StatusTransportFailed, Err: errors.New("access token has expired: run login again")}
	}

	since := c.lastSyncClock(ctx)

	// Drain: батч уже упорядочен и дедуплицирован воркером
	ops, err := c.boundary.Deduplicate(ctx)
	if err != nil {
		return &Result{Status: StatusBoundaryFailed, Err: fmt.Errorf("failed to drain queue: %w", err)}
	}

	c.logger.Info("starting sync",
		"device_id", state.DeviceID,
		"operations", len(ops),
		"clock", clock,
		"since", since)

	// Transmit: пустой батч тоже отправляется, обмен заодно забирает
	// операции других устройств
	req := api.SyncRequest{
		DeviceID:   state.DeviceID,
		Clock:      clock,
		Since:      since,
		Operations: models.ToWireBatch(ops),
	}

	resp, err := c.transport.Sync(ctx, auth.AccessToken, req)
	if err != nil {
		// Политика повторов принадлежит транспорту, ошибка
		// пробрасывается как есть
		return &Result{Status: StatusTransportFailed, Err: err}
	}

	// Apply: принимаем авторитетный clock сервера
	serverClock := resp.Clock
	if err := c.boundary.ApplyState(ctx, boundary.StatePatch{Clock: &serverClock}); err != nil {
		return &Result{Status: StatusBoundaryFailed, Err: fmt.Errorf("failed to apply server state: %w", err)}
	}

	c.persistDeviceState(ctx, state.DeviceID, clock, serverClock)

	remote := c.decodeRemote(resp.Operations)

	c.logger.Info("sync completed",
		"pushed", len(ops),
		"pulled", len(remote),
		"server_clock", serverClock)

	return &Result{
		Status:           StatusOK,
		RemoteOperations: remote,
		ServerClock:      serverClock,
	}
}

// lastSyncClock возвращает серверный clock последней успешной синхронизации
func (c *Coordinator) lastSyncClock(ctx context.Context) uint64 {
	state, err := c.devices.GetDeviceState(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrDeviceStateNotFound) {
			c.logger.Warn("failed to read device state, using 0", "error", err)
		}
		return 0
	}
	return state.LastSync
}

// persistDeviceState сохраняет состояние устройства для следующего запуска.
// Ошибка сохранения не прерывает синхронизацию.
func (c *Coordinator) persistDeviceState(ctx context.Context, deviceID string, clock, serverClock uint64) {
	adopted := clock
	if serverClock > adopted {
		adopted = serverClock
	}

	err := c.devices.SaveDeviceState(ctx, &storage.DeviceState{
		DeviceID:     deviceID,
		LogicalClock: adopted,
		LastSync:     serverClock,
	})
	if err != nil {
		c.logger.Warn("failed to persist device state", "error", err)
	}
}

// decodeRemote восстанавливает операции сервера, пропуская некорректные
func (c *Coordinator) decodeRemote(wire []api.Operation) []models.Operation {
	remote := make([]models.Operation, 0, len(wire))
	for _, w := range wire {
		op, err := models.FromWire(w)
		if err != nil {
			c.logger.Warn("skipping malformed remote operation", "type", w.Type, "id", w.ID, "error", err)
			continue
		}
		remote = append(remote, op)
	}
	return remote
}
