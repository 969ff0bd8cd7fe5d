// Package permissions реализует capability проверки именованных разрешений.
// В браузерном происхождении системы это permissions API расширения;
// здесь роль prompt играет интерактивное подтверждение в терминале,
// а состав предоставленных разрешений хранится в клиентском хранилище.
package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iudanet/tabsync/internal/client/iocli"
	"github.com/iudanet/tabsync/internal/client/storage"
)

//go:generate moq -out checker_mock.go . Checker

// Checker определяет capability работы с именованными разрешениями
type Checker interface {
	// Contains сообщает, предоставлены ли все перечисленные разрешения
	Contains(ctx context.Context, names []string) (bool, error)

	// GetAll возвращает полный набор предоставленных разрешений
	GetAll(ctx context.Context) ([]string, error)

	// Request запрашивает у пользователя перечисленные разрешения.
	// Возвращает true, если все они предоставлены после запроса.
	Request(ctx context.Context, names []string) (bool, error)
}

// Service реализует Checker поверх сохраненного набора грантов
type Service struct {
	store  storage.PermissionStorage
	io     iocli.IO
	logger *slog.Logger
}

// NewService создает capability разрешений.
// io может быть nil: тогда Request всегда отвечает отказом
// (неинтерактивная среда не может показать prompt).
func NewService(store storage.PermissionStorage, io iocli.IO, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		io:     io,
		logger: logger,
	}
}

// Contains сообщает, предоставлены ли все перечисленные разрешения
func (s *Service) Contains(ctx context.Context, names []string) (bool, error) {
	granted, err := s.store.GetGranted(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read granted permissions: %w", err)
	}

	grantedSet := make(map[string]bool, len(granted))
	for _, name := range granted {
		grantedSet[name] = true
	}

	for _, name := range names {
		if !grantedSet[name] {
			return false, nil
		}
	}
	return true, nil
}

// GetAll возвращает полный набор предоставленных разрешений
func (s *Service) GetAll(ctx context.Context) ([]string, error) {
	granted, err := s.store.GetGranted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read granted permissions: %w", err)
	}
	return granted, nil
}

// Request запрашивает у пользователя перечисленные разрешения
func (s *Service) Request(ctx context.Context, names []string) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	if s.io == nil {
		s.logger.Warn("cannot prompt for permissions without a terminal", "requested", names)
		return false, nil
	}

	ok, err := s.io.Confirm(fmt.Sprintf("Grant permissions %s?", strings.Join(names, ", ")))
	if err != nil {
		return false, fmt.Errorf("permission prompt failed: %w", err)
	}
	if !ok {
		s.logger.Info("permission request declined", "requested", names)
		return false, nil
	}

	granted, err := s.store.GetGranted(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read granted permissions: %w", err)
	}

	grantedSet := make(map[string]bool, len(granted)+len(names))
	for _, name := range granted {
		grantedSet[name] = true
	}
	for _, name := range names {
		if !grantedSet[name] {
			granted = append(granted, name)
			grantedSet[name] = true
		}
	}

	if err := s.store.SaveGranted(ctx, granted); err != nil {
		return false, fmt.Errorf("failed to save granted permissions: %w", err)
	}

	s.logger.Info("permissions granted", "granted", names)
	return true, nil
}
