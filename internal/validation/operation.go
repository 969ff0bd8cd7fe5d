// Package validation проверяет входящие операции и sync-запросы на
// серверной стороне. Клиентам не доверяем: лимиты защищают op log от
// мусорных и злонамеренно больших записей.
package validation

import (
	"fmt"

	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/pkg/api"
)

const (
	// MaxTabIDLen максимальная длина идентификатора вкладки
	MaxTabIDLen = 256
	// MaxDeviceIDLen максимальная длина идентификатора устройства
	MaxDeviceIDLen = 128
	// MaxURLLen максимальная длина URL вкладки
	MaxURLLen = 2048
	// MaxTitleLen максимальная длина заголовка вкладки
	MaxTitleLen = 512
	// MaxOperationsPerRequest максимальное число операций в одном запросе
	MaxOperationsPerRequest = 1000
)

// ValidateSyncRequest проверяет структуру sync-запроса целиком:
// device id, согласованность clock-значений и размер батча
func ValidateSyncRequest(req *api.SyncRequest) error {
	if req.DeviceID == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if len(req.DeviceID) > MaxDeviceIDLen {
		return fmt.Errorf("device ID too long (max %d characters)", MaxDeviceIDLen)
	}
	if req.Since > req.Clock {
		return fmt.Errorf("since cannot be greater than current clock")
	}
	if len(req.Operations) > MaxOperationsPerRequest {
		return fmt.Errorf("too many operations in single request (max %d)", MaxOperationsPerRequest)
	}
	return nil
}

// ValidateOperations проверяет каждую операцию батча.
// Возвращает ошибку первой некорректной операции с ее позицией.
func ValidateOperations(ops []models.Operation) error {
	for i, op := range ops {
		if err := ValidateOperation(op); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

// ValidateOperation проверяет одну операцию по ее виду
func ValidateOperation(op models.Operation) error {
	if err := validateEntityID(op); err != nil {
		return err
	}

	switch v := op.(type) {
	case models.UpsertTab:
		if v.Tab.WindowID == "" {
			return fmt.Errorf("window ID cannot be empty")
		}
		if v.Tab.URL == "" {
			return fmt.Errorf("tab URL cannot be empty")
		}
		if len(v.Tab.URL) > MaxURLLen {
			return fmt.Errorf("URL too long (max %d characters)", MaxURLLen)
		}
		if len(v.Tab.Title) > MaxTitleLen {
			return fmt.Errorf("title too long (max %d characters)", MaxTitleLen)
		}
	case models.ChangeURL:
		if v.URL == "" {
			return fmt.Errorf("URL cannot be empty")
		}
		if len(v.URL) > MaxURLLen {
			return fmt.Errorf("URL too long (max %d characters)", MaxURLLen)
		}
		if v.Title != nil && len(*v.Title) > MaxTitleLen {
			return fmt.Errorf("title too long (max %d characters)", MaxTitleLen)
		}
	case models.MoveTab:
		if v.WindowID == "" {
			return fmt.Errorf("window ID cannot be empty")
		}
	}

	return nil
}

func validateEntityID(op models.Operation) error {
	id := op.EntityID()

	entity := "tab"
	switch op.Kind() {
	case models.KindTrackWindow, models.KindUntrackWindow, models.KindSetWindowFocus:
		entity = "window"
	}

	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", entity)
	}
	if len(id) > MaxTabIDLen {
		return fmt.Errorf("%s ID too long (max %d characters)", entity, MaxTabIDLen)
	}
	return nil
}
