package storage

import "context"

//go:generate moq -out device_mock.go . DeviceStorage

// DeviceState представляет сохраняемое между запусками состояние устройства
type DeviceState struct {
	DeviceID     string `json:"device_id"`     // стабильная идентичность устройства
	LogicalClock uint64 `json:"logical_clock"` // Lamport clock на момент сохранения
	LastSync     uint64 `json:"last_sync"`     // серверный clock последней успешной синхронизации
}

// DeviceStorage defines interface for persisting device identity and clocks
type DeviceStorage interface {
	// SaveDeviceState stores the device state, overwriting any previous one
	SaveDeviceState(ctx context.Context, state *DeviceState) error

	// GetDeviceState retrieves the persisted device state
	// Returns ErrDeviceStateNotFound if the client has never synced before
	GetDeviceState(ctx context.Context) (*DeviceState, error)
}
