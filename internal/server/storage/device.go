package storage

import "context"

// Device представляет известное серверу устройство
type Device struct {
	DeviceID  string // идентификатор, выбранный клиентом
	FirstSeen int64  // unix время первого обращения
	LastSeen  int64  // unix время последнего обращения
	LastClock uint64 // серверный clock последней синхронизации устройства
}

//go:generate moq -out device_mock.go . DeviceStorage

// DeviceStorage defines interface for the device registry
type DeviceStorage interface {
	// UpsertDevice registers a device or updates its last seen time and clock
	UpsertDevice(ctx context.Context, device *Device) error

	// GetDevice retrieves a device by its ID
	// Returns ErrDeviceNotFound if the device has never synced
	GetDevice(ctx context.Context, deviceID string) (*Device, error)

	// ListDevices retrieves all known devices ordered by last seen descending
	ListDevices(ctx context.Context) ([]*Device, error)
}
