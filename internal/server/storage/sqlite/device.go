package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/tabsync/internal/server/storage"
)

// UpsertDevice registers a device or updates its last seen time and clock.
// FirstSeen сохраняется от первой записи и никогда не перезаписывается.
func (s *Storage) UpsertDevice(ctx context.Context, device *storage.Device) error {
	query := `
		INSERT INTO devices (device_id, first_seen, last_seen, last_clock)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			last_clock = excluded.last_clock
	`

	_, err := s.db.ExecContext(ctx, query,
		device.DeviceID,
		device.FirstSeen,
		device.LastSeen,
		device.LastClock,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

// GetDevice retrieves a device by its ID
// Returns ErrDeviceNotFound if the device has never synced
func (s *Storage) GetDevice(ctx context.Context, deviceID string) (*storage.Device, error) {
	query := `
		SELECT device_id, first_seen, last_seen, last_clock
		FROM devices
		WHERE device_id = ?
	`

	device := &storage.Device{}
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.DeviceID,
		&device.FirstSeen,
		&device.LastSeen,
		&device.LastClock,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// ListDevices retrieves all known devices ordered by last seen descending
func (s *Storage) ListDevices(ctx context.Context) ([]*storage.Device, error) {
	query := `
		SELECT device_id, first_seen, last_seen, last_clock
		FROM devices
		ORDER BY last_seen DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*storage.Device
	for rows.Next() {
		device := &storage.Device{}
		err := rows.Scan(
			&device.DeviceID,
			&device.FirstSeen,
			&device.LastSeen,
			&device.LastClock,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}
