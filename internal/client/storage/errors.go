package storage

import "errors"

// Common client storage errors
var (
	// ErrDeviceStateNotFound indicates that no device state has been persisted yet
	ErrDeviceStateNotFound = errors.New("device state not found")

	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")
)
