package storage

import "errors"

// Common storage errors
var (
	// ErrDeviceNotFound indicates that device was not registered yet
	ErrDeviceNotFound = errors.New("device not found")
)
