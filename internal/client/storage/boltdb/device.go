package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/tabsync/internal/client/storage"
)

const keyDeviceState = "state"

// SaveDeviceState stores the device state, overwriting any previous one
func (s *Storage) SaveDeviceState(ctx context.Context, state *storage.DeviceState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal device state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDevice)
		if bucket == nil {
			return fmt.Errorf("device bucket not found")
		}

		if err := bucket.Put([]byte(keyDeviceState), data); err != nil {
			return fmt.Errorf("failed to save device state: %w", err)
		}

		return nil
	})
}

// GetDeviceState retrieves the persisted device state
// Returns storage.ErrDeviceStateNotFound if the client has never synced before
func (s *Storage) GetDeviceState(ctx context.Context) (*storage.DeviceState, error) {
	var state *storage.DeviceState

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDevice)
		if bucket == nil {
			return fmt.Errorf("device bucket not found")
		}

		data := bucket.Get([]byte(keyDeviceState))
		if data == nil {
			return storage.ErrDeviceStateNotFound
		}

		state = &storage.DeviceState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("failed to unmarshal device state: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return state, nil
}
