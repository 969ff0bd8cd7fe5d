package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

const keyGranted = "granted"

// SaveGranted stores the full set of granted permission names
func (s *Storage) SaveGranted(ctx context.Context, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to marshal granted permissions: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPermissions)
		if bucket == nil {
			return fmt.Errorf("permissions bucket not found")
		}

		if err := bucket.Put([]byte(keyGranted), data); err != nil {
			return fmt.Errorf("failed to save granted permissions: %w", err)
		}

		return nil
	})
}

// GetGranted retrieves the set of granted permission names
// Returns an empty slice when nothing has been granted yet
func (s *Storage) GetGranted(ctx context.Context) ([]string, error) {
	var names []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPermissions)
		if bucket == nil {
			return fmt.Errorf("permissions bucket not found")
		}

		data := bucket.Get([]byte(keyGranted))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("failed to unmarshal granted permissions: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return names, nil
}
