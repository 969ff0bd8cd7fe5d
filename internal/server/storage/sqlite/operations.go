package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/tabsync/internal/server/storage"
	"github.com/iudanet/tabsync/pkg/api"
)

// SaveOperations appends a batch of stamped operations to the log
// The batch is written in a single transaction: either all land or none
func (s *Storage) SaveOperations(ctx context.Context, records []*storage.StoredOperation) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback после commit безвреден

	query := `
		INSERT INTO operations (
			id, device_id, clock, operation_type, target_id, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, record := range records {
		payload, err := json.Marshal(record.Operation)
		if err != nil {
			return fmt.Errorf("failed to marshal operation payload: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			record.ID,
			record.DeviceID,
			record.Clock,
			record.Operation.Type,
			record.Operation.ID,
			string(payload),
			record.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert operation %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit operations: %w", err)
	}

	return nil
}

// GetOperationsSince retrieves operations with clock greater than since,
// excluding those produced by excludeDevice, ordered by clock ascending
func (s *Storage) GetOperationsSince(
	ctx context.Context,
	since uint64,
	excludeDevice string,
	limit int,
) ([]*storage.StoredOperation, error) {
	query := `
		SELECT id, device_id, clock, payload, created_at
		FROM operations
		WHERE clock > ? AND device_id != ?
		ORDER BY clock ASC
	`

	args := []any{since, excludeDevice}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	return scanOperations(rows)
}

// GetAllOperations retrieves the whole log ordered by clock ascending
func (s *Storage) GetAllOperations(ctx context.Context) ([]*storage.StoredOperation, error) {
	query := `
		SELECT id, device_id, clock, payload, created_at
		FROM operations
		ORDER BY clock ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	return scanOperations(rows)
}

// LastClock returns the highest clock value in the log, 0 for an empty log
func (s *Storage) LastClock(ctx context.Context) (uint64, error) {
	query := `SELECT COALESCE(MAX(clock), 0) FROM operations`

	var clock uint64
	err := s.db.QueryRowContext(ctx, query).Scan(&clock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query last clock: %w", err)
	}

	return clock, nil
}

func scanOperations(rows *sql.Rows) ([]*storage.StoredOperation, error) {
	var records []*storage.StoredOperation

	for rows.Next() {
		record := &storage.StoredOperation{}
		var payload string

		err := rows.Scan(
			&record.ID,
			&record.DeviceID,
			&record.Clock,
			&payload,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		var op api.Operation
		if err := json.Unmarshal([]byte(payload), &op); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operation payload: %w", err)
		}
		record.Operation = op

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return records, nil
}
