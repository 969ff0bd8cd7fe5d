package storage

import (
	"context"

	"github.com/iudanet/tabsync/pkg/api"
)

// StoredOperation представляет одну операцию в серверном op log.
// Clock присваивается сервером в момент записи и задает тотальный
// порядок операций между всеми устройствами.
type StoredOperation struct {
	ID        string        // uuid, присвоенный сервером
	DeviceID  string        // устройство-источник
	Operation api.Operation // проволочное представление операции
	Clock     uint64        // серверный Lamport clock
	CreatedAt int64         // unix время записи
}

//go:generate moq -out operations_mock.go . OperationStorage

// OperationStorage defines interface for the append-only operation log
type OperationStorage interface {
	// SaveOperations appends a batch of stamped operations to the log
	// The batch is written atomically: either all operations land or none
	SaveOperations(ctx context.Context, records []*StoredOperation) error

	// GetOperationsSince retrieves operations with clock greater than since,
	// excluding those produced by excludeDevice, ordered by clock ascending.
	// Returns at most limit records; limit <= 0 means no limit
	GetOperationsSince(ctx context.Context, since uint64, excludeDevice string, limit int) ([]*StoredOperation, error)

	// GetAllOperations retrieves the whole log ordered by clock ascending.
	// Used to rebuild the in-memory document on startup
	GetAllOperations(ctx context.Context) ([]*StoredOperation, error)

	// LastClock returns the highest clock value in the log, 0 for an empty log
	LastClock(ctx context.Context) (uint64, error)
}
