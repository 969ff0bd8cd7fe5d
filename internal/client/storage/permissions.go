package storage

import "context"

//go:generate moq -out permissions_mock.go . PermissionStorage

// PermissionStorage defines interface for the persisted set of granted
// capability names. Пустой набор означает, что пользователь еще ничего
// не предоставил.
type PermissionStorage interface {
	// SaveGranted stores the full set of granted permission names
	SaveGranted(ctx context.Context, names []string) error

	// GetGranted retrieves the set of granted permission names
	// Returns an empty slice when nothing has been granted yet
	GetGranted(ctx context.Context) ([]string, error)
}
