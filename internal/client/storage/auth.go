package storage

import "context"

//go:generate moq -out auth_mock.go . AuthStorage

// AuthData представляет аутентификационные данные устройства в хранилище
type AuthData struct {
	AccessToken string `json:"access_token"` // JWT access token, выданный сервером
	ExpiresAt   int64  `json:"expires_at"`   // unix время истечения токена
}

// AuthStorage defines interface for storing the device access token
type AuthStorage interface {
	// SaveAuth stores authentication data, overwriting any previous one
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error
}
