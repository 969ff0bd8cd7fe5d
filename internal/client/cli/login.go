package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/tabsync/internal/client/storage"
	"github.com/iudanet/tabsync/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	deviceID, err := c.ensureDeviceID(ctx)
	if err != nil {
		return err
	}

	syncToken, err := c.io.ReadPassword("Sync token: ")
	if err != nil {
		return fmt.Errorf("failed to read sync token: %w", err)
	}
	if syncToken == "" {
		return fmt.Errorf("sync token cannot be empty")
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	resp, err := c.apiClient.Token(ctx, api.TokenRequest{
		DeviceID:  deviceID,
		SyncToken: syncToken,
	})
	if err != nil {
		return err
	}

	authData := &storage.AuthData{
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Unix() + resp.ExpiresIn,
	}
	if err := c.auth.SaveAuth(ctx, authData); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Device ID: %s\n", deviceID)
	c.io.Printf("Access token expires in: %d seconds\n", resp.ExpiresIn)

	return nil
}

// ensureDeviceID возвращает сохраненную идентичность устройства,
// создавая новую при первом запуске
func (c *Cli) ensureDeviceID(ctx context.Context) (string, error) {
	state, err := c.devices.GetDeviceState(ctx)
	if err == nil {
		return state.DeviceID, nil
	}
	if !errors.Is(err, storage.ErrDeviceStateNotFound) {
		return "", fmt.Errorf("failed to read device state: %w", err)
	}

	deviceID := uuid.New().String()
	if err := c.devices.SaveDeviceState(ctx, &storage.DeviceState{DeviceID: deviceID}); err != nil {
		return "", fmt.Errorf("failed to save device state: %w", err)
	}

	return deviceID, nil
}
