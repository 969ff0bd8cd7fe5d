package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/tabsync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	deviceState, err := c.devices.GetDeviceState(ctx)
	switch {
	case errors.Is(err, storage.ErrDeviceStateNotFound):
		c.io.Println("Device: not registered (run 'tabsync login')")
	case err != nil:
		return fmt.Errorf("failed to read device state: %w", err)
	default:
		c.io.Printf("Device ID: %s\n", deviceState.DeviceID)
		c.io.Printf("Last sync clock: %d\n", deviceState.LastSync)
	}

	authData, err := c.auth.GetAuth(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		c.io.Println("Auth: not authenticated")
	case err != nil:
		return fmt.Errorf("failed to read auth data: %w", err)
	default:
		expiresAt := time.Unix(authData.ExpiresAt, 0)
		if time.Now().After(expiresAt) {
			c.io.Println("Auth: token expired, run 'tabsync login' again")
		} else {
			c.io.Printf("Auth: token valid until %s\n", expiresAt.Format(time.RFC3339))
		}
	}

	state, err := c.boundary.GetState(ctx)
	if err != nil {
		c.io.Printf("Queue: unavailable (%v)\n", err)
	} else {
		c.io.Printf("Queue length: %d\n", state.QueueLength)
		c.io.Printf("Logical clock: %s\n", state.LogicalClock)
	}

	granted, err := c.perms.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	if len(granted) == 0 {
		c.io.Println("Permissions: none granted")
	} else {
		c.io.Printf("Permissions: %s\n", strings.Join(granted, ", "))
	}

	return nil
}
