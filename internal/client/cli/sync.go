package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/tabsync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("Synchronizing...")

	result := c.coordinator.Sync(ctx)

	switch result.Status {
	case sync.StatusOK:
		c.io.Println("✓ Sync completed")
		c.io.Printf("Server clock: %d\n", result.ServerClock)
		if len(result.RemoteOperations) > 0 {
			c.io.Printf("Received %d operation(s) from other devices:\n", len(result.RemoteOperations))
			for _, op := range result.RemoteOperations {
				c.io.Printf("  %s %s\n", op.Kind(), op.EntityID())
			}
		}
		return nil

	case sync.StatusSkipped:
		c.io.Println("Sync already in progress, skipped.")
		return nil

	case sync.StatusPermissionDenied:
		c.io.Printf("Missing permissions: %s\n", strings.Join(result.Missing, ", "))
		for _, action := range result.RecoveryActions {
			c.io.Printf("  - %s\n", action)
		}
		return result.Err

	default:
		return fmt.Errorf("sync failed (%s): %w", result.Status, result.Err)
	}
}
