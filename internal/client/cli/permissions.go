package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/tabsync/internal/client/sync"
)

func (c *Cli) runPermissions(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tabsync permissions <list|grant>")
	}

	switch args[0] {
	case "list":
		granted, err := c.perms.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to list permissions: %w", err)
		}
		if len(granted) == 0 {
			c.io.Println("No permissions granted.")
			return nil
		}
		for _, name := range granted {
			c.io.Printf("  %s\n", name)
		}
		return nil

	case "grant":
		ok, err := c.perms.Request(ctx, sync.RequiredPermissions)
		if err != nil {
			return fmt.Errorf("failed to request permissions: %w", err)
		}
		if !ok {
			c.io.Println("Permissions were not granted.")
			return nil
		}
		c.io.Printf("✓ Granted: %s\n", strings.Join(sync.RequiredPermissions, ", "))
		return nil

	default:
		return fmt.Errorf("unknown permissions subcommand: %s", args[0])
	}
}
