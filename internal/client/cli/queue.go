package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/pkg/api"
)

// runQueue читает JSON файл с операциями и ставит их в очередь воркера
func (c *Cli) runQueue(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tabsync queue <file>")
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read operations file: %w", err)
	}

	var wire []api.Operation
	if err := json.Unmarshal(content, &wire); err != nil {
		return fmt.Errorf("failed to parse operations file: %w", err)
	}

	ops, err := models.FromWireBatch(wire)
	if err != nil {
		return fmt.Errorf("invalid operations file: %w", err)
	}
	if len(ops) == 0 {
		c.io.Println("No operations to enqueue.")
		return nil
	}

	for _, op := range ops {
		ack, err := c.boundary.Queue(ctx, op)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", op.Kind(), err)
		}
		c.io.Printf("✓ %s (%s, priority %s)\n", op.Kind(), ack.DedupKey, ack.Priority)
	}

	c.io.Println()
	c.io.Printf("Enqueued %d operation(s). Run 'tabsync sync' to push them.\n", len(ops))

	return nil
}
