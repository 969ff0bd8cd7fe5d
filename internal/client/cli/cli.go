// Package cli реализует команды консольного клиента синхронизации вкладок.
package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/tabsync/internal/boundary"
	"github.com/iudanet/tabsync/internal/client/api"
	"github.com/iudanet/tabsync/internal/client/iocli"
	"github.com/iudanet/tabsync/internal/client/permissions"
	"github.com/iudanet/tabsync/internal/client/storage"
	"github.com/iudanet/tabsync/internal/client/sync"
)

// Cli связывает команды с их зависимостями
type Cli struct {
	io          iocli.IO
	apiClient   api.ClientAPI
	boundary    *boundary.Client
	coordinator *sync.Coordinator
	auth        storage.AuthStorage
	devices     storage.DeviceStorage
	perms       permissions.Checker
}

// New создает Cli со всеми зависимостями команд
func New(
	io iocli.IO,
	apiClient api.ClientAPI,
	boundaryClient *boundary.Client,
	coordinator *sync.Coordinator,
	auth storage.AuthStorage,
	devices storage.DeviceStorage,
	perms permissions.Checker,
) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		boundary:    boundaryClient,
		coordinator: coordinator,
		auth:        auth,
		devices:     devices,
		perms:       perms,
	}
}

// Run выполняет команду с ее аргументами
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx)
	case "status":
		return c.runStatus(ctx)
	case "queue":
		return c.runQueue(ctx, args)
	case "sync":
		return c.runSync(ctx)
	case "permissions":
		return c.runPermissions(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage выводит справку по использованию клиента
func PrintUsage() {
	fmt.Println("Tabsync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tabsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --server URL   Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH      Path to local database (default: tabsync-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                   Exchange the sync token for a device access token")
	fmt.Println("  status                  Show device, auth and queue status")
	fmt.Println("  queue <file>            Enqueue operations from a JSON file")
	fmt.Println("  sync                    Synchronize queued operations with the server")
	fmt.Println("  permissions list        List granted permissions")
	fmt.Println("  permissions grant       Request the permissions required for sync")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tabsync login")
	fmt.Println("  tabsync queue ops.json")
	fmt.Println("  tabsync sync")
	fmt.Println("  tabsync --server https://example.com status")
}
