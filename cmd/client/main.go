package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/tabsync/internal/boundary"
	"github.com/iudanet/tabsync/internal/client/api"
	"github.com/iudanet/tabsync/internal/client/cli"
	"github.com/iudanet/tabsync/internal/client/iocli"
	"github.com/iudanet/tabsync/internal/client/permissions"
	"github.com/iudanet/tabsync/internal/client/storage/boltdb"
	"github.com/iudanet/tabsync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "tabsync-client.db", "Path to local database")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	stdio := iocli.NewStdio()
	perms := permissions.NewService(boltStorage, stdio, logger)

	// Воркер стартует с сохраненной идентичностью устройства, чтобы
	// Lamport clock не откатывался между запусками
	factory := func() (*boundary.Worker, error) {
		deviceID := ""
		var clockValue uint64
		if state, err := boltStorage.GetDeviceState(ctx); err == nil {
			deviceID = state.DeviceID
			clockValue = state.LogicalClock
		}
		return boundary.NewWorker(deviceID, clockValue, logger), nil
	}
	boundaryClient := boundary.NewClient(factory, logger)
	defer boundaryClient.Terminate()

	coordinator := sync.NewCoordinator(boundaryClient, apiClient, perms, boltStorage, boltStorage, logger)

	app := cli.New(stdio, apiClient, boundaryClient, coordinator, boltStorage, boltStorage, perms)

	if err := app.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Tabsync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
