package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/tabsync/internal/clock"
	"github.com/iudanet/tabsync/internal/models"
	"github.com/iudanet/tabsync/internal/server/handlers"
	"github.com/iudanet/tabsync/internal/server/middleware"
	"github.com/iudanet/tabsync/internal/server/state"
	"github.com/iudanet/tabsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "tabsync.db", "Path to SQLite database")
	syncToken := flag.String("sync-token", "", "Shared sync token (or TABSYNC_SYNC_TOKEN)")
	jwtSecret := flag.String("jwt-secret", "", "JWT signing secret (or TABSYNC_JWT_SECRET)")
	tokenTTL := flag.Duration("token-ttl", time.Hour, "Access token lifetime")
	rateLimit := flag.Int("rate-limit", 120, "Requests per device per minute")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger, *addr, *dbPath, *syncToken, *jwtSecret, *tokenTTL, *rateLimit); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(
	logger *slog.Logger,
	addr, dbPath, syncToken, jwtSecret string,
	tokenTTL time.Duration,
	rateLimit int,
) error {
	// Секреты: флаг имеет приоритет, env для продакшена
	if syncToken == "" {
		syncToken = os.Getenv("TABSYNC_SYNC_TOKEN")
	}
	if syncToken == "" {
		return errors.New("sync token is required (use -sync-token or TABSYNC_SYNC_TOKEN)")
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("TABSYNC_JWT_SECRET")
	}
	if jwtSecret == "" {
		return errors.New("jwt secret is required (use -jwt-secret or TABSYNC_JWT_SECRET)")
	}

	// Секрет в памяти храним только как bcrypt hash
	syncTokenHash, err := bcrypt.GenerateFromPassword([]byte(syncToken), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash sync token: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	// Восстанавливаем clock и документ из журнала операций
	lastClock, err := store.LastClock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last clock: %w", err)
	}
	serverClock := clock.NewLamportWithNodeID("server")
	serverClock.SetCurrent(lastClock)

	doc := state.NewDoc()
	records, err := store.GetAllOperations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load operation log: %w", err)
	}
	for _, record := range records {
		op, err := models.FromWire(record.Operation)
		if err != nil {
			logger.Warn("skipping malformed operation in log",
				"id", record.ID, "error", err)
			continue
		}
		doc.Apply(op, record.Clock)
	}

	logger.Info("state restored",
		"operations", len(records),
		"clock", lastClock)

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(jwtSecret),
		AccessTokenTTL: tokenTTL,
	}

	authHandler := handlers.NewAuthHandler(logger, syncTokenHash, jwtConfig)
	syncHandler := handlers.NewSyncHandler(logger, store, store, serverClock, doc)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	authMW := middleware.AuthMiddleware(logger, jwtConfig)

	// Лимитер общий на все маршруты. Ключ device_id появляется в контексте
	// только после authMW, поэтому на защищенных маршрутах rate limit стоит
	// внутри auth-обертки; /auth/token лимитируется по IP
	rateLimitMW := middleware.RateLimitMiddleware(rateLimit, time.Minute, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("POST /api/v1/auth/token", rateLimitMW(http.HandlerFunc(authHandler.Token)))
	mux.Handle("POST /api/v1/sync", authMW(rateLimitMW(http.HandlerFunc(syncHandler.HandleSync))))
	mux.Handle("GET /api/v1/state", authMW(rateLimitMW(http.HandlerFunc(syncHandler.HandleState))))

	// Цепочка: recovery снаружи, затем логирование
	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", Version)
		errC <- server.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func printVersion() {
	fmt.Printf("Tabsync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
