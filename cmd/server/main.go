// Package main initializes and starts the Buzzdrop server, setting up
// configuration, logging, the database, blob storage, repositories,
// services, and HTTP routing.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/buzzdrop/buzzdrop/internal/config"
	"github.com/buzzdrop/buzzdrop/internal/db"
	"github.com/buzzdrop/buzzdrop/internal/logger"
	"github.com/buzzdrop/buzzdrop/internal/repository"
	"github.com/buzzdrop/buzzdrop/internal/server/handler/http"
	"github.com/buzzdrop/buzzdrop/internal/service"
	"github.com/buzzdrop/buzzdrop/internal/storage"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config-file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Initialize the blob storage backend.
	blobs, err := storage.New(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot init storage backend", zap.Error(err))
	}
	zapLogger.Info("storage backend ready", zap.String("type", blobs.Type()))

	// Repositories and services.
	shareRepo := repository.NewPostgresShareRepository(postgresDB)
	shareService := service.NewShareService(shareRepo, blobs, zapLogger)

	authService, err := service.NewAuthService(
		os.Environ(),
		time.Duration(options.SessionTTLMinutes)*time.Minute,
	)
	if err != nil {
		zapLogger.Fatal("cannot init auth service", zap.Error(err))
	}
	if authService.UserCount() == 0 {
		zapLogger.Warn("no users configured; set BUZZDROP_USER_N=name:password:is_admin")
	}

	// Remove blobs no record points at (left over from unclean shutdowns).
	if removed, err := shareService.CleanupOrphans(ctx); err != nil {
		zapLogger.Error("orphan cleanup failed", zap.Error(err))
	} else if removed > 0 {
		zapLogger.Info("removed orphaned blobs", zap.Int("count", removed))
	}

	// Start the expiry/retention cleaner.
	db.StartShareCleaner(ctx, shareService,
		time.Duration(options.CleanIntervalMinutes)*time.Minute,
		time.Duration(options.RetentionHours)*time.Hour,
		zapLogger,
	)

	// HTTP handlers and router.
	authHandler := &http.AuthHandler{AuthService: authService}
	shareHandler := &http.ShareHandler{
		Shares:           shareService,
		BaseURL:          options.BaseURL,
		ExtensionAllowed: options.ExtensionAllowed,
		Log:              zapLogger,
	}
	router := http.NewRouter(authHandler, shareHandler, authService, options.MaxUploadBytes, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Address,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
