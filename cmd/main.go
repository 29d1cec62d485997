package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/league-registration/config"
	"github.com/Dosada05/league-registration/db"
	"github.com/Dosada05/league-registration/definitions"
	"github.com/Dosada05/league-registration/handlers"
	"github.com/Dosada05/league-registration/membership"
	"github.com/Dosada05/league-registration/parser"
	"github.com/Dosada05/league-registration/progress"
	"github.com/Dosada05/league-registration/repositories"
	api "github.com/Dosada05/league-registration/routes"
	"github.com/Dosada05/league-registration/services"
	"github.com/Dosada05/league-registration/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("definitions_source", cfg.DefinitionsSource))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var store storage.ObjectStore
	if cfg.R2Configured() {
		store, err = storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 store initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 is not configured, SQL export uploads are disabled")
	}

	var source definitions.Source
	switch cfg.DefinitionsSource {
	case config.DefinitionsSourceS3:
		source = definitions.NewObjectSource(store, cfg.DefinitionsPrefix())
	default:
		source = definitions.NewDirSource(cfg.DefinitionsRoot)
	}
	fetcher := definitions.NewFetcher(source, definitions.FetcherConfig{
		DefinitionTTL: cfg.DefinitionCacheTTL,
		BaseTTL:       cfg.BaseDefinitionCacheTTL,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := progress.NewHub(logger)
	go hub.Run(ctx)
	logger.Info("progress hub started")

	var verifier membership.Verifier
	if cfg.MembershipAPIURL != "" {
		verifier = membership.NewHTTPVerifier(cfg.MembershipAPIURL, nil)
		logger.Info("membership verification enabled", slog.String("url", cfg.MembershipAPIURL))
	}

	jobRepo := repositories.NewPostgresJobRepository(dbConn)

	migrationService := services.NewMigrationService(jobRepo, fetcher, parser.NewYAMLParser(), hub, store, logger)
	registrationService := services.NewRegistrationService(jobRepo, verifier, cfg.RegistrationSessionTTL, cfg.MembershipDebounce, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		handlers.NewMigrationHandler(migrationService),
		handlers.NewRegistrationHandler(registrationService),
		handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
		[]byte(cfg.JWTSecretKey),
		cfg.CORSAllowedOrigins,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
		// Batch migrations can run for a while; writes get a wider window than reads.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
