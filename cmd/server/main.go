package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fiscaliza-obras/fiscaliza/internal"
	"github.com/fiscaliza-obras/fiscaliza/internal/ai"
	"github.com/fiscaliza-obras/fiscaliza/internal/ai/gemini"
	"github.com/fiscaliza-obras/fiscaliza/internal/ai/mock"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/export"
	"github.com/fiscaliza-obras/fiscaliza/internal/handler"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
	"github.com/fiscaliza-obras/fiscaliza/internal/middleware"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
	"github.com/fiscaliza-obras/fiscaliza/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize the case store
	var repoOpts []repository.MemoryOption
	if cfg.RepoLatency > 0 {
		repoOpts = append(repoOpts, repository.WithLatency(cfg.RepoLatency))
	}
	repo := repository.NewMemory(repoOpts...)

	// Initialize the optional Postgres archive mirror
	var inspectionOpts []service.InspectionServiceOption
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("archive connection failed: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("archive ping failed: %w", err)
		}

		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("archive migration failed: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("archive pool failed: %w", err)
		}
		defer pool.Close()

		inspectionOpts = append(inspectionOpts, service.WithArchive(repository.NewArchive(pool)))
		logger.Info("Archive database ready")
	} else {
		logger.Info("Archive database disabled")
	}

	// Initialize storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	thumbs := service.NewThumbnailer(cfg.ThumbnailMaxDim, cfg.ThumbnailQuality)
	inspectionOpts = append(inspectionOpts, service.WithStorage(store, thumbs))

	// Initialize the summarization provider
	var provider ai.Provider
	if cfg.AIProvider == "gemini" {
		provider = gemini.New(gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			RequestTimeout: cfg.AIRequestTimeout,
		}, logger)
	} else {
		provider = mock.New(logger)
	}

	// Initialize services
	inspectionService := service.NewInspectionService(repo, logger, inspectionOpts...)
	summaryService := service.NewSummaryService(repo, provider, logger)
	userService := service.NewUserService(repo, logger)

	if err := bootstrapAdmin(ctx, cfg, userService, logger); err != nil {
		return err
	}

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	loginLimiter := middleware.NewLoginRateLimiter(logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, loginLimiter, logger, isSecure)
	inspectionHandler := handler.NewInspectionHandler(
		inspectionService, summaryService, export.NewDetailGenerator(logger), logger)
	exportHandler := handler.NewExportHandler(inspectionService, logger)
	userHandler := handler.NewUserHandler(userService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Locally stored photos
	if cfg.StorageProvider == "local" {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireAdmin)

	authHandler.RegisterRoutes(mux, requireUser, loginLimiter.Limit)
	inspectionHandler.RegisterRoutes(mux, requireUser)
	exportHandler.RegisterRoutes(mux, requireUser)
	userHandler.RegisterRoutes(mux, requireAdmin)

	// Request logging runs inside WithUser so the user attribute is
	// available; metrics wrap everything.
	root := middleware.Stack(
		metrics.Middleware,
		authMw.WithUser,
		loggingMw.Handler,
	)(mux)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage selects the storage backend from configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == "s3" {
		return storage.NewS3(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicURL:       cfg.S3PublicURL,
		}, logger)
	}
	return storage.NewLocal(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// bootstrapAdmin creates the initial admin account when configured. The
// store starts empty and user creation is admin-gated, so without this no
// account could ever log in.
func bootstrapAdmin(ctx context.Context, cfg *internal.Config, users service.UserService, logger *slog.Logger) error {
	if cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.CreateUser(ctx, domain.CreateUserParams{
		Name:     cfg.AdminName,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		if domain.ErrorCode(err) == domain.ECONFLICT {
			return nil
		}
		return fmt.Errorf("bootstrap admin failed: %w", err)
	}

	logger.Info("Bootstrap admin created", "username", cfg.AdminUsername)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
