package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/hookscope/internal"
	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/handler"
	"github.com/DukeRupert/hookscope/internal/jobs"
	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/DukeRupert/hookscope/internal/middleware"
	"github.com/DukeRupert/hookscope/internal/repository"
	"github.com/DukeRupert/hookscope/internal/rpc"
	"github.com/DukeRupert/hookscope/internal/service"
	"github.com/DukeRupert/hookscope/internal/storage"
	"github.com/DukeRupert/hookscope/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	runRetention := flag.Bool("run-retention", false, "run the retention job once and exit")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := openDB(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Admin connection for RPCs; shares the pool when no separate DSN is set
	adminDB := db
	if cfg.AdminDatabaseUrl != cfg.DatabaseUrl {
		adminDB, err = openDB(ctx, cfg.AdminDatabaseUrl)
		if err != nil {
			return fmt.Errorf("admin %w", err)
		}
		defer adminDB.Close()
	}

	repo := repository.New(db)

	// Quota evaluation
	limits := cfg.Limits()
	if !limits.ProCoversFree() {
		logger.Warn("Pro plan ceilings are below free plan ceilings", "limits", limits)
	}
	evaluator := domain.NewQuotaEvaluator(limits)
	quotaService := service.NewQuotaService(repo, evaluator, logger.With("component", "quota"))

	// Retention auditing
	auditor := service.NewRetentionAuditor(rpc.NewPostgresClient(adminDB, cfg.RPCSchema))

	// Retention job and scheduler
	archive, err := newArchiveStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	pruneHandler, err := jobs.NewPruneRequestsHandler(repo, archive, cfg.Retention(), logger.With("component", "retention"))
	if err != nil {
		return err
	}
	w, err := worker.New(repo, cfg.Worker(), logger.With("component", "worker"))
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	if err := w.Register(ctx, pruneHandler, cfg.RetentionSchedule); err != nil {
		return err
	}

	if *runRetention {
		return w.RunNow(ctx, jobs.JobTypeRequestRetention)
	}

	if cfg.WorkerEnabled {
		w.Start(ctx)
		defer w.Stop()
	} else {
		logger.Info("Worker disabled")
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	isSecure := cfg.Env != "development"
	mux := http.NewServeMux()

	handler.NewHealthHandler(db, logger).RegisterRoutes(mux)

	metricsAuth := middleware.NewBasicAuthMiddleware("metrics", cfg.MetricsUsername, cfg.MetricsPassword, nil, logger)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	if cfg.AdminEnabled() {
		limiter := middleware.NewFailureLimiter(5, 15*time.Minute)
		defer limiter.Close()

		adminAuth := middleware.NewBasicAuthMiddleware("admin", cfg.AdminUsername, cfg.AdminPassword, limiter, logger).
			TrustProxyHeaders(cfg.TrustProxyHeaders)
		headers := middleware.NewSecurityHeadersMiddleware(isSecure)
		requireAdmin := middleware.Stack(headers.Handler, adminAuth.Handler)

		handler.NewAdminHandler(auditor, quotaService, logger.With("component", "admin")).RegisterRoutes(mux, requireAdmin)
	} else {
		logger.Warn("Admin routes disabled; set ADMIN_USERNAME and ADMIN_PASSWORD to enable")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	root := newRootHandler(mux, logger)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// newRootHandler wraps the mux with request logging and HTTP metrics.
// The metrics middleware must hand its request straight to the mux, which
// sets Pattern on that request.
func newRootHandler(mux *http.ServeMux, logger *slog.Logger) http.Handler {
	logging := middleware.NewRequestLoggingMiddleware(logger)
	return middleware.Stack(logging.Handler, metrics.Middleware)(mux)
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// newArchiveStorage returns nil when archiving is disabled.
func newArchiveStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if !cfg.RetentionArchiveEnabled {
		return nil, nil
	}

	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{BasePath: cfg.LocalStoragePath}, logger)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
