package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockdesk/stockdesk/cmd/stockdesk/cli"
	"github.com/stockdesk/stockdesk/internal/analytics"
	analytichttp "github.com/stockdesk/stockdesk/internal/analytics/http"
	"github.com/stockdesk/stockdesk/internal/app"
	"github.com/stockdesk/stockdesk/internal/catalog"
	"github.com/stockdesk/stockdesk/internal/export"
	"github.com/stockdesk/stockdesk/internal/finance"
	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/observability"
	"github.com/stockdesk/stockdesk/internal/platform/cache"
	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/platform/migration"
	"github.com/stockdesk/stockdesk/internal/platform/storage"
	"github.com/stockdesk/stockdesk/internal/procurement"
	"github.com/stockdesk/stockdesk/internal/sales"
	"github.com/stockdesk/stockdesk/internal/shared"
	"github.com/stockdesk/stockdesk/internal/suppliers"
	"github.com/stockdesk/stockdesk/jobs"
	"github.com/stockdesk/stockdesk/migrations"
	"github.com/stockdesk/stockdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(redisOpts, cfg.LowStockThreshold)
		code := jobsCLI.JobsCommand(ctx, cli.JobsOptions{
			Args:       os.Args[2:],
			JSONOutput: os.Getenv("STOCKDESK_JSON") == "1",
			Stdout:     os.Stdout,
			Stderr:     os.Stderr,
		})
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	}

	if cfg.MigrateOnStartup {
		if err := migrateUp(cfg, logger); err != nil {
			logger.Error("migrate on startup", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGConnLifetime})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobsClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	analyticsCache := analytics.NewCache(redisClient, cfg.IndicatorCacheTTL, logger)
	analyticsService := analytics.NewService(analytics.NewRepository(dbpool), analyticsCache)

	var images catalog.ImageStore
	if cfg.StorageEnabled() {
		store, err := storage.NewS3Store(ctx, storage.Config{
			Endpoint:          cfg.S3Endpoint,
			Region:            cfg.S3Region,
			Bucket:            cfg.S3Bucket,
			AccessKey:         cfg.S3AccessKey,
			SecretKey:         cfg.S3SecretKey,
			UseSSL:            cfg.S3UseSSL,
			UsePathStyle:      cfg.S3UsePathStyle,
			PresignExpiration: cfg.S3PresignExpiration,
		}, logger)
		if err != nil {
			logger.Error("init object storage", slog.Any("error", err))
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn("ensure bucket", slog.Any("error", err))
		}
		images = store
	} else {
		logger.Info("object storage disabled, product image upload unavailable")
	}

	catalogService := catalog.NewService(catalog.NewRepository(dbpool), images, auditLogger, analyticsCache, logger)
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, analyticsCache, logger)
	salesService := sales.NewService(sales.NewRepository(dbpool), catalogService, idempotencyStore, auditLogger, analyticsCache, jobsClient, metrics, logger)
	suppliersService := suppliers.NewService(suppliers.NewRepository(dbpool))
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), auditLogger, analyticsCache, logger)
	financeService := finance.NewService(finance.NewRepository(dbpool), auditLogger, analyticsCache, logger)

	var pdf export.PDFRenderer
	if cfg.GotenbergURL != "" {
		pdf = report.NewClient(cfg.GotenbergURL)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		CatalogHandler:     catalog.NewHandler(logger, catalogService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		SalesHandler:       sales.NewHandler(logger, salesService),
		SuppliersHandler:   suppliers.NewHandler(logger, suppliersService),
		ProcurementHandler: procurement.NewHandler(logger, procurementService),
		FinanceHandler:     finance.NewHandler(logger, financeService),
		AnalyticsHandler:   analytichttp.NewHandler(logger, analyticsService),
		ReportHandler:      export.NewHandler(logger, inventoryService, catalogService, financeService, pdf),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": dbpool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	// Every bump invalidates the indicator keys; the worker rebuilds them.
	if err := analyticsCache.ListenForInvalidation(ctx, func(ctx context.Context, version int64) {
		if err := jobsClient.EnqueueIndicatorWarmup(ctx, version); err != nil {
			logger.Warn("enqueue indicator warmup", slog.Int64("version", version), slog.Any("error", err))
		}
	}); err != nil {
		logger.Warn("subscribe indicator invalidation", slog.Any("error", err))
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func migrateUp(cfg *app.Config, logger *slog.Logger) error {
	m, err := migration.New(migrations.FS, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()
	return m.Up()
}
