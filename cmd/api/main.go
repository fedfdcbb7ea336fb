package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angelmondragon/skawsh-sack/api/controllers"
	"github.com/angelmondragon/skawsh-sack/api/routes"
	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	"github.com/angelmondragon/skawsh-sack/internal/orders"
	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/internal/session"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	"github.com/angelmondragon/skawsh-sack/pkg/config"
	"github.com/angelmondragon/skawsh-sack/pkg/db"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
	"github.com/angelmondragon/skawsh-sack/pkg/migrate"
	"github.com/angelmondragon/skawsh-sack/pkg/redis"
	"github.com/angelmondragon/skawsh-sack/pkg/storage"
	"github.com/angelmondragon/skawsh-sack/pkg/storage/file"
	"github.com/angelmondragon/skawsh-sack/pkg/storage/kvdb"
	"github.com/angelmondragon/skawsh-sack/pkg/storage/memory"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sackMetrics := metrics.NewSackMetrics(reg)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{"db": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers["redis"] = redisClient
	}

	store, err := sackStorage(cfg, dbClient, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to open sack storage", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		logg.Error(ctx, "failed to load catalog", err)
		os.Exit(1)
	}

	agg := totals.NewAggregator(cfg.Pricing.DeliveryFee, cfg.Pricing.TaxPercent)
	coupons := totals.NewCouponBook(cfg.Coupons.Codes)

	sessions, err := session.NewManager(session.Params{
		Storage: store,
		Rules:   pricing.NewRules(cfg.Pricing.ExpressMultiplier),
		Logger:  logg,
		Metrics: sackMetrics,
		IdleTTL: cfg.Session.IdleTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	go sessions.Run(ctx)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Aggregator: agg,
		Coupons:    coupons,
		Logger:     logg,
		Metrics:    sackMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	deps := routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Metrics:    sackMetrics,
		Gatherer:   reg,
		Catalog:    cat,
		Sessions:   sessions,
		Aggregator: agg,
		Coupons:    coupons,
		Orders:     ordersService,
		Pingers:    pingers,
	}
	if redisClient != nil {
		deps.Idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"storage":  cfg.Storage.Driver,
	})
	logg.Info(ctx, "starting api server")

	// No WriteTimeout: the sack event stream is long lived and manages its own deadline.
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}

func sackStorage(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (storage.Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverMemory:
		return memory.New(), nil
	case config.StorageDriverFile:
		return file.New(cfg.Storage.FileDir)
	case config.StorageDriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage driver requires a redis endpoint")
		}
		return redisClient.Storage(), nil
	case config.StorageDriverDB:
		return kvdb.New(dbClient.DB())
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Static, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(cfg.Path)
}
