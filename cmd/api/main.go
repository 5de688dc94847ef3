package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tvcatalog/internal/api"
	"tvcatalog/internal/cache"
	"tvcatalog/internal/config"
	"tvcatalog/internal/db"
	"tvcatalog/internal/observability"
	"tvcatalog/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	conn, dialect, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", slog.String("driver", cfg.DBDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Close()

	metrics := observability.NewMetrics()
	if cfg.MetricsPort != "" {
		metrics.Start(cfg.MetricsPort)
		logger.Info("metrics listening", slog.String("port", cfg.MetricsPort))
	}

	var catalogCache *cache.Cache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			catalogCache = cache.New(client, cfg.CacheTTL, metrics, logger.With(slog.String("component", "cache")))
		}
	}

	repo := &repository.ProductRepository{
		DB:              conn,
		Dialect:         dialect,
		Table:           cfg.ProductsTable,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		Metrics:         metrics,
		Logger:          logger.With(slog.String("component", "repository")),
	}

	handler := api.NewHandler(repo, catalogCache, logger, api.HandlerConfig{
		Driver:      dialect.Name,
		Table:       cfg.ProductsTable,
		MaxPageSize: cfg.MaxPageSize,
	})
	router := api.NewRouter(api.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Handler:      handler,
		Metrics:      metrics,
		MountMetrics: cfg.MetricsPort == "",
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("driver", dialect.Name),
			slog.String("table", cfg.ProductsTable))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
