// Package main runs the product CRUD HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/productcrud/internal/app"
	"github.com/abgdnv/productcrud/internal/config"
	"github.com/abgdnv/productcrud/internal/transport/rest"
	"github.com/abgdnv/productcrud/pkg/bootstrap"
	"github.com/abgdnv/productcrud/pkg/config/configloader"
	"github.com/abgdnv/productcrud/pkg/server"
	"github.com/abgdnv/productcrud/pkg/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName         = "product"
	healthCheckInterval = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, builds the dependencies and serves HTTP, gRPC and pprof until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer shutdownWithTimeout(tp.Shutdown, cfg.Shutdown.Timeout, logger, "tracer provider")
	}
	metrics, err := telemetry.NewMetrics(serviceName)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(metrics.Provider.Shutdown, cfg.Shutdown.Timeout, logger, "meter provider")

	var (
		dbPool *pgxpool.Pool
		health rest.Pinger
	)
	if cfg.Store.UsesPostgres() {
		if err := app.Migrate(*cfg, logger); err != nil {
			return err
		}
		dbPool, err = bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return fmt.Errorf("failed to create database connection pool: %w", err)
		}
		defer dbPool.Close()
		health = dbPool
		logger.Info("Successfully connected to the database!")
	} else {
		logger.Info("Using the in-memory product store")
	}

	publisher, closePublisher, err := app.SetupPublisher(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up event publisher: %w", err)
	}
	defer closePublisher()

	deps := app.SetupDependencies(app.NewStore(*cfg, dbPool), publisher, health, metrics, *cfg, logger)
	httpServer := app.SetupHttpServer(deps, *cfg)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.RunHTTP(gCtx, httpServer, cfg.Shutdown.Timeout, logger)
	})

	if cfg.GRPC.Enabled {
		grpcServer, healthServer := app.SetupGrpcServer(cfg.GRPC.ReflectionEnabled)
		g.Go(func() error {
			app.WatchHealth(gCtx, healthServer, health, healthCheckInterval, logger)
			return nil
		})
		g.Go(func() error {
			return server.RunGRPC(gCtx, grpcServer, ":"+cfg.GRPC.Port, cfg.Shutdown.Timeout, logger)
		})
	}

	if cfg.PProf.Enabled {
		// net/http/pprof registers its handlers on the default mux
		pprofServer := &http.Server{Addr: cfg.PProf.Addr, ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader}
		g.Go(func() error {
			return server.RunHTTP(gCtx, pprofServer, cfg.Shutdown.Timeout, logger.With("server", "pprof"))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

func shutdownWithTimeout(shutdown func(context.Context) error, timeout time.Duration, logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("Shutdown failed", "component", name, "error", err)
	}
}
