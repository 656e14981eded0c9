// Package app contains the application setup for the product API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/productcrud/internal/config"
	"github.com/abgdnv/productcrud/internal/service"
	"github.com/abgdnv/productcrud/internal/store"
	"github.com/abgdnv/productcrud/internal/transport/rest"
	"github.com/abgdnv/productcrud/pkg/messaging"
	natsclient "github.com/abgdnv/productcrud/pkg/nats"
	"github.com/abgdnv/productcrud/pkg/server"
	"github.com/abgdnv/productcrud/pkg/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const operationName = "product-api"

type Dependencies struct {
	ProductService service.ProductService
	// Health is nil when no external store has to be reachable.
	Health   rest.Pinger
	Metrics  *telemetry.Metrics
	Products config.ProductsConfig
	Logger   *slog.Logger
}

// NewStore returns the store selected by cfg. dbPool is only used by the PostgreSQL store.
func NewStore(cfg config.Config, dbPool *pgxpool.Pool) store.ProductStore {
	if cfg.Store.UsesPostgres() {
		return store.NewPgStore(dbPool)
	}
	return store.NewInMemoryStore()
}

// SetupPublisher connects to NATS JetStream when enabled and makes sure the product stream exists.
// The returned close function is never nil.
func SetupPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.NATS.Enabled {
		logger.Info("NATS disabled, product events are discarded")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	nc, err := natsclient.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	defer cancel()
	if err := natsclient.EnsureStream(ensureCtx, js, cfg.NATS.Stream, messaging.ProductsSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS JetStream", "stream", cfg.NATS.Stream)
	return natsclient.NewNatsPublisher(js), func() { _ = nc.Drain() }, nil
}

func SetupDependencies(productStore store.ProductStore, publisher messaging.Publisher, health rest.Pinger,
	metrics *telemetry.Metrics, cfg config.Config, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		ProductService: service.NewService(productStore, publisher, logger),
		Health:         health,
		Metrics:        metrics,
		Products:       cfg.Products,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the router and routes of the product API.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	if deps.Metrics != nil {
		mux.Use(telemetry.Middleware(operationName, deps.Metrics.Provider))
	}
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the product API.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger, rest.Options{
		ListFailureNoContent: deps.Products.ListFailureNoContent,
		Health:               deps.Health,
	})
	productHandler.RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", deps.Metrics.Handler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the product API.
func SetupHttpServer(deps *Dependencies, cfg config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// SetupGrpcServer creates the gRPC server exposing the standard health service.
func SetupGrpcServer(reflectionEnabled bool) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	return server.NewGRPCServer(reflectionEnabled, server.HealthRegistration(hs)), hs
}

// WatchHealth keeps the gRPC serving status in line with p until ctx is done.
// A nil p means the service is always serving.
func WatchHealth(ctx context.Context, hs *health.Server, p rest.Pinger, interval time.Duration, logger *slog.Logger) {
	check := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if p != nil {
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := p.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warn("Health ping failed", "error", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
		}
		hs.SetServingStatus("", status)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}

// Migrate applies the schema migrations when the PostgreSQL store is used and migrations are enabled.
func Migrate(cfg config.Config, logger *slog.Logger) error {
	if !cfg.Store.UsesPostgres() || !cfg.Database.Migrate {
		return nil
	}
	if err := store.Migrate(cfg.Database.URL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("Database migrations applied")
	return nil
}
