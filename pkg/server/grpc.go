package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// RegistrationFunc registers a grpc service with the server.
type RegistrationFunc func(*grpc.Server)

// NewGRPCServer creates a new gRPC server instance with optional reflection and service registration.
// Incoming calls are traced through the global OpenTelemetry provider.
func NewGRPCServer(enableReflection bool, registerFunc ...RegistrationFunc) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	if enableReflection {
		reflection.Register(grpcServer)
	}

	for _, regFunc := range registerFunc {
		regFunc(grpcServer)
	}

	return grpcServer
}

// HealthRegistration registers the standard grpc.health.v1 service backed by hs.
func HealthRegistration(hs *health.Server) RegistrationFunc {
	return func(s *grpc.Server) {
		healthpb.RegisterHealthServer(s, hs)
	}
}

// RunGRPC serves s on addr until ctx is cancelled. GracefulStop is given
// shutdownTimeout before the server is stopped forcibly.
func RunGRPC(ctx context.Context, s *grpc.Server, addr string, shutdownTimeout time.Duration, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", slog.String("addr", addr))
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gRPC server...")
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		logger.Info("gRPC server stopped gracefully.")
		return nil
	case <-time.After(shutdownTimeout):
		logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
		s.Stop()
		return fmt.Errorf("grpc server graceful stop timed out")
	}
}
