// Package grpcserver exposes the standard gRPC health service. Serving status
// follows the readiness checks of the process.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"staybook/internal/infra/obs"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "staybook.v1.Engine"

type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	readiness  obs.Readiness
	interval   time.Duration
	logger     *slog.Logger
}

// NewServer listens on addr. Probes run every interval (default 5s).
func NewServer(addr string, readiness obs.Readiness, interval time.Duration, logger *slog.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	s := &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		readiness:  readiness,
		interval:   interval,
		logger:     logger,
	}
	s.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return s, nil
}

func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Probe evaluates readiness once and publishes the resulting status.
func (s *Server) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.readiness.Ready(ctx); err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("grpc health not serving", "error", err)
	}
	s.setStatus(status)
	return status
}

func (s *Server) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until ctx is cancelled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("grpc: server is nil")
	}
	s.logger.Info("gRPC server starting", "addr", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
			return serveResult(<-serveErr)
		case err := <-serveErr:
			return serveResult(err)
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}
