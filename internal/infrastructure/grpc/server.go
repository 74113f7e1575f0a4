package grpc

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/wekeepgrowing/qr-payment/internal/config"
	pkglogger "github.com/wekeepgrowing/qr-payment/pkg/logger"
)

// Server carries the operational gRPC surface: the standard health
// service and reflection.
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	server := grpc.NewServer(pkglogger.GrpcServerOptions(logger)...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(cfg.Service.Name, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(server)

	return &Server{
		config: cfg,
		logger: logger,
		server: server,
		health: hs,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.GRPC.Host, s.config.Server.GRPC.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.logger.Info("Starting gRPC server", zap.String("address", addr))
	return s.Serve(listener)
}

// Serve blocks serving on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Shutdown reports NOT_SERVING, then drains in-flight calls until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("gRPC server forced to stop")
		s.server.Stop()
		return ctx.Err()
	case <-stopped:
		s.logger.Info("gRPC server stopped")
		return nil
	}
}
