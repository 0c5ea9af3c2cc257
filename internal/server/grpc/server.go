// Package grpc serves the standard gRPC health service for the upload
// broker so orchestrators can probe it without going through REST.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name health checks can ask about besides "".
const ServiceName = "uploadbroker.Uploads"

// HealthChecker reports whether uploads can be served.
type HealthChecker interface {
	StorageConfigured() bool
}

type GRPCServer struct {
	address string
	logger  logging.Logger
	checker HealthChecker
	health  *health.Server
}

func NewGRPCServer(a string, l logging.Logger, c HealthChecker) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		checker: c,
		health:  health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers service
	s.updateStatus(ctx)
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

// updateStatus publishes SERVING only when storage credentials are present.
func (s *GRPCServer) updateStatus(ctx context.Context) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.checker != nil && s.checker.StorageConfigured() {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Info(ctx, "health status set", "status", status.String())
}
