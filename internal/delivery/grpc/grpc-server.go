package grpc

import (
	"fmt"
	"net"

	"DetectiveProfileService/pkg/server"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server представляет собой gRPC сервер
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
	port       int
}

// NewServer создает gRPC сервер с перехватчиками и регистрирует обработчик
func NewServer(handler DetectiveServiceServer, logger *zap.Logger, port int) *Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			server.TracingUnaryInterceptor(logger),
			server.MetricsUnaryInterceptor(),
			server.RecoveryUnaryInterceptor(logger),
		),
	}

	grpcServer := grpc.NewServer(opts...)
	RegisterDetectiveServiceServer(grpcServer, handler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Включаем reflection для удобства отладки через grpcurl
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
		port:       port,
	}
}

// Run запускает gRPC сервер на настроенном порту
func (s *Server) Run() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("Failed to listen", zap.Error(err), zap.Int("port", s.port))
		return err
	}
	return s.Serve(lis)
}

// Serve обслуживает запросы на заданном listener
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// Stop помечает сервис недоступным и останавливает сервер
func (s *Server) Stop() {
	s.logger.Info("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
