// Package grpcserver runs the gRPC health endpoint whose status follows storage readiness.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StorageService is the health service name reported for the upload path.
const StorageService = "pinboard.Storage"

// Server owns the gRPC server and its health registry.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds a server with logging and recover interceptors. Every service starts NOT_SERVING
// until SetReady is called. dev enables reflection.
func New(log *zap.Logger, dev bool, opts ...grpc.ServerOption) *Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := &Server{srv: grpc.NewServer(opts...), health: health.NewServer(), log: log}
	healthpb.RegisterHealthServer(s.srv, s.health)
	if dev {
		reflection.Register(s.srv)
	}
	s.SetReady(false)
	return s
}

// SetReady flips the overall and storage status. It has the shape of a setup.Ensurer listener.
func (s *Server) SetReady(ready bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(StorageService, st)
	s.log.Info("health", zap.String("status", st.String()))
}

// Serve blocks on lis until ctx is done, then stops gracefully, forcing a stop after grace.
func (s *Server) Serve(ctx context.Context, lis net.Listener, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		done := make(chan struct{})
		go func() {
			s.srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(grace):
			s.srv.Stop()
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
