// Package health exposes the standard gRPC health service. Its status follows
// whether the store answers a ping.
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db"
)

const (
	ServiceName = "bookmarksync"

	probeInterval = 10 * time.Second
	probeTimeout  = 2 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	store    Pinger
	interval time.Duration
	logger   *zap.SugaredLogger

	stop chan struct{}
	done sync.WaitGroup
}

func NewGRPCServer(lc fx.Lifecycle, cfg *config.Config, store *db.Store, logger *zap.SugaredLogger) *Server {
	instance := newServer(store, logger, probeInterval)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.Host+":"+cfg.GRPCPort)
			if err != nil {
				return errors.Wrap(err, "listen grpc")
			}
			logger.Infow("Starting GRPC server.", "listen", lis.Addr().String())
			instance.Start(lis)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping GRPC server.")
			instance.Stop()
			return nil
		},
	})

	return instance
}

func newServer(store Pinger, logger *zap.SugaredLogger, interval time.Duration) *Server {
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   grpchealth.NewServer(),
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// Start probes once, then serves on lis and keeps probing until Stop.
func (s *Server) Start(lis net.Listener) {
	s.Probe(context.Background())

	s.done.Add(2)
	go func() {
		defer s.done.Done()
		if err := s.grpc.Serve(lis); err != nil {
			s.logger.Errorw("grpc serve", "error", err)
		}
	}()
	go func() {
		defer s.done.Done()
		s.loop()
	}()
}

func (s *Server) Stop() {
	close(s.stop)
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.done.Wait()
}

// Probe pings the store and publishes the result.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warnw("store ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.setStatus(status)
	return status
}

func (s *Server) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Probe(context.Background())
		}
	}
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
