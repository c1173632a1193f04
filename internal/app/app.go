package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/tpoints/internal/health"
	"github.com/vladislavdragonenkov/tpoints/internal/metrics"
	"github.com/vladislavdragonenkov/tpoints/internal/service/delivery"
	"github.com/vladislavdragonenkov/tpoints/internal/service/scheduler"
	"github.com/vladislavdragonenkov/tpoints/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает HTTP API, gRPC health, сервер метрик и планировщик и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithFields(version.Fields()).Info("starting")

	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	m := metrics.New()

	producer, err := initKafkaProducer(cfg.KafkaBrokers, cfg.KafkaClientID, logger)
	if err != nil {
		producer = nil
	}
	defer closeKafka(producer, logger)
	breaker := buildDelivery(cfg, producer, m, logger)

	marker, redisClient, err := initRunMarker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	deps, err := NewDependencies(ctx, cfg, st.store, breaker, marker, m, logger)
	if err != nil {
		return err
	}

	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(v)
	registerHealthChecks(healthHandler, cfg, st, redisClient, breaker, deps.Scheduler)

	grpcServer, healthServer := newGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deps.Handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC health server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	if cfg.SchedulerEnabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			deps.Scheduler.Run(workerCtx)
		}()
	} else {
		logger.Info("scheduler disabled")
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server failed, shutting down")
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopWorkers()
	shutdownHTTP(apiSrv, logger)
	stopGRPC(grpcServer, logger)
	shutdownHTTP(metricsSrv, logger)
	workers.Wait()

	return runErr
}

func registerHealthChecks(
	h *healthcheck.Handler,
	cfg Config,
	st *runtimeStorage,
	redisClient *redis.Client,
	breaker *delivery.Breaker,
	engine *scheduler.Engine,
) {
	h.RegisterChecker("storage", healthcheck.NewPingChecker("storage", st.ping))
	if redisClient != nil {
		h.RegisterChecker("redis", healthcheck.NewPingChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	h.RegisterChecker("delivery", healthcheck.NewDegradedChecker("delivery", func() (bool, string) {
		state := breaker.State()
		return state != delivery.CircuitOpen, "breaker " + state.String()
	}))
	if cfg.SchedulerEnabled {
		h.RegisterChecker("scheduler", healthcheck.NewDegradedChecker("scheduler", schedulerLiveness(engine, time.Now)))
	}
}

// schedulerLiveness считает планировщик отставшим, если тика не было дольше двух интервалов.
func schedulerLiveness(engine *scheduler.Engine, now func() time.Time) func() (bool, string) {
	started := now()
	return func() (bool, string) {
		last := engine.LastTick()
		limit := 2 * engine.Interval()
		if last.IsZero() {
			if now().Sub(started) > limit {
				return false, "no completed ticks"
			}
			return true, "waiting for first tick"
		}
		age := now().Sub(last)
		if age > limit {
			return false, fmt.Sprintf("last tick %s ago", age.Round(time.Second))
		}
		return true, fmt.Sprintf("last tick %s ago", age.Round(time.Second))
	}
}

func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	grpcMetrics.InitializeMetrics(server)
	reflection.Register(server)
	return server, healthServer
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("grpc graceful stop timed out, forcing stop")
		server.Stop()
	}
}

// startMetricsServer запускает /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP останавливает HTTP-сервер с таймаутом.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
