// Package app собирает сервис storefront: хранилище, сервисы, HTTP API,
// фоновые воркеры, gRPC health и сервер метрик.
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
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены ctx или ошибки одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
	}
	defer closeKafkaProducer(producer, logger)

	router := newHTTPHandler(cfg, deps, logger)

	healthHandler := healthcheck.NewHandler(version.Get().Version)
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}

	grpcServer, grpcHealth := newGRPCServer(logger)

	listeners, err := listenAll(cfg)
	if err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers sync.WaitGroup
	startWorker := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(workerCtx)
		}()
	}

	publisher, dlqPublisher := outboxPublishers(producer, cfg, logger)
	outboxWorker := outbox.NewWorker(
		deps.outboxRepo,
		publisher,
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics()),
		outbox.WithDLQPublisher(dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)
	startWorker(outboxWorker.Run)

	if deps.idempotencyCleanup {
		cleanupWorker := idempotency.NewCleanupWorker(
			deps.idempotencyRepo,
			idempotency.WithLogger(logger.WithField("layer", "idempotency-cleanup")),
			idempotency.WithMetrics(metrics.NewCleanupMetrics()),
			idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
			idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
		)
		startWorker(cleanupWorker.Run)
	}

	httpSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}
	metricsSrv := &http.Server{Handler: newMetricsHandler(healthHandler), ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 3)
	go func() {
		logger.Infof("HTTP API слушает %s", listeners.http.Addr())
		errCh <- ignoreClosed(httpSrv.Serve(listeners.http))
	}()
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", listeners.metrics.Addr())
		errCh <- ignoreClosed(metricsSrv.Serve(listeners.metrics))
	}()
	go func() {
		logger.Infof("gRPC сервер слушает %s", listeners.grpc.Addr())
		errCh <- ignoreClosed(grpcServer.Serve(listeners.grpc))
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("server failed")
			runErr = err
		}
	}

	grpcHealth.Shutdown()
	shutdownHTTP(httpSrv, cfg.ShutdownTimeout, logger)
	shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
	stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)

	stopWorkers()
	workers.Wait()

	return runErr
}

// newHTTPHandler собирает сервисы заказов и каталога за chi-роутером.
func newHTTPHandler(cfg Config, deps *runtimeDependencies, logger *log.Entry) http.Handler {
	catalogSvc := catalog.NewService(deps.customers, deps.products, logger.WithField("layer", "catalog"))
	createOrder := orders.NewCreateOrderService(
		deps.customers,
		deps.products,
		deps.orders,
		deps.transactor,
		orders.WithOutbox(deps.outboxRepo),
		orders.WithMetrics(metrics.NewOrderMetrics()),
		orders.WithLogger(logger.WithField("layer", "orders")),
	)

	handler := httpapi.NewHandler(
		createOrder,
		orders.NewShowOrderService(deps.orders),
		orders.NewListCustomerOrdersService(deps.customers, deps.orders),
		catalogSvc,
		logger.WithField("layer", "http"),
	)

	return httpapi.NewRouter(handler, httpapi.RouterOptions{
		Logger:      logger.WithField("layer", "http"),
		Metrics:     metrics.NewHTTPMetricsWithRegisterer(prometheus.DefaultRegisterer),
		Idempotency: idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL, logger.WithField("layer", "idempotency")),
		CORSOrigins: cfg.CORSOrigins,
	})
}

// newGRPCServer создаёт gRPC сервер с health, reflection и prometheus-интерцепторами.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// reflection для grpcurl
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

// newMetricsHandler отдаёт /metrics и health-пробы.
func newMetricsHandler(healthHandler *healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	return mux
}

type serviceListeners struct {
	http    net.Listener
	grpc    net.Listener
	metrics net.Listener
}

// listenAll открывает все порты заранее, чтобы ошибка адреса вернулась из Run.
func listenAll(cfg Config) (serviceListeners, error) {
	var (
		l      serviceListeners
		opened []net.Listener
	)
	listen := func(name, addr string) (net.Listener, error) {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			return nil, fmt.Errorf("listen %s on %s: %w", name, addr, err)
		}
		opened = append(opened, lis)
		return lis, nil
	}

	var err error
	if l.http, err = listen("http", cfg.HTTPAddr); err != nil {
		return serviceListeners{}, err
	}
	if l.grpc, err = listen("grpc", cfg.GRPCAddr); err != nil {
		return serviceListeners{}, err
	}
	if l.metrics, err = listen("metrics", cfg.MetricsAddr); err != nil {
		return serviceListeners{}, err
	}
	return l, nil
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// stopGRPC делает GracefulStop, а по таймауту Stop.
func stopGRPC(srv *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}
