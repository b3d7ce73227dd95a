// Package app собирает сервис: хранилище, сторы, HTTP API, gRPC кухни, outbox и служебный HTTP.
package app

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/gusto/internal/cart"
	"github.com/vladislavdragonenkov/gusto/internal/catalog"
	"github.com/vladislavdragonenkov/gusto/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/gusto/internal/health"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
	"github.com/vladislavdragonenkov/gusto/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/gusto/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/gusto/internal/metrics"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
	"github.com/vladislavdragonenkov/gusto/internal/render"
	"github.com/vladislavdragonenkov/gusto/internal/schedule"
	"github.com/vladislavdragonenkov/gusto/internal/service/idempotency"
	"github.com/vladislavdragonenkov/gusto/internal/service/outbox"
	"github.com/vladislavdragonenkov/gusto/internal/signup"
	"github.com/vladislavdragonenkov/gusto/internal/state"
	"github.com/vladislavdragonenkov/gusto/internal/transport/grpcapi"
	"github.com/vladislavdragonenkov/gusto/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/gusto/internal/version"
)

// stores: сторы приложения поверх одного key-value хранилища.
type stores struct {
	views   *render.Views
	board   *notice.Board
	cart    *cart.Store
	kitchen *kitchen.Admin
	signup  *signup.Registry
}

// buildStores создаёт и загружает сторы. Первая отрисовка видов происходит здесь же.
func buildStores(ctx context.Context, cfg Config, kv domain.KeyValueStore, stateOpts state.Options, rejections domain.RejectionRecorder, logger *log.Entry) (stores, error) {
	views := render.NewViews(logger.WithField("component", "render"), nil)
	board := notice.NewBoard(schedule.Real{}, cfg.ToastDuration, views.RenderToast)

	cartStore := cart.NewStore(kv, views, board, cart.Config{
		DeliveryFee:     cfg.DeliveryFee,
		DeliveryEnabled: cfg.DeliveryEnabled,
		ClearDelay:      cfg.CheckoutClearDelay,
	}, stateOpts,
		cart.WithLogger(logger.WithField("component", "cart")),
		cart.WithRejections(rejections),
	)

	admin := kitchen.NewAdmin(kv, views.Kitchen(), kitchen.Config{
		Seed: kitchen.SeedAccount{Email: cfg.AdminSeedEmail, Password: cfg.AdminSeedPassword},
	}, stateOpts,
		kitchen.WithLogger(logger.WithField("component", "kitchen")),
		kitchen.WithRejections(rejections),
	)

	registry := signup.NewRegistry(kv, views.Customers(), rejections, stateOpts)

	for _, loader := range []interface{ Load(context.Context) error }{cartStore, admin, registry} {
		if err := loader.Load(ctx); err != nil {
			return stores{}, err
		}
	}
	return stores{views: views, board: board, cart: cartStore, kitchen: admin, signup: registry}, nil
}

// Run запускает сервис и блокируется до отмены ctx или падения gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}()
	}

	registerer := prometheus.DefaultRegisterer
	storeMetrics := metrics.NewStoreMetrics(registerer)
	outboxMetrics := metrics.NewOutboxMetrics(registerer)
	idempotencyMetrics := metrics.NewIdempotencyMetrics(registerer)

	// Ошибки подключения уже залогированы: сервис продолжает работу без брокера.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(kafkaProducer, logger)
	rabbitClient, _ := initRabbitMQ(cfg.RabbitMQURL, logger)
	defer closeRabbitMQ(rabbitClient, logger)

	var targets []outbox.NamedPublisher
	if kafkaProducer != nil {
		targets = append(targets, outbox.NamedPublisher{Name: "kafka", Publisher: kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicStateEvents)})
	}
	if rabbitClient != nil {
		targets = append(targets, outbox.NamedPublisher{Name: "rabbitmq", Publisher: rabbitmq.NewOutboxPublisher(rabbitClient, rabbitmq.ExchangeStateEvents)})
	}
	fanout := outbox.NewFanout(targets...)

	observers := []state.Observer{storeMetrics}
	if fanout.Len() > 0 {
		observers = append(observers, outbox.NewRecorder(deps.outboxRepo, logger.WithField("component", "outbox-recorder")))
	}
	stateOpts := state.Options{Observers: observers, Logger: logger.WithField("component", "state")}

	st, err := buildStores(ctx, cfg, deps.kv, stateOpts, storeMetrics, logger)
	if err != nil {
		return err
	}

	healthHandler := healthcheck.NewHandler(version.Version())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if kafkaProducer != nil {
		healthHandler.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", kafkaProducer.Ping))
	}
	if rabbitClient != nil {
		healthHandler.RegisterChecker("rabbitmq", healthcheck.NewOptionalChecker("rabbitmq", rabbitClient.Ping))
	}

	workersCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var outboxDone chan struct{}
	if fanout.Len() > 0 {
		workerOpts := []outbox.Option{
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithMetrics(outboxMetrics),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		}
		if kafkaProducer != nil {
			workerOpts = append(workerOpts, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)))
		}
		worker := outbox.NewWorker(deps.outboxRepo, fanout, workerOpts...)
		outboxDone = make(chan struct{})
		go func() {
			defer close(outboxDone)
			worker.Run(workersCtx)
		}()
	}

	auditConsumer, _ := startStateAudit(workersCtx, cfg.KafkaBrokers, cfg.KafkaAuditGroup, kafkaProducer, logger)
	defer func() {
		// без отмены контекста цикл Consume крутится на закрытой группе
		cancelWorkers()
		stopStateAudit(auditConsumer, logger)
	}()

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithMetrics(idempotencyMetrics),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanup.Run(workersCtx)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcapi.Register(grpcServer, grpcapi.NewKitchenService(st.kitchen,
		grpcapi.WithIdempotency(deps.idempotencyRepo),
		grpcapi.WithReplayObserver(idempotencyMetrics),
		grpcapi.WithLogger(logger.WithField("layer", "grpc")),
	))
	grpcMetrics.InitializeMetrics(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// reflection нужен grpcurl и нагрузочному тесту
	reflection.Register(grpcServer)

	if _, _, err := startMetricsServer(workersCtx, cfg.MetricsAddr, logger, prometheus.DefaultGatherer, healthHandler); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	api := httpapi.NewServer(httpapi.Deps{
		Catalog: catalog.Default(),
		Cart:    st.cart,
		Kitchen: st.kitchen,
		Signup:  st.signup,
		Board:   st.board,
		Views:   st.views,
		Logger:  logger.WithField("component", "http"),
	})
	if _, _, err := startHTTPServer(workersCtx, cfg.HTTPAddr, api.Router(), logger); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.Shutdown()
		stopGRPC(grpcServer, logger)
		shutdownOutboxWorker(cancelWorkers, outboxDone, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownOutboxWorker(cancelWorkers, outboxDone, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// stopGRPC ждёт завершения активных вызовов, но не дольше shutdownTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// shutdownOutboxWorker останавливает воркеры и ждёт, пока outbox worker допишет текущую пачку.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("outbox worker did not stop in time")
	}
}
