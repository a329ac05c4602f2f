package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/api"
	"github.com/rentpay/rentpay/internal/api/cron"
	v1 "github.com/rentpay/rentpay/internal/api/v1"
	"github.com/rentpay/rentpay/internal/auth"
	"github.com/rentpay/rentpay/internal/cache"
	"github.com/rentpay/rentpay/internal/config"
	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	"github.com/rentpay/rentpay/internal/integration/factory"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/postgres"
	"github.com/rentpay/rentpay/internal/publisher"
	"github.com/rentpay/rentpay/internal/pubsub"
	kafkaPubSub "github.com/rentpay/rentpay/internal/pubsub/kafka"
	memoryPubSub "github.com/rentpay/rentpay/internal/pubsub/memory"
	redisClient "github.com/rentpay/rentpay/internal/redis"
	pgRepo "github.com/rentpay/rentpay/internal/repository/postgres"
	"github.com/rentpay/rentpay/internal/scheduler"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/service"
	temporalservice "github.com/rentpay/rentpay/internal/temporal/service"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Desugar()}
		}),
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,

			// storage
			postgres.NewDB,
			postgres.NewClient,
			providePostgresIClient,
			pgRepo.NewLeaseRepository,
			pgRepo.NewPaymentMethodRepository,
			pgRepo.NewRentPaymentRepository,
			pgRepo.NewRecurringScheduleRepository,
			pgRepo.NewScheduleRunRepository,

			provideRedisClient,
			cache.NewCache,
			providePubSub,
			publisher.NewEventPublisher,
			factory.NewGatewayFactory,
			auth.NewJWTAuth,

			provideServiceParams,
			service.NewPaymentSettlementService,
			service.NewRecurringScheduleService,
			service.NewPaymentMethodService,
			service.NewGatewayWebhookService,

			scheduler.NewRedisRunLock,
			scheduler.NewRunner,
			provideTemporalService,

			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			migrate,
			startScheduler,
			startServer,
		),
	)

	app.Run()
}

func providePostgresIClient(client *postgres.Client) postgres.IClient {
	return client
}

// provideRedisClient connects only when something needs redis.
func provideRedisClient(cfg *config.Configuration, log *logger.Logger) (*redisClient.Client, error) {
	needed := cache.CacheType(cfg.Cache.Type) == cache.CacheTypeRedis || cfg.Scheduler.DistributedLock
	if !needed || cfg.Redis.Host == "" {
		if cfg.Scheduler.DistributedLock {
			log.Warnw("distributed run lock requested without redis, relying on the in-process guard")
		}
		return nil, nil
	}
	return redisClient.NewClient(cfg, log)
}

func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	var ps pubsub.PubSub
	switch cfg.Events.Publisher {
	case config.EventPublisherKafka:
		kps, err := kafkaPubSub.NewPubSub(cfg, log, "rentpay")
		if err != nil {
			return nil, err
		}
		ps = kps
	default:
		ps = memoryPubSub.NewPubSub(log)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func provideServiceParams(
	log *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	leaseRepo lease.Repository,
	paymentMethodRepo paymentmethod.Repository,
	rentPaymentRepo rentpayment.Repository,
	recurringScheduleRepo recurringschedule.Repository,
	scheduleRunRepo schedulerun.Repository,
	gateways *factory.GatewayFactory,
	eventPublisher publisher.EventPublisher,
	cacheStore cache.Cache,
	sentryService *sentry.Service,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:                log,
		Config:                cfg,
		DB:                    db,
		LeaseRepo:             leaseRepo,
		PaymentMethodRepo:     paymentMethodRepo,
		RentPaymentRepo:       rentPaymentRepo,
		RecurringScheduleRepo: recurringScheduleRepo,
		ScheduleRunRepo:       scheduleRunRepo,
		Gateways:              gateways,
		EventPublisher:        eventPublisher,
		Cache:                 cacheStore,
		Sentry:                sentryService,
	}
}

// provideTemporalService returns nil unless the daily run is driven by Temporal.
func provideTemporalService(
	cfg *config.Configuration,
	log *logger.Logger,
	sentryService *sentry.Service,
	runner *scheduler.Runner,
) temporalservice.TemporalService {
	if cfg.Scheduler.Mode != config.SchedulerModeTemporal {
		return nil
	}
	return temporalservice.NewTemporalService(cfg, log, sentryService, runner, runner)
}

func provideHandlers(
	log *logger.Logger,
	settlement service.PaymentSettlementService,
	schedules service.RecurringScheduleService,
	methods service.PaymentMethodService,
	webhooks service.GatewayWebhookService,
	runner *scheduler.Runner,
	temporal temporalservice.TemporalService,
) api.Handlers {
	return api.Handlers{
		Payment:       v1.NewPaymentHandler(settlement, log),
		Autopay:       v1.NewAutopayHandler(schedules, log),
		PaymentMethod: v1.NewPaymentMethodHandler(methods, log),
		Webhook:       v1.NewWebhookHandler(webhooks, log),
		CronRecurring: cron.NewRecurringPaymentsCronHandler(runner, temporal, log),
	}
}

func migrate(lc fx.Lifecycle, cfg *config.Configuration, client *postgres.Client, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("applying database migrations")
			return client.Migrate(ctx)
		},
	})
}

func startScheduler(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	log *logger.Logger,
	runner *scheduler.Runner,
	temporal temporalservice.TemporalService,
) error {
	if !cfg.Scheduler.Enabled || cfg.Deployment.Mode == config.ModeAPI {
		log.Info("recurring payment scheduler disabled for this deployment")
		return nil
	}

	if temporal != nil {
		lc.Append(fx.Hook{
			OnStart: temporal.Start,
			OnStop:  temporal.Stop,
		})
		return nil
	}

	trigger, err := scheduler.NewCronTrigger(cfg, runner, log)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return trigger.Start()
		},
		OnStop: trigger.Stop,
	})
	return nil
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *gin.Engine,
	client *postgres.Client,
	sentryService *sentry.Service,
	log *logger.Logger,
) {
	if cfg.Deployment.Mode == config.ModeWorker {
		log.Info("worker deployment, http server not started")
		return
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("http server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			sentryService.Flush(2 * time.Second)
			return client.Close()
		},
	})
}
