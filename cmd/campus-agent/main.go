package main

import (
	"context"
	"errors"

	bookinghandler "campusbook/internal/bookings/handler"
	"campusbook/internal/bookings/service"
	"campusbook/internal/bookings/validator"
	"campusbook/internal/eligibility"
	"campusbook/internal/health"
	"campusbook/internal/notifications"
	notificationhandler "campusbook/internal/notifications/handler"
	"campusbook/internal/session"
	sessionhandler "campusbook/internal/session/handler"
	"campusbook/pkg/app"
	"campusbook/pkg/client"
	"campusbook/pkg/config"
	"campusbook/pkg/kafka"
	kafka_config "campusbook/pkg/kafka/config"
	kafkamw "campusbook/pkg/kafka/middleware"
	"campusbook/pkg/locale"
	"campusbook/pkg/storage"
)

const ServiceName = "campus-agent"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting campus agent")

	if country := locale.CountryForZone(cfg.Location.String()); country != nil {
		cfg.Log.Info("Booking dates interpreted in local time", "time_zone", cfg.Location.String(), "country", country.Name)
	}

	serverApp := app.NewApplication(cfg)

	store, checks := initStore(cfg)

	httpClient := client.NewHttpClient(cfg.APIBaseURL, cfg.APITimeout).
		WithTokenSource(client.TokenSourceFunc(func(ctx context.Context) (string, error) {
			return storage.GetOptional(ctx, store, storage.KeyToken)
		}))

	var metrics *kafkamw.Metrics
	var publisher kafka.Publisher
	inbox := notifications.NewInbox(store, cfg.Log, notifications.WithLimit(cfg.NotificationsLimit))
	if cfg.KafkaEnabled {
		metrics = kafkamw.NewMetrics()
		publisher = initKafka(cfg, serverApp, inbox, metrics)
	}

	manager := initSession(cfg, serverApp, store, client.NewAuthClient(httpClient), publisher)

	bookingOpts := []service.Option{service.WithSessionRefresher(manager)}
	if publisher != nil {
		bookingOpts = append(bookingOpts, service.WithPublisher(publisher))
	}
	bookingService := service.NewBookingService(
		client.NewBookingClient(httpClient),
		eligibility.New(eligibility.WithLocation(cfg.Location)),
		validator.NewBookingValidator(cfg.Log),
		cfg.Log,
		bookingOpts...,
	)

	serverApp.SetApp(
		health.NewHealthHandler(manager, metrics, cfg.Log, checks...),
		sessionhandler.NewSessionHandler(manager, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		notificationhandler.NewNotificationHandler(inbox, cfg.Log),
	)

	serverApp.AddWorker("session-manager", func(ctx context.Context) error {
		if err := manager.Start(ctx); err != nil {
			cfg.Log.Warn("Initial session check ended the session", "error", err)
		}
		<-ctx.Done()
		manager.Stop()
		return nil
	})

	serverApp.Run()
}

// initStore connects the configured backend and wraps it for sealing when a
// key is set. The returned checks feed /ready.
func initStore(cfg *config.Config) (storage.Store, []health.Check) {
	var store storage.Store
	var checks []health.Check

	switch cfg.SessionStore {
	case config.StoreRedis:
		cfg.SetRedis()
		store = storage.NewRedisStore(cfg.Client.Redis, cfg.SessionNamespace)
		checks = append(checks, health.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}})
	case config.StoreMongo:
		cfg.SetMongo()
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		store = storage.NewMongoStore(db, cfg.SessionNamespace, cfg.MongoConnTimeout)
		checks = append(checks, health.Check{Name: "mongo", Ping: func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		}})
	default:
		store = storage.NewMemoryStore()
	}

	s, err := cfg.Sealer()
	if err != nil {
		cfg.Log.Fatal("Invalid session seal key", "error", err)
	}
	if s != nil {
		store = storage.NewSealedStore(store, s, storage.KeyToken, storage.KeyRefreshToken)
		cfg.Log.Info("Session tokens sealed at rest")
	}

	cfg.Log.Info("Session store initialized", "backend", cfg.SessionStore, "namespace", cfg.SessionNamespace)
	return store, checks
}

func initSession(cfg *config.Config, serverApp *app.Application, store storage.Store, auth *client.AuthClient, events kafka.Publisher) *session.Manager {
	var hook session.LogoutHook = session.LogoutHookFunc(func(_ context.Context, redirectTo string, cause error) {
		cfg.Log.Warn("Session ended, sign in again", "redirect_to", redirectTo, "cause", cause)
	})
	if events != nil {
		hook = session.PublishingHook(events, cfg.Log, hook)
	}

	opts := []session.Option{
		session.WithLogger(cfg.Log),
		session.WithRefreshLead(cfg.TokenRefreshLead),
		session.WithPollInterval(cfg.TokenPollInterval),
		session.WithMalformedRecheck(cfg.TokenMalformedRecheck),
		session.WithLogoutHook(hook),
	}

	var syncer *session.RedisSync
	if cfg.SessionStore == config.StoreRedis {
		syncer = session.NewRedisSync(cfg.Client.Redis, cfg.SessionSyncChannel, cfg.Log)
		opts = append(opts, session.WithBroadcaster(syncer))
	}

	manager := session.NewManager(store, auth, opts...)

	if syncer != nil {
		serverApp.AddWorker("session-sync", func(ctx context.Context) error {
			return syncer.Watch(ctx, manager.HandleExternalClear)
		})
	}
	return manager
}

func initKafka(cfg *config.Config, serverApp *app.Application, inbox *notifications.Inbox, metrics *kafkamw.Metrics) kafka.Publisher {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kcfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking events producer", "error", err)
	}
	producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
	producer.Use(metrics.ProducerMiddleware())

	consumer, err := kafka.NewConsumer(kcfg, cfg.NotificationsTopic, cfg.NotificationsGroupID, cfg.NotificationsDLQTopic, inbox.HandleMessage, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create notifications consumer", "error", err)
	}
	consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	serverApp.AddWorker("notifications-consumer", func(ctx context.Context) error {
		err := consumer.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	serverApp.OnShutdown(func(context.Context) {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close producer", "error", err)
		}
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close consumer", "error", err)
		}
	})

	cfg.Log.Info("Kafka wired", "booking_events_topic", cfg.BookingEventsTopic, "notifications_topic", cfg.NotificationsTopic)
	return producer
}
