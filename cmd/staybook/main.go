package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"staybook/internal/app/engine"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	"staybook/internal/infra/broker/kafka"
	rediscache "staybook/internal/infra/cache/redis"
	"staybook/internal/infra/config"
	"staybook/internal/infra/db/mongo"
	"staybook/internal/infra/db/sqlstore"
	grpcserver "staybook/internal/infra/grpc"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/inbox"
	"staybook/internal/infra/notify"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/pricing"
	"staybook/internal/infra/storage/memory"
	"staybook/internal/infra/storage/s3"
)

const serviceName = "staybook"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staybook stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("staybook stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := obs.SetupTracing(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.loadListingFixtures(ctx, cfg.FixturesPath, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Readiness: app.readiness}, app.handlers)
	grpcSrv, err := grpcserver.NewServer(cfg.GRPCAddr, app.readiness, 0, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return grpcSrv.Serve(gctx) })
	g.Go(func() error { return ignoreCanceled(app.relay.Run(gctx)) })
	if app.consumer != nil {
		g.Go(func() error { return ignoreCanceled(app.consumer.Run(gctx, app.consumerTopics)) })
	}
	if app.signalFeed != nil {
		g.Go(func() error {
			app.signalFeed.Run(gctx, cfg.SignalsRefresh)
			return nil
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type application struct {
	engine         *engine.Engine
	handlers       ginserver.Handlers
	readiness      obs.Readiness
	relay          *infraoutbox.Worker
	consumer       *kafka.Consumer
	consumerTopics []string
	signalFeed     *pricing.FeedClient
	closers        []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{readiness: obs.Readiness{Checks: map[string]obs.Check{}}}

	factory, relayStore, err := app.openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var idempotency middleware.IdempotencyStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	var inboxStore inbox.Store = inbox.NewMemoryStore()
	if cfg.MongoURI != "" {
		client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("mongo: %w", err)
		}
		app.closers = append(app.closers, func() error { return client.Close(context.Background()) })
		app.readiness.Checks["mongo"] = client.Ping
		idStore := mongo.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		box := inbox.NewMongoStore(client.DB, cfg.KafkaGroupID)
		for _, ensure := range []func(context.Context) error{idStore.EnsureIndexes, box.EnsureIndexes} {
			if err := ensure(ctx); err != nil {
				logger.Warn("mongo index setup failed", "error", err)
			}
		}
		idempotency, inboxStore = idStore, box
	}

	var cache policies.AvailabilityCache
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		app.closers = append(app.closers, client.Close)
		app.readiness.Checks["redis"] = func(ctx context.Context) error { return rediscache.Ping(ctx, client) }
		cache = rediscache.NewAvailabilityCache(client, cfg.CacheTTL)
	}

	signals := &pricing.SignalCalendar{}
	if cfg.SignalsFile != "" {
		if err := signals.LoadFile(cfg.SignalsFile); err != nil {
			logger.Warn("pricing signals file not loaded", "path", cfg.SignalsFile, "error", err)
		}
	}
	if cfg.SignalsEndpoint != "" {
		app.signalFeed = &pricing.FeedClient{
			Endpoint: cfg.SignalsEndpoint,
			Client:   &http.Client{Timeout: 5 * time.Second},
			Calendar: signals,
			Logger:   logger,
		}
	}

	var archive policies.CalendarArchive
	if cfg.S3Endpoint != "" {
		s3Archive, err := s3.NewArchive(s3.Config{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicURL,
			PublicRead:    cfg.S3PublicRead,
		}, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("calendar archive: %w", err)
		}
		app.readiness.Checks["s3"] = s3Archive.Ping
		archive = s3Archive
	}

	dispatcher := appoutbox.NewDispatcher()
	relay := &infraoutbox.Worker{
		Store:       relayStore,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	var notifier policies.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, producer.Close)
		relay.Producer = producer
		notifier = &kafka.Notifier{Producer: producer, Topic: cfg.NotificationTopic}

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, &kafka.EventHandler{
			Dispatcher: dispatcher,
			Inbox:      inboxStore,
			Logger:     logger,
		}, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.closers = append(app.closers, consumer.Close)
		app.consumer = consumer
		for _, base := range []string{"listing.", "calendar.", "booking.", "pricing."} {
			app.consumerTopics = append(app.consumerTopics, infraoutbox.TopicFor(cfg.KafkaTopicPrefix, base))
		}
	} else {
		relay.Producer = infraoutbox.LocalProducer{Dispatcher: dispatcher}
	}
	app.relay = relay

	app.engine = engine.New(engine.Deps{
		UoWFactory:  factory,
		Idempotency: idempotency,
		Flusher:     relay,
		Dispatcher:  dispatcher,
		Cache:       cache,
		Notifier:    notifier,
		Signals:     signals,
		Archive:     archive,
		Logger:      logger,
	})
	app.handlers = ginserver.Handlers{
		Listing:      ginserver.ListingHandler{Commands: app.engine.Commands, Queries: app.engine.Queries, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Commands: app.engine.Commands, Queries: app.engine.Queries, Logger: logger},
		Pricing:      ginserver.PricingHandler{Commands: app.engine.Commands, Queries: app.engine.Queries, Logger: logger},
		Booking:      ginserver.BookingHandler{Commands: app.engine.Commands, Queries: app.engine.Queries, Logger: logger},
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config) (uow.UoWFactory, infraoutbox.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		return memory.Factory{Store: store}, store.Outbox(), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.readiness.Checks["sql"] = store.Ping
		return sqlstore.Factory{Store: store}, store.Outbox(), nil
	default:
		store, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.readiness.Checks["sql"] = store.Ping
		return sqlstore.Factory{Store: store}, store.Outbox(), nil
	}
}
