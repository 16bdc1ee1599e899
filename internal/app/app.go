package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/schoolwear/internal/backend"
	"github.com/utafrali/schoolwear/internal/config"
	"github.com/utafrali/schoolwear/internal/event"
	handler "github.com/utafrali/schoolwear/internal/handler/http"
	"github.com/utafrali/schoolwear/internal/repository"
	"github.com/utafrali/schoolwear/internal/repository/memory"
	pgrepo "github.com/utafrali/schoolwear/internal/repository/postgres"
	redisrepo "github.com/utafrali/schoolwear/internal/repository/redis"
	"github.com/utafrali/schoolwear/internal/service"
	"github.com/utafrali/schoolwear/pkg/database"
	"github.com/utafrali/schoolwear/pkg/health"
	"github.com/utafrali/schoolwear/pkg/httpclient"
	pkgkafka "github.com/utafrali/schoolwear/pkg/kafka"
	"github.com/utafrali/schoolwear/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	cart           *service.CartStore
	publisher      *event.Publisher
	producer       *pkgkafka.Producer
	closeStorage   func()
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tcfg := tracing.DefaultConfig("storefront")
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	kv, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Backend client behind retries and a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.BackendTimeout()
	httpCfg.MaxRetries = cfg.BackendMaxRetries
	doer := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("store-backend"),
		logger,
	)
	api := backend.NewClient(cfg.BackendBaseURL, doer, logger,
		backend.WithRateLimit(cfg.BackendRateLimit, cfg.BackendRateBurst),
	)

	// Events are optional; a nil producer disables them.
	var (
		producer *pkgkafka.Producer
		events   pkgkafka.Publisher
	)
	if cfg.EventsEnabled() {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, events disabled")
	}
	publisher := event.NewPublisher(events, uuid.NewString(), logger, 0)

	// Stores. The cart is loaded before the server accepts requests.
	cart := service.NewCartStore(kv, logger)
	cart.Subscribe(publisher.OnCartChanged)
	cart.Init(ctx)
	tokens := service.NewTokenStore(kv, logger)

	catalogService := service.NewCatalogService(api, cart, cfg.MaxQuantityPerItem, logger)
	orderService := service.NewOrderService(api, tokens, logger)
	checkoutService := service.NewCheckoutService(cart, tokens, api, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("storage", cart.Ping)
	healthHandler.RegisterOptional("backend", api.Ping)
	if producer != nil {
		healthHandler.RegisterOptional("kafka", producer.Ping)
	}

	router := handler.NewRouter(handler.Handlers{
		Cart:    handler.NewCartHandler(cart, catalogService, logger),
		Orders:  handler.NewOrderHandler(orderService, checkoutService, logger),
		Session: handler.NewSessionHandler(tokens, cart, logger),
	}, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		cart:           cart,
		publisher:      publisher,
		producer:       producer,
		closeStorage:   closeStorage,
		shutdownTracer: shutdownTracer,
		httpServer:     httpServer,
	}, nil
}

// openStorage connects the configured key-value driver. The returned func
// releases its connections.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.KeyValueStore, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return redisrepo.NewKeyValueStore(rdb, cfg.StorageNamespace), func() {
			if err := rdb.Close(); err != nil {
				logger.Error("redis close error", slog.String("error", err.Error()))
			}
		}, nil

	case config.DriverPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, pgrepo.Migrations(), logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("db", cfg.PostgresDB),
		)
		return pgrepo.NewKeyValueStore(pool, cfg.StorageNamespace), pool.Close, nil

	default:
		logger.Warn("using in-memory storage, the cart will not survive a restart")
		return memory.NewKeyValueStore(), func() {}, nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. The cart store is closed after
// the HTTP server so its final state is written before storage goes away.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.cart.Close(shutdownCtx); err != nil {
		a.logger.Error("cart store close error", slog.String("error", err.Error()))
	}

	if err := a.publisher.Close(shutdownCtx); err != nil {
		a.logger.Error("event publisher close error", slog.String("error", err.Error()))
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.closeStorage()

	a.logger.Info("application shutdown complete")
	return nil
}
