package di

import (
	"context"
	"fmt"

	"BarView/internal/domain/repository"
	"BarView/internal/handler/api"
	internalrepo "BarView/internal/repository"
	"BarView/internal/service/cache"
	"BarView/internal/service/catalog"
	"BarView/internal/service/ratelimit"
	"BarView/internal/usecase"
	pkgch "BarView/pkg/clickhouse"
	"BarView/pkg/config"
	xhttp "BarView/pkg/http"
	pkgkafka "BarView/pkg/kafka"
	applogger "BarView/pkg/logger"
	"BarView/pkg/metrics"
	"BarView/pkg/server"
	pkgsqlite "BarView/pkg/sqlite"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the application logger. With log.collect set, error logs are
// deduplicated and shipped to kafka.log_topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectMax,
			Levels:         cfg.Log.CollectLevels,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSQLiteClient opens the SQLite file. It always holds the drawings table and,
// with store.type=sqlite, the bar tables too.
func ProvideSQLiteClient(cfg *config.Config) (*pkgsqlite.Client, func(), error) {
	client, err := pkgsqlite.NewClient(
		pkgsqlite.WithPath(cfg.Store.Path),
		pkgsqlite.WithMaxConnections(cfg.Store.MaxConnections),
		pkgsqlite.WithBusyTimeout(cfg.Store.BusyTimeout),
		pkgsqlite.WithCache(cfg.Store.CachePages, cfg.Store.MmapBytes),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideBarStore selects the bar backend from store.type.
func ProvideBarStore(cfg *config.Config, sq *pkgsqlite.Client, l *applogger.Logger) (repository.BarStore, func(), error) {
	if cfg.Store.Type != "clickhouse" {
		// The SQLite client is closed by its own cleanup.
		return internalrepo.NewSQLiteBarStore(sq, l.With("bar_store")), func() {}, nil
	}
	ch, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	store := internalrepo.NewCHBarStore(ch, l.With("bar_store"))
	return store, func() { _ = store.Close() }, nil
}

func ProvideDrawingStore(sq *pkgsqlite.Client, l *applogger.Logger) repository.DrawingStore {
	return internalrepo.NewSQLiteDrawingStore(sq, l.With("drawing_store"))
}

// ProvideEventPublisher publishes drawing events to kafka.topic, or drops them when Kafka is disabled.
// The cleanup closes the producer.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) (repository.EventPublisher, func()) {
	if producer == nil {
		return internalrepo.NopEventPublisher{}, func() {}
	}
	pub := internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
	return pub, func() { _ = pub.Close() }
}

// ProvideResponseCache builds the /api/data cache named by cache.type; nil disables caching.
// The in-memory cache is swept until cleanup.
func ProvideResponseCache(cfg *config.Config) (cache.BytesCache, func(), error) {
	switch cfg.Cache.Type {
	case "redis":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, func() { _ = rc.Close() }, nil
	case "memory":
		tc := cache.NewTTLCache(cfg.Cache.MaxEntries)
		ctx, cancel := context.WithCancel(context.Background())
		go tc.Run(ctx, cfg.Cache.SweepInterval)
		return tc, cancel, nil
	default:
		return nil, func() {}, nil
	}
}

func ProvideCatalog(store repository.BarStore, l *applogger.Logger) *catalog.Catalog {
	return catalog.New(store, l.With("catalog"))
}

func ProvideBarsUseCase(cfg *config.Config, store repository.BarStore, cat *catalog.Catalog, m repository.Metrics, l *applogger.Logger) *usecase.BarsUseCase {
	uc := usecase.NewBarsUseCase(store, cat, m, l.With("bars"))
	uc.SetRetryBackoff(cfg.Store.RetryBackoff)
	return uc
}

func ProvideDrawingsUseCase(store repository.DrawingStore, pub repository.EventPublisher, l *applogger.Logger) *usecase.DrawingsUseCase {
	return usecase.NewDrawingsUseCase(store, pub, l.With("drawings"))
}

func ProvideHealthUseCase(store repository.BarStore) *usecase.HealthUseCase {
	return usecase.NewHealthUseCase(store)
}

// ProvideDownloadLimiter returns nil when downloads are unlimited (zero burst).
func ProvideDownloadLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Limits.DownloadBurst <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Limits.DownloadBurst, cfg.Limits.DownloadPerSecond)
}

func ProvideBarsHandler(
	cfg *config.Config,
	l *applogger.Logger,
	bars *usecase.BarsUseCase,
	m repository.Metrics,
	c cache.BytesCache,
	limiter *ratelimit.Limiter,
) *api.BarsHandler {
	var opts []api.BarsOption
	if c != nil {
		opts = append(opts, api.WithResponseCache(c, cfg.Cache.TTL))
	}
	if limiter != nil {
		opts = append(opts, api.WithDownloadLimit(limiter.Allow))
	}
	return api.NewBarsHandler(l, bars, m, opts...)
}

func ProvideInstrumentsHandler(l *applogger.Logger, cat *catalog.Catalog) *api.InstrumentsHandler {
	return api.NewInstrumentsHandler(l, cat)
}

func ProvideDrawingsHandler(l *applogger.Logger, uc *usecase.DrawingsUseCase) *api.DrawingsHandler {
	return api.NewDrawingsHandler(l, uc)
}

func ProvideHealthHandler(uc *usecase.HealthUseCase) *api.HealthHandler {
	return api.NewHealthHandler(uc)
}

func ProvideRouter(
	bars *api.BarsHandler,
	instruments *api.InstrumentsHandler,
	drawings *api.DrawingsHandler,
	health *api.HealthHandler,
) xhttp.Handler {
	return api.NewRouter(bars, instruments, drawings, health)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(l.With("http"), h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	drawings repository.DrawingStore,
	cat *catalog.Catalog,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, srv, drawings, cat, limiter)
}
