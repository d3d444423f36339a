package di

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "WorthWatch/internal/domain/repository"
	domsvc "WorthWatch/internal/domain/service"
	"WorthWatch/internal/handler/api"
	"WorthWatch/internal/handler/ws"
	mid "WorthWatch/internal/middleware"
	internalrepo "WorthWatch/internal/repository"
	icache "WorthWatch/internal/service/cache"
	"WorthWatch/internal/services/pipeline"
	"WorthWatch/internal/services/rates"
	"WorthWatch/internal/usecase"
	pkgcache "WorthWatch/pkg/cache"
	pkgch "WorthWatch/pkg/clickhouse"
	"WorthWatch/pkg/config"
	pkgkafka "WorthWatch/pkg/kafka"
	applogger "WorthWatch/pkg/logger"
	pkgmetrics "WorthWatch/pkg/metrics"
	pkgqueue "WorthWatch/pkg/queue"
	"WorthWatch/pkg/server"
	"WorthWatch/pkg/util"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideLedger opens the filesystem ledger.
func ProvideLedger(cfg *config.Config) domrepo.Ledger {
	return internalrepo.NewFSLedger(cfg.Ledger.Dir, cfg.Ledger.SettingsFile)
}

// ProvideClickHouseClient connects to ClickHouse when the history store is
// enabled. Returns nil when disabled; the app then runs without history.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		"CREATE TABLE IF NOT EXISTS " + cfg.ClickHouse.Database + `.snapshot_history (
			month String,
			assets Float64,
			liabilities Float64,
			net_worth Float64,
			income Float64,
			expenses Float64,
			net_cash_flow Float64,
			nominal_return Float64,
			real_return Float64,
			twr_cumulative Float64,
			net_worth_real Nullable(Float64),
			doc String,
			updated_at DateTime
		) ENGINE=ReplacingMergeTree(updated_at) ORDER BY month`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideHistoryStore wraps the ClickHouse client as a snapshot history
// store; nil when history is disabled.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) domrepo.HistoryStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHHistoryStore(chClient, cfg.ClickHouse.Database+".snapshot_history")
	store.SetLogger(log)
	return store
}

// ProvideKafkaProducer creates a Kafka producer; nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates the months-topic consumer; nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideHub creates the websocket fanout hub.
func ProvideHub(metrics domrepo.Metrics, log *applogger.Logger) *ws.Hub {
	return ws.NewHub(metrics, log)
}

// ProvideEventPublisher combines the websocket hub with Kafka when enabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, hub *ws.Hub, metrics domrepo.Metrics, cfg *config.Config) domrepo.EventPublisher {
	members := []domrepo.EventPublisher{hub}
	if producer != nil {
		topic := cfg.Kafka.EventsTopic
		if topic == "" {
			topic = "worthwatch.events"
		}
		members = append(members, internalrepo.NewKafkaEventPublisher(producer, topic, metrics))
	}
	return internalrepo.NewFanoutPublisher(members...)
}

// ProvideRedisClient opens the shared Redis connection; nil when disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCache picks the dashboard object cache backend. Redis and layered
// need the Redis server; both fall back to memory when it is disabled.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	switch cfg.Cache.Backend {
	case "redis", "layered":
		if !cfg.Redis.Enabled {
			return memoryCache(cfg), nil
		}
		host, port := splitHostPort(cfg.Redis.Addr, 6379)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			if cfg.Cache.MaxEntries > 0 {
				return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(cfg.Cache.MaxEntries)), nil
			}
			return pkgcache.NewLayeredCache(rc), nil
		}
		return rc, nil
	default:
		return memoryCache(cfg), nil
	}
}

func memoryCache(cfg *config.Config) *pkgcache.MemoryCache {
	if cfg.Cache.MaxEntries > 0 {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MaxEntries))
	}
	return pkgcache.NewMemoryCache()
}

func splitHostPort(addr string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	return host, util.ParseIntDefault(portStr, defaultPort)
}

// ProvideBuilder creates the snapshot pipeline builder.
func ProvideBuilder(log *applogger.Logger) *pipeline.Builder {
	return pipeline.NewBuilder(log)
}

// ProvideDashboardUseCase assembles the dashboard lifecycle owner.
func ProvideDashboardUseCase(
	ledger domrepo.Ledger,
	builder *pipeline.Builder,
	cache pkgcache.Service,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	history domrepo.HistoryStore,
	events domrepo.EventPublisher,
	cfg *config.Config,
) *usecase.DashboardUseCase {
	uc := usecase.NewDashboardUseCase(ledger, builder, cache, metrics, log, cfg.Dashboard.CacheTTL)
	if history != nil {
		uc.WithHistory(history)
	}
	uc.WithEvents(events)
	return uc
}

// ProvideEntriesUseCase creates the month audit views usecase.
func ProvideEntriesUseCase(ledger domrepo.Ledger) *usecase.EntriesUseCase {
	return usecase.NewEntriesUseCase(ledger)
}

// ProvideRateSource creates the external FX client; nil when not configured.
func ProvideRateSource(cfg *config.Config, log *applogger.Logger) domsvc.RateSource {
	if !cfg.Rates.Enabled || cfg.Rates.BaseURL == "" {
		return nil
	}
	return rates.NewClient(cfg, log)
}

// ProvideRatesUseCase creates the FX refresh usecase; nil without a source,
// which in turn disables the refresh endpoint.
func ProvideRatesUseCase(ledger domrepo.Ledger, source domsvc.RateSource, dashboard *usecase.DashboardUseCase, log *applogger.Logger) *usecase.RatesUseCase {
	if source == nil {
		return nil
	}
	return usecase.NewRatesUseCase(ledger, source, dashboard, log)
}

// ProvideRebuildJob creates the queue job draining rebuild requests.
func ProvideRebuildJob(dashboard *usecase.DashboardUseCase, log *applogger.Logger) *usecase.RebuildJob {
	return usecase.NewRebuildJob(dashboard, log)
}

// ProvideQueue builds the rebuild queue worker over Redis; nil without
// Redis, in which case rebuilds run inline.
func ProvideQueue(cfg *config.Config, log *applogger.Logger, rdb *redis.Client, job *usecase.RebuildJob) *pkgqueue.RedisQueue {
	if rdb == nil {
		return nil
	}
	qc := &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  256,
		RetryLimit: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryBackoff,
	}
	// rebuilds must not race each other
	if qc.Workers <= 0 {
		qc.Workers = 1
	}
	return pkgqueue.NewRedisConsumer(log, qc, rdb, []pkgqueue.Job{job})
}

// ProvideMonthProcessor persists ingested months and schedules rebuilds,
// queued when Redis is available.
func ProvideMonthProcessor(
	ledger domrepo.Ledger,
	dashboard *usecase.DashboardUseCase,
	queue *pkgqueue.RedisQueue,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *usecase.MonthProcessor {
	mode := usecase.RebuildInline
	var qs pkgqueue.QueueService
	if queue != nil {
		qs = queue
		mode = usecase.RebuildQueued
	}
	return usecase.NewMonthProcessor(ledger, dashboard, qs, metrics, log, mode)
}

// ProvideIngestGuard builds the validation and throttle layer in front of
// the month processor.
func ProvideIngestGuard(proc *usecase.MonthProcessor, metrics domrepo.Metrics) *mid.IngestGuard {
	return mid.NewIngestGuard(proc, metrics,
		mid.WithMaxRPS(5),
		mid.WithBufferSize(100),
	)
}

// ProvideKafkaMonthsHandler registers the handler for the months topic.
func ProvideKafkaMonthsHandler(guard *mid.IngestGuard, metrics domrepo.Metrics, cfg *config.Config) *usecase.KafkaMonthsHandler {
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = "worthwatch.months"
	}
	return usecase.NewKafkaMonthsHandler(topic, guard, metrics)
}

// ProvideHTTPHandler assembles the dashboard API handler with its response
// byte cache.
func ProvideHTTPHandler(
	dashboard *usecase.DashboardUseCase,
	entries *usecase.EntriesUseCase,
	ratesUC *usecase.RatesUseCase,
	queue *pkgqueue.RedisQueue,
	cfg *config.Config,
	log *applogger.Logger,
) *api.DashboardHandler {
	h := api.NewDashboardHandler(dashboard, entries)
	h.SetLogger(log)

	var bc icache.BytesCache = icache.NewTTLCache()
	if cfg.Cache.Backend != "memory" && cfg.Redis.Enabled {
		bc = icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	h.SetCache(bc)

	if ratesUC != nil {
		h.SetRates(ratesUC)
	}
	if queue != nil {
		h.SetQueue(queue)
	}
	if maxAge := int(cfg.Dashboard.HTTPCacheMaxAge.Seconds()); maxAge > 0 {
		h.SetHTTPCacheMaxAge(maxAge)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.DashboardHandler,
	hub *ws.Hub,
	dashboard *usecase.DashboardUseCase,
	guard *mid.IngestGuard,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaMonthsHandler,
	queue *pkgqueue.RedisQueue,
	events domrepo.EventPublisher,
	history domrepo.HistoryStore,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, log, server.Components{
		Handler:      handler,
		Hub:          hub,
		Dashboard:    dashboard,
		Guard:        guard,
		Consumer:     consumer,
		KafkaHandler: kh,
		Queue:        queue,
		Events:       events,
		History:      history,
		CHClient:     chClient,
		Producer:     producer,
	})
}
