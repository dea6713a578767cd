package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"TriRecover/internal/domain/repository"
	domsvc "TriRecover/internal/domain/service"
	"TriRecover/internal/handler/api"
	mid "TriRecover/internal/middleware"
	internalrepo "TriRecover/internal/repository"
	"TriRecover/internal/service/feed"
	"TriRecover/internal/service/ratelimit"
	"TriRecover/internal/service/supabase"
	"TriRecover/internal/services/assessment"
	"TriRecover/internal/usecase"
	"TriRecover/pkg/cache"
	pkgch "TriRecover/pkg/clickhouse"
	"TriRecover/pkg/config"
	pkgkafka "TriRecover/pkg/kafka"
	"TriRecover/pkg/logger"
	"TriRecover/pkg/metrics"
	pkgpg "TriRecover/pkg/postgres"
	"TriRecover/pkg/queue"
	"TriRecover/pkg/server"
)

// Optional infrastructure providers return nil when the section is disabled;
// consumers check for nil rather than failing startup.

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&cfg.Log)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvidePostgresClient opens the pool when the postgres backend is selected.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	if cfg.Store.Backend != config.BackendPostgres {
		return nil, nil
	}
	pg := cfg.Store.Postgres
	client, err := pkgpg.NewClient(context.Background(),
		pkgpg.WithDSN(pg.DSN),
		pkgpg.WithMaxConnections(pg.MaxConns, pg.MinConns),
		pkgpg.WithLifetimes(pg.ConnMaxLifetime, pg.ConnMaxIdleTime),
		pkgpg.WithConnectTimeout(pg.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideEntryStore picks the backend and runs its migrations.
func ProvideEntryStore(pg *pkgpg.Client) (repository.EntryStore, error) {
	if pg == nil {
		return internalrepo.NewMemoryEntryStore(), nil
	}
	store := internalrepo.NewPostgresEntryStore(pg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("entry store migrations: %w", err)
	}
	return store, nil
}

// ProvideRedisCache connects when redis is enabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process L1 over redis, or runs memory-only.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemorySize))
	}
	return cache.NewLayeredCache(rc, cfg.Redis.MemorySize, cfg.Redis.L1TTL)
}

// ProvideSettingsStore keeps settings apart from the assessment cache so
// eviction and the L1 layer never touch them.
func ProvideSettingsStore(rc *cache.RedisCache) repository.SettingsStore {
	if rc == nil {
		return internalrepo.NewCacheSettingsStore(cache.NewMemoryCache(cache.WithMemoryMaxSize(16)))
	}
	return internalrepo.NewCacheSettingsStore(rc)
}

// ProvideKafkaProducer creates a Kafka producer when kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithBatchSize(k.Producer.BatchSize),
		pkgkafka.WithBatchBytes(k.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithRequiredAcks(k.Producer.RequiredAcks),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(k.AutoCreate),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher publishes assessment events to kafka. Without kafka the
// events go straight to the archive pipeline, or nowhere.
func ProvidePublisher(producer *pkgkafka.Producer, pipeline *mid.ArchivePipeline, cfg *config.Config) repository.Publisher {
	switch {
	case producer != nil:
		return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.Assessments)
	case pipeline != nil:
		return mid.NewPipelinePublisher(pipeline)
	default:
		return internalrepo.NopPublisher{}
	}
}

func ProvideFeedHub(l *logger.Logger) *feed.Hub {
	return feed.NewHub(l)
}

// ProvideBackfillPublisher enqueues recomputation jobs on redis.
func ProvideBackfillPublisher(l *logger.Logger, rc *cache.RedisCache, cfg *config.Config) queue.Publisher {
	if rc == nil {
		return nil
	}
	return queue.NewRedisPublisher(l, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

func ProvideAssessor() domsvc.Assessor {
	return assessment.NewEngine()
}

func ProvideAssessmentService(
	cfg *config.Config,
	store repository.EntryStore,
	settings repository.SettingsStore,
	assessor domsvc.Assessor,
	c cache.Service,
	pub repository.Publisher,
	hub *feed.Hub,
	backfill queue.Publisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.AssessmentService {
	return usecase.NewAssessmentService(store, settings, assessor, c, pub, hub, backfill, m, l, usecase.AssessmentConfig{
		Location:        cfg.Location(),
		CacheTTL:        cfg.Engine.CacheTTL,
		TimelineMaxDays: cfg.Engine.TimelineMaxDays,
		TimelineWorkers: cfg.Engine.TimelineWorkers,
	})
}

func ProvideEntryService(cfg *config.Config, store repository.EntryStore, assessments *usecase.AssessmentService, m repository.Metrics, l *logger.Logger) *usecase.EntryService {
	return usecase.NewEntryService(store, assessments, m, cfg.Store.Backend, l)
}

// ProvideCloudSync builds the hosted-journal client; it reports itself
// disabled without credentials.
func ProvideCloudSync(cfg *config.Config) domsvc.CloudSync {
	s := cfg.Supabase
	return supabase.NewClient(supabase.Config{
		URL:       s.URL,
		Key:       s.Key,
		Table:     s.Table,
		Timeout:   s.Timeout,
		RPS:       s.RPS,
		FailAfter: s.FailAfter,
		OpenFor:   s.OpenFor,
	})
}

func ProvideSyncService(cfg *config.Config, cloud domsvc.CloudSync, store repository.EntryStore, assessments *usecase.AssessmentService, m repository.Metrics, l *logger.Logger) *usecase.SyncService {
	return usecase.NewSyncService(cloud, store, assessments, m, cfg.Store.Backend, l)
}

// ProvideClickHouseClient creates a ClickHouse client when the archive is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive creates the archive table. A nil client yields a nil archive.
func ProvideArchive(client *pkgch.Client, cfg *config.Config) (repository.AssessmentArchive, error) {
	if client == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseArchive(client, cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

func ProvideArchiveService(archive repository.AssessmentArchive) *usecase.ArchiveService {
	return usecase.NewArchiveService(archive)
}

// ProvideArchivePipeline batches events into the archive.
func ProvideArchivePipeline(archive repository.AssessmentArchive, m repository.Metrics, l *logger.Logger, cfg *config.Config) *mid.ArchivePipeline {
	if archive == nil {
		return nil
	}
	return mid.NewArchivePipeline(archive, m, l,
		mid.WithBatchSize(cfg.ClickHouse.BatchSize),
		mid.WithFlushInterval(cfg.ClickHouse.FlushInterval),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.Topics.DLQ),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.LoggingHook(l, time.Second))
	return consumer, nil
}

// ProvideKafkaHandlers lists the topics this service consumes.
func ProvideKafkaHandlers(cfg *config.Config, entries *usecase.EntryService, pipeline *mid.ArchivePipeline, m repository.Metrics) []pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	handlers := []pkgkafka.MessageHandler{
		usecase.NewKafkaEntriesHandler(cfg.Kafka.Topics.Entries, entries, m),
	}
	if pipeline != nil {
		handlers = append(handlers, usecase.NewKafkaArchiveHandler(cfg.Kafka.Topics.Assessments, pipeline, m))
	}
	return handlers
}

// ProvideBackfillConsumer runs backfill jobs when redis is enabled.
func ProvideBackfillConsumer(cfg *config.Config, l *logger.Logger, rc *cache.RedisCache, assessments *usecase.AssessmentService) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), []queue.Job{usecase.NewBackfillJob(assessments)}, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

func ProvideHandler(
	l *logger.Logger,
	entries *usecase.EntryService,
	assessments *usecase.AssessmentService,
	settings repository.SettingsStore,
	sync *usecase.SyncService,
	archive *usecase.ArchiveService,
	hub *feed.Hub,
	limiter *ratelimit.Limiter,
) *api.Handler {
	h := api.NewHandler(l, entries, assessments, settings, sync, archive, hub)
	if limiter != nil {
		h.WithRateLimit(limiter.Middleware())
	}
	return h
}

// ProvideApp assembles the application and attaches the kafka log shipper.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler *api.Handler,
	hub *feed.Hub,
	store repository.EntryStore,
	pg *pkgpg.Client,
	c cache.Service,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	backfillPub queue.Publisher,
	backfill *queue.RedisQueue,
	pipeline *mid.ArchivePipeline,
	ch *pkgch.Client,
	limiter *ratelimit.Limiter,
) *server.App {
	if cfg.Kafka.Logs.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Kafka.Logs.FlushInterval,
			CountThreshold: cfg.Kafka.Logs.CountThreshold,
			Topic:          cfg.Kafka.Topics.Logs,
			Publisher:      producer,
		})
	}
	return server.New(cfg, l, server.Components{
		Handler:     handler,
		Hub:         hub,
		Store:       store,
		Postgres:    pg,
		Cache:       c,
		Producer:    producer,
		Consumer:    consumer,
		Handlers:    handlers,
		BackfillPub: backfillPub,
		Backfill:    backfill,
		Pipeline:    pipeline,
		ClickHouse:  ch,
		Limiter:     limiter,
	})
}
