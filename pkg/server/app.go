package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TriRecover/internal/domain/repository"
	"TriRecover/internal/handler/api"
	mid "TriRecover/internal/middleware"
	"TriRecover/internal/service/feed"
	"TriRecover/internal/service/ratelimit"
	"TriRecover/pkg/cache"
	pkgch "TriRecover/pkg/clickhouse"
	"TriRecover/pkg/config"
	xhttp "TriRecover/pkg/http"
	pkgkafka "TriRecover/pkg/kafka"
	"TriRecover/pkg/logger"
	pkgpg "TriRecover/pkg/postgres"
	"TriRecover/pkg/queue"
)

// Components groups everything the App starts and stops. Optional parts are
// nil when their config section is disabled.
type Components struct {
	Handler     *api.Handler
	Hub         *feed.Hub
	Store       repository.EntryStore
	Postgres    *pkgpg.Client
	Cache       cache.Service
	Producer    *pkgkafka.Producer
	Consumer    *pkgkafka.Consumer
	Handlers    []pkgkafka.MessageHandler
	BackfillPub queue.Publisher
	Backfill    *queue.RedisQueue
	Pipeline    *mid.ArchivePipeline
	ClickHouse  *pkgch.Client
	Limiter     *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *logger.Logger, c Components) *App {
	return &App{cfg: cfg, log: l, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	go a.c.Hub.Run(ctx)

	if a.c.Pipeline != nil {
		a.c.Pipeline.Start(ctx)
		a.log.Info("archive pipeline started", logger.String("table", a.cfg.ClickHouse.Table))
	}

	if a.c.Consumer != nil && len(a.c.Handlers) > 0 {
		topics := make([]string, 0, len(a.c.Handlers))
		for _, h := range a.c.Handlers {
			a.c.Consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		go func() {
			if err := a.c.Consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", logger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", logger.Strings("topics", topics))
	}

	if a.c.Backfill != nil {
		if err := a.c.Backfill.Start(); err != nil {
			return err
		}
		a.log.Info("backfill queue started", logger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.c.Limiter != nil {
		a.c.Limiter.StartJanitor(ctx, time.Minute, 10*time.Minute)
	}
	a.httpServer = xhttp.NewServer(a.c.Handler, a.log,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}

	a.log.Info("tri-recover started",
		logger.String("env", a.cfg.Environment),
		logger.String("backend", a.cfg.Store.Backend),
		logger.Bool("kafka", a.cfg.Kafka.Enabled),
		logger.Bool("redis", a.cfg.Redis.Enabled),
		logger.Bool("archive", a.cfg.ClickHouse.Enabled),
		logger.Bool("cloud_sync", a.cfg.Supabase.Enabled()),
	)
	return nil
}

// shutdown stops inbound traffic first, then drains workers, then closes clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", logger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	if a.c.Backfill != nil {
		if err := a.c.Backfill.Stop(ctx); err != nil {
			a.log.Warn("backfill queue stop error", logger.Error(err))
		}
	}
	if s, ok := a.c.BackfillPub.(interface{ Stop(context.Context) error }); ok {
		_ = s.Stop(ctx)
	}
	if a.c.Pipeline != nil {
		if err := a.c.Pipeline.Stop(ctx); err != nil {
			a.log.Warn("archive pipeline stop error", logger.Error(err))
		}
	}
	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", logger.Error(err))
		}
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", logger.Error(err))
		}
	}
	if err := a.c.Store.Close(); err != nil {
		a.log.Warn("entry store close error", logger.Error(err))
	}
	if a.c.Postgres != nil {
		_ = a.c.Postgres.Close()
	}
	if cl, ok := a.c.Cache.(io.Closer); ok {
		_ = cl.Close()
	}

	a.log.Info("shutdown complete")
	return nil
}
