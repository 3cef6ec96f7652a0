package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/api"
	"github.com/UkralStul/agora/internal/config"
	"github.com/UkralStul/agora/internal/envelope"
	"github.com/UkralStul/agora/internal/events"
	"github.com/UkralStul/agora/internal/governance"
	"github.com/UkralStul/agora/internal/ledger"
	"github.com/UkralStul/agora/internal/logger"
	"github.com/UkralStul/agora/internal/storage"
	"github.com/UkralStul/agora/internal/storage/inmemory"
	"github.com/UkralStul/agora/internal/storage/postgres"
	"github.com/UkralStul/agora/internal/tracing"
)

const (
	shutdownTimeout     = 10 * time.Second
	redisQueueSize      = 4096
	redisPublishTimeout = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	storageType := flag.String("storage", "", "Storage type (in-memory or postgres), overrides the config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg.ApplyEnv(os.Getenv)
	}
	if *storageType != "" {
		cfg.Server.Storage = *storageType
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		LogLevel:    cfg.Log.Level,
		ServiceName: "agora",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "agora",
		Environment: cfg.Log.Environment,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	journal, closeJournal, err := openJournal(cfg, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	hub := events.NewHub()
	emitters := events.Fanout{hub, events.NewLogEmitter(log)}
	if cfg.Server.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Server.RedisAddr, DB: cfg.Server.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, events will be dropped until it recovers", zap.String("addr", cfg.Server.RedisAddr), zap.Error(err))
		}
		// network publishes run off the commit path, in commit order
		redisQueue := events.NewAsync(events.NewRedisPublisher(rdb, cfg.Server.RedisChannel), redisQueueSize, redisPublishTimeout, log)
		defer redisQueue.Close()
		emitters = append(emitters, redisQueue)
	}

	var guard envelope.Guard = envelope.NewMemoryGuard(cfg.Server.ReplayWindow)
	if cfg.Server.MemcachedAddr != "" {
		guard = envelope.NewMemcachedGuard(memcache.New(cfg.Server.MemcachedAddr), cfg.Server.ReplayWindow)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var supply governance.SupplySource
	if cfg.Ledger.TotalSupply > 0 {
		supply = governance.FixedSupply(cfg.Ledger.TotalSupply)
	}

	l, err := ledger.New(ledger.Config{
		Genesis:    cfg.Ledger.Genesis,
		Parameters: cfg.Ledger.Parameters,
		Journal:    journal,
		Emitter:    emitters,
		Supply:     supply,
		Logger:     log,
		Registerer: reg,
	})
	if err != nil {
		return err
	}
	if err := l.Replay(ctx); err != nil {
		return errors.Wrap(err, "replay journal")
	}
	log.Info("ledger ready", zap.Uint64("height", l.Height()), zap.String("storage", cfg.Server.Storage))

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.NewRouter(api.Config{
			Ledger:   l,
			Opener:   envelope.NewOpener(guard),
			Hub:      hub,
			Logger:   log,
			Gatherer: reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openJournal(cfg config.Config, log *zap.Logger) (storage.Journal, func(), error) {
	if cfg.Server.Storage != "postgres" {
		return inmemory.New(), func() {}, nil
	}
	j, err := postgres.New(cfg.Server.PostgresDsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to postgres")
	}
	return j, func() {
		if err := j.Close(); err != nil {
			log.Warn("close journal", zap.Error(err))
		}
	}, nil
}
