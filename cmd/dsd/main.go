package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axmq/ds/config"
	"github.com/axmq/ds/durable"
	"github.com/axmq/ds/hook"
	"github.com/axmq/ds/metrics"
	"github.com/axmq/ds/pkg/logger"
	"github.com/axmq/ds/shard"
	"github.com/axmq/ds/store"
	"github.com/axmq/ds/tracing"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, flush, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	flush()

	if err != nil {
		fmt.Fprintf(os.Stderr, "dsd: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (logger.Logger, func(), error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	if cfg.LogFormat == "json" {
		zl, err := logger.NewProductionZapLogger(level)
		if err != nil {
			return nil, nil, err
		}
		return zl, func() { _ = zl.Sync() }, nil
	}
	return logger.NewSlogLogger(level, os.Stderr), func() {}, nil
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	registry := metrics.NewRegistry()
	registry.SetSystemInfo(version, cfg.Backend)

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown tracing", "error", err)
		}
	}()

	backend, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil && !errors.Is(err, store.ErrStoreClosed) {
			log.Error("failed to close store", "error", err)
		}
	}()

	var s store.Store = store.NewInstrumentedStore(backend, registry)
	s = store.NewTracedStore(s, tp.Tracer("github.com/axmq/ds/store"), cfg.Backend)

	supervisor := shard.NewPebbleSupervisor(log)
	defer func() { _ = supervisor.Close() }()

	hooks := hook.NewManager(log)
	defer hooks.Clear()
	if cfg.Limits.SessionOpenRate > 0 {
		limit := hook.NewRateLimitHook(cfg.Limits.SessionOpenRate, cfg.Limits.SessionOpenWindow)
		if err := hooks.Add(limit, nil); err != nil {
			return fmt.Errorf("failed to add rate limit hook: %w", err)
		}
	}

	ds, err := durable.New(durable.Config{
		Store:      s,
		Supervisor: supervisor,
		Logger:     log,
		Hooks:      hooks,
	})
	if err != nil {
		return err
	}

	for _, name := range cfg.Shards.Names {
		err := ds.EnsureShard(ctx, name, shard.Options{Dir: cfg.Shards.Dir})
		registry.RecordShardStart(name, err)
		if err != nil {
			return err
		}
	}

	err = registry.Register(metrics.NewStatsCollector(map[string]metrics.StatsFunc{
		"session":  ds.Sessions().Stats,
		"iterator": ds.Iterators().Stats,
	}))
	if err != nil {
		return fmt.Errorf("failed to register stats collector: %w", err)
	}

	log.Info("durable storage started", "backend", cfg.Backend, "shards", len(cfg.Shards.Names), "version", version)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsEnabled {
		server := metrics.NewServer(cfg.Metrics, registry, log)
		server.SetReady(true)
		g.Go(func() error {
			return server.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return nil
	})

	return g.Wait()
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendPebble:
		return store.NewPebbleStore(store.PebbleStoreConfig{
			Path:   cfg.Pebble.Path,
			Prefix: cfg.Pebble.Prefix,
		})
	case config.BackendRedis:
		return store.NewRedisStore(store.RedisStoreConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Prefix:     cfg.Redis.Prefix,
			MaxRetries: cfg.Redis.MaxRetries,
		})
	case config.BackendCouchbase:
		return store.NewCouchbaseStore(store.CouchbaseStoreConfig{
			ConnectionString: cfg.Couchbase.ConnectionString,
			Username:         cfg.Couchbase.Username,
			Password:         cfg.Couchbase.Password,
			Bucket:           cfg.Couchbase.Bucket,
			Scope:            cfg.Couchbase.Scope,
			Collection:       cfg.Couchbase.Collection,
			Timeout:          cfg.Couchbase.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
