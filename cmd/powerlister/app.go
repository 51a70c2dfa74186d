package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/powerlister/internal/config"
	"github.com/erazemk/powerlister/internal/db"
	"github.com/erazemk/powerlister/internal/events"
	"github.com/erazemk/powerlister/internal/listing"
	"github.com/erazemk/powerlister/internal/marketplace"
	"github.com/erazemk/powerlister/internal/secrets"
	"github.com/erazemk/powerlister/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	kv        store.KV
	registry  *marketplace.Registry
	publisher events.Publisher
	lifecycle *listing.Controller

	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	kv, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.kv = kv
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	if cfg.RabbitMQURL != "" {
		pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = pub
		a.closers = append(a.closers, pub.Close)
	} else {
		a.publisher = events.NewLogPublisher(logger)
	}

	a.registry = marketplace.DefaultRegistry(marketplace.Options{
		DelayScale:      cfg.DelayScale,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerTimeout:  cfg.BreakerTimeout,
		Logger:          logger,
	})

	a.lifecycle = listing.NewController(a.kv, a.registry, a.publisher, logger)
	a.lifecycle.Timeout = cfg.MarketplaceTimeout

	return a, nil
}

// box returns the credential box, creating the secret key on first use.
func (a *app) box(ctx context.Context) (*secrets.Box, error) {
	key, err := store.GetSecretKey(ctx, a.kv)
	if err != nil {
		return nil, err
	}
	return secrets.NewBox(key), nil
}

// Close releases the store and the event publisher, most recent first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("error closing resource", "error", err)
		}
	}
	a.closers = nil
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.KV, func() error, error) {
	switch backend := cfg.Backend(); backend {
	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("store ready", "backend", backend, "addr", opt.Addr)
		return store.NewRedisKV(client), client.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return store.NewMemoryKV(), nil, nil

	default:
		location := cfg.DBLocation()
		dialect := db.DetectDialect(location)
		database, err := db.OpenDialect(dialect, location)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.EnsureSchema(database, dialect); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("ensuring database schema: %w", err)
		}
		if dialect == db.DialectSQLite {
			logger.Info("store ready", "backend", backend, "path", location)
		} else {
			logger.Info("store ready", "backend", backend)
		}
		return store.NewSQLKV(database, dialect), database.Close, nil
	}
}
