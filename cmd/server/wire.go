package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/custodial-ledger/internal/config"
	"github.com/sheikh-saqib/custodial-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/custodial-ledger/internal/events/zaplog"
	"github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
	"github.com/sheikh-saqib/custodial-ledger/internal/lock"
	"github.com/sheikh-saqib/custodial-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/custodial-ledger/internal/storage/postgres"
)

type dependencies struct {
	store     interfaces.LedgerStore
	locker    interfaces.Locker
	publisher interfaces.EventPublisher
	closers   []func() error
	logger    *zap.Logger
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close failed", zap.Error(err))
		}
	}
}

// wire builds the store, locker and publisher selected by cfg. On error,
// anything already opened is closed.
func wire(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *dependencies, err error) {
	deps := &dependencies{logger: logger}
	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	switch cfg.Store {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		deps.closers = append(deps.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := postgres.NewPostgresLedgerStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		deps.store = store
	default:
		deps.store = memory.NewMemoryLedgerStore()
	}

	switch cfg.Locker {
	case config.LockerRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		deps.closers = append(deps.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		locker, err := lock.NewRedisLocker(client, lock.DefaultRedisOptions(), logger)
		if err != nil {
			return nil, err
		}
		deps.locker = locker
	default:
		deps.locker = lock.NewLocalLocker()
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(cfg.KafkaBrokers)
		deps.closers = append(deps.closers, pub.Close)
		deps.publisher = pub
	} else {
		deps.publisher = zaplog.NewPublisher(logger)
	}
	return deps, nil
}
