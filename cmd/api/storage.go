package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/persist"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
	"go.uber.org/multierr"
)

// backend is the storage selected by STOREFRONT_STORAGE_BACKEND plus the
// clients that must be closed on shutdown.
type backend struct {
	storage persist.Storage
	pinger  controllers.Pinger
	redis   *redis.Client
	db      *db.Client
}

func openBackend(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		return &backend{
			storage: persist.NewRedisStorage(client, cfg.Storage.TTL),
			pinger:  client,
			redis:   client,
		}, nil

	case config.StorageSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return &backend{
			storage: persist.NewSQLStorage(client.DB(), cfg.Storage.TTL),
			pinger:  client,
			db:      client,
		}, nil

	default:
		logg.Warn(ctx, "using in-memory storage; session state is lost on restart")
		storage := persist.NewMemoryStorage()
		return &backend{storage: storage, pinger: storage}, nil
	}
}

// middlewareStores wires redis-backed rate limiting and idempotency. Other
// backends leave both nil, which disables that middleware.
func (b *backend) middlewareStores(deps *routes.Dependencies) {
	if b.redis == nil {
		return
	}
	deps.RateLimiter = b.redis
	deps.Idempotency = b.redis
}

func (b *backend) Close() error {
	var err error
	if b.redis != nil {
		err = multierr.Append(err, b.redis.Close())
	}
	if b.db != nil {
		err = multierr.Append(err, b.db.Close())
	}
	return err
}
