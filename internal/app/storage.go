package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/storage/bolt"
	"github.com/raj-engineer/EcomApp/internal/storage/memory"
	"github.com/raj-engineer/EcomApp/internal/storage/postgres"
)

// Storage bundles the repositories selected by the storage driver.
type Storage struct {
	KV      kv.Store
	Orders  order.Repository
	Coupons coupon.Repository

	// Ping reports whether the backing store is reachable.
	Ping func(ctx context.Context) error

	close func() error
}

// Close releases the backing store.
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage opens the configured driver. Coupon rules come from the
// coupons table on postgres, which is refreshed from the coupon file when
// one is configured, and from the coupon file alone on other drivers.
func OpenStorage(ctx context.Context, lg *zap.Logger, cfg *Config) (*Storage, error) {
	var rules []coupon.Rule
	if cfg.Coupons.File != "" {
		var err error
		if rules, err = coupon.LoadRules(cfg.Coupons.File); err != nil {
			return nil, errors.Wrap(err, "load coupons")
		}
		lg.Debug("Loaded coupon rules", zap.String("file", cfg.Coupons.File), zap.Int("count", len(rules)))
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
		return &Storage{
			KV:      memory.NewKV(),
			Orders:  memory.NewOrderRepository(),
			Coupons: memory.NewCouponRepository(rules...),
			Ping:    func(context.Context) error { return nil },
		}, nil

	case DriverBolt:
		db, err := bolt.Open(cfg.Storage.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open bolt")
		}
		return &Storage{
			KV:      db.KV(),
			Orders:  db.Orders(),
			Coupons: memory.NewCouponRepository(rules...),
			Ping:    db.Ping,
			close:   db.Close,
		}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		coupons := postgres.NewCouponRepository(pool)
		if len(rules) > 0 {
			if err := coupons.Upsert(ctx, rules); err != nil {
				pool.Close()
				return nil, errors.Wrap(err, "upsert coupons")
			}
		}
		return &Storage{
			KV:      postgres.NewKVRepository(pool),
			Orders:  postgres.NewOrderRepository(pool),
			Coupons: coupons,
			Ping:    pool.Ping,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
