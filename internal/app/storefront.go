package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/catalogapi"
	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/domain/favorites"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// Storefront is the wired set of stores shared by the CLI and the API server.
type Storefront struct {
	Client    product.Catalog
	Catalog   *catalog.State
	Cart      *cart.Store
	Favorites *favorites.Store
	Orders    *order.Service
	Storage   *Storage
}

// NewStorefront opens storage and restores the cart and favorites from it.
// Extra options are passed to the catalog client.
func NewStorefront(ctx context.Context, lg *zap.Logger, cfg *Config, opts ...catalogapi.Option) (*Storefront, error) {
	st, err := OpenStorage(ctx, lg, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]catalogapi.Option{
		catalogapi.WithLogger(lg),
		catalogapi.WithTimeout(cfg.Catalog.Timeout),
		catalogapi.WithRateLimit(cfg.Catalog.RateLimit, cfg.Catalog.Burst),
	}, opts...)
	client, err := catalogapi.New(cfg.Catalog.BaseURL, opts...)
	if err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "create catalog client")
	}

	return Assemble(ctx, lg, cfg, client, st), nil
}

// Assemble builds a Storefront over an existing catalog and storage.
func Assemble(ctx context.Context, lg *zap.Logger, cfg *Config, client product.Catalog, st *Storage) *Storefront {
	c := cart.New(ctx, st.KV, cfg.Storage.CartKey, lg)
	var validator coupon.Validator
	if st.Coupons != nil {
		validator = coupon.NewRepoValidator(st.Coupons)
	}
	return &Storefront{
		Client: client,
		Catalog: catalog.New(ctx, client, lg, catalog.Options{
			PageSize: cfg.Catalog.PageSize,
			Debounce: cfg.Search.Debounce,
		}),
		Cart:      c,
		Favorites: favorites.New(ctx, st.KV, cfg.Storage.FavoritesKey, lg),
		Orders:    order.NewService(c, validator, st.Orders, lg),
		Storage:   st,
	}
}

// Close stops pending searches and releases storage.
func (s *Storefront) Close() error {
	s.Catalog.Close()
	return s.Storage.Close()
}
