package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, min_items, description,
		valid_from, valid_until, max_uses, uses, max_discount
		FROM coupons WHERE code = UPPER($1) AND active = TRUE`

	// The usage limit is re-checked in the UPDATE so concurrent redemptions
	// cannot overshoot it.
	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1
		WHERE code = UPPER($1) AND active = TRUE AND (max_uses = 0 OR uses < max_uses)`

	decrementCouponUsesSQL = `UPDATE coupons SET uses = uses - 1
		WHERE code = UPPER($1) AND uses > 0`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, min_items, description,
		valid_from, valid_until, max_uses, max_discount, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_items = EXCLUDED.min_items,
			description = EXCLUDED.description,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			max_uses = EXCLUDED.max_uses,
			max_discount = EXCLUDED.max_discount,
			active = TRUE`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon. Returns coupon.ErrInvalidCoupon when
// none matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUses counts one redemption, failing with
// coupon.ErrCouponUsageLimitReached when no use is left.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponUsageLimitReached
	}
	return nil
}

// DecrementUses gives back one redemption. A rule with no counted uses is
// left alone.
func (r *CouponRepository) DecrementUses(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, decrementCouponUsesSQL, code); err != nil {
		return fmt.Errorf("decrementing uses for coupon %q: %w", code, err)
	}
	return nil
}

// Upsert inserts or updates rules in one transaction. Use counts of existing
// rules are kept.
func (r *CouponRepository) Upsert(ctx context.Context, rules []coupon.Rule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning coupon upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, rule := range rules {
		if _, err := tx.Exec(ctx, upsertCouponSQL,
			coupon.NormalizeCode(rule.Code), string(rule.DiscountType), rule.Value, rule.MinItems,
			rule.Description, rule.ValidFrom, rule.ValidUntil, rule.MaxUses, rule.MaxDiscount,
		); err != nil {
			return fmt.Errorf("upserting coupon %q: %w", rule.Code, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing coupon upsert: %w", err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		value        decimal.Decimal
		minItems     int32
		validFrom    *time.Time
		validUntil   *time.Time
		maxUses      int32
		uses         int32
		maxDiscount  decimal.Decimal
	)
	if err := row.Scan(
		&rule.Code, &discountType, &value, &minItems, &rule.Description,
		&validFrom, &validUntil, &maxUses, &uses, &maxDiscount,
	); err != nil {
		return coupon.Rule{}, err
	}
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.Value = value
	rule.MinItems = int(minItems)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	rule.MaxDiscount = maxDiscount
	return rule, nil
}
