package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/domain/favorites"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

func TestKV(t *testing.T) {
	ctx := context.Background()
	s := NewKV()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	buf := []byte("value")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'X'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", string(got), "stored value must not alias the caller's buffer")
}

func TestKV_BacksStores(t *testing.T) {
	ctx := context.Background()
	s := NewKV()

	c := cart.New(ctx, s, "", nil)
	c.Add(ctx, product.Product{ID: 1, Price: decimal.RequireFromString("2.50")})
	f := favorites.New(ctx, s, "", nil)
	f.ToggleID(ctx, 8)

	c2 := cart.New(ctx, s, "", nil)
	f2 := favorites.New(ctx, s, "", nil)
	assert.Equal(t, 1, c2.Count())
	assert.Equal(t, []int{8}, f2.IDs())
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	first := &order.Order{ID: "a", Items: []order.Item{{ProductID: 1, Quantity: 1}}}
	second := &order.Order{ID: "b"}
	require.NoError(t, r.Create(ctx, first))
	require.NoError(t, r.Create(ctx, second))
	first.Items[0].Quantity = 99

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)

	_, err = r.Get(ctx, "zzz")
	require.ErrorIs(t, err, order.ErrNotFound)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	r := NewCouponRepository(coupon.Rule{Code: "once", DiscountType: coupon.DiscountFixed, MaxUses: 1})

	rule, err := r.FindByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, "ONCE", rule.Code)

	_, err = r.FindByCode(ctx, "never")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	require.NoError(t, r.IncrementUses(ctx, "once"))
	require.ErrorIs(t, r.IncrementUses(ctx, "once"), coupon.ErrCouponUsageLimitReached)

	// Re-seeding keeps the use count.
	r.Upsert(coupon.Rule{Code: "ONCE", DiscountType: coupon.DiscountFixed, MaxUses: 2})
	rule, err = r.FindByCode(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Uses)
	assert.Equal(t, 2, rule.MaxUses)

	require.NoError(t, r.DecrementUses(ctx, "once"))
	require.NoError(t, r.DecrementUses(ctx, "once"), "no uses left to give back")
	rule, err = r.FindByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Zero(t, rule.Uses)
	require.ErrorIs(t, r.DecrementUses(ctx, "never"), coupon.ErrInvalidCoupon)
}

func TestCouponRepository_WithValidator(t *testing.T) {
	ctx := context.Background()
	r := NewCouponRepository(coupon.Rule{
		Code:         "SAVE5",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(5),
		MaxUses:      1,
	})
	v := coupon.NewRepoValidator(r)
	basket := []coupon.Item{{ProductID: 1, Price: decimal.NewFromInt(20), Quantity: 1}}

	d, err := v.Validate(ctx, "save5", basket)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(d.Amount))

	_, err = v.Validate(ctx, "save5", basket)
	require.ErrorIs(t, err, coupon.ErrCouponUsageLimitReached)
}
