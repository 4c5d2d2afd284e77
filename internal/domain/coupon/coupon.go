// Package coupon computes checkout discounts from promo code rules.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType selects how a rule turns a basket into a discount.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a flat amount off, never more than the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest makes one unit of the cheapest product free.
	DiscountFreeLowest DiscountType = "free_lowest"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed, DiscountFreeLowest:
		return true
	}
	return false
}

var (
	// ErrInvalidCoupon covers unknown codes and baskets below the rule's
	// minimum item count.
	ErrInvalidCoupon           = errors.New("invalid coupon code")
	ErrCouponExpired           = errors.New("coupon expired")
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule is a promo code definition.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	// MaxUses of zero means unlimited.
	MaxUses int
	Uses    int
	// MaxDiscount caps the computed amount when positive.
	MaxDiscount decimal.Decimal
}

// Active reports whether now falls inside the rule's validity window.
func (r *Rule) Active(now time.Time) bool {
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the rule has no uses left.
func (r *Rule) Exhausted() bool {
	return r.MaxUses > 0 && r.Uses >= r.MaxUses
}

// Discount is the amount a rule takes off a basket.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Item is one basket line as seen by the discount rules.
type Item struct {
	ProductID int
	Price     decimal.Decimal
	Quantity  int
}

// Repository stores coupon rules by code.
type Repository interface {
	// FindByCode returns ErrInvalidCoupon when code is unknown.
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
	// DecrementUses gives back one counted use, never going below zero.
	DecrementUses(ctx context.Context, code string) error
}

// NormalizeCode canonicalizes a user-entered code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
