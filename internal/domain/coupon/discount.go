package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply computes the discount rule grants for items. Amounts are rounded to
// cents and never negative. ErrInvalidCoupon is returned when the basket holds
// fewer than MinItems units.
func Apply(rule *Rule, items []Item) (Discount, error) {
	if rule.MinItems > 0 && quantity(items) < rule.MinItems {
		return Discount{}, ErrInvalidCoupon
	}

	var amount decimal.Decimal
	switch rule.DiscountType {
	case DiscountPercentage:
		amount = subtotal(items).Mul(rule.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(rule.Value, subtotal(items))
	case DiscountFreeLowest:
		amount = lowestPrice(items)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}

	if rule.MaxDiscount.IsPositive() {
		amount = decimal.Min(amount, rule.MaxDiscount)
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Discount{
		Code:        rule.Code,
		Amount:      amount.Round(2),
		Description: rule.Description,
	}, nil
}

func subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func quantity(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// lowestPrice returns the cheapest unit price, zero for an empty basket.
func lowestPrice(items []Item) decimal.Decimal {
	if len(items) == 0 {
		return decimal.Zero
	}
	lowest := items[0].Price
	for _, it := range items[1:] {
		if it.Price.LessThan(lowest) {
			lowest = it.Price
		}
	}
	return lowest
}
