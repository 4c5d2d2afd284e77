// Package order places checkout orders from the cart contents.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrAddressRequired      = errors.New("delivery address required")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrNotFound             = errors.New("order not found")
)

// PaymentMethod is how the customer pays at checkout.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentDebitCard      PaymentMethod = "debit_card"
	PaymentUPI            PaymentMethod = "upi"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentUPI,
	PaymentCashOnDelivery,
}

var paymentLabels = map[PaymentMethod]string{
	PaymentCreditCard:     "Credit Card",
	PaymentDebitCard:      "Debit Card",
	PaymentUPI:            "UPI",
	PaymentCashOnDelivery: "Cash on Delivery",
}

// Label returns the human readable name of m.
func (m PaymentMethod) Label() string {
	if l, ok := paymentLabels[m]; ok {
		return l
	}
	return string(m)
}

// ParsePaymentMethod accepts either the identifier ("cash_on_delivery") or the
// label ("Cash on Delivery"), case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	for _, m := range PaymentMethods {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, m.Label()) {
			return m, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownPaymentMethod, "%q", s)
}

// Order is a placed order.
type Order struct {
	ID            string          `json:"id"`
	Items         []Item          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Address       string          `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Item is an order line, priced at the time the order was placed.
type Item struct {
	ProductID int             `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders newest first.
	List(ctx context.Context) ([]Order, error)
}
