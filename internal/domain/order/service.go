package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
)

// Cart is the part of the cart store checkout needs.
type Cart interface {
	Entries() []cart.Entry
	Clear(ctx context.Context)
}

// PlaceOrderRequest is the checkout form.
type PlaceOrderRequest struct {
	Address       string
	PaymentMethod PaymentMethod
	CouponCode    string
}

// Service places orders.
type Service struct {
	cart    Cart
	coupons coupon.Validator
	orders  Repository
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates an order Service. coupons may be nil, in which case any
// coupon code is rejected.
func NewService(c Cart, coupons coupon.Validator, orders Repository, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		cart:    c,
		coupons: coupons,
		orders:  orders,
		lg:      lg.Named("order"),
		now:     time.Now,
	}
}

// PlaceOrder validates the form, prices the cart, redeems the coupon, stores
// the order and empties the cart. The cart is left untouched on any error, and
// a redeemed coupon use is released when the order cannot be stored.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	entries := s.cart.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, ErrAddressRequired
	}
	if _, ok := paymentLabels[req.PaymentMethod]; !ok {
		return nil, errors.Wrapf(ErrUnknownPaymentMethod, "%q", req.PaymentMethod)
	}

	items := make([]Item, len(entries))
	basket := make([]coupon.Item, len(entries))
	subtotal := decimal.Zero
	for i, e := range entries {
		items[i] = Item{
			ProductID: e.Product.ID,
			Title:     e.Product.Title,
			Price:     e.Product.Price,
			Quantity:  e.Quantity,
		}
		basket[i] = coupon.Item{
			ProductID: e.Product.ID,
			Price:     e.Product.Price,
			Quantity:  e.Quantity,
		}
		subtotal = subtotal.Add(e.LineTotal())
	}

	discount := decimal.Zero
	code := coupon.NormalizeCode(req.CouponCode)
	if code != "" {
		if s.coupons == nil {
			return nil, coupon.ErrInvalidCoupon
		}
		d, err := s.coupons.Validate(ctx, code, basket)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		discount = d.Amount
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:            uuid.New().String(),
		Items:         items,
		Subtotal:      subtotal.Round(2),
		Discount:      discount.Round(2),
		Total:         total.Round(2),
		CouponCode:    code,
		Address:       address,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if code != "" {
			if rerr := s.coupons.Release(context.WithoutCancel(ctx), code); rerr != nil {
				s.lg.Error("Failed to release coupon use",
					zap.String("coupon", code),
					zap.Error(rerr),
				)
			}
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.cart.Clear(ctx)
	s.lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.Int("lines", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)),
		zap.String("payment_method", string(o.PaymentMethod)),
	)
	return o, nil
}

// Orders lists placed orders, newest first.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	list, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return list, nil
}
