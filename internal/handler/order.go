package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/raj-engineer/EcomApp/internal/domain/order"
)

// checkout places an order from the cart. Body:
// {"address": "...", "payment_method": "upi", "coupon_code": "SAVE10"}.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var (
		req    order.PlaceOrderRequest
		method string
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			req.Address, err = d.Str()
		case "payment_method":
			method, err = d.Str()
		case "coupon_code":
			if d.Next() == jx.Null {
				return d.Null()
			}
			req.CouponCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if req.PaymentMethod, err = order.ParsePaymentMethod(method); err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, *o)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) getOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.Orders(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, o := range list {
			encodeOrder(e, o)
		}
	})
	writeJSON(w, http.StatusOK, &e)
}
