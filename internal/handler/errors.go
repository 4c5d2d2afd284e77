package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// errBadRequest marks malformed input.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return errors.Wrap(errBadRequest, msg)
}

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	var netErr *product.NetworkError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, product.ErrNotFound), errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrAddressRequired),
		errors.Is(err, order.ErrUnknownPaymentMethod),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Internal errors are logged and not
// echoed to the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
