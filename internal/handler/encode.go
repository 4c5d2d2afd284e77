package handler

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// Money is written as a JSON string with two decimals so clients never see
// binary floating point.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(p.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("thumbnail", func(e *jx.Encoder) { e.Str(p.Thumbnail) })
		e.Field("images", func(e *jx.Encoder) { encodeStrings(e, p.Images) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	})
}

func encodeProducts(e *jx.Encoder, ps []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range ps {
			encodeProduct(e, p)
		}
	})
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.Arr(func(e *jx.Encoder) {
		for _, s := range ss {
			e.Str(s)
		}
	})
}

func encodeInts(e *jx.Encoder, ns []int) {
	e.Arr(func(e *jx.Encoder) {
		for _, n := range ns {
			e.Int(n)
		}
	})
}

func encodeSnapshot(e *jx.Encoder, s catalog.Snapshot, canLoadMore bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) { encodeProducts(e, s.Products) })
		e.Field("mode", func(e *jx.Encoder) { e.Str(string(s.Mode)) })
		if s.Category != "" {
			e.Field("category", func(e *jx.Encoder) { e.Str(s.Category) })
		}
		if s.Query != "" {
			e.Field("query", func(e *jx.Encoder) { e.Str(s.Query) })
		}
		e.Field("skip", func(e *jx.Encoder) { e.Int(s.Skip) })
		e.Field("total", func(e *jx.Encoder) { e.Int(s.Total) })
		e.Field("loading", func(e *jx.Encoder) { e.Bool(s.Loading) })
		e.Field("can_load_more", func(e *jx.Encoder) { e.Bool(canLoadMore) })
	})
}

func encodeCart(e *jx.Encoder, entries []cart.Entry, total decimal.Decimal, count int) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range entries {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product", func(e *jx.Encoder) { encodeProduct(e, it.Product) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("line_total", func(e *jx.Encoder) { encodeMoney(e, it.LineTotal()) })
					})
				}
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(count) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, total) })
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Int(it.ProductID) })
						e.Field("title", func(e *jx.Encoder) { e.Str(it.Title) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, o.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, o.Discount) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total) })
		if o.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		e.Field("address", func(e *jx.Encoder) { e.Str(o.Address) })
		e.Field("payment_method", func(e *jx.Encoder) { e.Str(string(o.PaymentMethod)) })
		e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(timeFormat)) })
	})
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"
