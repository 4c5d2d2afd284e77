package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
	"github.com/raj-engineer/EcomApp/internal/domain/favorites"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printProducts marks favorites with * and shows the cart quantity.
func printProducts(w io.Writer, ps []product.Product, favs *favorites.Store, c *cart.Store) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tFAV\tIN CART")
	for _, p := range ps {
		fav := ""
		if favs.IsFavorite(p) {
			fav = "*"
		}
		qty := ""
		if e, ok := c.Entry(p.ID); ok {
			qty = fmt.Sprint(e.Quantity)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t$%s\t%s\t%s\n", p.ID, p.Title, p.Category, p.Price.StringFixed(2), fav, qty)
	}
	_ = tw.Flush()
}

func printListingFooter(w io.Writer, snap catalog.Snapshot, more bool) {
	switch snap.Mode {
	case catalog.ModeSearch:
		fmt.Fprintf(w, "\n%d results for %q\n", len(snap.Products), snap.Query)
	case catalog.ModeCategory:
		fmt.Fprintf(w, "\n%d products in %s\n", len(snap.Products), snap.Category)
	default:
		fmt.Fprintf(w, "\nShowing %d of %d", len(snap.Products), snap.Total)
		if more {
			fmt.Fprint(w, " (use --pages to load more)")
		}
		fmt.Fprintln(w)
	}
}

func printCart(w io.Writer, c *cart.Store) {
	entries := c.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tQTY\tLINE TOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t$%s\t%d\t$%s\n",
			e.Product.ID, e.Product.Title, e.Product.Price.StringFixed(2), e.Quantity, e.LineTotal().StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d items, total $%s\n", c.Count(), c.Total().StringFixed(2))
}

func printOrder(w io.Writer, o *order.Order) {
	fmt.Fprintf(w, "Order %s placed %s\n", o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"))
	tw := newTable(w)
	for _, it := range o.Items {
		fmt.Fprintf(tw, "  %s\tx%d\t$%s\n", it.Title, it.Quantity, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Subtotal: $%s\n", o.Subtotal.StringFixed(2))
	if o.CouponCode != "" {
		fmt.Fprintf(w, "Discount (%s): -$%s\n", o.CouponCode, o.Discount.StringFixed(2))
	}
	fmt.Fprintf(w, "Total: $%s\n", o.Total.StringFixed(2))
	fmt.Fprintf(w, "Pay by %s, deliver to %s\n", o.PaymentMethod.Label(), o.Address)
}
