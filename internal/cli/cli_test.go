package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDummyJSON serves 25 products; even ids are groceries, odd ids beauty.
func newDummyJSON(t *testing.T) *httptest.Server {
	t.Helper()
	product := func(id int) string {
		category := "beauty"
		if id%2 == 0 {
			category = "groceries"
		}
		return fmt.Sprintf(`{"id":%d,"title":"Item %d","price":"%d.25","category":%q}`, id, id, id, category)
	}
	page := func(w http.ResponseWriter, ids []int, total, skip, limit int) {
		items := make([]string, len(ids))
		for i, id := range ids {
			items[i] = product(id)
		}
		fmt.Fprintf(w, `{"products":[%s],"total":%d,"skip":%d,"limit":%d}`, strings.Join(items, ","), total, skip, limit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		var ids []int
		for id := skip + 1; id <= min(skip+limit, 25); id++ {
			ids = append(ids, id)
		}
		page(w, ids, 25, skip, limit)
	})
	mux.HandleFunc("GET /products/search", func(w http.ResponseWriter, r *http.Request) {
		var ids []int
		for id := 1; id <= 25; id++ {
			if strings.Contains(fmt.Sprintf("item %d", id), strings.ToLower(r.URL.Query().Get("q"))) {
				ids = append(ids, id)
			}
		}
		page(w, ids, len(ids), 0, len(ids))
	})
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"slug":"beauty","name":"Beauty"},{"slug":"groceries","name":"Groceries"}]`)
	})
	mux.HandleFunc("GET /products/category/{name}", func(w http.ResponseWriter, r *http.Request) {
		want := 1
		if r.PathValue("name") == "groceries" {
			want = 0
		}
		var ids []int
		for id := 1; id <= 25; id++ {
			if id%2 == want {
				ids = append(ids, id)
			}
		}
		page(w, ids, len(ids), 0, len(ids))
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil || id < 1 || id > 25 {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, product(id))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t      *testing.T
	global []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	coupons := filepath.Join(dir, "coupons.yaml")
	require.NoError(t, os.WriteFile(coupons, []byte(`
coupons:
  - code: HALF
    type: percentage
    value: "50"
`), 0o600))
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf(`
search:
  debounce: 5ms
coupons:
  file: %s
`, coupons)), 0o600))

	srv := newDummyJSON(t)
	return &harness{t: t, global: []string{
		"--config", config,
		"--storage", "bolt",
		"--db", filepath.Join(dir, "storefront.db"),
		"--catalog", srv.URL,
	}}
}

// run executes one invocation with a fresh command tree, as separate
// processes would.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, h.global...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestProducts(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("products")
	assert.Contains(t, out, "Item 10")
	assert.NotContains(t, out, "Item 11")
	assert.Contains(t, out, "Showing 10 of 25 (use --pages to load more)")

	out = h.mustRun("products", "--pages", "3")
	assert.Contains(t, out, "Item 25")
	assert.Contains(t, out, "Showing 25 of 25\n")

	out = h.mustRun("products", "--category", "groceries")
	assert.Contains(t, out, "12 products in groceries")
	assert.NotContains(t, out, "Item 1 ")

	out = h.mustRun("products", "--search", "item 2")
	assert.Contains(t, out, `7 results for "item 2"`)

	_, err := h.run("products", "--search", "x", "--category", "beauty")
	require.Error(t, err)

	_, err = h.run("products", "--search", "   ")
	require.ErrorContains(t, err, "blank")

	out = h.mustRun("categories")
	assert.Equal(t, "beauty\ngroceries\n", out)
}

func TestCartAndCheckout(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("cart", "add", "4", "4", "6")
	assert.Contains(t, out, "3 items, total $14.75")

	out = h.mustRun("cart", "show")
	assert.Contains(t, out, "3 items, total $14.75", "cart survives between runs")

	out = h.mustRun("cart", "remove", "4")
	assert.Contains(t, out, "2 items, total $10.50")

	out = h.mustRun("cart", "remove", "9")
	assert.Contains(t, out, "Product 9 is not in the cart.")

	out = h.mustRun("products")
	assert.Regexp(t, `4\s+Item 4\s+groceries\s+\$4\.25\s+1`, out)

	_, err := h.run("cart", "add", "abc")
	require.ErrorContains(t, err, `invalid product id "abc"`)
	_, err = h.run("cart", "add", "99")
	require.ErrorContains(t, err, "not found")

	_, err = h.run("checkout", "--address", "1 Main St", "--payment", "cheque")
	require.ErrorContains(t, err, "unknown payment method")
	_, err = h.run("checkout", "--address", "1 Main St", "--payment", "upi", "--coupon", "NOPE")
	require.ErrorContains(t, err, "invalid coupon")

	out = h.mustRun("checkout", "--address", "1 Main St", "--payment", "Cash on Delivery", "--coupon", "half")
	assert.Contains(t, out, "Subtotal: $10.50")
	assert.Contains(t, out, "Discount (HALF): -$5.25")
	assert.Contains(t, out, "Total: $5.25")
	assert.Contains(t, out, "Pay by Cash on Delivery, deliver to 1 Main St")

	out = h.mustRun("cart")
	assert.Contains(t, out, "Your cart is empty.")

	_, err = h.run("checkout", "--address", "1 Main St", "--payment", "upi")
	require.ErrorContains(t, err, "cart is empty")

	out = h.mustRun("orders")
	assert.Contains(t, out, "$5.25")
	assert.Contains(t, out, "Cash on Delivery")

	h.mustRun("cart", "add", "1", "1")
	out = h.mustRun("cart", "remove-all", "1")
	assert.Contains(t, out, "Your cart is empty.")
	h.mustRun("cart", "add", "3")
	out = h.mustRun("cart", "clear")
	assert.Contains(t, out, "Your cart is empty.")
}

func TestFavorites(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("favorites", "list")
	assert.Contains(t, out, "No favorites yet.")

	out = h.mustRun("favorites", "toggle", "7", "3")
	assert.Contains(t, out, "Product 7 added to favorites.")

	out = h.mustRun("fav", "toggle", "7")
	assert.Contains(t, out, "Product 7 removed from favorites.")

	out = h.mustRun("favorites", "list")
	assert.Equal(t, "3\n", out)

	out = h.mustRun("products")
	assert.Regexp(t, `3\s+Item 3\s+beauty\s+\$3\.25\s+\*`, out)
}

func TestHelpDoesNotOpenStorage(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"help", "--storage", "postgres"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "checkout")
}
