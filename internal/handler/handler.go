// Package handler exposes the storefront over a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raj-engineer/EcomApp/internal/domain/cart"
	"github.com/raj-engineer/EcomApp/internal/domain/catalog"
	"github.com/raj-engineer/EcomApp/internal/domain/favorites"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// Handler serves the storefront API. All clients share one catalog state,
// cart and favorites set.
type Handler struct {
	products  product.Catalog
	catalog   *catalog.State
	cart      *cart.Store
	favorites *favorites.Store
	orders    *order.Service
	guard     func(http.Handler) http.Handler
}

// Deps are the stores a Handler delegates to.
type Deps struct {
	Products  product.Catalog
	Catalog   *catalog.State
	Cart      *cart.Store
	Favorites *favorites.Store
	Orders    *order.Service
}

// NewHandler creates a Handler. Mutating routes are wrapped with guard when it
// is non-nil.
func NewHandler(d Deps, guard func(http.Handler) http.Handler) *Handler {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		products:  d.Products,
		catalog:   d.Catalog,
		cart:      d.Cart,
		favorites: d.Favorites,
		orders:    d.Orders,
		guard:     guard,
	}
}

// Routes returns the API router. Paths are relative to the mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/products", h.getProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/categories", h.getCategories)
	r.Get("/cart", h.getCart)
	r.Get("/favorites", h.getFavorites)
	r.Get("/orders", h.getOrders)

	r.Group(func(r chi.Router) {
		r.Use(h.guard)

		r.Post("/products/reset", h.resetProducts)
		r.Post("/products/next", h.nextProducts)
		r.Post("/products/category/{name}", h.productsByCategory)
		r.Put("/search", h.setSearch)

		r.Post("/cart/items/{id}", h.addToCart)
		r.Delete("/cart/items/{id}", h.removeFromCart)
		r.Delete("/cart", h.clearCart)

		r.Post("/favorites/{id}/toggle", h.toggleFavorite)

		r.Post("/checkout", h.checkout)
	})
	return r
}
