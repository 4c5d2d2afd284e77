package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

func (h *Handler) writeCart(w http.ResponseWriter) {
	var e jx.Encoder
	encodeCart(&e, h.cart.Entries(), h.cart.Total(), h.cart.Count())
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	h.writeCart(w)
}

// addToCart fetches the product unless the cart already holds it.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	entry, ok := h.cart.Entry(id)
	p := entry.Product
	if !ok {
		fetched, err := h.products.Get(r.Context(), id)
		if err != nil {
			fail(w, r, err)
			return
		}
		p = *fetched
	}
	h.cart.Add(r.Context(), p)
	h.writeCart(w)
}

// removeFromCart decrements the line, or drops it with ?all=true. Removing a
// product that is not in the cart changes nothing.
func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if entry, ok := h.cart.Entry(id); ok {
		if r.URL.Query().Get("all") == "true" {
			h.cart.RemoveAll(r.Context(), entry.Product)
		} else {
			h.cart.Remove(r.Context(), entry.Product)
		}
	}
	h.writeCart(w)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	h.writeCart(w)
}

func (h *Handler) getFavorites(w http.ResponseWriter, _ *http.Request) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("ids", func(e *jx.Encoder) { encodeInts(e, h.favorites.IDs()) })
	})
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	favorite := h.favorites.ToggleID(r.Context(), id)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(id) })
		e.Field("favorite", func(e *jx.Encoder) { e.Bool(favorite) })
		e.Field("ids", func(e *jx.Encoder) { encodeInts(e, h.favorites.IDs()) })
	})
	writeJSON(w, http.StatusOK, &e)
}
