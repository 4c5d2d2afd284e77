package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

func (h *Handler) writeSnapshot(w http.ResponseWriter, status int) {
	var e jx.Encoder
	encodeSnapshot(&e, h.catalog.Snapshot(), h.catalog.CanLoadMore())
	writeJSON(w, status, &e)
}

func (h *Handler) getProducts(w http.ResponseWriter, _ *http.Request) {
	h.writeSnapshot(w, http.StatusOK)
}

func (h *Handler) resetProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.ResetAndFetchFirstPage(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

// nextProducts is a no-op returning the current state when nothing more can
// be loaded.
func (h *Handler) nextProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.FetchNextPage(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

func (h *Handler) productsByCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.FetchByCategory(r.Context(), chi.URLParam(r, "name")); err != nil {
		fail(w, r, err)
		return
	}
	h.writeSnapshot(w, http.StatusOK)
}

// setSearch schedules a debounced search. The response is the state before
// the search settles.
func (h *Handler) setSearch(w http.ResponseWriter, r *http.Request) {
	var (
		query string
		found bool
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "query" {
			return d.Skip()
		}
		found = true
		var err error
		query, err = d.Str()
		return err
	})
	if err == nil && !found {
		err = badRequest("query is required")
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	h.catalog.SetSearchQuery(query)
	h.writeSnapshot(w, http.StatusAccepted)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.LoadCategories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeStrings(&e, categories)
	writeJSON(w, http.StatusOK, &e)
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, badRequest("invalid product id")
	}
	return id, nil
}

// decodeBody walks the top-level fields of a JSON object body.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(r.Body, 512)
	if err := d.Obj(field); err != nil {
		return badRequest("malformed body: " + err.Error())
	}
	return nil
}
