// Package catalog holds the browsing state over the remote product catalog:
// the accumulated product list, the active category or search query and the
// pagination cursor.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/notify"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// ErrBusy is returned when a fetch is already in flight. The rejected call
// changes nothing.
var ErrBusy = errors.New("catalog fetch in progress")

const (
	DefaultPageSize = 10
	DefaultDebounce = 500 * time.Millisecond
)

// Mode tells which query produced the current product list.
type Mode string

const (
	ModeListing  Mode = "listing"
	ModeCategory Mode = "category"
	ModeSearch   Mode = "search"
)

// Options tunes a State. Zero values select the defaults.
type Options struct {
	PageSize int
	Debounce time.Duration
}

// Snapshot is a copy of the observable catalog state.
type Snapshot struct {
	Products   []product.Product
	Mode       Mode
	Category   string
	Query      string
	Skip       int
	Total      int
	Loading    bool
	Categories []string
}

// Event is published whenever the state changes. Err is set when the change
// was a failed fetch.
type Event struct {
	State Snapshot
	Err   error
	// Skipped marks a settled query that fetched nothing: it repeated the
	// previous settled query, or a fetch was in flight and Err is ErrBusy.
	Skipped bool
}

// State sequences catalog fetches. At most one fetch runs at a time.
type State struct {
	client   product.Catalog
	lg       *zap.Logger
	pageSize int
	debounce time.Duration

	// Base context for debounced searches, canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	products    []product.Product
	mode        Mode
	category    string
	query       string
	lastSettled string
	skip        int
	total       int
	loading     bool
	categories  []string
	timer       *time.Timer
	gen         uint64
	closed      bool

	hub notify.Hub[Event]
}

// New creates an empty State. Nothing is fetched until the first call.
func New(ctx context.Context, client product.Catalog, lg *zap.Logger, opts Options) *State {
	if lg == nil {
		lg = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(ctx)
	return &State{
		client:   client,
		lg:       lg.Named("catalog"),
		pageSize: opts.PageSize,
		debounce: opts.Debounce,
		ctx:      ctx,
		cancel:   cancel,
		mode:     ModeListing,
	}
}

// PageSize returns the listing page size.
func (s *State) PageSize() int { return s.pageSize }

// Subscribe registers fn for state change events.
func (s *State) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// ResetAndFetchFirstPage drops the accumulated list, the active category and
// the cursor, then loads the first listing page. The cleared state stays if
// the fetch fails.
func (s *State) ResetAndFetchFirstPage(ctx context.Context) error {
	return s.reset(ctx, nil)
}

// FetchNextPage appends the next listing page. It does nothing outside listing
// mode or when everything has been loaded.
func (s *State) FetchNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		s.lg.Debug("Rejected next page fetch", zap.String("reason", "busy"))
		return ErrBusy
	}
	if !s.canLoadMore() {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	skip := s.skip
	ev := s.event(nil)
	s.mu.Unlock()
	s.hub.Publish(ev)

	page, err := s.client.List(ctx, s.pageSize, skip)
	if err != nil {
		return s.fail("next page", err)
	}

	s.mu.Lock()
	s.loading = false
	s.products = appendUnique(s.products, page.Products, page.Total)
	s.skip = skip + s.pageSize
	s.total = page.Total
	ev = s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
	return nil
}

// FetchByCategory replaces the list with the products of category name. The
// listing cursor is kept so a later reset starts clean. An empty name resets
// to the unfiltered listing.
func (s *State) FetchByCategory(ctx context.Context, name string) error {
	if name == "" {
		return s.ResetAndFetchFirstPage(ctx)
	}
	if err := s.begin(nil, false); err != nil {
		s.lg.Debug("Rejected category fetch", zap.String("category", name))
		return err
	}

	page, err := s.client.ByCategory(ctx, name)
	if err != nil {
		return s.fail("category", err)
	}

	s.mu.Lock()
	s.loading = false
	s.products = appendUnique(nil, page.Products, len(page.Products))
	s.mode = ModeCategory
	s.category = name
	ev := s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
	return nil
}

// SetSearchQuery records text and schedules a search once the query has been
// stable for the debounce interval. A settled empty query resets the listing.
// A settled query equal to the previous settled one is ignored.
func (s *State) SetSearchQuery(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.query = text
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.settle(gen) })
	ev := s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
}

// CanLoadMore reports whether FetchNextPage would fetch anything.
func (s *State) CanLoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canLoadMore()
}

// LoadCategories fetches the category list. A failure leaves the list empty.
func (s *State) LoadCategories(ctx context.Context) ([]string, error) {
	cats, err := s.client.Categories(ctx)

	s.mu.Lock()
	if err != nil {
		s.categories = nil
	} else {
		s.categories = cats
	}
	ev := s.event(err)
	s.mu.Unlock()
	s.hub.Publish(ev)

	if err != nil {
		s.lg.Warn("Failed to load categories", zap.Error(err))
		return nil, errors.Wrap(err, "load categories")
	}
	return append([]string(nil), cats...), nil
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Close stops any pending debounced search.
func (s *State) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *State) settle(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	q := strings.TrimSpace(s.query)
	if q == s.lastSettled {
		ev := s.event(nil)
		ev.Skipped = true
		s.mu.Unlock()
		s.hub.Publish(ev)
		return
	}
	s.mu.Unlock()

	var err error
	if q == "" {
		err = s.reset(s.ctx, &q)
	} else {
		err = s.search(s.ctx, q)
	}
	switch {
	case errors.Is(err, ErrBusy):
		s.lg.Debug("Dropped settled search", zap.String("query", q))
		s.hub.Publish(Event{State: s.Snapshot(), Err: err, Skipped: true})
	case err != nil:
		s.lg.Warn("Search failed", zap.String("query", q), zap.Error(err))
	}
}

func (s *State) reset(ctx context.Context, settled *string) error {
	if err := s.begin(settled, true); err != nil {
		s.lg.Debug("Rejected reset", zap.String("reason", "busy"))
		return err
	}

	page, err := s.client.List(ctx, s.pageSize, 0)
	if err != nil {
		return s.fail("first page", err)
	}

	s.mu.Lock()
	s.loading = false
	s.products = appendUnique(nil, page.Products, page.Total)
	s.skip = s.pageSize
	s.total = page.Total
	ev := s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
	return nil
}

func (s *State) search(ctx context.Context, q string) error {
	if err := s.begin(&q, false); err != nil {
		return err
	}

	page, err := s.client.Search(ctx, q)
	if err != nil {
		return s.fail("search", err)
	}

	s.mu.Lock()
	s.loading = false
	s.products = appendUnique(nil, page.Products, len(page.Products))
	s.mode = ModeSearch
	s.category = ""
	ev := s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
	return nil
}

// begin claims the in-flight flag. settled, when set, is recorded as the last
// settled query once the claim succeeds. restart empties the list and returns to
// the unfiltered listing at cursor zero.
func (s *State) begin(settled *string, restart bool) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	if settled != nil {
		s.lastSettled = *settled
	}
	if restart {
		s.products = nil
		s.mode = ModeListing
		s.category = ""
		s.skip = 0
		s.total = 0
	}
	ev := s.event(nil)
	s.mu.Unlock()

	s.hub.Publish(ev)
	return nil
}

// fail releases the in-flight flag, leaving the accumulated state as it was.
func (s *State) fail(op string, err error) error {
	s.mu.Lock()
	s.loading = false
	ev := s.event(err)
	s.mu.Unlock()

	s.lg.Warn("Catalog fetch failed", zap.String("op", op), zap.Error(err))
	s.hub.Publish(ev)
	return errors.Wrapf(err, "fetch %s", op)
}

func (s *State) canLoadMore() bool {
	return s.mode == ModeListing && len(s.products) < s.total && s.skip < s.total
}

func (s *State) event(err error) Event {
	return Event{State: s.snapshot(), Err: err}
}

func (s *State) snapshot() Snapshot {
	return Snapshot{
		Products:   append([]product.Product(nil), s.products...),
		Mode:       s.mode,
		Category:   s.category,
		Query:      s.query,
		Skip:       s.skip,
		Total:      s.total,
		Loading:    s.loading,
		Categories: append([]string(nil), s.categories...),
	}
}

// appendUnique appends the products of page not already in dst, keeping the
// result at most limit long.
func appendUnique(dst, page []product.Product, limit int) []product.Product {
	seen := make(map[int]struct{}, len(dst)+len(page))
	for _, p := range dst {
		seen[p.ID] = struct{}{}
	}
	for _, p := range page {
		if len(dst) >= limit {
			break
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
