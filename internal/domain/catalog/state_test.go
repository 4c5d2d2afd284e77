package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// --- Mock implementations ---

type mockCatalog struct {
	mu sync.Mutex

	all        []product.Product
	byCategory map[string][]product.Product
	categories []string

	listErr   error
	searchErr error
	catErr    error

	// When set, List blocks until the channel is closed.
	block chan struct{}

	listCalls []int // skips
	searches  []string
}

func newMockCatalog(n int) *mockCatalog {
	all := make([]product.Product, n)
	for i := range all {
		all[i] = product.Product{
			ID:       i + 1,
			Title:    fmt.Sprintf("Product %d", i+1),
			Price:    decimal.NewFromInt(int64(i + 1)),
			Category: "beauty",
		}
	}
	return &mockCatalog{all: all, byCategory: make(map[string][]product.Product)}
}

func (m *mockCatalog) List(ctx context.Context, limit, skip int) (*product.Page, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, skip)
	block := m.block
	err := m.listErr
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	end := min(skip+limit, len(m.all))
	start := min(skip, end)
	return &product.Page{
		Products: append([]product.Product(nil), m.all[start:end]...),
		Total:    len(m.all),
		Skip:     skip,
		Limit:    limit,
	}, nil
}

func (m *mockCatalog) Search(_ context.Context, query string) (*product.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []product.Product
	for _, p := range m.all {
		if p.ID%2 == 0 {
			out = append(out, p)
		}
	}
	return &product.Page{Products: out, Total: len(out), Limit: len(out)}, nil
}

func (m *mockCatalog) ByCategory(_ context.Context, category string) (*product.Page, error) {
	if m.catErr != nil {
		return nil, m.catErr
	}
	ps := m.byCategory[category]
	return &product.Page{Products: ps, Total: len(ps), Limit: len(ps)}, nil
}

func (m *mockCatalog) Categories(_ context.Context) ([]string, error) {
	if m.catErr != nil {
		return nil, m.catErr
	}
	return m.categories, nil
}

func (m *mockCatalog) Get(_ context.Context, id int) (*product.Product, error) {
	for _, p := range m.all {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockCatalog) searchCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searches...)
}

// --- Helpers ---

func newTestState(t *testing.T, c product.Catalog, debounce time.Duration) *State {
	t.Helper()
	s := New(context.Background(), c, nil, Options{PageSize: 10, Debounce: debounce})
	t.Cleanup(s.Close)
	return s
}

func ids(ps []product.Product) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

// --- Tests ---

func TestState_ResetAndPaginate(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	s := newTestState(t, c, time.Hour)

	assert.False(t, s.CanLoadMore(), "nothing known before the first page")

	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	snap := s.Snapshot()
	assert.Len(t, snap.Products, 10)
	assert.Equal(t, 10, snap.Skip)
	assert.Equal(t, 25, snap.Total)
	assert.Equal(t, ModeListing, snap.Mode)
	assert.True(t, s.CanLoadMore())

	require.NoError(t, s.FetchNextPage(ctx))
	require.NoError(t, s.FetchNextPage(ctx))
	assert.False(t, s.CanLoadMore())

	snap = s.Snapshot()
	require.Len(t, snap.Products, 25)
	for i, p := range snap.Products {
		assert.Equal(t, i+1, p.ID)
	}

	// Exhausted listing: no further call.
	require.NoError(t, s.FetchNextPage(ctx))
	assert.Equal(t, []int{0, 10, 20}, c.listCalls)
}

func TestState_AccumulatesWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(15)
	s := New(ctx, c, nil, Options{PageSize: 10, Debounce: time.Hour})
	defer s.Close()

	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	// Insert items upstream so the next page repeats ones already loaded.
	c.all = append(c.all[:10:10], c.all[5:]...)

	for s.CanLoadMore() {
		require.NoError(t, s.FetchNextPage(ctx))
	}

	snap := s.Snapshot()
	assert.LessOrEqual(t, len(snap.Products), snap.Total)
	seen := make(map[int]bool)
	for _, p := range snap.Products {
		assert.False(t, seen[p.ID], "duplicate product %d", p.ID)
		seen[p.ID] = true
	}
}

func TestState_BusyRejectsOverlappingFetch(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	s := newTestState(t, c, time.Hour)
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))

	c.mu.Lock()
	c.block = make(chan struct{})
	c.mu.Unlock()

	started := make(chan struct{})
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.State.Loading {
			select {
			case <-started:
			default:
				close(started)
			}
		}
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- s.FetchNextPage(ctx) }()
	<-started

	before := s.Snapshot()
	assert.True(t, before.Loading)
	require.ErrorIs(t, s.FetchNextPage(ctx), ErrBusy)
	require.ErrorIs(t, s.ResetAndFetchFirstPage(ctx), ErrBusy)
	require.ErrorIs(t, s.FetchByCategory(ctx, "beauty"), ErrBusy)
	assert.Equal(t, before, s.Snapshot())

	close(c.block)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Products, 20)
	assert.Equal(t, 20, snap.Skip)
}

func TestState_FailureLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	s := newTestState(t, c, time.Hour)
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	before := s.Snapshot()

	var lastErr error
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Err != nil {
			lastErr = ev.Err
		}
	})
	defer unsubscribe()

	netErr := &product.NetworkError{Op: "list", Status: 503, Err: errors.New("unavailable")}
	c.listErr = netErr

	err := s.FetchNextPage(ctx)
	var got *product.NetworkError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 503, got.Status)
	assert.Equal(t, netErr, lastErr)

	assert.Equal(t, before, s.Snapshot())

	// Not retried; the next explicit call succeeds.
	c.listErr = nil
	require.NoError(t, s.FetchNextPage(ctx))
	assert.Len(t, s.Snapshot().Products, 20)
}

func TestState_ResetClearsBeforeFetch(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	c.byCategory["laptops"] = []product.Product{{ID: 100}, {ID: 101}}
	s := newTestState(t, c, time.Hour)
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	require.NoError(t, s.FetchByCategory(ctx, "laptops"))

	c.mu.Lock()
	c.block = make(chan struct{})
	c.listErr = errors.New("offline")
	c.mu.Unlock()

	inFlight := make(chan Snapshot, 1)
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.State.Loading {
			select {
			case inFlight <- ev.State:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- s.ResetAndFetchFirstPage(ctx) }()

	loading := <-inFlight
	assert.Empty(t, loading.Products)
	assert.Empty(t, loading.Category)
	assert.Equal(t, ModeListing, loading.Mode)
	assert.Zero(t, loading.Skip)
	assert.Zero(t, loading.Total)

	close(c.block)
	require.ErrorContains(t, <-done, "offline")

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Products, "failed reset keeps the cleared list")
	assert.Empty(t, snap.Category)
	assert.Equal(t, ModeListing, snap.Mode)
	assert.Zero(t, snap.Skip)
	assert.False(t, s.CanLoadMore())

	c.mu.Lock()
	c.block = nil
	c.listErr = nil
	c.mu.Unlock()
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids(s.Snapshot().Products))
}

func TestState_FetchByCategory(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	c.byCategory["laptops"] = []product.Product{{ID: 100}, {ID: 101}, {ID: 100}}
	s := newTestState(t, c, time.Hour)
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))

	require.NoError(t, s.FetchByCategory(ctx, "laptops"))
	snap := s.Snapshot()
	assert.Equal(t, []int{100, 101}, ids(snap.Products))
	assert.Equal(t, ModeCategory, snap.Mode)
	assert.Equal(t, "laptops", snap.Category)
	assert.Equal(t, 10, snap.Skip, "listing cursor untouched")
	assert.False(t, s.CanLoadMore())

	// Next page is a no-op outside the listing.
	require.NoError(t, s.FetchNextPage(ctx))
	assert.Equal(t, []int{100, 101}, ids(s.Snapshot().Products))

	c.catErr = errors.New("boom")
	require.Error(t, s.FetchByCategory(ctx, "phones"))
	assert.Equal(t, "laptops", s.Snapshot().Category)

	require.NoError(t, s.ResetAndFetchFirstPage(ctx))
	snap = s.Snapshot()
	assert.Empty(t, snap.Category)
	assert.Equal(t, ModeListing, snap.Mode)
	assert.Len(t, snap.Products, 10)
}

func TestState_EmptyCategoryResets(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(5)
	s := newTestState(t, c, time.Hour)

	require.NoError(t, s.FetchByCategory(ctx, ""))
	assert.Equal(t, ModeListing, s.Snapshot().Mode)
	assert.Equal(t, []int{0}, c.listCalls)
}

func TestState_LoadCategories(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(1)
	c.categories = []string{"beauty", "laptops"}
	s := newTestState(t, c, time.Hour)

	cats, err := s.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beauty", "laptops"}, cats)
	assert.Equal(t, cats, s.Snapshot().Categories)

	c.catErr = errors.New("down")
	_, err = s.LoadCategories(ctx)
	require.Error(t, err)
	assert.Empty(t, s.Snapshot().Categories)
}

func TestState_SearchDebounceCollapsesEdits(t *testing.T) {
	c := newMockCatalog(10)
	s := newTestState(t, c, 20*time.Millisecond)

	for _, q := range []string{"p", "ph", "pho", "phone"} {
		s.SetSearchQuery(q)
	}

	require.Eventually(t, func() bool {
		return s.Snapshot().Mode == ModeSearch
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"phone"}, c.searchCalls())
	snap := s.Snapshot()
	assert.Equal(t, "phone", snap.Query)
	assert.Equal(t, []int{2, 4, 6, 8, 10}, ids(snap.Products))
}

func TestState_SearchIgnoresRepeatedSettledQuery(t *testing.T) {
	c := newMockCatalog(10)
	s := newTestState(t, c, 10*time.Millisecond)

	s.SetSearchQuery("phone")
	require.Eventually(t, func() bool {
		return len(c.searchCalls()) == 1 && !s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	s.SetSearchQuery("phone ")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"phone"}, c.searchCalls())
}

func TestState_EmptySettledQueryResets(t *testing.T) {
	c := newMockCatalog(25)
	s := newTestState(t, c, 10*time.Millisecond)

	s.SetSearchQuery("phone")
	require.Eventually(t, func() bool {
		return s.Snapshot().Mode == ModeSearch && !s.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	s.SetSearchQuery("")
	require.Eventually(t, func() bool {
		return s.Snapshot().Mode == ModeListing && len(s.Snapshot().Products) == 10
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"phone"}, c.searchCalls(), "empty query must not search")
	c.mu.Lock()
	assert.Equal(t, []int{0}, c.listCalls)
	c.mu.Unlock()
}

func TestState_InitialEmptyQueryIsIgnored(t *testing.T) {
	c := newMockCatalog(5)
	s := newTestState(t, c, 5*time.Millisecond)

	s.SetSearchQuery("")
	time.Sleep(40 * time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.listCalls)
	assert.Empty(t, c.searches)
}

func TestState_CloseStopsPendingSearch(t *testing.T) {
	c := newMockCatalog(5)
	s := New(context.Background(), c, nil, Options{Debounce: 20 * time.Millisecond})

	s.SetSearchQuery("phone")
	s.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, c.searchCalls())
}

func TestState_SearchFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	c.searchErr = &product.NetworkError{Op: "search", Err: errors.New("timeout")}
	s := newTestState(t, c, 10*time.Millisecond)
	require.NoError(t, s.ResetAndFetchFirstPage(ctx))

	failed := make(chan error, 1)
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Err != nil {
			failed <- ev.Err
		}
	})
	defer unsubscribe()

	s.SetSearchQuery("phone")

	select {
	case err := <-failed:
		var netErr *product.NetworkError
		assert.ErrorAs(t, err, &netErr)
	case <-time.After(time.Second):
		t.Fatal("search failure was not published")
	}
	snap := s.Snapshot()
	assert.Equal(t, ModeListing, snap.Mode)
	assert.Len(t, snap.Products, 10)
}

func TestState_SettledQuerySkipEvents(t *testing.T) {
	ctx := context.Background()
	c := newMockCatalog(25)
	s := newTestState(t, c, 10*time.Millisecond)

	skipped := make(chan Event, 4)
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Skipped {
			skipped <- ev
		}
	})
	defer unsubscribe()

	t.Run("repeated query", func(t *testing.T) {
		s.SetSearchQuery("phone")
		require.Eventually(t, func() bool {
			return len(c.searchCalls()) == 1 && !s.Snapshot().Loading
		}, time.Second, 5*time.Millisecond)

		s.SetSearchQuery(" phone")
		select {
		case ev := <-skipped:
			assert.NoError(t, ev.Err)
		case <-time.After(time.Second):
			t.Fatal("repeated query was not reported")
		}
		assert.Equal(t, []string{"phone"}, c.searchCalls())
	})

	t.Run("busy", func(t *testing.T) {
		c.mu.Lock()
		c.block = make(chan struct{})
		c.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- s.ResetAndFetchFirstPage(ctx) }()
		require.Eventually(t, func() bool { return s.Snapshot().Loading }, time.Second, time.Millisecond)

		s.SetSearchQuery("laptop")
		select {
		case ev := <-skipped:
			assert.ErrorIs(t, ev.Err, ErrBusy)
		case <-time.After(time.Second):
			t.Fatal("dropped query was not reported")
		}

		c.mu.Lock()
		close(c.block)
		c.block = nil
		c.mu.Unlock()
		require.NoError(t, <-done)
		assert.Equal(t, []string{"phone"}, c.searchCalls())
	})
}
