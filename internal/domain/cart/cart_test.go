package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// --- Mock implementations ---

type mockKV struct {
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

// --- Helpers ---

func newTestProduct(id int, price string) product.Product {
	return product.Product{
		ID:       id,
		Title:    "product",
		Price:    decimal.RequireFromString(price),
		Category: "test",
	}
}

// --- Tests ---

func TestStore_AddRemoveScenario(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMockKV(), "", nil)
	p1 := newTestProduct(1, "10.00")

	s.Add(ctx, p1)
	s.Add(ctx, p1)

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Quantity)
	assert.True(t, decimal.RequireFromString("20.00").Equal(s.Total()))

	s.Remove(ctx, p1)
	e, ok := s.Entry(1)
	require.True(t, ok)
	assert.Equal(t, 1, e.Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(s.Total()))

	s.Remove(ctx, p1)
	_, ok = s.Entry(1)
	assert.False(t, ok)
	assert.True(t, decimal.Zero.Equal(s.Total()))
	assert.Equal(t, 0, s.Count())
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newMockKV()
	s := New(ctx, m, "", nil)

	s.Remove(ctx, newTestProduct(42, "1.00"))
	s.RemoveAll(ctx, newTestProduct(42, "1.00"))

	assert.Empty(t, s.Entries())
	assert.Equal(t, 0, m.sets, "no-op removal must not write")
}

func TestStore_RemoveAllAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMockKV(), "", nil)
	p1 := newTestProduct(1, "3.50")
	p2 := newTestProduct(2, "1.25")

	s.Add(ctx, p1)
	s.Add(ctx, p1)
	s.Add(ctx, p1)
	s.Add(ctx, p2)

	s.RemoveAll(ctx, p1)
	require.Len(t, s.Entries(), 1)
	assert.Equal(t, 2, s.Entries()[0].Product.ID)
	assert.Equal(t, 1, s.Count())

	s.Clear(ctx)
	assert.Empty(t, s.Entries())
	assert.True(t, decimal.Zero.Equal(s.Total()))
}

func TestStore_TotalIsExact(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMockKV(), "", nil)

	// 0.1 + 0.2 drifts in binary floating point.
	s.Add(ctx, newTestProduct(1, "0.10"))
	s.Add(ctx, newTestProduct(2, "0.20"))

	assert.Equal(t, "0.30", s.Total().StringFixed(2))
	assert.True(t, decimal.RequireFromString("0.3").Equal(s.Total()))
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	m := newMockKV()
	s := New(ctx, m, "", nil)
	p1 := newTestProduct(7, "2.00")

	s.Add(ctx, p1)
	s.Add(ctx, p1)
	s.Remove(ctx, p1)
	s.Clear(ctx)
	assert.Equal(t, 4, m.sets)

	s.Add(ctx, p1)
	restored := New(ctx, m, "", nil)
	require.Len(t, restored.Entries(), 1)
	assert.Equal(t, s.Entries()[0].ID, restored.Entries()[0].ID)
	assert.True(t, decimal.RequireFromString("2.00").Equal(restored.Total()))
}

func TestStore_CustomKey(t *testing.T) {
	ctx := context.Background()
	m := newMockKV()
	s := New(ctx, m, "cart-test", nil)

	s.Add(ctx, newTestProduct(1, "1.00"))

	assert.Contains(t, m.data, "cart-test")
	assert.NotContains(t, m.data, DefaultKey)
}

func TestStore_LoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt payload yields empty cart", func(t *testing.T) {
		m := newMockKV()
		m.data[DefaultKey] = []byte("{not json")

		s := New(ctx, m, "", nil)

		assert.Empty(t, s.Entries())
		var pErr *kv.PersistenceError
		require.ErrorAs(t, s.LastError(), &pErr)
		assert.Equal(t, kv.OpDecode, pErr.Op)
	})

	t.Run("read error yields empty cart", func(t *testing.T) {
		m := newMockKV()
		m.getErr = errors.New("disk gone")

		s := New(ctx, m, "", nil)

		assert.Empty(t, s.Entries())
		var pErr *kv.PersistenceError
		require.ErrorAs(t, s.LastError(), &pErr)
		assert.Equal(t, kv.OpRead, pErr.Op)
	})

	t.Run("invalid lines are dropped", func(t *testing.T) {
		m := newMockKV()
		m.data[DefaultKey] = []byte(`[
			{"id":"a","product":{"id":1,"price":"1.00"},"quantity":2},
			{"id":"b","product":{"id":1,"price":"1.00"},"quantity":1},
			{"id":"c","product":{"id":2,"price":"1.00"},"quantity":0}
		]`)

		s := New(ctx, m, "", nil)

		require.Len(t, s.Entries(), 1)
		assert.Equal(t, "a", s.Entries()[0].ID)
		assert.Equal(t, 2, s.Count())
	})
}

func TestStore_SaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	m := newMockKV()
	m.setErr = errors.New("read-only")
	s := New(ctx, m, "", nil)

	s.Add(ctx, newTestProduct(1, "5.00"))

	assert.Equal(t, 1, s.Count())
	var pErr *kv.PersistenceError
	require.ErrorAs(t, s.LastError(), &pErr)
	assert.Equal(t, kv.OpWrite, pErr.Op)

	m.setErr = nil
	s.Add(ctx, newTestProduct(1, "5.00"))
	assert.NoError(t, s.LastError())
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, newMockKV(), "", nil)

	var counts []int
	unsubscribe := s.Subscribe(func(ev Event) {
		n := 0
		for _, e := range ev.Entries {
			n += e.Quantity
		}
		counts = append(counts, n)
	})

	p1 := newTestProduct(1, "1.00")
	s.Add(ctx, p1)
	s.Add(ctx, p1)
	s.Remove(ctx, newTestProduct(99, "1.00")) // no-op, no event
	unsubscribe()
	s.Clear(ctx)

	assert.Equal(t, []int{1, 2}, counts)
}

func TestStore_Properties(t *testing.T) {
	prices := []string{"0.01", "0.10", "0.99", "1.00", "9.95", "19.99", "250.00"}

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := New(ctx, newMockKV(), "", nil)

		products := make([]product.Product, 4)
		for i := range products {
			products[i] = newTestProduct(i+1, rapid.SampledFrom(prices).Draw(t, "price"))
		}

		// Net quantity model: adds minus removes, floored at zero.
		model := make(map[int]int)
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 60).Draw(t, "ops")
		for _, op := range ops {
			p := products[rapid.IntRange(0, len(products)-1).Draw(t, "product")]
			switch op {
			case 0:
				s.Add(ctx, p)
				model[p.ID]++
			case 1:
				s.Remove(ctx, p)
				if model[p.ID] > 0 {
					model[p.ID]--
				}
			case 2:
				s.RemoveAll(ctx, p)
				model[p.ID] = 0
			}

			want := decimal.Zero
			seen := make(map[int]bool)
			for _, e := range s.Entries() {
				if e.Quantity < 1 {
					t.Fatalf("entry %d has quantity %d", e.Product.ID, e.Quantity)
				}
				if seen[e.Product.ID] {
					t.Fatalf("duplicate entry for product %d", e.Product.ID)
				}
				seen[e.Product.ID] = true
				if e.Quantity != model[e.Product.ID] {
					t.Fatalf("product %d: quantity %d, want %d", e.Product.ID, e.Quantity, model[e.Product.ID])
				}
				want = want.Add(e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity))))
			}
			for id, qty := range model {
				if qty > 0 && !seen[id] {
					t.Fatalf("product %d missing with model quantity %d", id, qty)
				}
			}
			if !want.Equal(s.Total()) {
				t.Fatalf("total %s, want %s", s.Total(), want)
			}
		}
	})
}
