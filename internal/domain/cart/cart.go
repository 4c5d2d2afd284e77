// Package cart holds the shopping cart: one quantity-bearing entry per
// product, persisted to key-value storage after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/notify"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// DefaultKey is the storage key the cart is persisted under.
const DefaultKey = "cartItems_v2"

// Entry is a single cart line. Quantity is at least 1 while the entry exists.
type Entry struct {
	ID       string          `json:"id"`
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price × quantity.
func (e Entry) LineTotal() decimal.Decimal {
	return e.Product.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Event is published after every cart mutation.
type Event struct {
	Entries []Entry
}

// Store is the cart state container.
type Store struct {
	kv  kv.Store
	key string
	lg  *zap.Logger

	mu      sync.Mutex
	entries []Entry
	lastErr error

	hub notify.Hub[Event]
}

// New creates a Store and restores any cart previously saved under key
// (DefaultKey when empty). Missing or undecodable data yields an empty cart.
func New(ctx context.Context, store kv.Store, key string, lg *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Store{
		kv:  store,
		key: key,
		lg:  lg.Named("cart"),
	}
	if err := s.load(ctx); err != nil {
		s.lg.Warn("Failed to load cart", zap.Error(err))
		s.lastErr = err
	}
	return s
}

// Subscribe registers fn for cart change events.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Add increments the quantity of p's entry, creating it with quantity 1 when
// absent.
func (s *Store) Add(ctx context.Context, p product.Product) {
	s.mutate(ctx, func() bool {
		if i := s.indexOf(p.ID); i >= 0 {
			s.entries[i].Quantity++
			return true
		}
		s.entries = append(s.entries, Entry{
			ID:       uuid.New().String(),
			Product:  p,
			Quantity: 1,
		})
		return true
	})
}

// Remove decrements the quantity of p's entry, deleting the entry when the
// quantity would drop below 1. Removing an absent product does nothing.
func (s *Store) Remove(ctx context.Context, p product.Product) {
	s.mutate(ctx, func() bool {
		i := s.indexOf(p.ID)
		if i < 0 {
			return false
		}
		if s.entries[i].Quantity > 1 {
			s.entries[i].Quantity--
			return true
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return true
	})
}

// RemoveAll deletes p's entry regardless of quantity.
func (s *Store) RemoveAll(ctx context.Context, p product.Product) {
	s.mutate(ctx, func() bool {
		i := s.indexOf(p.ID)
		if i < 0 {
			return false
		}
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return true
	})
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func() bool {
		s.entries = nil
		return true
	})
}

// Entries returns a copy of the cart lines in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Entry returns the line for productID, if any.
func (s *Store) Entry(productID int) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

// Total returns the exact sum of price × quantity, rounded to cents.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, e := range s.entries {
		sum = sum.Add(e.LineTotal())
	}
	return sum.Round(2)
}

// Count returns the sum of all quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		n += e.Quantity
	}
	return n
}

// LastError returns the most recent persistence failure, or nil if the last
// save succeeded.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// mutate applies fn under the lock and, when fn reports a change, saves the
// cart and publishes the new contents.
func (s *Store) mutate(ctx context.Context, fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.lastErr = s.save(ctx)
	if s.lastErr != nil {
		s.lg.Error("Failed to save cart", zap.Error(s.lastErr))
	}
	ev := Event{Entries: s.snapshot()}
	s.mu.Unlock()

	s.hub.Publish(ev)
}

func (s *Store) indexOf(productID int) int {
	for i := range s.entries {
		if s.entries[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) save(ctx context.Context) error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return &kv.PersistenceError{Op: kv.OpEncode, Key: s.key, Err: err}
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return &kv.PersistenceError{Op: kv.OpWrite, Key: s.key, Err: err}
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return &kv.PersistenceError{Op: kv.OpRead, Key: s.key, Err: err}
	}
	if !ok {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return &kv.PersistenceError{Op: kv.OpDecode, Key: s.key, Err: err}
	}

	// Drop lines that would violate the cart invariants.
	seen := make(map[int]struct{}, len(entries))
	kept := entries[:0]
	for _, e := range entries {
		if _, dup := seen[e.Product.ID]; dup || e.Quantity < 1 {
			continue
		}
		seen[e.Product.ID] = struct{}{}
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return nil
}
