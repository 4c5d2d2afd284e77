// Package favorites holds the set of favorite product ids.
package favorites

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/notify"
	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// DefaultKey is the storage key the favorites set is persisted under.
const DefaultKey = "favoriteProducts_v1"

// Event is published after every toggle.
type Event struct {
	ProductID int
	Favorite  bool
	IDs       []int
}

// Store is the favorites state container.
type Store struct {
	kv  kv.Store
	key string
	lg  *zap.Logger

	mu      sync.Mutex
	ids     map[int]struct{}
	lastErr error

	hub notify.Hub[Event]
}

// New creates a Store and restores the set saved under key (DefaultKey when
// empty).
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
		lg:  lg.Named("favorites"),
		ids: make(map[int]struct{}),
	}
	if err := s.load(ctx); err != nil {
		s.lg.Warn("Failed to load favorites", zap.Error(err))
		s.lastErr = err
	}
	return s
}

// Subscribe registers fn for toggle events.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Toggle flips p's membership and reports whether p is now a favorite.
func (s *Store) Toggle(ctx context.Context, p product.Product) bool {
	return s.ToggleID(ctx, p.ID)
}

// ToggleID is Toggle for callers that only hold the id.
func (s *Store) ToggleID(ctx context.Context, id int) bool {
	s.mu.Lock()
	_, had := s.ids[id]
	if had {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	s.lastErr = s.save(ctx)
	if s.lastErr != nil {
		s.lg.Error("Failed to save favorites", zap.Int("product_id", id), zap.Error(s.lastErr))
	}
	ev := Event{ProductID: id, Favorite: !had, IDs: s.sorted()}
	s.mu.Unlock()

	s.hub.Publish(ev)
	return !had
}

// IsFavorite reports whether p is in the set.
func (s *Store) IsFavorite(p product.Product) bool {
	return s.Contains(p.ID)
}

// Contains reports whether id is in the set.
func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the favorite ids in ascending order.
func (s *Store) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// LastError returns the most recent persistence failure.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) sorted() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Store) save(ctx context.Context) error {
	data, err := json.Marshal(s.sorted())
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
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return &kv.PersistenceError{Op: kv.OpDecode, Key: s.key, Err: err}
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return nil
}
