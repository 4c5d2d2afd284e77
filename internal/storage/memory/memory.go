// Package memory provides map-backed storage for tests and ephemeral runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/domain/kv"
	"github.com/raj-engineer/EcomApp/internal/domain/order"
)

// KV is an in-memory kv.Store.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ kv.Store = (*KV)(nil)

func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (s *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (s *KV) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

// OrderRepository keeps orders in insertion order.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []order.Order
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	cp.Items = slices.Clone(o.Items)
	r.orders = append(r.orders, cp)
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			cp := r.orders[i]
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *OrderRepository) List(_ context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.Order, len(r.orders))
	for i, o := range r.orders {
		out[len(out)-1-i] = o
	}
	return out, nil
}

// CouponRepository holds coupon rules keyed by normalized code.
type CouponRepository struct {
	mu    sync.Mutex
	rules map[string]*coupon.Rule
}

var _ coupon.Repository = (*CouponRepository)(nil)

func NewCouponRepository(rules ...coupon.Rule) *CouponRepository {
	r := &CouponRepository{rules: make(map[string]*coupon.Rule, len(rules))}
	for _, rule := range rules {
		r.Upsert(rule)
	}
	return r
}

// Upsert adds or replaces a rule, keeping the use count of a replaced rule.
func (r *CouponRepository) Upsert(rule coupon.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.Code = coupon.NormalizeCode(rule.Code)
	if old, ok := r.rules[rule.Code]; ok {
		rule.Uses = old.Uses
	}
	r.rules[rule.Code] = &rule
}

func (r *CouponRepository) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	cp := *rule
	return &cp, nil
}

// IncrementUses counts one redemption. It fails with
// coupon.ErrCouponUsageLimitReached when a concurrent redemption used the last
// slot.
func (r *CouponRepository) IncrementUses(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.ErrInvalidCoupon
	}
	if rule.Exhausted() {
		return coupon.ErrCouponUsageLimitReached
	}
	rule.Uses++
	return nil
}

func (r *CouponRepository) DecrementUses(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.ErrInvalidCoupon
	}
	if rule.Uses > 0 {
		rule.Uses--
	}
	return nil
}
