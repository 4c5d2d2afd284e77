package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator redeems a coupon code against a basket.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
	// Release returns the use counted by a successful Validate.
	Release(ctx context.Context, code string) error
}

// RepoValidator redeems codes stored in a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

var _ Validator = (*RepoValidator)(nil)

func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate checks the rule's validity window and usage limit, computes the
// discount and counts one use. A failing check leaves the use count alone.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCoupon
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.Active(v.now()) {
		return nil, ErrCouponExpired
	}
	if rule.Exhausted() {
		return nil, ErrCouponUsageLimitReached
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}

	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return nil, errors.Wrap(err, "increment coupon uses")
	}
	return &d, nil
}

// Release gives back the use counted by Validate, for a redemption whose
// order was never stored.
func (v *RepoValidator) Release(ctx context.Context, code string) error {
	if err := v.repo.DecrementUses(ctx, NormalizeCode(code)); err != nil {
		return errors.Wrap(err, "decrement coupon uses")
	}
	return nil
}
