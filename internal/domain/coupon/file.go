package coupon

import (
	"io"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML layout of a coupon rules file:
//
//	coupons:
//	  - code: HAPPYHRS
//	    type: percentage
//	    value: "18"
//	    description: 18% off everything
//	    valid_until: 2026-12-31T23:59:59Z
//	    max_uses: 500
type ruleFile struct {
	Coupons []ruleEntry `yaml:"coupons"`
}

type ruleEntry struct {
	Code        string     `yaml:"code"`
	Type        string     `yaml:"type"`
	Value       string     `yaml:"value"`
	MinItems    int        `yaml:"min_items"`
	Description string     `yaml:"description"`
	ValidFrom   *time.Time `yaml:"valid_from"`
	ValidUntil  *time.Time `yaml:"valid_until"`
	MaxUses     int        `yaml:"max_uses"`
	MaxDiscount string     `yaml:"max_discount"`
}

// ReadRules parses a YAML coupon rules document.
func ReadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode yaml")
	}

	rules := make([]Rule, 0, len(f.Coupons))
	seen := make(map[string]struct{}, len(f.Coupons))
	for i, e := range f.Coupons {
		rule, err := e.rule()
		if err != nil {
			return nil, errors.Wrapf(err, "coupon #%d", i+1)
		}
		if _, dup := seen[rule.Code]; dup {
			return nil, errors.Errorf("coupon #%d: duplicate code %q", i+1, rule.Code)
		}
		seen[rule.Code] = struct{}{}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRules reads a YAML coupon rules file.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open coupons file")
	}
	defer func() { _ = f.Close() }()
	return ReadRules(f)
}

func (e ruleEntry) rule() (Rule, error) {
	r := Rule{
		Code:         NormalizeCode(e.Code),
		DiscountType: DiscountType(e.Type),
		MinItems:     e.MinItems,
		Description:  e.Description,
		ValidFrom:    e.ValidFrom,
		ValidUntil:   e.ValidUntil,
		MaxUses:      e.MaxUses,
	}
	if r.Code == "" {
		return Rule{}, errors.New("code required")
	}
	if !r.DiscountType.Valid() {
		return Rule{}, errors.Errorf("unsupported discount type %q", e.Type)
	}
	if e.Value != "" {
		v, err := decimal.NewFromString(e.Value)
		if err != nil {
			return Rule{}, errors.Wrap(err, "value")
		}
		r.Value = v
	}
	if e.MaxDiscount != "" {
		v, err := decimal.NewFromString(e.MaxDiscount)
		if err != nil {
			return Rule{}, errors.Wrap(err, "max_discount")
		}
		r.MaxDiscount = v
	}
	if r.Value.IsNegative() || r.MinItems < 0 || r.MaxUses < 0 {
		return Rule{}, errors.New("negative value, min_items or max_uses")
	}
	return r, nil
}
