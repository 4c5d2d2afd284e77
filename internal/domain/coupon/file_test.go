package coupon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRules(t *testing.T) {
	const doc = `
coupons:
  - code: happyhrs
    type: percentage
    value: "18"
    description: 18% off
    valid_until: 2026-12-31T23:59:59Z
    max_uses: 500
  - code: FIFTYOFF
    type: fixed
    value: "50.00"
    min_items: 2
    max_discount: "40"
  - code: BUYGETONE
    type: free_lowest
`
	rules, err := ReadRules(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "HAPPYHRS", rules[0].Code)
	assert.Equal(t, DiscountPercentage, rules[0].DiscountType)
	assert.True(t, d("18").Equal(rules[0].Value))
	require.NotNil(t, rules[0].ValidUntil)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), rules[0].ValidUntil.UTC())
	assert.Equal(t, 500, rules[0].MaxUses)

	assert.Equal(t, 2, rules[1].MinItems)
	assert.True(t, d("40").Equal(rules[1].MaxDiscount))

	assert.Equal(t, DiscountFreeLowest, rules[2].DiscountType)
	assert.True(t, rules[2].Value.IsZero())
}

func TestReadRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing code", "coupons:\n  - type: fixed\n    value: '1'\n", "code required"},
		{"bad type", "coupons:\n  - code: X\n    type: bogo\n", "unsupported discount type"},
		{"bad value", "coupons:\n  - code: X\n    type: fixed\n    value: lots\n", "value"},
		{"negative", "coupons:\n  - code: X\n    type: fixed\n    value: '-1'\n", "negative"},
		{"duplicate", "coupons:\n  - code: X\n    type: fixed\n  - code: x\n    type: fixed\n", "duplicate code"},
		{"unknown field", "coupons:\n  - code: X\n    type: fixed\n    amount: 3\n", "decode yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRules(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coupons:\n  - code: SAVE5\n    type: fixed\n    value: '5'\n"), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "SAVE5", rules[0].Code)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	rules, err = LoadRules(empty)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
