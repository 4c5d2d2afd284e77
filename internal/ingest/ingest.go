// Package ingest finds promo codes shared by several gzipped code dumps.
package ingest

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
)

// Options tunes the two-pass scan.
type Options struct {
	// Capacity is the expected number of codes per file.
	Capacity uint
	// FPRate is the bloom filter false positive rate.
	FPRate float64
	MinLen int
	MaxLen int
	// MinFiles is how many dumps must contain a code.
	MinFiles int
	// ProgressEvery logs a progress line every n codes, 0 disables it.
	ProgressEvery uint64
}

// DefaultOptions fit dumps of roughly a hundred million codes.
var DefaultOptions = Options{
	Capacity:      120_000_000,
	FPRate:        0.001,
	MinLen:        8,
	MaxLen:        10,
	MinFiles:      2,
	ProgressEvery: 10_000_000,
}

// Scanner finds codes present in at least MinFiles of the given dumps.
type Scanner struct {
	opts Options
	lg   *zap.Logger
}

func NewScanner(opts Options, lg *zap.Logger) *Scanner {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Scanner{opts: opts, lg: lg}
}

// Find returns the sorted codes shared by at least MinFiles dumps.
//
// The first pass builds one bloom filter per file. The second pass re-reads
// every file and keeps codes that hit another file's filter, recording a bit
// per file, so false positives are dropped unless the code really occurs in
// enough files.
func (s *Scanner) Find(ctx context.Context, files []string) ([]string, error) {
	if len(files) > bits.UintSize {
		return nil, errors.Errorf("too many files: %d", len(files))
	}
	if s.opts.MinFiles < 1 {
		return nil, errors.New("min files must be positive")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, errors.Wrapf(err, "check file %s", f)
		}
	}

	s.lg.Info("Building bloom filters", zap.Int("files", len(files)))
	filters, err := s.buildFilters(ctx, files)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	s.lg.Info("Finding shared codes")
	masks, err := s.findCandidates(ctx, files, filters)
	if err != nil {
		return nil, errors.Wrap(err, "find candidates")
	}

	merged := make(map[string]uint)
	for _, m := range masks {
		for code, mask := range m {
			merged[code] |= mask
		}
	}
	var codes []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= s.opts.MinFiles {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes, nil
}

func (s *Scanner) valid(code string) bool {
	return len(code) >= s.opts.MinLen && len(code) <= s.opts.MaxLen
}

func (s *Scanner) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(s.opts.Capacity, s.opts.FPRate)
			var count uint64
			if err := streamGz(ctx, path, func(code string) {
				if !s.valid(code) {
					return
				}
				filter.AddString(code)
				count++
				s.progress("Filter progress", i, count)
			}); err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			s.lg.Info("Filter built", zap.Int("file", i+1), zap.Uint64("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func (s *Scanner) findCandidates(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]map[string]uint, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			var count uint64
			if err := streamGz(ctx, path, func(code string) {
				if !s.valid(code) {
					return
				}
				count++
				s.progress("Scan progress", i, count)
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= fileBit
						return
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			s.lg.Info("File scanned",
				zap.Int("file", i+1),
				zap.Uint64("codes", count),
				zap.Int("candidates", len(candidates)),
			)
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scanner) progress(msg string, idx int, count uint64) {
	if s.opts.ProgressEvery > 0 && count%s.opts.ProgressEvery == 0 {
		s.lg.Info(msg, zap.Int("file", idx+1), zap.Uint64("codes", count))
	}
}

// streamGz calls fn for each line of a gzip-compressed file.
func streamGz(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

// knownRules carry the discount of codes that are not plain 10% promos.
var knownRules = map[string]coupon.Rule{
	"BIRTHDAY": {DiscountType: coupon.DiscountFreeLowest, Description: "Birthday: free lowest item"},
	"BUYGETON": {DiscountType: coupon.DiscountFreeLowest, MinItems: 2, Description: "Lowest item free (buy 2+)"},
	"FIFTYOFF": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(50), Description: "50% off entire order"},
	"SIXTYOFF": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(60), Description: "60% off entire order"},
	"FREEZAAA": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(100), Description: "Everything free!"},
	"GNULINUX": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(15), Description: "Open source discount: 15% off"},
	"OVER9000": {DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(9), Description: "$9 off your order"},
	"HAPPYHRS": {DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(18), Description: "Happy Hours: 18% off"},
}

// Rules maps shared codes to coupon rules.
func Rules(codes []string) []coupon.Rule {
	rules := make([]coupon.Rule, 0, len(codes))
	for _, code := range codes {
		rule, ok := knownRules[code]
		if !ok {
			rule = coupon.Rule{
				DiscountType: coupon.DiscountPercentage,
				Value:        decimal.NewFromInt(10),
				Description:  "Valid promo code: 10% off",
			}
		}
		rule.Code = code
		rules = append(rules, rule)
	}
	return rules
}
