package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/ingest"
	"github.com/raj-engineer/EcomApp/internal/storage/postgres"
)

// batchSize bounds the rules upserted per transaction.
const batchSize = 500

func main() {
	var (
		dataDir     string
		numFiles    int
		databaseURL string
		opts        = ingest.DefaultOptions
	)

	cmd := &cobra.Command{
		Use:          "coupon-ingest",
		Short:        "Import promo codes shared by several gzipped code dumps",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("database URL is required: set --database-url or DATABASE_URL")
			}

			lg, err := zap.NewProduction()
			if err != nil {
				return errors.Wrap(err, "build logger")
			}
			defer func() { _ = lg.Sync() }()

			files := make([]string, numFiles)
			for i := range files {
				files[i] = filepath.Join(dataDir, fmt.Sprintf("couponbase%d.gz", i+1))
			}
			if err := run(cmd.Context(), lg, files, opts, databaseURL); err != nil {
				lg.Error("Coupon ingest failed", zap.Error(err))
				return err
			}
			lg.Info("Coupon ingest completed")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataDir, "data-dir", "data", "Directory containing couponbaseN.gz files")
	f.IntVar(&numFiles, "files", 3, "Number of couponbaseN.gz files")
	f.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	f.IntVar(&opts.MinFiles, "min-files", opts.MinFiles, "Dumps a code must appear in")
	f.UintVar(&opts.Capacity, "capacity", opts.Capacity, "Expected codes per file")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, files []string, opts ingest.Options, databaseURL string) error {
	codes, err := ingest.NewScanner(opts, lg).Find(ctx, files)
	if err != nil {
		return errors.Wrap(err, "find codes")
	}
	lg.Info("Shared codes found", zap.Int("count", len(codes)))
	if len(codes) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCouponRepository(pool)
	rules := ingest.Rules(codes)
	for start := 0; start < len(rules); start += batchSize {
		end := min(start+batchSize, len(rules))
		if err := repo.Upsert(ctx, rules[start:end]); err != nil {
			return errors.Wrap(err, "upsert coupons")
		}
		lg.Info("Write progress", zap.Int("written", end), zap.Int("total", len(rules)))
	}
	return nil
}
