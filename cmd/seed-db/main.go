package main

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/domain/coupon"
	"github.com/raj-engineer/EcomApp/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		couponsFile string
	)

	cmd := &cobra.Command{
		Use:          "seed-db",
		Short:        "Migrate the storefront database and upsert coupon rules",
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

			if err := run(cmd.Context(), lg, databaseURL, couponsFile); err != nil {
				lg.Error("Seed failed", zap.Error(err))
				return err
			}
			lg.Info("Seed completed")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	cmd.Flags().StringVar(&couponsFile, "coupons", "db/seed/coupons.yaml", "YAML coupon rules file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, couponsFile string) error {
	rules, err := coupon.LoadRules(couponsFile)
	if err != nil {
		return errors.Wrap(err, "load coupons")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewCouponRepository(pool).Upsert(ctx, rules); err != nil {
		return errors.Wrap(err, "upsert coupons")
	}
	for _, r := range rules {
		lg.Info("Upserted coupon",
			zap.String("code", r.Code),
			zap.String("description", r.Description),
		)
	}
	return nil
}
