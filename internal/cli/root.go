// Package cli implements the storefront command line client.
package cli

import (
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/raj-engineer/EcomApp/internal/app"
)

// session carries the flags and the opened storefront through one
// invocation.
type session struct {
	configFile string
	storage    string
	dbPath     string
	catalogURL string
	logLevel   string

	lg *zap.Logger
	sf *app.Storefront
}

// NewRootCmd builds the storefront command tree.
func NewRootCmd() *cobra.Command {
	s := &session{}
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Browse the product catalog, manage the cart and favorites, and check out",
		Long: `storefront is a terminal client for a DummyJSON-compatible product catalog.

The cart, favorites and placed orders are kept in local storage (a bbolt file
by default) and survive between runs.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&s.configFile, "config", "", "Extra YAML config file")
	f.StringVar(&s.storage, "storage", "", "Storage driver: bolt, postgres, memory")
	f.StringVar(&s.dbPath, "db", "", "bbolt database file")
	f.StringVar(&s.catalogURL, "catalog", "", "Catalog base URL")
	f.StringVar(&s.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newProductsCmd(s),
		newCategoriesCmd(s),
		newCartCmd(s),
		newFavoritesCmd(s),
		newCheckoutCmd(s),
		newOrdersCmd(s),
	)
	return cmd
}

// run wraps a command body with opening and closing the storefront, so
// storage is held only while the body runs.
func (s *session) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := s.open(cmd); err != nil {
			return err
		}
		defer func() {
			if cerr := s.close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (s *session) open(cmd *cobra.Command) error {
	var files []string
	if s.configFile != "" {
		files = append(files, s.configFile)
	}
	cfg, err := app.LoadConfig(func(c *app.Config) {
		if s.storage != "" {
			c.Storage.Driver = s.storage
		}
		if s.dbPath != "" {
			c.Storage.Path = s.dbPath
		}
		if s.catalogURL != "" {
			c.Catalog.BaseURL = s.catalogURL
		}
		if s.logLevel != "" {
			c.LogLevel = s.logLevel
		}
	}, files...)
	if err != nil {
		return err
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	s.lg, err = newLogger(level)
	if err != nil {
		return err
	}

	s.sf, err = app.NewStorefront(cmd.Context(), s.lg, cfg)
	if err != nil {
		return errors.Wrap(err, "open storefront")
	}
	return nil
}

func (s *session) close() error {
	if s.sf == nil {
		return nil
	}
	err := s.sf.Close()
	s.sf = nil
	_ = s.lg.Sync()
	return err
}

// newLogger writes human readable logs to stderr.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	lg, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return lg, nil
}
