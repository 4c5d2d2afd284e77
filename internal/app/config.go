package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the storefront configuration, loadable from environment
// variables (STOREFRONT_ prefix) or YAML files.
type Config struct {
	// The API server takes its log level from the telemetry environment.
	LogLevel string `default:"warn" usage:"CLI log level: debug, info, warn, error"`
	Catalog  CatalogConfig
	Search   SearchConfig
	Storage  StorageConfig
	Coupons  CouponsConfig
	Server   ServerConfig
}

// CatalogConfig points at the remote product catalog.
type CatalogConfig struct {
	BaseURL  string `default:"https://dummyjson.com" usage:"Remote catalog base URL"`
	PageSize int    `default:"10" usage:"Listing page size"`
	// Zero disables the client-side timeout.
	Timeout   time.Duration `default:"0s" usage:"Per-request timeout"`
	RateLimit float64       `default:"0" usage:"Outgoing requests per second, 0 for unlimited"`
	Burst     int           `default:"5" usage:"Outgoing request burst"`
}

type SearchConfig struct {
	Debounce time.Duration `default:"500ms" usage:"Quiet period before a search query is sent"`
}

// StorageConfig selects where the cart, favorites and orders live.
type StorageConfig struct {
	Driver       string `default:"bolt" usage:"Storage driver: bolt, postgres, memory"`
	Path         string `default:"storefront.db" usage:"bbolt database file"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STOREFRONT_STORAGE_DATABASE_URL or DATABASE_URL)"`
	CartKey      string `default:"cartItems_v2" usage:"Storage key of the cart"`
	FavoritesKey string `default:"favoriteProducts_v1" usage:"Storage key of the favorites"`
}

type CouponsConfig struct {
	File string `usage:"YAML coupon rules file"`
}

// ServerConfig is used by the HTTP backend only.
type ServerConfig struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	APIKey    string `usage:"Key required on mutating requests; empty disables the check"`
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Rate  float64 `default:"10" usage:"Requests per second per client"`
	Burst int     `default:"20" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration"`
}

// DefaultConfigFiles are read, when present, before any extra file.
var DefaultConfigFiles = []string{"storefront.yaml", "/etc/storefront/config.yaml"}

// LoadConfig loads configuration from YAML files and the environment, applies
// platform defaults and then override, when non-nil, before validating.
// Command-line flags reach the config through override.
func LoadConfig(override func(*Config), extraFiles ...string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		SkipFlags: true,
		// Later files override earlier ones.
		MergeFiles: true,
		Files:      append(append([]string{}, DefaultConfigFiles...), extraFiles...),
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
			".yml":  aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if override != nil {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBolt:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for the bolt driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set STOREFRONT_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case DriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Catalog.PageSize <= 0 {
		return errors.Errorf("catalog page size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Search.Debounce < 0 {
		return errors.New("search debounce must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Server.Addr == "0.0.0.0:8080" {
		c.Server.Addr = "0.0.0.0:" + port
	}
}
