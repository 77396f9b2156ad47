package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront-cart/internal/gateway"
	"github.com/xenking/storefront-cart/pkg/httpmiddleware"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds the complete server configuration, loadable from environment
// variables (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Cart     CartConfig
	Storage  StorageConfig
	Checkout CheckoutConfig
	Gateway  gateway.Config
	Notify   NotifyConfig
	CORS     httpmiddleware.CORSConfig
	Throttle httpmiddleware.ThrottleConfig
	Graceful GracefulConfig
}

// CartConfig controls the cart store and the legacy facade.
type CartConfig struct {
	StorageKey       string `default:"materiaisdaprofe_carrinho" usage:"Storage slot holding the cart" flag:"storage-key"`
	MaxQuantity      int    `default:"1" usage:"Maximum quantity of a single line item" flag:"max-quantity"`
	PlaceholderImage string `default:"assets/images/placeholder.jpg" usage:"Image used for legacy records without one"`
	DefaultName      string `default:"Produto" usage:"Title used for legacy records without one"`
}

// StorageConfig selects the backend of the cart slot.
type StorageConfig struct {
	Driver string `default:"memory" usage:"Cart storage: memory, file or postgres"`
	// Dir holds one JSON file per slot (file driver).
	Dir      string `default:"./data" usage:"Directory for the file driver"`
	Compress bool   `default:"false" usage:"Gzip slot files (file driver)"`
	// DatabaseURL also enables the receipt journal.
	DatabaseURL string `usage:"PostgreSQL connection URL (CART_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// CheckoutConfig controls the checkout wizard.
type CheckoutConfig struct {
	Currency  string        `default:"BRL" usage:"ISO currency code sent with every order item"`
	Timeout   time.Duration `default:"30s" usage:"Maximum time to wait for the payment gateway"`
	PayLabel  string        `default:"Pay with Mercado Pago" usage:"Pay button label"`
	BusyLabel string        `default:"Processing..." usage:"Pay button label while submitting"`
}

// NotifyConfig controls the notification board.
type NotifyConfig struct {
	DismissDelay time.Duration `default:"5s" usage:"Notification auto-dismiss delay" flag:"dismiss-delay"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CART",
		Files:     []string{"config.yaml", "/etc/cart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required for the postgres driver: set CART_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Cart.StorageKey == "" {
		return errors.New("cart storage key is required")
	}
	if c.Cart.MaxQuantity < 1 {
		return errors.Errorf("max quantity must be positive, got %d", c.Cart.MaxQuantity)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
