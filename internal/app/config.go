package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWT         JWTConfig
	Pricing     PricingConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	Graceful    GracefulConfig
}

// JWTConfig controls bearer token signing.
type JWTConfig struct {
	Secret        string        `usage:"HMAC secret for access tokens (STOREFRONT_JWT_SECRET)" flag:"jwt-secret"`
	TTL           time.Duration `default:"24h" usage:"Access token lifetime" flag:"jwt-ttl"`
	RefreshSecret string        `usage:"HMAC secret for refresh tokens (STOREFRONT_JWT_REFRESH_SECRET)" flag:"jwt-refresh-secret"`
	RefreshTTL    time.Duration `default:"168h" usage:"Refresh token lifetime" flag:"jwt-refresh-ttl"`
}

// PricingConfig holds checkout constants as decimal strings.
type PricingConfig struct {
	TaxRate     string `default:"0.20" usage:"Tax rate applied to the order subtotal" flag:"tax-rate"`
	ShippingFee string `default:"10" usage:"Flat shipping fee per order" flag:"shipping-fee"`
}

// Pricing parses the configured constants.
func (c PricingConfig) Pricing() (order.Pricing, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse tax rate")
	}
	fee, err := decimal.NewFromString(c.ShippingFee)
	if err != nil {
		return order.Pricing{}, errors.Wrap(err, "parse shipping fee")
	}
	if rate.IsNegative() || fee.IsNegative() {
		return order.Pricing{}, errors.New("tax rate and shipping fee must not be negative")
	}
	return order.Pricing{TaxRate: rate, ShippingFee: fee}, nil
}

// KafkaConfig enables order event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers; publishing is disabled when empty"`
	Topic   string   `default:"storefront.orders" usage:"Topic for order events"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
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
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set STOREFRONT_DATABASE_URL or DATABASE_URL")
	case c.JWT.Secret == "":
		return errors.New("JWT secret is required: set STOREFRONT_JWT_SECRET")
	case c.JWT.RefreshSecret == "":
		return errors.New("JWT refresh secret is required: set STOREFRONT_JWT_REFRESH_SECRET")
	case c.JWT.RefreshSecret == c.JWT.Secret:
		return errors.New("JWT refresh secret must differ from the access token secret")
	case c.JWT.TTL <= 0 || c.JWT.RefreshTTL <= 0:
		return errors.New("JWT TTLs must be positive")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.New("rate limit max and window must be positive")
	}
	if _, err := c.Pricing.Pricing(); err != nil {
		return errors.Wrap(err, "pricing")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
