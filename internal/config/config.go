// Package config loads service configuration from defaults, an optional
// TOML file and the environment, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	RunLocal   bool   `toml:"run_local"`

	AWSRegion        string `toml:"aws_region"`
	EndpointOverride string `toml:"aws_endpoint_override"`

	SettingsTable    string `toml:"settings_table"`
	OrdersTable      string `toml:"orders_table"`
	OrderItemsTable  string `toml:"order_items_table"`
	ProductsTable    string `toml:"products_table"`
	ReviewsTable     string `toml:"reviews_table"`
	UsersTable       string `toml:"users_table"`
	IdempotencyTable string `toml:"idempotency_table"`
	OrdersQueueURL   string `toml:"orders_queue_url"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`

	SessionSecret  string        `toml:"session_secret"`
	SignInURL      string        `toml:"sign_in_url"`
	SecureCookies  bool          `toml:"secure_cookies"`
	IdempotencyTTL time.Duration `toml:"-"`

	SeedCategories    []string `toml:"seed_categories"`
	SeedMinPerProduct int      `toml:"seed_min_per_product"`
	SeedMaxPerProduct int      `toml:"seed_max_per_product"`

	MetricsNamespace string `toml:"metrics_namespace"`
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		AWSRegion:         "us-east-1",
		SettingsTable:     "storefront-settings",
		OrdersTable:       "storefront-orders",
		OrderItemsTable:   "storefront-order-items",
		ProductsTable:     "storefront-products",
		ReviewsTable:      "storefront-reviews",
		UsersTable:        "storefront-users",
		IdempotencyTable:  "storefront-idempotency",
		SignInURL:         "/api/auth/login",
		IdempotencyTTL:    48 * time.Hour,
		SeedCategories:    []string{"lighting", "furniture", "decor"},
		SeedMinPerProduct: 3,
		SeedMaxPerProduct: 8,
		LogLevel:          "info",
	}
}

// Load builds the API configuration. When CONFIG_FILE is set the TOML file
// it names is decoded over the defaults before environment overrides apply.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker builds the configuration for the order worker, which needs no
// session secret.
func LoadWorker() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.OrdersTable == "" || cfg.IdempotencyTable == "" {
		return nil, fmt.Errorf("ORDERS_TABLE and IDEMPOTENCY_TABLE must be set")
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LISTEN_ADDR":           &c.ListenAddr,
		"AWS_REGION":            &c.AWSRegion,
		"AWS_ENDPOINT_OVERRIDE": &c.EndpointOverride,
		"SETTINGS_TABLE":        &c.SettingsTable,
		"ORDERS_TABLE":          &c.OrdersTable,
		"ORDER_ITEMS_TABLE":     &c.OrderItemsTable,
		"PRODUCTS_TABLE":        &c.ProductsTable,
		"REVIEWS_TABLE":         &c.ReviewsTable,
		"USERS_TABLE":           &c.UsersTable,
		"IDEMPOTENCY_TABLE":     &c.IdempotencyTable,
		"ORDERS_QUEUE_URL":      &c.OrdersQueueURL,
		"REDIS_ADDR":            &c.RedisAddr,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"SESSION_SECRET":        &c.SessionSecret,
		"SIGN_IN_URL":           &c.SignInURL,
		"METRICS_NAMESPACE":     &c.MetricsNamespace,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_FILE":              &c.LogFile,
	}
	for env, dst := range strs {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"RUN_LOCAL":      &c.RunLocal,
		"SECURE_COOKIES": &c.SecureCookies,
	}
	for env, dst := range bools {
		if v, ok := lookup(env); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"SEED_MIN_PER_PRODUCT": &c.SeedMinPerProduct,
		"SEED_MAX_PER_PRODUCT": &c.SeedMaxPerProduct,
	}
	for env, dst := range ints {
		if v, ok := lookup(env); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup("IDEMPOTENCY_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		c.IdempotencyTTL = d
	}

	if v, ok := lookup("SEED_CATEGORIES"); ok && v != "" {
		c.SeedCategories = SplitList(v)
	}
	return nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must be set")
	}
	if c.SeedMinPerProduct < 1 || c.SeedMaxPerProduct < c.SeedMinPerProduct {
		return fmt.Errorf("invalid seed range %d..%d", c.SeedMinPerProduct, c.SeedMaxPerProduct)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
