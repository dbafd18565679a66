package config

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	GatewayDriverStripe  = "stripe"
	GatewayDriverSandbox = "sandbox"
)

type Config struct {
	APIPort        string        `env:"API_PORT" envDefault:"8080"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"defaultsecret"`
	JWTExpHours    int           `env:"JWT_EXPIRATION_HOURS" envDefault:"72"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	// Accounts signing up with one of these emails are created as admins.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBUser        string `env:"DB_USER" envDefault:"user"`
	DBPassword    string `env:"DB_PASSWORD" envDefault:"password"`
	DBName        string `env:"DB_NAME" envDefault:"contest_hub"`
	DBSslMode     string `env:"DB_SSLMODE" envDefault:"disable"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ReconcileQueueName      string        `env:"RECONCILE_QUEUE_NAME" envDefault:"contest_reconcile_queue"`
	ReconcileLockKey        string        `env:"RECONCILE_LOCK_KEY" envDefault:"contest_reconcile_lock"`
	ReconcileLockTTLSeconds int           `env:"RECONCILE_LOCK_TTL_SECONDS" envDefault:"300"`
	ReconcileInterval       time.Duration `env:"RECONCILE_INTERVAL" envDefault:"15m"`

	// Empty selects stripe when a key is set, and the sandbox only for the memory store.
	GatewayDriver      string        `env:"GATEWAY_DRIVER"`
	StripeSecretKey    string        `env:"STRIPE_SECRET_KEY"`
	PaymentCurrency    string        `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	CheckoutSuccessURL string        `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:5173/payment-success?session_id={CHECKOUT_SESSION_ID}"`
	CheckoutCancelURL  string        `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:5173/payment-cancelled"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if err := cfg.resolveGateway(); err != nil {
		return nil, err
	}
	if cfg.JWTExpHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWTExpHours)
	}
	return cfg, nil
}

// resolveGateway picks the payment gateway. The sandbox settles every session without payment,
// so a persistent store never falls back to it silently.
func (c *Config) resolveGateway() error {
	if c.GatewayDriver == "" {
		switch {
		case c.StripeSecretKey != "":
			c.GatewayDriver = GatewayDriverStripe
		case c.StoreDriver == StoreDriverMemory:
			c.GatewayDriver = GatewayDriverSandbox
		default:
			return fmt.Errorf("STRIPE_SECRET_KEY is required with STORE_DRIVER=%s unless GATEWAY_DRIVER=%s",
				c.StoreDriver, GatewayDriverSandbox)
		}
	}
	switch c.GatewayDriver {
	case GatewayDriverStripe:
		if c.StripeSecretKey == "" {
			return fmt.Errorf("GATEWAY_DRIVER=%s requires STRIPE_SECRET_KEY", GatewayDriverStripe)
		}
	case GatewayDriverSandbox:
	default:
		return fmt.Errorf("unsupported GATEWAY_DRIVER %q", c.GatewayDriver)
	}
	return nil
}

func (c *Config) JWTExp() time.Duration {
	return time.Duration(c.JWTExpHours) * time.Hour
}

func (c *Config) ReconcileLockTTL() time.Duration {
	return time.Duration(c.ReconcileLockTTLSeconds) * time.Second
}

// DBConnStr prefers DATABASE_URL and otherwise assembles a postgres URL from the DB_* parts.
// golang-migrate only understands the URL form.
func (c *Config) DBConnStr() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSslMode),
	}
	return u.String()
}
