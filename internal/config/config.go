package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the service configuration, read from the environment.
type Config struct {
	// Shopify app
	ShopifyAPIKey     string        `env:"SHOPIFY_API_KEY"`
	ShopifyAPISecret  string        `env:"SHOPIFY_API_SECRET"`
	Scopes            []string      `env:"SCOPES" default:"read_orders,write_orders"`
	ShopifyAPIVersion string        `env:"SHOPIFY_API_VERSION" default:"2023-10"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" default:"15s"`
	VerifyHMAC        bool          `env:"VERIFY_HMAC" default:"true"`

	// Host is the public base URL of this service. The OAuth redirect URI
	// and the success redirect are built from it.
	Host        string   `env:"HOST" usage:"Public base URL, e.g. https://app.example.com"`
	SuccessPath string   `env:"SUCCESS_PATH" default:"/auth-success"`
	CORSOrigins []string `env:"CORS_ORIGINS" usage:"Cross-origin callers allowed with credentials; same-origin only when empty"`

	// HTTP server
	Port            string        `env:"PORT" default:"3000"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s"`

	// Sessions
	RedisURL             string        `env:"REDIS_URL" usage:"Redis URL for sessions; in-memory when empty"`
	SessionTTL           time.Duration `env:"SESSION_TTL" default:"24h"`
	StateTTL             time.Duration `env:"STATE_TTL" default:"10m"`
	SessionEncryptionKey string        `env:"SESSION_ENCRYPTION_KEY" usage:"base64 encoded 32 byte key; random per process when empty"`
	LegacyTokenParams    bool          `env:"LEGACY_TOKEN_PARAMS" default:"false" usage:"Accept shop/accessToken request parameters"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json" usage:"json or console"`
}

// Load reads .env when present, then the environment.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv loads and validates the configuration from the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags:        true,
		SkipFiles:        true,
		AllowUnknownEnvs: true,
	})
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.ShopifyAPIKey == "" {
		errs = append(errs, errors.New("SHOPIFY_API_KEY is required"))
	}
	if c.ShopifyAPISecret == "" {
		errs = append(errs, errors.New("SHOPIFY_API_SECRET is required"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("HOST is required"))
	} else if u, err := url.Parse(c.Host); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("HOST must be an absolute URL, got %q", c.Host))
	}
	if !strings.HasPrefix(c.SuccessPath, "/") {
		errs = append(errs, fmt.Errorf("SUCCESS_PATH must start with /, got %q", c.SuccessPath))
	}
	c.Host = strings.TrimRight(c.Host, "/")
	return errors.Join(errs...)
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.Host), "https://")
}

// NewLogger builds the root logger for a level name and format ("json" or
// "console").
func NewLogger(levelName, format string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
