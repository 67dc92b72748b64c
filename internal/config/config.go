// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Stripe    StripeConfig    `koanf:"stripe"`
	LLM       LLMConfig       `koanf:"llm"`
	Store     StoreConfig     `koanf:"store"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	PublicURL   string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// JWTConfig configures operator (admin) tokens. Admin routes are only
// mounted when a public or private key path is set.
type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type StripeConfig struct {
	SecretKey     string        `koanf:"secret_key"`
	WebhookSecret string        `koanf:"webhook_secret"`
	APIBaseURL    string        `koanf:"api_base_url"`
	PriceID       string        `koanf:"price_id"`
	Currency      string        `koanf:"currency"`
	UnitAmount    int64         `koanf:"unit_amount"`
	ProductName   string        `koanf:"product_name"`
	Timeout       time.Duration `koanf:"timeout"`
}

type LLMConfig struct {
	Provider     string        `koanf:"provider"`
	OpenAIAPIKey string        `koanf:"openai_api_key"`
	XAIAPIKey    string        `koanf:"xai_api_key"`
	BaseURL      string        `koanf:"base_url"`
	Model        string        `koanf:"model"`
	Temperature  float64       `koanf:"temperature"`
	MaxTokens    int           `koanf:"max_tokens"`
	Timeout      time.Duration `koanf:"timeout"`
}

type StoreConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type ReconcileConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Schedule    string `koanf:"schedule"`
	BatchSize   int    `koanf:"batch_size"`
	MaxAttempts int    `koanf:"max_attempts"`
}

type RateLimitConfig struct {
	Requests         int           `koanf:"requests"`
	Window           time.Duration `koanf:"window"`
	Burst            int           `koanf:"burst"`
	GenerateRequests int           `koanf:"generate_requests"`
	GenerateBurst    int           `koanf:"generate_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	ProviderOpenAI = "openai"
	ProviderXAI    = "xai"
)

// Load builds the process configuration from defaults, the optional YAML
// file at configPath, and the environment. Callers own the returned value.
func Load(configPath string) (*Config, error) {
	return load(configPath)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	c.LLM.applyProviderDefaults()

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "OneClick Reply",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             3000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "1h",
		"jwt.issuer":              "oneclick-server",
		"jwt.audience":            "oneclick-admin",

		"stripe.currency":     "usd",
		"stripe.unit_amount":  1200,
		"stripe.product_name": "OneClick Reply Pro",
		"stripe.timeout":      "10s",

		"llm.provider":    ProviderOpenAI,
		"llm.temperature": 0.5,
		"llm.max_tokens":  200,
		"llm.timeout":     "30s",

		"store.timeout": "3s",

		"reconcile.enabled":      true,
		"reconcile.schedule":     "@every 5m",
		"reconcile.batch_size":   50,
		"reconcile.max_attempts": 10,

		"rate_limit.requests":          100,
		"rate_limit.window":            "1m",
		"rate_limit.burst":             20,
		"rate_limit.generate_requests": 20,
		"rate_limit.generate_burst":    5,

		"cors.allowed_origins": []string{"*"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": false,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "oneclick-server",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"STRIPE_SECRET_KEY":           "stripe.secret_key",
	"STRIPE_WEBHOOK_SECRET":       "stripe.webhook_secret",
	"STRIPE_API_BASE_URL":         "stripe.api_base_url",
	"STRIPE_PRICE_ID":             "stripe.price_id",
	"STRIPE_TIMEOUT":              "stripe.timeout",
	"LLM_PROVIDER":                "llm.provider",
	"LLM_BASE_URL":                "llm.base_url",
	"LLM_MODEL":                   "llm.model",
	"LLM_TIMEOUT":                 "llm.timeout",
	"OPENAI_API_KEY":              "llm.openai_api_key",
	"XAI_API_KEY":                 "llm.xai_api_key",
	"STORE_TIMEOUT":               "store.timeout",
	"RECONCILE_ENABLED":           "reconcile.enabled",
	"RECONCILE_SCHEDULE":          "reconcile.schedule",
	"RECONCILE_BATCH_SIZE":        "reconcile.batch_size",
	"RECONCILE_MAX_ATTEMPTS":      "reconcile.max_attempts",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func (l *LLMConfig) applyProviderDefaults() {
	l.Provider = strings.ToLower(strings.TrimSpace(l.Provider))

	switch l.Provider {
	case ProviderXAI:
		if l.BaseURL == "" {
			l.BaseURL = "https://api.x.ai/v1"
		}
		if l.Model == "" {
			l.Model = "grok-3-mini"
		}
	case ProviderOpenAI:
		if l.BaseURL == "" {
			l.BaseURL = "https://api.openai.com/v1"
		}
		if l.Model == "" {
			l.Model = "gpt-4.1-mini"
		}
	}
}

// APIKey returns the key of the configured provider.
func (l *LLMConfig) APIKey() string {
	if l.Provider == ProviderXAI {
		return l.XAIAPIKey
	}
	return l.OpenAIAPIKey
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.App.PublicURL == "" {
		return fmt.Errorf("PUBLIC_URL is required")
	}

	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	if c.Stripe.PriceID == "" && c.Stripe.UnitAmount <= 0 {
		return fmt.Errorf("stripe.unit_amount must be positive when no price id is set")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderXAI:
		if c.LLM.XAIAPIKey == "" {
			return fmt.Errorf("XAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive")
	}

	if c.Stripe.Timeout <= 0 {
		return fmt.Errorf("stripe.timeout must be positive")
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}

	if c.Reconcile.Enabled && c.Reconcile.MaxAttempts <= 0 {
		return fmt.Errorf("reconcile.max_attempts must be positive")
	}

	if c.Reconcile.Enabled && c.Reconcile.BatchSize <= 0 {
		return fmt.Errorf("reconcile.batch_size must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// AdminEnabled reports whether operator routes can be mounted.
func (c *Config) AdminEnabled() bool {
	return c.JWT.PublicKeyPath != "" || c.JWT.PrivateKeyPath != ""
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SuccessURL is where the payment provider redirects after checkout.
func (a *AppConfig) SuccessURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/success"
}

func (a *AppConfig) CancelURL() string {
	return strings.TrimRight(a.PublicURL, "/") + "/cancel"
}
