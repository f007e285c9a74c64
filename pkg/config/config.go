package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CITYFIX_AUTH_JWT_SECRET for auth.jwt_secret
const EnvPrefix = "CITYFIX"

// Config is the complete server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Payments PaymentsConfig `mapstructure:"payments"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Rate     RateConfig     `mapstructure:"rate_limit"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type QuotaConfig struct {
	// FreeIssueLimit is how many issues a non-premium citizen may hold; 0 disables the limit
	FreeIssueLimit int `mapstructure:"free_issue_limit"`
}

// PaymentsConfig configures Stripe Checkout. Payments are disabled while
// StripeSecretKey is empty.
type PaymentsConfig struct {
	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	PremiumAmount       int64  `mapstructure:"premium_amount"`
	BoostAmount         int64  `mapstructure:"boost_amount"`
	Currency            string `mapstructure:"currency"`
	SuccessURL          string `mapstructure:"success_url"`
	CancelURL           string `mapstructure:"cancel_url"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateConfig struct {
	// RequestsPerSecond of 0 disables rate limiting
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("quota.free_issue_limit", 3)
	v.SetDefault("payments.stripe_secret_key", "")
	v.SetDefault("payments.stripe_webhook_secret", "")
	v.SetDefault("payments.premium_amount", 1000)
	v.SetDefault("payments.boost_amount", 100)
	v.SetDefault("payments.currency", "usd")
	v.SetDefault("payments.success_url", "http://localhost:5173/payment/success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payments.cancel_url", "http://localhost:5173/payment/cancel")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load reads defaults, then the YAML file at path when path is non-empty,
// then CITYFIX_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if c.Quota.FreeIssueLimit < 0 {
		errs = append(errs, errors.New("quota.free_issue_limit must not be negative"))
	}
	if c.Payments.PremiumAmount < 0 {
		errs = append(errs, errors.New("payments.premium_amount must not be negative"))
	}
	if c.Payments.BoostAmount < 0 {
		errs = append(errs, errors.New("payments.boost_amount must not be negative"))
	}
	if c.Payments.Enabled() && (c.Payments.SuccessURL == "" || c.Payments.CancelURL == "") {
		errs = append(errs, errors.New("payments.success_url and payments.cancel_url are required when payments are enabled"))
	}
	if c.Rate.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_second must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w: %w", errors.Join(errs...), errdefs.ErrInvalidArgument)
	}
	return nil
}

// Enabled reports whether a Stripe key is configured
func (p PaymentsConfig) Enabled() bool {
	return p.StripeSecretKey != ""
}
