package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pix          PixConfig
	Stripe       StripeConfig
	Earnings     EarningsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GOLACO_APP_ENV" required:"true"`
	Port         string `envconfig:"GOLACO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GOLACO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOLACO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GOLACO_DB_DSN"`
	Driver string `envconfig:"GOLACO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GOLACO_DB_HOST"`
	LegacyPort     int    `envconfig:"GOLACO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GOLACO_DB_USER"`
	LegacyPassword string `envconfig:"GOLACO_DB_PASSWORD"`
	LegacyName     string `envconfig:"GOLACO_DB_NAME"`
	LegacySSLMode  string `envconfig:"GOLACO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GOLACO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GOLACO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GOLACO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOLACO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOLACO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GOLACO_REDIS_ADDR"`
	Password     string        `envconfig:"GOLACO_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOLACO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOLACO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOLACO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOLACO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOLACO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOLACO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GOLACO_AUTO_MIGRATE" default:"false"`
}

// PixConfig holds the Woovi-style Pix provider credentials. The webhook
// secret comes from the environment first; an admin-configured value can
// be injected at boot when the env var is absent.
type PixConfig struct {
	AppID          string        `envconfig:"GOLACO_PIX_APP_ID"`
	APIBaseURL     string        `envconfig:"GOLACO_PIX_API_BASE_URL" default:"https://api.openpix.com.br"`
	WebhookSecret  string        `envconfig:"GOLACO_PIX_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `envconfig:"GOLACO_PIX_REQUEST_TIMEOUT" default:"10s"`
}

// Configured reports whether the Pix rail can create charges.
func (p PixConfig) Configured() bool {
	return strings.TrimSpace(p.AppID) != ""
}

type StripeConfig struct {
	APIKey        string `envconfig:"GOLACO_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"GOLACO_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"GOLACO_STRIPE_ENV" default:"test"`
}

// Configured reports whether the card rail can create charges.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// EarningsConfig tunes the commission release policy: pending earnings
// become withdrawal-eligible after the grace period elapses.
type EarningsConfig struct {
	ReleaseGracePeriod time.Duration `envconfig:"GOLACO_EARNINGS_RELEASE_GRACE" default:"168h"`
}

// CronConfig tunes the maintenance worker cadence.
type CronConfig struct {
	Interval          time.Duration `envconfig:"GOLACO_CRON_INTERVAL" default:"1h"`
	WebhookRetryBatch int           `envconfig:"GOLACO_CRON_WEBHOOK_RETRY_BATCH" default:"100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
