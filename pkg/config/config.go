package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VIDORA_DB_DSN"
	EnvDBHost = "VIDORA_DB_HOST"
	EnvDBUser = "VIDORA_DB_USER"
	EnvDBName = "VIDORA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Creem        CreemConfig
	Catalog      CatalogConfig
	Identity     IdentityConfig
	Schema       SchemaConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"VIDORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VIDORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VIDORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIDORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VIDORA_DB_DSN"`
	Driver string `envconfig:"VIDORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VIDORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VIDORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIDORA_DB_USER"`
	LegacyPassword string `envconfig:"VIDORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIDORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIDORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIDORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIDORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIDORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIDORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIDORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIDORA_REDIS_ADDR"`
	Password     string        `envconfig:"VIDORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIDORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIDORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIDORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIDORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIDORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIDORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CreemConfig carries the payment processor webhook settings.
type CreemConfig struct {
	WebhookSecret  string        `envconfig:"VIDORA_CREEM_WEBHOOK_SECRET" required:"true"`
	IdempotencyTTL time.Duration `envconfig:"VIDORA_CREEM_IDEMPOTENCY_TTL" default:"72h"`
	// FlexDedupWindow bounds the ledger lookback for one-time purchase
	// duplicate checks. Subscription-period checks are unbounded.
	FlexDedupWindow time.Duration `envconfig:"VIDORA_CREEM_FLEX_DEDUP_WINDOW" default:"24h"`
}

// CatalogConfig points at the plan catalog document. JSON takes precedence
// over Path when both are set.
type CatalogConfig struct {
	Path string `envconfig:"VIDORA_PLAN_CATALOG_PATH"`
	JSON string `envconfig:"VIDORA_PLAN_CATALOG_JSON"`
}

// IdentityConfig carries the operational email remap table: a JSON object of
// webhook-email -> account-email pairs maintained for manually reconciled
// mismatches.
type IdentityConfig struct {
	EmailRemapJSON string `envconfig:"VIDORA_EMAIL_REMAP_JSON"`
}

// SchemaConfig pins the subscription external-id column when set, skipping
// the runtime probe entirely.
type SchemaConfig struct {
	SubscriptionIDColumn string `envconfig:"VIDORA_SCHEMA_SUBSCRIPTION_ID_COLUMN"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VIDORA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VIDORA_AUTO_MIGRATE" default:"false"`
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
