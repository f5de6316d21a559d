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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Marketplace  MarketplaceConfig
	Cron         CronConfig
	Webhook      WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"BAZAAR_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow list for browser clients.
	CORSOrigins []string `envconfig:"BAZAAR_CORS_ORIGINS" default:"http://localhost:3000"`
	// WriteRateLimit caps mutating requests per actor per minute. Zero disables it.
	WriteRateLimit int `envconfig:"BAZAAR_WRITE_RATE_LIMIT" default:"120"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"BAZAAR_DB_DSN"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies actor tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" default:"60"`

	Leeway time.Duration `envconfig:"BAZAAR_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"BAZAAR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BAZAAR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic       string `envconfig:"BAZAAR_PUBSUB_ORDERS_TOPIC" default:"bazaar-order-events"`
	PayoutsTopic      string `envconfig:"BAZAAR_PUBSUB_PAYOUTS_TOPIC" default:"bazaar-payout-events"`
	ReturnsTopic      string `envconfig:"BAZAAR_PUBSUB_RETURNS_TOPIC" default:"bazaar-return-events"`
	NotificationTopic string `envconfig:"BAZAAR_PUBSUB_NOTIFICATION_TOPIC" default:"bazaar-notification-events"`

	PublishDelayThreshold time.Duration `envconfig:"BAZAAR_PUBSUB_PUBLISH_DELAY" default:"10ms"`
	PublishCountThreshold int           `envconfig:"BAZAAR_PUBSUB_PUBLISH_COUNT" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"BAZAAR_OUTBOX_RETENTION_DAYS" default:"30"`
	PruneBatchSize int `envconfig:"BAZAAR_OUTBOX_PRUNE_BATCH_SIZE" default:"500"`
}

// MarketplaceConfig carries the business rules evaluated against stored
// timestamps and amounts.
type MarketplaceConfig struct {
	DefaultCurrency       string        `envconfig:"BAZAAR_DEFAULT_CURRENCY" default:"XAF"`
	MinPayoutCents        int           `envconfig:"BAZAAR_MIN_PAYOUT_CENTS" default:"5000"`
	PayoutCooldown        time.Duration `envconfig:"BAZAAR_PAYOUT_COOLDOWN" default:"24h"`
	CustomerCancelWindow  time.Duration `envconfig:"BAZAAR_CUSTOMER_CANCEL_WINDOW" default:"2h"`
	ReturnWindow          time.Duration `envconfig:"BAZAAR_RETURN_WINDOW" default:"48h"`
	PendingHold           time.Duration `envconfig:"BAZAAR_PENDING_HOLD" default:"168h"`
	ShippingFlatRateCents int           `envconfig:"BAZAAR_SHIPPING_FLAT_RATE_CENTS" default:"0"`
}

func (m MarketplaceConfig) validate() error {
	if m.MinPayoutCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvMinPayoutCents)
	}
	if m.ShippingFlatRateCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvShippingFlatRate)
	}
	return nil
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"BAZAAR_CRON_LOCK_TTL" default:"55m"`
	JobTimeout time.Duration `envconfig:"BAZAAR_CRON_JOB_TIMEOUT" default:"10m"`
}

// WebhookConfig holds the shared secret used to sign provider callbacks.
type WebhookConfig struct {
	ProviderSecret string `envconfig:"BAZAAR_WEBHOOK_PROVIDER_SECRET"`
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
