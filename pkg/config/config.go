package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "soundbay"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SOUNDBAY_DB_DSN"
	EnvDBHost = "SOUNDBAY_DB_HOST"
	EnvDBUser = "SOUNDBAY_DB_USER"
	EnvDBName = "SOUNDBAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	PayPal       PayPalConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"SOUNDBAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUNDBAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUNDBAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUNDBAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SOUNDBAY_DB_DSN"`
	Driver string `envconfig:"SOUNDBAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUNDBAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUNDBAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUNDBAY_DB_USER"`
	LegacyPassword string `envconfig:"SOUNDBAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUNDBAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUNDBAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUNDBAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUNDBAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUNDBAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUNDBAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUNDBAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUNDBAY_REDIS_ADDR"`
	Password     string        `envconfig:"SOUNDBAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUNDBAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUNDBAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUNDBAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUNDBAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUNDBAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUNDBAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUNDBAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUNDBAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOUNDBAY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PayPalConfig struct {
	ClientID          string        `envconfig:"SOUNDBAY_PAYPAL_CLIENT_ID"`
	Secret            string        `envconfig:"SOUNDBAY_PAYPAL_SECRET"`
	Env               string        `envconfig:"SOUNDBAY_PAYPAL_ENV" default:"sandbox"`
	WebhookID         string        `envconfig:"SOUNDBAY_PAYPAL_WEBHOOK_ID"`
	PartnerID         string        `envconfig:"SOUNDBAY_PAYPAL_PARTNER_ID"`
	PlatformMerchant  string        `envconfig:"SOUNDBAY_PAYPAL_PLATFORM_MERCHANT_ID"`
	PartnerAttributor string        `envconfig:"SOUNDBAY_PAYPAL_BN_CODE"`
	ReturnURL         string        `envconfig:"SOUNDBAY_PAYPAL_ONBOARDING_RETURN_URL"`
	Timeout           time.Duration `envconfig:"SOUNDBAY_PAYPAL_TIMEOUT" default:"20s"`
	OnboardingTTL     time.Duration `envconfig:"SOUNDBAY_PAYPAL_ONBOARDING_TTL" default:"72h"`
}

// Environment returns the normalized PayPal environment (sandbox/live).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOUNDBAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOUNDBAY_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOUNDBAY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SOUNDBAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOUNDBAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SOUNDBAY_PUBSUB_DOMAIN_TOPIC" default:"sb-domain-events"`
	DomainSubscription string `envconfig:"SOUNDBAY_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOUNDBAY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOUNDBAY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOUNDBAY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
