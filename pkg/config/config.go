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
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	PayMongo     PayMongoConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Bookings     BookingsConfig
	Cache        CacheConfig
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
	Env          string `envconfig:"HOSTELHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"HOSTELHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HOSTELHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HOSTELHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HOSTELHUB_DB_DSN"`
	Driver string `envconfig:"HOSTELHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HOSTELHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"HOSTELHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HOSTELHUB_DB_USER"`
	LegacyPassword string `envconfig:"HOSTELHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"HOSTELHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"HOSTELHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HOSTELHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HOSTELHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HOSTELHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HOSTELHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HOSTELHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HOSTELHUB_REDIS_ADDR"`
	Password     string        `envconfig:"HOSTELHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"HOSTELHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HOSTELHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HOSTELHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HOSTELHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HOSTELHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HOSTELHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HOSTELHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HOSTELHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HOSTELHUB_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HOSTELHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HOSTELHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HOSTELHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HOSTELHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HOSTELHUB_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HOSTELHUB_AUTO_MIGRATE" default:"false"`
}

// PayMongoConfig drives the payment gateway client and webhook verification.
type PayMongoConfig struct {
	SecretKey      string        `envconfig:"HOSTELHUB_PAYMONGO_SECRET_KEY"`
	WebhookSecret  string        `envconfig:"HOSTELHUB_PAYMONGO_WEBHOOK_SECRET"`
	BaseURL        string        `envconfig:"HOSTELHUB_PAYMONGO_BASE_URL" default:"https://api.paymongo.com/v1"`
	RequestTimeout time.Duration `envconfig:"HOSTELHUB_PAYMONGO_REQUEST_TIMEOUT" default:"20s"`
	SuccessURL     string        `envconfig:"HOSTELHUB_PAYMONGO_SUCCESS_URL"`
	FailureURL     string        `envconfig:"HOSTELHUB_PAYMONGO_FAILURE_URL"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"HOSTELHUB_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"HOSTELHUB_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"HOSTELHUB_PUBSUB_BOOKING_TOPIC" default:"hh-booking-events"`
	BookingSubscription string `envconfig:"HOSTELHUB_PUBSUB_BOOKING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HOSTELHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HOSTELHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HOSTELHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// BookingsConfig holds knobs for booking lifecycle maintenance.
type BookingsConfig struct {
	PendingTTL  time.Duration `envconfig:"HOSTELHUB_BOOKING_PENDING_TTL" default:"30m"`
	CronEveryMS int           `envconfig:"HOSTELHUB_BOOKING_CRON_EVERY_MS" default:"60000"`
}

type CacheConfig struct {
	AvailabilityTTL time.Duration `envconfig:"HOSTELHUB_CACHE_AVAILABILITY_TTL" default:"15s"`
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
