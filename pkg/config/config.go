package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "TABLESIDE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                   = "TABLESIDE_APP_ENV"
	EnvPort                     = "TABLESIDE_APP_PORT"
	EnvPublicOrigin             = "TABLESIDE_PUBLIC_ORIGIN"
	EnvDBDSN                    = "TABLESIDE_DB_DSN"
	EnvDBHost                   = "TABLESIDE_DB_HOST"
	EnvDBUser                   = "TABLESIDE_DB_USER"
	EnvDBName                   = "TABLESIDE_DB_NAME"
	EnvRedisURL                 = "TABLESIDE_REDIS_URL"
	EnvRedisAddr                = "TABLESIDE_REDIS_ADDR"
	EnvJWTSecret                = "TABLESIDE_JWT_SECRET"
	EnvJWTIssuer                = "TABLESIDE_JWT_ISSUER"
	EnvJWTExpMins               = "TABLESIDE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes   = "TABLESIDE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID             = "TABLESIDE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic        = "TABLESIDE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSubscription = "TABLESIDE_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvCartTTL                  = "TABLESIDE_CART_TTL"
	EnvSubmitLockTTL            = "TABLESIDE_SUBMIT_LOCK_TTL"
	EnvDeleteGuardTTL           = "TABLESIDE_DELETE_GUARD_TTL"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ordering      OrderingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

// Load reads TABLESIDE_* variables, derives the database DSN when only its
// parts are set, and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.resolveDSN(),
		cfg.App.validateOrigin(),
		cfg.Redis.validate(),
		cfg.JWT.validate(),
		cfg.Ordering.validate(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TABLESIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLESIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TABLESIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLESIDE_LOG_WARN_STACK" default:"false"`
	// PublicOrigin is the scheme+host printed into table QR codes.
	PublicOrigin string `envconfig:"TABLESIDE_PUBLIC_ORIGIN" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

func (a AppConfig) validateOrigin() error {
	u, err := url.Parse(strings.TrimSpace(a.PublicOrigin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute origin, got %q", EnvPublicOrigin, a.PublicOrigin)
	}
	return nil
}

type ServiceConfig struct {
	Kind string `envconfig:"TABLESIDE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TABLESIDE_DB_DSN"`
	Driver string `envconfig:"TABLESIDE_DB_DRIVER" default:"postgres"`

	// Parts are only read when DSN is empty.
	Host     string `envconfig:"TABLESIDE_DB_HOST"`
	Port     int    `envconfig:"TABLESIDE_DB_PORT" default:"5432"`
	User     string `envconfig:"TABLESIDE_DB_USER"`
	Password string `envconfig:"TABLESIDE_DB_PASSWORD"`
	Name     string `envconfig:"TABLESIDE_DB_NAME"`
	SSLMode  string `envconfig:"TABLESIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TABLESIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TABLESIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TABLESIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TABLESIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TABLESIDE_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLESIDE_REDIS_URL"`
	Address      string        `envconfig:"TABLESIDE_REDIS_ADDR"`
	Password     string        `envconfig:"TABLESIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLESIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLESIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLESIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLESIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLESIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TABLESIDE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TABLESIDE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TABLESIDE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TABLESIDE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TABLESIDE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TABLESIDE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TABLESIDE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TABLESIDE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TABLESIDE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	SignInWindow     time.Duration `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNIN_WINDOW" default:"1m"`
	SignInEmailLimit int           `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNIN_EMAIL_LIMIT" default:"5"`
	SignInIPLimit    int           `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNIN_IP_LIMIT" default:"20"`
	SignUpWindow     time.Duration `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignUpEmailLimit int           `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignUpIPLimit    int           `envconfig:"TABLESIDE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TABLESIDE_AUTO_MIGRATE" default:"false"`
}

// OrderingConfig tunes the cart and order write paths.
type OrderingConfig struct {
	CartTTL           time.Duration `envconfig:"TABLESIDE_CART_TTL" default:"24h"`
	SubmitLockTTL     time.Duration `envconfig:"TABLESIDE_SUBMIT_LOCK_TTL" default:"15s"`
	DeleteGuardTTL    time.Duration `envconfig:"TABLESIDE_DELETE_GUARD_TTL" default:"30s"`
	OrphanGracePeriod time.Duration `envconfig:"TABLESIDE_ORPHAN_GRACE_PERIOD" default:"30m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TABLESIDE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"TABLESIDE_PUBSUB_ORDERS_TOPIC" default:"tableside-order-events"`
	OrdersSubscription string `envconfig:"TABLESIDE_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TABLESIDE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TABLESIDE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TABLESIDE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"TABLESIDE_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (d *DBConfig) resolveDSN() error {
	if d.DSN != "" {
		return nil
	}
	var missing []string
	for env, v := range map[string]string{EnvDBHost: d.Host, EnvDBUser: d.User, EnvDBName: d.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(d.User)
	if d.Password != "" {
		user = url.UserPassword(d.User, d.Password)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	d.DSN = u.String()
	return nil
}

func (r RedisConfig) validate() error {
	if r.URL == "" && r.Address == "" {
		return fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	return nil
}

func (j JWTConfig) validate() error {
	access := time.Duration(j.ExpirationMinutes) * time.Minute
	if access <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	}
	if refresh := j.RefreshTokenTTL(); refresh <= access {
		return fmt.Errorf("%s (%s) must exceed %s (%s)", EnvRefreshTokenTTLMinutes, refresh, EnvJWTExpMins, access)
	}
	return nil
}

func (o OrderingConfig) validate() error {
	var err error
	for env, d := range map[string]time.Duration{
		EnvCartTTL:        o.CartTTL,
		EnvSubmitLockTTL:  o.SubmitLockTTL,
		EnvDeleteGuardTTL: o.DeleteGuardTTL,
	} {
		if d <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive", env))
		}
	}
	return err
}
