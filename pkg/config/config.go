package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig namespace for every setting.
const EnvPrefix = "TRADEPOST"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TRADEPOST_DB_DSN"
	EnvDBHost = "TRADEPOST_DB_HOST"
	EnvDBUser = "TRADEPOST_DB_USER"
	EnvDBName = "TRADEPOST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Fees          FeesConfig
	Checkout      CheckoutConfig
	Stripe        StripeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADEPOST_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADEPOST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRADEPOST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADEPOST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEPOST_DB_DSN"`
	Driver string `envconfig:"TRADEPOST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEPOST_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEPOST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEPOST_DB_USER"`
	LegacyPassword string `envconfig:"TRADEPOST_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEPOST_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEPOST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEPOST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEPOST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEPOST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEPOST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEPOST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEPOST_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEPOST_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEPOST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEPOST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEPOST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEPOST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEPOST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEPOST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADEPOST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADEPOST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADEPOST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	Window   time.Duration `envconfig:"TRADEPOST_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit  int           `envconfig:"TRADEPOST_AUTH_RATE_LIMIT_IP_LIMIT" default:"60"`
	KeyLimit int           `envconfig:"TRADEPOST_AUTH_RATE_LIMIT_KEY_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADEPOST_AUTO_MIGRATE" default:"false"`
}

// FeesConfig carries the platform commission rate. The rate is read at
// release time, not checkout time, so a change here applies to every
// release that happens after it.
type FeesConfig struct {
	PlatformBasisPoints int `envconfig:"TRADEPOST_FEE_BASIS_POINTS" default:"800"`
}

func (f FeesConfig) validate() error {
	if f.PlatformBasisPoints < 0 || f.PlatformBasisPoints > 10000 {
		return fmt.Errorf("fee basis points must be within [0, 10000], got %d", f.PlatformBasisPoints)
	}
	return nil
}

type CheckoutConfig struct {
	SuccessURL string `envconfig:"TRADEPOST_CHECKOUT_SUCCESS_URL" required:"true"`
	CancelURL  string `envconfig:"TRADEPOST_CHECKOUT_CANCEL_URL" required:"true"`
	Currency   string `envconfig:"TRADEPOST_CHECKOUT_CURRENCY" default:"usd"`
}

type StripeConfig struct {
	APIKey string `envconfig:"TRADEPOST_STRIPE_API_KEY"`
	Secret string `envconfig:"TRADEPOST_STRIPE_SECRET"`
	Env    string `envconfig:"TRADEPOST_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
