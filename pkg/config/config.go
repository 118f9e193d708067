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
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	JoinRateLimit JoinRateLimitConfig
	Pulse         PulseConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"DIVVYUP_APP_ENV" required:"true"`
	Port         string `envconfig:"DIVVYUP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DIVVYUP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DIVVYUP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DIVVYUP_DB_DSN"`
	Driver string `envconfig:"DIVVYUP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DIVVYUP_DB_HOST"`
	Port     int    `envconfig:"DIVVYUP_DB_PORT" default:"5432"`
	User     string `envconfig:"DIVVYUP_DB_USER"`
	Password string `envconfig:"DIVVYUP_DB_PASSWORD"`
	Name     string `envconfig:"DIVVYUP_DB_NAME"`
	SSLMode  string `envconfig:"DIVVYUP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DIVVYUP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DIVVYUP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DIVVYUP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DIVVYUP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a Postgres DSN from the discrete fields when one is not
// provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db config requires DIVVYUP_DB_DSN or host/user/name fields")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"DIVVYUP_REDIS_URL"`
	Address      string        `envconfig:"DIVVYUP_REDIS_ADDR"`
	Password     string        `envconfig:"DIVVYUP_REDIS_PASSWORD"`
	DB           int           `envconfig:"DIVVYUP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DIVVYUP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DIVVYUP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIVVYUP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DIVVYUP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DIVVYUP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DIVVYUP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DIVVYUP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DIVVYUP_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type JoinRateLimitConfig struct {
	Window  time.Duration `envconfig:"DIVVYUP_JOIN_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"DIVVYUP_JOIN_RATE_LIMIT_IP_LIMIT" default:"30"`
}

type PulseConfig struct {
	// PollInterval is advertised to clients as the suggested re-poll cadence.
	PollInterval time.Duration `envconfig:"DIVVYUP_PULSE_POLL_INTERVAL" default:"1750ms"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DIVVYUP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DIVVYUP_AUTO_MIGRATE" default:"false"`
}
