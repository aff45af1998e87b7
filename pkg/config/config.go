package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageRedis  = "redis"
	StorageSQL    = "sql"
	StorageMemory = "memory"
)

type Config struct {
	App       AppConfig
	Medusa    MedusaConfig
	Storage   StorageConfig
	Redis     RedisConfig
	DB        DBConfig
	Session   SessionConfig
	Cart      CartConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == StorageSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.Backend == StorageRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for redis storage", EnvRedisURL, EnvRedisAddr)
	}
	if _, err := url.Parse(cfg.Medusa.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvMedusaBaseURL, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// MedusaConfig points at the commerce backend store API.
type MedusaConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_MEDUSA_BASE_URL" required:"true"`
	PublishableKey string        `envconfig:"STOREFRONT_MEDUSA_PUBLISHABLE_KEY" required:"true"`
	RegionID       string        `envconfig:"STOREFRONT_MEDUSA_REGION_ID"`
	Timeout        time.Duration `envconfig:"STOREFRONT_MEDUSA_TIMEOUT" default:"10s"`
}

type StorageConfig struct {
	Backend string        `envconfig:"STOREFRONT_STORAGE_BACKEND" default:"redis"`
	TTL     time.Duration `envconfig:"STOREFRONT_STORAGE_TTL" default:"720h"`
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageRedis, StorageSQL, StorageMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s; got %q", EnvStorageBackend, StorageRedis, StorageSQL, StorageMemory, s.Backend)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	AutoMigrate     bool          `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`
	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig controls how shopper sessions are identified and cached.
type SessionConfig struct {
	Header     string `envconfig:"STOREFRONT_SESSION_HEADER" default:"X-Session-Id"`
	Cookie     string `envconfig:"STOREFRONT_SESSION_COOKIE" default:"sf_session"`
	CacheSize  int    `envconfig:"STOREFRONT_SESSION_CACHE_SIZE" default:"1024"`
	IssueOnGet bool   `envconfig:"STOREFRONT_SESSION_ISSUE_ON_GET" default:"true"`
}

type CartConfig struct {
	// ClearResetsInventory makes ClearLocal also drop inventory adjustments.
	ClearResetsInventory bool `envconfig:"STOREFRONT_CART_CLEAR_RESETS_INVENTORY" default:"false"`
}

// RateLimitConfig throttles cart mutations per session and per client IP.
// Counters live in redis, so limits only apply with the redis storage backend.
type RateLimitConfig struct {
	Window         time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	SessionLimit   int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION" default:"120"`
	IPLimit        int           `envconfig:"STOREFRONT_RATE_LIMIT_IP" default:"600"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

// JobsConfig schedules the maintenance worker.
type JobsConfig struct {
	Interval time.Duration `envconfig:"STOREFRONT_JOBS_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"STOREFRONT_JOBS_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbHostEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
