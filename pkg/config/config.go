package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Session SessionConfig
	DB      DBConfig
	Redis   RedisConfig
	Pricing PricingConfig
	Coupons CouponConfig
	Catalog CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Storage.Driver, StorageDriverRedis) && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s or %s is required for the redis storage driver", EnvRedisURL, EnvRedisAddr)
	}
	if cfg.Session.IdleTTL <= 0 {
		return nil, fmt.Errorf("%s must be positive", EnvSessionIdleTTL)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SKAWSH_APP_ENV" required:"true"`
	Port         string `envconfig:"SKAWSH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SKAWSH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SKAWSH_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SKAWSH_AUTO_MIGRATE" default:"false"`

	CORSOrigins []string `envconfig:"SKAWSH_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects where sack snapshots are written.
type StorageConfig struct {
	Driver  string `envconfig:"SKAWSH_STORAGE_DRIVER" default:"file"`
	FileDir string `envconfig:"SKAWSH_STORAGE_FILE_DIR" default:".skawsh"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(s.Driver) {
	case StorageDriverMemory, StorageDriverRedis, StorageDriverDB:
		return nil
	case StorageDriverFile:
		if strings.TrimSpace(s.FileDir) == "" {
			return fmt.Errorf("%s is required for the file storage driver", EnvStorageFileDir)
		}
		return nil
	}
	return fmt.Errorf("unsupported storage driver %q", s.Driver)
}

// SessionConfig bounds how long an unused session stays in memory.
type SessionConfig struct {
	IdleTTL time.Duration `envconfig:"SKAWSH_SESSION_IDLE_TTL" default:"30m"`
}

type DBConfig struct {
	Driver string `envconfig:"SKAWSH_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"SKAWSH_DB_DSN" default:"file:skawsh.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"SKAWSH_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"SKAWSH_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"SKAWSH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SKAWSH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the order history lives in an embedded sqlite file.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SKAWSH_REDIS_URL"`
	Address      string        `envconfig:"SKAWSH_REDIS_ADDR"`
	Password     string        `envconfig:"SKAWSH_REDIS_PASSWORD"`
	DB           int           `envconfig:"SKAWSH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SKAWSH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SKAWSH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SKAWSH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SKAWSH_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"SKAWSH_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// PricingConfig carries the surcharge and fee constants used by pricing and totals.
type PricingConfig struct {
	ExpressMultiplier decimal.Decimal `envconfig:"SKAWSH_PRICING_EXPRESS_MULTIPLIER" default:"1.5"`
	DeliveryFee       decimal.Decimal `envconfig:"SKAWSH_PRICING_DELIVERY_FEE" default:"49"`
	TaxPercent        decimal.Decimal `envconfig:"SKAWSH_PRICING_TAX_PERCENT" default:"5"`
}

func (p PricingConfig) validate() error {
	if p.ExpressMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be at least 1", EnvExpressMultiplier)
	}
	if p.DeliveryFee.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvDeliveryFee)
	}
	if p.TaxPercent.IsNegative() || p.TaxPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be within 0-100", EnvTaxPercent)
	}
	return nil
}

// CouponConfig maps recognised coupon codes to a discount percentage.
type CouponConfig struct {
	Codes map[string]int `envconfig:"SKAWSH_COUPON_CODES" default:"skawsh:10"`
}

type CatalogConfig struct {
	// Path to a YAML catalog; empty uses the embedded seed catalog.
	Path string `envconfig:"SKAWSH_CATALOG_PATH"`
}
