package config

const EnvPrefix = "SKAWSH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
	StorageDriverDB     = "db"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "SKAWSH_APP_ENV"
	EnvPort              = "SKAWSH_APP_PORT"
	EnvLogLevel          = "SKAWSH_LOG_LEVEL"
	EnvStorageDriver     = "SKAWSH_STORAGE_DRIVER"
	EnvStorageFileDir    = "SKAWSH_STORAGE_FILE_DIR"
	EnvSessionIdleTTL    = "SKAWSH_SESSION_IDLE_TTL"
	EnvDBDriver          = "SKAWSH_DB_DRIVER"
	EnvDBDSN             = "SKAWSH_DB_DSN"
	EnvRedisURL          = "SKAWSH_REDIS_URL"
	EnvRedisAddr         = "SKAWSH_REDIS_ADDR"
	EnvCORSOrigins       = "SKAWSH_CORS_ORIGINS"
	EnvExpressMultiplier = "SKAWSH_PRICING_EXPRESS_MULTIPLIER"
	EnvDeliveryFee       = "SKAWSH_PRICING_DELIVERY_FEE"
	EnvTaxPercent        = "SKAWSH_PRICING_TAX_PERCENT"
	EnvCouponCodes       = "SKAWSH_COUPON_CODES"
	EnvCatalogPath       = "SKAWSH_CATALOG_PATH"
)
