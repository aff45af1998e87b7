package config

const (
	EnvAppEnv               = "STOREFRONT_APP_ENV"
	EnvPort                 = "STOREFRONT_APP_PORT"
	EnvMedusaBaseURL        = "STOREFRONT_MEDUSA_BASE_URL"
	EnvMedusaKey            = "STOREFRONT_MEDUSA_PUBLISHABLE_KEY"
	EnvStorageBackend       = "STOREFRONT_STORAGE_BACKEND"
	EnvRedisURL             = "STOREFRONT_REDIS_URL"
	EnvRedisAddr            = "STOREFRONT_REDIS_ADDR"
	EnvDBDSN                = "STOREFRONT_DB_DSN"
	EnvDBDriver             = "STOREFRONT_DB_DRIVER"
	EnvDBHost               = "STOREFRONT_DB_HOST"
	EnvDBUser               = "STOREFRONT_DB_USER"
	EnvDBName               = "STOREFRONT_DB_NAME"
	EnvClearResetsInventory = "STOREFRONT_CART_CLEAR_RESETS_INVENTORY"
)

var dbHostEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
