package config

const EnvPrefix = "BAZAAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "BAZAAR_APP_ENV"
	EnvPort             = "BAZAAR_APP_PORT"
	EnvLogLevel         = "BAZAAR_LOG_LEVEL"
	EnvDBDSN            = "BAZAAR_DB_DSN"
	EnvDBHost           = "BAZAAR_DB_HOST"
	EnvDBPort           = "BAZAAR_DB_PORT"
	EnvDBUser           = "BAZAAR_DB_USER"
	EnvDBPassword       = "BAZAAR_DB_PASSWORD"
	EnvDBName           = "BAZAAR_DB_NAME"
	EnvRedisURL         = "BAZAAR_REDIS_URL"
	EnvJWTSecret        = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer        = "BAZAAR_JWT_ISSUER"
	EnvMinPayoutCents   = "BAZAAR_MIN_PAYOUT_CENTS"
	EnvPayoutCooldown   = "BAZAAR_PAYOUT_COOLDOWN"
	EnvReturnWindow     = "BAZAAR_RETURN_WINDOW"
	EnvShippingFlatRate = "BAZAAR_SHIPPING_FLAT_RATE_CENTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
