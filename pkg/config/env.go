package config

// EnvPrefix is empty because every envconfig tag carries the full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "TAVERNBUDDY_APP_ENV"
	EnvPort      = "TAVERNBUDDY_APP_PORT"
	EnvAppURL    = "TAVERNBUDDY_APP_URL"
	EnvLogFormat = "TAVERNBUDDY_LOG_FORMAT"

	EnvDBDSN  = "TAVERNBUDDY_DB_DSN"
	EnvDBHost = "TAVERNBUDDY_DB_HOST"
	EnvDBUser = "TAVERNBUDDY_DB_USER"
	EnvDBName = "TAVERNBUDDY_DB_NAME"

	EnvRedisURL = "TAVERNBUDDY_REDIS_URL"

	EnvJWTSecret = "TAVERNBUDDY_JWT_SECRET"
	EnvJWTIssuer = "TAVERNBUDDY_JWT_ISSUER"

	EnvCronSecret          = "TAVERNBUDDY_CRON_SECRET"
	EnvCronSyncConcurrency = "TAVERNBUDDY_CRON_SYNC_CONCURRENCY"

	EnvSquareEnv    = "TAVERNBUDDY_SQUARE_ENV"
	EnvSquareAppID  = "TAVERNBUDDY_SQUARE_APPLICATION_ID"
	EnvGeminiAPIKey = "TAVERNBUDDY_GEMINI_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
