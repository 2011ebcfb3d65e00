package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// OMFLOW_-prefixed tags so the prefix stays empty here.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "OMFLOW_APP_ENV"
	EnvPort     = "OMFLOW_APP_PORT"
	EnvDBDSN    = "OMFLOW_DB_DSN"
	EnvDBHost   = "OMFLOW_DB_HOST"
	EnvDBUser   = "OMFLOW_DB_USER"
	EnvDBName   = "OMFLOW_DB_NAME"
	EnvRedisURL = "OMFLOW_REDIS_URL"

	EnvInternalAPIToken = "OMFLOW_INTERNAL_API_TOKEN"
	EnvMailerAPIKey     = "OMFLOW_MAILER_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
