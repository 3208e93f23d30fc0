package config

// EnvPrefix is the envconfig prefix for all service configuration.
const EnvPrefix = "MUSEBOX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "MUSEBOX_APP_ENV"
	EnvPort   = "MUSEBOX_APP_PORT"

	EnvDBDSN  = "MUSEBOX_DB_DSN"
	EnvDBHost = "MUSEBOX_DB_HOST"
	EnvDBUser = "MUSEBOX_DB_USER"
	EnvDBName = "MUSEBOX_DB_NAME"

	EnvRedisURL            = "MUSEBOX_REDIS_URL"
	EnvGCPProjectID        = "MUSEBOX_GCP_PROJECT_ID"
	EnvGCSBucket           = "MUSEBOX_GCS_BUCKET_NAME"
	EnvDashScopeAPIKey     = "MUSEBOX_DASHSCOPE_API_KEY"
	EnvPubSubGenerationSub = "MUSEBOX_PUBSUB_GENERATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
