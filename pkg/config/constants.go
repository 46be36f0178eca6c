package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "LABSTOCK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "LABSTOCK_APP_ENV"
	EnvPort     = "LABSTOCK_APP_PORT"
	EnvLogLevel = "LABSTOCK_LOG_LEVEL"

	EnvDBDSN  = "LABSTOCK_DB_DSN"
	EnvDBHost = "LABSTOCK_DB_HOST"
	EnvDBUser = "LABSTOCK_DB_USER"
	EnvDBName = "LABSTOCK_DB_NAME"

	EnvRedisURL = "LABSTOCK_REDIS_URL"

	EnvJWTSecret  = "LABSTOCK_JWT_SECRET"
	EnvJWTIssuer  = "LABSTOCK_JWT_ISSUER"
	EnvJWTExpMins = "LABSTOCK_JWT_EXPIRATION_MINUTES"

	EnvLabIDs = "LABSTOCK_LAB_IDS"

	EnvGCPProjectID = "LABSTOCK_GCP_PROJECT_ID"

	EnvPubSubEventsTopic = "LABSTOCK_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSub   = "LABSTOCK_PUBSUB_EVENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
