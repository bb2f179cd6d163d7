package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// qualified envconfig tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "GOLACO_APP_ENV"
	EnvAppPort = "GOLACO_APP_PORT"
	EnvDBDSN   = "GOLACO_DB_DSN"
	EnvDBHost  = "GOLACO_DB_HOST"
	EnvDBUser  = "GOLACO_DB_USER"
	EnvDBName  = "GOLACO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
