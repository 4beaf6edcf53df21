package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HOSTELHUB_DB_DSN"
	EnvDBHost = "HOSTELHUB_DB_HOST"
	EnvDBUser = "HOSTELHUB_DB_USER"
	EnvDBName = "HOSTELHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
