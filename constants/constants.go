package constants

// Loader

const (
	DefaultTableName           = "customer_visits"
	DefaultBatchSize           = 1000
	DefaultMaxLoadAttempts     = 5
	DefaultRetryDelaySeconds   = 5
	DefaultInputPath           = "./data/raw_urls.csv"
	DefaultEnvFile             = "./.env"
	DefaultLogLevel            = "info"
	DefaultPostgresPort        = 5432
	DefaultPostgresSslMode     = "prefer"
	InputUrlColumnName         = "url"
	TimeFormatYearSeconds      = "20060102T150405" // used for human readable run stats
	TimeFormatYearSecondsRegex = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	ServiceName                = "visitload"
	DefaultConnectionName      = "visits"
	ConnectionTypePostgres     = "postgres"
	ConnectionTypeSqlite       = "sqlite3"
	ConnectionTypeS3           = "s3"
	DriverNamePgx              = "pgx" // registered by jackc/pgx/v5/stdlib
	DriverNameSqlite           = "sqlite3"
)

// Environment

const (
	EnvVarPrefix     = "VISITS" // prefix for environment variables that configure the tool itself.
	EnvVarLogLevel   = EnvVarPrefix + "_LOG_LEVEL"
	EnvVarLambdaMode = EnvVarPrefix + "_LAMBDA_MODE"
	EnvVarInputPath  = EnvVarPrefix + "_INPUT"
	EnvVarEnvFile    = EnvVarPrefix + "_ENV_FILE"
	EnvVarTableName  = EnvVarPrefix + "_TABLE"
	EnvVarS3Region   = EnvVarPrefix + "_S3_REGION"
	EnvVarStackDump  = EnvVarPrefix + "_STACK_DUMP"
	EnvVarDsn        = EnvVarPrefix + "_DSN" // overrides the POSTGRES_* and DB_* variables when set.
	// Database connection variables keep the names used by the docker-compose setup.
	EnvVarPostgresDb       = "POSTGRES_DB"
	EnvVarPostgresUser     = "POSTGRES_USER"
	EnvVarPostgresPassword = "POSTGRES_PASSWORD"
	EnvVarDbHost           = "DB_HOST"
	EnvVarDbPort           = "DB_PORT"
	EnvVarDbSslMode        = "DB_SSLMODE"
	EnvVarAwsRegion        = "AWS_REGION"
)
